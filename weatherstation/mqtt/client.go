// Package mqtt publishes telemetry snapshots to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	mqtt "github.com/soypat/natiu-mqtt"

	"github.com/harveysanders/picoweather/weatherstation/telemetry"
)

var pubFlags, _ = mqtt.NewPublishFlags(mqtt.QoS0, false, false)

// Conn is a broker connection. *net.TCPConn and the lneto TCP wrapper both
// satisfy it.
type Conn interface {
	io.ReadWriteCloser
	SetDeadline(t time.Time) error
}

// DialFunc opens a new connection to the broker.
type DialFunc func(ctx context.Context) (Conn, error)

type Client struct {
	ID                string
	Topic             string
	Timeout           time.Duration
	HeartbeatInterval time.Duration
	RetryDelay        time.Duration
	Username          string // MQTT broker username (optional)
	Password          string // MQTT broker password (optional, requires Username)
	Logger            *slog.Logger

	packetID uint16
}

func (c *Client) setDefaults() {
	if c.ID == "" {
		c.ID = "picoweather"
	}
	if c.Topic == "" {
		c.Topic = "picoweather/telemetry"
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Run connects to the broker and publishes every snapshot received on
// snapshots as JSON. Dial and session failures are logged and retried after
// RetryDelay. Run returns ctx.Err() once ctx is done.
func (c *Client) Run(ctx context.Context, dial DialFunc, snapshots <-chan telemetry.Snapshot) error {
	c.setDefaults()

	cfg := mqtt.ClientConfig{
		Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, 4096)},
		OnPub: func(pubHead mqtt.Header, varPub mqtt.VariablesPublish, r io.Reader) error {
			c.Logger.Info("mqtt:received", slog.String("topic", string(varPub.TopicName)))
			return nil
		},
	}
	var varconn mqtt.VariablesConnect
	varconn.SetDefaultMQTT([]byte(c.ID))
	if c.Username != "" {
		varconn.Username = []byte(c.Username)
		if c.Password != "" {
			varconn.Password = []byte(c.Password)
		}
	}
	client := mqtt.NewClient(cfg)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := dial(ctx)
		if err != nil {
			c.Logger.Error("mqtt:dial-failed", slog.String("err", err.Error()))
		} else {
			err = c.session(ctx, client, conn, &varconn, snapshots)
			conn.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Logger.Error("mqtt:disconnected", slog.String("reason", err.Error()))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.RetryDelay):
		}
	}
}

func (c *Client) session(ctx context.Context, client *mqtt.Client, conn Conn, varconn *mqtt.VariablesConnect, snapshots <-chan telemetry.Snapshot) error {
	c.Logger.Info("mqtt:connecting")
	conn.SetDeadline(time.Now().Add(c.Timeout))
	err := client.StartConnect(conn, varconn)
	if err != nil {
		return errors.New("start connect: " + err.Error())
	}
	retries := 50
	for retries > 0 && !client.IsConnected() {
		err = client.HandleNext()
		if err != nil {
			c.Logger.Debug("mqtt:handle-next", slog.String("err", err.Error()))
			time.Sleep(100 * time.Millisecond)
		}
		retries--
	}
	if !client.IsConnected() {
		if cerr := client.Err(); cerr != nil {
			return errors.New("connect: " + cerr.Error())
		}
		return errors.New("connect: timed out")
	}
	c.Logger.Info("mqtt:connected")

	pubVar := mqtt.VariablesPublish{TopicName: []byte(c.Topic)}
	heartbeat := time.NewTicker(c.HeartbeatInterval)
	defer heartbeat.Stop()
	for client.IsConnected() {
		select {
		case <-ctx.Done():
			conn.SetDeadline(time.Now().Add(c.Timeout))
			client.Disconnect(errors.New("shutting down"))
			return ctx.Err()

		case snap := <-snapshots:
			payload, err := json.Marshal(snap)
			if err != nil {
				c.Logger.Error("mqtt:marshal-failed", slog.String("err", err.Error()))
				continue
			}
			conn.SetDeadline(time.Now().Add(c.Timeout))
			c.packetID++
			pubVar.PacketIdentifier = c.packetID
			err = client.PublishPayload(pubFlags, pubVar, payload)
			if err != nil {
				return errors.New("publish: " + err.Error())
			}
			c.Logger.Debug("mqtt:published", slog.Uint64("seq", uint64(snap.Seq)))

		case <-heartbeat.C:
			conn.SetDeadline(time.Now().Add(c.Timeout))
			if err := client.StartPing(); err != nil {
				return errors.New("ping: " + err.Error())
			}
			if err := client.HandleNext(); err != nil {
				return errors.New("ping response: " + err.Error())
			}
		}
	}
	if err := client.Err(); err != nil {
		return err
	}
	return errors.New("connection lost")
}
