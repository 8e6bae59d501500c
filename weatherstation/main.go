//go:build tinygo

// Command weatherstation is the Pico W firmware: it samples a DHT11, shows
// the reading on an I2C display, drives an RGB LED and serves a small HTTP
// interface over WiFi.
package main

import (
	"context"
	"log/slog"
	"machine"
	"time"

	"tinygo.org/x/drivers/dht"

	"github.com/harveysanders/picoweather/weatherstation/display"
	"github.com/harveysanders/picoweather/weatherstation/httpd"
	"github.com/harveysanders/picoweather/weatherstation/led"
	"github.com/harveysanders/picoweather/weatherstation/mqtt"
	"github.com/harveysanders/picoweather/weatherstation/telemetry"
	"github.com/harveysanders/picoweather/weatherstation/weather"
	"github.com/harveysanders/picoweather/weatherstation/wifi"
)

// Set at link time, e.g.
//
//	tinygo flash -target=pico-w -ldflags="-X main.ssid=home -X main.pass=secret" ./weatherstation
var (
	ssid        string
	pass        string
	apSSID      string // broadcast fallback, empty disables it
	apPass      string
	mqttAddr    string // host:port, empty disables publishing
	displayKind = "oled"     // oled or lcd
	ledKind     = "neopixel" // neopixel or pwm
)

const (
	hostname       = "picoweather"
	connectTimeout = 10 * time.Second
	samplePeriod   = 2 * time.Second
	httpPort       = 80
	tcpBufSize     = 2030 // MTU - ethhdr - iphdr - tcphdr
	maxRequest     = 1024
)

// Wiring. GP8/GP9 are I2C0 SDA/SCL, GP14/GP15 share PWM slice 7.
const (
	pinSDA   = machine.GP8
	pinSCL   = machine.GP9
	pinDHT   = machine.GP4
	pinPixel = machine.GP22
)

func main() {
	// Give the serial monitor a moment to attach.
	time.Sleep(2 * time.Second)
	logger := slog.New(slog.NewTextHandler(machine.Serial, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	ctx := context.Background()

	err := machine.I2C0.Configure(machine.I2CConfig{
		SDA: pinSDA,
		SCL: pinSCL,
	})
	if err != nil {
		printErrForever(logger, "configure I2C", slog.Any("reason", err))
	}

	drv, dispCfg, err := configureDisplay(machine.I2C0)
	if err != nil {
		printErrForever(logger, "configure display", slog.Any("reason", err))
	}
	renderer := display.NewRenderer(drv, dispCfg, logger)
	go renderer.Run(ctx)
	renderer.ShowMessage("Connecting to " + ssid)

	actuator, err := configureLED()
	if err != nil {
		printErrForever(logger, "configure LED", slog.Any("reason", err))
	}

	state := telemetry.NewState()
	led.Apply(actuator, state.Color(), logger)

	radio, err := wifi.NewRadio(wifi.DefaultWifiConfig(), wifi.StackConfig{
		Hostname:    hostname,
		MaxTCPPorts: 2,
		APAddr:      wifi.DefaultAPAddr,
	}, logger)
	if err != nil {
		printErrForever(logger, "wifi init", slog.Any("reason", err))
	}
	assoc := wifi.New(radio, wifi.Config{}, logger)
	for _, ap := range assoc.Scan() {
		logger.Info("wifi:network", slog.String("ssid", ap.SSID), slog.Int("rssi", int(ap.RSSI)))
	}

	addr, err := assoc.Connect(ctx, ssid, pass, connectTimeout)
	if err != nil {
		if apSSID == "" {
			printErrForever(logger, "wifi connect", slog.Any("reason", err))
		}
		logger.Warn("wifi:fallback", slog.String("reason", err.Error()))
		addr, err = assoc.EnableBroadcast(apSSID, apPass)
		if err != nil {
			printErrForever(logger, "wifi broadcast", slog.Any("reason", err))
		}
	}
	logger.Info("wifi:ready", slog.String("addr", addr.String()))
	renderer.ShowMessage("IP: " + addr.String())

	// The broker is only reachable through the joined network.
	publish := mqttAddr != "" && assoc.State() == wifi.Associated
	var mqttSnaps chan telemetry.Snapshot
	listeners := []weather.Listener{func(s telemetry.Snapshot) { renderer.ShowStatus(s) }}
	if publish {
		mqttSnaps = make(chan telemetry.Snapshot, 4)
		listeners = append(listeners, weather.Forward(mqttSnaps))
	}
	sensor := weather.NewDHT(pinDHT, dht.DHT11)
	sampler := weather.New(sensor, state, weather.Config{Period: samplePeriod}, logger, listeners...)
	go sampler.Run(ctx)

	if radio.Stack() == nil {
		printErrForever(logger, "wifi stack", slog.String("reason", "no IP stack"))
	}
	stack := radio.Stack().LnetoStack()
	if publish {
		dial, err := mqtt.LnetoDialer(stack, mqttAddr, tcpBufSize, logger)
		if err != nil {
			logger.Error("mqtt:disabled", slog.String("reason", err.Error()))
		} else {
			c := &mqtt.Client{ID: hostname, Logger: logger}
			go c.Run(ctx, dial, mqttSnaps)
		}
	}

	l, err := httpd.NewTCPListener(stack, httpPort, tcpBufSize, logger)
	if err != nil {
		printErrForever(logger, "http listen", slog.Any("reason", err))
	}
	srv := httpd.NewServer(state, renderer, actuator, httpd.Config{MaxRequestBytes: maxRequest}, logger)
	logger.Info("httpd:serving", slog.String("addr", addr.String()), slog.Int("port", httpPort))
	err = srv.Serve(ctx, l)
	printErrForever(logger, "http serve", slog.Any("reason", err))
}

func configureDisplay(bus *machine.I2C) (display.Driver, display.Config, error) {
	if displayKind == "lcd" {
		lcd, err := display.NewCharLCD(bus)
		return lcd, display.Config{Cols: 16, Rows: 2, LineHeight: 1}, err
	}
	return display.NewOLED(bus, display.OLEDAddress), display.Config{}, nil
}

func configureLED() (led.Driver, error) {
	if ledKind == "pwm" {
		return led.NewPWMRGB(
			led.PWMPin{PWM: machine.PWM7, Pin: machine.GP14},
			led.PWMPin{PWM: machine.PWM7, Pin: machine.GP15},
			led.PWMPin{PWM: machine.PWM6, Pin: machine.GP13},
		)
	}
	return led.NewNeoPixel(pinPixel), nil
}

// printErrForever logs msg once per second. It blocks forever.
func printErrForever(logger *slog.Logger, msg string, args ...any) {
	for {
		logger.Error(msg, args...)
		time.Sleep(time.Second)
	}
}
