// Package wifi brings the radio from unassociated to serving-ready.
//
// Association is a small state machine over a radio Interface:
//
//	Idle -> Scanning -> Idle          (Scan)
//	Idle|Failed -> Connecting -> Associated|Failed   (Connect)
//
// Associated and Failed end a connect attempt. There is no background
// reconnect; a caller that wants another attempt calls Connect again.
// Broadcast (access point) mode is tracked separately and does not depend on
// the station state.
package wifi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"github.com/harveysanders/picoweather/weatherstation/errcode"
)

// State of the station connection.
type State uint8

const (
	Idle State = iota
	Scanning
	Connecting
	Associated
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Connecting:
		return "connecting"
	case Associated:
		return "associated"
	case Failed:
		return "failed"
	default:
		return "invalid"
	}
}

// BroadcastMode reports whether the device is acting as its own access point.
type BroadcastMode uint8

const (
	BroadcastOff BroadcastMode = iota
	BroadcastOn
)

// AccessPoint is one scan result.
type AccessPoint struct {
	SSID string
	RSSI int16 // dBm
}

// Interface is the radio. Associate is a single join attempt that should
// give up within timeout; it returns the assigned address or an error if the
// station is not (yet) associated.
type Interface interface {
	Scan() ([]AccessPoint, error)
	Associate(ssid, password string, timeout time.Duration) (netip.Addr, error)
	BroadcastOn(ssid, password string) (netip.Addr, error)
}

// Config for an Association. PollInterval defaults to one second.
type Config struct {
	PollInterval time.Duration
}

// Association tracks the station and broadcast state of one radio.
type Association struct {
	iface Interface
	cfg   Config
	log   *slog.Logger

	mu        sync.Mutex
	state     State
	addr      netip.Addr
	broadcast BroadcastMode
	apAddr    netip.Addr
}

func New(iface Interface, cfg Config, logger *slog.Logger) *Association {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Association{iface: iface, cfg: cfg, log: logger}
}

func (a *Association) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Addr is the station address; valid only once Associated.
func (a *Association) Addr() netip.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

func (a *Association) Broadcast() BroadcastMode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.broadcast
}

// BroadcastAddr is the access point address; valid only while BroadcastOn.
func (a *Association) BroadcastAddr() netip.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.apAddr
}

func (a *Association) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Scan lists visible access points. It is purely observational: radio errors
// are logged and reported as an empty result.
func (a *Association) Scan() []AccessPoint {
	a.mu.Lock()
	wasIdle := a.state == Idle
	if wasIdle {
		a.state = Scanning
	}
	a.mu.Unlock()
	if wasIdle {
		defer a.setState(Idle)
	}

	aps, err := a.iface.Scan()
	if err != nil {
		a.log.Warn("wifi:scan-failed", slog.String("err", err.Error()))
		return nil
	}
	return aps
}

// Connect joins ssid, polling the radio once per PollInterval until it
// associates or timeout elapses. No attempt starts after the deadline and
// each attempt is bounded by the time left. On timeout the state becomes Failed and the
// error is an errcode.AssociationTimeout. Connect is only valid from Idle or
// Failed; any other state returns errcode.Busy.
func (a *Association) Connect(ctx context.Context, ssid, password string, timeout time.Duration) (netip.Addr, error) {
	const op = "wifi.Connect"
	a.mu.Lock()
	switch a.state {
	case Idle, Failed:
		a.state = Connecting
		a.addr = netip.Addr{}
	default:
		st := a.state
		a.mu.Unlock()
		return netip.Addr{}, &errcode.E{C: errcode.Busy, Op: op, Msg: "state " + st.String()}
	}
	a.mu.Unlock()

	a.log.Info("wifi:connecting", slog.String("ssid", ssid), slog.Int("passlen", len(password)))
	deadline := time.Now().Add(timeout)
	lastErr := errors.New("timeout elapsed before first attempt")
	for attempt := 1; ; attempt++ {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			a.setState(Failed)
			a.log.Error("wifi:association-timeout", slog.String("ssid", ssid), slog.Int("attempts", attempt-1))
			return netip.Addr{}, errcode.Wrap(errcode.AssociationTimeout, op, lastErr)
		}
		addr, err := a.iface.Associate(ssid, password, remaining)
		if err == nil {
			a.mu.Lock()
			a.state = Associated
			a.addr = addr
			a.mu.Unlock()
			a.log.Info("wifi:associated", slog.String("addr", addr.String()), slog.Int("attempts", attempt))
			return addr, nil
		}
		lastErr = err
		a.log.Debug("wifi:not-associated", slog.Int("attempt", attempt), slog.String("err", err.Error()))

		remaining = time.Until(deadline)
		if remaining <= 0 {
			continue
		}
		wait := time.NewTimer(min(a.cfg.PollInterval, remaining))
		select {
		case <-ctx.Done():
			wait.Stop()
			a.setState(Failed)
			return netip.Addr{}, errcode.Wrap(errcode.AssociationTimeout, op, ctx.Err())
		case <-wait.C:
		}
	}
}

// EnableBroadcast starts access point mode. It does not touch the station
// state. Failures are reported as errcode.BroadcastSetup.
func (a *Association) EnableBroadcast(ssid, password string) (netip.Addr, error) {
	addr, err := a.iface.BroadcastOn(ssid, password)
	if err != nil {
		a.log.Error("wifi:broadcast-failed", slog.String("ssid", ssid), slog.String("err", err.Error()))
		return netip.Addr{}, errcode.Wrap(errcode.BroadcastSetup, "wifi.EnableBroadcast", err)
	}
	a.mu.Lock()
	a.broadcast = BroadcastOn
	a.apAddr = addr
	a.mu.Unlock()
	a.log.Info("wifi:broadcast-on", slog.String("ssid", ssid), slog.String("addr", addr.String()))
	return addr, nil
}
