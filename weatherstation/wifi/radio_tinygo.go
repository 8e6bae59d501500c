//go:build tinygo

package wifi

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"github.com/soypat/cyw43439"
	"github.com/soypat/cyw43439/whd"
)

// Radio is the Pico W's CYW43439 as a wifi.Interface. Once joined, or in
// access point mode, it owns an lneto Stack whose packet pump runs in its own
// goroutine.
type Radio struct {
	dev    *cyw43439.Device
	cfg    StackConfig
	log    *slog.Logger
	start  time.Time
	joined bool
	stack  *Stack
}

// NewRadio powers up and initializes the CYW43439.
func NewRadio(wificfg cyw43439.Config, cfg StackConfig, logger *slog.Logger) (*Radio, error) {
	if cfg.Hostname == "" {
		return nil, errors.New("empty hostname")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	start := time.Now()
	dev := cyw43439.NewPicoWDevice()
	dev.SetLogger(logger)

	logger.Info("cyw43439:init")
	err := dev.Init(wificfg)
	if err != nil {
		return nil, errors.New("wifi init failed:" + err.Error())
	}
	logger.Info("cyw43439:ready", slog.Duration("duration", time.Since(start)))
	return &Radio{dev: dev, cfg: cfg, log: logger, start: start}, nil
}

// DefaultWifiConfig returns the default configuration for the CYW43439.
func DefaultWifiConfig() cyw43439.Config {
	return cyw43439.DefaultWifiConfig()
}

// Scan reports no networks. The driver exposes escan only as raw iovar
// writes and async event frames, so startup scan logging is empty on the
// device; an empty list is a valid scan result.
func (r *Radio) Scan() ([]AccessPoint, error) {
	return nil, nil
}

// Associate makes one join attempt and, once joined, brings up the IP stack
// with DHCP. Join and DHCP together return within timeout. A DHCP failure
// leaves the radio joined so the next call only retries addressing.
func (r *Radio) Associate(ssid, password string, timeout time.Duration) (netip.Addr, error) {
	deadline := time.Now().Add(timeout)
	if !r.joined {
		err := r.dev.WifiConnectTimeout(ssid, password, whd.CYW43_AUTH_WPA2_AES_PSK, timeout)
		if err != nil {
			return netip.Addr{}, errors.New("join:" + err.Error())
		}
		r.joined = true
		mac, _ := r.dev.HardwareAddr6()
		r.log.Info("cyw43439:joined", slog.String("mac", net.HardwareAddr(mac[:]).String()))
	}
	if err := r.startStack(); err != nil {
		return netip.Addr{}, err
	}
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return netip.Addr{}, errors.New("dhcp: out of time after join")
	}
	return r.stack.dhcp(r.cfg.RequestedAddr, remaining)
}

// BroadcastOn starts access point mode on APChannel and serves from the
// static APAddr. There is no DHCP server; clients configure an address in the
// same /24 themselves.
func (r *Radio) BroadcastOn(ssid, password string) (netip.Addr, error) {
	addr := r.cfg.APAddr
	if !addr.IsValid() {
		addr = DefaultAPAddr
	}
	channel := r.cfg.APChannel
	if channel == 0 {
		channel = 1
	}
	err := r.dev.StartAP(ssid, password, channel)
	if err != nil {
		return netip.Addr{}, errors.New("start ap:" + err.Error())
	}
	r.log.Info("cyw43439:ap-started", slog.String("ssid", ssid), slog.Int("channel", int(channel)))
	if err := r.startStack(); err != nil {
		return netip.Addr{}, err
	}
	if err := r.stack.setStatic(addr); err != nil {
		return netip.Addr{}, err
	}
	return addr, nil
}

// startStack creates the IP stack and its packet pump once.
func (r *Radio) startStack() error {
	if r.stack != nil {
		return nil
	}
	stack, err := newStack(r.dev, r.cfg, time.Since(r.start).Nanoseconds(), r.log)
	if err != nil {
		return err
	}
	r.stack = stack
	go stack.loopForever()
	return nil
}

// Stack returns the IP stack, or nil until a join or BroadcastOn succeeds.
func (r *Radio) Stack() *Stack {
	return r.stack
}
