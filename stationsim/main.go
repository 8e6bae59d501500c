// Stationsim runs the weather station on a development host.
//
// It wires the firmware packages to simulated drivers: a random-walk sensor,
// a display and LED that log their output, and a radio with a configurable
// association delay. The HTTP interface is served on a real TCP listener and
// can be advertised over mDNS.
//
// Usage:
//
//	stationsim [flags]
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"os/signal"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/harveysanders/picoweather/stationsim/sim"
	"github.com/harveysanders/picoweather/weatherstation/display"
	"github.com/harveysanders/picoweather/weatherstation/httpd"
	"github.com/harveysanders/picoweather/weatherstation/led"
	"github.com/harveysanders/picoweather/weatherstation/mqtt"
	"github.com/harveysanders/picoweather/weatherstation/telemetry"
	"github.com/harveysanders/picoweather/weatherstation/weather"
	"github.com/harveysanders/picoweather/weatherstation/wifi"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	listenAddr   string
	ssid         string
	password     string
	apSSID       string
	assocDelay   time.Duration
	assocTimeout time.Duration
	unreachable  bool
	faultRate    float64
	samplePeriod time.Duration
	seed         uint64
	mqttBroker   string
	mdnsEnabled  bool
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "stationsim",
	Short: "Run the weather station against simulated hardware",
	Example: `  # Serve on :8080 with a 2 second association delay
  stationsim --assoc-delay 2s

  # Flaky sensor, publish to a local broker, advertise over mDNS
  stationsim --fault-rate 0.2 --mqtt localhost:1883 --mdns

  # Unreachable network with broadcast fallback
  stationsim --unreachable --ap-ssid picoweather-setup`,
	SilenceUsage: true,
	RunE:         runSim,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&listenAddr, "listen", ":8080", "HTTP listen address")
	f.StringVar(&ssid, "ssid", "home", "Network to associate with")
	f.StringVar(&password, "password", "", "Network password (empty accepts any)")
	f.StringVar(&apSSID, "ap-ssid", "", "Broadcast SSID used when association fails (disabled if empty)")
	f.DurationVar(&assocDelay, "assoc-delay", time.Second, "Simulated time until the radio associates")
	f.DurationVar(&assocTimeout, "assoc-timeout", 10*time.Second, "Association timeout")
	f.BoolVar(&unreachable, "unreachable", false, "Never associate")
	f.Float64Var(&faultRate, "fault-rate", 0, "Fraction of sensor reads that fail (0-1)")
	f.DurationVar(&samplePeriod, "sample-period", 2*time.Second, "Sensor sample period")
	f.Uint64Var(&seed, "seed", 1, "Sensor random walk seed")
	f.StringVar(&mqttBroker, "mqtt", "", "MQTT broker host:port (disabled if empty)")
	f.BoolVar(&mdnsEnabled, "mdns", false, "Advertise the HTTP interface as _http._tcp over mDNS")
	f.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	h := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
	})
	return slog.New(h).With("app", "stationsim"), nil
}

func runSim(cmd *cobra.Command, args []string) error {
	if faultRate < 0 || faultRate > 1 {
		return fmt.Errorf("--fault-rate must be within [0, 1], got %v", faultRate)
	}
	logger, err := newLogger(logLevel)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	renderer := display.NewRenderer(sim.NewDisplay(logger), display.Config{}, logger)
	go renderer.Run(ctx)
	actuator := sim.NewLED(logger)
	state := telemetry.NewState()
	led.Apply(actuator, state.Color(), logger)

	radio := &sim.Radio{
		Networks: []wifi.AccessPoint{
			{SSID: ssid, RSSI: -48},
			{SSID: "neighbour-5G", RSSI: -71},
		},
		Password:    password,
		Delay:       assocDelay,
		Unreachable: unreachable,
		Addr:        netip.MustParseAddr("192.168.1.50"),
		APAddr:      netip.MustParseAddr("192.168.4.1"),
	}
	assoc := wifi.New(radio, wifi.Config{}, logger)
	for _, ap := range assoc.Scan() {
		logger.Info("wifi:network", slog.String("ssid", ap.SSID), slog.Int("rssi", int(ap.RSSI)))
	}
	addr, err := assoc.Connect(ctx, ssid, password, assocTimeout)
	if err != nil {
		if apSSID == "" {
			return err
		}
		logger.Warn("wifi:fallback", slog.String("reason", err.Error()))
		if addr, err = assoc.EnableBroadcast(apSSID, ""); err != nil {
			return err
		}
	}
	renderer.ShowMessage("IP: " + addr.String())

	listeners := []weather.Listener{func(s telemetry.Snapshot) { renderer.ShowStatus(s) }}
	if mqttBroker != "" {
		snaps := make(chan telemetry.Snapshot, 4)
		listeners = append(listeners, weather.Forward(snaps))
		c := &mqtt.Client{ID: "stationsim", Logger: logger}
		go c.Run(ctx, mqtt.NetDialer(mqttBroker), snaps)
	}
	sampler := weather.New(sim.NewSensor(seed, faultRate), state, weather.Config{Period: samplePeriod}, logger, listeners...)
	go sampler.Run(ctx)

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddr, err)
	}
	context.AfterFunc(ctx, func() { ln.Close() })

	if mdnsEnabled {
		port := ln.Addr().(*net.TCPAddr).Port
		mdns, err := zeroconf.Register("picoweather", "_http._tcp", "local.", port,
			[]string{"path=/", "data=/data", "station=" + addr.String()}, nil)
		if err != nil {
			logger.Error("mdns:register-failed", slog.String("err", err.Error()))
		} else {
			defer mdns.Shutdown()
			logger.Info("mdns:registered", slog.String("service", "_http._tcp"), slog.Int("port", port))
		}
	}

	srv := httpd.NewServer(state, renderer, actuator, httpd.Config{}, logger)
	logger.Info("stationsim:listening", slog.String("addr", ln.Addr().String()))
	err = srv.Serve(ctx, httpd.NetListener{Listener: ln})
	if errors.Is(err, context.Canceled) {
		logger.Info("stationsim:shutdown")
		return nil
	}
	return err
}
