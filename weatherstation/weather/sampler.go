// Package weather samples the temperature/humidity sensor on a fixed period
// and publishes the results into the shared telemetry state.
package weather

import (
	"context"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/harveysanders/picoweather/weatherstation/errcode"
	"github.com/harveysanders/picoweather/weatherstation/telemetry"
)

// Driver is a two-phase temperature/humidity sensor. Temperature and
// Humidity are only meaningful after Measure returned nil.
type Driver interface {
	Measure() error
	Temperature() float32 // degrees Celsius
	Humidity() float32    // percent relative humidity
}

// Listener receives every snapshot the sampler publishes. It is called from
// the sampler goroutine and must not block.
type Listener func(telemetry.Snapshot)

// Forward returns a Listener that hands snapshots to ch, dropping them when
// ch is full.
func Forward(ch chan<- telemetry.Snapshot) Listener {
	return func(snap telemetry.Snapshot) {
		select {
		case ch <- snap:
		default:
		}
	}
}

// Config for the Sampler. Period defaults to 2 seconds, the DHT11's minimum
// sampling interval.
type Config struct {
	Period time.Duration
}

// Sampler reads the sensor and publishes into a telemetry.State.
type Sampler struct {
	drv       Driver
	state     *telemetry.State
	cfg       Config
	log       *slog.Logger
	listeners []Listener
}

func New(drv Driver, state *telemetry.State, cfg Config, logger *slog.Logger, listeners ...Listener) *Sampler {
	if cfg.Period <= 0 {
		cfg.Period = 2 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Sampler{
		drv:       drv,
		state:     state,
		cfg:       cfg,
		log:       logger,
		listeners: listeners,
	}
}

// SampleOnce takes one reading. A driver fault or a NaN/Inf value marks the telemetry absent
// (alert Unknown) and is returned as an errcode.SensorFault for logging; the
// state is updated either way and listeners always see the new snapshot.
func (s *Sampler) SampleOnce() (telemetry.Snapshot, error) {
	// Driver I/O happens before the state lock is taken.
	const op = "weather.SampleOnce"
	var temp, hum float32
	err := s.drv.Measure()
	if err == nil {
		temp, hum = s.drv.Temperature(), s.drv.Humidity()
		if !finite(temp) || !finite(hum) {
			err = &errcode.E{C: errcode.SensorFault, Op: op, Msg: "non-finite reading"}
		}
	} else {
		err = errcode.Wrap(errcode.SensorFault, op, err)
	}
	var snap telemetry.Snapshot
	if err != nil {
		snap = s.state.MarkAbsent()
	} else {
		snap = s.state.SetReading(temp, hum)
	}
	for _, l := range s.listeners {
		l(snap)
	}
	return snap, err
}

// Run samples immediately and then once per period until ctx is done. Each
// iteration is independent; a fault never stops the loop.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Period)
	defer ticker.Stop()
	for {
		snap, err := s.SampleOnce()
		if err != nil {
			s.log.Warn("weather:sample-failed", slog.String("err", err.Error()))
		} else {
			s.log.Debug("weather:sample",
				slog.Float64("temp", float64(snap.Temperature)),
				slog.Float64("humidity", float64(snap.Humidity)),
				slog.String("alert", snap.Alert.String()),
			)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
