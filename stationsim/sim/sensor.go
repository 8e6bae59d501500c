// Package sim provides simulated drivers so the station packages can run on a
// development host.
package sim

import (
	"errors"
	"math/rand/v2"

	"github.com/harveysanders/picoweather/weatherstation/telemetry"
)

var ErrSensorTimeout = errors.New("sim: sensor read timeout")

// Sensor is a weather.Driver whose readings follow a bounded random walk.
// A fraction FaultRate of measurements fail.
type Sensor struct {
	FaultRate float64
	// Step bounds the per-sample change of temperature (°C); humidity moves
	// four times as far in percent.
	Step float32

	rng      *rand.Rand
	temp     float32
	humidity float32
}

// NewSensor starts the walk at 22 °C and 45 % with a seeded generator.
func NewSensor(seed uint64, faultRate float64) *Sensor {
	return &Sensor{
		FaultRate: faultRate,
		Step:      0.5,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		temp:      22,
		humidity:  45,
	}
}

func (s *Sensor) Measure() error {
	if s.FaultRate > 0 && s.rng.Float64() < s.FaultRate {
		return ErrSensorTimeout
	}
	s.temp = telemetry.Clamp(s.temp+s.delta(s.Step), -10, 50)
	s.humidity = telemetry.Clamp(s.humidity+s.delta(4*s.Step), 0, 100)
	return nil
}

// delta is uniform in [-step, step).
func (s *Sensor) delta(step float32) float32 {
	return (s.rng.Float32()*2 - 1) * step
}

func (s *Sensor) Temperature() float32 { return s.temp }
func (s *Sensor) Humidity() float32    { return s.humidity }
