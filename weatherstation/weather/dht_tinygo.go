//go:build tinygo

package weather

import (
	"machine"
	"time"

	"tinygo.org/x/drivers/dht"
)

// DHT wraps a DHT11/DHT22 temperature and humidity sensor with throttling.
// It limits queries to the sensor's minimum read interval; Measure calls
// inside the interval succeed without touching the bus and keep the last
// values.
type DHT struct {
	dev             dht.Device           // Underlying DHT device driver.
	temp            float32              // Last successfully read temperature value.
	humidity        float32              // Last successfully read humidity value.
	lastReadTime    time.Time            // Timestamp of the last successful sensor read.
	minReadInterval time.Duration        // Minimum time required between sensor reads.
	hasValidCache   bool                 // Indicates whether the cached values came from a good read.
	tempScale       dht.TemperatureScale // Always Celsius; alert thresholds are in °C.
}

func NewDHT(pin machine.Pin, typ dht.DeviceType) *DHT {
	return &DHT{
		dev:       dht.New(pin, typ),
		tempScale: dht.C,
		// DHT11 requires minimum 2s between reads
		minReadInterval: 2 * time.Second,
	}
}

// Measure reads the sensor. Any driver error invalidates the cached values,
// so a failing sensor never reports stale data.
func (s *DHT) Measure() error {
	now := time.Now()
	if s.hasValidCache && now.Sub(s.lastReadTime) < s.minReadInterval {
		return nil
	}

	err := s.dev.ReadMeasurements()
	if err != nil {
		s.hasValidCache = false
		return err
	}
	temp, err := s.dev.TemperatureFloat(s.tempScale)
	if err != nil {
		s.hasValidCache = false
		return err
	}
	hum, err := s.dev.HumidityFloat()
	if err != nil {
		s.hasValidCache = false
		return err
	}

	s.temp = temp
	s.humidity = hum
	s.lastReadTime = now
	s.hasValidCache = true
	return nil
}

func (s *DHT) Temperature() float32 { return s.temp }
func (s *DHT) Humidity() float32    { return s.humidity }
