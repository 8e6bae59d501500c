// Package telemetry holds the station's shared state: the latest sensor
// reading with its derived alert, and the last accepted actuator color.
//
// State is the only value shared between the sampler and the request server.
// Each field group is read and written under one lock acquisition, so a
// reader never observes a temperature paired with a stale alert. Callers do
// all driver I/O before calling into State; no method blocks while holding
// the lock.
package telemetry

import (
	"encoding/json"
	"sync"
)

// Snapshot is a consistent copy of the reading group at one instant.
// Present is false when the last sample failed; Temperature and Humidity are
// then zero and Alert is Unknown.
type Snapshot struct {
	Temperature float32
	Humidity    float32
	Present     bool
	Alert       Alert
	Seq         uint32 // Incremented on every sampler update.
}

type snapshotJSON struct {
	Temperature *float32 `json:"temperature"`
	Humidity    *float32 `json:"humidity"`
	Alert       string   `json:"alert"`
}

// MarshalJSON encodes the snapshot as
// {"temperature": <num|null>, "humidity": <num|null>, "alert": "<name>"}.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	v := snapshotJSON{Alert: s.Alert.String()}
	if s.Present {
		t, h := s.Temperature, s.Humidity
		v.Temperature = &t
		v.Humidity = &h
	}
	return json.Marshal(v)
}

// State is the shared telemetry record. The zero value is not usable; call
// NewState.
type State struct {
	mu    sync.RWMutex
	snap  Snapshot
	color Color
}

// NewState returns a State with no reading (Unknown) and color (0,0,0).
func NewState() *State {
	return &State{snap: Snapshot{Alert: Unknown}}
}

// SetReading stores a successful reading and its classification as one
// update.
func (s *State) SetReading(temp, hum float32) Snapshot {
	alert := Classify(temp, hum)
	s.mu.Lock()
	s.snap = Snapshot{
		Temperature: temp,
		Humidity:    hum,
		Present:     true,
		Alert:       alert,
		Seq:         s.snap.Seq + 1,
	}
	snap := s.snap
	s.mu.Unlock()
	return snap
}

// MarkAbsent records a failed sample: both values absent, alert Unknown.
func (s *State) MarkAbsent() Snapshot {
	s.mu.Lock()
	s.snap = Snapshot{Alert: Unknown, Seq: s.snap.Seq + 1}
	snap := s.snap
	s.mu.Unlock()
	return snap
}

// Snapshot returns the current reading group.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// SetColor stores the actuator color.
func (s *State) SetColor(c Color) {
	s.mu.Lock()
	s.color = c
	s.mu.Unlock()
}

// Color returns the last accepted actuator color.
func (s *State) Color() Color {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.color
}
