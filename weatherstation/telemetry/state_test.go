package telemetry

import (
	"encoding/json"
	"sync"
	"testing"
)

func TestNewStateDefaults(t *testing.T) {
	s := NewState()
	snap := s.Snapshot()
	if snap.Present || snap.Alert != Unknown {
		t.Fatalf("initial snapshot %+v, want absent/Unknown", snap)
	}
	if c := s.Color(); c != (Color{}) {
		t.Fatalf("initial color %v, want zero", c)
	}
}

func TestAbsentIffUnknown(t *testing.T) {
	s := NewState()

	snap := s.SetReading(22, 50)
	if !snap.Present || snap.Alert == Unknown {
		t.Fatalf("present reading gave %+v", snap)
	}

	snap = s.MarkAbsent()
	if snap.Present || snap.Alert != Unknown {
		t.Fatalf("absent reading gave %+v", snap)
	}
	if snap.Temperature != 0 || snap.Humidity != 0 {
		t.Fatalf("absent reading kept stale values %+v", snap)
	}
	if snap.Seq != 2 {
		t.Fatalf("Seq=%d want 2", snap.Seq)
	}
}

func TestSnapshotJSON(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want map[string]any
	}{
		{
			name: "absent",
			snap: Snapshot{Alert: Unknown},
			want: map[string]any{"temperature": nil, "humidity": nil, "alert": "Unknown"},
		},
		{
			name: "present",
			snap: Snapshot{Temperature: 21.5, Humidity: 40, Present: true, Alert: Normal},
			want: map[string]any{"temperature": 21.5, "humidity": 40.0, "alert": "Normal"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.snap)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var got map[string]any
			if err := json.Unmarshal(b, &got); err != nil {
				t.Fatalf("unmarshal %s: %v", b, err)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Fatalf("%s: %s=%v want %v (body %s)", tt.name, k, got[k], v, b)
				}
			}
			if len(got) != len(tt.want) {
				t.Fatalf("unexpected keys in %s", b)
			}
		})
	}
}

func TestConcurrentReadersSeeConsistentGroups(t *testing.T) {
	s := NewState()
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 5000; i++ {
			switch i % 3 {
			case 0:
				s.SetReading(35, 20)
			case 1:
				s.SetReading(20, 50)
			default:
				s.MarkAbsent()
			}
			s.SetColor(ClampColor(i, -i, i*7))
		}
		close(stop)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := s.Snapshot()
				if snap.Present {
					if want := Classify(snap.Temperature, snap.Humidity); snap.Alert != want {
						t.Errorf("torn read: %+v, alert should be %v", snap, want)
						return
					}
				} else if snap.Alert != Unknown || snap.Temperature != 0 || snap.Humidity != 0 {
					t.Errorf("torn absent read: %+v", snap)
					return
				}
				_ = s.Color()
			}
		}()
	}
	wg.Wait()
}
