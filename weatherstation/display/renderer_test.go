package display

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/harveysanders/picoweather/weatherstation/telemetry"
)

type drawnLine struct {
	text string
	x, y int16
}

// fakeDriver records every presented frame.
type fakeDriver struct {
	mu        sync.Mutex
	cur       []drawnLine
	frames    [][]drawnLine
	clears    int
	presented chan struct{}
	err       error
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{presented: make(chan struct{}, 16)}
}

func (f *fakeDriver) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	f.cur = nil
}

func (f *fakeDriver) DrawLine(text string, x, y int16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cur = append(f.cur, drawnLine{text, x, y})
}

func (f *fakeDriver) Present() error {
	f.mu.Lock()
	f.frames = append(f.frames, f.cur)
	f.mu.Unlock()
	f.presented <- struct{}{}
	return f.err
}

func (f *fakeDriver) last() []drawnLine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return nil
	}
	return f.frames[len(f.frames)-1]
}

func (f *fakeDriver) waitFrame(t *testing.T) []drawnLine {
	t.Helper()
	select {
	case <-f.presented:
		return f.last()
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for a frame")
		return nil
	}
}

func TestRenderClearsAndOffsetsRows(t *testing.T) {
	drv := newFakeDriver()
	r := NewRenderer(drv, Config{}, nil)

	if err := r.Render("Air is dry drink water please"); err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := drv.waitFrame(t)
	want := []drawnLine{
		{"Air is dry drink", 5, 0},
		{"water please", 5, 16},
	}
	if len(got) != len(want) {
		t.Fatalf("drew %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if drv.clears != 1 {
		t.Fatalf("clears=%d want 1", drv.clears)
	}
}

func TestRenderPropagatesPresentError(t *testing.T) {
	drv := newFakeDriver()
	drv.err = errors.New("i2c nack")
	r := NewRenderer(drv, Config{}, nil)
	if err := r.Render("x"); err == nil {
		t.Fatal("expected present error")
	}
}

func TestCharLCDConfigKeepsZeroX(t *testing.T) {
	r := NewRenderer(newFakeDriver(), Config{Cols: 16, Rows: 2, LineHeight: 1}, nil)
	cfg := r.Config()
	if cfg.X != 0 || cfg.LineHeight != 1 || cfg.Rows != 2 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestRunMessageHoldsOffStatus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	drv := newFakeDriver()
	r := NewRenderer(drv, Config{MessageHold: 50 * time.Millisecond}, nil)
	go r.Run(ctx)

	r.ShowStatus(telemetry.Snapshot{Alert: telemetry.Unknown})
	if got := drv.waitFrame(t); got[0].text != "Temp: N/A" {
		t.Fatalf("first frame %v, want status", got)
	}

	r.ShowMessage("hello world")
	if got := drv.waitFrame(t); len(got) != 1 || got[0].text != "hello world" {
		t.Fatalf("message frame %v", got)
	}

	// Suppressed until the hold expires, then drawn.
	start := time.Now()
	r.ShowStatus(telemetry.Snapshot{Temperature: 21.5, Humidity: 40, Present: true, Alert: telemetry.Normal})
	got := drv.waitFrame(t)
	if time.Since(start) < 30*time.Millisecond {
		t.Fatalf("status drawn during message hold")
	}
	if got[0].text != "Temp: 21.5C" || got[1].text != "Humidity: 40.0%" {
		t.Fatalf("status frame %v", got)
	}
}

func TestShowMessageDropsWhenQueueFull(t *testing.T) {
	r := NewRenderer(newFakeDriver(), Config{QueueSize: 1}, nil)
	if !r.ShowMessage("a") {
		t.Fatal("first send dropped")
	}
	if r.ShowMessage("b") {
		t.Fatal("second send should be dropped while nothing drains the queue")
	}
}
