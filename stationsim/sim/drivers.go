package sim

import (
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/harveysanders/picoweather/weatherstation/telemetry"
)

// Display is a display.Driver that logs each presented frame. Lines are
// keyed by their y coordinate and emitted top to bottom.
type Display struct {
	log   *slog.Logger
	mu    sync.Mutex
	lines []string
	last  string
}

func NewDisplay(logger *slog.Logger) *Display {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Display{log: logger}
}

func (d *Display) Clear() {
	d.mu.Lock()
	d.lines = d.lines[:0]
	d.mu.Unlock()
}

func (d *Display) DrawLine(text string, x, y int16) {
	d.mu.Lock()
	d.lines = append(d.lines, text)
	d.mu.Unlock()
}

func (d *Display) Present() error {
	d.mu.Lock()
	d.last = strings.Join(d.lines, " | ")
	frame := d.last
	d.mu.Unlock()
	d.log.Info("display:frame", slog.String("text", frame))
	return nil
}

// Frame is the last presented frame, lines joined with " | ".
func (d *Display) Frame() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// LED is a led.Driver that logs color changes.
type LED struct {
	log   *slog.Logger
	mu    sync.Mutex
	color telemetry.Color
}

func NewLED(logger *slog.Logger) *LED {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LED{log: logger}
}

func (l *LED) SetColor(c telemetry.Color) error {
	l.mu.Lock()
	l.color = c
	l.mu.Unlock()
	l.log.Info("led:color", slog.Int("r", int(c.R)), slog.Int("g", int(c.G)), slog.Int("b", int(c.B)))
	return nil
}

func (l *LED) Color() telemetry.Color {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.color
}
