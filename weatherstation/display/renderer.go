// Package display renders telemetry and user messages onto a small text
// screen.
//
// The Renderer owns the display driver; other goroutines hand it work
// through non-blocking calls:
//
//	r := display.NewRenderer(oled, display.Config{}, logger)
//	go r.Run(ctx)
//
//	r.ShowStatus(state.Snapshot()) // from the sampler
//	r.ShowMessage("hello")         // from the request server
package display

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/harveysanders/picoweather/weatherstation/telemetry"
)

// Driver is the display surface. Implementations do not need to be safe for
// concurrent use; only Renderer.Run calls them.
type Driver interface {
	// Clear blanks the whole drawing surface.
	Clear()
	// DrawLine draws text with its top-left corner at (x, y).
	DrawLine(text string, x, y int16)
	// Present pushes the drawn surface to the screen.
	Present() error
}

// Config describes the character grid. Zero fields take the defaults of the
// 128x64 OLED: 16 columns, 4 rows, 16 pixels per row and a 10 second message
// hold. X defaults to 5 only when LineHeight is also unset, so a character
// LCD can use X 0 with LineHeight 1. A negative MessageHold disables holding.
type Config struct {
	Cols        int
	Rows        int
	X           int16
	LineHeight  int16
	MessageHold time.Duration
	QueueSize   int
}

type frameKind uint8

const (
	frameStatus frameKind = iota
	frameMessage
)

type frame struct {
	kind frameKind
	text string
	snap telemetry.Snapshot
}

// Renderer draws status screens and messages.
type Renderer struct {
	drv    Driver
	cfg    Config
	log    *slog.Logger
	frames chan frame
}

// NewRenderer creates a Renderer for drv.
func NewRenderer(drv Driver, cfg Config, logger *slog.Logger) *Renderer {
	if cfg.Cols <= 0 {
		cfg.Cols = 16
	}
	if cfg.Rows <= 0 {
		cfg.Rows = 4
	}
	if cfg.X == 0 && cfg.LineHeight == 0 {
		cfg.X = 5
	}
	if cfg.LineHeight <= 0 {
		cfg.LineHeight = 16
	}
	if cfg.MessageHold == 0 {
		cfg.MessageHold = 10 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 4
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Renderer{
		drv:    drv,
		cfg:    cfg,
		log:    logger,
		frames: make(chan frame, cfg.QueueSize),
	}
}

// Config returns the effective configuration.
func (r *Renderer) Config() Config { return r.cfg }

// ShowStatus queues a status screen for snap. It reports false if the queue
// was full and the screen was dropped.
func (r *Renderer) ShowStatus(snap telemetry.Snapshot) bool {
	return r.send(frame{kind: frameStatus, snap: snap})
}

// ShowMessage queues msg for display. Status screens are suppressed for the
// configured hold after the message is drawn. It reports false if the queue
// was full and the message was dropped.
func (r *Renderer) ShowMessage(msg string) bool {
	return r.send(frame{kind: frameMessage, text: msg})
}

func (r *Renderer) send(f frame) bool {
	select {
	case r.frames <- f:
		return true
	default:
		r.log.Warn("display:queue-full")
		return false
	}
}

// Render clears the surface and draws text wrapped to the grid.
func (r *Renderer) Render(text string) error {
	return r.draw(Layout(text, r.cfg.Cols, r.cfg.Rows))
}

func (r *Renderer) draw(lines []string) error {
	r.drv.Clear()
	for i, line := range lines {
		if i >= r.cfg.Rows {
			break
		}
		r.drv.DrawLine(line, r.cfg.X, int16(i)*r.cfg.LineHeight)
	}
	return r.drv.Present()
}

// Run draws queued frames until ctx is done. Run should be called in a
// separate goroutine.
func (r *Renderer) Run(ctx context.Context) {
	hold := time.NewTimer(time.Hour)
	hold.Stop()
	defer hold.Stop()

	var (
		holding    bool
		pending    telemetry.Snapshot
		hasPending bool
	)
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-r.frames:
			switch f.kind {
			case frameMessage:
				if err := r.Render(f.text); err != nil {
					r.log.Error("display:present", slog.String("err", err.Error()))
				}
				if r.cfg.MessageHold > 0 {
					holding = true
					hold.Reset(r.cfg.MessageHold)
				}
			case frameStatus:
				if holding {
					pending, hasPending = f.snap, true
					continue
				}
				r.drawStatus(f.snap)
			}
		case <-hold.C:
			holding = false
			if hasPending {
				r.drawStatus(pending)
				hasPending = false
			}
		}
	}
}

func (r *Renderer) drawStatus(snap telemetry.Snapshot) {
	err := r.draw(StatusLines(snap, r.cfg.Cols, r.cfg.Rows))
	if err != nil {
		r.log.Error("display:present", slog.String("err", err.Error()))
	}
}
