package led

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/harveysanders/picoweather/weatherstation/telemetry"
)

type fakeDriver struct {
	got telemetry.Color
	err error
}

func (f *fakeDriver) SetColor(c telemetry.Color) error {
	f.got = c
	return f.err
}

func TestApplyWritesColor(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	drv := &fakeDriver{}
	want := telemetry.Color{R: 10, G: 20, B: 30}

	if err := Apply(drv, want, logger); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if drv.got != want {
		t.Fatalf("driver got %v want %v", drv.got, want)
	}
	if buf.Len() != 0 {
		t.Fatalf("unexpected log output %q", buf.String())
	}
}

func TestApplyLogsDriverError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	errBus := errors.New("pio busy")
	drv := &fakeDriver{err: errBus}

	err := Apply(drv, telemetry.Color{R: 255}, logger)
	if !errors.Is(err, errBus) {
		t.Fatalf("err=%v want %v", err, errBus)
	}
	out := buf.String()
	if !strings.Contains(out, "led:set") || !strings.Contains(out, "pio busy") {
		t.Fatalf("log output %q does not report the failed write", out)
	}
}

func TestApplyNilDriver(t *testing.T) {
	if err := Apply(nil, telemetry.Color{}, nil); err != nil {
		t.Fatalf("Apply(nil)=%v", err)
	}
}
