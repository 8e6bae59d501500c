// Package led drives the station's RGB actuator.
package led

import (
	"log/slog"

	"github.com/harveysanders/picoweather/weatherstation/telemetry"
)

// Driver writes a color to the actuator. Channels arrive already clamped.
type Driver interface {
	SetColor(c telemetry.Color) error
}

// Apply writes c to drv and logs a failed write. A nil drv is a no-op.
func Apply(drv Driver, c telemetry.Color, logger *slog.Logger) error {
	if drv == nil {
		return nil
	}
	err := drv.SetColor(c)
	if err != nil && logger != nil {
		logger.Error("led:set",
			slog.Int("r", int(c.R)), slog.Int("g", int(c.G)), slog.Int("b", int(c.B)),
			slog.String("err", err.Error()),
		)
	}
	return err
}
