//go:build tinygo

package led

import (
	"image/color"
	"machine"

	"tinygo.org/x/drivers/ws2812"

	"github.com/harveysanders/picoweather/weatherstation/telemetry"
)

// NeoPixel drives a single WS2812 pixel.
type NeoPixel struct {
	dev ws2812.Device
	buf [1]color.RGBA
}

func NewNeoPixel(pin machine.Pin) *NeoPixel {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &NeoPixel{dev: ws2812.New(pin)}
}

func (n *NeoPixel) SetColor(c telemetry.Color) error {
	n.buf[0] = color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
	return n.dev.WriteColors(n.buf[:])
}
