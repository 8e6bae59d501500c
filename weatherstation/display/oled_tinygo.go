//go:build tinygo

package display

import (
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/ssd1306"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

const (
	// OLEDAddress is the usual I2C address of 128x64 SSD1306 modules.
	OLEDAddress = 0x3C

	oledWidth  = 128
	oledHeight = 64
	// tinyfont draws from the baseline; DrawLine takes the top of the row.
	fontAscent = 7
)

var white = color.RGBA{255, 255, 255, 255}

// OLED drives a 128x64 SSD1306 over I2C.
type OLED struct {
	dev  *ssd1306.Device
	font tinyfont.Fonter
}

// NewOLED configures an SSD1306 on a preconfigured I2C bus.
func NewOLED(bus drivers.I2C, addr uint16) *OLED {
	if addr == 0 {
		addr = OLEDAddress
	}
	dev := ssd1306.NewI2C(bus)
	dev.Configure(ssd1306.Config{
		Address: addr,
		Width:   oledWidth,
		Height:  oledHeight,
	})
	dev.ClearDisplay()
	return &OLED{dev: dev, font: &proggy.TinySZ8pt7b}
}

func (o *OLED) Clear() { o.dev.ClearBuffer() }

func (o *OLED) DrawLine(text string, x, y int16) {
	tinyfont.WriteLine(o.dev, o.font, x, y+fontAscent, text, white)
}

func (o *OLED) Present() error { return o.dev.Display() }
