//go:build tinygo

package display

import (
	"errors"
	"machine"

	"tinygo.org/x/drivers/hd44780i2c"
)

// CharLCD drives a 16x2 HD44780 behind a PCF8574 I2C backpack. Rows are
// addressed directly, so use it with Config{Cols: 16, Rows: 2, LineHeight: 1}.
type CharLCD struct {
	device  hd44780i2c.Device
	columns int
}

// NewCharLCD takes a preconfigured I2C peripheral and initializes the
// HD44780 on the first of the common addresses (0x27, 0x3F).
func NewCharLCD(i2c *machine.I2C) (*CharLCD, error) {
	addrs := []uint8{0x27, 0x3F}
	for _, a := range addrs {
		dev := hd44780i2c.New(i2c, a)
		err := dev.Configure(hd44780i2c.Config{
			Width:  16,
			Height: 2,
		})
		if err != nil {
			continue
		}
		return &CharLCD{device: dev, columns: 16}, nil
	}
	return nil, errors.New("LCD not found on addresses: 0x27, 0x3f")
}

func (c *CharLCD) Clear() { c.device.ClearDisplay() }

func (c *CharLCD) DrawLine(text string, x, y int16) {
	c.device.SetCursor(uint8(x), uint8(y))
	b := []byte(text)
	// The controller wraps into the next row instead of clipping.
	if room := max(c.columns-int(x), 0); len(b) > room {
		b = b[:room]
	}
	c.device.Print(b)
}

func (c *CharLCD) Present() error { return nil }
