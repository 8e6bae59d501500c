//go:build tinygo

package led

import (
	"errors"
	"machine"
	"time"

	"github.com/harveysanders/picoweather/weatherstation/telemetry"
)

// PWMGroup is the subset of a machine PWM slice used here (machine.PWM0..7).
type PWMGroup interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Set(channel uint8, value uint32)
	Top() uint32
}

type pwmChannel struct {
	pwm PWMGroup
	ch  uint8
}

// PWMRGB drives a discrete common-cathode RGB LED from three PWM pins.
type PWMRGB struct {
	r, g, b pwmChannel
}

// PWMPin pairs a pin with the PWM slice that drives it. GP14/GP15 are driven
// by PWM slice 7 on the RP2040/RP2350.
type PWMPin struct {
	PWM PWMGroup
	Pin machine.Pin
}

// NewPWMRGB configures the three channels at 500 Hz.
func NewPWMRGB(r, g, b PWMPin) (*PWMRGB, error) {
	var out PWMRGB
	for i, p := range []PWMPin{r, g, b} {
		err := p.PWM.Configure(machine.PWMConfig{
			Period: uint64(1*time.Second) / 500,
		})
		if err != nil {
			return nil, errors.New("could not configure PWM: " + err.Error())
		}
		ch, err := p.PWM.Channel(p.Pin)
		if err != nil {
			return nil, errors.New("could not get channel for pin: " + err.Error())
		}
		c := pwmChannel{pwm: p.PWM, ch: ch}
		switch i {
		case 0:
			out.r = c
		case 1:
			out.g = c
		default:
			out.b = c
		}
	}
	return &out, nil
}

func (p *PWMRGB) SetColor(c telemetry.Color) error {
	p.r.set(c.R)
	p.g.set(c.G)
	p.b.set(c.B)
	return nil
}

func (c pwmChannel) set(v uint8) {
	c.pwm.Set(c.ch, uint32(v)*c.pwm.Top()/255)
}
