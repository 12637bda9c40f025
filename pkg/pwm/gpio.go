package pwm

import (
	"github.com/pkg/errors"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"
)

// GPIO drives a PWM-capable header pin through periph. Pins are looked up by
// their registry name, e.g. "P1_11" for physical pin 11 on a Raspberry Pi
// header or "GPIO17" for the BCM number.
type GPIO struct {
	name string
	pin  gpio.PinIO
	freq physic.Frequency
}

func NewGPIO(name string) (*GPIO, error) {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to initialise periph host drivers")
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, errors.Errorf("no such GPIO pin %q", name)
	}
	return &GPIO{
		name: name,
		pin:  p,
	}, nil
}

func (g *GPIO) Name() string {
	return g.name
}

func (g *GPIO) Start(freq physic.Frequency) error {
	g.freq = freq
	if err := g.pin.PWM(0, freq); err != nil {
		return errors.Wrapf(err, "failed to start PWM on %s", g.name)
	}
	return nil
}

func (g *GPIO) SetDuty(percent float64) error {
	duty := gpio.Duty(clampPercent(percent) / 100 * float64(gpio.DutyMax))
	if err := g.pin.PWM(duty, g.freq); err != nil {
		return errors.Wrapf(err, "failed to set duty cycle on %s", g.name)
	}
	return nil
}

func (g *GPIO) Stop() error {
	if err := g.pin.Halt(); err != nil {
		return errors.Wrapf(err, "failed to halt %s", g.name)
	}
	// Leave the pin driven low rather than floating at whatever level the
	// PWM engine stopped on.
	return g.pin.Out(gpio.Low)
}

var _ Channel = (*GPIO)(nil)
