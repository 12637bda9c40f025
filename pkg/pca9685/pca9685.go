// Package pca9685 drives servo outputs on a PCA9685 16-channel PWM board
// attached over i2c.
package pca9685

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"
	"periph.io/x/periph/conn/physic"

	"github.com/tigerbot-team/tigerbot/pantracker/pkg/pwm"
)

const (
	DefaultAddr = 0x40

	RegMode1 = 0x00

	// Each PWM output has two 16-bit (low byte first) registers.
	// First register is the on time, second is the off time.
	RegLEDBase = 0x06

	RegPreScale = 0xfe // Pre-scaler for PWM frequency.

	// Internal oscillator frequency.
	OscillatorHz = 25000000

	PWMMax = 4095

	NumChannels = 16
)

type device interface {
	WriteReg(reg byte, buf []byte) error
	Close() error
}

type PCA9685 struct {
	dev device
}

func New(deviceFile string) (*PCA9685, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, DefaultAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open PCA9685 on %s", deviceFile)
	}
	return &PCA9685{
		dev: dev,
	}, nil
}

// PreScale returns the pre-scaler register value for the given output
// frequency.
func PreScale(freq physic.Frequency) byte {
	hz := float64(freq) / float64(physic.Hertz)
	v := math.Round(OscillatorHz/(4096*hz)) - 1
	if v < 3 {
		// Hardware minimum.
		v = 3
	} else if v > 255 {
		v = 255
	}
	return byte(v)
}

func (p *PCA9685) Configure(freq physic.Frequency) (err error) {
	// Put device to sleep.
	err = p.dev.WriteReg(RegMode1, []byte{0x11})
	if err != nil {
		return
	}
	// Update pre-scaler; it can only be written while asleep.
	err = p.dev.WriteReg(RegPreScale, []byte{PreScale(freq)})
	if err != nil {
		return
	}
	// Trigger a reset
	err = p.dev.WriteReg(RegMode1, []byte{0x01})
	if err != nil {
		return
	}
	// Required delay after reset.
	time.Sleep(1 * time.Millisecond)
	// Enable.
	err = p.dev.WriteReg(RegMode1, []byte{0x81})
	return
}

// SetPWM sets the duty cycle of one port; value is the fraction of the period
// (0.0-1.0) the output is high.
func (p *PCA9685) SetPWM(port int, value float64) error {
	if port < 0 || port >= NumChannels {
		return errors.Errorf("PWM port out of range: %d", port)
	}
	if value < 0 {
		value = 0
	} else if value > 1 {
		value = 1
	}

	pwmValue := uint16(math.Round(PWMMax * value))
	addr := RegLEDBase + port*4

	return p.dev.WriteReg(byte(addr), []byte{0, 0, byte(pwmValue & 0xff), byte(pwmValue >> 8)})
}

func (p *PCA9685) Close() error {
	return p.dev.Close()
}

// Channel returns one port of the board as a pwm.Channel. Stopping the
// channel only turns the port off; the board stays open until Close so the
// channel can be started again.
func (p *PCA9685) Channel(port int) pwm.Channel {
	return &channel{board: p, port: port}
}

type channel struct {
	board *PCA9685
	port  int
}

func (c *channel) Name() string {
	return fmt.Sprintf("pca9685.%d", c.port)
}

func (c *channel) Start(freq physic.Frequency) error {
	if c.port < 0 || c.port >= NumChannels {
		return errors.Errorf("PWM port out of range: %d", c.port)
	}
	if err := c.board.Configure(freq); err != nil {
		return errors.Wrap(err, "failed to configure PCA9685")
	}
	return c.board.SetPWM(c.port, 0)
}

func (c *channel) SetDuty(percent float64) error {
	return c.board.SetPWM(c.port, percent/100)
}

func (c *channel) Stop() error {
	return c.board.SetPWM(c.port, 0)
}
