// Package pwm abstracts a single PWM output driving a hobby servo.
package pwm

import (
	"periph.io/x/periph/conn/physic"
)

// Channel is one PWM output bound to a physical pin. Duty is expressed as a
// percentage of the period (0-100).
type Channel interface {
	// Start configures the pin as an output and begins emitting at 0% duty.
	Start(freq physic.Frequency) error
	SetDuty(percent float64) error
	// Stop halts emission and releases the pin.
	Stop() error
	Name() string
}

func clampPercent(percent float64) float64 {
	if percent < 0 {
		return 0
	} else if percent > 100 {
		return 100
	}
	return percent
}
