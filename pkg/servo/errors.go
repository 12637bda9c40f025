package servo

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidAngle is returned when a commanded angle is outside [MinAngle, MaxAngle].
	ErrInvalidAngle = errors.New("the angle must be between 0 and 180")
	// ErrNotStarted is reported (not returned) when SetAngle is called on a
	// servo that isn't sending a signal.
	ErrNotStarted = errors.New("the servo has not started sending signal")
)

// HardwareError wraps a failure of the underlying PWM channel. A servo that
// fails to start stays unusable; nothing is retried.
type HardwareError struct {
	Op  string
	Pin string
	Err error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("servo %s on %s: %v", e.Op, e.Pin, e.Err)
}

func (e *HardwareError) Unwrap() error {
	return e.Err
}
