// Package servo drives a single hobby servo from a PWM channel.
//
// The servo is open loop: SetAngle emits the pulse for the requested angle,
// holds it long enough for the horn to get there and then drops the duty
// cycle back to zero so the servo isn't held (and doesn't jitter or heat up)
// between commands.
package servo

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"periph.io/x/periph/conn/physic"

	"github.com/tigerbot-team/tigerbot/pantracker/pkg/pwm"
)

const (
	MinAngle = 0.0
	MaxAngle = 180.0

	DefaultFrequency  = 50 * physic.Hertz
	DefaultSettleTime = 500 * time.Millisecond
)

type State int

const (
	Uninitialized State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

type Config struct {
	Frequency  physic.Frequency
	SettleTime time.Duration
}

func DefaultConfig() Config {
	return Config{
		Frequency:  DefaultFrequency,
		SettleTime: DefaultSettleTime,
	}
}

// DutyCycle maps an angle in degrees to a duty cycle percentage. At 50Hz the
// 2%-12% range is the 0.4ms-2.4ms pulse most hobby servos accept.
func DutyCycle(angle float64) float64 {
	return 2 + angle/18
}

type Servo struct {
	mu     sync.Mutex
	ch     pwm.Channel
	cfg    Config
	state  State
	logger *zap.SugaredLogger

	sleep func(time.Duration)
}

func New(ch pwm.Channel, cfg Config, logger *zap.SugaredLogger) *Servo {
	if cfg.Frequency == 0 {
		cfg.Frequency = DefaultFrequency
	}
	return &Servo{
		ch:     ch,
		cfg:    cfg,
		logger: logger.Named("servo"),
		sleep:  time.Sleep,
	}
}

func (s *Servo) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start configures the pin and begins sending a 0% duty cycle. Calling it
// again reconfigures the pin.
func (s *Servo) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ch.Start(s.cfg.Frequency); err != nil {
		return &HardwareError{Op: "start", Pin: s.ch.Name(), Err: err}
	}
	s.state = Running
	s.logger.Infow("Start sending signal to the servo", "pin", s.ch.Name(), "frequency", s.cfg.Frequency)
	return nil
}

// SetAngle moves the servo to angle and blocks for the settle time. It is a
// logged no-op if the servo hasn't been started.
func (s *Servo) SetAngle(angle float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running {
		s.logger.Warnw(ErrNotStarted.Error(), "pin", s.ch.Name(), "state", s.state, "angle", angle)
		return nil
	}
	if math.IsNaN(angle) || angle < MinAngle || angle > MaxAngle {
		return errors.Wrapf(ErrInvalidAngle, "got %v", angle)
	}

	duty := DutyCycle(angle)
	s.logger.Debugw("Moving servo", "angle", angle, "duty", duty)
	if err := s.ch.SetDuty(duty); err != nil {
		return &HardwareError{Op: "set duty cycle", Pin: s.ch.Name(), Err: err}
	}
	s.sleep(s.cfg.SettleTime)
	if err := s.ch.SetDuty(0); err != nil {
		return &HardwareError{Op: "idle", Pin: s.ch.Name(), Err: err}
	}
	return nil
}

// Stop halts the signal and releases the pin. Only the first call after a
// Start does anything.
func (s *Servo) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running {
		return nil
	}
	s.state = Stopped
	err := multierr.Append(s.ch.SetDuty(0), s.ch.Stop())
	s.logger.Infow("Stop sending signal to the servo", "pin", s.ch.Name())
	if err != nil {
		return &HardwareError{Op: "stop", Pin: s.ch.Name(), Err: err}
	}
	return nil
}

// Run starts the servo, calls fn and always stops the servo afterwards, even
// if fn panics.
func Run(s *Servo, fn func(*Servo) error) (err error) {
	if err := s.Start(); err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, s.Stop())
	}()
	return fn(s)
}
