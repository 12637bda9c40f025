// Package tracking turns the offset between a detected object and the centre
// of the frame into pan corrections.
//
// The controller is a fixed-step proportional controller rather than a PID
// loop: any horizontal error outside the dead zone moves the pan servo by one
// step towards the object, after which the controller waits for the mount to
// move before the next frame is considered.
package tracking

import (
	"image"
	"math"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultThreshold  = 50.0
	DefaultStep       = 5.0
	DefaultCooldown   = 1 * time.Second
	DefaultStartAngle = 90.0

	MinAngle = 0.0
	MaxAngle = 180.0
)

// Mover is the servo the controller drives.
type Mover interface {
	SetAngle(angle float64) error
}

// Offset is the vector from an object's bounding box centre to the image
// centre, in pixels. A negative X means the object is right of centre.
type Offset struct {
	X, Y float64
}

// OffsetOf returns image centre - box centre for a frame of the given size.
func OffsetOf(frame image.Point, box image.Rectangle) Offset {
	cx, cy := float64(frame.X)/2, float64(frame.Y)/2
	bx := float64(box.Min.X+box.Max.X) / 2
	by := float64(box.Min.Y+box.Max.Y) / 2
	return Offset{X: cx - bx, Y: cy - by}
}

// PanState is the last angle the pan servo was commanded to.
type PanState struct {
	Angle float64
}

type Config struct {
	// Threshold is the dead zone half-width in pixels.
	Threshold float64
	// Step is the correction applied per frame, in degrees.
	Step     float64
	Cooldown time.Duration
}

func DefaultConfig() Config {
	return Config{
		Threshold: DefaultThreshold,
		Step:      DefaultStep,
		Cooldown:  DefaultCooldown,
	}
}

type Controller struct {
	servo  Mover
	state  *PanState
	cfg    Config
	logger *zap.SugaredLogger

	sleep func(time.Duration)
}

func New(servo Mover, state *PanState, cfg Config, logger *zap.SugaredLogger) *Controller {
	return &Controller{
		servo:  servo,
		state:  state,
		cfg:    cfg,
		logger: logger.Named("tracking"),
		sleep:  time.Sleep,
	}
}

func (c *Controller) Angle() float64 {
	return c.state.Angle
}

// Center commands the servo to angle and records it as the current pan angle.
func (c *Controller) Center(angle float64) error {
	angle = clamp(angle)
	if err := c.servo.SetAngle(angle); err != nil {
		return errors.Wrap(err, "failed to centre pan servo")
	}
	c.state.Angle = angle
	c.logger.Infow("Pan centred", "angle", angle)
	return nil
}

// OnOffset applies one correction for the given offset. It reports whether
// the servo was commanded; when it was, the call blocks for the cooldown.
// The vertical component is ignored: there is no tilt servo.
func (c *Controller) OnOffset(o Offset) (bool, error) {
	if math.Abs(o.X) <= c.cfg.Threshold {
		return false, nil
	}

	angle := c.state.Angle
	if o.X < 0 {
		// Object is right of centre: pan anticlockwise.
		angle += c.cfg.Step
	} else {
		angle -= c.cfg.Step
	}
	angle = clamp(angle)

	c.logger.Infow("Correcting pan", "offset_x", o.X, "from", c.state.Angle, "to", angle)
	if err := c.servo.SetAngle(angle); err != nil {
		return false, errors.Wrapf(err, "failed to pan to %v", angle)
	}
	c.state.Angle = angle
	c.sleep(c.cfg.Cooldown)
	return true, nil
}

// AtLimit reports whether the pan angle is at either end of its travel.
func (c *Controller) AtLimit() bool {
	return c.state.Angle <= MinAngle || c.state.Angle >= MaxAngle
}

func clamp(angle float64) float64 {
	return math.Min(math.Max(angle, MinAngle), MaxAngle)
}
