package servo

import (
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"periph.io/x/periph/conn/physic"

	"github.com/tigerbot-team/tigerbot/pantracker/pkg/pwm"
)

func newTestServo(t *testing.T) (*Servo, *pwm.Dummy, *[]time.Duration) {
	t.Helper()
	ch := pwm.NewDummy("P1_11")
	s := New(ch, DefaultConfig(), zap.NewNop().Sugar())
	var slept []time.Duration
	s.sleep = func(d time.Duration) { slept = append(slept, d) }
	return s, ch, &slept
}

func TestDutyCycle(t *testing.T) {
	require.Equal(t, 2.0, DutyCycle(0))
	require.Equal(t, 7.0, DutyCycle(90))
	require.Equal(t, 12.0, DutyCycle(180))
	for a := MinAngle; a <= MaxAngle; a += 0.5 {
		d := DutyCycle(a)
		require.InDelta(t, 2+a/18, d, 1e-12)
		require.GreaterOrEqual(t, d, 2.0)
		require.LessOrEqual(t, d, 12.0)
	}
}

func TestStartStop(t *testing.T) {
	s, ch, _ := newTestServo(t)
	require.Equal(t, Uninitialized, s.State())

	require.NoError(t, s.Start())
	require.Equal(t, Running, s.State())
	require.True(t, ch.Running())
	require.Equal(t, 50*physic.Hertz, ch.Frequency())
	require.Equal(t, 0.0, ch.Duty())

	require.NoError(t, s.Stop())
	require.Equal(t, Stopped, s.State())
	require.False(t, ch.Running())
	require.Equal(t, 0.0, ch.Duty())

	// Only the first stop touches the hardware.
	require.NoError(t, s.Stop())
	require.Equal(t, 1, ch.Stops())
}

func TestStopBeforeStartIsNoop(t *testing.T) {
	s, ch, _ := newTestServo(t)
	require.NoError(t, s.Stop())
	require.Equal(t, Uninitialized, s.State())
	require.Equal(t, 0, ch.Stops())
}

func TestSetAngle(t *testing.T) {
	s, ch, slept := newTestServo(t)
	require.NoError(t, s.Start())

	require.NoError(t, s.SetAngle(90))
	require.Equal(t, []float64{0, 7, 0}, ch.Duties())
	require.Equal(t, []time.Duration{500 * time.Millisecond}, *slept)
}

func TestSetAngleBeforeStart(t *testing.T) {
	s, ch, slept := newTestServo(t)
	require.NoError(t, s.SetAngle(90))
	require.Empty(t, ch.Duties())
	require.Empty(t, *slept)

	require.NoError(t, s.Start())
	require.NoError(t, s.Stop())
	require.NoError(t, s.SetAngle(90))
	require.Equal(t, []float64{0, 0, 0}, ch.Duties())
}

func TestSetAngleOutOfRange(t *testing.T) {
	s, ch, slept := newTestServo(t)
	require.NoError(t, s.Start())

	for _, a := range []float64{-0.1, 180.01, -90, 360, math.NaN(), math.Inf(1)} {
		err := s.SetAngle(a)
		require.True(t, errors.Is(err, ErrInvalidAngle), "angle %v: %v", a, err)
	}
	require.Equal(t, []float64{0}, ch.Duties())
	require.Empty(t, *slept)
	require.Equal(t, Running, s.State())
}

func TestStartHardwareFault(t *testing.T) {
	s, ch, _ := newTestServo(t)
	ch.StartErr = errors.New("pin busy")

	err := s.Start()
	var hwErr *HardwareError
	require.True(t, errors.As(err, &hwErr))
	require.Equal(t, "start", hwErr.Op)
	require.Equal(t, "P1_11", hwErr.Pin)
	require.EqualError(t, err, "servo start on P1_11: pin busy")
	require.Equal(t, Uninitialized, s.State())
}

func TestRunStopsAfterError(t *testing.T) {
	s, ch, _ := newTestServo(t)
	err := Run(s, func(s *Servo) error {
		require.Equal(t, Running, s.State())
		return s.SetAngle(200)
	})
	require.True(t, errors.Is(err, ErrInvalidAngle))
	require.Equal(t, Stopped, s.State())
	require.False(t, ch.Running())
}

func TestRunStopsOnPanic(t *testing.T) {
	s, ch, _ := newTestServo(t)
	require.Panics(t, func() {
		_ = Run(s, func(s *Servo) error {
			panic("boom")
		})
	})
	require.Equal(t, Stopped, s.State())
	require.Equal(t, 1, ch.Stops())
}

func TestRunStartFailure(t *testing.T) {
	s, ch, _ := newTestServo(t)
	ch.StartErr = errors.New("permission denied")
	called := false
	err := Run(s, func(*Servo) error {
		called = true
		return nil
	})
	require.Error(t, err)
	require.False(t, called)
	require.Equal(t, 0, ch.Stops())
}

func TestStopWaitsForSettle(t *testing.T) {
	ch := pwm.NewDummy("P1_11")
	s := New(ch, DefaultConfig(), zap.NewNop().Sugar())
	settling := make(chan struct{})
	release := make(chan struct{})
	s.sleep = func(time.Duration) {
		close(settling)
		<-release
	}
	require.NoError(t, s.Start())

	moved := make(chan error, 1)
	go func() { moved <- s.SetAngle(90) }()
	<-settling

	stopped := make(chan error, 1)
	go func() { stopped <- s.Stop() }()
	select {
	case <-stopped:
		t.Fatal("Stop returned while the servo was settling")
	case <-time.After(20 * time.Millisecond):
	}
	require.Equal(t, []float64{0, 7}, ch.Duties())

	close(release)
	require.NoError(t, <-moved)
	require.NoError(t, <-stopped)
	require.Equal(t, []float64{0, 7, 0, 0, 0}, ch.Duties())
	require.Equal(t, Stopped, s.State())
}
