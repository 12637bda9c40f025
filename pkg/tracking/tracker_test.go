package tracking

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/tigerbot/pantracker/pkg/detection"
)

var frame = image.Pt(640, 480)

// boxAt returns a 40x40 box whose centre is offset from the frame centre by
// (-dx, -dy), i.e. OffsetOf gives (dx, dy).
func boxAt(dx, dy int) image.Rectangle {
	cx, cy := frame.X/2-dx, frame.Y/2-dy
	return image.Rect(cx-20, cy-20, cx+20, cy+20)
}

func bottle(score float64, box image.Rectangle) detection.Detection {
	return detection.Detection{
		Box:        box,
		Categories: []detection.Category{{Label: "bottle", Score: score}},
	}
}

func newTestTracker(angle float64) (*Tracker, *recordingMover, *PanState, *[]time.Duration) {
	c, m, state, slept := newTestController(angle)
	return NewTracker(c, detection.Filter{Label: "bottle", MinScore: detection.DefaultMinScore}), m, state, slept
}

func TestTrackerFollowsConfidentTarget(t *testing.T) {
	tr, m, state, slept := newTestTracker(90)
	n, err := tr.Process(context.Background(), frame, []detection.Detection{bottle(0.9, boxAt(-100, 0))})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []float64{95}, m.angles)
	require.Equal(t, 95.0, state.Angle)
	require.Len(t, *slept, 1)

	tr, m, state, _ = newTestTracker(90)
	n, err = tr.Process(context.Background(), frame, []detection.Detection{bottle(0.9, boxAt(100, 0))})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []float64{85}, m.angles)
	require.Equal(t, 85.0, state.Angle)
}

func TestTrackerIgnoresLowConfidence(t *testing.T) {
	tr, m, state, _ := newTestTracker(90)
	for _, dx := range []int{-300, -100, 100, 300} {
		n, err := tr.Process(context.Background(), frame, []detection.Detection{bottle(0.4, boxAt(dx, 0))})
		require.NoError(t, err)
		require.Zero(t, n)
	}
	require.Empty(t, m.angles)
	require.Equal(t, 90.0, state.Angle)
}

func TestTrackerIgnoresOtherLabels(t *testing.T) {
	tr, m, _, _ := newTestTracker(90)
	person := detection.Detection{
		Box:        boxAt(-200, 0),
		Categories: []detection.Category{{Label: "person", Score: 0.99}},
	}
	n, err := tr.Process(context.Background(), frame, []detection.Detection{person, bottle(0.8, boxAt(10, 0))})
	require.NoError(t, err)
	require.Zero(t, n)
	require.Empty(t, m.angles)
}

func TestTrackerCorrectsPerDetection(t *testing.T) {
	tr, m, state, slept := newTestTracker(90)
	n, err := tr.Process(context.Background(), frame, []detection.Detection{
		bottle(0.9, boxAt(-100, 0)),
		bottle(0.7, boxAt(-80, 0)),
		bottle(0.6, boxAt(0, 0)),
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []float64{95, 100}, m.angles)
	require.Equal(t, 100.0, state.Angle)
	require.Len(t, *slept, 2)
}

func TestTrackerStopsWhenCancelled(t *testing.T) {
	c, m, state, _ := newTestController(90)
	ctx, cancel := context.WithCancel(context.Background())
	// Cancel during the first correction's cooldown.
	c.sleep = func(time.Duration) { cancel() }
	tr := NewTracker(c, detection.Filter{Label: "bottle", MinScore: detection.DefaultMinScore})

	n, err := tr.Process(ctx, frame, []detection.Detection{
		bottle(0.9, boxAt(-100, 0)),
		bottle(0.8, boxAt(-100, 0)),
		bottle(0.7, boxAt(-100, 0)),
	})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []float64{95}, m.angles)
	require.Equal(t, 95.0, state.Angle)
}
