package tracking

import (
	"context"
	"image"

	"github.com/tigerbot-team/tigerbot/pantracker/pkg/detection"
)

// Tracker feeds each frame's detections to the controller.
type Tracker struct {
	ctrl   *Controller
	filter detection.Filter
}

func NewTracker(ctrl *Controller, filter detection.Filter) *Tracker {
	return &Tracker{ctrl: ctrl, filter: filter}
}

// Process runs the controller once for every detection in the frame that
// matches the filter, in the order given. It returns how many corrections
// were made. Once ctx is done no further corrections are started.
func (t *Tracker) Process(ctx context.Context, frame image.Point, dets []detection.Detection) (corrections int, err error) {
	for _, d := range dets {
		if ctx.Err() != nil {
			return corrections, nil
		}
		if !t.filter.Matches(d) {
			continue
		}
		moved, err := t.ctrl.OnOffset(OffsetOf(frame, d.Box))
		if err != nil {
			return corrections, err
		}
		if moved {
			corrections++
		}
	}
	return corrections, nil
}
