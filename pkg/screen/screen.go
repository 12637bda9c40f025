// Package screen draws the tracker's status on the robot's 128x128 TFT.
package screen

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	S = 128

	minAngle = 0.0
	maxAngle = 180.0
)

// Status is what's shown on the screen.
type Status struct {
	Angle       float64
	Target      string
	TargetSeen  bool
	Corrections int
}

type Screen struct {
	device string
	logger *zap.SugaredLogger

	lock   sync.Mutex
	status Status
}

func New(device string, logger *zap.SugaredLogger) *Screen {
	return &Screen{
		device: device,
		logger: logger.Named("screen"),
	}
}

// Update replaces the status shown on the next redraw.
func (s *Screen) Update(status Status) {
	s.lock.Lock()
	s.status = status
	s.lock.Unlock()
}

func (s *Screen) current() Status {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.status
}

// Loop redraws the screen every 500ms until ctx is done, then blanks it.
func (s *Screen) Loop(ctx context.Context) error {
	f, err := os.OpenFile(s.device, os.O_RDWR, 0666)
	if err != nil {
		return errors.Wrap(err, "failed to open screen")
	}
	defer f.Close()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			var buf [S * S * 2]byte
			_, _ = f.Seek(0, 0)
			_, _ = f.Write(buf[:])
			return nil
		case <-ticker.C:
		}

		buf := ToRGB565(Render(s.current()))
		if _, err := f.Seek(0, 0); err != nil {
			return errors.Wrap(err, "screen failure")
		}
		for i := 0; i < S; i++ {
			if _, err := f.Write(buf[i*S*2 : (i+1)*S*2]); err != nil {
				return errors.Wrap(err, "screen failure")
			}
			time.Sleep(10 * time.Microsecond)
		}
	}
}

// Render draws the status panel: a pan gauge with the current angle and the
// target being tracked.
func Render(st Status) image.Image {
	dc := gg.NewContext(S, S)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGBA(1, 0.9, 0, 1)

	dc.DrawStringAnchored("PAN", S/2, 8, 0.5, 0.5)

	// Gauge: 180 degrees at the left, 0 at the right, like looking down on
	// the mount from behind the camera.
	const cx, cy, r = S / 2, 76, 48
	dc.SetLineWidth(2)
	dc.DrawArc(cx, cy, r, gg.Radians(180), gg.Radians(360))
	dc.Stroke()
	needle := gg.Radians(360 - st.Angle)
	dc.DrawLine(cx, cy, cx+r*math.Cos(needle), cy+r*math.Sin(needle))
	dc.Stroke()
	if st.Angle <= minAngle || st.Angle >= maxAngle {
		dc.Push()
		dc.Translate(S-16, 24)
		DrawWarning(dc)
		dc.Pop()
		dc.SetRGBA(1, 0.9, 0, 1)
	}

	dc.DrawStringAnchored(fmt.Sprintf("%.0f deg", st.Angle), S/2, 92, 0.5, 0.5)

	if st.TargetSeen {
		dc.SetRGB(0.2, 1, 0.2)
	} else {
		dc.SetRGB(0.5, 0.5, 0.5)
	}
	dc.DrawStringAnchored(st.Target, S/2, 108, 0.5, 0.5)
	dc.SetRGBA(1, 0.9, 0, 1)
	dc.DrawStringAnchored(fmt.Sprintf("moves %d", st.Corrections), S/2, 122, 0.5, 0.5)
	return dc.Image()
}

// ToRGB565 converts a 128x128 image to the framebuffer's layout: 16 bits per
// pixel, little endian, with the panel mounted rotated 90 degrees.
func ToRGB565(img image.Image) []byte {
	buf := make([]byte, S*S*2)
	for y := 0; y < S; y++ {
		for x := 0; x < S; x++ {
			r, g, b, _ := img.At(x, y).RGBA() // 16-bit pre-multiplied

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6)) // Green has 6 bits
			bb := byte(b >> (16 - 5))

			buf[(S-1-y)*2+x*S*2+1] = (rb << 3) | (gb >> 3)
			buf[(S-1-y)*2+x*S*2] = bb | (gb << 5)
		}
	}
	return buf
}

func DrawWarning(dc *gg.Context) {
	dc.SetRGB(1, 0.2, 0)
	dc.DrawRegularPolygon(3, 0, 0, 14, 0)
	dc.Fill()
	dc.SetRGBA(0, 0, 0, 0.9)
	dc.DrawString("!", -3, 3)
}
