// Package vision wraps gocv: reading frames from a camera, running the object
// detection network, and drawing results for display.
package vision

import (
	"image"
	"strconv"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrNoFrame is returned when the capture device has no more frames.
var ErrNoFrame = errors.New("cannot read frame from capture device")

type Camera struct {
	source  string
	capture *gocv.VideoCapture
}

// OpenCamera opens a capture device by index ("0") or a video file/stream by
// path or URL. Width and height are requested from the device if non-zero.
func OpenCamera(source string, width, height int) (*Camera, error) {
	var dev interface{} = source
	if n, err := strconv.Atoi(source); err == nil {
		dev = n
	}
	capture, err := gocv.OpenVideoCapture(dev)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening video capture device %v", source)
	}
	if width > 0 && height > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	return &Camera{source: source, capture: capture}, nil
}

// Read blocks until the next frame is ready and stores it in img.
func (c *Camera) Read(img *gocv.Mat) error {
	if ok := c.capture.Read(img); !ok {
		return ErrNoFrame
	}
	if img.Empty() {
		return errors.Errorf("no image on device %v", c.source)
	}
	return nil
}

func (c *Camera) Close() error {
	return c.capture.Close()
}

// FrameSize returns the width and height of img.
func FrameSize(img gocv.Mat) image.Point {
	return image.Pt(img.Cols(), img.Rows())
}
