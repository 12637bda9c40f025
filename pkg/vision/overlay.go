package vision

import (
	"image/color"

	"gocv.io/x/gocv"

	"github.com/tigerbot-team/tigerbot/pantracker/pkg/detection"
)

const (
	boxThickness  = 3
	fontScale     = 1
	fontThickness = 1
)

var textColor = color.RGBA{255, 0, 0, 0}

// Annotate draws each detection's bounding box and caption onto img.
func Annotate(img *gocv.Mat, dets []detection.Detection) {
	for _, d := range dets {
		gocv.Rectangle(img, d.Box, textColor, boxThickness)
		gocv.PutText(img, detection.Text(d), detection.TextOrigin(d.Box),
			gocv.FontHersheyPlain, fontScale, textColor, fontThickness)
	}
}

// Preview shows frames in a desktop window.
type Preview struct {
	window *gocv.Window
}

func NewPreview(name string) *Preview {
	return &Preview{window: gocv.NewWindow(name)}
}

// Show displays img and reports false once ESC has been pressed.
func (p *Preview) Show(img gocv.Mat) bool {
	p.window.IMShow(img)
	return p.window.WaitKey(1) != 27
}

func (p *Preview) Close() error {
	return p.window.Close()
}
