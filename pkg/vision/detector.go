package vision

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/tigerbot-team/tigerbot/pantracker/pkg/detection"
)

type DetectorConfig struct {
	// Model and Config are passed to gocv.ReadNet; any format OpenCV's dnn
	// module reads works as long as the network has SSD style output.
	Model          string
	Config         string
	Labels         []string
	InputSize      int
	ScoreThreshold float64
	MaxResults     int
}

type Detector struct {
	net gocv.Net
	cfg DetectorConfig
}

func NewDetector(cfg DetectorConfig) (*Detector, error) {
	net := gocv.ReadNet(cfg.Model, cfg.Config)
	if net.Empty() {
		return nil, errors.Errorf("error reading network model from %v %v", cfg.Model, cfg.Config)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, errors.Wrap(err, "failed to set network backend")
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, errors.Wrap(err, "failed to set network target")
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = 300
	}
	return &Detector{net: net, cfg: cfg}, nil
}

// Detect runs the network over img and returns what it found, best first.
func (d *Detector) Detect(img gocv.Mat) ([]detection.Detection, error) {
	size := image.Pt(d.cfg.InputSize, d.cfg.InputSize)
	blob := gocv.BlobFromImage(img, 1.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	prob := d.net.Forward("")
	defer prob.Close()

	out, err := prob.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read network output")
	}
	return detection.DecodeSSD(out, FrameSize(img), d.cfg.Labels, d.cfg.ScoreThreshold, d.cfg.MaxResults), nil
}

func (d *Detector) Close() error {
	return d.net.Close()
}
