package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/tigerbot-team/tigerbot/pantracker/pkg/config"
	"github.com/tigerbot-team/tigerbot/pantracker/pkg/detection"
	"github.com/tigerbot-team/tigerbot/pantracker/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/pantracker/pkg/logging"
	"github.com/tigerbot-team/tigerbot/pantracker/pkg/screen"
	"github.com/tigerbot-team/tigerbot/pantracker/pkg/servo"
	"github.com/tigerbot-team/tigerbot/pantracker/pkg/sound"
	"github.com/tigerbot-team/tigerbot/pantracker/pkg/tracking"
	"github.com/tigerbot-team/tigerbot/pantracker/pkg/vision"
)

type options struct {
	Config  string `short:"c" long:"config" default:"/cfg/pantracker.yaml" description:"Config file"`
	Dummy   bool   `long:"dummy" description:"Drive a dummy PWM output instead of the servo"`
	Camera  string `long:"camera" description:"Capture device index or video file/URL, overrides the config"`
	Preview bool   `long:"preview" description:"Show annotated frames in a window"`
	Debug   bool   `short:"d" long:"debug" description:"Debug logging"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	logger, err := logging.New(opts.Debug)
	if err != nil {
		fmt.Println("Failed to create logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	fmt.Print("---- Pan tracker ----\n\n")
	logger.Debugw("Runtime", "GOMAXPROCS", runtime.GOMAXPROCS(0))

	if err := run(opts, logger); err != nil {
		logger.Errorw("Pan tracker failed", "error", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(opts options, logger *zap.SugaredLogger) (err error) {
	cfg, err := config.Load(opts.Config, logger)
	if err != nil {
		return err
	}
	if opts.Dummy {
		cfg.Servo.Backend = config.BackendDummy
	}
	if opts.Camera != "" {
		cfg.Camera.Source = opts.Camera
	}
	if out, err := cfg.WriteInUse(opts.Config); err != nil {
		logger.Debugw("Not writing config in use", "error", err)
	} else {
		logger.Infow("Wrote config in use", "path", out)
	}

	ch, release, err := hardware.Open(cfg.Servo, logger)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Invoke(release))
	pan := servo.New(ch, cfg.Servo.ServoConfig(), logger)

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(signals)
	go func() {
		s, ok := <-signals
		if !ok {
			return
		}
		logger.Infow("Signal received, stopping", "signal", s)
		cancel()
		// The loop stops between corrections; if the camera is wedged, make
		// sure the servo is released anyway.
		time.Sleep(shutdownGrace(cfg))
		logger.Warn("Loop didn't stop, forcing shutdown")
		if err := pan.Stop(); err != nil {
			logger.Errorw("Failed to stop servo", "error", err)
		}
		logger.Sync()
		os.Exit(1)
	}()

	return servo.Run(pan, func(pan *servo.Servo) error {
		return track(ctx, cfg, opts, pan, logger)
	})
}

// shutdownGrace is how long a signalled shutdown may take before it is
// forced: one correction in flight plus time to close the camera.
func shutdownGrace(cfg *config.Config) time.Duration {
	return cfg.Servo.Settle + cfg.Tracking.Cooldown + 2*time.Second
}

func track(ctx context.Context, cfg *config.Config, opts options, pan *servo.Servo, logger *zap.SugaredLogger) (err error) {
	state := &tracking.PanState{}
	ctrl := tracking.New(pan, state, cfg.Tracking.ControllerConfig(), logger)
	if err := ctrl.Center(cfg.Tracking.StartAngle); err != nil {
		return err
	}
	filter := cfg.Tracking.Filter()
	tracker := tracking.NewTracker(ctrl, filter)

	labels, err := detection.LoadLabels(cfg.Detector.Labels)
	if err != nil {
		return err
	}
	det, err := vision.NewDetector(vision.DetectorConfig{
		Model:          cfg.Detector.Model,
		Config:         cfg.Detector.Config,
		Labels:         labels,
		InputSize:      cfg.Detector.InputSize,
		ScoreThreshold: cfg.Detector.ScoreThreshold,
		MaxResults:     cfg.Detector.MaxResults,
	})
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(det))

	cam, err := vision.OpenCamera(cfg.Camera.Source, cfg.Camera.Width, cfg.Camera.Height)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(cam))

	var preview *vision.Preview
	if opts.Preview {
		preview = vision.NewPreview("Pan tracker")
		defer multierr.AppendInvoke(&err, multierr.Close(preview))
	}

	var scr *screen.Screen
	if cfg.Screen.Device != "" {
		scr = screen.New(cfg.Screen.Device, logger)
		go func() {
			if err := scr.Loop(ctx); err != nil {
				logger.Warnw("Status screen disabled", "error", err)
			}
		}()
	}

	var player *sound.Player
	if cfg.Sounds.Acquired != "" || cfg.Sounds.Limit != "" {
		player = sound.NewPlayer(logger)
		defer player.Close()
	}

	img := gocv.NewMat()
	defer img.Close()

	logger.Infow("Tracking", "target", filter.Label, "min_confidence", filter.MinScore, "camera", cfg.Camera.Source)
	var targetWasSeen bool
	var corrections int
	for ctx.Err() == nil {
		// This blocks until the next frame is ready.
		if err := cam.Read(&img); err != nil {
			if errors.Is(err, vision.ErrNoFrame) {
				logger.Info("No more frames")
				return nil
			}
			return err
		}

		dets, err := det.Detect(img)
		if err != nil {
			return err
		}
		logger.Debugw("Frame", "detections", len(dets))
		vision.Annotate(&img, dets)

		n, err := tracker.Process(ctx, vision.FrameSize(img), dets)
		if err != nil {
			return err
		}
		corrections += n

		targetSeen := filter.Any(dets)
		if targetSeen && !targetWasSeen {
			player.Play(cfg.Sounds.Acquired)
		}
		targetWasSeen = targetSeen
		if n > 0 && ctrl.AtLimit() {
			logger.Infow("Pan at end of travel", "angle", ctrl.Angle())
			player.Play(cfg.Sounds.Limit)
		}

		if scr != nil {
			scr.Update(screen.Status{
				Angle:       ctrl.Angle(),
				Target:      filter.Label,
				TargetSeen:  targetSeen,
				Corrections: corrections,
			})
		}
		if preview != nil && !preview.Show(img) {
			logger.Info("Preview closed")
			return nil
		}
	}
	logger.Info("Context done, stopping tracking")
	return nil
}
