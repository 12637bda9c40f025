// Package config loads the pan tracker's YAML configuration.
package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
	"periph.io/x/periph/conn/physic"

	"github.com/tigerbot-team/tigerbot/pantracker/pkg/detection"
	"github.com/tigerbot-team/tigerbot/pantracker/pkg/servo"
	"github.com/tigerbot-team/tigerbot/pantracker/pkg/tracking"
)

const (
	BackendGPIO    = "gpio"
	BackendPCA9685 = "pca9685"
	BackendDummy   = "dummy"
)

type Config struct {
	Servo    ServoConfig    `yaml:"servo"`
	Tracking TrackingConfig `yaml:"tracking"`
	Camera   CameraConfig   `yaml:"camera"`
	Detector DetectorConfig `yaml:"detector"`
	Screen   ScreenConfig   `yaml:"screen"`
	Sounds   SoundsConfig   `yaml:"sounds"`
}

type ServoConfig struct {
	// Backend is one of "gpio", "pca9685" or "dummy".
	Backend string `yaml:"backend"`
	// Pin is the periph pin name for the gpio backend; "P1_11" is physical
	// pin 11 of the Raspberry Pi header.
	Pin         string        `yaml:"pin"`
	I2CDevice   string        `yaml:"i2c_device"`
	Channel     int           `yaml:"channel"`
	FrequencyHz int           `yaml:"frequency_hz"`
	Settle      time.Duration `yaml:"settle"`
}

type TrackingConfig struct {
	TargetLabel   string        `yaml:"target_label"`
	MinConfidence float64       `yaml:"min_confidence"`
	ThresholdPx   float64       `yaml:"threshold_px"`
	StepDeg       float64       `yaml:"step_deg"`
	Cooldown      time.Duration `yaml:"cooldown"`
	StartAngle    float64       `yaml:"start_angle"`
}

type CameraConfig struct {
	// Source is a capture device index ("0") or a file/stream URL.
	Source string `yaml:"source"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

type DetectorConfig struct {
	Model          string  `yaml:"model"`
	Config         string  `yaml:"config"`
	Labels         string  `yaml:"labels"`
	InputSize      int     `yaml:"input_size"`
	ScoreThreshold float64 `yaml:"score_threshold"`
	MaxResults     int     `yaml:"max_results"`
}

type ScreenConfig struct {
	// Device is the status panel framebuffer; empty disables it.
	Device string `yaml:"device"`
}

type SoundsConfig struct {
	Acquired string `yaml:"acquired"`
	Limit    string `yaml:"limit"`
}

func Default() *Config {
	return &Config{
		Servo: ServoConfig{
			Backend:     BackendGPIO,
			Pin:         "P1_11",
			I2CDevice:   "/dev/i2c-1",
			FrequencyHz: 50,
			Settle:      servo.DefaultSettleTime,
		},
		Tracking: TrackingConfig{
			TargetLabel:   "bottle",
			MinConfidence: detection.DefaultMinScore,
			ThresholdPx:   tracking.DefaultThreshold,
			StepDeg:       tracking.DefaultStep,
			Cooldown:      tracking.DefaultCooldown,
			StartAngle:    tracking.DefaultStartAngle,
		},
		Camera: CameraConfig{
			Source: "0",
			Width:  640,
			Height: 480,
		},
		Detector: DetectorConfig{
			Model:          "/models/ssd_mobilenet_v2_coco.pb",
			Config:         "/models/ssd_mobilenet_v2_coco.pbtxt",
			Labels:         "/models/coco_labels.txt",
			InputSize:      300,
			ScoreThreshold: 0.3,
			MaxResults:     3,
		},
		Screen: ScreenConfig{
			Device: "/dev/fb1",
		},
	}
}

// Load reads the config at path over the defaults. A missing file is not an
// error: the defaults are used.
func Load(path string, logger *zap.SugaredLogger) (*Config, error) {
	cfg := Default()
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Infow("No config file, using defaults", "path", path)
		return cfg, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to read config")
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config in %s", path)
	}
	return cfg, nil
}

// WriteInUse writes the effective config next to path as <name>-in-use.yaml
// and returns the file written.
func (c *Config) WriteInUse(path string) (string, error) {
	ext := filepath.Ext(path)
	out := strings.TrimSuffix(path, ext) + "-in-use" + ext
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal config")
	}
	if err := ioutil.WriteFile(out, data, 0666); err != nil {
		return "", errors.Wrap(err, "failed to write config in use")
	}
	return out, nil
}

func (c *Config) Validate() error {
	switch c.Servo.Backend {
	case BackendGPIO:
		if c.Servo.Pin == "" {
			return errors.New("servo.pin is required for the gpio backend")
		}
	case BackendPCA9685:
		if c.Servo.Channel < 0 || c.Servo.Channel > 15 {
			return errors.Errorf("servo.channel must be 0-15, not %d", c.Servo.Channel)
		}
	case BackendDummy:
	default:
		return errors.Errorf("unknown servo.backend %q", c.Servo.Backend)
	}
	if c.Servo.FrequencyHz <= 0 {
		return errors.Errorf("servo.frequency_hz must be positive, not %d", c.Servo.FrequencyHz)
	}
	if c.Servo.Settle < 0 || c.Tracking.Cooldown < 0 {
		return errors.New("servo.settle and tracking.cooldown cannot be negative")
	}
	t := c.Tracking
	if t.TargetLabel == "" {
		return errors.New("tracking.target_label is required")
	}
	if t.MinConfidence < 0 || t.MinConfidence > 1 {
		return errors.Errorf("tracking.min_confidence must be 0-1, not %v", t.MinConfidence)
	}
	if t.ThresholdPx < 0 {
		return errors.Errorf("tracking.threshold_px cannot be negative, not %v", t.ThresholdPx)
	}
	if t.StepDeg <= 0 {
		return errors.Errorf("tracking.step_deg must be positive, not %v", t.StepDeg)
	}
	if t.StartAngle < servo.MinAngle || t.StartAngle > servo.MaxAngle {
		return errors.Errorf("tracking.start_angle must be between 0 and 180, not %v", t.StartAngle)
	}
	return nil
}

func (s ServoConfig) ServoConfig() servo.Config {
	return servo.Config{
		Frequency:  physic.Frequency(s.FrequencyHz) * physic.Hertz,
		SettleTime: s.Settle,
	}
}

func (t TrackingConfig) ControllerConfig() tracking.Config {
	return tracking.Config{
		Threshold: t.ThresholdPx,
		Step:      t.StepDeg,
		Cooldown:  t.Cooldown,
	}
}

func (t TrackingConfig) Filter() detection.Filter {
	return detection.Filter{
		Label:    t.TargetLabel,
		MinScore: t.MinConfidence,
	}
}
