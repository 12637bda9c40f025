// Package hardware opens the PWM output configured for the pan servo.
package hardware

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/pantracker/pkg/config"
	"github.com/tigerbot-team/tigerbot/pantracker/pkg/pca9685"
	"github.com/tigerbot-team/tigerbot/pantracker/pkg/pwm"
)

// Open returns the servo's PWM channel for the configured backend and a
// release func that frees whatever the backend holds open (the i2c device
// for a PCA9685). Nothing is driven until the channel is started; release
// must only be called once the channel has been stopped.
func Open(cfg config.ServoConfig, logger *zap.SugaredLogger) (pwm.Channel, func() error, error) {
	logger = logger.Named("hardware")
	noop := func() error { return nil }
	switch cfg.Backend {
	case config.BackendGPIO:
		ch, err := pwm.NewGPIO(cfg.Pin)
		if err != nil {
			return nil, nil, err
		}
		logger.Infow("Using GPIO PWM", "pin", cfg.Pin)
		return ch, noop, nil
	case config.BackendPCA9685:
		board, err := pca9685.New(cfg.I2CDevice)
		if err != nil {
			return nil, nil, err
		}
		logger.Infow("Using PCA9685", "device", cfg.I2CDevice, "channel", cfg.Channel)
		return board.Channel(cfg.Channel), board.Close, nil
	case config.BackendDummy:
		logger.Infow("Using dummy PWM output", "pin", cfg.Pin)
		return pwm.NewDummy(cfg.Pin), noop, nil
	}
	return nil, nil, errors.Errorf("unknown servo backend %q", cfg.Backend)
}
