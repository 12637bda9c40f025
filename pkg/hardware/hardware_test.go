package hardware

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tigerbot-team/tigerbot/pantracker/pkg/config"
	"github.com/tigerbot-team/tigerbot/pantracker/pkg/pwm"
)

func TestOpenDummy(t *testing.T) {
	cfg := config.Default().Servo
	cfg.Backend = config.BackendDummy
	ch, release, err := Open(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.IsType(t, &pwm.Dummy{}, ch)
	require.Equal(t, "P1_11", ch.Name())
	require.NoError(t, release())
}

func TestOpenUnknownBackend(t *testing.T) {
	cfg := config.Default().Servo
	cfg.Backend = "stepper"
	_, _, err := Open(cfg, zap.NewNop().Sugar())
	require.EqualError(t, err, `unknown servo backend "stepper"`)
}
