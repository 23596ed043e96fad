package injector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/wavecore/internal/config"
)

const level = `
name: tiny
path_length: 10
enemies:
  grunt: {health: 1, speed: 1, goal_damage: 1, reward: 1}
waves:
  - groups: [{enemy: grunt, count: 2}]
spawn_intervals: [100ms]
`

func TestInitializeApp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.yaml")
	require.NoError(t, os.WriteFile(path, []byte(level), 0o600))

	cfg := config.Default()
	cfg.Level = path
	cfg.Log.Level = "silent"
	cfg.Sim.SkipBreaks = true
	cfg.Sim.DefenseDPS = 100

	app, cleanup, err := InitializeApp(cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.Contains(t, app.Run.Systems().GetExecutionOrder(), "feed")

	result, err := app.Run.RunUntilDone(context.Background(), cfg.Sim.MaxTicks)
	require.NoError(t, err)
	assert.True(t, result.Won)
	assert.Equal(t, uint64(2), result.Spawned)
	assert.Positive(t, app.Bus.GetMetrics().Published)
}

func TestInitializeAppWithoutLevel(t *testing.T) {
	_, _, err := InitializeApp(config.Default())
	assert.ErrorContains(t, err, "no level file")
}
