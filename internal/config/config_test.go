package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/wavecore/internal/core/waves"
)

const sample = `
level: levels/meadow.yaml
log:
  level: debug
  encoding: json
sim:
  tick: 50ms
  max_ticks: 2000
  seed: 7
  defense_dps: 12.5
  slow_factor: 0.5
  slow_duration: 2s
break:
  duration: 10s
player:
  max_health: 3
  start_gold: 120
  fanfare: 1s
spawn_points:
  - {name: north, x: 0, y: 10}
  - {name: south, x: 0, y: -10}
metrics:
  addr: ":9100"
feed:
  addr: ":8081"
  buffer: 16
`

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 50*time.Millisecond, cfg.Sim.Tick)
	assert.Equal(t, uint64(7), cfg.Sim.Seed)
	assert.Equal(t, 10*time.Second, cfg.Break.Duration)
	assert.Equal(t, 3.0, cfg.Player.MaxHealth)
	assert.Equal(t, time.Second, cfg.Player.Fanfare)
	assert.Equal(t, []waves.SpawnPoint{{Name: "north", Y: 10}, {Name: "south", Y: -10}}, cfg.SpawnPoints)
	assert.Equal(t, 16, cfg.Feed.Buffer)
}

func TestParseEmptyKeepsDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseStrict(t *testing.T) {
	_, err := Parse([]byte("log:\n  level: info\n  colour: true\n"))
	assert.ErrorContains(t, err, "strict config parse error")

	_, err = Parse([]byte("level: a.yaml\n---\nlevel: b.yaml\n"))
	assert.ErrorContains(t, err, "multiple documents")
}

func TestValidateReportsEverything(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "loud"
	cfg.Sim.Tick = 0
	cfg.Sim.SlowFactor = 2
	cfg.SpawnPoints = nil

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, waves.ErrNoSpawnPoints)
	assert.ErrorContains(t, err, "sim.tick")
	assert.ErrorContains(t, err, "sim.slow_factor")
}

func TestLoadResolvesLevelAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wavesim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	t.Setenv("WAVECORE_TICK", "20ms")
	t.Setenv("WAVECORE_SEED", "99")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "levels", "meadow.yaml"), cfg.Level)
	assert.Equal(t, 20*time.Millisecond, cfg.Sim.Tick)
	assert.Equal(t, uint64(99), cfg.Sim.Seed)
}

func TestLoadRejectsBadInput(t *testing.T) {
	_, err := Load("wavesim.toml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	t.Setenv("WAVECORE_SEED", "many")
	_, err = Load("")
	assert.ErrorContains(t, err, "WAVECORE_SEED")
}

func TestLogger(t *testing.T) {
	cfg := Default()
	logger, err := cfg.Logger()
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
