// Package config loads the simulation host configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/wavecore/internal/core/intermission"
	"github.com/zeusync/wavecore/internal/core/observability/log"
	"github.com/zeusync/wavecore/internal/core/player"
	"github.com/zeusync/wavecore/internal/core/waves"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WAVECORE_"

// Configuration errors
var (
	ErrInvalidConfig     = errors.New("invalid config")
	ErrUnsupportedFormat = errors.New("unsupported config format")
)

// Config is the full host configuration.
type Config struct {
	Level       string             `yaml:"level"`
	Log         LogConfig          `yaml:"log"`
	Sim         SimConfig          `yaml:"sim"`
	Break       BreakConfig        `yaml:"break"`
	Player      player.Config      `yaml:"player"`
	SpawnPoints []waves.SpawnPoint `yaml:"spawn_points"`
	Metrics     ListenConfig       `yaml:"metrics"`
	Feed        FeedConfig         `yaml:"feed"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

// SimConfig drives the headless host loop.
type SimConfig struct {
	Tick             time.Duration `yaml:"tick"`
	MaxTicks         int           `yaml:"max_ticks"`
	Seed             uint64        `yaml:"seed"`
	SpawnImmediately bool          `yaml:"spawn_immediately"`
	SkipBreaks       bool          `yaml:"skip_breaks"`
	// Realtime paces ticks on the wall clock instead of running flat out.
	Realtime bool `yaml:"realtime"`
	// DefenseDPS is the damage per second every enemy on the field takes.
	DefenseDPS   float64       `yaml:"defense_dps"`
	SlowFactor   float64       `yaml:"slow_factor"`
	SlowDuration time.Duration `yaml:"slow_duration"`
}

type BreakConfig struct {
	Duration time.Duration `yaml:"duration"`
}

type ListenConfig struct {
	Addr string `yaml:"addr"`
}

type FeedConfig struct {
	Addr   string `yaml:"addr"`
	Buffer int    `yaml:"buffer"`
}

// Default returns a configuration that runs without any file.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Encoding: "console"},
		Sim: SimConfig{
			Tick:         100 * time.Millisecond,
			MaxTicks:     100_000,
			DefenseDPS:   4,
			SlowFactor:   1,
			SlowDuration: 0,
		},
		Break: BreakConfig{Duration: intermission.DefaultBreakDuration},
		Player: player.Config{
			MaxHealth: player.DefaultMaxHealth,
			StartGold: player.DefaultStartGold,
			Fanfare:   player.DefaultFanfare,
		},
		SpawnPoints: []waves.SpawnPoint{{Name: "gate"}},
		Feed:        FeedConfig{Buffer: 64},
	}
}

// Load reads a YAML file over the defaults and applies environment
// overrides. An empty path yields the defaults plus overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return Config{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
		}
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err = decode(data, &cfg); err != nil {
			return Config{}, err
		}
		if cfg.Level != "" && !filepath.IsAbs(cfg.Level) {
			cfg.Level = filepath.Join(filepath.Dir(path), cfg.Level)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults without touching the environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := decode(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("config file contains multiple documents or trailing content")
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("LEVEL", &c.Level)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_ENCODING", &c.Log.Encoding)
	str("METRICS_ADDR", &c.Metrics.Addr)
	str("FEED_ADDR", &c.Feed.Addr)
	dur("TICK", &c.Sim.Tick)
	dur("BREAK_DURATION", &c.Break.Duration)
	if v, ok := lookup(EnvPrefix + "SEED"); ok && v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sSEED: %w", EnvPrefix, err))
		} else {
			c.Sim.Seed = seed
		}
	}
	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Encoding {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.encoding %q is not console or json", c.Log.Encoding))
	}
	if c.Sim.Tick <= 0 {
		errs = append(errs, errors.New("sim.tick must be positive"))
	}
	if c.Sim.MaxTicks <= 0 {
		errs = append(errs, errors.New("sim.max_ticks must be positive"))
	}
	if c.Sim.DefenseDPS < 0 {
		errs = append(errs, errors.New("sim.defense_dps must not be negative"))
	}
	if c.Sim.SlowFactor < 0 || c.Sim.SlowFactor > 1 {
		errs = append(errs, errors.New("sim.slow_factor must be within [0, 1]"))
	}
	if c.Break.Duration < 0 {
		errs = append(errs, errors.New("break.duration must not be negative"))
	}
	if c.Player.MaxHealth <= 0 {
		errs = append(errs, errors.New("player.max_health must be positive"))
	}
	if c.Player.StartGold < 0 {
		errs = append(errs, errors.New("player.start_gold must not be negative"))
	}
	if len(c.SpawnPoints) == 0 {
		errs = append(errs, waves.ErrNoSpawnPoints)
	}
	if c.Feed.Buffer < 0 {
		errs = append(errs, errors.New("feed.buffer must not be negative"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// Logger builds the zap-backed logger described by the log section.
func (c Config) Logger() (*log.Logger, error) {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(level, log.Options{Encoding: c.Log.Encoding}), nil
}
