// Package player keeps the player's health and gold and decides when a run
// is finished.
package player

import (
	"errors"
	"time"

	"github.com/zeusync/wavecore/internal/core/events"
	"github.com/zeusync/wavecore/internal/core/events/bus"
	"github.com/zeusync/wavecore/internal/core/observability/log"
	"github.com/zeusync/wavecore/internal/core/system"
	"github.com/zeusync/wavecore/internal/core/timer"
)

// Defaults applied to zero config values.
const (
	DefaultMaxHealth = 5.0
	DefaultStartGold = 200
	DefaultFanfare   = 5 * time.Second
)

var _ system.System = (*State)(nil)

// Config configures a player.
type Config struct {
	MaxHealth float64       `yaml:"max_health"`
	StartGold int           `yaml:"start_gold"`
	Fanfare   time.Duration `yaml:"fanfare"`
}

func (c Config) withDefaults() Config {
	if c.MaxHealth <= 0 {
		c.MaxHealth = DefaultMaxHealth
	}
	if c.StartGold < 0 {
		c.StartGold = 0
	}
	if c.Fanfare <= 0 {
		c.Fanfare = DefaultFanfare
	}
	return c
}

// State is the player of one run.
type State struct {
	cfg    Config
	bus    *bus.Dispatcher
	scope  *bus.Scope
	logger log.Log

	health   float64
	gold     int
	defeated bool
	finished bool
	won      bool

	fanfare *timer.Cooldown
	err     error
}

// New creates a player at full health and subscribes it to d.
func New(d *bus.Dispatcher, cfg Config, logger log.Log) (*State, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = log.NewNop()
	}
	s := &State{
		cfg:     cfg,
		bus:     d,
		scope:   bus.NewScope(),
		logger:  logger.With(log.String("component", "player")),
		health:  cfg.MaxHealth,
		gold:    cfg.StartGold,
		fanfare: timer.New(cfg.Fanfare),
	}
	s.fanfare.OnFinished(func() { s.err = errors.Join(s.err, s.finish(true)) })

	err := errors.Join(
		s.scope.Track(bus.Subscribe(d, s.onDamaged)),
		s.scope.Track(bus.Subscribe(d, s.onGoldGained)),
		s.scope.Track(bus.Subscribe(d, s.onGoldWithdrawn)),
		s.scope.Track(bus.Subscribe(d, s.onHUDLoaded)),
		s.scope.Track(bus.Subscribe(d, s.onLevelWon)),
	)
	if err != nil {
		_ = s.scope.Release()
		return nil, err
	}
	return s, nil
}

func (s *State) Name() string              { return "player" }
func (s *State) Priority() system.Priority { return system.PriorityLow }

// Update advances the victory fanfare.
func (s *State) Update(deltaTime time.Duration) error {
	s.err = nil
	s.fanfare.Advance(deltaTime)
	return s.err
}

func (s *State) Health() float64 { return s.health }
func (s *State) Gold() int       { return s.gold }
func (s *State) Defeated() bool  { return s.defeated }

// Finished reports whether LevelFinished was published and with which outcome.
func (s *State) Finished() (finished, won bool) { return s.finished, s.won }

// HealthPercent returns health as a fraction of the maximum.
func (s *State) HealthPercent() float64 { return s.health / s.cfg.MaxHealth }

// Close unsubscribes the player.
func (s *State) Close() error {
	s.fanfare.Stop(true)
	return s.scope.Release()
}

func (s *State) onDamaged(e events.PlayerDamaged) error {
	if s.defeated || s.finished || e.Amount <= 0 {
		return nil
	}
	s.health = min(max(s.health-e.Amount, 0), s.cfg.MaxHealth)
	err := s.bus.Publish(events.HealthUpdated{Percent: s.HealthPercent()})
	if s.health > 0 {
		return err
	}

	s.defeated = true
	s.logger.Info("player defeated")
	return errors.Join(err, s.bus.Publish(events.PlayerDefeated{}), s.finish(false))
}

func (s *State) onGoldGained(e events.GoldGained) error {
	if e.Amount <= 0 {
		return nil
	}
	s.gold += e.Amount
	return s.bus.Publish(events.GoldUpdated{Amount: s.gold})
}

func (s *State) onGoldWithdrawn(e events.GoldWithdrawn) error {
	if e.Amount <= 0 {
		return nil
	}
	s.gold = max(s.gold-e.Amount, 0)
	return s.bus.Publish(events.GoldUpdated{Amount: s.gold})
}

func (s *State) onHUDLoaded(events.PlayerHUDLoaded) error {
	return errors.Join(
		s.bus.Publish(events.HealthUpdated{Percent: s.HealthPercent()}),
		s.bus.Publish(events.GoldUpdated{Amount: s.gold}),
	)
}

func (s *State) onLevelWon(events.LevelWon) error {
	if s.defeated || s.finished || s.fanfare.IsActive() {
		return nil
	}
	s.logger.Info("level won; fanfare started", log.Duration("fanfare", s.cfg.Fanfare))
	s.fanfare.Reset(true)
	return nil
}

func (s *State) finish(won bool) error {
	if s.finished {
		return nil
	}
	s.finished = true
	s.won = won
	return s.bus.Publish(events.LevelFinished{Won: won})
}
