// Package sim hosts a headless level run: it wires the wave engine to the
// systems around it and drives them with a fixed-step loop.
package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/wavecore/internal/config"
	"github.com/zeusync/wavecore/internal/core/events"
	"github.com/zeusync/wavecore/internal/core/events/bus"
	"github.com/zeusync/wavecore/internal/core/intermission"
	"github.com/zeusync/wavecore/internal/core/lifecycle"
	"github.com/zeusync/wavecore/internal/core/models"
	"github.com/zeusync/wavecore/internal/core/observability/log"
	"github.com/zeusync/wavecore/internal/core/player"
	"github.com/zeusync/wavecore/internal/core/system"
	"github.com/zeusync/wavecore/internal/core/target"
	"github.com/zeusync/wavecore/internal/core/waves"
)

// Run errors
var (
	ErrNotStarted     = errors.New("run not started")
	ErrAlreadyStarted = errors.New("run already started")
	ErrEngineFailed   = errors.New("wave engine failed")
)

// Result summarizes a finished or interrupted run.
type Result struct {
	RunID     string        `json:"run_id"`
	Level     string        `json:"level"`
	Finished  bool          `json:"finished"`
	Won       bool          `json:"won"`
	State     string        `json:"state"`
	Ticks     int           `json:"ticks"`
	Simulated time.Duration `json:"simulated"`
	Spawned   uint64        `json:"spawned"`
	Killed    int           `json:"killed"`
	Leaked    int           `json:"leaked"`
	Wave      int           `json:"wave"`
	Waves     int           `json:"waves"`
	Health    float64       `json:"health"`
	Gold      int           `json:"gold"`
}

// Run is one level played from load to finish.
type Run struct {
	id     string
	cfg    config.Config
	level  *waves.Level
	bus    *bus.Dispatcher
	logger log.Log

	registry *lifecycle.Registry
	factory  *target.Factory
	engine   *waves.Engine
	breaks   *intermission.BreakController
	player   *player.State
	enemies  *enemySystem
	systems  *system.Manager
	scope    *bus.Scope

	started  bool
	closed   bool
	finished bool
	won      bool
	ticks    int
	elapsed  time.Duration
}

// New assembles a run of level on dispatcher d.
func New(cfg config.Config, level *waves.Level, d *bus.Dispatcher, logger log.Log) (*Run, error) {
	if level == nil {
		return nil, fmt.Errorf("%w: %w", waves.ErrInvalidLevel, waves.ErrNilLevel)
	}
	if d == nil {
		return nil, waves.ErrNilDependency
	}
	if logger == nil {
		logger = log.NewNop()
	}
	id := uuid.NewString()
	logger = logger.With(log.String("run", id))

	r := &Run{
		id:       id,
		cfg:      cfg,
		level:    level,
		bus:      d,
		logger:   logger,
		registry: lifecycle.NewRegistry(logger),
		factory:  target.NewFactory(d, models.NewIDSource(), logger),
		systems:  system.NewManager(logger),
		scope:    bus.NewScope(),
	}

	opts := []waves.Option{
		waves.WithLogger(logger),
		waves.WithSpawnImmediately(cfg.Sim.SpawnImmediately),
	}
	if cfg.Sim.Seed != 0 {
		opts = append(opts, waves.WithSeed(cfg.Sim.Seed))
	}
	r.engine = waves.NewEngine(level, waves.StaticSpawnPoints(cfg.SpawnPoints), r.factory, r.registry, d, opts...)
	r.enemies = &enemySystem{
		factory:    r.factory,
		pathLength: level.PathLength,
		dps:        cfg.Sim.DefenseDPS,
	}

	var err error
	if r.breaks, err = intermission.NewBreakController(d, cfg.Break.Duration, logger); err != nil {
		return nil, err
	}
	if r.player, err = player.New(d, cfg.Player, logger); err != nil {
		_ = r.breaks.Close()
		return nil, err
	}

	err = errors.Join(
		r.systems.RegisterSystem(r.enemies),
		r.systems.RegisterSystem(r.engine),
		r.systems.RegisterSystem(r.breaks),
		r.systems.RegisterSystem(r.player),
		r.scope.Track(bus.Subscribe(d, r.onFinished)),
		r.scope.Track(bus.Subscribe(d, r.onSpawned)),
	)
	if err == nil && cfg.Sim.SkipBreaks {
		err = r.scope.Track(bus.Subscribe(d, func(events.BreakStarted) error {
			return d.Publish(events.BreakStopEarly{})
		}))
	}
	if err != nil {
		_ = r.close()
		return nil, err
	}
	return r, nil
}

// ID returns the run's unique ID.
func (r *Run) ID() string { return r.id }

// Engine returns the wave engine.
func (r *Run) Engine() *waves.Engine { return r.engine }

// Registry returns the entity registry of the run.
func (r *Run) Registry() *lifecycle.Registry { return r.registry }

// Systems returns the system manager, so hosts can add their own systems.
func (r *Run) Systems() *system.Manager { return r.systems }

// Player returns the player state.
func (r *Run) Player() *player.State { return r.player }

// Finished reports whether LevelFinished was seen.
func (r *Run) Finished() bool { return r.finished }

// Start initializes the engine and announces the level.
func (r *Run) Start(ctx context.Context) error {
	if r.started {
		return ErrAlreadyStarted
	}
	if err := r.engine.Initialize(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrEngineFailed, err)
	}
	r.started = true
	r.logger.Info("run started",
		log.String("level", r.level.Name),
		log.Int("waves", len(r.level.Waves)),
		log.Int("enemies", r.level.TotalEnemies()),
	)
	return errors.Join(
		r.bus.Publish(events.LevelLoaded{Level: r.level.Name}),
		r.bus.Publish(events.PlayerHUDLoaded{}),
	)
}

// Step advances every system by one tick of deltaTime.
func (r *Run) Step(deltaTime time.Duration) error {
	if !r.started {
		return ErrNotStarted
	}
	r.ticks++
	r.elapsed += deltaTime
	return r.systems.Update(deltaTime)
}

// RunUntilDone steps with the configured tick until the level finishes, ctx
// ends or maxTicks steps were taken. With realtime pacing every step waits
// for the next wall-clock tick. Step errors are logged and the run goes
// on; a failed engine ends it.
func (r *Run) RunUntilDone(ctx context.Context, maxTicks int) (Result, error) {
	if !r.started {
		if err := r.Start(ctx); err != nil {
			return r.Result(), err
		}
	}
	tick := r.cfg.Sim.Tick
	var pace <-chan time.Time
	if r.cfg.Sim.Realtime {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		pace = ticker.C
	}
	for i := 0; i < maxTicks && !r.finished; i++ {
		if err := ctx.Err(); err != nil {
			return r.Result(), err
		}
		if pace != nil {
			select {
			case <-ctx.Done():
				return r.Result(), ctx.Err()
			case <-pace:
			}
		}
		if err := r.Step(tick); err != nil {
			r.logger.Warn("tick reported errors", log.Int("tick", r.ticks), log.Error(err))
		}
		if r.engine.State() == waves.StateFailed {
			return r.Result(), ErrEngineFailed
		}
	}
	result := r.Result()
	r.logger.Info("run ended",
		log.Bool("finished", result.Finished),
		log.Bool("won", result.Won),
		log.Int("ticks", result.Ticks),
		log.Uint64("spawned", result.Spawned),
	)
	return result, nil
}

// Result reports the current outcome.
func (r *Run) Result() Result {
	return Result{
		RunID:     r.id,
		Level:     r.level.Name,
		Finished:  r.finished,
		Won:       r.won,
		State:     r.engine.State().String(),
		Ticks:     r.ticks,
		Simulated: r.elapsed,
		Spawned:   r.engine.SpawnedTotal(),
		Killed:    r.enemies.killed,
		Leaked:    r.enemies.leaked,
		Wave:      min(r.engine.Cursor().Wave+1, len(r.level.Waves)),
		Waves:     len(r.level.Waves),
		Health:    r.player.Health(),
		Gold:      r.player.Gold(),
	}
}

// Close tears the run down. The dispatcher stays open; it belongs to the caller.
func (r *Run) Close(ctx context.Context) error {
	if r.closed {
		return nil
	}
	return errors.Join(r.engine.Shutdown(ctx), r.close())
}

func (r *Run) close() error {
	r.closed = true
	var errs []error
	errs = append(errs, r.scope.Release())
	if r.breaks != nil {
		errs = append(errs, r.breaks.Close())
	}
	if r.player != nil {
		errs = append(errs, r.player.Close())
	}
	return errors.Join(errs...)
}

func (r *Run) onFinished(e events.LevelFinished) error {
	r.finished = true
	r.won = e.Won
	return nil
}

func (r *Run) onSpawned(e events.EnemySpawned) error {
	if r.cfg.Sim.SlowDuration <= 0 || r.cfg.Sim.SlowFactor >= 1 {
		return nil
	}
	if enemy, ok := r.factory.Lookup(e.ID); ok {
		target.TrySlow(enemy, r.cfg.Sim.SlowFactor, r.cfg.Sim.SlowDuration)
	}
	return nil
}
