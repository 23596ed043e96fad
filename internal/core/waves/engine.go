package waves

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/wavecore/internal/core/events"
	"github.com/zeusync/wavecore/internal/core/events/bus"
	"github.com/zeusync/wavecore/internal/core/lifecycle"
	"github.com/zeusync/wavecore/internal/core/observability/log"
	"github.com/zeusync/wavecore/internal/core/system"
	"github.com/zeusync/wavecore/internal/core/timer"
)

var _ system.System = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l log.Log) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRand sets the random source used to pick spawn points.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) {
		if r != nil {
			e.rng = r
		}
	}
}

// WithSeed seeds the spawn point selection. Without it the seed is derived
// from the level name, so identical levels replay identically.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithSpawnImmediately starts spawning as soon as the engine is initialized
// instead of waiting for the first break to end.
func WithSpawnImmediately(enabled bool) Option {
	return func(e *Engine) {
		e.spawnImmediately = enabled
	}
}

// Engine paces enemy spawning across the waves of a level and drives the
// wave cleared / break / level won transitions. It is owned by exactly one
// level run and must be driven from a single goroutine.
type Engine struct {
	level    *Level
	spawns   SpawnPointProvider
	factory  SpawnFactory
	registry *lifecycle.Registry
	bus      *bus.Dispatcher

	timer        *timer.Cooldown
	releaseTimer func()
	scope        *bus.Scope
	rng          *rand.Rand
	logger       log.Log

	cursor            Cursor
	state             State
	allSpawnedForWave bool
	playerDefeated    bool
	spawned           atomic.Uint64

	initialized      bool
	shutdown         bool
	spawnImmediately bool
	spawnErr         error
}

// NewEngine creates an engine for one level run. Initialize must be called
// before the first Update.
func NewEngine(
	level *Level,
	spawns SpawnPointProvider,
	factory SpawnFactory,
	registry *lifecycle.Registry,
	dispatcher *bus.Dispatcher,
	opts ...Option,
) *Engine {
	e := &Engine{
		level:    level,
		spawns:   spawns,
		factory:  factory,
		registry: registry,
		bus:      dispatcher,
		scope:    bus.NewScope(),
		logger:   log.NewNop(),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		seed := uint64(0)
		if level != nil {
			seed = xxhash.Sum64String(level.Name)
		}
		WithSeed(seed)(e)
	}
	e.logger = e.logger.With(log.String("component", "waves"))
	return e
}

// Name implements system.System.
func (e *Engine) Name() string { return "waves" }

// Priority implements system.System.
func (e *Engine) Priority() system.Priority { return system.PriorityHigh }

// Initialize validates the configuration, programs the spawn timer and
// subscribes to the events the engine consumes. A configuration error is
// fatal: the engine moves to StateFailed and never spawns.
func (e *Engine) Initialize(ctx context.Context) error {
	if e.initialized {
		return ErrAlreadyInitialized
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.validate(); err != nil {
		e.state = StateFailed
		e.logger.Error("wave engine configuration rejected", log.Error(err))
		return err
	}

	e.timer = timer.New(e.level.SpawnIntervals[0], timer.WithLoop(true))
	e.releaseTimer = e.timer.OnFinished(e.spawnNext)

	err := errors.Join(
		e.scope.Track(bus.Subscribe(e.bus, e.onBreakStopped)),
		e.scope.Track(bus.Subscribe(e.bus, e.onPlayerDefeated)),
		e.scope.Track(bus.Subscribe(e.bus, e.onHUDLoaded)),
	)
	if err != nil {
		_ = e.scope.Release()
		e.releaseTimer()
		e.state = StateFailed
		e.logger.Error("wave engine subscription failed", log.Error(err))
		return fmt.Errorf("subscribe wave engine: %w", err)
	}

	e.initialized = true
	e.logger.Info("wave engine initialized",
		log.String("level", e.level.Name),
		log.Int("waves", len(e.level.Waves)),
		log.Int("enemies", e.level.TotalEnemies()),
	)
	if e.spawnImmediately {
		e.resume()
	}
	return nil
}

func (e *Engine) validate() error {
	if e.level == nil {
		return fmt.Errorf("%w: %w", ErrInvalidLevel, ErrNilLevel)
	}
	if e.spawns == nil || e.factory == nil || e.registry == nil || e.bus == nil {
		return ErrNilDependency
	}
	if err := e.level.Validate(); err != nil {
		return err
	}
	if len(e.spawns.SpawnPoints()) == 0 {
		return ErrNoSpawnPoints
	}
	return nil
}

// Update advances the spawn timer by deltaTime and runs the cleared-wave
// check. It returns the error of a failed spawn attempt, if any; the
// attempt is repeated on the next timer expiry.
func (e *Engine) Update(deltaTime time.Duration) error {
	if !e.initialized {
		if e.state == StateFailed {
			return nil
		}
		return ErrNotInitialized
	}
	if e.shutdown {
		return nil
	}
	e.spawnErr = nil
	e.timer.Advance(deltaTime)
	return errors.Join(e.spawnErr, e.CheckCleared())
}

// CheckCleared publishes the consequences of a cleared wave exactly once per
// wave boundary: LevelWon after the last wave, BreakQueued and a wave
// counter update otherwise.
func (e *Engine) CheckCleared() error {
	if !e.allSpawnedForWave || e.playerDefeated {
		return nil
	}
	active := e.registry.ActiveCount()
	if active < 0 {
		panic(fmt.Sprintf("waves: negative active entity count %d", active))
	}
	if active > 0 {
		return nil
	}

	e.allSpawnedForWave = false
	total := len(e.level.Waves)
	if e.cursor.Wave >= total {
		e.state = StateLevelWon
		e.logger.Info("level won", log.String("level", e.level.Name), log.Uint64("spawned", e.SpawnedTotal()))
		return e.publish(events.LevelWon{})
	}

	e.state = StateOnBreak
	e.logger.Info("wave cleared", log.Int("wave", e.cursor.Wave), log.Int("waves", total))
	return errors.Join(
		e.publish(events.BreakQueued{}),
		e.publish(events.WaveUpdated{Current: e.cursor.Wave + 1, Max: total}),
	)
}

// Shutdown releases subscriptions, stops the timer and drops every tracked
// entity. It is safe to call more than once.
func (e *Engine) Shutdown(ctx context.Context) error {
	if e.shutdown {
		return nil
	}
	e.shutdown = true
	err := e.scope.Release()
	if e.timer != nil {
		e.timer.Stop(true)
	}
	if e.releaseTimer != nil {
		e.releaseTimer()
	}
	if e.registry != nil {
		cleared := e.registry.ClearAll()
		e.logger.Debug("wave engine shut down", log.Int("cleared", cleared))
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

// State returns the progression state.
func (e *Engine) State() State { return e.state }

// Cursor returns the current position in the spawn sequence.
func (e *Engine) Cursor() Cursor { return e.cursor }

// AllSpawnedForWave reports whether the current wave is fully spawned and
// waiting to be cleared.
func (e *Engine) AllSpawnedForWave() bool { return e.allSpawnedForWave }

// PlayerDefeated reports whether the run was lost.
func (e *Engine) PlayerDefeated() bool { return e.playerDefeated }

// SpawnedTotal returns the number of successful spawns so far.
func (e *Engine) SpawnedTotal() uint64 { return e.spawned.Load() }

// Level returns the level the engine runs.
func (e *Engine) Level() *Level { return e.level }

// Timer exposes the spawn timer for inspection.
func (e *Engine) Timer() *timer.Cooldown { return e.timer }

func (e *Engine) resume() {
	e.timer.Reset(true)
	e.state = StateSpawning
	e.logger.Debug("spawning resumed",
		log.Int("wave", e.cursor.Wave),
		log.Duration("interval", e.timer.Duration()),
	)
}

func (e *Engine) spawnNext() {
	if e.playerDefeated || e.state != StateSpawning {
		e.timer.Stop(false)
		return
	}
	e.assertCursor()

	points := e.spawns.SpawnPoints()
	if len(points) == 0 {
		e.timer.Stop(true)
		e.state = StateFailed
		e.spawnErr = ErrNoSpawnPoints
		e.logger.Error("spawn point provider returned no points; halting", log.Stringer("cursor", e.cursor))
		return
	}
	at := points[e.rng.IntN(len(points))]

	group := e.level.Waves[e.cursor.Wave].Groups[e.cursor.Group]
	kind, _ := e.level.Kind(group.Enemy)

	entity, err := e.factory.Spawn(kind, at)
	if err == nil && entity == nil {
		err = lifecycle.ErrNilEntity
	}
	if err != nil {
		e.spawnErr = fmt.Errorf("spawn %s at %s: %w", kind.Name, at, err)
		e.logger.Warn("spawn failed; retrying on next expiry",
			log.String("enemy", kind.Name),
			log.Stringer("cursor", e.cursor),
			log.Error(err),
		)
		return
	}
	if err = e.registry.Register(entity); err != nil {
		panic(fmt.Sprintf("waves: register spawned entity %s: %v", entity.ID(), err))
	}
	e.spawned.Add(1)

	wave := e.cursor.Wave
	e.advance()

	if err = e.publish(events.EnemySpawned{
		ID:    entity.ID(),
		Kind:  kind.Name,
		Point: at.String(),
		Wave:  wave + 1,
	}); err != nil {
		e.spawnErr = err
	}
}

func (e *Engine) advance() {
	groups := e.level.Waves[e.cursor.Wave].Groups

	e.cursor.Count++
	if e.cursor.Count >= groups[e.cursor.Group].Count {
		e.cursor.Count = 0
		e.cursor.Group++
	}
	if e.cursor.Group >= len(groups) {
		e.cursor.Group = 0
		e.cursor.Wave++
		e.timer.Stop(false)
		if e.cursor.Wave < len(e.level.Waves) {
			e.timer.SetDuration(e.level.SpawnIntervals[e.cursor.Wave])
		}
		e.allSpawnedForWave = true
		e.logger.Debug("wave fully spawned", log.Int("wave", e.cursor.Wave-1))
	}
	e.assertCursor()
}

// assertCursor panics when the cursor leaves the structural bounds of the level.
func (e *Engine) assertCursor() {
	c := e.cursor
	waves := e.level.Waves
	if c.Wave < 0 || c.Wave > len(waves) {
		panic(fmt.Sprintf("waves: cursor %s out of bounds (%d waves)", c, len(waves)))
	}
	if c.Wave == len(waves) {
		if c.Group != 0 || c.Count != 0 {
			panic(fmt.Sprintf("waves: cursor %s past the last wave", c))
		}
		return
	}
	groups := waves[c.Wave].Groups
	if c.Group < 0 || c.Group >= len(groups) {
		panic(fmt.Sprintf("waves: cursor %s out of bounds (%d groups)", c, len(groups)))
	}
	if c.Count < 0 || c.Count >= groups[c.Group].Count {
		panic(fmt.Sprintf("waves: cursor %s out of bounds (group count %d)", c, groups[c.Group].Count))
	}
}

func (e *Engine) publish(event bus.Event) error {
	if err := e.bus.Publish(event); err != nil {
		e.logger.Warn("event delivery reported errors", log.String("event", event.Name()), log.Error(err))
		return err
	}
	return nil
}

func (e *Engine) onBreakStopped(events.BreakStopped) error {
	if e.state != StateIdle && e.state != StateOnBreak {
		e.logger.Debug("break stop ignored", log.Stringer("state", e.state))
		return nil
	}
	if e.cursor.Wave >= len(e.level.Waves) {
		return nil
	}
	e.resume()
	return nil
}

func (e *Engine) onPlayerDefeated(events.PlayerDefeated) error {
	if e.playerDefeated {
		return nil
	}
	e.playerDefeated = true
	e.timer.Stop(false)
	if e.state != StateLevelWon {
		e.state = StatePlayerDefeated
	}
	e.logger.Info("player defeated; spawning halted", log.Stringer("cursor", e.cursor))
	return nil
}

func (e *Engine) onHUDLoaded(events.PlayerHUDLoaded) error {
	total := len(e.level.Waves)
	return e.bus.Publish(events.WaveUpdated{Current: min(e.cursor.Wave+1, total), Max: total})
}
