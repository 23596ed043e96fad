package target

import (
	"time"

	"github.com/zeusync/wavecore/internal/core/events"
	"github.com/zeusync/wavecore/internal/core/events/bus"
	"github.com/zeusync/wavecore/internal/core/lifecycle"
	"github.com/zeusync/wavecore/internal/core/models"
	"github.com/zeusync/wavecore/internal/core/timer"
	"github.com/zeusync/wavecore/internal/core/waves"
)

var (
	_ Targetable    = (*Enemy)(nil)
	_ SpeedModifier = (*Enemy)(nil)
)

type destroyHook struct {
	fn      func(lifecycle.Destroyable)
	removed bool
}

// Enemy is a spawned walker. It leaves the field exactly once: killed,
// reaching the goal, or cleared when the player is defeated.
type Enemy struct {
	id        models.EntityID
	kind      waves.EnemyKind
	spawnedAt waves.SpawnPoint
	bus       *bus.Dispatcher
	scope     *bus.Scope

	health   float64
	progress float64

	slow       *timer.Cooldown
	slowFactor float64

	cause Cause
	hooks []*destroyHook
}

// NewEnemy creates an enemy of kind and subscribes it to PlayerDefeated so a
// lost run clears it from the field.
func NewEnemy(id models.EntityID, kind waves.EnemyKind, at waves.SpawnPoint, d *bus.Dispatcher) (*Enemy, error) {
	e := &Enemy{
		id:         id,
		kind:       kind,
		spawnedAt:  at,
		bus:        d,
		scope:      bus.NewScope(),
		health:     kind.Health,
		slow:       timer.New(0),
		slowFactor: 1,
	}
	e.slow.OnFinished(func() { e.slowFactor = 1 })

	if err := e.scope.Track(bus.Subscribe(d, func(events.PlayerDefeated) error {
		e.destroy(CauseCleared)
		return nil
	})); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Enemy) ID() models.EntityID          { return e.id }
func (e *Enemy) Kind() waves.EnemyKind        { return e.kind }
func (e *Enemy) SpawnPoint() waves.SpawnPoint { return e.spawnedAt }
func (e *Enemy) Health() float64              { return e.health }
func (e *Enemy) Progress() float64            { return e.progress }
func (e *Enemy) Alive() bool                  { return e.cause == CauseNone }
func (e *Enemy) Cause() Cause                 { return e.cause }

// Speed returns the current speed with any running slow applied.
func (e *Enemy) Speed() float64 {
	return e.kind.Speed * e.slowFactor
}

// ApplySlow implements SpeedModifier. Factors are clamped to [0, 1].
func (e *Enemy) ApplySlow(factor float64, duration time.Duration) {
	if !e.Alive() {
		return
	}
	e.slowFactor = min(max(factor, 0), 1)
	e.slow.SetDuration(duration)
	e.slow.Reset(true)
}

// Slowed reports whether a slow is running.
func (e *Enemy) Slowed() bool { return e.slow.IsActive() }

// Update advances the slow effect and moves the enemy along its path.
func (e *Enemy) Update(deltaTime time.Duration) {
	if !e.Alive() {
		return
	}
	e.progress += e.Speed() * deltaTime.Seconds()
	e.slow.Advance(deltaTime)
}

// Hit implements Targetable. A lethal hit pays the kind's reward.
func (e *Enemy) Hit(damage float64) bool {
	if !e.Alive() || damage <= 0 {
		return false
	}
	e.health -= damage
	if e.health > 0 {
		return false
	}
	e.health = 0
	e.destroy(CauseKilled)
	// Reward delivery failures belong to the gold handlers, the kill stands.
	_ = e.bus.Publish(events.GoldGained{Amount: e.kind.Reward})
	return true
}

// ReachGoal removes the enemy and damages the player. The enemy is gone
// before the damage is delivered, so a resulting defeat never sees it.
func (e *Enemy) ReachGoal() error {
	if !e.Alive() {
		return nil
	}
	e.destroy(CauseReachedGoal)
	return e.bus.Publish(events.PlayerDamaged{Amount: e.kind.GoalDamage})
}

// Destroy removes the enemy without reward or damage.
func (e *Enemy) Destroy() {
	e.destroy(CauseCleared)
}

// OnDestroyed implements lifecycle.Destroyable. fn runs at most once; on an
// already destroyed enemy it runs immediately.
func (e *Enemy) OnDestroyed(fn func(lifecycle.Destroyable)) (release func()) {
	if !e.Alive() {
		fn(e)
		return func() {}
	}
	h := &destroyHook{fn: fn}
	e.hooks = append(e.hooks, h)
	return func() { h.removed = true }
}

func (e *Enemy) destroy(cause Cause) {
	if !e.Alive() {
		return
	}
	e.cause = cause
	e.slow.Stop(true)
	_ = e.scope.Release()

	hooks := e.hooks
	e.hooks = nil
	for _, h := range hooks {
		if !h.removed {
			h.removed = true
			h.fn(e)
		}
	}
}
