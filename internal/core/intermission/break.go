// Package intermission runs the break countdown between waves.
package intermission

import (
	"errors"
	"math"
	"time"

	"github.com/zeusync/wavecore/internal/core/events"
	"github.com/zeusync/wavecore/internal/core/events/bus"
	"github.com/zeusync/wavecore/internal/core/observability/log"
	"github.com/zeusync/wavecore/internal/core/system"
	"github.com/zeusync/wavecore/internal/core/timer"
)

// DefaultBreakDuration is the length of a break unless configured otherwise.
const DefaultBreakDuration = 60 * time.Second

var _ system.System = (*BreakController)(nil)

// BreakController starts a break when the level loads or a wave is cleared
// and announces its end, either on expiry or when skipped early.
type BreakController struct {
	bus    *bus.Dispatcher
	timer  *timer.Cooldown
	scope  *bus.Scope
	logger log.Log

	lastSeconds int
	breaks      int
	err         error
}

// NewBreakController subscribes the controller to d. Non-positive durations
// fall back to DefaultBreakDuration.
func NewBreakController(d *bus.Dispatcher, duration time.Duration, logger log.Log) (*BreakController, error) {
	if duration <= 0 {
		duration = DefaultBreakDuration
	}
	if logger == nil {
		logger = log.NewNop()
	}
	c := &BreakController{
		bus:         d,
		timer:       timer.New(duration),
		scope:       bus.NewScope(),
		logger:      logger.With(log.String("component", "intermission")),
		lastSeconds: -1,
	}
	c.timer.OnRunning(c.onRunning)
	c.timer.OnFinished(func() { c.err = errors.Join(c.err, c.stop()) })

	err := errors.Join(
		c.scope.Track(bus.Subscribe(d, func(events.LevelLoaded) error { return c.start() })),
		c.scope.Track(bus.Subscribe(d, func(events.BreakQueued) error { return c.start() })),
		c.scope.Track(bus.Subscribe(d, func(events.BreakStopEarly) error {
			if !c.timer.IsActive() {
				return nil
			}
			c.timer.Reset(false)
			return c.stop()
		})),
	)
	if err != nil {
		_ = c.scope.Release()
		return nil, err
	}
	return c, nil
}

func (c *BreakController) Name() string              { return "intermission" }
func (c *BreakController) Priority() system.Priority { return system.PriorityNormal }

// Update advances the break countdown.
func (c *BreakController) Update(deltaTime time.Duration) error {
	c.err = nil
	c.timer.Advance(deltaTime)
	return c.err
}

// OnBreak reports whether a break is running.
func (c *BreakController) OnBreak() bool { return c.timer.IsActive() }

// Remaining returns the time left in the running break.
func (c *BreakController) Remaining() time.Duration { return c.timer.Remaining() }

// Breaks returns how many breaks were started.
func (c *BreakController) Breaks() int { return c.breaks }

// Close unsubscribes the controller and stops a running break silently.
func (c *BreakController) Close() error {
	c.timer.Stop(true)
	return c.scope.Release()
}

func (c *BreakController) start() error {
	c.timer.Reset(true)
	c.breaks++
	c.lastSeconds = -1
	c.logger.Debug("break started", log.Duration("duration", c.timer.Duration()))
	return c.bus.Publish(events.BreakStarted{})
}

func (c *BreakController) stop() error {
	c.logger.Debug("break stopped", log.Int("breaks", c.breaks))
	return c.bus.Publish(events.BreakStopped{})
}

func (c *BreakController) onRunning(remaining time.Duration) {
	seconds := int(math.Ceil(remaining.Seconds()))
	if seconds == c.lastSeconds {
		return
	}
	c.lastSeconds = seconds
	c.err = errors.Join(c.err, c.bus.Publish(events.BreakTimeUpdated{Seconds: seconds}))
}
