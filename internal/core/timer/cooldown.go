// Package timer provides a cooperative countdown advanced by the host tick.
package timer

import (
	"time"
)

// Cooldown is a tick-driven countdown with two states, stopped and running.
// It never reads the wall clock: time only moves through Advance.
//
// On expiry a non-looping cooldown stops; a looping one restarts. In both
// cases the accumulated time is reset and the finished callbacks run exactly
// once, after the state change, so a callback may Start, Stop or reprogram the
// cooldown.
type Cooldown struct {
	duration time.Duration
	elapsed  time.Duration
	loop     bool
	active   bool

	finished []*hook[func()]
	running  []*hook[func(remaining time.Duration)]
}

type hook[F any] struct {
	fn      F
	removed bool
}

// Option configures a Cooldown built with New.
type Option func(*Cooldown)

// WithLoop makes the cooldown restart itself after every expiry.
func WithLoop(loop bool) Option {
	return func(c *Cooldown) { c.loop = loop }
}

// WithAutoStart starts the cooldown immediately.
func WithAutoStart(start bool) Option {
	return func(c *Cooldown) { c.active = start }
}

// New creates a stopped, non-looping cooldown unless options say otherwise.
func New(duration time.Duration, opts ...Option) *Cooldown {
	c := &Cooldown{}
	c.SetDuration(duration)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize reconfigures the cooldown. Accumulated time is kept.
func (c *Cooldown) Initialize(duration time.Duration, loop, autoStart bool) {
	c.SetDuration(duration)
	c.loop = loop
	if autoStart {
		c.Start()
	}
}

// Start moves the cooldown to running. Starting a running cooldown does nothing.
func (c *Cooldown) Start() {
	c.active = true
}

// Stop moves the cooldown to stopped, optionally discarding accumulated time.
func (c *Cooldown) Stop(reset bool) {
	c.active = false
	if reset {
		c.elapsed = 0
	}
}

// Reset discards accumulated time and leaves the cooldown running when
// restart is true, stopped otherwise.
func (c *Cooldown) Reset(restart bool) {
	c.elapsed = 0
	c.active = restart
}

// SetDuration changes the wait time without touching state or accumulated
// time. Negative durations are clamped to zero.
func (c *Cooldown) SetDuration(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.duration = d
}

// SetLoop toggles looping without touching state or accumulated time.
func (c *Cooldown) SetLoop(loop bool) {
	c.loop = loop
}

// Advance moves time forward by delta. It only has an effect while running.
// It reports whether the cooldown expired during this call.
func (c *Cooldown) Advance(delta time.Duration) bool {
	if !c.active {
		return false
	}
	if delta > 0 {
		c.elapsed += delta
	}

	if c.elapsed < c.duration {
		remaining := c.duration - c.elapsed
		for _, h := range snapshot(c.running) {
			if !h.removed {
				h.fn(remaining)
			}
		}
		return false
	}

	c.elapsed = 0
	if !c.loop {
		c.active = false
	}
	for _, h := range snapshot(c.finished) {
		if !h.removed {
			h.fn()
		}
	}
	return true
}

// OnFinished registers fn to run after every expiry. The returned function
// unregisters it; calling it more than once is safe.
func (c *Cooldown) OnFinished(fn func()) (release func()) {
	h := &hook[func()]{fn: fn}
	c.finished = append(c.finished, h)
	return func() { c.finished = drop(c.finished, h) }
}

// OnRunning registers fn to run on every Advance that does not expire the
// cooldown, with the time left.
func (c *Cooldown) OnRunning(fn func(remaining time.Duration)) (release func()) {
	h := &hook[func(time.Duration)]{fn: fn}
	c.running = append(c.running, h)
	return func() { c.running = drop(c.running, h) }
}

// IsActive reports whether the cooldown is running.
func (c *Cooldown) IsActive() bool { return c.active }

// IsLooping reports whether the cooldown restarts after expiry.
func (c *Cooldown) IsLooping() bool { return c.loop }

// Duration returns the configured wait time.
func (c *Cooldown) Duration() time.Duration { return c.duration }

// Elapsed returns the time accumulated since the last reset or expiry.
func (c *Cooldown) Elapsed() time.Duration { return c.elapsed }

// Remaining returns max(duration - elapsed, 0).
func (c *Cooldown) Remaining() time.Duration {
	if c.elapsed >= c.duration {
		return 0
	}
	return c.duration - c.elapsed
}

func snapshot[T any](hooks []*hook[T]) []*hook[T] {
	if len(hooks) == 0 {
		return nil
	}
	out := make([]*hook[T], len(hooks))
	copy(out, hooks)
	return out
}

func drop[T any](hooks []*hook[T], target *hook[T]) []*hook[T] {
	target.removed = true
	out := hooks[:0:0]
	for _, h := range hooks {
		if h != target {
			out = append(out, h)
		}
	}
	return out
}
