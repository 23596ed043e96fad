// Package target holds the spawned enemies the wave engine tracks and the
// optional capabilities effects can query them for.
package target

import (
	"time"

	"github.com/zeusync/wavecore/internal/core/lifecycle"
)

// Targetable is anything towers can damage.
type Targetable interface {
	lifecycle.Destroyable
	Health() float64
	Alive() bool
	// Hit applies damage and reports whether it was lethal.
	Hit(damage float64) bool
}

// SpeedModifier is implemented by targets whose movement can be slowed.
type SpeedModifier interface {
	// ApplySlow multiplies the base speed by factor for duration. A new
	// slow replaces the running one.
	ApplySlow(factor float64, duration time.Duration)
	Speed() float64
}

// TrySlow applies a slow when t supports speed modification and is alive.
// It reports whether the slow was applied.
func TrySlow(t Targetable, factor float64, duration time.Duration) bool {
	if t == nil || !t.Alive() {
		return false
	}
	m, ok := t.(SpeedModifier)
	if !ok {
		return false
	}
	m.ApplySlow(factor, duration)
	return true
}

// Cause tells why an enemy left the field.
type Cause uint8

const (
	CauseNone Cause = iota
	CauseKilled
	CauseReachedGoal
	CauseCleared
)

func (c Cause) String() string {
	switch c {
	case CauseKilled:
		return "killed"
	case CauseReachedGoal:
		return "reached_goal"
	case CauseCleared:
		return "cleared"
	default:
		return "none"
	}
}
