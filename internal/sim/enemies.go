package sim

import (
	"errors"
	"time"

	"github.com/zeusync/wavecore/internal/core/system"
	"github.com/zeusync/wavecore/internal/core/target"
)

var _ system.System = (*enemySystem)(nil)

// enemySystem moves every live enemy and applies the defense damage. Enemies
// that walk the whole path reach the goal.
type enemySystem struct {
	factory    *target.Factory
	pathLength float64
	dps        float64

	killed int
	leaked int
}

func (s *enemySystem) Name() string              { return "enemies" }
func (s *enemySystem) Priority() system.Priority { return system.PriorityHighest }

func (s *enemySystem) Update(deltaTime time.Duration) error {
	var errs []error
	for _, e := range s.factory.Live() {
		if !e.Alive() {
			continue
		}
		e.Update(deltaTime)
		if e.Progress() >= s.pathLength {
			s.leaked++
			errs = append(errs, e.ReachGoal())
			continue
		}
		if e.Hit(s.dps * deltaTime.Seconds()) {
			s.killed++
		}
	}
	return errors.Join(errs...)
}
