package waves

import (
	"fmt"
	"time"
)

// EnemyKind is the spawn template referenced by enemy groups.
type EnemyKind struct {
	Name       string  `json:"name" yaml:"name"`
	Health     float64 `json:"health" yaml:"health"`
	Speed      float64 `json:"speed" yaml:"speed"`
	GoalDamage float64 `json:"goal_damage" yaml:"goal_damage"`
	Reward     int     `json:"reward" yaml:"reward"`
}

// Validate rejects templates no enemy can be built from: health must be
// positive, speed and goal damage non-negative.
func (k EnemyKind) Validate() error {
	switch {
	case k.Health <= 0:
		return fmt.Errorf("%w: health %g", ErrInvalidEnemyKind, k.Health)
	case k.Speed < 0:
		return fmt.Errorf("%w: speed %g", ErrInvalidEnemyKind, k.Speed)
	case k.GoalDamage < 0:
		return fmt.Errorf("%w: goal damage %g", ErrInvalidEnemyKind, k.GoalDamage)
	}
	return nil
}

// EnemyGroup spawns Count enemies of one kind back to back.
type EnemyGroup struct {
	Enemy string `json:"enemy" yaml:"enemy"`
	Count int    `json:"count" yaml:"count"`
}

// Wave is an ordered batch of enemy groups spawned before a break.
type Wave struct {
	Groups []EnemyGroup `json:"groups" yaml:"groups"`
}

// Count returns the number of enemies the wave spawns.
func (w Wave) Count() int {
	total := 0
	for _, g := range w.Groups {
		total += g.Count
	}
	return total
}

// Level is the immutable description of a run. SpawnIntervals[i] paces the
// spawns of Waves[i].
type Level struct {
	Name           string               `json:"name" yaml:"name"`
	PathLength     float64              `json:"path_length" yaml:"path_length"`
	Enemies        map[string]EnemyKind `json:"enemies" yaml:"enemies"`
	Waves          []Wave               `json:"waves" yaml:"waves"`
	SpawnIntervals []time.Duration      `json:"spawn_intervals" yaml:"spawn_intervals"`
}

// TotalEnemies returns the number of spawns a full run produces.
func (l *Level) TotalEnemies() int {
	total := 0
	for _, w := range l.Waves {
		total += w.Count()
	}
	return total
}

// Kind resolves a group's enemy kind. The returned kind always carries its
// name, even when the table entry omits it.
func (l *Level) Kind(name string) (EnemyKind, bool) {
	kind, ok := l.Enemies[name]
	if !ok {
		return EnemyKind{}, false
	}
	if kind.Name == "" {
		kind.Name = name
	}
	return kind, true
}

// Validate checks the structural invariants the engine relies on.
func (l *Level) Validate() error {
	if l == nil {
		return fmt.Errorf("%w: %w", ErrInvalidLevel, ErrNilLevel)
	}
	if len(l.Waves) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidLevel, ErrNoWaves)
	}
	if len(l.SpawnIntervals) != len(l.Waves) {
		return fmt.Errorf("%w: %w: %d intervals for %d waves",
			ErrInvalidLevel, ErrIntervalMismatch, len(l.SpawnIntervals), len(l.Waves))
	}
	for i, interval := range l.SpawnIntervals {
		if interval < 0 {
			return fmt.Errorf("%w: %w: wave %d", ErrInvalidLevel, ErrNegativeInterval, i)
		}
	}
	for wi, w := range l.Waves {
		if len(w.Groups) == 0 {
			return fmt.Errorf("%w: %w: wave %d", ErrInvalidLevel, ErrEmptyWave, wi)
		}
		for gi, g := range w.Groups {
			if g.Count <= 0 {
				return fmt.Errorf("%w: %w: wave %d group %d has %d",
					ErrInvalidLevel, ErrInvalidGroupCount, wi, gi, g.Count)
			}
			kind, ok := l.Enemies[g.Enemy]
			if !ok {
				return fmt.Errorf("%w: %w: %q in wave %d group %d",
					ErrInvalidLevel, ErrUnknownEnemy, g.Enemy, wi, gi)
			}
			if err := kind.Validate(); err != nil {
				return fmt.Errorf("%w: %q: %w", ErrInvalidLevel, g.Enemy, err)
			}
		}
	}
	return nil
}
