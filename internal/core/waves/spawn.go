package waves

import (
	"fmt"

	"github.com/zeusync/wavecore/internal/core/lifecycle"
)

// SpawnPoint is a discrete location enemies can appear at.
type SpawnPoint struct {
	Name string  `json:"name" yaml:"name"`
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	Z    float64 `json:"z" yaml:"z"`
}

func (p SpawnPoint) String() string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("(%g,%g,%g)", p.X, p.Y, p.Z)
}

// SpawnPointProvider supplies the spawn locations. It is queried on every spawn.
type SpawnPointProvider interface {
	SpawnPoints() []SpawnPoint
}

// StaticSpawnPoints is a fixed set of spawn locations.
type StaticSpawnPoints []SpawnPoint

func (s StaticSpawnPoints) SpawnPoints() []SpawnPoint { return s }

// SpawnFactory creates the entity for one spawn.
type SpawnFactory interface {
	Spawn(kind EnemyKind, at SpawnPoint) (lifecycle.Destroyable, error)
}

// SpawnFactoryFunc adapts a function to SpawnFactory.
type SpawnFactoryFunc func(kind EnemyKind, at SpawnPoint) (lifecycle.Destroyable, error)

func (f SpawnFactoryFunc) Spawn(kind EnemyKind, at SpawnPoint) (lifecycle.Destroyable, error) {
	return f(kind, at)
}
