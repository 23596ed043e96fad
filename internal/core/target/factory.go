package target

import (
	"fmt"
	"slices"

	"github.com/zeusync/wavecore/internal/core/events/bus"
	"github.com/zeusync/wavecore/internal/core/lifecycle"
	"github.com/zeusync/wavecore/internal/core/models"
	"github.com/zeusync/wavecore/internal/core/observability/log"
	"github.com/zeusync/wavecore/internal/core/waves"
)

var _ waves.SpawnFactory = (*Factory)(nil)

// Factory creates enemies for the wave engine and keeps the ones still on
// the field so the host can move and damage them.
type Factory struct {
	ids    *models.IDSource
	bus    *bus.Dispatcher
	live   map[models.EntityID]*Enemy
	logger log.Log
}

// NewFactory creates a factory publishing through d.
func NewFactory(d *bus.Dispatcher, ids *models.IDSource, logger log.Log) *Factory {
	if ids == nil {
		ids = models.NewIDSource()
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Factory{
		ids:    ids,
		bus:    d,
		live:   make(map[models.EntityID]*Enemy),
		logger: logger.With(log.String("component", "target")),
	}
}

// Spawn implements waves.SpawnFactory.
func (f *Factory) Spawn(kind waves.EnemyKind, at waves.SpawnPoint) (lifecycle.Destroyable, error) {
	if err := kind.Validate(); err != nil {
		return nil, fmt.Errorf("enemy %q: %w", kind.Name, err)
	}
	e, err := NewEnemy(f.ids.Next(), kind, at, f.bus)
	if err != nil {
		return nil, fmt.Errorf("create enemy %q: %w", kind.Name, err)
	}
	f.live[e.ID()] = e
	e.OnDestroyed(func(lifecycle.Destroyable) {
		delete(f.live, e.ID())
		f.logger.Debug("enemy left the field",
			log.Stringer("id", e.ID()),
			log.String("enemy", kind.Name),
			log.Stringer("cause", e.Cause()),
		)
	})
	return e, nil
}

// Lookup returns the live enemy with id.
func (f *Factory) Lookup(id models.EntityID) (*Enemy, bool) {
	e, ok := f.live[id]
	return e, ok
}

// Live returns the enemies still on the field ordered by ID.
func (f *Factory) Live() []*Enemy {
	out := make([]*Enemy, 0, len(f.live))
	for _, e := range f.live {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *Enemy) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		default:
			return 0
		}
	})
	return out
}

// Issued returns how many enemies the factory created.
func (f *Factory) Issued() uint64 {
	return f.ids.Issued()
}
