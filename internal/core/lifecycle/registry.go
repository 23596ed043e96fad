// Package lifecycle tracks spawned entities from spawn until they report
// their own destruction.
package lifecycle

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/zeusync/wavecore/internal/core/models"
	"github.com/zeusync/wavecore/internal/core/observability/log"
)

// Registry errors
var (
	ErrNilEntity         = errors.New("entity is nil")
	ErrInvalidEntityID   = errors.New("invalid entity ID")
	ErrAlreadyRegistered = errors.New("entity already registered")
)

// Destroyable is the capability every spawned entity exposes to the registry.
type Destroyable interface {
	ID() models.EntityID
	// OnDestroyed registers fn to run once when the entity reaches a terminal
	// state. The returned function unregisters fn and must be safe to call
	// more than once.
	OnDestroyed(fn func(Destroyable)) (release func())
}

type entry struct {
	entity  Destroyable
	release func()
	removed bool
}

// Registry is the set of currently alive spawned entities.
type Registry struct {
	mu        sync.Mutex
	entries   map[models.EntityID]*entry
	onRemoved []func(models.EntityID)
	removed   uint64
	logger    log.Log
}

// NewRegistry creates an empty registry. A nil logger disables logging.
func NewRegistry(logger log.Log) *Registry {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Registry{
		entries: make(map[models.EntityID]*entry),
		logger:  logger.With(log.String("component", "lifecycle")),
	}
}

// Register adds entity to the active set and hooks its destruction
// notification. An entity that is destroyed during registration is removed
// again before Register returns.
func (r *Registry) Register(entity Destroyable) error {
	if entity == nil {
		return ErrNilEntity
	}
	id := entity.ID()
	if id == models.InvalidEntityID {
		return ErrInvalidEntityID
	}

	r.mu.Lock()
	if _, exists := r.entries[id]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, id)
	}
	e := &entry{entity: entity}
	r.entries[id] = e
	r.mu.Unlock()

	release := entity.OnDestroyed(func(Destroyable) { r.discard(id, e) })

	r.mu.Lock()
	if e.removed {
		r.mu.Unlock()
		if release != nil {
			release()
		}
		return nil
	}
	e.release = release
	r.mu.Unlock()
	return nil
}

// ActiveCount returns the number of registered entities that have not been
// destroyed yet.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// RemovedTotal returns how many entities left the set through their own
// destruction notification.
func (r *Registry) RemovedTotal() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removed
}

// Contains reports whether id is currently registered.
func (r *Registry) Contains(id models.EntityID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

// Entities returns the registered entities ordered by ID.
func (r *Registry) Entities() []Destroyable {
	r.mu.Lock()
	out := make([]Destroyable, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.entity)
	}
	r.mu.Unlock()
	slices.SortFunc(out, func(a, b Destroyable) int {
		switch {
		case a.ID() < b.ID():
			return -1
		case a.ID() > b.ID():
			return 1
		}
		return 0
	})
	return out
}

// OnRemoved registers fn to run whenever an entity leaves the set through
// its destruction notification. ClearAll does not trigger it.
func (r *Registry) OnRemoved(fn func(models.EntityID)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.onRemoved = append(r.onRemoved, fn)
	r.mu.Unlock()
}

// ClearAll empties the set and detaches from every remaining entity. It
// returns the number of entities dropped.
func (r *Registry) ClearAll() int {
	r.mu.Lock()
	dropped := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		e.removed = true
		dropped = append(dropped, e)
	}
	r.entries = make(map[models.EntityID]*entry)
	r.mu.Unlock()

	for _, e := range dropped {
		if e.release != nil {
			e.release()
		}
	}
	if len(dropped) > 0 {
		r.logger.Debug("registry cleared", log.Int("dropped", len(dropped)))
	}
	return len(dropped)
}

func (r *Registry) discard(id models.EntityID, e *entry) {
	r.mu.Lock()
	if e.removed {
		r.mu.Unlock()
		return
	}
	e.removed = true
	if r.entries[id] == e {
		delete(r.entries, id)
	}
	r.removed++
	hooks := slices.Clone(r.onRemoved)
	release := e.release
	r.mu.Unlock()

	if release != nil {
		release()
	}
	for _, fn := range hooks {
		fn(id)
	}
}
