package system

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/zeusync/wavecore/internal/core/observability/log"
)

// Manager errors
var (
	ErrNilSystem     = errors.New("system is nil")
	ErrSystemExists  = errors.New("system already registered")
	ErrSystemMissing = errors.New("system not registered")
)

// ManagerMetrics provides system manager statistics
type ManagerMetrics struct {
	RegisteredSystems uint32
	Updates           uint64
	TotalUpdateTime   time.Duration
	AverageUpdateTime time.Duration
	SimulatedTime     time.Duration
}

type registered struct {
	system  System
	seq     uint64
	metrics Metrics
}

// Manager orchestrates all systems of a run. Systems run in priority order,
// highest first; equal priorities keep registration order.
type Manager struct {
	systems  []*registered
	seq      uint64
	metrics  ManagerMetrics
	onError  []func(string, error)
	onAdd    []func(System)
	onRemove []func(string)
	logger   log.Log
}

// NewManager creates an empty manager. A nil logger disables logging.
func NewManager(logger log.Log) *Manager {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Manager{logger: logger.With(log.String("component", "systems"))}
}

// RegisterSystem adds s to the execution order.
func (m *Manager) RegisterSystem(s System) error {
	if s == nil {
		return ErrNilSystem
	}
	if m.HasSystem(s.Name()) {
		return fmt.Errorf("%w: %s", ErrSystemExists, s.Name())
	}
	m.seq++
	m.systems = append(m.systems, &registered{system: s, seq: m.seq})
	slices.SortStableFunc(m.systems, func(a, b *registered) int {
		if a.system.Priority() != b.system.Priority() {
			return int(b.system.Priority()) - int(a.system.Priority())
		}
		return int(a.seq) - int(b.seq)
	})
	m.metrics.RegisteredSystems = uint32(len(m.systems))
	m.logger.Debug("system registered", log.String("system", s.Name()), log.Int("priority", int(s.Priority())))
	for _, fn := range m.onAdd {
		fn(s)
	}
	return nil
}

// UnregisterSystem removes the named system.
func (m *Manager) UnregisterSystem(name string) error {
	i := slices.IndexFunc(m.systems, func(r *registered) bool { return r.system.Name() == name })
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrSystemMissing, name)
	}
	m.systems = slices.Delete(m.systems, i, i+1)
	m.metrics.RegisteredSystems = uint32(len(m.systems))
	for _, fn := range m.onRemove {
		fn(name)
	}
	return nil
}

// GetSystem looks a system up by name.
func (m *Manager) GetSystem(name string) (System, bool) {
	for _, r := range m.systems {
		if r.system.Name() == name {
			return r.system, true
		}
	}
	return nil, false
}

// HasSystem reports whether name is registered.
func (m *Manager) HasSystem(name string) bool {
	_, ok := m.GetSystem(name)
	return ok
}

// ListSystems returns the systems in execution order.
func (m *Manager) ListSystems() []System {
	out := make([]System, len(m.systems))
	for i, r := range m.systems {
		out[i] = r.system
	}
	return out
}

// GetExecutionOrder returns system names in execution order.
func (m *Manager) GetExecutionOrder() []string {
	out := make([]string, len(m.systems))
	for i, r := range m.systems {
		out[i] = r.system.Name()
	}
	return out
}

// Update runs every system once. A failing system does not stop the others;
// all errors are joined and reported to OnSystemError callbacks.
func (m *Manager) Update(deltaTime time.Duration) error {
	start := time.Now()
	var all error
	for _, r := range slices.Clone(m.systems) {
		began := time.Now()
		err := r.system.Update(deltaTime)
		took := time.Since(began)

		r.metrics.ExecutionCount++
		r.metrics.TotalExecutionTime += took
		r.metrics.AverageExecutionTime = r.metrics.TotalExecutionTime / time.Duration(r.metrics.ExecutionCount)
		if took > r.metrics.MaxExecutionTime {
			r.metrics.MaxExecutionTime = took
		}
		if err != nil {
			r.metrics.ErrorCount++
			r.metrics.LastError = err
			m.logger.Warn("system update failed", log.String("system", r.system.Name()), log.Error(err))
			for _, fn := range m.onError {
				fn(r.system.Name(), err)
			}
			all = errors.Join(all, fmt.Errorf("%s: %w", r.system.Name(), err))
		}
	}

	m.metrics.Updates++
	m.metrics.SimulatedTime += deltaTime
	m.metrics.TotalUpdateTime += time.Since(start)
	m.metrics.AverageUpdateTime = m.metrics.TotalUpdateTime / time.Duration(m.metrics.Updates)
	return all
}

// GetMetrics returns manager statistics.
func (m *Manager) GetMetrics() ManagerMetrics {
	return m.metrics
}

// GetSystemMetrics returns the metrics of one system.
func (m *Manager) GetSystemMetrics(name string) (Metrics, bool) {
	for _, r := range m.systems {
		if r.system.Name() == name {
			return r.metrics, true
		}
	}
	return Metrics{}, false
}

// OnSystemError registers a callback for failed updates.
func (m *Manager) OnSystemError(fn func(string, error)) {
	m.onError = append(m.onError, fn)
}

// OnSystemRegistered registers a callback for new systems.
func (m *Manager) OnSystemRegistered(fn func(System)) {
	m.onAdd = append(m.onAdd, fn)
}

// OnSystemUnregistered registers a callback for removed systems.
func (m *Manager) OnSystemUnregistered(fn func(string)) {
	m.onRemove = append(m.onRemove, fn)
}
