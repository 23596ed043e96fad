package bus

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/wavecore/internal/core/observability/log"
)

// DefaultMaxDepth bounds nested Publish calls made from inside handlers.
const DefaultMaxDepth = 64

// subscription implements Subscription.
type subscription struct {
	id        string
	eventType reflect.Type
	handler   EventHandler
	active    atomic.Bool
	cancel    func()
}

func (s *subscription) ID() string              { return s.id }
func (s *subscription) EventType() reflect.Type { return s.eventType }
func (s *subscription) IsActive() bool          { return s.active.Load() }
func (s *subscription) Cancel() error {
	if s.active.CompareAndSwap(true, false) && s.cancel != nil {
		s.cancel()
	}
	return nil
}

// Dispatcher is a synchronous, re-entrant, type-routed pub/sub bus.
//
// Key characteristics:
//   - Handlers for one event type run in registration order on the publishing goroutine.
//   - A handler may publish; the nested event is fully delivered before the outer loop continues.
//   - Registering the same function twice yields two subscriptions and two invocations.
//   - The internal mutex only guards the tables and is never held while handlers run.
type Dispatcher struct {
	mu        sync.Mutex
	handlers  map[reflect.Type][]*subscription
	observers []Observer
	metrics   Metrics
	depth     int
	maxDepth  int
	closed    bool
	logger    log.Log
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for dispatcher diagnostics.
func WithLogger(l log.Log) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMaxDepth overrides DefaultMaxDepth. Values below 1 are ignored.
func WithMaxDepth(depth int) Option {
	return func(d *Dispatcher) {
		if depth > 0 {
			d.maxDepth = depth
		}
	}
}

// New creates a Dispatcher. Each level run owns its own instance.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[reflect.Type][]*subscription),
		maxDepth: DefaultMaxDepth,
		logger:   log.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(log.String("component", "dispatcher"))
	return d
}

// Subscribe registers a typed handler for events of concrete type T.
func Subscribe[T Event](d *Dispatcher, handler func(T) error) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	return d.SubscribeType(reflect.TypeFor[T](), func(e Event) error {
		return handler(e.(T))
	})
}

// SubscribeType registers handler for events whose dynamic type is eventType.
func (d *Dispatcher) SubscribeType(eventType reflect.Type, handler EventHandler) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDispatcherClosed
	}

	s := &subscription{id: uuid.NewString(), eventType: eventType, handler: handler}
	s.active.Store(true)
	s.cancel = func() { d.remove(s) }
	d.handlers[eventType] = append(d.handlers[eventType], s)
	return s, nil
}

// Unsubscribe cancels the given Subscription. Nil or already cancelled
// subscriptions are a no-op.
func (d *Dispatcher) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.Cancel()
}

// Publish delivers event synchronously to every active handler registered for
// its type. With no handlers it does nothing. Handler errors are joined.
func (d *Dispatcher) Publish(event Event) error {
	if event == nil {
		return ErrNilEvent
	}
	return d.deliver(event)
}

// PublishWithFilters applies filters before delivery; if any filter returns
// false, the event is dropped and not delivered to handlers.
func (d *Dispatcher) PublishWithFilters(event Event, filters ...EventFilter) error {
	if event == nil {
		return ErrNilEvent
	}
	for _, f := range filters {
		if !f(event) {
			d.mu.Lock()
			if len(d.observers) > 0 {
				d.metrics.DroppedByFilters++
			}
			d.mu.Unlock()
			return nil
		}
	}
	return d.deliver(event)
}

// HandlerCount reports how many active handlers would receive event.
func (d *Dispatcher) HandlerCount(event Event) int {
	if event == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handlers[reflect.TypeOf(event)])
}

// AddObserver registers an observer to receive delivery callbacks.
func (d *Dispatcher) AddObserver(obs Observer) {
	if obs == nil {
		return
	}
	d.mu.Lock()
	d.observers = append(d.observers, obs)
	d.mu.Unlock()
}

// RemoveObserver unregisters a previously added observer.
func (d *Dispatcher) RemoveObserver(obs Observer) {
	d.mu.Lock()
	if i := slices.Index(d.observers, obs); i >= 0 {
		d.observers = slices.Delete(d.observers, i, i+1)
	}
	d.mu.Unlock()
}

// GetMetrics returns a snapshot of accumulated metrics. Counters only move
// while at least one observer is registered.
func (d *Dispatcher) GetMetrics() Metrics {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.metrics
}

// Close cancels every subscription, detaches the observers and rejects
// further subscriptions. Publishing on a closed dispatcher is a no-op.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.observers = nil
	all := make([]*subscription, 0)
	for _, subs := range d.handlers {
		all = append(all, subs...)
	}
	d.handlers = make(map[reflect.Type][]*subscription)
	d.mu.Unlock()

	for _, s := range all {
		s.active.Store(false)
	}
	return nil
}

func (d *Dispatcher) remove(s *subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	subs := d.handlers[s.eventType]
	if i := slices.Index(subs, s); i >= 0 {
		// copy so that snapshots taken by in-flight publishes stay intact
		d.handlers[s.eventType] = slices.Delete(slices.Clone(subs), i, i+1)
	}
	if len(d.handlers[s.eventType]) == 0 {
		delete(d.handlers, s.eventType)
	}
}

func (d *Dispatcher) deliver(event Event) error {
	start := time.Now()
	name := event.Name()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	if d.depth >= d.maxDepth {
		d.mu.Unlock()
		d.logger.Warn("publish depth exceeded", log.String("event", name), log.Int("max_depth", d.maxDepth))
		return fmt.Errorf("%w: %s", ErrMaxDepthExceeded, name)
	}
	subs := d.handlers[reflect.TypeOf(event)]
	observers := slices.Clone(d.observers)
	d.depth++
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.depth--
		d.mu.Unlock()
	}()

	for _, obs := range observers {
		obs.OnPublish(name, event)
	}

	var all error
	delivered := 0
	for _, s := range subs {
		if !s.IsActive() {
			continue
		}
		delivered++
		if err := s.handler(event); err != nil {
			all = errors.Join(all, err)
		}
	}

	if len(observers) > 0 {
		dur := time.Since(start).Microseconds()
		for _, obs := range observers {
			obs.OnDelivered(name, delivered, all, dur)
		}
		d.mu.Lock()
		d.metrics.Published++
		d.metrics.DeliveredHandlers += uint64(delivered)
		if all != nil {
			d.metrics.Errors++
		}
		var active uint64
		for _, m := range d.handlers {
			active += uint64(len(m))
		}
		d.metrics.SubscribersActive = active
		d.mu.Unlock()
	}
	return all
}
