package bus

import (
	"errors"
	"reflect"
)

// Dispatcher errors
var (
	ErrNilEvent         = errors.New("event is nil")
	ErrNilHandler       = errors.New("handler is nil")
	ErrDispatcherClosed = errors.New("dispatcher is closed")
	ErrMaxDepthExceeded = errors.New("maximum nested publish depth exceeded")
)

// Event is an immutable message transported by the Dispatcher.
//
// Routing is done by the dynamic Go type of the value: every concrete event
// struct is its own channel. Name is only used for logs and metric labels.
// Implementations should treat Event values as read-only.
type Event interface {
	Name() string
}

type (
	// EventHandler is a callback invoked per delivered event. If it returns an
	// error, Publish aggregates and returns it; remaining handlers still run.
	EventHandler func(event Event) error
	// EventFilter decides whether an event should be delivered. If any filter
	// returns false, the event is dropped silently.
	EventFilter func(event Event) bool
)

// Subscription represents one registered handler bound to an event type.
// Use Cancel or Dispatcher.Unsubscribe to stop receiving events.
type Subscription interface {
	// ID is a unique identifier for this subscription.
	ID() string
	// EventType returns the event type this subscription listens to.
	EventType() reflect.Type
	// IsActive reports whether this subscription is still registered.
	IsActive() bool
	// Cancel de-registers the handler. Multiple calls are safe.
	Cancel() error
}

// Observer is notified about deliveries and errors. Implementations can
// export metrics or logs. Observers run on the publishing goroutine and should
// return quickly.
type Observer interface {
	OnPublish(eventName string, event Event)
	OnDelivered(eventName string, handlers int, err error, durationMicros int64)
}

// Metrics is a minimal set of counters; it is updated only when at least one
// observer is registered.
type Metrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	DroppedByFilters  uint64
	SubscribersActive uint64
}
