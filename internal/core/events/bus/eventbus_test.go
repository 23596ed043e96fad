package bus

import (
	"errors"
	"reflect"
	"testing"
)

type pingEvent struct{ N int }

func (pingEvent) Name() string { return "ping" }

type pongEvent struct{ N int }

func (pongEvent) Name() string { return "pong" }

type testObserver struct {
	publishCount   int
	deliveredCount int
	lastErr        error
}

func (o *testObserver) OnPublish(_ string, _ Event) {
	o.publishCount++
}

func (o *testObserver) OnDelivered(_ string, handlers int, err error, _ int64) {
	o.deliveredCount += handlers
	o.lastErr = err
}

func TestBasicPublishSubscribe(t *testing.T) {
	d := New()
	got := 0
	_, err := Subscribe(d, func(e pingEvent) error {
		got = e.N
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err = d.Publish(pingEvent{N: 123}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got != 123 {
		t.Fatalf("handler not called, got %d", got)
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	d := New()
	if err := d.Publish(pingEvent{}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if n := d.HandlerCount(pingEvent{}); n != 0 {
		t.Fatalf("expected no handlers, got %d", n)
	}
}

func TestRoutingByType(t *testing.T) {
	d := New()
	pings, pongs := 0, 0
	_, _ = Subscribe(d, func(pingEvent) error { pings++; return nil })
	_, _ = Subscribe(d, func(pongEvent) error { pongs++; return nil })

	_ = d.Publish(pingEvent{})
	_ = d.Publish(pingEvent{N: 2})
	_ = d.Publish(pongEvent{})
	if pings != 2 || pongs != 1 {
		t.Fatalf("routing failed: pings=%d pongs=%d", pings, pongs)
	}
}

func TestRegistrationOrder(t *testing.T) {
	d := New()
	var order []int
	for i := 0; i < 5; i++ {
		_, _ = Subscribe(d, func(pingEvent) error { order = append(order, i); return nil })
	}
	_ = d.Publish(pingEvent{})
	if !reflect.DeepEqual(order, []int{0, 1, 2, 3, 4}) {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestDuplicateHandlerIsInvokedTwice(t *testing.T) {
	d := New()
	calls := 0
	handler := func(pingEvent) error { calls++; return nil }
	first, _ := Subscribe(d, handler)
	_, _ = Subscribe(d, handler)

	_ = d.Publish(pingEvent{})
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}

	_ = d.Unsubscribe(first)
	_ = d.Publish(pingEvent{})
	if calls != 3 {
		t.Fatalf("expected one remaining registration, calls=%d", calls)
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	d := New()
	sub, _ := Subscribe(d, func(pingEvent) error { return nil })
	if err := d.Unsubscribe(sub); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if err := d.Unsubscribe(sub); err != nil {
		t.Fatalf("second unsubscribe: %v", err)
	}
	if err := d.Unsubscribe(nil); err != nil {
		t.Fatalf("nil unsubscribe: %v", err)
	}
	if sub.IsActive() {
		t.Fatal("subscription still active")
	}
	if n := d.HandlerCount(pingEvent{}); n != 0 {
		t.Fatalf("expected no handlers, got %d", n)
	}
}

func TestNestedPublishIsDepthFirst(t *testing.T) {
	d := New()
	var trace []string
	_, _ = Subscribe(d, func(pingEvent) error {
		trace = append(trace, "ping-1")
		_ = d.Publish(pongEvent{})
		trace = append(trace, "ping-1-done")
		return nil
	})
	_, _ = Subscribe(d, func(pingEvent) error {
		trace = append(trace, "ping-2")
		return nil
	})
	_, _ = Subscribe(d, func(pongEvent) error {
		trace = append(trace, "pong")
		return nil
	})

	_ = d.Publish(pingEvent{})
	want := []string{"ping-1", "pong", "ping-1-done", "ping-2"}
	if !reflect.DeepEqual(trace, want) {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
}

func TestCancelDuringPublishSkipsLaterHandler(t *testing.T) {
	d := New()
	calls := 0
	var second Subscription
	_, _ = Subscribe(d, func(pingEvent) error {
		_ = second.Cancel()
		return nil
	})
	second, _ = Subscribe(d, func(pingEvent) error { calls++; return nil })

	_ = d.Publish(pingEvent{})
	if calls != 0 {
		t.Fatalf("cancelled handler ran %d times", calls)
	}
}

func TestSubscribeDuringPublishWaitsForNextPublish(t *testing.T) {
	d := New()
	late := 0
	subscribed := false
	_, _ = Subscribe(d, func(pingEvent) error {
		if !subscribed {
			subscribed = true
			_, _ = Subscribe(d, func(pingEvent) error { late++; return nil })
		}
		return nil
	})

	_ = d.Publish(pingEvent{})
	if late != 0 {
		t.Fatalf("late handler ran during the publish that added it")
	}
	_ = d.Publish(pingEvent{})
	if late != 1 {
		t.Fatalf("late handler calls = %d", late)
	}
}

func TestHandlerErrorsAreJoined(t *testing.T) {
	d := New()
	errA := errors.New("a")
	errB := errors.New("b")
	ran := 0
	_, _ = Subscribe(d, func(pingEvent) error { ran++; return errA })
	_, _ = Subscribe(d, func(pingEvent) error { ran++; return errB })

	err := d.Publish(pingEvent{})
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if ran != 2 {
		t.Fatalf("expected both handlers to run, ran=%d", ran)
	}
}

func TestUnboundedRecursionIsCut(t *testing.T) {
	d := New(WithMaxDepth(8))
	calls := 0
	_, _ = Subscribe(d, func(e pingEvent) error {
		calls++
		return d.Publish(pingEvent{N: e.N + 1})
	})

	err := d.Publish(pingEvent{})
	if !errors.Is(err, ErrMaxDepthExceeded) {
		t.Fatalf("expected depth error, got %v", err)
	}
	if calls != 8 {
		t.Fatalf("expected 8 nested calls, got %d", calls)
	}
	// depth must unwind completely
	calls = 0
	sub, _ := Subscribe(d, func(pongEvent) error { return nil })
	defer sub.Cancel()
	if err = d.Publish(pongEvent{}); err != nil {
		t.Fatalf("publish after unwind: %v", err)
	}
}

func TestFiltersDropEvents(t *testing.T) {
	d := New()
	calls := 0
	_, _ = Subscribe(d, func(pingEvent) error { calls++; return nil })
	obs := &testObserver{}
	d.AddObserver(obs)

	onlyEven := func(e Event) bool { return e.(pingEvent).N%2 == 0 }
	_ = d.PublishWithFilters(pingEvent{N: 1}, onlyEven)
	_ = d.PublishWithFilters(pingEvent{N: 2}, onlyEven)
	if calls != 1 {
		t.Fatalf("expected one delivery, got %d", calls)
	}
	if m := d.GetMetrics(); m.DroppedByFilters != 1 {
		t.Fatalf("expected one drop, got %+v", m)
	}
}

func TestObserverMetricsOptional(t *testing.T) {
	d := New()
	// without observer, metrics should remain zero despite activity
	_, _ = Subscribe(d, func(pingEvent) error { return nil })
	_ = d.Publish(pingEvent{})
	m := d.GetMetrics()
	if m.Published != 0 || m.DeliveredHandlers != 0 {
		t.Fatalf("metrics should be zero without observers: %+v", m)
	}
	// now add observer and expect metrics to update
	obs := &testObserver{}
	d.AddObserver(obs)
	_ = d.Publish(pingEvent{})
	m2 := d.GetMetrics()
	if m2.Published != 1 || m2.DeliveredHandlers != 1 || m2.SubscribersActive != 1 {
		t.Fatalf("metrics should update with observer: %+v", m2)
	}
	if obs.publishCount != 1 || obs.deliveredCount != 1 {
		t.Fatalf("observer not called: %+v", obs)
	}

	d.RemoveObserver(obs)
	_ = d.Publish(pingEvent{})
	if obs.publishCount != 1 {
		t.Fatalf("removed observer still called")
	}
}

func TestCloseCancelsEverything(t *testing.T) {
	d := New()
	calls := 0
	sub, _ := Subscribe(d, func(pingEvent) error { calls++; return nil })
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if sub.IsActive() {
		t.Fatal("subscription survived Close")
	}
	_ = d.Publish(pingEvent{})
	if calls != 0 {
		t.Fatalf("handler ran after Close")
	}
	if _, err := Subscribe(d, func(pingEvent) error { return nil }); !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("expected ErrDispatcherClosed, got %v", err)
	}
}

func TestClosedDispatcherSkipsObservers(t *testing.T) {
	d := New()
	obs := &testObserver{}
	d.AddObserver(obs)
	_ = d.Close()

	if err := d.Publish(pingEvent{}); err != nil {
		t.Fatalf("publish after Close: %v", err)
	}
	_ = d.PublishWithFilters(pingEvent{}, func(Event) bool { return false })
	if obs.publishCount != 0 || obs.deliveredCount != 0 {
		t.Fatalf("observer called after Close: publish=%d delivered=%d", obs.publishCount, obs.deliveredCount)
	}
	if m := d.GetMetrics(); m.Published != 0 || m.DroppedByFilters != 0 {
		t.Fatalf("metrics moved after Close: %+v", m)
	}
}

func TestNilArguments(t *testing.T) {
	d := New()
	if err := d.Publish(nil); !errors.Is(err, ErrNilEvent) {
		t.Fatalf("expected ErrNilEvent, got %v", err)
	}
	if _, err := d.SubscribeType(reflect.TypeFor[pingEvent](), nil); !errors.Is(err, ErrNilHandler) {
		t.Fatalf("expected ErrNilHandler, got %v", err)
	}
}
