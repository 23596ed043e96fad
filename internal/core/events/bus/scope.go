package bus

import (
	"errors"
	"sync"
)

// Scope owns a set of subscriptions and cancels all of them on Release.
// Components create one per lifetime and release it when they are torn down,
// so no handler outlives its owner.
type Scope struct {
	mu       sync.Mutex
	subs     []Subscription
	released bool
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{}
}

// Add takes ownership of subs. Adding to a released scope cancels them at once.
func (s *Scope) Add(subs ...Subscription) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		for _, sub := range subs {
			if sub != nil {
				_ = sub.Cancel()
			}
		}
		return
	}
	for _, sub := range subs {
		if sub != nil {
			s.subs = append(s.subs, sub)
		}
	}
	s.mu.Unlock()
}

// Track is a convenience for Add(Subscribe(...)) that forwards the subscribe error.
func (s *Scope) Track(sub Subscription, err error) error {
	if err != nil {
		return err
	}
	s.Add(sub)
	return nil
}

// Release cancels every owned subscription. Multiple calls are safe.
func (s *Scope) Release() error {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.released = true
	s.mu.Unlock()

	var all error
	for _, sub := range subs {
		if err := sub.Cancel(); err != nil {
			all = errors.Join(all, err)
		}
	}
	return all
}

// Len returns the number of subscriptions still owned by the scope.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Released reports whether Release has been called.
func (s *Scope) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
