package uistate

import (
	"sync"
	"sync/atomic"
)

// Selector derives a small view from the full state tree. Cheap selectors
// plus change-only notification are what keep unrelated mutations from
// re-rendering every widget.
type Selector[T any] func(T) any

type subscription[T any] struct {
	mu       sync.Mutex
	closed   atomic.Bool
	selector func(T) (any, bool)
	onChange func(any)
	last     any
}

// Subscribe registers selector against the store. onChange is not called on
// registration; on every later commit the selector is recomputed and
// onChange(v) fires only when v differs from the previous computed value
// (element-wise comparison for slices and arrays, plain equality otherwise).
// The returned function cancels the subscription; no new notification starts
// after it returns, and calling it from inside onChange is safe.
func (s *Store[T]) Subscribe(selector Selector[T], onChange func(any)) func() {
	if selector == nil || onChange == nil {
		return func() {}
	}
	return s.subscribe(func(root T) (any, bool) {
		return selector(root), true
	}, onChange)
}

func (s *Store[T]) subscribe(selector func(T) (any, bool), onChange func(any)) func() {
	sub := &subscription[T]{
		selector: selector,
		onChange: onChange,
	}
	// Seed the comparison value so registration itself never notifies.
	if value, ok := selector(s.Get()); ok {
		sub.last = value
	}

	s.subsMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = sub
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
		// The flag is checked again right before onChange runs, so an
		// unsubscribe racing with a commit suppresses the callback without
		// waiting on sub.mu. Waiting would deadlock a subscription that
		// cancels itself from inside its own onChange.
		sub.closed.Store(true)
	}
}

func (sub *subscription[T]) notify(root T) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed.Load() {
		return
	}
	value, ok := sub.selector(root)
	if !ok {
		return
	}
	if equalValues(sub.last, value) {
		return
	}
	sub.last = value
	if sub.closed.Load() {
		return
	}
	sub.onChange(value)
}
