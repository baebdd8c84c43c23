package stream

import "sync"

// subscribers is a list of callbacks for one notification kind.
// Emit works on a snapshot, so callbacks may subscribe or cancel
// (themselves included) while a delivery is in progress.
type subscribers[T any] struct {
	mu    sync.RWMutex
	next  uint64
	items []subscriber[T]
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// add registers fn and returns a func that removes it.  The returned
// func is idempotent.
func (s *subscribers[T]) add(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	s.next++
	id := s.next
	s.items = append(s.items, subscriber[T]{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { s.remove(id) }) }
}

func (s *subscribers[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.items {
		if it.id == id {
			// Copy rather than shift in place: a concurrent emit may
			// still be iterating the old backing array.
			items := make([]subscriber[T], 0, len(s.items)-1)
			items = append(items, s.items[:i]...)
			s.items = append(items, s.items[i+1:]...)
			return
		}
	}
}

func (s *subscribers[T]) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// emit calls every current subscriber, in subscription order, on the
// calling goroutine.
func (s *subscribers[T]) emit(v T) {
	s.emitUntil(v, nil)
}

// emitUntil is emit, but stops before the next subscriber once stop
// returns true.  A nil stop never stops.
func (s *subscribers[T]) emitUntil(v T, stop func() bool) {
	s.mu.RLock()
	items := s.items
	s.mu.RUnlock()

	for _, it := range items {
		if stop != nil && stop() {
			return
		}
		it.fn(v)
	}
}
