package mirror

import "sync"

// Subject holds the latest published value and fans it out to watchers.
// Delivery is conflating: a watcher that falls behind skips intermediate
// values and receives only the most recent one. Publish never blocks.
type Subject[T any] struct {
	mu       sync.Mutex
	value    T
	has      bool
	watchers map[*Watcher[T]]struct{}
}

// NewSubject returns a subject with no value.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{watchers: make(map[*Watcher[T]]struct{})}
}

// Publish replaces the current value and offers it to every watcher.
func (s *Subject[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
	s.has = true
	for w := range s.watchers {
		w.offer(v)
	}
}

// Value returns the current value and whether one was ever published.
func (s *Subject[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.has
}

// Watch registers a watcher. The current value, if any, is delivered first.
func (s *Subject[T]) Watch() *Watcher[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := &Watcher[T]{subject: s, ch: make(chan T, 1)}
	s.watchers[w] = struct{}{}
	if s.has {
		w.offer(s.value)
	}
	return w
}

// Watchers returns the number of registered watchers.
func (s *Subject[T]) Watchers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

// CloseWatchers closes and unregisters every watcher. The current value is
// kept for watchers registered later.
func (s *Subject[T]) CloseWatchers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for w := range s.watchers {
		w.closed = true
		close(w.ch)
	}
	s.watchers = make(map[*Watcher[T]]struct{})
}

// Watcher receives the values published by a Subject until it is closed.
type Watcher[T any] struct {
	subject *Subject[T]
	ch      chan T
	closed  bool
}

// C returns the delivery channel. It is closed by Close.
func (w *Watcher[T]) C() <-chan T { return w.ch }

// Close unregisters the watcher and closes its channel. It is safe to call
// more than once.
func (w *Watcher[T]) Close() {
	w.subject.mu.Lock()
	defer w.subject.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	delete(w.subject.watchers, w)
	close(w.ch)
}

// offer must be called with the subject lock held.
func (w *Watcher[T]) offer(v T) {
	select {
	case w.ch <- v:
		return
	default:
	}
	// Drop the stale value nobody read yet.
	select {
	case <-w.ch:
	default:
	}
	select {
	case w.ch <- v:
	default:
	}
}
