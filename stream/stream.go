// Package stream provides the observable channel primitives the transport
// hands to application code: Stream, a single-direction channel with
// synchronous listener fan-out, and Duplex, a pair of opposite-facing
// Streams exposed through sealed-able views.
package stream

import "sync"

// Listener receives the events of one Stream. All callbacks are optional;
// a nil callback is skipped. Listener values are otherwise inert data and
// are identified by pointer, so the same Listener can be removed later by
// reference.
type Listener[T any] struct {
	// OnMessage is invoked for every value written to the stream.
	OnMessage func(msg T)

	// OnError is invoked for every error raised on the stream.
	OnError func(err error)

	// OnClose is invoked when the stream closes.
	OnClose func()
}

// Stream is an ordered list of listeners. Write, Fail and Close fan out to
// every registered listener synchronously, in registration order. There is
// no buffering and no replay: a listener added after a message was written
// never sees that message. Listener panics are not isolated from each
// other; the first one unwinds the dispatch.
type Stream[T any] struct {
	mu        sync.Mutex
	listeners []*Listener[T]
}

// New returns an empty Stream.
func New[T any]() *Stream[T] {
	return &Stream[T]{}
}

// AddListener appends l to the listener list. Insertion order is preserved
// and duplicates are not collapsed; adding the same listener twice means it
// fires twice. Returns l so registrations can be held for later removal.
func (s *Stream[T]) AddListener(l *Listener[T]) *Listener[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
	return l
}

// On registers a message-only listener and returns it for removal.
func (s *Stream[T]) On(fn func(T)) *Listener[T] {
	return s.AddListener(&Listener[T]{OnMessage: fn})
}

// RemoveListener removes the first registration of l, matched by pointer
// identity. Removing a listener that was never added is a no-op.
func (s *Stream[T]) RemoveListener(l *Listener[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.listeners {
		if cur == l {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

// snapshot copies the current listener list so dispatch runs outside the
// lock and reentrant Add/Remove calls from callbacks cannot deadlock.
func (s *Stream[T]) snapshot() []*Listener[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Listener[T], len(s.listeners))
	copy(out, s.listeners)
	return out
}

// Write delivers msg to every listener's OnMessage, in registration order.
func (s *Stream[T]) Write(msg T) {
	for _, l := range s.snapshot() {
		if l.OnMessage != nil {
			l.OnMessage(msg)
		}
	}
}

// Fail delivers err to every listener's OnError, in registration order.
func (s *Stream[T]) Fail(err error) {
	for _, l := range s.snapshot() {
		if l.OnError != nil {
			l.OnError(err)
		}
	}
}

// Close notifies every listener's OnClose, in registration order.
func (s *Stream[T]) Close() {
	for _, l := range s.snapshot() {
		if l.OnClose != nil {
			l.OnClose()
		}
	}
}

// Map returns a Stream of a different type wired to forward src through fn,
// in one direction only: writes, errors and closes on src surface on the
// returned stream, never the other way around.
func Map[T any, U any](src *Stream[T], fn func(T) U) *Stream[U] {
	out := New[U]()
	src.AddListener(&Listener[T]{
		OnMessage: func(msg T) { out.Write(fn(msg)) },
		OnError:   out.Fail,
		OnClose:   out.Close,
	})
	return out
}
