// Package viewmodel holds per-screen state as observable result streams.
// Every mutator sets Loading, makes exactly one repository call, stores the
// outcome and, on success only, reloads whatever list the call invalidated.
package viewmodel

import (
	"sync"

	pc "piston_control"
)

// Stream is an observable Result, Idle until first set. Observers see
// values in the order they were set. An observer must not call Set or
// Observe on its own stream.
type Stream[T any] struct {
	emit sync.Mutex // held across store and delivery

	mu     sync.Mutex
	cur    pc.Result[T]
	nextID int
	obs    map[int]func(pc.Result[T])
}

func NewStream[T any]() *Stream[T] {
	return &Stream[T]{cur: pc.Idle[T](), obs: map[int]func(pc.Result[T]){}}
}

func (s *Stream[T]) Get() pc.Result[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Set stores r and notifies observers before the next Set can store.
func (s *Stream[T]) Set(r pc.Result[T]) {
	s.emit.Lock()
	defer s.emit.Unlock()

	s.mu.Lock()
	s.cur = r
	fns := make([]func(pc.Result[T]), 0, len(s.obs))
	for _, fn := range s.obs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(r)
	}
}

// Observe delivers the current value and every later one until cancelled.
func (s *Stream[T]) Observe(fn func(pc.Result[T])) (cancel func()) {
	s.emit.Lock()
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.obs[id] = fn
	cur := s.cur
	s.mu.Unlock()
	fn(cur)
	s.emit.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.obs, id)
		s.mu.Unlock()
	}
}

// run drives one call through s: Loading, then the call's outcome.
func run[T any](s *Stream[T], call func() pc.Result[T]) pc.Result[T] {
	s.Set(pc.Loading[T]())
	r := call()
	s.Set(r)
	return r
}

// reject records a client-side failure without touching the network.
func reject[T any](s *Stream[T], err error) pc.Result[T] {
	r := pc.Failure[T](err.Error(), 0)
	s.Set(r)
	return r
}
