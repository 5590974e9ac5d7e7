package storage

import (
	"context"
	"sync"
)

// Shared hands out one connection handle per DSN to every table writer that
// asks for it and closes the handle when the last writer releases it.
// Destination tables of all categories share a database, so a pool (or,
// for SQLite, a single serialized connection) per DSN keeps backends from
// fighting over locks.
type Shared[T any] struct {
	Open  func(ctx context.Context, dsn string) (T, error)
	Close func(T) error

	mu      sync.Mutex
	handles map[string]*sharedHandle[T]
}

type sharedHandle[T any] struct {
	v    T
	refs int
}

// Acquire returns the handle for dsn, opening it on first use. The release
// function must be called exactly once.
func (s *Shared[T]) Acquire(ctx context.Context, dsn string) (T, func() error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handles == nil {
		s.handles = map[string]*sharedHandle[T]{}
	}
	h, ok := s.handles[dsn]
	if !ok {
		v, err := s.Open(ctx, dsn)
		if err != nil {
			var zero T
			return zero, nil, err
		}
		h = &sharedHandle[T]{v: v}
		s.handles[dsn] = h
	}
	h.refs++

	var once sync.Once
	release := func() error {
		var err error
		once.Do(func() { err = s.release(dsn) })
		return err
	}
	return h.v, release, nil
}

func (s *Shared[T]) release(dsn string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[dsn]
	if !ok {
		return nil
	}
	h.refs--
	if h.refs > 0 {
		return nil
	}
	delete(s.handles, dsn)
	if s.Close == nil {
		return nil
	}
	return s.Close(h.v)
}

// Len reports how many handles are open.
func (s *Shared[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}
