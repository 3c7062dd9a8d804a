// Package state holds process-wide application state shared by every
// connection. Values are registered under typed keys while the server is being
// built; after Freeze the store is read-only and safe for concurrent use
// without locking.
package state

import (
	"errors"
	"sync/atomic"
)

// ErrFrozen is returned when a value is set after the store was frozen
var ErrFrozen = errors.New("state: store is frozen")

type keyID struct {
	name string
}

// Key is a typed handle to one value in a Store. Two keys created by separate
// NewKey calls never collide, even with the same name.
type Key[T any] struct {
	id *keyID
}

// NewKey creates a handle for a value of type T. The name is only used in
// diagnostics.
func NewKey[T any](name string) Key[T] {
	return Key[T]{id: &keyID{name: name}}
}

// Name returns the diagnostic name of the key
func (k Key[T]) Name() string {
	if k.id == nil {
		return ""
	}
	return k.id.name
}

// Store is a registry of typed values populated at startup
type Store struct {
	values map[*keyID]any
	frozen atomic.Bool
}

// New creates an empty store
func New() *Store {
	return &Store{values: make(map[*keyID]any)}
}

// Freeze makes the store read-only
func (s *Store) Freeze() {
	s.frozen.Store(true)
}

// Frozen reports whether Freeze was called
func (s *Store) Frozen() bool {
	return s.frozen.Load()
}

// Len returns the number of registered values
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.values)
}

// Set registers value under key, replacing any previous value
func Set[T any](s *Store, key Key[T], value T) error {
	if s.frozen.Load() {
		return ErrFrozen
	}
	if key.id == nil {
		return errors.New("state: zero key")
	}

	s.values[key.id] = value
	return nil
}

// Get returns the value registered under key
func Get[T any](s *Store, key Key[T]) (T, bool) {
	var zero T
	if s == nil || key.id == nil {
		return zero, false
	}

	v, ok := s.values[key.id]
	if !ok {
		return zero, false
	}

	t, ok := v.(T)
	return t, ok
}

// MustGet is like Get but panics when the value is missing
func MustGet[T any](s *Store, key Key[T]) T {
	v, ok := Get(s, key)
	if !ok {
		panic("state: no value registered for key " + key.Name())
	}
	return v
}
