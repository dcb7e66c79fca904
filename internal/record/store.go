// Package record holds master lists: the server-confirmed, ordered set of
// entities for one scope (all categories, or the items of one category).
package record

import (
	"slices"
	"sync"
)

// Entity is anything with a backend id.
type Entity interface {
	EntityID() int64
}

// Ticket identifies one asynchronous load.
type Ticket uint64

// Store is a master list. Callers mutate it only after the backend confirmed
// the change. It is safe for concurrent use.
type Store[T Entity] struct {
	mu      sync.RWMutex
	items   []T
	loaded  bool
	version uint64
	latest  Ticket
}

// New creates an empty, not yet loaded store.
func New[T Entity]() *Store[T] {
	return &Store[T]{}
}

// Load replaces the master list.
func (s *Store[T]) Load(items []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	s.setLocked(items)
}

// BeginLoad starts an asynchronous load. Only the most recently begun load
// can be committed.
func (s *Store[T]) BeginLoad() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	return s.latest
}

// Commit replaces the master list with the result of the load identified by
// t. It returns false, and changes nothing, when a newer load has begun since.
func (s *Store[T]) Commit(t Ticket, items []T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t != s.latest {
		return false
	}
	s.setLocked(items)
	return true
}

// Current reports whether t is still the latest load.
func (s *Store[T]) Current(t Ticket) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return t == s.latest
}

func (s *Store[T]) setLocked(items []T) {
	s.items = slices.Clone(items)
	s.loaded = true
	s.version++
}

// Insert appends e.
func (s *Store[T]) Insert(e T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	s.version++
}

// Replace updates the entity with the given id in place. It is a no-op
// returning false when the id is absent.
func (s *Store[T]) Replace(id int64, e T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.items[i] = e
	s.version++
	return true
}

// Remove deletes the entity with the given id.
func (s *Store[T]) Remove(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	s.version++
	return true
}

// All returns a copy of the master list in order.
func (s *Store[T]) All() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Snapshot returns a copy of the master list together with its version.
func (s *Store[T]) Snapshot() ([]T, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items), s.version
}

// Get returns the entity with the given id.
func (s *Store[T]) Get(id int64) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.items[i], true
	}
	var zero T
	return zero, false
}

// Len returns the number of entities.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Loaded reports whether a load has completed.
func (s *Store[T]) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Version increases with every change to the master list.
func (s *Store[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store[T]) indexLocked(id int64) int {
	return slices.IndexFunc(s.items, func(e T) bool { return e.EntityID() == id })
}
