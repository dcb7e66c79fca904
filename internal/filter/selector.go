package filter

import "sync"

// Source is a versioned master list, such as a record.Store.
type Source[T any] interface {
	Version() uint64
	Snapshot() ([]T, uint64)
}

// Selector memoizes Derive over a master list. It recomputes only when the
// list's version or the criteria change.
type Selector[T Record] struct {
	src Source[T]

	mu      sync.Mutex
	valid   bool
	version uint64
	key     string
	result  Result[T]
}

// NewSelector creates a selector over src.
func NewSelector[T Record](src Source[T]) *Selector[T] {
	return &Selector[T]{src: src}
}

// Select returns the displayed view for c. The records are shared between
// calls and must not be modified.
func (s *Selector[T]) Select(c Criteria) Result[T] {
	key := c.key()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.valid && s.key == key && s.version == s.src.Version() {
		return s.result
	}
	master, version := s.src.Snapshot()
	s.result = Derive(master, c)
	s.version, s.key, s.valid = version, key, true
	return s.result
}
