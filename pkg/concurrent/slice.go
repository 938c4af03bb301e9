package concurrent

import "sync"

// Slice is an ordered collection safe for concurrent use. Several slices
// may share one lock so that operations spanning them never have to order
// their locks.
//
// Every value has an absolute position that does not change when values
// in front of it are removed, which lets a caller remove exactly the values
// it saw in a snapshot.
type Slice[V any] struct {
	mu     *sync.RWMutex
	values []V
	limit  int
	head   int64  // position of values[0]
	rev    uint64 // bumped by every change
}

// NewSlice returns an unbounded slice with its own lock.
func NewSlice[V any]() *Slice[V] {
	return &Slice[V]{mu: &sync.RWMutex{}}
}

// NewSharedSlice returns a slice guarded by mu. When limit is positive the
// slice keeps at most limit values, evicting the oldest first.
func NewSharedSlice[V any](mu *sync.RWMutex, limit int) *Slice[V] {
	return &Slice[V]{mu: mu, limit: max(limit, 0)}
}

// Append adds value at the end and returns how many of the oldest values
// were evicted to honour the limit.
func (s *Slice[V]) Append(value V) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = append(s.values, value)
	s.rev++
	return s.evictLocked()
}

// Prepend inserts values, in order, in front of the current values and
// returns how many of the oldest values were evicted.
func (s *Slice[V]) Prepend(values []V) int {
	if len(values) == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]V, 0, len(values)+len(s.values))
	merged = append(merged, values...)
	s.values = append(merged, s.values...)
	s.head -= int64(len(values))
	s.rev++
	return s.evictLocked()
}

func (s *Slice[V]) evictLocked() int {
	if s.limit == 0 || len(s.values) <= s.limit {
		return 0
	}
	return s.dropLocked(len(s.values) - s.limit)
}

func (s *Slice[V]) dropLocked(n int) int {
	clear(s.values[:n])
	s.values = s.values[n:]
	s.head += int64(n)
	return n
}

func (s *Slice[V]) Length() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.values)
}

// All returns a copy of the values in insertion order.
func (s *Slice[V]) All() []V {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]V(nil), s.values...)
}

// Snapshot returns a copy of the values and the absolute position of the
// first one. The value at index i of the copy is at position pos+i.
func (s *Slice[V]) Snapshot() ([]V, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]V(nil), s.values...), s.head
}

// DropBefore removes every value positioned before pos and returns how
// many were removed. Values that were already evicted are not counted.
func (s *Slice[V]) DropBefore(pos int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int(min(max(pos-s.head, 0), int64(len(s.values))))
	if n == 0 {
		return 0
	}
	s.rev++
	return s.dropLocked(n)
}

// Revision returns a counter that changes whenever the values do. Unlike
// Length it also moves when an append evicts a value.
func (s *Slice[V]) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.rev
}
