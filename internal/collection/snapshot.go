package collection

import "sync"

// Snapshot holds an ordered, keyed value set that is only ever replaced
// wholesale; readers never observe a partial mix of an old and a new set.
type Snapshot[K comparable, V any] struct {
	mux   sync.RWMutex
	index map[K]V
	order []V
}

func (s *Snapshot[K, V]) Lookup(k K) (V, bool) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	v, ok := s.index[k]
	return v, ok
}

// Values returns a copy of the current set in its original order.
func (s *Snapshot[K, V]) Values() []V {
	s.mux.RLock()
	defer s.mux.RUnlock()
	ret := make([]V, len(s.order))
	copy(ret, s.order)
	return ret
}

func (s *Snapshot[K, V]) Len() int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return len(s.order)
}

// Replace swaps the entire set atomically; key extracts the index key.
func (s *Snapshot[K, V]) Replace(values []V, key func(V) K) {
	index := make(map[K]V, len(values))
	order := make([]V, len(values))
	copy(order, values)
	for _, v := range order {
		index[key(v)] = v
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	s.index = index
	s.order = order
}

func NewSnapshot[K comparable, V any]() *Snapshot[K, V] {
	return &Snapshot[K, V]{index: make(map[K]V)}
}
