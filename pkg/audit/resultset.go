package audit

import (
	"sync"

	"github.com/Sternrassler/catalog-audit/pkg/catalog"
)

// ResultSet is the set of invalid product identifiers. Add is idempotent and
// commutative, and safe to call from concurrent workers.
type ResultSet struct {
	mu  sync.Mutex
	ids map[catalog.ProductID]struct{}
}

// NewResultSet creates an empty set.
func NewResultSet() *ResultSet {
	return &ResultSet{ids: make(map[catalog.ProductID]struct{})}
}

// Add inserts id and reports whether it was new.
func (s *ResultSet) Add(id catalog.ProductID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Contains reports whether id is in the set.
func (s *ResultSet) Contains(id catalog.ProductID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of distinct ids.
func (s *ResultSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Sorted returns the ids as a new slice ordered by catalog.CompareIDs.
func (s *ResultSet) Sorted() []catalog.ProductID {
	s.mu.Lock()
	out := make([]catalog.ProductID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	s.mu.Unlock()

	catalog.SortProductIDs(out)
	return out
}
