package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// versioned is implemented by BOMs and routings
type versioned interface {
	VersionNumber() int
	Window() entities.Effectivity
	IsObsolete() bool
}

// versionStore keeps dated versions per product. Values are cloned on the
// way in and out so callers never alias stored state.
type versionStore[T versioned] struct {
	mu        sync.RWMutex
	kind      string
	byID      map[string]T
	byProduct map[entities.ProductID][]string
	idOf      func(T) string
	productOf func(T) entities.ProductID
	clone     func(T) T
}

func newVersionStore[T versioned](kind string, idOf func(T) string, productOf func(T) entities.ProductID, clone func(T) T) *versionStore[T] {
	return &versionStore[T]{
		kind:      kind,
		byID:      make(map[string]T),
		byProduct: make(map[entities.ProductID][]string),
		idOf:      idOf,
		productOf: productOf,
		clone:     clone,
	}
}

func (s *versionStore[T]) findByID(id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.byID[id]
	if !ok {
		var zero T
		return zero, entities.NewNotFoundError(s.kind, id)
	}
	return s.clone(v), nil
}

// findEffective returns the highest non-obsolete version covering date
func (s *versionStore[T]) findEffective(productID entities.ProductID, date time.Time) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		best  T
		found bool
	)
	for _, id := range s.byProduct[productID] {
		v := s.byID[id]
		if v.IsObsolete() || !v.Window().Covers(date) {
			continue
		}
		if !found || v.VersionNumber() > best.VersionNumber() {
			best, found = v, true
		}
	}
	if !found {
		var zero T
		return zero, entities.NewNotFoundError(s.kind,
			string(productID)+"@"+entities.DateOf(date).Format("2006-01-02"))
	}
	return s.clone(best), nil
}

func (s *versionStore[T]) findAllVersions(productID entities.ProductID) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0, len(s.byProduct[productID]))
	for _, id := range s.byProduct[productID] {
		out = append(out, s.clone(s.byID[id]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber() < out[j].VersionNumber() })
	return out
}

func (s *versionStore[T]) all() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0, len(s.byID))
	for _, v := range s.byID {
		out = append(out, s.clone(v))
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := s.productOf(out[i]), s.productOf(out[j])
		if pi != pj {
			return pi < pj
		}
		return out[i].VersionNumber() < out[j].VersionNumber()
	})
	return out
}

func (s *versionStore[T]) create(v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.idOf(v)
	if _, exists := s.byID[id]; exists {
		return entities.ErrVersionExists
	}
	for _, otherID := range s.byProduct[s.productOf(v)] {
		if s.byID[otherID].VersionNumber() == v.VersionNumber() {
			return entities.ErrVersionExists
		}
	}
	s.byID[id] = s.clone(v)
	s.byProduct[s.productOf(v)] = append(s.byProduct[s.productOf(v)], id)
	return nil
}

func (s *versionStore[T]) update(v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.idOf(v)
	if _, exists := s.byID[id]; !exists {
		return entities.NewNotFoundError(s.kind, id)
	}
	s.byID[id] = s.clone(v)
	return nil
}
