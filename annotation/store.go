package annotation

import (
	"sort"
	"sync"

	"github.com/wudi/pdfmark/failure"
)

// Store is the in-memory collection of every annotation of the open
// document. Reads hand out clones; writes validate before swapping so a
// failed mutation leaves the store as it was.
type Store struct {
	mu    sync.RWMutex
	items []Annotation
	index map[string]int
}

func NewStore() *Store { return &Store{index: make(map[string]int)} }

// Add inserts a new annotation. Drafts may be added before they are valid;
// only the id and page are checked here.
func (s *Store) Add(a Annotation) error {
	if a == nil {
		return failure.Errorf(failure.InvalidInput, "annotation.Store.Add", "nil annotation")
	}
	b := a.Common()
	if b.ID == "" || b.Page < 1 {
		return failure.Errorf(failure.InvalidInput, "annotation.Store.Add", "%s: id %q page %d", a.Kind(), b.ID, b.Page)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[b.ID]; ok {
		return failure.Errorf(failure.InvalidInput, "annotation.Store.Add", "duplicate id %q", b.ID)
	}
	s.index[b.ID] = len(s.items)
	s.items = append(s.items, a.Clone())
	return nil
}

// Get returns a copy of the annotation with the given id.
func (s *Store) Get(id string) (Annotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.items[i].Clone(), true
}

// Update applies fn to a copy of the annotation and stores the result when
// fn succeeds. The id and kind cannot be changed.
func (s *Store) Update(id string, fn func(Annotation) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return failure.Errorf(failure.InvalidInput, "annotation.Store.Update", "no annotation %q", id)
	}
	next := s.items[i].Clone()
	if err := fn(next); err != nil {
		return err
	}
	if next.Common().ID != id || next.Kind() != s.items[i].Kind() {
		return failure.Errorf(failure.InvalidInput, "annotation.Store.Update", "identity of %q changed", id)
	}
	if next.Common().Page < 1 {
		return failure.Errorf(failure.InvalidInput, "annotation.Store.Update", "%q moved to page %d", id, next.Common().Page)
	}
	s.items[i] = next
	return nil
}

// Remove deletes the annotation and reports whether it existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	s.reindex()
	return true
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.items))
	for i, a := range s.items {
		s.index[a.Common().ID] = i
	}
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// All returns copies of every annotation in insertion order.
func (s *Store) All() []Annotation { return s.filter(func(Annotation) bool { return true }) }

// OfKind returns copies of the annotations of one kind.
func (s *Store) OfKind(k Kind) []Annotation {
	return s.filter(func(a Annotation) bool { return a.Kind() == k })
}

// OnPage returns copies of the annotations placed on page.
func (s *Store) OnPage(page int) []Annotation {
	return s.filter(func(a Annotation) bool { return a.Common().Page == page })
}

func (s *Store) filter(keep func(Annotation) bool) []Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Annotation
	for _, a := range s.items {
		if keep(a) {
			out = append(out, a.Clone())
		}
	}
	return out
}

// RemapPages rewrites every page number through m (old -> new). Every page
// in use must be mapped; otherwise nothing changes.
func (s *Store) RemapPages(m map[int]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := remap(s.items, m)
	if err != nil {
		return err
	}
	s.items = next
	return nil
}

// PlanRemap computes the remapped collection without touching the store, so
// callers can combine it with other state in one swap.
func (s *Store) PlanRemap(m map[int]int) ([]Annotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return remap(s.items, m)
}

func remap(items []Annotation, m map[int]int) ([]Annotation, error) {
	next := make([]Annotation, len(items))
	for i, a := range items {
		b := a.Common()
		to, ok := m[b.Page]
		if !ok || to < 1 {
			return nil, failure.Errorf(failure.InvalidInput, "annotation.Store.RemapPages", "page %d of %s has no target", b.Page, b.ID)
		}
		c := a.Clone()
		c.Common().Page = to
		next[i] = c
	}
	return next, nil
}

// Replace swaps the whole collection after checking ids are unique.
func (s *Store) Replace(items []Annotation) error {
	next := make([]Annotation, len(items))
	seen := make(map[string]bool, len(items))
	for i, a := range items {
		b := a.Common()
		if b.ID == "" || seen[b.ID] || b.Page < 1 {
			return failure.Errorf(failure.InvalidInput, "annotation.Store.Replace", "bad record %q on page %d", b.ID, b.Page)
		}
		seen[b.ID] = true
		next[i] = a.Clone()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = next
	s.reindex()
	return nil
}

// Reset empties the store.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.index = make(map[string]int)
}

// Pages returns the sorted distinct page numbers in use.
func (s *Store) Pages() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[int]bool)
	var out []int
	for _, a := range s.items {
		p := a.Common().Page
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Ints(out)
	return out
}
