// Package pageprops tracks per-page rotation, visibility, deletion and
// duplication, and projects them onto the editor's visible page list and
// the exported page sequence.
package pageprops

import (
	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/coords"
	"github.com/wudi/pdfmark/failure"
)

// Props are the properties of one page. Source is the page's number in
// the loaded document; it differs from the page's position after a
// reorder.
type Props struct {
	Source         int  `json:"source"`
	Rotation       int  `json:"rotation"`
	Hidden         bool `json:"hidden"`
	Deleted        bool `json:"deleted"`
	DuplicateCount int  `json:"duplicateCount"`
}

// Excluded reports whether the page is left out of the view and the export.
func (p Props) Excluded() bool { return p.Hidden || p.Deleted }

// Set holds the properties of pages 1..N. The zero value has no pages.
type Set struct {
	pages []Props
}

// New returns default properties for a document of n pages.
func New(n int) *Set {
	if n < 0 {
		n = 0
	}
	s := &Set{pages: make([]Props, n)}
	for i := range s.pages {
		s.pages[i].Source = i + 1
	}
	return s
}

// FromProps rebuilds a set from a slice indexed by page-1, normalising
// values that could not have been produced by the mutators.
func FromProps(props []Props) *Set {
	s := &Set{pages: make([]Props, len(props))}
	for i, p := range props {
		p.Rotation = coords.NormalizeRotation(p.Rotation)
		if p.DuplicateCount < 0 {
			p.DuplicateCount = 0
		}
		if p.Deleted {
			p.Hidden = false
		}
		if p.Source < 1 {
			p.Source = i + 1
		}
		s.pages[i] = p
	}
	return s
}

// Props returns a copy of the per-page properties, indexed by page-1.
func (s *Set) Props() []Props {
	return append([]Props(nil), s.pages...)
}

func (s *Set) Clone() *Set { return &Set{pages: s.Props()} }

func (s *Set) Count() int { return len(s.pages) }

func (s *Set) check(op string, page int) error {
	if page < 1 || page > len(s.pages) {
		return failure.Errorf(failure.InvalidInput, op, "page %d out of range 1..%d", page, len(s.pages))
	}
	return nil
}

// Get returns the properties of page.
func (s *Set) Get(page int) (Props, error) {
	if err := s.check("pageprops.get", page); err != nil {
		return Props{}, err
	}
	return s.pages[page-1], nil
}

// Source returns the document page shown at position page.
func (s *Set) Source(page int) (int, error) {
	p, err := s.Get(page)
	if err != nil {
		return 0, err
	}
	return p.Source, nil
}

// Rotate adds delta degrees, a multiple of 90, to the page's rotation.
func (s *Set) Rotate(page, delta int) error {
	if err := s.check("pageprops.rotate", page); err != nil {
		return err
	}
	if delta%90 != 0 {
		return failure.Errorf(failure.InvalidInput, "pageprops.rotate", "rotation %d is not a multiple of 90", delta)
	}
	p := &s.pages[page-1]
	p.Rotation = coords.NormalizeRotation(p.Rotation + delta)
	return nil
}

// SetHidden toggles visibility. Deleted pages are outside hidden
// bookkeeping and refuse the change.
func (s *Set) SetHidden(page int, hidden bool) error {
	if err := s.check("pageprops.hide", page); err != nil {
		return err
	}
	p := &s.pages[page-1]
	if p.Deleted {
		return failure.Errorf(failure.InvalidInput, "pageprops.hide", "page %d is deleted", page)
	}
	p.Hidden = hidden
	return nil
}

// Delete marks the page deleted and clears its hidden flag. Rotation and
// duplicate count are kept so Restore brings the page back as it was.
func (s *Set) Delete(page int) error {
	if err := s.check("pageprops.delete", page); err != nil {
		return err
	}
	p := &s.pages[page-1]
	p.Deleted = true
	p.Hidden = false
	return nil
}

func (s *Set) Restore(page int) error {
	if err := s.check("pageprops.restore", page); err != nil {
		return err
	}
	s.pages[page-1].Deleted = false
	return nil
}

// SetDuplicates sets how many extra copies of the page are exported.
func (s *Set) SetDuplicates(page, n int) error {
	if err := s.check("pageprops.duplicate", page); err != nil {
		return err
	}
	if n < 0 {
		return failure.Errorf(failure.InvalidInput, "pageprops.duplicate", "duplicate count %d is negative", n)
	}
	s.pages[page-1].DuplicateCount = n
	return nil
}

// VisiblePages lists the pages shown in the editor, in order.
func (s *Set) VisiblePages() []int {
	var out []int
	for i, p := range s.pages {
		if !p.Excluded() {
			out = append(out, i+1)
		}
	}
	return out
}

// ExportSequence lists, for each output page in order, the original page it
// is copied from. Duplicates directly follow their primary page.
func (s *Set) ExportSequence() []int {
	var out []int
	for i, p := range s.pages {
		if p.Excluded() {
			continue
		}
		for c := 0; c <= p.DuplicateCount; c++ {
			out = append(out, i+1)
		}
	}
	return out
}

// OutputPositions maps each original page number to the 1-based output
// positions it occupies in seq.
func OutputPositions(seq []int) map[int][]int {
	out := make(map[int][]int)
	for i, page := range seq {
		out[page] = append(out[page], i+1)
	}
	return out
}

// RemapForExport returns one copy of each annotation per output position
// of its page, with the page number rewritten to that position.
// Annotations on pages absent from seq are dropped. Input is not modified.
func RemapForExport[T annotation.Annotation](items []T, seq []int) []T {
	positions := OutputPositions(seq)
	var out []T
	for _, a := range items {
		for _, pos := range positions[a.Common().Page] {
			c := a.Clone().(T)
			c.Common().Page = pos
			out = append(out, c)
		}
	}
	return out
}

// Next returns the first visible page after cur, or cur's clamp to the
// last visible page when there is none. It returns 0 if nothing is visible.
func (s *Set) Next(cur int) int {
	vis := s.VisiblePages()
	if len(vis) == 0 {
		return 0
	}
	for _, p := range vis {
		if p > cur {
			return p
		}
	}
	return vis[len(vis)-1]
}

// Prev is the mirror of Next.
func (s *Set) Prev(cur int) int {
	vis := s.VisiblePages()
	if len(vis) == 0 {
		return 0
	}
	for i := len(vis) - 1; i >= 0; i-- {
		if vis[i] < cur {
			return vis[i]
		}
	}
	return vis[0]
}

// Resolve returns cur when it is visible, otherwise the nearest following
// visible page, otherwise the last visible page. It returns 0 if nothing
// is visible.
func (s *Set) Resolve(cur int) int {
	vis := s.VisiblePages()
	if len(vis) == 0 {
		return 0
	}
	for _, p := range vis {
		if p >= cur {
			return p
		}
	}
	return vis[len(vis)-1]
}

// Reorder applies a new page order, given as the old page numbers in their
// new positions. It returns the old to new page map and the permuted
// properties; the receiver is not modified so the caller can swap both
// in together with the annotation remap.
func (s *Set) Reorder(order []int) (map[int]int, *Set, error) {
	const op = "pageprops.reorder"
	if len(order) != len(s.pages) {
		return nil, nil, failure.Errorf(failure.InvalidInput, op, "order has %d pages, document has %d", len(order), len(s.pages))
	}
	m := make(map[int]int, len(order))
	next := &Set{pages: make([]Props, len(order))}
	for i, old := range order {
		if err := s.check(op, old); err != nil {
			return nil, nil, err
		}
		if _, dup := m[old]; dup {
			return nil, nil, failure.Errorf(failure.InvalidInput, op, "page %d listed twice", old)
		}
		m[old] = i + 1
		next.pages[i] = s.pages[old-1]
	}
	return m, next, nil
}
