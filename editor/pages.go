package editor

import (
	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/pageprops"
)

// CurrentPage is the page shown, 0 when every page is hidden or deleted.
func (e *Editor) CurrentPage() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// SetPage shows page, or the nearest visible page after it.
func (e *Editor) SetPage(page int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pages == nil {
		return 0
	}
	e.goTo(e.pages.Resolve(page))
	return e.current
}

func (e *Editor) NextPage() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pages == nil {
		return 0
	}
	e.goTo(e.pages.Next(e.current))
	return e.current
}

func (e *Editor) PrevPage() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pages == nil {
		return 0
	}
	e.goTo(e.pages.Prev(e.current))
	return e.current
}

// goTo switches the current page. Leaving a page ends the gesture and the
// draft drawn on it and invalidates renders of the old page.
func (e *Editor) goTo(page int) {
	if page == e.current {
		return
	}
	e.abortGesture()
	e.drafts.Cancel()
	if a, ok := e.annots.Get(e.selected); !ok || a.Common().Page != page {
		e.selected = ""
	}
	e.current = page
	e.renderGen++
}

// mutatePages applies fn to a copy of the page properties and swaps it in
// when fn succeeds, then re-resolves the current page.
func (e *Editor) mutatePages(fn func(*pageprops.Set) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireDoc(); err != nil {
		return e.failLocked(err)
	}
	next := e.pages.Clone()
	if err := fn(next); err != nil {
		return e.failLocked(err)
	}
	e.pages = next
	// Rotation of the current page changes its render.
	e.renderGen++
	e.goTo(e.pages.Resolve(e.current))
	e.changed()
	return nil
}

// RotatePage turns page by delta degrees clockwise; delta is a multiple
// of 90.
func (e *Editor) RotatePage(page, delta int) error {
	return e.mutatePages(func(s *pageprops.Set) error { return s.Rotate(page, delta) })
}

func (e *Editor) HidePage(page int, hidden bool) error {
	return e.mutatePages(func(s *pageprops.Set) error { return s.SetHidden(page, hidden) })
}

// DeletePage marks page deleted. It stays restorable and keeps its
// annotations.
func (e *Editor) DeletePage(page int) error {
	return e.mutatePages(func(s *pageprops.Set) error { return s.Delete(page) })
}

func (e *Editor) RestorePage(page int) error {
	return e.mutatePages(func(s *pageprops.Set) error { return s.Restore(page) })
}

// DuplicatePage sets how many extra copies of page are exported.
func (e *Editor) DuplicatePage(page, copies int) error {
	return e.mutatePages(func(s *pageprops.Set) error { return s.SetDuplicates(page, copies) })
}

// HidePages hides or shows every page of a range such as "1-3,5".
func (e *Editor) HidePages(text string, hidden bool) error {
	return e.mutatePages(func(s *pageprops.Set) error {
		pages, err := pageprops.ParseRange(text, s.Count())
		if err != nil {
			return err
		}
		for _, p := range pages {
			if err := s.SetHidden(p, hidden); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeletePages marks every page of a range deleted.
func (e *Editor) DeletePages(text string) error {
	return e.mutatePages(func(s *pageprops.Set) error {
		pages, err := pageprops.ParseRange(text, s.Count())
		if err != nil {
			return err
		}
		for _, p := range pages {
			if err := s.Delete(p); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReorderPages puts the pages in a new order, given as the current page
// numbers in their new positions. Page properties and every annotation
// move together; on error nothing changes.
func (e *Editor) ReorderPages(order []int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireDoc(); err != nil {
		return e.failLocked(err)
	}
	e.abortGesture()
	m, next, err := e.pages.Reorder(order)
	if err != nil {
		return e.failLocked(err)
	}
	items, err := e.annots.PlanRemap(m)
	if err != nil {
		return e.failLocked(err)
	}
	if err := e.annots.Replace(items); err != nil {
		return e.failLocked(err)
	}
	e.drafts.Cancel()
	e.pages = next
	e.current = next.Resolve(m[e.current])
	e.renderGen++
	e.changed()
	return nil
}

// SetCommentsVisible shows or hides the comment layer in the preview and
// the export.
func (e *Editor) SetCommentsVisible(show bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.showComments == show {
		return
	}
	e.showComments = show
	if a, ok := e.annots.Get(e.selected); ok && !show && a.Kind() == annotation.KindComment {
		e.selected = ""
	}
	e.changed()
}

func (e *Editor) CommentsVisible() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.showComments
}
