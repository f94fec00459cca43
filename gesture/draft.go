package gesture

import (
	"fmt"

	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/coords"
)

func errWrongProto(a annotation.Annotation) error {
	return fmt.Errorf("gesture: %T cannot be drawn by this gesture", a)
}

// Draft is a polygon or cloud under construction. It lives outside the
// store until it is finished.
type Draft struct {
	ShapeType annotation.ShapeType
	Page      int
	Overlay   coords.Size
	Style     annotation.ShapeStyle
	Points    []coords.Point
	// Preview is the would-be next vertex under the pointer. It is only
	// drawn, never stored.
	Preview *coords.Point
}

// Outline returns the vertices to draw, including the preview point.
func (d *Draft) Outline() []coords.Point {
	pts := append([]coords.Point(nil), d.Points...)
	if d.Preview != nil {
		pts = append(pts, *d.Preview)
	}
	return pts
}

// MinDraftPoints is the vertex count a polygon or cloud needs to finish.
const MinDraftPoints = 3

// DraftSlot holds at most one in-progress multi-click shape.
type DraftSlot struct {
	cur *Draft
}

// Current returns a copy of the open draft, or nil.
func (s *DraftSlot) Current() *Draft {
	if s.cur == nil {
		return nil
	}
	c := *s.cur
	c.Points = append([]coords.Point(nil), s.cur.Points...)
	if s.cur.Preview != nil {
		p := *s.cur.Preview
		c.Preview = &p
	}
	return &c
}

// Open reports whether a draft is in progress.
func (s *DraftSlot) Open() bool { return s.cur != nil }

// Click starts a draft or appends a vertex to the open one. A draft of a
// different shape type or page is replaced. A click on the last vertex is
// ignored, which absorbs the second click of a double-click.
func (s *DraftSlot) Click(page int, st annotation.ShapeType, p coords.Point, overlay coords.Size, style annotation.ShapeStyle) error {
	if !st.IsMultiClick() {
		return fmt.Errorf("gesture: %s is not a multi-click shape", st)
	}
	if err := checkOverlay(overlay); err != nil {
		return err
	}
	p = coords.ClampPoint(p, overlay)
	if s.cur == nil || s.cur.ShapeType != st || s.cur.Page != page {
		s.cur = &Draft{ShapeType: st, Page: page, Overlay: overlay, Style: style}
	}
	if n := len(s.cur.Points); n > 0 && s.cur.Points[n-1] == p {
		return nil
	}
	s.cur.Points = append(s.cur.Points, p)
	s.cur.Preview = nil
	return nil
}

// Hover moves the preview vertex.
func (s *DraftSlot) Hover(p coords.Point) {
	if s.cur == nil {
		return
	}
	q := coords.ClampPoint(p, s.cur.Overlay)
	s.cur.Preview = &q
}

// Finish commits the draft into store as a Shape with id and clears the
// slot. With fewer than three vertices nothing happens and ok is false.
func (s *DraftSlot) Finish(store *annotation.Store, id string) (shape *annotation.Shape, ok bool, err error) {
	if s.cur == nil || len(s.cur.Points) < MinDraftPoints {
		return nil, false, nil
	}
	d := s.cur
	shape = &annotation.Shape{
		Base:      annotation.Base{ID: id, Page: d.Page, OverlayW: d.Overlay.W, OverlayH: d.Overlay.H},
		ShapeType: d.ShapeType,
		Points:    append([]coords.Point(nil), d.Points...),
		Style:     d.Style,
	}
	annotation.SyncBounds(shape)
	if err := annotation.Validate(shape); err != nil {
		return nil, false, err
	}
	if err := store.Add(shape); err != nil {
		return nil, false, err
	}
	s.cur = nil
	return shape, true, nil
}

// Cancel drops the draft without committing it.
func (s *DraftSlot) Cancel() { s.cur = nil }
