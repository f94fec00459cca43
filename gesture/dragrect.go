package gesture

import (
	"math"

	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/coords"
)

// DragRect creates a highlight or a rect/ellipse/line/arrow shape by
// dragging from an anchor corner. The box is the normalized bounds of the
// anchor and the pointer, so every drag direction behaves the same.
type DragRect struct {
	store   *annotation.Store
	overlay coords.Size

	state  State
	id     string
	anchor coords.Point
}

func NewDragRect(store *annotation.Store, overlay coords.Size) *DragRect {
	return &DragRect{store: store, overlay: overlay}
}

func (d *DragRect) ID() string   { return d.id }
func (d *DragRect) State() State { return d.state }

// Begin stores proto as a zero-size draft at p. proto must be a
// *annotation.Highlight or a *annotation.Shape that is not multi-click.
func (d *DragRect) Begin(p coords.Point, proto annotation.Annotation) error {
	if d.state != Idle {
		return ErrNotIdle
	}
	if err := checkOverlay(d.overlay); err != nil {
		return err
	}
	switch v := proto.(type) {
	case *annotation.Highlight:
	case *annotation.Shape:
		if v.ShapeType.IsMultiClick() {
			return errWrongProto(proto)
		}
	default:
		return errWrongProto(proto)
	}
	d.anchor = coords.ClampPoint(p, d.overlay)
	draft := proto.Clone()
	d.apply(draft, d.anchor)
	if err := d.store.Add(draft); err != nil {
		return err
	}
	d.id = draft.Common().ID
	d.state = Active
	return nil
}

func (d *DragRect) apply(a annotation.Annotation, p coords.Point) {
	if s, ok := a.(*annotation.Shape); ok && !s.ShapeType.IsBox() {
		s.Points = []coords.Point{d.anchor, p}
		s.OverlayW, s.OverlayH = d.overlay.W, d.overlay.H
		annotation.SyncBounds(s)
		return
	}
	a.Common().SetGeometry(coords.RectFromPoints(d.anchor, p), d.overlay)
}

func (d *DragRect) Update(p coords.Point) error {
	if d.state != Active {
		return ErrNotActive
	}
	q := coords.ClampPoint(p, d.overlay)
	return d.store.Update(d.id, func(a annotation.Annotation) error {
		d.apply(a, q)
		return nil
	})
}

// End commits the draft when it is large enough and removes it otherwise.
func (d *DragRect) End() (State, error) {
	if d.state != Active {
		return d.state, ErrNotActive
	}
	a, ok := d.store.Get(d.id)
	if !ok {
		d.state = Discarded
		return d.state, nil
	}
	if !bigEnough(a) {
		d.store.Remove(d.id)
		d.state = Discarded
		return d.state, nil
	}
	if err := annotation.Validate(a); err != nil {
		d.store.Remove(d.id)
		d.state = Discarded
		return d.state, err
	}
	d.state = Committed
	return d.state, nil
}

func bigEnough(a annotation.Annotation) bool {
	b := a.Common()
	switch v := a.(type) {
	case *annotation.Highlight:
		return b.W >= annotation.MinMarkSize && b.H >= annotation.MinMarkSize
	case *annotation.Shape:
		if v.ShapeType.IsBox() {
			return b.W > annotation.MinMarkSize && b.H > annotation.MinMarkSize
		}
		if len(v.Points) != 2 {
			return false
		}
		return math.Hypot(v.Points[1].X-v.Points[0].X, v.Points[1].Y-v.Points[0].Y) > annotation.MinMarkSize
	}
	return false
}
