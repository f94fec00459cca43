package gesture

import (
	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/coords"
)

// Freehand records a pen stroke. The draft is stored on the first point so
// it renders while being drawn; points are kept exactly as received.
type Freehand struct {
	store   *annotation.Store
	overlay coords.Size

	state State
	id    string
}

func NewFreehand(store *annotation.Store, overlay coords.Size) *Freehand {
	return &Freehand{store: store, overlay: overlay}
}

func (f *Freehand) ID() string   { return f.id }
func (f *Freehand) State() State { return f.state }

// Begin inserts proto (page, id and stroke style set by the caller) with p
// as its first point.
func (f *Freehand) Begin(p coords.Point, proto *annotation.Draw) error {
	if f.state != Idle {
		return ErrNotIdle
	}
	if err := checkOverlay(f.overlay); err != nil {
		return err
	}
	d := proto.Clone().(*annotation.Draw)
	d.Points = []coords.Point{coords.ClampPoint(p, f.overlay)}
	d.OverlayW, d.OverlayH = f.overlay.W, f.overlay.H
	annotation.SyncBounds(d)
	if err := f.store.Add(d); err != nil {
		return err
	}
	f.id = d.ID
	f.state = Active
	return nil
}

func (f *Freehand) Update(p coords.Point) error {
	if f.state != Active {
		return ErrNotActive
	}
	q := coords.ClampPoint(p, f.overlay)
	return f.store.Update(f.id, func(a annotation.Annotation) error {
		d := a.(*annotation.Draw)
		d.Points = append(d.Points, q)
		annotation.SyncBounds(d)
		return nil
	})
}

// Lift records the pointer-up position. Pointer-up usually repeats the last
// move, so p is only appended when it differs from the stroke's last point.
func (f *Freehand) Lift(p coords.Point) error {
	if f.state != Active {
		return ErrNotActive
	}
	q := coords.ClampPoint(p, f.overlay)
	return f.store.Update(f.id, func(a annotation.Annotation) error {
		d := a.(*annotation.Draw)
		if n := len(d.Points); n > 0 && d.Points[n-1] == q {
			return nil
		}
		d.Points = append(d.Points, q)
		annotation.SyncBounds(d)
		return nil
	})
}

// End always commits: a single point is a valid dot.
func (f *Freehand) End() (State, error) {
	if f.state != Active {
		return f.state, ErrNotActive
	}
	f.state = Committed
	return f.state, nil
}
