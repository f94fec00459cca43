package gesture

import (
	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/coords"
	"github.com/wudi/pdfmark/tool"
)

// Corner names the resize handle being dragged.
type Corner int

const (
	BottomRight Corner = iota
	BottomLeft
	TopRight
	TopLeft
)

// MinSize returns the smallest box an annotation of kind k may be resized to.
func MinSize(k annotation.Kind, s tool.Sizes) coords.Size {
	switch k {
	case annotation.KindText:
		return coords.Size{W: s.Text, H: s.Generic}
	case annotation.KindComment:
		return coords.Size{W: s.CommentWidth, H: s.CommentHeight}
	case annotation.KindStamp:
		return coords.Size{W: s.StampWidth, H: s.StampHeight}
	}
	return coords.Size{W: s.Generic, H: s.Generic}
}

// Resize drags one corner of an annotation. The opposite corner stays put
// and the box never leaves the overlay. It does not shrink below the kind's
// minimum unless the overlay edge leaves no room for it.
type Resize struct {
	store   *annotation.Store
	id      string
	overlay coords.Size
	corner  Corner
	sizes   tool.Sizes

	state State
	start coords.Point
	box   coords.Rect
	min   coords.Size
}

func NewResize(store *annotation.Store, id string, corner Corner, overlay coords.Size, sizes tool.Sizes) *Resize {
	return &Resize{store: store, id: id, corner: corner, overlay: overlay, sizes: sizes}
}

func (r *Resize) ID() string   { return r.id }
func (r *Resize) State() State { return r.state }

func (r *Resize) Begin(p coords.Point) error {
	if r.state != Idle {
		return ErrNotIdle
	}
	if err := checkOverlay(r.overlay); err != nil {
		return err
	}
	err := r.store.Update(r.id, func(a annotation.Annotation) error {
		annotation.Rescale(a, r.overlay)
		r.box = a.Common().Rect()
		r.min = MinSize(a.Kind(), r.sizes)
		return nil
	})
	if err != nil {
		return err
	}
	// the minimum is bounded by the room between the fixed edge and the
	// overlay edge the dragged corner moves towards
	b := r.box
	switch r.corner {
	case BottomRight, TopRight:
		r.min.W = minf(r.min.W, r.overlay.W-b.X)
	default:
		r.min.W = minf(r.min.W, b.X+b.W)
	}
	switch r.corner {
	case BottomRight, BottomLeft:
		r.min.H = minf(r.min.H, r.overlay.H-b.Y)
	default:
		r.min.H = minf(r.min.H, b.Y+b.H)
	}
	r.min.W = max(r.min.W, 0)
	r.min.H = max(r.min.H, 0)
	r.start = p
	r.state = Active
	return nil
}

func (r *Resize) Update(p coords.Point) error {
	if r.state != Active {
		return ErrNotActive
	}
	next := r.resized(p.X-r.start.X, p.Y-r.start.Y)
	return r.store.Update(r.id, func(a annotation.Annotation) error {
		annotation.Reshape(a, next, r.overlay)
		return nil
	})
}

func (r *Resize) resized(dx, dy float64) coords.Rect {
	b := r.box
	left, top := b.X, b.Y
	right, bottom := b.X+b.W, b.Y+b.H
	switch r.corner {
	case BottomRight, TopRight:
		right = coords.Clamp(right+dx, left+r.min.W, r.overlay.W)
	default:
		left = coords.Clamp(left+dx, 0, right-r.min.W)
	}
	switch r.corner {
	case BottomRight, BottomLeft:
		bottom = coords.Clamp(bottom+dy, top+r.min.H, r.overlay.H)
	default:
		top = coords.Clamp(top+dy, 0, bottom-r.min.H)
	}
	return coords.Rect{X: left, Y: top, W: right - left, H: bottom - top}
}

func (r *Resize) End() (State, error) {
	if r.state != Active {
		return r.state, ErrNotActive
	}
	r.state = Committed
	return r.state, nil
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
