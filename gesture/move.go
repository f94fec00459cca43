package gesture

import (
	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/coords"
)

// Move drags an annotation by its body, keeping it inside the overlay.
type Move struct {
	store   *annotation.Store
	id      string
	overlay coords.Size

	state  State
	origin coords.Point
	start  coords.Point
	size   coords.Size
}

func NewMove(store *annotation.Store, id string, overlay coords.Size) *Move {
	return &Move{store: store, id: id, overlay: overlay}
}

func (m *Move) ID() string   { return m.id }
func (m *Move) State() State { return m.state }

// Begin captures the annotation origin and the pointer position.
func (m *Move) Begin(p coords.Point) error {
	if m.state != Idle {
		return ErrNotIdle
	}
	if err := checkOverlay(m.overlay); err != nil {
		return err
	}
	err := m.store.Update(m.id, func(a annotation.Annotation) error {
		annotation.Rescale(a, m.overlay)
		b := a.Common()
		m.origin = coords.Point{X: b.X, Y: b.Y}
		m.size = coords.Size{W: b.W, H: b.H}
		return nil
	})
	if err != nil {
		return err
	}
	m.start = p
	m.state = Active
	return nil
}

// Update moves the annotation by the pointer delta, clamped to
// [0, overlay - size] on both axes.
func (m *Move) Update(p coords.Point) error {
	if m.state != Active {
		return ErrNotActive
	}
	x := coords.Clamp(m.origin.X+p.X-m.start.X, 0, m.overlay.W-m.size.W)
	y := coords.Clamp(m.origin.Y+p.Y-m.start.Y, 0, m.overlay.H-m.size.H)
	return m.store.Update(m.id, func(a annotation.Annotation) error {
		annotation.MoveTo(a, x, y, m.overlay)
		return nil
	})
}

// End commits; every in-bounds position is valid.
func (m *Move) End() (State, error) {
	if m.state != Active {
		return m.state, ErrNotActive
	}
	m.state = Committed
	return m.state, nil
}
