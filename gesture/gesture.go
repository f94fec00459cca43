// Package gesture implements the pointer state machines that create and
// edit annotations. Every controller moves Idle -> Active -> Committed or
// Discarded and writes through to an annotation.Store.
package gesture

import (
	"errors"
	"fmt"

	"github.com/wudi/pdfmark/coords"
)

type State int

const (
	Idle State = iota
	Active
	Committed
	Discarded
)

var stateNames = []string{"Idle", "Active", "Committed", "Discarded"}

func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Done reports whether the gesture reached a final state.
func (s State) Done() bool { return s == Committed || s == Discarded }

var (
	ErrNotIdle   = errors.New("gesture already started")
	ErrNotActive = errors.New("gesture not active")
)

// Controller is the common shape of the pointer gestures.
type Controller interface {
	Update(p coords.Point) error
	End() (State, error)
	State() State
	// ID is the annotation the gesture works on.
	ID() string
}

func checkOverlay(overlay coords.Size) error {
	if overlay.IsZero() {
		return fmt.Errorf("gesture: overlay %gx%g not measured", overlay.W, overlay.H)
	}
	return nil
}
