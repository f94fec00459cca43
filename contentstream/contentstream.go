// Package contentstream models page content operators: building them,
// encoding them into stream bytes, parsing them back and tracing the
// area each painting operator covers.
package contentstream

import (
	"errors"

	"github.com/wudi/pdfmark/coords"
)

type GraphicsState struct {
	CTM       coords.Matrix
	LineWidth float64
	stack     []GraphicsState
}

func (gs *GraphicsState) Save() {
	clone := *gs
	clone.stack = nil
	gs.stack = append(gs.stack, clone)
}

func (gs *GraphicsState) Restore() error {
	n := len(gs.stack)
	if n == 0 {
		return errors.New("state stack empty")
	}
	stack := gs.stack[:n-1]
	*gs = gs.stack[n-1]
	gs.stack = stack
	return nil
}

func (gs *GraphicsState) Depth() int { return len(gs.stack) }

type TextState struct {
	Font           string
	FontSize       float64
	TextMatrix     coords.Matrix
	TextLineMatrix coords.Matrix
}
