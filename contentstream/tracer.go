package contentstream

import (
	"fmt"

	"github.com/wudi/pdfmark/coords"
)

// OpBBox is the user-space area painted by one operation.
type OpBBox struct {
	OpIndex int
	Rect    coords.Rect
}

// WidthFunc returns the advance of s, in thousandths of text space, when
// shown with the named font resource.
type WidthFunc func(font string, s []byte) float64

// Tracer calculates the bounding boxes of painting operations.
type Tracer struct {
	Widths WidthFunc
}

func NewTracer(widths WidthFunc) *Tracer {
	return &Tracer{Widths: widths}
}

// Trace executes the operations virtually and returns one box per path
// painting operator, text showing operator and XObject invocation.
func (t *Tracer) Trace(ops []Operation) ([]OpBBox, error) {
	var bboxes []OpBBox
	gs := &GraphicsState{CTM: coords.Identity()}
	ts := &TextState{TextMatrix: coords.Identity(), TextLineMatrix: coords.Identity()}
	var path []coords.Point

	for i, op := range ops {
		switch op.Operator {
		case "q":
			gs.Save()
		case "Q":
			if err := gs.Restore(); err != nil {
				return nil, fmt.Errorf("op %d: %w", i, err)
			}
		case "cm":
			if len(op.Operands) == 6 {
				gs.CTM = matrixOf(op.Operands).Multiply(gs.CTM)
			}
		case "w":
			if len(op.Operands) == 1 {
				gs.LineWidth = Float(op.Operands[0])
			}
		case "BT":
			ts.TextMatrix = coords.Identity()
			ts.TextLineMatrix = coords.Identity()
		case "Tf":
			if len(op.Operands) == 2 {
				if name, ok := op.Operands[0].(NameOperand); ok {
					ts.Font = name.Value
				}
				ts.FontSize = Float(op.Operands[1])
			}
		case "Tm":
			if len(op.Operands) == 6 {
				ts.TextLineMatrix = matrixOf(op.Operands)
				ts.TextMatrix = ts.TextLineMatrix
			}
		case "Td":
			if len(op.Operands) == 2 {
				m := coords.Translate(Float(op.Operands[0]), Float(op.Operands[1]))
				ts.TextLineMatrix = m.Multiply(ts.TextLineMatrix)
				ts.TextMatrix = ts.TextLineMatrix
			}
		case "Tj", "TJ":
			if len(op.Operands) == 1 {
				width := t.showWidth(ts.Font, op.Operands[0])
				w := width / 1000 * ts.FontSize
				bboxes = append(bboxes, OpBBox{OpIndex: i, Rect: box(ts.TextMatrix.Multiply(gs.CTM), 0, 0, w, ts.FontSize)})
				ts.TextMatrix = coords.Translate(w, 0).Multiply(ts.TextMatrix)
			}
		case "re":
			if len(op.Operands) == 4 {
				x, y := Float(op.Operands[0]), Float(op.Operands[1])
				w, h := Float(op.Operands[2]), Float(op.Operands[3])
				for _, p := range []coords.Point{{X: x, Y: y}, {X: x + w, Y: y}, {X: x, Y: y + h}, {X: x + w, Y: y + h}} {
					path = append(path, gs.CTM.Transform(p))
				}
			}
		case "m", "l":
			if len(op.Operands) == 2 {
				path = append(path, gs.CTM.Transform(coords.Point{X: Float(op.Operands[0]), Y: Float(op.Operands[1])}))
			}
		case "c":
			if len(op.Operands) == 6 {
				for k := 0; k < 6; k += 2 {
					path = append(path, gs.CTM.Transform(coords.Point{X: Float(op.Operands[k]), Y: Float(op.Operands[k+1])}))
				}
			}
		case "S", "s", "f", "F", "f*", "B", "B*", "b", "b*":
			if len(path) > 0 {
				bboxes = append(bboxes, OpBBox{OpIndex: i, Rect: coords.Bounds(path)})
			}
			path = path[:0]
		case "n":
			path = path[:0]
		case "Do":
			bboxes = append(bboxes, OpBBox{OpIndex: i, Rect: box(gs.CTM, 0, 0, 1, 1)})
		}
	}
	if gs.Depth() != 0 {
		return bboxes, fmt.Errorf("unbalanced q/Q: %d open", gs.Depth())
	}
	return bboxes, nil
}

func (t *Tracer) showWidth(font string, operand Operand) float64 {
	total := 0.0
	switch v := operand.(type) {
	case StringOperand:
		total += t.width(font, v.Value)
	case ArrayOperand:
		for _, it := range v.Values {
			switch e := it.(type) {
			case StringOperand:
				total += t.width(font, e.Value)
			case NumberOperand:
				total -= e.Value
			}
		}
	}
	return total
}

func (t *Tracer) width(font string, s []byte) float64 {
	if t.Widths == nil {
		return float64(len(s)) * 500
	}
	return t.Widths(font, s)
}

func matrixOf(ops []Operand) coords.Matrix {
	return coords.Matrix{Float(ops[0]), Float(ops[1]), Float(ops[2]), Float(ops[3]), Float(ops[4]), Float(ops[5])}
}

func box(m coords.Matrix, x, y, w, h float64) coords.Rect {
	return coords.Bounds([]coords.Point{
		m.Transform(coords.Point{X: x, Y: y}),
		m.Transform(coords.Point{X: x + w, Y: y}),
		m.Transform(coords.Point{X: x, Y: y + h}),
		m.Transform(coords.Point{X: x + w, Y: y + h}),
	})
}
