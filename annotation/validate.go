package annotation

import (
	"fmt"
	"math"

	"github.com/wudi/pdfmark/failure"
)

// MinMarkSize is the smallest width and height a highlight or dragged shape
// may be committed with.
const MinMarkSize = 2.0

func invalid(format string, args ...interface{}) error {
	return failure.Errorf(failure.InvalidInput, "annotation.Validate", format, args...)
}

// Validate checks the invariants of a committed annotation.
func Validate(a Annotation) error {
	if a == nil {
		return invalid("nil annotation")
	}
	b := a.Common()
	if b.ID == "" {
		return invalid("%s annotation without id", a.Kind())
	}
	if b.Page < 1 {
		return invalid("%s %s: page %d", a.Kind(), b.ID, b.Page)
	}
	for _, v := range []float64{b.X, b.Y, b.W, b.H, b.OverlayW, b.OverlayH} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalid("%s %s: non-finite geometry", a.Kind(), b.ID)
		}
	}
	if b.W < 0 || b.H < 0 {
		return invalid("%s %s: negative size", a.Kind(), b.ID)
	}
	switch v := a.(type) {
	case *Image:
		if v.AssetID == "" {
			return invalid("image %s: no asset", b.ID)
		}
	case *Text:
		if len(v.Spans) == 0 {
			return invalid("text %s: no spans", b.ID)
		}
		if JoinSpans(v.Spans) != v.Text {
			return invalid("text %s: spans do not match text", b.ID)
		}
	case *Signature:
		if v.Text == "" {
			return invalid("signature %s: empty text", b.ID)
		}
	case *Draw:
		if len(v.Points) == 0 {
			return invalid("draw %s: no points", b.ID)
		}
		if err := checkOpacity(v.Opacity); err != nil {
			return err
		}
	case *Highlight:
		if b.W < MinMarkSize || b.H < MinMarkSize {
			return invalid("highlight %s: %gx%g below minimum", b.ID, b.W, b.H)
		}
		if err := checkOpacity(v.Opacity); err != nil {
			return err
		}
	case *Shape:
		if err := validateShape(v); err != nil {
			return err
		}
	case *Comment, *Stamp:
	default:
		return invalid("unsupported annotation type %T", a)
	}
	return nil
}

func validateShape(s *Shape) error {
	if !s.ShapeType.Valid() {
		return invalid("shape %s: unknown type %q", s.ID, s.ShapeType)
	}
	switch {
	case s.ShapeType.IsBox():
		if s.W <= MinMarkSize || s.H <= MinMarkSize {
			return invalid("shape %s: %gx%g below minimum", s.ID, s.W, s.H)
		}
	case s.ShapeType.IsMultiClick():
		if len(s.Points) < 3 {
			return invalid("%s %s: %d points, need 3", s.ShapeType, s.ID, len(s.Points))
		}
	default:
		if len(s.Points) != 2 {
			return invalid("%s %s: %d points, need 2", s.ShapeType, s.ID, len(s.Points))
		}
	}
	return checkOpacity(s.Style.Opacity)
}

func checkOpacity(o float64) error {
	if o < 0 || o > 1 || math.IsNaN(o) {
		return invalid("opacity %v outside [0,1]", o)
	}
	return nil
}

// Describe is a short human label used in logs.
func Describe(a Annotation) string {
	b := a.Common()
	return fmt.Sprintf("%s %s on page %d", a.Kind(), b.ID, b.Page)
}
