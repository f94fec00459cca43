package annotation

import (
	"github.com/wudi/pdfmark/coords"
)

// points returns the vertex list of point-based kinds, or nil.
func points(a Annotation) *[]coords.Point {
	switch v := a.(type) {
	case *Draw:
		return &v.Points
	case *Shape:
		if !v.ShapeType.IsBox() {
			return &v.Points
		}
	}
	return nil
}

// Points returns a copy of the vertices of a draw or point-based shape.
func Points(a Annotation) []coords.Point {
	if p := points(a); p != nil {
		return clonePoints(*p)
	}
	return nil
}

// SyncBounds resets the Base box of a point-based annotation to the
// bounding box of its vertices.
func SyncBounds(a Annotation) {
	p := points(a)
	if p == nil || len(*p) == 0 {
		return
	}
	r := coords.Bounds(*p)
	b := a.Common()
	b.X, b.Y, b.W, b.H = r.X, r.Y, r.W, r.H
}

// MoveTo places the annotation's box at (x, y), carrying its vertices along.
func MoveTo(a Annotation, x, y float64, overlay coords.Size) {
	b := a.Common()
	dx, dy := x-b.X, y-b.Y
	if p := points(a); p != nil {
		for i := range *p {
			(*p)[i].X += dx
			(*p)[i].Y += dy
		}
	}
	b.SetGeometry(coords.Rect{X: x, Y: y, W: b.W, H: b.H}, overlay)
}

// Reshape sets a new box, scaling vertices proportionally from the old one.
func Reshape(a Annotation, r coords.Rect, overlay coords.Size) {
	b := a.Common()
	old := b.Rect()
	if p := points(a); p != nil {
		sx, sy := 1.0, 1.0
		if old.W > 0 {
			sx = r.W / old.W
		}
		if old.H > 0 {
			sy = r.H / old.H
		}
		for i := range *p {
			(*p)[i].X = r.X + ((*p)[i].X-old.X)*sx
			(*p)[i].Y = r.Y + ((*p)[i].Y-old.Y)*sy
		}
	}
	b.SetGeometry(r, overlay)
}

// Rescale re-expresses the geometry against a new overlay size, e.g. after
// the page was shown at a different zoom. It is a no-op when the snapshot
// already matches or was never taken.
func Rescale(a Annotation, overlay coords.Size) {
	b := a.Common()
	old := b.Overlay()
	if old.IsZero() || overlay.IsZero() || old == overlay {
		if old.IsZero() {
			b.OverlayW, b.OverlayH = overlay.W, overlay.H
		}
		return
	}
	sx, sy := overlay.W/old.W, overlay.H/old.H
	Reshape(a, coords.Rect{X: b.X * sx, Y: b.Y * sy, W: b.W * sx, H: b.H * sy}, overlay)
}
