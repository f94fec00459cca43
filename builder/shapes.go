package builder

import (
	"math"

	"github.com/wudi/pdfmark/contentstream"
	"github.com/wudi/pdfmark/coords"
)

// kappa places cubic control points for a quarter ellipse.
const kappa = 0.5522847498

// EllipsePath returns an ellipse inscribed in r as four cubic curves.
func EllipsePath(r coords.Rect) *contentstream.Path {
	rx, ry := r.W/2, r.H/2
	cx, cy := r.X+rx, r.Y+ry
	ox, oy := rx*kappa, ry*kappa
	p := &contentstream.Path{}
	p.MoveTo(cx+rx, cy)
	p.CurveTo(cx+rx, cy+oy, cx+ox, cy+ry, cx, cy+ry)
	p.CurveTo(cx-ox, cy+ry, cx-rx, cy+oy, cx-rx, cy)
	p.CurveTo(cx-rx, cy-oy, cx-ox, cy-ry, cx, cy-ry)
	p.CurveTo(cx+ox, cy-ry, cx+rx, cy-oy, cx+rx, cy)
	return p.Close()
}

// PolylinePath joins pts with straight segments, closing the path when asked.
func PolylinePath(pts []coords.Point, closed bool) *contentstream.Path {
	p := &contentstream.Path{}
	if len(pts) == 0 {
		return p
	}
	p.MoveTo(pts[0].X, pts[0].Y)
	for _, pt := range pts[1:] {
		p.LineTo(pt.X, pt.Y)
	}
	if closed {
		p.Close()
	}
	return p
}

// SmoothPath runs a Catmull-Rom spline through pts, which keeps freehand
// strokes from looking faceted. Fewer than three points stay straight.
func SmoothPath(pts []coords.Point) *contentstream.Path {
	if len(pts) < 3 {
		return PolylinePath(pts, false)
	}
	p := &contentstream.Path{}
	p.MoveTo(pts[0].X, pts[0].Y)
	for i := 0; i+1 < len(pts); i++ {
		p0 := pts[max(i-1, 0)]
		p1 := pts[i]
		p2 := pts[i+1]
		p3 := pts[min(i+2, len(pts)-1)]
		p.CurveTo(
			p1.X+(p2.X-p0.X)/6, p1.Y+(p2.Y-p0.Y)/6,
			p2.X-(p3.X-p1.X)/6, p2.Y-(p3.Y-p1.Y)/6,
			p2.X, p2.Y,
		)
	}
	return p
}

// signedArea is positive for counter-clockwise polygons in a y-up space.
func signedArea(pts []coords.Point) float64 {
	a := 0.0
	for i := range pts {
		j := (i + 1) % len(pts)
		a += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return a / 2
}

// CloudPath outlines the closed polygon pts with scallops of roughly the
// given radius bulging outward. Each scallop is a quadratic arc written as
// the equivalent cubic.
func CloudPath(pts []coords.Point, radius float64) *contentstream.Path {
	p := &contentstream.Path{}
	if len(pts) < 3 {
		return PolylinePath(pts, true)
	}
	if radius <= 0 {
		radius = 6
	}
	// Outward normal of edge (dx, dy) is (dy, -dx) when the polygon winds
	// counter-clockwise.
	dir := 1.0
	if signedArea(pts) < 0 {
		dir = -1
	}
	p.MoveTo(pts[0].X, pts[0].Y)
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		dx, dy := b.X-a.X, b.Y-a.Y
		length := math.Hypot(dx, dy)
		if length == 0 {
			continue
		}
		n := max(1, int(math.Ceil(length/(2*radius))))
		nx, ny := dir*dy/length, -dir*dx/length
		step := length / float64(n)
		for k := 0; k < n; k++ {
			s := coords.Point{X: a.X + dx*float64(k)/float64(n), Y: a.Y + dy*float64(k)/float64(n)}
			e := coords.Point{X: a.X + dx*float64(k+1)/float64(n), Y: a.Y + dy*float64(k+1)/float64(n)}
			q := coords.Point{X: (s.X+e.X)/2 + nx*step, Y: (s.Y+e.Y)/2 + ny*step}
			p.CurveTo(
				s.X+2*(q.X-s.X)/3, s.Y+2*(q.Y-s.Y)/3,
				e.X+2*(q.X-e.X)/3, e.Y+2*(q.Y-e.Y)/3,
				e.X, e.Y,
			)
		}
	}
	return p.Close()
}

// ArrowHead returns a closed triangle whose tip sits at to, pointing away
// from from. size is the length of the head along the shaft.
func ArrowHead(from, to coords.Point, size float64) *contentstream.Path {
	angle := math.Atan2(to.Y-from.Y, to.X-from.X)
	const spread = math.Pi / 6
	left := coords.Point{X: to.X - size*math.Cos(angle-spread), Y: to.Y - size*math.Sin(angle-spread)}
	right := coords.Point{X: to.X - size*math.Cos(angle+spread), Y: to.Y - size*math.Sin(angle+spread)}
	return PolylinePath([]coords.Point{to, left, right}, true)
}

// ArrowHeadSize scales the head with the stroke so thin arrows stay legible.
func ArrowHeadSize(lineWidth float64) float64 {
	return max(10, lineWidth*4)
}

// DrawArrow strokes the shaft and fills the head in the stroke color.
func (c *Canvas) DrawArrow(from, to coords.Point, opts PathOptions) {
	size := ArrowHeadSize(opts.LineWidth)
	length := math.Hypot(to.X-from.X, to.Y-from.Y)
	end := to
	if length > size {
		// Stop the shaft inside the head so a wide stroke does not poke out.
		t := (length - size/2) / length
		end = coords.Point{X: from.X + (to.X-from.X)*t, Y: from.Y + (to.Y-from.Y)*t}
	}
	shaft := opts
	shaft.Stroke, shaft.Fill = true, false
	c.DrawPath((&contentstream.Path{}).MoveTo(from.X, from.Y).LineTo(end.X, end.Y), shaft)

	head := opts
	head.Fill, head.Stroke = true, false
	head.FillColor = opts.StrokeColor
	c.DrawPath(ArrowHead(from, to, size), head)
}
