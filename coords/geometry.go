package coords

import "math"

// Size is a width/height pair in one coordinate space.
type Size struct{ W, H float64 }

func (s Size) IsZero() bool { return s.W <= 0 || s.H <= 0 }

// Rect is an axis-aligned rectangle. In overlay space (X, Y) is the top-left
// corner; in document space it is the bottom-left corner.
type Rect struct{ X, Y, W, H float64 }

func (r Rect) Max() Point { return Point{X: r.X + r.W, Y: r.Y + r.H} }

func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// RectFromPoints returns the normalized bounding box of a and b.
func RectFromPoints(a, b Point) Rect {
	return Rect{
		X: math.Min(a.X, b.X),
		Y: math.Min(a.Y, b.Y),
		W: math.Abs(a.X - b.X),
		H: math.Abs(a.Y - b.Y),
	}
}

// Bounds returns the bounding box of pts.
func Bounds(pts []Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Clamp limits v to [lo, hi]. When hi < lo the result is lo.
func Clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// ClampPoint keeps p inside a box of size s anchored at the origin.
func ClampPoint(p Point, s Size) Point {
	return Point{X: Clamp(p.X, 0, s.W), Y: Clamp(p.Y, 0, s.H)}
}
