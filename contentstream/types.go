package contentstream

import "github.com/wudi/pdfmark/coords"

// LineCap represents the line cap style (J operator).
type LineCap int

const (
	LineCapButt LineCap = iota
	LineCapRound
	LineCapSquare
)

// LineJoin represents the line join style (j operator).
type LineJoin int

const (
	LineJoinMiter LineJoin = iota
	LineJoinRound
	LineJoinBevel
)

// Path describes a graphics path made of subpaths.
type Path struct {
	Subpaths []Subpath
}

// Subpath describes a portion of a path.
type Subpath struct {
	Points []PathPoint
	Closed bool
}

// PathPoint identifies a path segment and its coordinates.
type PathPoint struct {
	X, Y                 float64
	Type                 PathPointType
	Control1X, Control1Y float64
	Control2X, Control2Y float64
}

// PathPointType enumerates path segment types.
type PathPointType int

const (
	PathMoveTo PathPointType = iota
	PathLineTo
	PathCurveTo
)

func (p *Path) current() *Subpath {
	if len(p.Subpaths) == 0 {
		p.Subpaths = append(p.Subpaths, Subpath{})
	}
	return &p.Subpaths[len(p.Subpaths)-1]
}

// MoveTo starts a new subpath.
func (p *Path) MoveTo(x, y float64) *Path {
	p.Subpaths = append(p.Subpaths, Subpath{Points: []PathPoint{{X: x, Y: y, Type: PathMoveTo}}})
	return p
}

func (p *Path) LineTo(x, y float64) *Path {
	sp := p.current()
	sp.Points = append(sp.Points, PathPoint{X: x, Y: y, Type: PathLineTo})
	return p
}

func (p *Path) CurveTo(c1x, c1y, c2x, c2y, x, y float64) *Path {
	sp := p.current()
	sp.Points = append(sp.Points, PathPoint{
		X: x, Y: y, Type: PathCurveTo,
		Control1X: c1x, Control1Y: c1y,
		Control2X: c2x, Control2Y: c2y,
	})
	return p
}

func (p *Path) Close() *Path {
	p.current().Closed = true
	return p
}

// Transform returns a copy of p with every coordinate mapped by m.
func (p *Path) Transform(m coords.Matrix) *Path {
	out := &Path{Subpaths: make([]Subpath, len(p.Subpaths))}
	for i, sp := range p.Subpaths {
		pts := make([]PathPoint, len(sp.Points))
		for j, pt := range sp.Points {
			a := m.Transform(coords.Point{X: pt.X, Y: pt.Y})
			c1 := m.Transform(coords.Point{X: pt.Control1X, Y: pt.Control1Y})
			c2 := m.Transform(coords.Point{X: pt.Control2X, Y: pt.Control2Y})
			pts[j] = PathPoint{X: a.X, Y: a.Y, Type: pt.Type, Control1X: c1.X, Control1Y: c1.Y, Control2X: c2.X, Control2Y: c2.Y}
		}
		out.Subpaths[i] = Subpath{Points: pts, Closed: sp.Closed}
	}
	return out
}

// Operations returns the path construction operators for p.
func (p *Path) Operations() []Operation {
	var ops []Operation
	for _, sp := range p.Subpaths {
		for _, pt := range sp.Points {
			switch pt.Type {
			case PathMoveTo:
				ops = append(ops, Op("m", Num(pt.X), Num(pt.Y)))
			case PathLineTo:
				ops = append(ops, Op("l", Num(pt.X), Num(pt.Y)))
			case PathCurveTo:
				ops = append(ops, Op("c",
					Num(pt.Control1X), Num(pt.Control1Y),
					Num(pt.Control2X), Num(pt.Control2Y),
					Num(pt.X), Num(pt.Y)))
			}
		}
		if sp.Closed {
			ops = append(ops, Op("h"))
		}
	}
	return ops
}
