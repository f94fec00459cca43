package preview

import (
	"math"

	"github.com/fogleman/gg"

	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/builder"
	"github.com/wudi/pdfmark/contentstream"
	"github.com/wudi/pdfmark/coords"
	"github.com/wudi/pdfmark/failure"
	"github.com/wudi/pdfmark/fonts"
	"github.com/wudi/pdfmark/gesture"
	"github.com/wudi/pdfmark/layout"
)

// Paddings and borders in overlay pixels, matching the exported output.
const (
	textPadding    = 4
	commentPadding = 6
	commentBorder  = 1
	stampBorder    = 2
)

var selectionColor = annotation.Color{R: 37, G: 99, B: 235}

type painter struct {
	r       *Renderer
	dc      *gg.Context
	overlay coords.Size
	assets  Assets
	opts    Options
}

// fit maps an annotation's geometry from its own overlay snapshot onto the
// current overlay.
type fit struct{ kx, ky float64 }

func (f fit) rect(r coords.Rect) coords.Rect {
	return coords.Rect{X: r.X * f.kx, Y: r.Y * f.ky, W: r.W * f.kx, H: r.H * f.ky}
}

func (f fit) points(pts []coords.Point) []coords.Point {
	out := make([]coords.Point, len(pts))
	for i, p := range pts {
		out[i] = coords.Point{X: p.X * f.kx, Y: p.Y * f.ky}
	}
	return out
}

func (f fit) scale() float64 { return (f.kx + f.ky) / 2 }

func (p *painter) fitFor(snapshot coords.Size) (fit, error) {
	if snapshot.IsZero() {
		return fit{}, failure.Errorf(failure.MissingOverlaySize, "preview", "annotation has no overlay size")
	}
	return fit{kx: p.overlay.W / snapshot.W, ky: p.overlay.H / snapshot.H}, nil
}

func (p *painter) paint(a annotation.Annotation) error {
	f, err := p.fitFor(a.Common().Overlay())
	if err != nil {
		return err
	}
	box := f.rect(a.Common().Rect())
	switch v := a.(type) {
	case *annotation.Highlight:
		p.dc.SetColor(rgba(v.Color, v.Opacity))
		p.dc.DrawRectangle(box.X, box.Y, box.W, box.H)
		p.dc.Fill()
	case *annotation.Image:
		return p.image(v, box)
	case *annotation.Text:
		base := v.BaseStyle(p.opts.TextDefaults)
		var runs []layout.Run
		for _, sp := range v.Spans {
			st := sp.Resolve(base)
			face, err := p.r.fonts.Face(fonts.ParseFamily(st.FontFamily), st.Bold, st.Italic)
			if err != nil {
				return err
			}
			runs = append(runs, layout.Run{Text: sp.Text, Face: face, Size: st.FontSize * f.ky, Underline: st.Underline, Color: st.Color})
		}
		return p.text(box, runs, textPadding*f.ky, false)
	case *annotation.Comment:
		p.dc.DrawRectangle(box.X, box.Y, box.W, box.H)
		p.dc.SetColor(rgba(v.Color, 1))
		p.dc.FillPreserve()
		p.dc.SetColor(rgba(v.Color.Blend(annotation.Black, 0.3), 1))
		p.dc.SetLineWidth(commentBorder * f.scale())
		p.dc.Stroke()
		face, err := p.r.fonts.Face(fonts.Sans, false, false)
		if err != nil {
			return err
		}
		return p.text(box, []layout.Run{{Text: v.Text, Face: face, Size: v.FontSize * f.ky, Color: annotation.Black}}, commentPadding*f.ky, false)
	case *annotation.Stamp:
		p.dc.DrawRectangle(box.X, box.Y, box.W, box.H)
		p.dc.SetColor(rgba(v.Color, 1))
		p.dc.SetLineWidth(stampBorder * f.scale())
		p.dc.Stroke()
		face, err := p.r.fonts.Face(fonts.Sans, true, false)
		if err != nil {
			return err
		}
		return p.text(box, []layout.Run{{Text: v.Text, Face: face, Size: v.FontSize * f.ky, Color: v.Color}}, textPadding*f.ky, true)
	case *annotation.Signature:
		return p.signature(v, box)
	case *annotation.Draw:
		pts := f.points(v.Points)
		if len(pts) == 1 {
			pts = append(pts, pts[0])
		}
		p.dc.SetLineCapRound()
		p.dc.SetLineJoinRound()
		p.dc.SetLineWidth(v.Width * f.scale())
		p.dc.SetColor(rgba(v.Color, v.Opacity))
		trace(p.dc, builder.SmoothPath(pts))
		p.dc.Stroke()
	case *annotation.Shape:
		p.shape(v.ShapeType, box, f.points(v.Points), v.Style, f.scale(), true)
	}
	return nil
}

func (p *painter) image(v *annotation.Image, box coords.Rect) error {
	if p.assets == nil {
		return failure.Errorf(failure.AssetNotFound, "preview", "asset %q", v.AssetID)
	}
	asset, err := p.assets.Get(v.AssetID)
	if err != nil {
		return err
	}
	img, err := p.r.image(asset)
	if err != nil {
		return err
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 || box.Empty() {
		return nil
	}
	p.dc.Push()
	p.dc.Translate(box.X, box.Y)
	p.dc.Scale(box.W/float64(b.Dx()), box.H/float64(b.Dy()))
	p.dc.DrawImage(img, -b.Min.X, -b.Min.Y)
	p.dc.Pop()
	return nil
}

// text lays runs out inside box. Lines run top down; centred text is
// centred on both axes.
func (p *painter) text(box coords.Rect, runs []layout.Run, pad float64, center bool) error {
	inner := box.W - 2*pad
	if inner <= 0 {
		return nil
	}
	lines := layout.NewEngine(layout.WithWidth(inner)).Lines(runs)
	top := box.Y + pad
	if center {
		top = box.Y + (box.H-layout.Height(lines))/2
	}
	for _, line := range lines {
		baseline := top + line.Ascent
		left := box.X + pad
		if center {
			left = box.X + (box.W-line.Width)/2
		}
		for _, piece := range line.Pieces {
			ff, err := p.r.truetype(piece.Run.Face, piece.Run.Size)
			if err != nil {
				return err
			}
			p.dc.SetFontFace(ff)
			p.dc.SetColor(rgba(piece.Run.Color, 1))
			p.dc.DrawString(piece.Text, left+piece.X, baseline)
			if piece.Run.Underline && piece.Width > 0 {
				offset, thickness := builder.UnderlinePosition(piece.Run.Size)
				p.dc.SetLineWidth(thickness)
				p.dc.SetLineCapButt()
				p.dc.DrawLine(left+piece.X, baseline+offset, left+piece.X+piece.Width, baseline+offset)
				p.dc.Stroke()
			}
		}
		top += line.Height
	}
	return nil
}

func (p *painter) signature(v *annotation.Signature, box coords.Rect) error {
	face, err := p.r.fonts.Signature(v.FontID)
	if err != nil {
		return err
	}
	glyphs := face.Shape(v.Text)
	size, x, dy := layout.Fit(face, layout.Advance(glyphs), box)
	if size <= 0 {
		return nil
	}
	ff, err := p.r.truetype(face, size)
	if err != nil {
		return err
	}
	p.dc.SetFontFace(ff)
	p.dc.SetColor(rgba(v.Color, 1))
	p.dc.DrawString(v.Text, x, box.Y+box.H/2+dy)
	return nil
}

// shape paints a vector shape. Multi-click shapes that are still open are
// drawn as a polyline.
func (p *painter) shape(st annotation.ShapeType, box coords.Rect, pts []coords.Point, style annotation.ShapeStyle, scale float64, closed bool) {
	lw := style.StrokeWidth * scale
	var path *contentstream.Path
	switch st {
	case annotation.ShapeRect:
		path = builder.PolylinePath([]coords.Point{
			{X: box.X, Y: box.Y}, {X: box.X + box.W, Y: box.Y},
			{X: box.X + box.W, Y: box.Y + box.H}, {X: box.X, Y: box.Y + box.H},
		}, true)
	case annotation.ShapeEllipse:
		path = builder.EllipsePath(box)
	case annotation.ShapeLine, annotation.ShapeArrow:
		if len(pts) < 2 {
			return
		}
		from, to := pts[0], pts[len(pts)-1]
		p.dc.SetLineCapRound()
		p.stroke(builder.PolylinePath([]coords.Point{from, to}, false), style, lw)
		if st == annotation.ShapeArrow && math.Hypot(to.X-from.X, to.Y-from.Y) > 0 {
			trace(p.dc, builder.ArrowHead(from, to, builder.ArrowHeadSize(lw)))
			p.dc.SetColor(rgba(style.Stroke, style.Opacity))
			p.dc.Fill()
		}
		return
	case annotation.ShapePolygon:
		path = builder.PolylinePath(pts, closed)
	case annotation.ShapeCloud:
		if closed {
			path = builder.CloudPath(pts, max(lw*3, 6))
		} else {
			path = builder.PolylinePath(pts, false)
		}
	default:
		return
	}
	if style.Fill != nil && closed {
		trace(p.dc, path)
		p.dc.SetColor(rgba(*style.Fill, style.Opacity))
		p.dc.Fill()
	}
	p.dc.SetLineJoinRound()
	p.stroke(path, style, lw)
}

func (p *painter) stroke(path *contentstream.Path, style annotation.ShapeStyle, lw float64) {
	if lw <= 0 {
		return
	}
	trace(p.dc, path)
	p.dc.SetLineWidth(lw)
	p.dc.SetColor(rgba(style.Stroke, style.Opacity))
	p.dc.Stroke()
}

func (p *painter) draft(d *gesture.Draft) {
	f, err := p.fitFor(d.Overlay)
	if err != nil {
		return
	}
	pts := f.points(d.Outline())
	if len(pts) < 2 {
		return
	}
	p.shape(d.ShapeType, coords.Bounds(pts), pts, d.Style, f.scale(), false)
}

func (p *painter) outline(a annotation.Annotation) {
	f, err := p.fitFor(a.Common().Overlay())
	if err != nil {
		return
	}
	box := f.rect(a.Common().Rect())
	p.dc.SetDash(4, 3)
	p.dc.SetLineWidth(1)
	p.dc.SetColor(rgba(selectionColor, 1))
	p.dc.DrawRectangle(box.X-2, box.Y-2, box.W+4, box.H+4)
	p.dc.Stroke()
	p.dc.SetDash()
}

// trace replays a builder path onto the gg context.
func trace(dc *gg.Context, path *contentstream.Path) {
	for _, sp := range path.Subpaths {
		for _, pt := range sp.Points {
			switch pt.Type {
			case contentstream.PathMoveTo:
				dc.MoveTo(pt.X, pt.Y)
			case contentstream.PathLineTo:
				dc.LineTo(pt.X, pt.Y)
			case contentstream.PathCurveTo:
				dc.CubicTo(pt.Control1X, pt.Control1Y, pt.Control2X, pt.Control2Y, pt.X, pt.Y)
			}
		}
		if sp.Closed {
			dc.ClosePath()
		}
	}
}
