package docsvc

import (
	"context"

	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/builder"
	"github.com/wudi/pdfmark/contentstream"
	"github.com/wudi/pdfmark/coords"
	"github.com/wudi/pdfmark/document"
	"github.com/wudi/pdfmark/fonts"
	"github.com/wudi/pdfmark/layout"
)

// Highlights are multiplied onto the page so the text beneath stays legible.
const highlightBlend = "Multiply"

func (s *Service) DrawHighlights(ctx context.Context, doc []byte, ops []document.HighlightOp) ([]byte, error) {
	jobs := make([]job, 0, len(ops))
	for _, op := range ops {
		jobs = append(jobs, job{page: op.Page, paint: func(c *builder.Canvas) error {
			c.DrawRectangle(op.Rect.X, op.Rect.Y, op.Rect.W, op.Rect.H, builder.RectOptions{
				Fill:      true,
				FillColor: builder.RGB(op.Color),
				Opacity:   op.Opacity,
				BlendMode: highlightBlend,
			})
			return nil
		}})
	}
	return s.draw(ctx, "docsvc.DrawHighlights", doc, jobs)
}

func (s *Service) DrawImages(ctx context.Context, doc []byte, ops []document.ImageOp) ([]byte, error) {
	decoded := make(map[string]*builder.Image)
	jobs := make([]job, 0, len(ops))
	for _, op := range ops {
		jobs = append(jobs, job{page: op.Page, paint: func(c *builder.Canvas) error {
			img, ok := decoded[op.Asset.ID]
			if !ok {
				var err error
				if img, err = builder.DecodeImage(op.Asset.Data); err != nil {
					return err
				}
				decoded[op.Asset.ID] = img
			}
			c.DrawImage(op.Asset.ID, img, op.Rect.X, op.Rect.Y, op.Rect.W, op.Rect.H, op.Opacity)
			return nil
		}})
	}
	return s.draw(ctx, "docsvc.DrawImages", doc, jobs)
}

func (s *Service) DrawText(ctx context.Context, doc []byte, ops []document.TextOp) ([]byte, error) {
	jobs := make([]job, 0, len(ops))
	for _, op := range ops {
		jobs = append(jobs, job{page: op.Page, paint: func(c *builder.Canvas) error {
			return s.paintText(c, op)
		}})
	}
	return s.draw(ctx, "docsvc.DrawText", doc, jobs)
}

func (s *Service) paintText(c *builder.Canvas, op document.TextOp) error {
	if f := op.Frame; f != nil {
		opts := builder.RectOptions{Stroke: f.Width > 0, StrokeColor: builder.RGB(f.Border), LineWidth: f.Width}
		if f.Fill != nil {
			opts.Fill, opts.FillColor = true, builder.RGB(*f.Fill)
		}
		if opts.Fill || opts.Stroke {
			c.DrawRectangle(op.Rect.X, op.Rect.Y, op.Rect.W, op.Rect.H, opts)
		}
	}
	runs := make([]layout.Run, 0, len(op.Runs))
	for _, r := range op.Runs {
		face, err := s.fonts.Face(fonts.ParseFamily(r.Style.FontFamily), r.Style.Bold, r.Style.Italic)
		if err != nil {
			return err
		}
		runs = append(runs, layout.Run{Text: r.Text, Face: face, Size: r.Style.FontSize, Underline: r.Style.Underline, Color: r.Style.Color})
	}
	inner := op.Rect.W - 2*op.Padding
	lines := layout.NewEngine(layout.WithWidth(max(inner, 1))).Lines(runs)

	top := op.Rect.Y + op.Rect.H - op.Padding
	if op.Center {
		top -= (op.Rect.H - 2*op.Padding - layout.Height(lines)) / 2
	}
	for _, line := range lines {
		baseline := top - line.Ascent - (line.Height-line.Ascent-line.Descent)/2
		left := op.Rect.X + op.Padding
		if op.Center {
			left += (inner - line.Width) / 2
		}
		for _, p := range line.Pieces {
			col := builder.RGB(p.Run.Color)
			w := c.DrawGlyphs(p.Run.Face, p.Run.Size, left+p.X, baseline, p.Glyphs, col)
			if p.Run.Underline && w > 0 {
				c.Underline(left+p.X, baseline, w, p.Run.Size, col)
			}
		}
		top -= line.Height
	}
	return nil
}

func (s *Service) DrawSignatures(ctx context.Context, doc []byte, ops []document.SignatureOp) ([]byte, error) {
	jobs := make([]job, 0, len(ops))
	for _, op := range ops {
		jobs = append(jobs, job{page: op.Page, paint: func(c *builder.Canvas) error {
			face, err := s.fonts.Signature(op.FontID)
			if err != nil {
				return err
			}
			glyphs := face.Shape(op.Text)
			size, x, dy := layout.Fit(face, layout.Advance(glyphs), op.Rect)
			c.DrawGlyphs(face, size, x, op.Rect.Y+op.Rect.H/2-dy, glyphs, builder.RGB(op.Color))
			return nil
		}})
	}
	return s.draw(ctx, "docsvc.DrawSignatures", doc, jobs)
}

func (s *Service) DrawPaths(ctx context.Context, doc []byte, ops []document.PathOp) ([]byte, error) {
	jobs := make([]job, 0, len(ops))
	for _, op := range ops {
		jobs = append(jobs, job{page: op.Page, paint: func(c *builder.Canvas) error {
			if len(op.Points) == 0 {
				return nil
			}
			pts := op.Points
			if len(pts) == 1 {
				// A single click still leaves a dot.
				pts = []coords.Point{pts[0], pts[0]}
			}
			c.DrawPath(builder.SmoothPath(pts), builder.PathOptions{
				Stroke:      true,
				StrokeColor: builder.RGB(op.Color),
				LineWidth:   op.Width,
				LineCap:     contentstream.LineCapRound,
				LineJoin:    contentstream.LineJoinRound,
				Opacity:     op.Opacity,
			})
			return nil
		}})
	}
	return s.draw(ctx, "docsvc.DrawPaths", doc, jobs)
}

func (s *Service) DrawShapes(ctx context.Context, doc []byte, ops []document.ShapeOp) ([]byte, error) {
	jobs := make([]job, 0, len(ops))
	for _, op := range ops {
		jobs = append(jobs, job{page: op.Page, paint: func(c *builder.Canvas) error {
			PaintShape(c, op)
			return nil
		}})
	}
	return s.draw(ctx, "docsvc.DrawShapes", doc, jobs)
}

// PaintShape draws a shape op onto c.
func PaintShape(c *builder.Canvas, op document.ShapeOp) {
	opts := builder.PathOptions{
		Stroke:      op.StrokeWidth > 0,
		StrokeColor: builder.RGB(op.Stroke),
		LineWidth:   op.StrokeWidth,
		LineJoin:    contentstream.LineJoinRound,
		Opacity:     op.Opacity,
	}
	closed := op.Type == annotation.ShapeRect || op.Type == annotation.ShapeEllipse ||
		op.Type == annotation.ShapePolygon || op.Type == annotation.ShapeCloud
	if op.Fill != nil && closed {
		opts.Fill, opts.FillColor = true, builder.RGB(*op.Fill)
	}
	switch op.Type {
	case annotation.ShapeRect:
		c.DrawRectangle(op.Rect.X, op.Rect.Y, op.Rect.W, op.Rect.H, opts)
	case annotation.ShapeEllipse:
		c.DrawPath(builder.EllipsePath(op.Rect), opts)
	case annotation.ShapeLine:
		if len(op.Points) >= 2 {
			opts.LineCap = contentstream.LineCapRound
			c.DrawPath(builder.PolylinePath(op.Points[:2], false), opts)
		}
	case annotation.ShapeArrow:
		if len(op.Points) >= 2 {
			c.DrawArrow(op.Points[0], op.Points[len(op.Points)-1], opts)
		}
	case annotation.ShapePolygon:
		c.DrawPath(builder.PolylinePath(op.Points, true), opts)
	case annotation.ShapeCloud:
		c.DrawPath(builder.CloudPath(op.Points, max(op.StrokeWidth*3, 6)), opts)
	}
}
