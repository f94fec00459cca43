package export

import (
	"context"

	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/coords"
	"github.com/wudi/pdfmark/document"
	"github.com/wudi/pdfmark/failure"
	"github.com/wudi/pdfmark/pageprops"
)

// Paddings and frame widths in overlay pixels.
const (
	textPadding    = 4
	commentPadding = 6
	commentBorder  = 1
	stampBorder    = 2
)

type stageFunc func(ctx context.Context, env *Env, doc []byte) ([]byte, int, error)

type stage struct {
	name  string
	phase Phase
	apply stageFunc
}

func (s stage) Name() string  { return s.name }
func (s stage) Phase() Phase  { return s.phase }
func (s stage) Priority() int { return 0 }

func (s stage) Apply(ctx context.Context, env *Env, doc []byte) ([]byte, int, error) {
	return s.apply(ctx, env, doc)
}

// StandardStages returns one stage per phase, in phase order.
func StandardStages() []Stage {
	return []Stage{
		stage{"pages", PhasePages, applyPages},
		stage{"highlights", PhaseHighlights, applyHighlights},
		stage{"images", PhaseImages, applyImages},
		stage{"text", PhaseText, applyText},
		stage{"signatures", PhaseSignatures, applySignatures},
		stage{"draw", PhaseDraw, applyDraw},
		stage{"shapes", PhaseShapes, applyShapes},
	}
}

func serviceErr(op string, err error) error {
	if failure.KindOf(err) == failure.Unknown {
		return failure.New(failure.DocumentServiceFailure, op, err)
	}
	return err
}

// remap selects annotations and copies each onto every output position of
// its page.
func (e *Env) remap(keep func(annotation.Annotation) bool) []annotation.Annotation {
	var items []annotation.Annotation
	for _, a := range e.Annotations {
		if keep(a) {
			items = append(items, a)
		}
	}
	return pageprops.RemapForExport(items, e.Sequence)
}

func ofKind(kinds ...annotation.Kind) func(annotation.Annotation) bool {
	return func(a annotation.Annotation) bool {
		for _, k := range kinds {
			if a.Kind() == k {
				return true
			}
		}
		return false
	}
}

// placement is an annotation mapped onto its output page.
type placement struct {
	rect   coords.Rect
	page   coords.Size
	sx, sy float64
}

func (p placement) scale() float64 { return (p.sx + p.sy) / 2 }

func (p placement) points(pts []coords.Point, overlay coords.Size) ([]coords.Point, error) {
	return coords.ToDocumentPoints(pts, p.page, overlay)
}

// place maps a remapped annotation into document space. The annotation's
// own overlay snapshot is the denominator.
func (e *Env) place(a annotation.Annotation) (placement, error) {
	b := a.Common()
	info, ok := e.Output.Page(b.Page)
	if !ok {
		return placement{}, failure.Errorf(failure.DocumentServiceFailure, "export", "output has no page %d", b.Page)
	}
	sx, sy, err := coords.ScaleFactors(info.Size, b.Overlay())
	if err != nil {
		return placement{}, err
	}
	r, err := coords.ToDocumentRect(b.Rect(), info.Size, b.Overlay())
	if err != nil {
		return placement{}, err
	}
	return placement{rect: r, page: info.Size, sx: sx, sy: sy}, nil
}

func applyPages(ctx context.Context, env *Env, doc []byte) ([]byte, int, error) {
	specs := make([]document.PageSpec, 0, len(env.Sequence))
	for _, n := range env.Sequence {
		props, err := env.Pages.Get(n)
		if err != nil {
			return nil, 0, err
		}
		specs = append(specs, document.PageSpec{Number: props.Source, Rotation: props.Rotation})
	}
	out, err := env.Service.CopyPages(ctx, doc, specs)
	if err != nil {
		return nil, 0, serviceErr("export.pages", err)
	}
	return out, len(specs), nil
}

func applyHighlights(ctx context.Context, env *Env, doc []byte) ([]byte, int, error) {
	var ops []document.HighlightOp
	for _, a := range env.remap(ofKind(annotation.KindHighlight)) {
		h := a.(*annotation.Highlight)
		if h.Opacity <= 0 {
			continue
		}
		p, err := env.place(a)
		if err != nil {
			return nil, 0, err
		}
		ops = append(ops, document.HighlightOp{Page: h.Page, Rect: p.rect, Color: h.Color, Opacity: h.Opacity})
	}
	if len(ops) == 0 {
		return doc, 0, nil
	}
	out, err := env.Service.DrawHighlights(ctx, doc, ops)
	if err != nil {
		return nil, 0, serviceErr("export.highlights", err)
	}
	return out, len(ops), nil
}

func applyImages(ctx context.Context, env *Env, doc []byte) ([]byte, int, error) {
	var ops []document.ImageOp
	skipped := make(map[string]bool)
	for _, a := range env.remap(ofKind(annotation.KindImage)) {
		img := a.(*annotation.Image)
		asset, err := env.asset(img.AssetID)
		if err != nil {
			// Report each missing image once, not once per duplicate page.
			if !skipped[img.ID] {
				skipped[img.ID] = true
				env.Skip(img, err)
			}
			continue
		}
		p, err := env.place(a)
		if err != nil {
			return nil, 0, err
		}
		ops = append(ops, document.ImageOp{Page: img.Page, Rect: p.rect, Asset: asset, Opacity: 1})
	}
	if len(ops) == 0 {
		return doc, 0, nil
	}
	out, err := env.Service.DrawImages(ctx, doc, ops)
	if err != nil {
		return nil, 0, serviceErr("export.images", err)
	}
	return out, len(ops), nil
}

func (e *Env) asset(id string) (*annotation.Asset, error) {
	if e.Assets == nil {
		return nil, failure.Errorf(failure.AssetNotFound, "export", "asset %s", id)
	}
	return e.Assets.Get(id)
}

func applyText(ctx context.Context, env *Env, doc []byte) ([]byte, int, error) {
	kinds := []annotation.Kind{annotation.KindText, annotation.KindStamp}
	if env.ShowComments {
		kinds = append(kinds, annotation.KindComment)
	}
	var ops []document.TextOp
	for _, a := range env.remap(ofKind(kinds...)) {
		p, err := env.place(a)
		if err != nil {
			return nil, 0, err
		}
		if op, ok := textOp(a, p, env.TextDefaults); ok {
			ops = append(ops, op)
		}
	}
	if len(ops) == 0 {
		return doc, 0, nil
	}
	out, err := env.Service.DrawText(ctx, doc, ops)
	if err != nil {
		return nil, 0, serviceErr("export.text", err)
	}
	return out, len(ops), nil
}

// textOp turns a text, comment or stamp into a text drawing op with font
// sizes scaled to the page.
func textOp(a annotation.Annotation, p placement, defaults annotation.Style) (document.TextOp, bool) {
	op := document.TextOp{Page: a.Common().Page, Rect: p.rect}
	switch v := a.(type) {
	case *annotation.Text:
		base := v.BaseStyle(defaults)
		for _, sp := range v.Spans {
			if sp.Text == "" {
				continue
			}
			st := sp.Resolve(base)
			st.FontSize *= p.sy
			op.Runs = append(op.Runs, document.TextRun{Text: sp.Text, Style: st})
		}
		op.Padding = textPadding * p.sy
	case *annotation.Comment:
		fill := v.Color
		op.Runs = []document.TextRun{{Text: v.Text, Style: annotation.Style{FontSize: v.FontSize * p.sy, Color: annotation.Black}}}
		op.Padding = commentPadding * p.sy
		op.Frame = &document.Frame{Border: v.Color.Blend(annotation.Black, 0.3), Width: commentBorder * p.scale(), Fill: &fill}
	case *annotation.Stamp:
		// Stamps are always bold.
		op.Runs = []document.TextRun{{Text: v.Text, Style: annotation.Style{Bold: true, FontSize: v.FontSize * p.sy, Color: v.Color}}}
		op.Padding = textPadding * p.sy
		op.Center = true
		op.Frame = &document.Frame{Border: v.Color, Width: stampBorder * p.scale()}
	}
	if len(op.Runs) == 0 || (len(op.Runs) == 1 && op.Runs[0].Text == "" && op.Frame == nil) {
		return document.TextOp{}, false
	}
	return op, true
}

func applySignatures(ctx context.Context, env *Env, doc []byte) ([]byte, int, error) {
	var ops []document.SignatureOp
	for _, a := range env.remap(ofKind(annotation.KindSignature)) {
		s := a.(*annotation.Signature)
		p, err := env.place(a)
		if err != nil {
			return nil, 0, err
		}
		ops = append(ops, document.SignatureOp{Page: s.Page, Rect: p.rect, Text: s.Text, FontID: s.FontID, Color: s.Color})
	}
	if len(ops) == 0 {
		return doc, 0, nil
	}
	out, err := env.Service.DrawSignatures(ctx, doc, ops)
	if err != nil {
		return nil, 0, serviceErr("export.signatures", err)
	}
	return out, len(ops), nil
}

func applyDraw(ctx context.Context, env *Env, doc []byte) ([]byte, int, error) {
	var ops []document.PathOp
	for _, a := range env.remap(ofKind(annotation.KindDraw)) {
		d := a.(*annotation.Draw)
		if d.Opacity <= 0 || len(d.Points) == 0 {
			continue
		}
		p, err := env.place(a)
		if err != nil {
			return nil, 0, err
		}
		pts, err := p.points(d.Points, d.Overlay())
		if err != nil {
			return nil, 0, err
		}
		ops = append(ops, document.PathOp{Page: d.Page, Points: pts, Color: d.Color, Width: d.Width * p.scale(), Opacity: d.Opacity})
	}
	if len(ops) == 0 {
		return doc, 0, nil
	}
	out, err := env.Service.DrawPaths(ctx, doc, ops)
	if err != nil {
		return nil, 0, serviceErr("export.draw", err)
	}
	return out, len(ops), nil
}

func applyShapes(ctx context.Context, env *Env, doc []byte) ([]byte, int, error) {
	var ops []document.ShapeOp
	for _, a := range env.remap(ofKind(annotation.KindShape)) {
		s := a.(*annotation.Shape)
		if s.Style.Opacity <= 0 {
			continue
		}
		p, err := env.place(a)
		if err != nil {
			return nil, 0, err
		}
		op := document.ShapeOp{
			Page:        s.Page,
			Type:        s.ShapeType,
			Rect:        p.rect,
			Stroke:      s.Style.Stroke,
			StrokeWidth: s.Style.StrokeWidth * p.scale(),
			Fill:        s.Style.Fill,
			Opacity:     s.Style.Opacity,
		}
		if !s.ShapeType.IsBox() {
			if op.Points, err = p.points(s.Points, s.Overlay()); err != nil {
				return nil, 0, err
			}
		}
		ops = append(ops, op)
	}
	if len(ops) == 0 {
		return doc, 0, nil
	}
	out, err := env.Service.DrawShapes(ctx, doc, ops)
	if err != nil {
		return nil, 0, serviceErr("export.shapes", err)
	}
	return out, len(ops), nil
}
