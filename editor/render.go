package editor

import (
	"context"
	"image"
	"math"

	"github.com/wudi/pdfmark/coords"
	"github.com/wudi/pdfmark/failure"
	"github.com/wudi/pdfmark/observability"
	"github.com/wudi/pdfmark/preview"
)

// Frame is a rendered view of the current page.
type Frame struct {
	Page     int
	Rotation int
	Image    *image.RGBA
	// Skipped lists annotations that could not be drawn.
	Skipped []preview.Skip
}

// RenderCurrent renders the current page with its overlay. When the
// current page or its rotation changes while the render is in flight the
// result is dropped and ErrStaleRender is returned; the caller renders
// again.
func (e *Editor) RenderCurrent(ctx context.Context) (*Frame, error) {
	const op = "editor.RenderCurrent"
	e.mu.Lock()
	if err := e.requireDoc(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	page := e.current
	if page < 1 {
		e.mu.Unlock()
		return nil, e.fail(failure.Errorf(failure.InvalidInput, op, "no visible page"))
	}
	props, err := e.pages.Get(page)
	if err != nil {
		e.mu.Unlock()
		return nil, e.fail(err)
	}
	info, _ := e.info.Page(props.Source)
	gen := e.renderGen
	doc := e.doc
	items := e.annots.OnPage(page)
	overlay := e.overlay
	if overlay.IsZero() {
		size := coords.DisplaySize(props.Rotation, coords.Rect{W: info.Size.W, H: info.Size.H})
		overlay = coords.Size{W: math.Round(size.W * e.cfg.RenderScale), H: math.Round(size.H * e.cfg.RenderScale)}
	}
	opts := preview.Options{
		ShowComments: e.showComments,
		TextDefaults: e.tools.Defaults.Text.Style(),
		Draft:        e.drafts.Current(),
		Selected:     e.selected,
	}
	if opts.Draft != nil && opts.Draft.Page != page {
		opts.Draft = nil
	}
	e.mu.Unlock()

	var base image.Image
	if e.renderer != nil {
		scale := overlay.W / math.Max(info.Size.W, 1)
		if props.Rotation%180 != 0 {
			scale = overlay.W / math.Max(info.Size.H, 1)
		}
		base, err = e.renderer.Render(ctx, doc, props.Source, props.Rotation, scale)
		if err != nil {
			return nil, e.fail(failure.New(failure.DocumentServiceFailure, op, err))
		}
	}

	e.mu.Lock()
	stale := gen != e.renderGen
	e.mu.Unlock()
	if stale {
		e.log.Debug("stale render dropped", observability.Int("page", page))
		return nil, ErrStaleRender
	}

	res, err := e.preview.Render(base, items, e.assets, overlay, opts)
	if err != nil {
		return nil, e.fail(err)
	}
	for _, s := range res.Skipped {
		e.log.Debug("annotation not drawn", observability.String("id", s.ID), observability.Error("error", s.Err))
	}
	return &Frame{Page: page, Rotation: props.Rotation, Image: res.Image, Skipped: res.Skipped}, nil
}
