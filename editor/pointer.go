package editor

import (
	"context"
	"math"

	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/coords"
	"github.com/wudi/pdfmark/failure"
	"github.com/wudi/pdfmark/gesture"
	"github.com/wudi/pdfmark/preview"
	"github.com/wudi/pdfmark/richtext"
	"github.com/wudi/pdfmark/session"
	"github.com/wudi/pdfmark/tool"
)

// HandleRadius is how close, in overlay pixels, the pointer must come to a
// corner of the selected annotation to grab its resize handle.
const HandleRadius = 8

// Sizes of boxes placed with a single click, in overlay pixels.
const (
	textWidth       = 200
	signatureWidth  = 200
	signatureHeight = 60
	imageMaxSide    = 200
)

// SetOverlaySize records the pixel size the current page is shown at.
// Geometry entered afterwards is relative to it.
func (e *Editor) SetOverlaySize(s coords.Size) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.overlay = s
}

func (e *Editor) OverlaySize() coords.Size {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.overlay
}

func (e *Editor) checkInput(op string) error {
	if err := e.requireDoc(); err != nil {
		return err
	}
	if e.overlay.IsZero() {
		return failure.Errorf(failure.MissingOverlaySize, op, "overlay %gx%g not measured", e.overlay.W, e.overlay.H)
	}
	if e.current < 1 {
		return failure.Errorf(failure.InvalidInput, op, "no visible page")
	}
	return nil
}

// SelectTool activates k. Any polygon or cloud in progress is dropped.
func (e *Editor) SelectTool(k tool.Kind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tools.Use(k) {
		e.drafts.Cancel()
	}
	if k != tool.Image {
		e.tools.PendingAsset = ""
	}
}

// Cancel returns to the select tool, dropping any draft and aborting the
// gesture in progress.
func (e *Editor) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tools.Cancel()
	e.drafts.Cancel()
	e.abortGesture()
}

// abortGesture ends the active gesture. A creation gesture that did not
// reach its minimum size is removed by End.
func (e *Editor) abortGesture() {
	if e.active == nil {
		return
	}
	if st, _ := e.active.End(); st == gesture.Committed {
		e.changed()
	}
	e.active = nil
}

// Select makes id the selected annotation; an empty id clears the
// selection.
func (e *Editor) Select(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id != "" {
		if _, ok := e.annots.Get(id); !ok {
			return e.failLocked(failure.Errorf(failure.InvalidInput, "editor.Select", "no annotation %q", id))
		}
	}
	e.selected = id
	return nil
}

// Delete removes the selected annotation.
func (e *Editor) Delete() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selected == "" || !e.annots.Remove(e.selected) {
		return false
	}
	e.selected = ""
	e.assets.Prune(e.annots.All())
	e.changed()
	return true
}

// PointerDown starts the gesture of the active tool at p.
func (e *Editor) PointerDown(p coords.Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failLocked(e.pointerDown(p))
}

func (e *Editor) pointerDown(p coords.Point) error {
	const op = "editor.PointerDown"
	if err := e.checkInput(op); err != nil {
		return err
	}
	e.abortGesture()
	d := e.tools.Defaults
	base := annotation.Base{ID: annotation.NewID(), Page: e.current}

	switch k := e.tools.Active; k {
	case tool.Select:
		return e.pick(p)
	case tool.Draw:
		g := gesture.NewFreehand(e.annots, e.overlay)
		proto := &annotation.Draw{Base: base, Color: d.Draw.Color, Width: d.Draw.Width, Opacity: d.Draw.Opacity}
		return e.begin(g, g.Begin(p, proto))
	case tool.Highlight:
		g := gesture.NewDragRect(e.annots, e.overlay)
		proto := &annotation.Highlight{Base: base, Color: d.Highlight.Color, Opacity: d.Highlight.Opacity}
		return e.begin(g, g.Begin(p, proto))
	case tool.Rect, tool.Ellipse, tool.Line, tool.Arrow:
		st, _ := k.ShapeType()
		g := gesture.NewDragRect(e.annots, e.overlay)
		return e.begin(g, g.Begin(p, &annotation.Shape{Base: base, ShapeType: st, Style: e.shapeStyle()}))
	case tool.Polygon, tool.Cloud:
		st, _ := k.ShapeType()
		return e.drafts.Click(e.current, st, p, e.overlay, e.shapeStyle())
	case tool.Text:
		_, err := e.placeText(p, "")
		return err
	case tool.Image:
		if e.tools.PendingAsset == "" {
			return failure.Errorf(failure.InvalidInput, op, "no image chosen")
		}
		asset, err := e.assets.Get(e.tools.PendingAsset)
		if err != nil {
			return err
		}
		_, err = e.placeImage(asset, p)
		return err
	case tool.Signature:
		_, err := e.placeSignature(p, false)
		return err
	case tool.Comment:
		_, err := e.placeNote(p, annotation.KindComment)
		return err
	case tool.Stamp:
		_, err := e.placeNote(p, annotation.KindStamp)
		return err
	}
	return nil
}

func (e *Editor) shapeStyle() annotation.ShapeStyle {
	d := e.tools.Defaults.Shape
	st := annotation.ShapeStyle{Stroke: d.Stroke, StrokeWidth: d.StrokeWidth, Opacity: d.Opacity}
	if d.Fill != nil {
		f := *d.Fill
		st.Fill = &f
	}
	return st
}

func (e *Editor) begin(g gesture.Controller, err error) error {
	if err != nil {
		return failure.New(failure.InvalidInput, "editor.PointerDown", err)
	}
	e.active = g
	return nil
}

// pick selects the topmost annotation under p and starts moving it, or
// starts a resize when p is on a handle of the selected annotation.
func (e *Editor) pick(p coords.Point) error {
	if e.selected != "" {
		if a, ok := e.annots.Get(e.selected); ok && a.Common().Page == e.current {
			if c, ok := handleAt(e.scaled(a).Common().Rect(), p); ok {
				g := gesture.NewResize(e.annots, e.selected, c, e.overlay, e.tools.Defaults.MinSize)
				return e.begin(g, g.Begin(p))
			}
		}
	}
	a := e.hit(p)
	if a == nil {
		e.selected = ""
		return nil
	}
	e.selected = a.Common().ID
	g := gesture.NewMove(e.annots, e.selected, e.overlay)
	return e.begin(g, g.Begin(p))
}

// scaled returns a copy of a expressed against the current overlay.
func (e *Editor) scaled(a annotation.Annotation) annotation.Annotation {
	c := a.Clone()
	annotation.Rescale(c, e.overlay)
	return c
}

func (e *Editor) hit(p coords.Point) annotation.Annotation {
	items := preview.Ordered(e.annots.OnPage(e.current), e.showComments)
	for i := len(items) - 1; i >= 0; i-- {
		if e.scaled(items[i]).Common().Rect().Contains(p) {
			return items[i]
		}
	}
	return nil
}

func handleAt(r coords.Rect, p coords.Point) (gesture.Corner, bool) {
	corners := []struct {
		c  gesture.Corner
		at coords.Point
	}{
		{gesture.BottomRight, coords.Point{X: r.X + r.W, Y: r.Y + r.H}},
		{gesture.BottomLeft, coords.Point{X: r.X, Y: r.Y + r.H}},
		{gesture.TopRight, coords.Point{X: r.X + r.W, Y: r.Y}},
		{gesture.TopLeft, coords.Point{X: r.X, Y: r.Y}},
	}
	for _, c := range corners {
		if math.Hypot(p.X-c.at.X, p.Y-c.at.Y) <= HandleRadius {
			return c.c, true
		}
	}
	return 0, false
}

// PointerMove feeds the active gesture, or moves the preview vertex of an
// open polygon or cloud.
func (e *Editor) PointerMove(p coords.Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active != nil {
		if err := e.active.Update(p); err != nil {
			return e.failLocked(failure.New(failure.InvalidInput, "editor.PointerMove", err))
		}
		return nil
	}
	e.drafts.Hover(p)
	return nil
}

// PointerUp ends the active gesture at p. Annotations created by a drag are
// selected when they are kept.
func (e *Editor) PointerUp(p coords.Point) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	g := e.active
	if g == nil {
		return nil
	}
	e.active = nil
	var err error
	if f, ok := g.(*gesture.Freehand); ok {
		err = f.Lift(p)
	} else {
		err = g.Update(p)
	}
	if err != nil {
		g.End()
		return e.failLocked(failure.New(failure.InvalidInput, "editor.PointerUp", err))
	}
	st, err := g.End()
	if err != nil {
		return e.failLocked(failure.New(failure.InvalidInput, "editor.PointerUp", err))
	}
	if st == gesture.Committed {
		e.selected = g.ID()
		e.changed()
	}
	return nil
}

// DoubleClick finishes an open polygon or cloud at p. It returns the id of
// the committed shape, or "" when the draft is still too short.
func (e *Editor) DoubleClick(p coords.Point) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.drafts.Open() {
		return "", nil
	}
	d := e.drafts.Current()
	if err := e.drafts.Click(d.Page, d.ShapeType, p, d.Overlay, d.Style); err != nil {
		return "", e.failLocked(failure.New(failure.InvalidInput, "editor.DoubleClick", err))
	}
	shape, ok, err := e.drafts.Finish(e.annots, annotation.NewID())
	if err != nil {
		return "", e.failLocked(err)
	}
	if !ok {
		return "", nil
	}
	e.selected = shape.ID
	e.changed()
	return shape.ID, nil
}

// place clamps r into the overlay, stores a and selects it. Single click
// tools return to the select tool afterwards.
func (e *Editor) place(a annotation.Annotation, r coords.Rect) (string, error) {
	r.W = math.Min(r.W, e.overlay.W)
	r.H = math.Min(r.H, e.overlay.H)
	r.X = coords.Clamp(r.X, 0, e.overlay.W-r.W)
	r.Y = coords.Clamp(r.Y, 0, e.overlay.H-r.H)
	a.Common().SetGeometry(r, e.overlay)
	if err := annotation.Validate(a); err != nil {
		return "", err
	}
	if err := e.annots.Add(a); err != nil {
		return "", err
	}
	e.selected = a.Common().ID
	e.tools.Cancel()
	e.changed()
	return e.selected, nil
}

func (e *Editor) newBase() annotation.Base {
	return annotation.Base{ID: annotation.NewID(), Page: e.current}
}

// PlaceText adds a text box at p holding text in the default style.
func (e *Editor) PlaceText(p coords.Point, text string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkInput("editor.PlaceText"); err != nil {
		return "", e.failLocked(err)
	}
	id, err := e.placeText(p, text)
	return id, e.failLocked(err)
}

func (e *Editor) placeText(p coords.Point, text string) (string, error) {
	d := e.tools.Defaults
	st := d.Text.Style()
	a := &annotation.Text{Base: e.newBase(), FontSize: st.FontSize, FontFamily: st.FontFamily}
	c := st.Color
	a.Color = &c
	a.SetSpans(richtext.Serialize(richtext.Element(richtext.Full(st), richtext.Leaf(text)), st))
	h := math.Max(d.MinSize.Generic, st.FontSize*1.4+8)
	return e.place(a, coords.Rect{X: p.X, Y: p.Y, W: math.Max(textWidth, d.MinSize.Text), H: h})
}

// ChooseImage stores data as an asset and arms the image tool with it.
func (e *Editor) ChooseImage(data []byte) (string, error) {
	asset, err := e.assets.Add(data)
	if err != nil {
		return "", e.fail(err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handles[asset.ID] = session.DataURL(asset)
	e.tools.Use(tool.Image)
	e.drafts.Cancel()
	e.tools.PendingAsset = asset.ID
	return asset.ID, nil
}

// PlaceImage stores data and places it at p at its natural aspect ratio.
func (e *Editor) PlaceImage(data []byte, p coords.Point) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkInput("editor.PlaceImage"); err != nil {
		return "", e.failLocked(err)
	}
	asset, err := e.assets.Add(data)
	if err != nil {
		return "", e.failLocked(err)
	}
	e.handles[asset.ID] = session.DataURL(asset)
	id, err := e.placeImage(asset, p)
	return id, e.failLocked(err)
}

func (e *Editor) placeImage(asset *annotation.Asset, p coords.Point) (string, error) {
	w, h := float64(asset.Width), float64(asset.Height)
	if k := imageMaxSide / math.Max(w, h); k < 1 {
		w, h = w*k, h*k
	}
	floor := e.tools.Defaults.MinSize.Generic
	w, h = math.Max(w, floor), math.Max(h, floor)
	a := &annotation.Image{Base: e.newBase(), AssetID: asset.ID}
	return e.place(a, coords.Rect{X: p.X, Y: p.Y, W: w, H: h})
}

// SetSignatureProfile saves the name used by the signature tool.
func (e *Editor) SetSignatureProfile(ctx context.Context, name string) (session.SignatureProfile, error) {
	p, err := session.NewSignatureProfile(name)
	if err != nil {
		return p, e.fail(err)
	}
	if err := session.SaveProfile(ctx, e.store, p); err != nil {
		return p, e.fail(err)
	}
	e.mu.Lock()
	e.profile = &p
	e.mu.Unlock()
	return p, nil
}

// SignatureProfile returns the profile in use, loading the saved one on
// first use.
func (e *Editor) SignatureProfile(ctx context.Context) (session.SignatureProfile, bool, error) {
	e.mu.Lock()
	if e.profile != nil {
		p := *e.profile
		e.mu.Unlock()
		return p, true, nil
	}
	e.mu.Unlock()
	p, ok, err := session.LoadProfile(ctx, e.store)
	if err != nil || !ok {
		return p, false, err
	}
	e.mu.Lock()
	e.profile = &p
	e.mu.Unlock()
	return p, true, nil
}

// PlaceSignature places the profile's name, or its initials, at p.
func (e *Editor) PlaceSignature(ctx context.Context, p coords.Point, initials bool) (string, error) {
	if _, _, err := e.SignatureProfile(ctx); err != nil {
		return "", e.fail(err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkInput("editor.PlaceSignature"); err != nil {
		return "", e.failLocked(err)
	}
	id, err := e.placeSignature(p, initials)
	return id, e.failLocked(err)
}

func (e *Editor) placeSignature(p coords.Point, initials bool) (string, error) {
	if e.profile == nil {
		return "", failure.Errorf(failure.InvalidInput, "editor.PlaceSignature", "no signature profile")
	}
	text := e.profile.Name
	if initials {
		text = e.profile.Initials
	}
	a := &annotation.Signature{Base: e.newBase(), Text: text, FontID: e.profile.FontID, Color: e.tools.Defaults.Text.Color}
	return e.place(a, coords.Rect{X: p.X, Y: p.Y, W: signatureWidth, H: signatureHeight})
}

// PlaceComment adds a note with the comment defaults at p.
func (e *Editor) PlaceComment(p coords.Point, text string) (string, error) {
	return e.placeNoteText(p, annotation.KindComment, text)
}

// PlaceStamp adds a stamp at p; an empty text uses the default label.
func (e *Editor) PlaceStamp(p coords.Point, text string) (string, error) {
	return e.placeNoteText(p, annotation.KindStamp, text)
}

func (e *Editor) placeNoteText(p coords.Point, k annotation.Kind, text string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkInput("editor.Place"); err != nil {
		return "", e.failLocked(err)
	}
	id, err := e.placeNote(p, k)
	if err != nil || text == "" {
		return id, e.failLocked(err)
	}
	return id, e.failLocked(e.setNoteText(id, text))
}

func (e *Editor) placeNote(p coords.Point, k annotation.Kind) (string, error) {
	d := e.tools.Defaults
	if k == annotation.KindStamp {
		a := &annotation.Stamp{Base: e.newBase(), Text: d.Stamp.Text, Color: d.Stamp.Color, FontSize: d.Stamp.FontSize}
		return e.place(a, coords.Rect{X: p.X, Y: p.Y,
			W: math.Max(d.Stamp.Width, d.MinSize.StampWidth), H: math.Max(d.Stamp.Height, d.MinSize.StampHeight)})
	}
	a := &annotation.Comment{Base: e.newBase(), Text: d.Comment.Text, Color: d.Comment.Color, FontSize: d.Comment.FontSize}
	return e.place(a, coords.Rect{X: p.X, Y: p.Y,
		W: math.Max(d.Comment.Width, d.MinSize.CommentWidth), H: math.Max(d.Comment.Height, d.MinSize.CommentHeight)})
}

func (e *Editor) setNoteText(id, text string) error {
	return e.annots.Update(id, func(a annotation.Annotation) error {
		switch v := a.(type) {
		case *annotation.Comment:
			v.Text = text
		case *annotation.Stamp:
			v.Text = text
		case *annotation.Signature:
			if text == "" {
				return failure.Errorf(failure.InvalidInput, "editor.SetText", "empty signature")
			}
			v.Text = text
		default:
			return failure.Errorf(failure.InvalidInput, "editor.SetText", "%s has no plain text", a.Kind())
		}
		return nil
	})
}

// SetText replaces the text of a comment, stamp or signature.
func (e *Editor) SetText(id, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.setNoteText(id, text); err != nil {
		return e.failLocked(err)
	}
	e.changed()
	return nil
}
