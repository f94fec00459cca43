package preview

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/coords"
	"github.com/wudi/pdfmark/failure"
	"github.com/wudi/pdfmark/gesture"
)

var overlay = coords.Size{W: 200, H: 100}

func base(id string, r coords.Rect, snapshot coords.Size) annotation.Base {
	return annotation.Base{ID: id, Page: 1, X: r.X, Y: r.Y, W: r.W, H: r.H, OverlayW: snapshot.W, OverlayH: snapshot.H}
}

func at(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}

func isWhite(c color.RGBA) bool { return c.R == 255 && c.G == 255 && c.B == 255 }

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestRenderScalesBaseAndGeometry(t *testing.T) {
	r := New()
	items := []annotation.Annotation{
		&annotation.Highlight{Base: base("h1", coords.Rect{X: 10, Y: 10, W: 20, H: 20}, overlay), Color: annotation.Red, Opacity: 1},
		// Saved at twice the current overlay size.
		&annotation.Highlight{Base: base("h2", coords.Rect{X: 200, Y: 20, W: 40, H: 40}, coords.Size{W: 400, H: 200}), Color: annotation.Red, Opacity: 1},
	}
	res, err := r.Render(solid(20, 10, color.RGBA{B: 255, A: 255}), items, nil, overlay, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got := res.Image.Bounds().Size(); got != (image.Point{X: 200, Y: 100}) {
		t.Fatalf("size = %v", got)
	}
	if c := at(res.Image, 150, 80); c.B != 255 || c.R != 0 {
		t.Errorf("base pixel = %v", c)
	}
	for _, p := range []image.Point{{20, 20}, {110, 20}} {
		if c := at(res.Image, p.X, p.Y); c.R != 255 || c.G != 0 || c.B != 0 {
			t.Errorf("pixel %v = %v, want red", p, c)
		}
	}
	if c := at(res.Image, 135, 20); c.R == 255 && c.B == 0 {
		t.Errorf("second highlight spills to %v", c)
	}
	if len(res.Skipped) != 0 {
		t.Errorf("skipped = %v", res.Skipped)
	}
}

func TestRenderCommentLayerToggle(t *testing.T) {
	r := New()
	items := []annotation.Annotation{
		&annotation.Comment{Base: base("c", coords.Rect{X: 100, Y: 10, W: 90, H: 80}, overlay), Text: "", Color: annotation.Yellow, FontSize: 12},
	}
	hidden, err := r.Render(nil, items, nil, overlay, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if c := at(hidden.Image, 150, 50); !isWhite(c) {
		t.Errorf("hidden comment drawn: %v", c)
	}
	shown, err := r.Render(nil, items, nil, overlay, Options{ShowComments: true})
	if err != nil {
		t.Fatal(err)
	}
	if c := at(shown.Image, 150, 50); c != (color.RGBA{R: 255, G: 235, B: 59, A: 255}) {
		t.Errorf("comment fill = %v", c)
	}
}

func TestRenderSkipsBrokenAnnotations(t *testing.T) {
	r := New()
	items := []annotation.Annotation{
		&annotation.Image{Base: base("img", coords.Rect{X: 0, Y: 0, W: 50, H: 50}, overlay), AssetID: "gone"},
		&annotation.Highlight{Base: base("nosize", coords.Rect{X: 0, Y: 0, W: 50, H: 50}, coords.Size{}), Color: annotation.Red, Opacity: 1},
		&annotation.Highlight{Base: base("ok", coords.Rect{X: 100, Y: 0, W: 50, H: 50}, overlay), Color: annotation.Red, Opacity: 1},
	}
	res, err := r.Render(nil, items, annotation.NewAssetStore(), overlay, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Skipped) != 2 {
		t.Fatalf("skipped = %v", res.Skipped)
	}
	kinds := map[string]failure.Kind{}
	for _, s := range res.Skipped {
		kinds[s.ID] = failure.KindOf(s.Err)
	}
	if kinds["nosize"] != failure.MissingOverlaySize || kinds["img"] != failure.AssetNotFound {
		t.Errorf("skip kinds = %v", kinds)
	}
	if c := at(res.Image, 120, 20); c.R != 255 || c.G != 0 {
		t.Errorf("valid highlight not drawn: %v", c)
	}
}

func TestRenderImageAndText(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(4, 4, color.RGBA{G: 200, A: 255})); err != nil {
		t.Fatal(err)
	}
	assets := annotation.NewAssetStore()
	asset, err := assets.Add(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	text := &annotation.Text{Base: base("t", coords.Rect{X: 100, Y: 0, W: 100, H: 60}, overlay), FontSize: 24}
	text.SetSpans([]annotation.Span{{Text: "Wide words"}})
	items := []annotation.Annotation{
		&annotation.Image{Base: base("img", coords.Rect{X: 10, Y: 10, W: 40, H: 40}, overlay), AssetID: asset.ID},
		text,
	}
	res, err := New().Render(nil, items, assets, overlay, Options{TextDefaults: annotation.Style{FontSize: 16, Color: annotation.Black}})
	if err != nil {
		t.Fatal(err)
	}
	if c := at(res.Image, 30, 30); c.G != 200 || c.R != 0 {
		t.Errorf("image pixel = %v", c)
	}
	dark := 0
	for y := 0; y < 60; y++ {
		for x := 100; x < 200; x++ {
			if c := at(res.Image, x, y); c.R < 128 {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Error("no text ink inside the text box")
	}
}

func TestRenderDraftAndSelection(t *testing.T) {
	draft := &gesture.Draft{
		ShapeType: annotation.ShapePolygon,
		Page:      1,
		Overlay:   overlay,
		Style:     annotation.ShapeStyle{Stroke: annotation.Black, StrokeWidth: 4, Opacity: 1},
		Points:    []coords.Point{{X: 10, Y: 50}, {X: 190, Y: 50}},
	}
	hl := &annotation.Highlight{Base: base("sel", coords.Rect{X: 80, Y: 70, W: 40, H: 20}, overlay), Color: annotation.Yellow, Opacity: 0.5}
	res, err := New().Render(nil, []annotation.Annotation{hl}, nil, overlay, Options{Draft: draft, Selected: "sel"})
	if err != nil {
		t.Fatal(err)
	}
	if c := at(res.Image, 100, 50); c.R > 10 {
		t.Errorf("draft edge pixel = %v", c)
	}
	if c := at(res.Image, 100, 68); isWhite(c) {
		t.Error("selection outline missing")
	}
}

func TestRenderNeedsOverlay(t *testing.T) {
	if _, err := New().Render(nil, nil, nil, coords.Size{}, Options{}); failure.KindOf(err) != failure.MissingOverlaySize {
		t.Fatalf("err = %v", err)
	}
}
