package docsvc

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/contentstream"
	"github.com/wudi/pdfmark/coords"
	"github.com/wudi/pdfmark/document"
	"github.com/wudi/pdfmark/failure"
	"github.com/wudi/pdfmark/internal/pdftest"
	"github.com/wudi/pdfmark/layout"
)

// testPDF builds a two page document: page 1 is upright, page 2 carries
// /Rotate 90. Both inherit a 300x400 MediaBox from the page tree.
func testPDF() []byte {
	content := "0 0 1 rg 10 10 50 50 re f"
	return pdftest.Objects(
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R 5 0 R] /Count 2 /MediaBox [0 0 300 400] >>",
		"<< /Type /Page /Parent 2 0 R /Contents 4 0 R /Resources << >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Page /Parent 2 0 R /Rotate 90 /Resources << >> >>",
	)
}

func open(t *testing.T, s *Service, doc []byte) *model.Context {
	t.Helper()
	pdf, err := s.read(doc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return pdf
}

// pageContent concatenates the decoded content streams of a page.
func pageContent(t *testing.T, pdf *model.Context, n int) []byte {
	t.Helper()
	d, _, _, err := pdf.PageDict(n, false)
	if err != nil {
		t.Fatal(err)
	}
	var refs types.Array
	switch v := d["Contents"].(type) {
	case types.IndirectRef:
		refs = types.Array{v}
	case types.Array:
		refs = v
	}
	var out []byte
	for _, r := range refs {
		sd, _, err := pdf.DereferenceStreamDict(r)
		if err != nil || sd == nil {
			t.Fatalf("content stream: %v", err)
		}
		if err := sd.Decode(); err != nil {
			t.Fatal(err)
		}
		out = append(out, sd.Content...)
		out = append(out, '\n')
	}
	return out
}

func resources(t *testing.T, pdf *model.Context, n int, cat string) types.Dict {
	t.Helper()
	d, _, _, err := pdf.PageDict(n, false)
	if err != nil {
		t.Fatal(err)
	}
	res, err := pdf.DereferenceDict(d["Resources"])
	if err != nil {
		t.Fatal(err)
	}
	sub, err := pdf.DereferenceDict(res[cat])
	if err != nil {
		t.Fatal(err)
	}
	return sub
}

func trace(t *testing.T, content []byte) []contentstream.OpBBox {
	t.Helper()
	ops, err := contentstream.Parse(content)
	if err != nil {
		t.Fatalf("parse content: %v\n%s", err, content)
	}
	boxes, err := contentstream.NewTracer(nil).Trace(ops)
	if err != nil {
		t.Fatalf("trace: %v\n%s", err, content)
	}
	return boxes
}

func rectNear(a, b coords.Rect) bool {
	const eps = 1e-3
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps && math.Abs(a.W-b.W) < eps && math.Abs(a.H-b.H) < eps
}

func TestLoad(t *testing.T) {
	s := New()
	info, err := s.Load(context.Background(), testPDF())
	if err != nil {
		t.Fatal(err)
	}
	want := document.Info{PageCount: 2, Pages: []document.PageInfo{
		{Size: coords.Size{W: 300, H: 400}},
		{Size: coords.Size{W: 400, H: 300}, Rotation: 90},
	}}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Fatalf("info (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsNonPDF(t *testing.T) {
	_, err := New().Load(context.Background(), []byte("PK\x03\x04 definitely a zip"))
	if failure.KindOf(err) != failure.InvalidInput {
		t.Fatalf("err = %v, want InvalidInput", err)
	}
}

func TestCopyPages(t *testing.T) {
	s := New()
	doc := testPDF()
	orig := append([]byte(nil), doc...)

	out, err := s.CopyPages(context.Background(), doc, []document.PageSpec{
		{Number: 2},
		{Number: 1, Rotation: 90},
		{Number: 1, Rotation: 90},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(doc, orig) {
		t.Fatal("input bytes changed")
	}
	info, err := s.Load(context.Background(), out)
	if err != nil {
		t.Fatal(err)
	}
	want := []document.PageInfo{
		{Size: coords.Size{W: 400, H: 300}, Rotation: 90},
		{Size: coords.Size{W: 400, H: 300}, Rotation: 90},
		{Size: coords.Size{W: 400, H: 300}, Rotation: 90},
	}
	if diff := cmp.Diff(want, info.Pages); diff != "" {
		t.Fatalf("pages (-want +got):\n%s", diff)
	}

	pdf := open(t, s, out)
	_, ref2, _, err := pdf.PageDict(2, false)
	if err != nil {
		t.Fatal(err)
	}
	_, ref3, _, err := pdf.PageDict(3, false)
	if err != nil {
		t.Fatal(err)
	}
	if ref2.ObjectNumber == ref3.ObjectNumber {
		t.Error("duplicated pages share one page object")
	}
	if !bytes.Contains(pageContent(t, pdf, 3), []byte("re")) {
		t.Error("duplicate lost the page content")
	}
}

func TestCopyPagesOutOfRange(t *testing.T) {
	_, err := New().CopyPages(context.Background(), testPDF(), []document.PageSpec{{Number: 3}})
	if failure.KindOf(err) != failure.DocumentServiceFailure {
		t.Fatalf("err = %v", err)
	}
}

func TestDrawHighlights(t *testing.T) {
	s := New()
	doc := testPDF()
	orig := append([]byte(nil), doc...)
	out, err := s.DrawHighlights(context.Background(), doc, []document.HighlightOp{
		{Page: 1, Rect: coords.Rect{X: 10, Y: 20, W: 30, H: 40}, Color: annotation.Yellow, Opacity: 0.4},
		{Page: 2, Rect: coords.Rect{X: 0, Y: 0, W: 10, H: 20}, Color: annotation.Yellow, Opacity: 0.4},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(doc, orig) {
		t.Fatal("input bytes changed")
	}
	pdf := open(t, s, out)

	boxes := trace(t, pageContent(t, pdf, 1))
	if got := boxes[len(boxes)-1].Rect; !rectNear(got, coords.Rect{X: 10, Y: 20, W: 30, H: 40}) {
		t.Errorf("page 1 highlight = %+v", got)
	}
	// Display space of the rotated page maps to (300-y, x) in user space.
	boxes = trace(t, pageContent(t, pdf, 2))
	if got := boxes[len(boxes)-1].Rect; !rectNear(got, coords.Rect{X: 280, Y: 0, W: 20, H: 10}) {
		t.Errorf("page 2 highlight = %+v", got)
	}

	states := resources(t, pdf, 1, "ExtGState")
	if len(states) != 1 {
		t.Fatalf("ExtGState = %v", states)
	}
	for name, obj := range states {
		if !strings.HasPrefix(name, "Mk1") {
			t.Errorf("resource name %q lacks prefix", name)
		}
		gs, err := pdf.DereferenceDict(obj)
		if err != nil {
			t.Fatal(err)
		}
		if gs["BM"] != types.Name("Multiply") {
			t.Errorf("blend mode = %v", gs["BM"])
		}
	}
}

func TestStagesLayer(t *testing.T) {
	s := New()
	ctx := context.Background()
	out, err := s.DrawHighlights(ctx, testPDF(), []document.HighlightOp{
		{Page: 1, Rect: coords.Rect{W: 10, H: 10}, Color: annotation.Yellow, Opacity: 0.5},
	})
	if err != nil {
		t.Fatal(err)
	}
	out, err = s.DrawPaths(ctx, out, []document.PathOp{
		{Page: 1, Points: []coords.Point{{X: 1, Y: 1}, {X: 50, Y: 60}, {X: 90, Y: 20}}, Color: annotation.Red, Width: 2, Opacity: 0.5},
	})
	if err != nil {
		t.Fatal(err)
	}
	pdf := open(t, s, out)
	states := resources(t, pdf, 1, "ExtGState")
	var names []string
	for name := range states {
		names = append(names, name[:3])
	}
	if len(names) != 2 || names[0] == names[1] {
		t.Fatalf("stage resources collide: %v", states)
	}
	trace(t, pageContent(t, pdf, 1))
}

func TestDrawTextEmbedsFonts(t *testing.T) {
	s := New()
	out, err := s.DrawText(context.Background(), testPDF(), []document.TextOp{{
		Page: 1,
		Rect: coords.Rect{X: 20, Y: 300, W: 200, H: 60},
		Runs: []document.TextRun{
			{Text: "Hello ", Style: annotation.Style{FontSize: 14}},
			{Text: "world", Style: annotation.Style{FontSize: 14, Bold: true, Underline: true, Color: annotation.Red}},
		},
		Padding: 4,
		Frame:   &document.Frame{Border: annotation.Black, Width: 1},
	}})
	if err != nil {
		t.Fatal(err)
	}
	pdf := open(t, s, out)
	fontsUsed := resources(t, pdf, 1, "Font")
	if len(fontsUsed) != 2 {
		t.Fatalf("fonts = %v, want regular and bold", fontsUsed)
	}
	for _, obj := range fontsUsed {
		f, err := pdf.DereferenceDict(obj)
		if err != nil {
			t.Fatal(err)
		}
		if f["Subtype"] != types.Name("Type0") || f["Encoding"] != types.Name("Identity-H") {
			t.Errorf("font = %v", f)
		}
	}
	content := pageContent(t, pdf, 1)
	if !bytes.Contains(content, []byte("TJ")) {
		t.Errorf("no text shown:\n%s", content)
	}
	for _, b := range trace(t, content) {
		if b.Rect.Y < 290 {
			continue // the page's own content
		}
		if b.Rect.X < 19 || b.Rect.X+b.Rect.W > 221 {
			t.Errorf("content escapes the text box: %+v", b.Rect)
		}
	}
}

func TestDrawImagesWithAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 100})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	asset, err := annotation.NewAsset(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	s := New()
	out, err := s.DrawImages(context.Background(), testPDF(), []document.ImageOp{
		{Page: 1, Rect: coords.Rect{X: 5, Y: 5, W: 20, H: 20}, Asset: asset, Opacity: 1},
		{Page: 1, Rect: coords.Rect{X: 50, Y: 5, W: 20, H: 20}, Asset: asset, Opacity: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	pdf := open(t, s, out)
	xobjects := resources(t, pdf, 1, "XObject")
	if len(xobjects) != 1 {
		t.Fatalf("xobjects = %v, want one shared image", xobjects)
	}
	for _, obj := range xobjects {
		sd, _, err := pdf.DereferenceStreamDict(obj)
		if err != nil || sd == nil {
			t.Fatalf("image stream: %v", err)
		}
		if _, ok := sd.Dict["SMask"]; !ok {
			t.Error("translucent image has no SMask")
		}
	}
	boxes := trace(t, pageContent(t, pdf, 1))
	if got := boxes[len(boxes)-1].Rect; !rectNear(got, coords.Rect{X: 50, Y: 5, W: 20, H: 20}) {
		t.Errorf("image placed at %+v", got)
	}
}

func TestDrawSignatureFits(t *testing.T) {
	s := New()
	face, err := s.fonts.Signature("flourish")
	if err != nil {
		t.Fatal(err)
	}
	r := coords.Rect{X: 10, Y: 10, W: 100, H: 30}
	glyphs := face.Shape("Ada Lovelace")
	size, x, _ := layout.Fit(face, layout.Advance(glyphs), r)
	width := 0.0
	for _, g := range glyphs {
		width += g.XAdvance * size / 1000
	}
	if x < r.X || x+width > r.X+r.W+1e-9 {
		t.Errorf("signature spans %v..%v outside %+v", x, x+width, r)
	}

	out, err := s.DrawSignatures(context.Background(), testPDF(), []document.SignatureOp{
		{Page: 1, Rect: r, Text: "Ada Lovelace", FontID: "flourish"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if fonts := resources(t, open(t, s, out), 1, "Font"); len(fonts) != 1 {
		t.Errorf("fonts = %v", fonts)
	}
}

func TestDrawShapes(t *testing.T) {
	fill := annotation.White
	out, err := New().DrawShapes(context.Background(), testPDF(), []document.ShapeOp{
		{Page: 1, Type: annotation.ShapeRect, Rect: coords.Rect{X: 10, Y: 10, W: 20, H: 20}, StrokeWidth: 1, Fill: &fill, Opacity: 1},
		{Page: 1, Type: annotation.ShapeEllipse, Rect: coords.Rect{X: 40, Y: 10, W: 20, H: 10}, StrokeWidth: 1, Opacity: 1},
		{Page: 1, Type: annotation.ShapeArrow, Points: []coords.Point{{X: 10, Y: 100}, {X: 100, Y: 100}}, StrokeWidth: 2, Opacity: 1},
		{Page: 1, Type: annotation.ShapeCloud, Points: []coords.Point{{X: 100, Y: 100}, {X: 200, Y: 100}, {X: 150, Y: 200}}, StrokeWidth: 1, Opacity: 0.5},
	})
	if err != nil {
		t.Fatal(err)
	}
	s := New()
	boxes := trace(t, pageContent(t, open(t, s, out), 1))
	// original rect + rect + ellipse + arrow shaft + arrow head + cloud
	if len(boxes) != 6 {
		t.Fatalf("painted %d paths, want 6", len(boxes))
	}
	if got := boxes[2].Rect; !rectNear(got, coords.Rect{X: 40, Y: 10, W: 20, H: 10}) {
		t.Errorf("ellipse box = %+v", got)
	}
}

func TestDrawPageOutOfRange(t *testing.T) {
	_, err := New().DrawHighlights(context.Background(), testPDF(), []document.HighlightOp{{Page: 9}})
	if failure.KindOf(err) != failure.InvalidInput {
		t.Fatalf("err = %v", err)
	}
}
