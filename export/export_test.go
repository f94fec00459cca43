package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/coords"
	"github.com/wudi/pdfmark/document"
	"github.com/wudi/pdfmark/failure"
	"github.com/wudi/pdfmark/pageprops"
)

// fakeService records every call and returns fresh byte slices.
type fakeService struct {
	calls      []string
	pages      []document.PageSpec
	highlights []document.HighlightOp
	images     []document.ImageOp
	text       []document.TextOp
	signatures []document.SignatureOp
	paths      []document.PathOp
	shapes     []document.ShapeOp
	fail       string
	size       coords.Size
}

func (f *fakeService) step(name string, doc []byte) ([]byte, error) {
	f.calls = append(f.calls, name)
	if f.fail == name {
		return nil, errors.New("boom")
	}
	return append(append([]byte(nil), doc...), []byte("|"+name)...), nil
}

func (f *fakeService) Load(_ context.Context, doc []byte) (document.Info, error) {
	info := document.Info{PageCount: len(f.pages)}
	for range f.pages {
		info.Pages = append(info.Pages, document.PageInfo{Size: f.size})
	}
	return info, nil
}

func (f *fakeService) CopyPages(_ context.Context, doc []byte, pages []document.PageSpec) ([]byte, error) {
	f.pages = pages
	return f.step("pages", doc)
}

func (f *fakeService) DrawHighlights(_ context.Context, doc []byte, ops []document.HighlightOp) ([]byte, error) {
	f.highlights = ops
	return f.step("highlights", doc)
}

func (f *fakeService) DrawImages(_ context.Context, doc []byte, ops []document.ImageOp) ([]byte, error) {
	f.images = ops
	return f.step("images", doc)
}

func (f *fakeService) DrawText(_ context.Context, doc []byte, ops []document.TextOp) ([]byte, error) {
	f.text = ops
	return f.step("text", doc)
}

func (f *fakeService) DrawSignatures(_ context.Context, doc []byte, ops []document.SignatureOp) ([]byte, error) {
	f.signatures = ops
	return f.step("signatures", doc)
}

func (f *fakeService) DrawPaths(_ context.Context, doc []byte, ops []document.PathOp) ([]byte, error) {
	f.paths = ops
	return f.step("draw", doc)
}

func (f *fakeService) DrawShapes(_ context.Context, doc []byte, ops []document.ShapeOp) ([]byte, error) {
	f.shapes = ops
	return f.step("shapes", doc)
}

var overlay = coords.Size{W: 600, H: 800}

func base(id string, page int, r coords.Rect) annotation.Base {
	return annotation.Base{ID: id, Page: page, X: r.X, Y: r.Y, W: r.W, H: r.H, OverlayW: overlay.W, OverlayH: overlay.H}
}

func highlight(id string, page int) *annotation.Highlight {
	return &annotation.Highlight{Base: base(id, page, coords.Rect{X: 60, Y: 80, W: 120, H: 160}), Color: annotation.Yellow, Opacity: 0.4}
}

func run(t *testing.T, svc *fakeService, in Input) *Result {
	t.Helper()
	if svc.size.IsZero() {
		svc.size = coords.Size{W: 300, H: 400}
	}
	res, err := New(svc).Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func TestRunFoldsStagesInOrder(t *testing.T) {
	svc := &fakeService{}
	doc := []byte("%PDF-original")
	orig := append([]byte(nil), doc...)
	fill := annotation.White
	res := run(t, svc, Input{
		Document: doc,
		Pages:    pageprops.New(1),
		Annotations: []annotation.Annotation{
			&annotation.Shape{Base: base("s", 1, coords.Rect{X: 10, Y: 10, W: 50, H: 50}), ShapeType: annotation.ShapeRect, Style: annotation.ShapeStyle{StrokeWidth: 2, Fill: &fill, Opacity: 1}},
			&annotation.Draw{Base: base("d", 1, coords.Rect{}), Points: []coords.Point{{X: 0, Y: 0}, {X: 600, Y: 800}}, Width: 4, Opacity: 1},
			highlight("h", 1),
		},
	})
	if !bytes.Equal(doc, orig) {
		t.Fatal("input document modified")
	}
	if diff := cmp.Diff([]string{"pages", "highlights", "draw", "shapes"}, svc.calls); diff != "" {
		t.Fatalf("calls (-want +got):\n%s", diff)
	}
	if got, want := string(res.Document), "%PDF-original|pages|highlights|draw|shapes"; got != want {
		t.Errorf("document = %q, want %q", got, want)
	}
	var skipped []string
	for _, st := range res.Report.Stages {
		if st.Skipped {
			skipped = append(skipped, st.Name)
		}
	}
	if diff := cmp.Diff([]string{"images", "text", "signatures"}, skipped); diff != "" {
		t.Errorf("skipped stages (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]coords.Point{{X: 0, Y: 400}, {X: 300, Y: 0}}, svc.paths[0].Points); diff != "" {
		t.Errorf("path points (-want +got):\n%s", diff)
	}
	if got := svc.paths[0].Width; got != 2 {
		t.Errorf("stroke width = %v, want 2", got)
	}
	if got := svc.shapes[0].StrokeWidth; got != 1 {
		t.Errorf("shape stroke width = %v, want 1", got)
	}
}

func TestRunDuplicatesAnnotations(t *testing.T) {
	props := pageprops.New(1)
	if err := props.SetDuplicates(1, 2); err != nil {
		t.Fatal(err)
	}
	svc := &fakeService{}
	res := run(t, svc, Input{Document: []byte("%PDF"), Pages: props, Annotations: []annotation.Annotation{highlight("h", 1)}})
	if res.Report.Pages != 3 {
		t.Fatalf("pages = %d, want 3", res.Report.Pages)
	}
	want := coords.Rect{X: 30, Y: 280, W: 60, H: 80}
	var got []document.HighlightOp
	for p := 1; p <= 3; p++ {
		got = append(got, document.HighlightOp{Page: p, Rect: want, Color: annotation.Yellow, Opacity: 0.4})
	}
	if diff := cmp.Diff(got, svc.highlights); diff != "" {
		t.Fatalf("highlights (-want +got):\n%s", diff)
	}
}

func TestRunExcludesHiddenAndDeletedPages(t *testing.T) {
	props := pageprops.New(3)
	if err := props.SetHidden(2, true); err != nil {
		t.Fatal(err)
	}
	if err := props.Delete(3); err != nil {
		t.Fatal(err)
	}
	if err := props.Rotate(1, 90); err != nil {
		t.Fatal(err)
	}
	svc := &fakeService{}
	run(t, svc, Input{
		Document:    []byte("%PDF"),
		Pages:       props,
		Annotations: []annotation.Annotation{highlight("a", 1), highlight("b", 2), highlight("c", 3)},
	})
	if diff := cmp.Diff([]document.PageSpec{{Number: 1, Rotation: 90}}, svc.pages); diff != "" {
		t.Errorf("pages (-want +got):\n%s", diff)
	}
	if len(svc.highlights) != 1 || svc.highlights[0].Page != 1 {
		t.Errorf("highlights = %+v", svc.highlights)
	}
}

func TestRunSkipsMissingAssets(t *testing.T) {
	assets := annotation.NewAssetStore()
	asset := &annotation.Asset{ID: "known", MIME: "image/png", Width: 1, Height: 1, Data: []byte{1}}
	assets.Put(asset)
	props := pageprops.New(1)
	if err := props.SetDuplicates(1, 1); err != nil {
		t.Fatal(err)
	}
	svc := &fakeService{}
	res := run(t, svc, Input{
		Document: []byte("%PDF"),
		Pages:    props,
		Assets:   assets,
		Annotations: []annotation.Annotation{
			&annotation.Image{Base: base("ok", 1, coords.Rect{W: 10, H: 10}), AssetID: "known"},
			&annotation.Image{Base: base("gone", 1, coords.Rect{W: 10, H: 10}), AssetID: "missing"},
		},
	})
	if len(svc.images) != 2 || svc.images[0].Asset != asset {
		t.Errorf("images = %+v", svc.images)
	}
	want := []Skipped{{ID: "gone", Kind: annotation.KindImage, Reason: failure.AssetNotFound}}
	if diff := cmp.Diff(want, res.Report.Skipped); diff != "" {
		t.Errorf("skipped (-want +got):\n%s", diff)
	}
}

func TestRunText(t *testing.T) {
	red := annotation.Red
	defaults := annotation.Style{FontSize: 16, Color: annotation.Black, FontFamily: "serif"}
	text := &annotation.Text{Base: base("t", 1, coords.Rect{X: 0, Y: 0, W: 200, H: 100}), FontSize: 20}
	text.SetSpans([]annotation.Span{{Text: "plain "}, {Text: "bold", Bold: true, Color: &red}})
	comment := &annotation.Comment{Base: base("c", 1, coords.Rect{W: 200, H: 120}), Text: "note", Color: annotation.Yellow, FontSize: 14}
	stamp := &annotation.Stamp{Base: base("s", 1, coords.Rect{W: 120, H: 48}), Text: "APPROVED", Color: annotation.Red, FontSize: 24}

	for _, show := range []bool{false, true} {
		t.Run(fmt.Sprintf("comments=%v", show), func(t *testing.T) {
			svc := &fakeService{}
			run(t, svc, Input{
				Document:     []byte("%PDF"),
				Pages:        pageprops.New(1),
				TextDefaults: defaults,
				ShowComments: show,
				Annotations:  []annotation.Annotation{text, comment, stamp},
			})
			wantOps := 2
			if show {
				wantOps = 3
			}
			if len(svc.text) != wantOps {
				t.Fatalf("text ops = %d, want %d", len(svc.text), wantOps)
			}
			runs := svc.text[0].Runs
			want := []document.TextRun{
				{Text: "plain ", Style: annotation.Style{FontSize: 10, Color: annotation.Black, FontFamily: "serif"}},
				{Text: "bold", Style: annotation.Style{Bold: true, FontSize: 10, Color: red, FontFamily: "serif"}},
			}
			if diff := cmp.Diff(want, runs); diff != "" {
				t.Errorf("runs (-want +got):\n%s", diff)
			}
			st := svc.text[len(svc.text)-1]
			if !st.Runs[0].Style.Bold || !st.Center || st.Frame == nil {
				t.Errorf("stamp op = %+v", st)
			}
			if show {
				c := svc.text[1]
				if c.Runs[0].Style.Color != annotation.Black || c.Frame == nil || *c.Frame.Fill != annotation.Yellow {
					t.Errorf("comment op = %+v", c)
				}
			}
		})
	}
}

func TestRunMissingOverlaySize(t *testing.T) {
	h := highlight("h", 1)
	h.OverlayW, h.OverlayH = 0, 0
	svc := &fakeService{size: coords.Size{W: 300, H: 400}}
	res, err := New(svc).Run(context.Background(), Input{Document: []byte("%PDF"), Pages: pageprops.New(1), Annotations: []annotation.Annotation{h}})
	if res != nil || !errors.Is(err, failure.ErrMissingOverlaySize) {
		t.Fatalf("res = %v, err = %v", res, err)
	}
}

func TestRunServiceFailure(t *testing.T) {
	svc := &fakeService{fail: "highlights", size: coords.Size{W: 300, H: 400}}
	_, err := New(svc).Run(context.Background(), Input{Document: []byte("%PDF"), Pages: pageprops.New(1), Annotations: []annotation.Annotation{highlight("h", 1)}})
	if failure.KindOf(err) != failure.DocumentServiceFailure {
		t.Fatalf("err = %v", err)
	}
}

func TestRunNothingVisible(t *testing.T) {
	props := pageprops.New(1)
	if err := props.Delete(1); err != nil {
		t.Fatal(err)
	}
	svc := &fakeService{}
	_, err := New(svc).Run(context.Background(), Input{Document: []byte("%PDF"), Pages: props})
	if failure.KindOf(err) != failure.InvalidInput || len(svc.calls) != 0 {
		t.Fatalf("err = %v, calls = %v", err, svc.calls)
	}
}

type countingStage struct{ seen *[]string }

func (countingStage) Name() string  { return "audit" }
func (countingStage) Phase() Phase  { return PhaseShapes }
func (countingStage) Priority() int { return 10 }
func (c countingStage) Apply(_ context.Context, env *Env, doc []byte) ([]byte, int, error) {
	*c.seen = append(*c.seen, string(doc))
	return doc, 0, nil
}

func TestRegisterOrdersByPriority(t *testing.T) {
	var seen []string
	p := New(&fakeService{size: coords.Size{W: 1, H: 1}})
	p.Register(countingStage{seen: &seen})
	stages := p.Stages()
	if got := stages[len(stages)-1].Name(); got != "audit" {
		t.Fatalf("last stage = %q", got)
	}
	if _, err := p.Run(context.Background(), Input{Document: []byte("%PDF"), Pages: pageprops.New(1)}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"%PDF|pages"}, seen); diff != "" {
		t.Errorf("audit saw (-want +got):\n%s", diff)
	}
}
