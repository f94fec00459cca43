package session

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/coords"
	"github.com/wudi/pdfmark/failure"
	"github.com/wudi/pdfmark/pageprops"
	"github.com/wudi/pdfmark/storage"
)

var (
	doc   = []byte("%PDF-1.7 document one")
	other = []byte("%PDF-1.7 document two")
	when  = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func base(id string, page int) annotation.Base {
	return annotation.Base{ID: id, Page: page, X: 10, Y: 20, W: 100, H: 50, OverlayW: 600, OverlayH: 800}
}

func sample() ([]annotation.Annotation, *annotation.AssetStore) {
	assets := annotation.NewAssetStore()
	asset := assets.Put(&annotation.Asset{ID: "a1", MIME: "image/png", Width: 4, Height: 3, Data: []byte{1, 2, 3}})
	red := annotation.Red
	text := &annotation.Text{Base: base("t", 1), FontSize: 18}
	text.SetSpans([]annotation.Span{{Text: "Hello "}, {Text: "world", Bold: true, Color: &red}})
	fill := annotation.Yellow
	return []annotation.Annotation{
		&annotation.Image{Base: base("i", 1), AssetID: asset.ID},
		text,
		&annotation.Signature{Base: base("s", 2), Text: "A. Person", FontID: "formal", Color: annotation.Black},
		&annotation.Draw{Base: base("d", 2), Points: []coords.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}, Color: red, Width: 3, Opacity: 1},
		&annotation.Highlight{Base: base("h", 1), Color: annotation.Yellow, Opacity: 0.4},
		&annotation.Shape{Base: base("sh", 2), ShapeType: annotation.ShapeCloud, Points: []coords.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 5, Y: 8}}, Style: annotation.ShapeStyle{Stroke: red, StrokeWidth: 2, Fill: &fill, Opacity: 0.8}},
		&annotation.Comment{Base: base("c", 1), Text: "check this", Color: annotation.Yellow, FontSize: 14},
		&annotation.Stamp{Base: base("st", 2), Text: "APPROVED", Color: red, FontSize: 24},
	}, assets
}

func source() Source {
	items, assets := sample()
	props := pageprops.New(2)
	props.Rotate(2, 90)
	props.SetDuplicates(1, 1)
	return Source{Name: "one.pdf", Document: doc, PageCount: 2, Annotations: items, Assets: assets, Pages: props, ShowComments: true}
}

func TestEncodeRestoreRoundTrip(t *testing.T) {
	src := source()
	entry, missing := Capture(src, when)
	if len(missing) != 0 {
		t.Fatalf("missing = %v", missing)
	}
	data, err := Encode(entry)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"type":"highlight"`) || !strings.Contains(string(data), `"asset":{`) {
		t.Fatalf("records are not tagged: %s", data)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	var calls int
	got, err := Restore(decoded, doc, func(a *annotation.Asset) string {
		calls++
		return "handle:" + a.ID
	})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if diff := cmp.Diff(src.Annotations, got.Annotations); diff != "" {
		t.Errorf("annotations (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(src.Pages.Props(), got.Pages.Props()); diff != "" {
		t.Errorf("page props (-want +got):\n%s", diff)
	}
	if calls != 1 || got.Handles["a1"] != "handle:a1" {
		t.Errorf("handles = %v after %d calls", got.Handles, calls)
	}
	if len(got.Assets) != 1 || string(got.Assets[0].Data) != "\x01\x02\x03" || got.Assets[0].Width != 4 {
		t.Errorf("assets = %+v", got.Assets)
	}
	if !got.ShowComments || got.Counts()[annotation.KindImage] != 1 {
		t.Errorf("restored = %+v", got)
	}
	if !decoded.SavedAt.Equal(when) || decoded.Name != "one.pdf" {
		t.Errorf("entry header = %+v", decoded)
	}
}

func TestRestoreBuildsFreshHandles(t *testing.T) {
	entry, _ := Capture(source(), when)
	first, err := Restore(entry, doc, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(first.Handles["a1"], "data:image/png;base64,") {
		t.Errorf("handle = %q", first.Handles["a1"])
	}
	data, _ := Encode(entry)
	if strings.Contains(string(data), "data:image") {
		t.Error("handle persisted")
	}
}

func TestRestoreRefusesOtherDocument(t *testing.T) {
	entry, _ := Capture(source(), when)
	got, err := Restore(entry, other, nil)
	if got != nil || !errors.Is(err, failure.ErrSessionMismatch) {
		t.Fatalf("Restore = %v, %v", got, err)
	}
}

func TestRestoreRejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Entry)
	}{
		{"duplicate id", func(e *Entry) { e.Records = append(e.Records, e.Records[0]) }},
		{"page past end", func(e *Entry) { e.Records[1].Annotation.Common().Page = 9 }},
		{"asset mismatch", func(e *Entry) { e.Records[0].Asset = &annotation.Asset{ID: "other", Data: []byte{1}} }},
		{"props count", func(e *Entry) { e.PageProps = e.PageProps[:1] }},
		{"repeated source", func(e *Entry) { e.PageProps[1].Source = e.PageProps[0].Source }},
		{"invalid record", func(e *Entry) { e.Records[4].Annotation.(*annotation.Highlight).Opacity = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, _ := Capture(source(), when)
			tt.mutate(entry)
			if _, err := Restore(entry, doc, nil); failure.KindOf(err) != failure.InvalidInput {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

func TestCaptureReportsMissingAssets(t *testing.T) {
	src := source()
	src.Assets = annotation.NewAssetStore()
	entry, missing := Capture(src, when)
	if diff := cmp.Diff([]string{"i"}, missing); diff != "" {
		t.Fatalf("missing (-want +got):\n%s", diff)
	}
	got, err := Restore(entry, doc, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Assets) != 0 || len(got.Annotations) != len(src.Annotations) {
		t.Errorf("restored %d annotations, %d assets", len(got.Annotations), len(got.Assets))
	}
}

func TestDecodeRejects(t *testing.T) {
	for _, in := range []string{`{`, `{"version":7}`, `{"version":1,"records":[{"type":"sticker"}]}`} {
		if _, err := Decode([]byte(in)); failure.KindOf(err) != failure.InvalidInput {
			t.Errorf("Decode(%s) err = %v", in, err)
		}
	}
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	h := NewHistory(store, 2)
	if entries, err := h.Entries(ctx); err != nil || len(entries) != 0 {
		t.Fatalf("empty history = %v, %v", entries, err)
	}
	save := func(name string, d []byte) {
		t.Helper()
		e, _ := Capture(Source{Name: name, Document: d, PageCount: 1}, when)
		if err := h.Save(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	save("one", doc)
	save("two", other)
	save("one again", doc)
	save("three", []byte("%PDF three"))

	entries, err := h.Entries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	if diff := cmp.Diff([]string{"three", "one again"}, names); diff != "" {
		t.Errorf("history (-want +got):\n%s", diff)
	}
	e, ok, err := h.Find(ctx, Fingerprint(doc))
	if err != nil || !ok || e.Name != "one again" {
		t.Errorf("Find = %v, %v, %v", e, ok, err)
	}
	if err := h.Remove(ctx, Fingerprint(doc)); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := h.Find(ctx, Fingerprint(doc)); ok {
		t.Error("entry still present after Remove")
	}
}

func TestSignatureProfile(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	if _, ok, err := LoadProfile(ctx, store); ok || err != nil {
		t.Fatalf("LoadProfile on empty store = %v, %v", ok, err)
	}
	p, err := NewSignatureProfile("  ada   king lovelace ")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "ada king lovelace" || p.Initials != "AKL" || p.FontID == "" {
		t.Fatalf("profile = %+v", p)
	}
	if err := SaveProfile(ctx, store, p); err != nil {
		t.Fatal(err)
	}
	got, ok, err := LoadProfile(ctx, store)
	if err != nil || !ok {
		t.Fatal(ok, err)
	}
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("profile (-want +got):\n%s", diff)
	}
	if _, err := NewSignatureProfile(" "); failure.KindOf(err) != failure.InvalidInput {
		t.Errorf("empty name err = %v", err)
	}
}

func TestAutosaverCoalesces(t *testing.T) {
	var saves atomic.Int32
	done := make(chan struct{}, 10)
	a := NewAutosaver(20*time.Millisecond, func(context.Context) error {
		saves.Add(1)
		done <- struct{}{}
		return nil
	}, nil)
	for i := 0; i < 5; i++ {
		a.Trigger()
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("autosave never ran")
	}
	time.Sleep(60 * time.Millisecond)
	if got := saves.Load(); got != 1 {
		t.Errorf("saves = %d, want 1", got)
	}
	if a.Pending() {
		t.Error("still pending after save")
	}
}

func TestAutosaverFlushAndStop(t *testing.T) {
	var saves atomic.Int32
	fail := errors.New("disk full")
	a := NewAutosaver(time.Hour, func(context.Context) error {
		saves.Add(1)
		return fail
	}, nil)
	if err := a.Flush(context.Background()); err != nil || saves.Load() != 0 {
		t.Fatalf("Flush with nothing pending = %v, saves %d", err, saves.Load())
	}
	a.Trigger()
	if err := a.Flush(context.Background()); !errors.Is(err, fail) {
		t.Fatalf("Flush = %v", err)
	}
	if saves.Load() != 1 {
		t.Fatalf("saves = %d", saves.Load())
	}
	a.Stop()
	a.Trigger()
	if a.Pending() {
		t.Error("trigger after Stop scheduled a save")
	}
	if err := a.Flush(context.Background()); err != nil || saves.Load() != 1 {
		t.Errorf("Flush after Stop = %v, saves %d", err, saves.Load())
	}
}
