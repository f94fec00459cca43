package annotation

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wudi/pdfmark/coords"
	"github.com/wudi/pdfmark/failure"
)

func base(id string, page int) Base {
	return Base{ID: id, Page: page, X: 10, Y: 10, W: 50, H: 20, OverlayW: 600, OverlayH: 800}
}

func TestStore_AddGetReturnsCopies(t *testing.T) {
	s := NewStore()
	h := &Highlight{Base: base("h1", 1), Color: Yellow, Opacity: 0.4}
	if err := s.Add(h); err != nil {
		t.Fatalf("add: %v", err)
	}
	h.X = 999
	got, ok := s.Get("h1")
	if !ok {
		t.Fatalf("missing h1")
	}
	if got.Common().X != 10 {
		t.Fatalf("store aliases caller value: x=%v", got.Common().X)
	}
	got.Common().X = 500
	again, _ := s.Get("h1")
	if again.Common().X != 10 {
		t.Fatalf("Get must return a copy")
	}
	if err := s.Add(&Highlight{Base: base("h1", 2)}); !errors.Is(err, failure.ErrInvalidInput) {
		t.Fatalf("expected duplicate id rejection, got %v", err)
	}
}

func TestStore_UpdateFailureLeavesRecord(t *testing.T) {
	s := NewStore()
	_ = s.Add(&Draw{Base: base("d1", 1), Points: []coords.Point{{X: 1, Y: 1}}, Width: 2, Opacity: 1})
	err := s.Update("d1", func(a Annotation) error {
		d := a.(*Draw)
		d.Points = append(d.Points, coords.Point{X: 5, Y: 5})
		return errors.New("rejected")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	got, _ := s.Get("d1")
	if n := len(got.(*Draw).Points); n != 1 {
		t.Fatalf("partial mutation leaked: %d points", n)
	}
	if err := s.Update("d1", func(a Annotation) error { a.Common().ID = "other"; return nil }); err == nil {
		t.Fatalf("id change must be refused")
	}
}

func TestStore_RemapPagesAtomic(t *testing.T) {
	s := NewStore()
	_ = s.Add(&Highlight{Base: base("a", 3), Opacity: 0.5})
	_ = s.Add(&Comment{Base: base("b", 1), Text: "hi"})
	_ = s.Add(&Stamp{Base: base("c", 2), Text: "OK"})

	// pages [3,1,2] reordered to [1,2,3]: old 3 -> 1, old 1 -> 2, old 2 -> 3
	if err := s.RemapPages(map[int]int{3: 1, 1: 2, 2: 3}); err != nil {
		t.Fatalf("remap: %v", err)
	}
	want := map[string]int{"a": 1, "b": 2, "c": 3}
	for id, page := range want {
		a, _ := s.Get(id)
		if a.Common().Page != page {
			t.Errorf("%s on page %d, want %d", id, a.Common().Page, page)
		}
	}

	err := s.RemapPages(map[int]int{1: 2})
	if !errors.Is(err, failure.ErrInvalidInput) {
		t.Fatalf("expected incomplete map rejection, got %v", err)
	}
	a, _ := s.Get("a")
	if a.Common().Page != 1 {
		t.Fatalf("failed remap mutated store")
	}
}

func TestStore_RemoveAndFilters(t *testing.T) {
	s := NewStore()
	_ = s.Add(&Highlight{Base: base("a", 1), Opacity: 0.5})
	_ = s.Add(&Comment{Base: base("b", 1)})
	_ = s.Add(&Comment{Base: base("c", 2)})
	if !s.Remove("b") || s.Remove("b") {
		t.Fatalf("remove semantics broken")
	}
	if n := len(s.OfKind(KindComment)); n != 1 {
		t.Fatalf("OfKind comment = %d", n)
	}
	if n := len(s.OnPage(1)); n != 1 {
		t.Fatalf("OnPage(1) = %d", n)
	}
	if _, ok := s.Get("c"); !ok {
		t.Fatalf("index not rebuilt after remove")
	}
	if diff := cmp.Diff([]int{1, 2}, s.Pages()); diff != "" {
		t.Fatalf("pages mismatch (-want +got):\n%s", diff)
	}
	s.Reset()
	if s.Len() != 0 {
		t.Fatalf("reset left %d items", s.Len())
	}
}

func TestMoveAndReshapeCarryVertices(t *testing.T) {
	d := &Draw{Points: []coords.Point{{X: 10, Y: 10}, {X: 30, Y: 50}}, Opacity: 1}
	d.ID, d.Page = "d", 1
	SyncBounds(d)
	if d.Rect() != (coords.Rect{X: 10, Y: 10, W: 20, H: 40}) {
		t.Fatalf("bounds %+v", d.Rect())
	}
	MoveTo(d, 0, 0, coords.Size{W: 100, H: 100})
	if diff := cmp.Diff([]coords.Point{{X: 0, Y: 0}, {X: 20, Y: 40}}, d.Points); diff != "" {
		t.Fatalf("move mismatch:\n%s", diff)
	}
	Reshape(d, coords.Rect{X: 0, Y: 0, W: 40, H: 80}, coords.Size{W: 200, H: 200})
	if diff := cmp.Diff([]coords.Point{{X: 0, Y: 0}, {X: 40, Y: 80}}, d.Points); diff != "" {
		t.Fatalf("reshape mismatch:\n%s", diff)
	}
	if d.OverlayW != 200 {
		t.Fatalf("overlay snapshot not refreshed")
	}
}

func TestValidate(t *testing.T) {
	txt := &Text{Base: base("t", 1)}
	txt.SetSpans([]Span{{Text: "a\n"}, {Text: "b", Bold: true}})
	tests := []struct {
		name string
		a    Annotation
		ok   bool
	}{
		{"text ok", txt, true},
		{"text mismatch", &Text{Base: base("t2", 1), Text: "x", Spans: []Span{{Text: "y"}}}, false},
		{"tiny highlight", &Highlight{Base: Base{ID: "h", Page: 1, W: 1, H: 10}, Opacity: 0.3}, false},
		{"polygon needs 3", &Shape{Base: base("p", 1), ShapeType: ShapePolygon, Points: []coords.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}, Style: ShapeStyle{Opacity: 1}}, false},
		{"arrow", &Shape{Base: base("ar", 1), ShapeType: ShapeArrow, Points: []coords.Point{{X: 0, Y: 0}, {X: 9, Y: 9}}, Style: ShapeStyle{Opacity: 1}}, true},
		{"image without asset", &Image{Base: base("i", 1)}, false},
		{"page zero", &Comment{Base: base("c", 0)}, false},
	}
	for _, tt := range tests {
		err := Validate(tt.a)
		if (err == nil) != tt.ok {
			t.Errorf("%s: Validate = %v", tt.name, err)
		}
	}
}
