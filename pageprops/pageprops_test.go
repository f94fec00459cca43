package pageprops

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/failure"
)

func TestExportSequence_Duplicates(t *testing.T) {
	s := New(3)
	must(t, s.SetDuplicates(1, 2))
	must(t, s.SetHidden(2, true))
	must(t, s.SetDuplicates(3, 1))
	if diff := cmp.Diff([]int{1, 1, 1, 3, 3}, s.ExportSequence()); diff != "" {
		t.Fatalf("sequence (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 3}, s.VisiblePages()); diff != "" {
		t.Fatalf("visible (-want +got):\n%s", diff)
	}
}

func TestRemapForExport_DuplicatesAndDrops(t *testing.T) {
	s := New(3)
	must(t, s.SetDuplicates(1, 2))
	must(t, s.Delete(2))
	items := []annotation.Annotation{
		&annotation.Highlight{Base: annotation.Base{ID: "a", Page: 1, W: 10, H: 10, OverlayW: 100, OverlayH: 100}},
		&annotation.Highlight{Base: annotation.Base{ID: "b", Page: 2, W: 10, H: 10, OverlayW: 100, OverlayH: 100}},
		&annotation.Highlight{Base: annotation.Base{ID: "c", Page: 3, W: 10, H: 10, OverlayW: 100, OverlayH: 100}},
	}
	out := RemapForExport(items, s.ExportSequence())
	var got []string
	for _, a := range out {
		got = append(got, a.Common().ID+":"+string(rune('0'+a.Common().Page)))
	}
	if diff := cmp.Diff([]string{"a:1", "a:2", "a:3", "c:4"}, got); diff != "" {
		t.Fatalf("remap (-want +got):\n%s", diff)
	}
	if items[0].Common().Page != 1 || items[2].Common().Page != 3 {
		t.Fatalf("input modified")
	}
}

func TestRemapForExport_Typed(t *testing.T) {
	draws := []*annotation.Draw{{Base: annotation.Base{ID: "d", Page: 2}}}
	out := RemapForExport(draws, []int{2, 2})
	if len(out) != 2 || out[0].Page != 1 || out[1].Page != 2 {
		t.Fatalf("unexpected %+v", out)
	}
}

func TestDeleteClearsHidden(t *testing.T) {
	s := New(2)
	must(t, s.SetHidden(1, true))
	must(t, s.Rotate(1, 90))
	must(t, s.Delete(1))
	p, _ := s.Get(1)
	if p.Hidden || !p.Deleted {
		t.Fatalf("props after delete: %+v", p)
	}
	if err := s.SetHidden(1, true); !errors.Is(err, failure.ErrInvalidInput) {
		t.Fatalf("hiding a deleted page should fail, got %v", err)
	}
	must(t, s.Restore(1))
	p, _ = s.Get(1)
	if p.Deleted || p.Rotation != 90 {
		t.Fatalf("props after restore: %+v", p)
	}
}

func TestRotate(t *testing.T) {
	s := New(1)
	must(t, s.Rotate(1, -90))
	p, _ := s.Get(1)
	if p.Rotation != 270 {
		t.Fatalf("rotation = %d", p.Rotation)
	}
	must(t, s.Rotate(1, 450))
	p, _ = s.Get(1)
	if p.Rotation != 0 {
		t.Fatalf("rotation = %d", p.Rotation)
	}
	if err := s.Rotate(1, 45); !errors.Is(err, failure.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if err := s.Rotate(2, 90); !errors.Is(err, failure.ErrInvalidInput) {
		t.Fatalf("expected invalid page, got %v", err)
	}
}

func TestNavigation(t *testing.T) {
	s := New(5)
	must(t, s.SetHidden(2, true))
	must(t, s.Delete(3))
	tests := []struct {
		name string
		fn   func(int) int
		cur  int
		want int
	}{
		{"next skips", s.Next, 1, 4},
		{"next clamps", s.Next, 5, 5},
		{"prev skips", s.Prev, 4, 1},
		{"prev clamps", s.Prev, 1, 1},
		{"resolve visible", s.Resolve, 4, 4},
		{"resolve following", s.Resolve, 2, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.cur); got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
	must(t, s.SetHidden(5, true))
	must(t, s.SetHidden(4, true))
	if got := s.Resolve(4); got != 1 {
		t.Fatalf("resolve with none following = %d, want last visible 1", got)
	}
	must(t, s.SetHidden(1, true))
	if got := s.Resolve(1); got != 0 {
		t.Fatalf("resolve with nothing visible = %d", got)
	}
}

func TestReorder(t *testing.T) {
	s := New(3)
	must(t, s.Rotate(3, 180))
	m, next, err := s.Reorder([]int{3, 1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[int]int{3: 1, 1: 2, 2: 3}, m); diff != "" {
		t.Fatalf("map (-want +got):\n%s", diff)
	}
	p, _ := next.Get(1)
	if p.Rotation != 180 || p.Source != 3 {
		t.Fatalf("props did not move with the page: %+v", p)
	}
	if p, _ := s.Get(3); p.Rotation != 180 {
		t.Fatalf("receiver modified")
	}
	for _, bad := range [][]int{{1, 2}, {1, 1, 2}, {1, 2, 4}} {
		if _, _, err := s.Reorder(bad); !errors.Is(err, failure.ErrInvalidInput) {
			t.Errorf("Reorder(%v) err = %v", bad, err)
		}
	}
}

func TestParseRange(t *testing.T) {
	got, err := ParseRange("5, 1-3,2, 9-", 10)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{1, 2, 3, 5, 9, 10}, got); diff != "" {
		t.Fatalf("pages (-want +got):\n%s", diff)
	}
	for _, bad := range []string{"", "1,,2", "x", "3-1", "0", "11", "2-12"} {
		if _, err := ParseRange(bad, 10); !errors.Is(err, failure.ErrInvalidInput) {
			t.Errorf("ParseRange(%q) err = %v", bad, err)
		}
	}
}

func TestFromProps_Normalises(t *testing.T) {
	s := FromProps([]Props{{Rotation: -90, Hidden: true, Deleted: true, DuplicateCount: -1}})
	p, _ := s.Get(1)
	if diff := cmp.Diff(Props{Source: 1, Rotation: 270, Deleted: true}, p); diff != "" {
		t.Fatalf("props (-want +got):\n%s", diff)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
