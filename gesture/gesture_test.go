package gesture

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/coords"
	"github.com/wudi/pdfmark/tool"
)

var overlay = coords.Size{W: 600, H: 800}

func addHighlight(t *testing.T, s *annotation.Store, r coords.Rect) {
	t.Helper()
	h := &annotation.Highlight{Opacity: 0.4}
	h.ID, h.Page = "h", 1
	h.SetGeometry(r, overlay)
	if err := s.Add(h); err != nil {
		t.Fatalf("add: %v", err)
	}
}

func rectOf(t *testing.T, s *annotation.Store, id string) coords.Rect {
	t.Helper()
	a, ok := s.Get(id)
	if !ok {
		t.Fatalf("%s missing", id)
	}
	return a.Common().Rect()
}

func TestMove_ClampsToOverlay(t *testing.T) {
	s := annotation.NewStore()
	addHighlight(t, s, coords.Rect{X: 100, Y: 100, W: 50, H: 40})
	m := NewMove(s, "h", overlay)
	if err := m.Begin(coords.Point{X: 110, Y: 110}); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := m.Update(coords.Point{X: 130, Y: 90}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := rectOf(t, s, "h"); got != (coords.Rect{X: 120, Y: 80, W: 50, H: 40}) {
		t.Fatalf("moved to %+v", got)
	}
	_ = m.Update(coords.Point{X: 5000, Y: -5000})
	if got := rectOf(t, s, "h"); got != (coords.Rect{X: 550, Y: 0, W: 50, H: 40}) {
		t.Fatalf("not clamped: %+v", got)
	}
	if st, err := m.End(); err != nil || st != Committed {
		t.Fatalf("end: %v %v", st, err)
	}
	if err := m.Update(coords.Point{}); err != ErrNotActive {
		t.Fatalf("update after end: %v", err)
	}
}

func TestMove_RescalesStaleSnapshot(t *testing.T) {
	s := annotation.NewStore()
	h := &annotation.Highlight{Opacity: 0.4}
	h.ID, h.Page = "h", 1
	h.SetGeometry(coords.Rect{X: 30, Y: 40, W: 30, H: 20}, coords.Size{W: 300, H: 400})
	_ = s.Add(h)
	m := NewMove(s, "h", overlay)
	if err := m.Begin(coords.Point{}); err != nil {
		t.Fatalf("begin: %v", err)
	}
	a, _ := s.Get("h")
	if a.Common().Overlay() != overlay || a.Common().Rect() != (coords.Rect{X: 60, Y: 80, W: 60, H: 40}) {
		t.Fatalf("snapshot not refreshed: %+v", a.Common())
	}
}

func TestResize_MinimumsPerKind(t *testing.T) {
	sizes := tool.DefaultDefaults().MinSize
	tests := []struct {
		name string
		a    annotation.Annotation
		want coords.Size
	}{
		{"generic", &annotation.Highlight{Opacity: 0.4}, coords.Size{W: 24, H: 24}},
		{"text", &annotation.Text{Spans: []annotation.Span{{}}}, coords.Size{W: 60, H: 24}},
		{"comment", &annotation.Comment{}, coords.Size{W: 200, H: 120}},
		{"stamp", &annotation.Stamp{}, coords.Size{W: 120, H: 48}},
	}
	for _, tt := range tests {
		s := annotation.NewStore()
		b := tt.a.Common()
		b.ID, b.Page = "x", 1
		b.SetGeometry(coords.Rect{X: 100, Y: 100, W: 300, H: 300}, overlay)
		_ = s.Add(tt.a)
		r := NewResize(s, "x", BottomRight, overlay, sizes)
		if err := r.Begin(coords.Point{X: 400, Y: 400}); err != nil {
			t.Fatalf("%s: begin: %v", tt.name, err)
		}
		_ = r.Update(coords.Point{X: -1000, Y: -1000})
		got := rectOf(t, s, "x")
		if got.W != tt.want.W || got.H != tt.want.H || got.X != 100 || got.Y != 100 {
			t.Errorf("%s: shrunk to %+v, want %v", tt.name, got, tt.want)
		}
		_ = r.Update(coords.Point{X: 5000, Y: 5000})
		if got := rectOf(t, s, "x"); got.W != 500 || got.H != 700 {
			t.Errorf("%s: grew past overlay: %+v", tt.name, got)
		}
	}
}

func TestResize_MinimumNeverPushesPastOverlay(t *testing.T) {
	small := coords.Size{W: 300, H: 400}
	tests := []struct {
		name   string
		corner Corner
		rect   coords.Rect
		want   coords.Rect
	}{
		// {400,100,200,120} on 600x800 is {200,50,100,60} on 300x400
		{"bottom right at right edge", BottomRight, coords.Rect{X: 400, Y: 100, W: 200, H: 120}, coords.Rect{X: 200, Y: 50, W: 100, H: 120}},
		{"top left at left edge", TopLeft, coords.Rect{X: 0, Y: 100, W: 200, H: 120}, coords.Rect{X: 0, Y: 0, W: 100, H: 110}},
		{"bottom left at bottom edge", BottomLeft, coords.Rect{X: 200, Y: 680, W: 200, H: 120}, coords.Rect{X: 0, Y: 340, W: 200, H: 60}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := annotation.NewStore()
			c := &annotation.Comment{}
			c.ID, c.Page = "c", 1
			c.SetGeometry(tt.rect, overlay)
			if err := s.Add(c); err != nil {
				t.Fatalf("add: %v", err)
			}
			r := NewResize(s, "c", tt.corner, small, tool.DefaultDefaults().MinSize)
			if err := r.Begin(coords.Point{X: 10, Y: 10}); err != nil {
				t.Fatalf("begin: %v", err)
			}
			if err := r.Update(coords.Point{X: 10, Y: 10}); err != nil {
				t.Fatalf("update: %v", err)
			}
			got := rectOf(t, s, "c")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("rect (-want +got):\n%s", diff)
			}
			if got.X < 0 || got.Y < 0 || got.X+got.W > small.W || got.Y+got.H > small.H {
				t.Fatalf("%+v leaves the %vx%v overlay", got, small.W, small.H)
			}
		})
	}
}

func TestState_String(t *testing.T) {
	for s, want := range map[State]string{
		Idle:      "Idle",
		Discarded: "Discarded",
		State(99): "State(99)",
		State(-1): "State(-1)",
	} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}

func TestResize_TopLeftKeepsOppositeCorner(t *testing.T) {
	s := annotation.NewStore()
	addHighlight(t, s, coords.Rect{X: 100, Y: 100, W: 100, H: 100})
	r := NewResize(s, "h", TopLeft, overlay, tool.DefaultDefaults().MinSize)
	_ = r.Begin(coords.Point{X: 100, Y: 100})
	_ = r.Update(coords.Point{X: 50, Y: 150})
	if got := rectOf(t, s, "h"); got != (coords.Rect{X: 50, Y: 150, W: 150, H: 50}) {
		t.Fatalf("resized to %+v", got)
	}
	_ = r.Update(coords.Point{X: -500, Y: 400})
	if got := rectOf(t, s, "h"); got != (coords.Rect{X: 0, Y: 176, W: 200, H: 24}) {
		t.Fatalf("clamped to %+v", got)
	}
}

func TestFreehand_KeepsEveryPoint(t *testing.T) {
	s := annotation.NewStore()
	f := NewFreehand(s, overlay)
	proto := &annotation.Draw{Width: 2, Opacity: 1}
	proto.ID, proto.Page = "d", 2
	if err := f.Begin(coords.Point{X: 10, Y: 10}, proto); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("draft must be visible while drawing")
	}
	for _, p := range []coords.Point{{X: 11, Y: 10}, {X: 11, Y: 10}, {X: 700, Y: 900}} {
		_ = f.Update(p)
	}
	if st, _ := f.End(); st != Committed {
		t.Fatalf("freehand always commits, got %v", st)
	}
	a, _ := s.Get("d")
	want := []coords.Point{{X: 10, Y: 10}, {X: 11, Y: 10}, {X: 11, Y: 10}, {X: 600, Y: 800}}
	if diff := cmp.Diff(want, a.(*annotation.Draw).Points); diff != "" {
		t.Fatalf("points (-want +got):\n%s", diff)
	}
}

func TestFreehand_LiftSkipsRepeatedPoint(t *testing.T) {
	s := annotation.NewStore()
	f := NewFreehand(s, overlay)
	proto := &annotation.Draw{Width: 2, Opacity: 1}
	proto.ID, proto.Page = "d", 1
	if err := f.Begin(coords.Point{X: 10, Y: 10}, proto); err != nil {
		t.Fatalf("begin: %v", err)
	}
	_ = f.Update(coords.Point{X: 700, Y: 20})
	if err := f.Lift(coords.Point{X: 650, Y: 20}); err != nil {
		t.Fatalf("lift: %v", err)
	}
	_, _ = f.End()
	a, _ := s.Get("d")
	want := []coords.Point{{X: 10, Y: 10}, {X: 600, Y: 20}}
	if diff := cmp.Diff(want, a.(*annotation.Draw).Points); diff != "" {
		t.Fatalf("points (-want +got):\n%s", diff)
	}
	if err := f.Lift(coords.Point{}); err != ErrNotActive {
		t.Fatalf("lift after end: %v", err)
	}
}

func TestDragRect_AnyDirection(t *testing.T) {
	s := annotation.NewStore()
	d := NewDragRect(s, overlay)
	proto := &annotation.Highlight{Opacity: 0.4}
	proto.ID, proto.Page = "h", 1
	_ = d.Begin(coords.Point{X: 200, Y: 200}, proto)
	_ = d.Update(coords.Point{X: 150, Y: 120})
	if st, err := d.End(); st != Committed || err != nil {
		t.Fatalf("end: %v %v", st, err)
	}
	if got := rectOf(t, s, "h"); got != (coords.Rect{X: 150, Y: 120, W: 50, H: 80}) {
		t.Fatalf("rect %+v", got)
	}
}

func TestDragRect_DiscardsTinyMarks(t *testing.T) {
	tests := []struct {
		name  string
		proto annotation.Annotation
		to    coords.Point
	}{
		{"thin highlight", &annotation.Highlight{Opacity: 0.4}, coords.Point{X: 300, Y: 201.5}},
		{"narrow highlight", &annotation.Highlight{Opacity: 0.4}, coords.Point{X: 201, Y: 300}},
		{"flat rect", &annotation.Shape{ShapeType: annotation.ShapeRect, Style: annotation.ShapeStyle{Opacity: 1}}, coords.Point{X: 300, Y: 202}},
		{"short arrow", &annotation.Shape{ShapeType: annotation.ShapeArrow, Style: annotation.ShapeStyle{Opacity: 1}}, coords.Point{X: 201, Y: 201}},
	}
	for _, tt := range tests {
		s := annotation.NewStore()
		tt.proto.Common().ID = "x"
		tt.proto.Common().Page = 1
		d := NewDragRect(s, overlay)
		if err := d.Begin(coords.Point{X: 200, Y: 200}, tt.proto); err != nil {
			t.Fatalf("%s: begin: %v", tt.name, err)
		}
		_ = d.Update(tt.to)
		if st, _ := d.End(); st != Discarded {
			t.Errorf("%s: state %v", tt.name, st)
		}
		if s.Len() != 0 {
			t.Errorf("%s: draft left in store", tt.name)
		}
	}
}

func TestDragRect_LineKeepsEndpoints(t *testing.T) {
	s := annotation.NewStore()
	d := NewDragRect(s, overlay)
	proto := &annotation.Shape{ShapeType: annotation.ShapeLine, Style: annotation.ShapeStyle{Opacity: 1}}
	proto.ID, proto.Page = "l", 1
	_ = d.Begin(coords.Point{X: 300, Y: 100}, proto)
	_ = d.Update(coords.Point{X: 100, Y: 100})
	if st, _ := d.End(); st != Committed {
		t.Fatalf("horizontal line must commit, got %v", st)
	}
	a, _ := s.Get("l")
	if diff := cmp.Diff([]coords.Point{{X: 300, Y: 100}, {X: 100, Y: 100}}, a.(*annotation.Shape).Points); diff != "" {
		t.Fatalf("endpoints:\n%s", diff)
	}
}

func TestDraftSlot_PolygonLifecycle(t *testing.T) {
	var slot DraftSlot
	s := annotation.NewStore()
	style := annotation.ShapeStyle{Opacity: 1, StrokeWidth: 2}
	_ = slot.Click(1, annotation.ShapePolygon, coords.Point{X: 10, Y: 10}, overlay, style)
	_ = slot.Click(1, annotation.ShapePolygon, coords.Point{X: 100, Y: 10}, overlay, style)
	slot.Hover(coords.Point{X: 50, Y: 90})
	if n := len(slot.Current().Outline()); n != 3 {
		t.Fatalf("outline should include preview, got %d", n)
	}
	if _, ok, _ := slot.Finish(s, "p"); ok {
		t.Fatalf("two vertices must not finish")
	}
	// double-click: two clicks at the same spot then finish
	_ = slot.Click(1, annotation.ShapePolygon, coords.Point{X: 50, Y: 90}, overlay, style)
	_ = slot.Click(1, annotation.ShapePolygon, coords.Point{X: 50, Y: 90}, overlay, style)
	slot.Hover(coords.Point{X: 70, Y: 70})
	shape, ok, err := slot.Finish(s, "p")
	if err != nil || !ok {
		t.Fatalf("finish: %v %v", ok, err)
	}
	if diff := cmp.Diff([]coords.Point{{X: 10, Y: 10}, {X: 100, Y: 10}, {X: 50, Y: 90}}, shape.Points); diff != "" {
		t.Fatalf("preview leaked or duplicate kept:\n%s", diff)
	}
	if slot.Open() || s.Len() != 1 {
		t.Fatalf("slot not cleared or shape not stored")
	}
}

func TestDraftSlot_CancelAndTypeSwitch(t *testing.T) {
	var slot DraftSlot
	style := annotation.ShapeStyle{Opacity: 1}
	_ = slot.Click(1, annotation.ShapeCloud, coords.Point{X: 1, Y: 1}, overlay, style)
	_ = slot.Click(1, annotation.ShapePolygon, coords.Point{X: 2, Y: 2}, overlay, style)
	if c := slot.Current(); c.ShapeType != annotation.ShapePolygon || len(c.Points) != 1 {
		t.Fatalf("switching shape type must start a new draft: %+v", c)
	}
	slot.Cancel()
	if slot.Open() {
		t.Fatalf("cancel left a draft")
	}
	if err := slot.Click(1, annotation.ShapeRect, coords.Point{}, overlay, style); err == nil {
		t.Fatalf("rect is not multi-click")
	}
}
