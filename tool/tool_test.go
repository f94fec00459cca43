package tool

import (
	"strings"
	"testing"

	"github.com/wudi/pdfmark/annotation"
)

func TestConfig_CancelAndReset(t *testing.T) {
	c := NewConfig(DefaultDefaults())
	if !c.Use(Polygon) || c.Use(Polygon) {
		t.Fatalf("Use should report changes only")
	}
	c.Defaults.Text.FontSize = 40
	c.PendingAsset = "asset"
	c.Cancel()
	if c.Active != Select || c.PendingAsset != "" {
		t.Fatalf("cancel did not return to select: %+v", c)
	}
	if c.Defaults.Text.FontSize != 40 {
		t.Fatalf("cancel must keep defaults")
	}
	c.Reset()
	if c.Defaults.Text.FontSize != 16 {
		t.Fatalf("reset did not restore defaults: %v", c.Defaults.Text.FontSize)
	}
}

func TestParse(t *testing.T) {
	for i, n := range names {
		k, err := Parse(n)
		if err != nil || int(k) != i || k.String() != n {
			t.Fatalf("Parse(%q) = %v, %v", n, k, err)
		}
	}
	if _, err := Parse("lasso"); err == nil {
		t.Fatalf("expected error")
	}
	if st, ok := Cloud.ShapeType(); !ok || st != annotation.ShapeCloud {
		t.Fatalf("cloud shape type = %v", st)
	}
	if _, ok := Text.ShapeType(); ok {
		t.Fatalf("text is not a shape tool")
	}
}

func TestLoadDefaults(t *testing.T) {
	src := `
text:
  font_size: 20
  color: "#ff0000"
highlight:
  opacity: 0.25
`
	d, err := LoadDefaults(strings.NewReader(src))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if d.Text.FontSize != 20 || d.Text.Color != (annotation.Color{R: 255}) {
		t.Fatalf("text defaults not applied: %+v", d.Text)
	}
	if d.Highlight.Opacity != 0.25 || d.Highlight.Color != annotation.Yellow {
		t.Fatalf("highlight defaults: %+v", d.Highlight)
	}
	if d.Draw.Width != 2 {
		t.Fatalf("unset keys must keep built-in values")
	}
	if _, err := LoadDefaults(strings.NewReader("draw:\n  opacity: 3\n")); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := LoadDefaults(strings.NewReader("bogus: 1\n")); err == nil {
		t.Fatalf("expected unknown key error")
	}
	if d, err := LoadDefaults(strings.NewReader("")); err != nil || d.Text.FontSize != 16 {
		t.Fatalf("empty document should yield defaults: %v", err)
	}
}
