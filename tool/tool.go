package tool

import (
	"fmt"

	"github.com/wudi/pdfmark/annotation"
)

// Kind is the tool selected in the palette. Exactly one is active.
type Kind int

const (
	Select Kind = iota
	Text
	Image
	Signature
	Draw
	Highlight
	Rect
	Ellipse
	Line
	Arrow
	Polygon
	Cloud
	Comment
	Stamp
)

var names = []string{"select", "text", "image", "signature", "draw", "highlight", "rect", "ellipse", "line", "arrow", "polygon", "cloud", "comment", "stamp"}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(names) {
		return names[k]
	}
	return fmt.Sprintf("tool(%d)", int(k))
}

// Parse returns the tool named s.
func Parse(s string) (Kind, error) {
	for i, n := range names {
		if n == s {
			return Kind(i), nil
		}
	}
	return Select, fmt.Errorf("unknown tool %q", s)
}

// ShapeType returns the shape drawn by a shape tool.
func (k Kind) ShapeType() (annotation.ShapeType, bool) {
	switch k {
	case Rect:
		return annotation.ShapeRect, true
	case Ellipse:
		return annotation.ShapeEllipse, true
	case Line:
		return annotation.ShapeLine, true
	case Arrow:
		return annotation.ShapeArrow, true
	case Polygon:
		return annotation.ShapePolygon, true
	case Cloud:
		return annotation.ShapeCloud, true
	}
	return "", false
}

// Config is the per-session "current tool configuration": the active tool
// and the defaults applied to the next annotation created. It is owned by
// the editor and reset on every document load.
type Config struct {
	Active   Kind
	Defaults Defaults

	// PendingAsset is the image chosen for the Image tool, if any.
	PendingAsset string

	initial Defaults
}

// NewConfig starts with the Select tool and the given defaults.
func NewConfig(d Defaults) *Config {
	return &Config{Active: Select, Defaults: d, initial: d}
}

// Use activates k. It reports whether the tool actually changed.
func (c *Config) Use(k Kind) bool {
	if c.Active == k {
		return false
	}
	c.Active = k
	return true
}

// Cancel returns to the neutral Select tool.
func (c *Config) Cancel() {
	c.Active = Select
	c.PendingAsset = ""
}

// Reset restores the tool and defaults the config was created with.
func (c *Config) Reset() {
	c.Active = Select
	c.PendingAsset = ""
	c.Defaults = c.initial
}
