package tool

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/wudi/pdfmark/annotation"
)

// TextDefaults is the base style of new text annotations.
type TextDefaults struct {
	FontSize   float64          `yaml:"font_size"`
	Color      annotation.Color `yaml:"color"`
	FontFamily string           `yaml:"font_family"`
	Bold       bool             `yaml:"bold"`
	Italic     bool             `yaml:"italic"`
	Underline  bool             `yaml:"underline"`
}

// Style returns the defaults as a resolved style.
func (t TextDefaults) Style() annotation.Style {
	return annotation.Style{
		Bold:       t.Bold,
		Italic:     t.Italic,
		Underline:  t.Underline,
		FontSize:   t.FontSize,
		Color:      t.Color,
		FontFamily: t.FontFamily,
	}
}

type StrokeDefaults struct {
	Color   annotation.Color `yaml:"color"`
	Width   float64          `yaml:"width"`
	Opacity float64          `yaml:"opacity"`
}

type HighlightDefaults struct {
	Color   annotation.Color `yaml:"color"`
	Opacity float64          `yaml:"opacity"`
}

type ShapeDefaults struct {
	Stroke      annotation.Color  `yaml:"stroke"`
	StrokeWidth float64           `yaml:"stroke_width"`
	Fill        *annotation.Color `yaml:"fill"`
	Opacity     float64           `yaml:"opacity"`
}

type NoteDefaults struct {
	Text     string           `yaml:"text"`
	Color    annotation.Color `yaml:"color"`
	FontSize float64          `yaml:"font_size"`
	Width    float64          `yaml:"width"`
	Height   float64          `yaml:"height"`
}

// Sizes are the minimum resize dimensions per kind, in overlay pixels.
type Sizes struct {
	Generic       float64 `yaml:"generic"`
	Text          float64 `yaml:"text"`
	CommentWidth  float64 `yaml:"comment_width"`
	CommentHeight float64 `yaml:"comment_height"`
	StampWidth    float64 `yaml:"stamp_width"`
	StampHeight   float64 `yaml:"stamp_height"`
}

// Defaults groups the defaults of every tool.
type Defaults struct {
	Text      TextDefaults      `yaml:"text"`
	Draw      StrokeDefaults    `yaml:"draw"`
	Highlight HighlightDefaults `yaml:"highlight"`
	Shape     ShapeDefaults     `yaml:"shape"`
	Comment   NoteDefaults      `yaml:"comment"`
	Stamp     NoteDefaults      `yaml:"stamp"`
	MinSize   Sizes             `yaml:"min_size"`
}

// DefaultDefaults are the built-in tool defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Text:      TextDefaults{FontSize: 16, Color: annotation.Black, FontFamily: "sans"},
		Draw:      StrokeDefaults{Color: annotation.MustParseColor("#1d4ed8"), Width: 2, Opacity: 1},
		Highlight: HighlightDefaults{Color: annotation.Yellow, Opacity: 0.4},
		Shape:     ShapeDefaults{Stroke: annotation.Red, StrokeWidth: 2, Opacity: 1},
		Comment:   NoteDefaults{Color: annotation.MustParseColor("#fde68a"), FontSize: 12, Width: 200, Height: 120},
		Stamp:     NoteDefaults{Text: "APPROVED", Color: annotation.Red, FontSize: 24, Width: 200, Height: 60},
		MinSize:   Sizes{Generic: 24, Text: 60, CommentWidth: 200, CommentHeight: 120, StampWidth: 120, StampHeight: 48},
	}
}

// LoadDefaults reads YAML over the built-in defaults; keys left out keep
// their built-in value.
func LoadDefaults(r io.Reader) (Defaults, error) {
	d := DefaultDefaults()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil && err != io.EOF {
		return Defaults{}, fmt.Errorf("tool defaults: %w", err)
	}
	if err := d.Validate(); err != nil {
		return Defaults{}, err
	}
	return d, nil
}

// Validate rejects values no gesture could work with.
func (d Defaults) Validate() error {
	if d.Text.FontSize <= 0 || d.Comment.FontSize <= 0 || d.Stamp.FontSize <= 0 {
		return fmt.Errorf("tool defaults: font sizes must be positive")
	}
	for _, o := range []float64{d.Draw.Opacity, d.Highlight.Opacity, d.Shape.Opacity} {
		if o < 0 || o > 1 {
			return fmt.Errorf("tool defaults: opacity %v outside [0,1]", o)
		}
	}
	if d.Draw.Width <= 0 || d.Shape.StrokeWidth < 0 {
		return fmt.Errorf("tool defaults: stroke widths must be positive")
	}
	m := d.MinSize
	if m.Generic <= 0 || m.Text <= 0 || m.CommentWidth <= 0 || m.CommentHeight <= 0 || m.StampWidth <= 0 || m.StampHeight <= 0 {
		return fmt.Errorf("tool defaults: minimum sizes must be positive")
	}
	return nil
}
