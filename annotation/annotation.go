package annotation

import (
	"strings"

	"github.com/google/uuid"

	"github.com/wudi/pdfmark/coords"
)

// NewID returns a fresh opaque annotation id.
func NewID() string { return uuid.NewString() }

// Base is the placement shared by every annotation kind. Geometry is in
// overlay pixels; OverlayW/OverlayH record the overlay size at the time the
// geometry was last set and are the denominator of every later transform.
type Base struct {
	ID       string  `json:"id"`
	Page     int     `json:"pageNumber"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	W        float64 `json:"width"`
	H        float64 `json:"height"`
	OverlayW float64 `json:"overlayWidth"`
	OverlayH float64 `json:"overlayHeight"`
}

func (b *Base) Common() *Base { return b }

func (b *Base) Rect() coords.Rect { return coords.Rect{X: b.X, Y: b.Y, W: b.W, H: b.H} }

func (b *Base) Overlay() coords.Size { return coords.Size{W: b.OverlayW, H: b.OverlayH} }

// SetGeometry updates the box and refreshes the overlay snapshot.
func (b *Base) SetGeometry(r coords.Rect, overlay coords.Size) {
	b.X, b.Y, b.W, b.H = r.X, r.Y, r.W, r.H
	b.OverlayW, b.OverlayH = overlay.W, overlay.H
}

// Annotation is implemented by the pointer types of every kind.
type Annotation interface {
	Kind() Kind
	Common() *Base
	Clone() Annotation
}

// Style is a fully resolved text style.
type Style struct {
	Bold       bool
	Italic     bool
	Underline  bool
	FontSize   float64
	Color      Color
	FontFamily string
}

// Span is a run of text sharing one style. Zero FontSize and nil Color fall
// back to the owning annotation's base style. Text may contain newlines.
type Span struct {
	Text      string  `json:"text"`
	Bold      bool    `json:"bold,omitempty"`
	Italic    bool    `json:"italic,omitempty"`
	Underline bool    `json:"underline,omitempty"`
	FontSize  float64 `json:"fontSize,omitempty"`
	Color     *Color  `json:"color,omitempty"`
}

// Resolve returns the effective style of s on top of base.
func (s Span) Resolve(base Style) Style {
	st := base
	st.Bold = s.Bold
	st.Italic = s.Italic
	st.Underline = s.Underline
	if s.FontSize > 0 {
		st.FontSize = s.FontSize
	}
	if s.Color != nil {
		st.Color = *s.Color
	}
	return st
}

// SpanFor builds a span carrying every field of st.
func SpanFor(text string, st Style) Span {
	c := st.Color
	return Span{Text: text, Bold: st.Bold, Italic: st.Italic, Underline: st.Underline, FontSize: st.FontSize, Color: &c}
}

// JoinSpans concatenates span texts.
func JoinSpans(spans []Span) string {
	var sb strings.Builder
	for _, s := range spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

func cloneSpans(in []Span) []Span {
	if in == nil {
		return nil
	}
	out := make([]Span, len(in))
	for i, s := range in {
		out[i] = s
		if s.Color != nil {
			c := *s.Color
			out[i].Color = &c
		}
	}
	return out
}

func clonePoints(in []coords.Point) []coords.Point {
	if in == nil {
		return nil
	}
	return append([]coords.Point(nil), in...)
}

// Image places an asset; the pixels belong to the asset.
type Image struct {
	Base
	AssetID string `json:"assetId"`
}

func (a *Image) Kind() Kind { return KindImage }
func (a *Image) Clone() Annotation {
	c := *a
	return &c
}

// Text is a rich text box.
type Text struct {
	Base
	Text       string  `json:"text"`
	Spans      []Span  `json:"spans"`
	FontSize   float64 `json:"fontSize,omitempty"`
	Color      *Color  `json:"color,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
}

func (a *Text) Kind() Kind { return KindText }
func (a *Text) Clone() Annotation {
	c := *a
	c.Spans = cloneSpans(a.Spans)
	if a.Color != nil {
		col := *a.Color
		c.Color = &col
	}
	return &c
}

// SetSpans replaces the spans and re-derives Text from them.
func (a *Text) SetSpans(spans []Span) {
	a.Spans = cloneSpans(spans)
	a.Text = JoinSpans(a.Spans)
}

// BaseStyle resolves the annotation's own style over the tool defaults.
func (a *Text) BaseStyle(defaults Style) Style {
	st := defaults
	st.Bold, st.Italic, st.Underline = false, false, false
	if a.FontSize > 0 {
		st.FontSize = a.FontSize
	}
	if a.Color != nil {
		st.Color = *a.Color
	}
	if a.FontFamily != "" {
		st.FontFamily = a.FontFamily
	}
	return st
}

// Signature renders the saved name or initials in a decorative font.
type Signature struct {
	Base
	Text   string `json:"text"`
	FontID string `json:"fontId"`
	Color  Color  `json:"color"`
}

func (a *Signature) Kind() Kind { return KindSignature }
func (a *Signature) Clone() Annotation {
	c := *a
	return &c
}

// Draw is a freehand path.
type Draw struct {
	Base
	Points  []coords.Point `json:"points"`
	Color   Color          `json:"color"`
	Width   float64        `json:"strokeWidth"`
	Opacity float64        `json:"opacity"`
}

func (a *Draw) Kind() Kind { return KindDraw }
func (a *Draw) Clone() Annotation {
	c := *a
	c.Points = clonePoints(a.Points)
	return &c
}

// Highlight is a translucent rectangle.
type Highlight struct {
	Base
	Color   Color   `json:"color"`
	Opacity float64 `json:"opacity"`
}

func (a *Highlight) Kind() Kind { return KindHighlight }
func (a *Highlight) Clone() Annotation {
	c := *a
	return &c
}

// ShapeStyle is the stroke and fill of a vector shape.
type ShapeStyle struct {
	Stroke      Color   `json:"strokeColor"`
	StrokeWidth float64 `json:"strokeWidth"`
	Fill        *Color  `json:"fillColor,omitempty"`
	Opacity     float64 `json:"opacity"`
}

// Shape is a vector shape. Box shapes use the Base rectangle; the others use
// Points and keep the Base rectangle as their bounds.
type Shape struct {
	Base
	ShapeType ShapeType      `json:"shapeType"`
	Points    []coords.Point `json:"points,omitempty"`
	Style     ShapeStyle     `json:"style"`
}

func (a *Shape) Kind() Kind { return KindShape }
func (a *Shape) Clone() Annotation {
	c := *a
	c.Points = clonePoints(a.Points)
	if a.Style.Fill != nil {
		f := *a.Style.Fill
		c.Style.Fill = &f
	}
	return &c
}

// Comment is a note box; the comment layer can be hidden as a whole.
type Comment struct {
	Base
	Text     string  `json:"text"`
	Color    Color   `json:"color"`
	FontSize float64 `json:"fontSize"`
}

func (a *Comment) Kind() Kind { return KindComment }
func (a *Comment) Clone() Annotation {
	c := *a
	return &c
}

// Stamp is a bold text label such as APPROVED.
type Stamp struct {
	Base
	Text     string  `json:"text"`
	Color    Color   `json:"color"`
	FontSize float64 `json:"fontSize"`
}

func (a *Stamp) Kind() Kind { return KindStamp }
func (a *Stamp) Clone() Annotation {
	c := *a
	return &c
}

var (
	_ Annotation = (*Image)(nil)
	_ Annotation = (*Text)(nil)
	_ Annotation = (*Signature)(nil)
	_ Annotation = (*Draw)(nil)
	_ Annotation = (*Highlight)(nil)
	_ Annotation = (*Shape)(nil)
	_ Annotation = (*Comment)(nil)
	_ Annotation = (*Stamp)(nil)
)
