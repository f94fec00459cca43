// Package fonts loads TrueType faces, shapes text with them and prepares
// the data needed to embed the used glyphs as Identity-H CID fonts.
package fonts

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"sync"

	gotext "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/shaping"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Face is a parsed TrueType face. Metrics are in thousandths of an em,
// the unit of PDF glyph space.
type Face struct {
	Name        string
	Ascent      float64
	Descent     float64
	CapHeight   float64
	ItalicAngle float64
	BBox        [4]float64

	data   []byte
	sf     *sfnt.Font
	upem   sfnt.Units
	widths map[int]int

	mu     sync.Mutex
	shape  *gotext.Face
	shaper shaping.HarfbuzzShaper
}

// Parse parses a TrueType/OpenType font and extracts its metrics. name is
// used when the font carries no PostScript name.
func Parse(name string, data []byte) (*Face, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("truetype font data is empty")
	}
	font, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse truetype: %w", err)
	}
	unitsPerEm := font.UnitsPerEm()
	if unitsPerEm == 0 {
		return nil, fmt.Errorf("invalid unitsPerEm")
	}
	shapeFace, err := gotext.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse truetype for shaping: %w", err)
	}
	buf := &sfnt.Buffer{}
	ppem := fixed.Int26_6(unitsPerEm << 6)

	baseName := strings.TrimSpace(name)
	if ps, _ := font.Name(buf, sfnt.NameIDPostScript); len(ps) > 0 {
		baseName = ps
	}
	if baseName == "" {
		baseName = "CustomTT"
	}

	metrics, _ := font.Metrics(buf, ppem, xfont.HintingNone)
	bounds, _ := font.Bounds(buf, ppem, xfont.HintingNone)
	f := &Face{
		Name:      sanitizeName(baseName),
		Ascent:    scaleFixed(metrics.Ascent, unitsPerEm),
		Descent:   -scaleFixed(metrics.Descent, unitsPerEm),
		CapHeight: scaleFixed(metrics.CapHeight, unitsPerEm),
		BBox: [4]float64{
			scaleFixed(bounds.Min.X, unitsPerEm),
			-scaleFixed(bounds.Max.Y, unitsPerEm),
			scaleFixed(bounds.Max.X, unitsPerEm),
			-scaleFixed(bounds.Min.Y, unitsPerEm),
		},
		data:   data,
		sf:     font,
		upem:   unitsPerEm,
		widths: glyphWidths(font, buf, unitsPerEm, ppem),
		shape:  shapeFace,
	}
	if f.CapHeight == 0 {
		f.CapHeight = f.Ascent
	}
	if post := font.PostTable(); post != nil {
		f.ItalicAngle = post.ItalicAngle
	}
	return f, nil
}

// Data returns the complete font program.
func (f *Face) Data() []byte { return f.data }

// GlyphWidth returns the advance of gid in glyph space.
func (f *Face) GlyphWidth(gid int) int {
	if w, ok := f.widths[gid]; ok {
		return w
	}
	return f.widths[0]
}

// GlyphIndex maps r through the font's cmap. Unmapped runes give 0.
func (f *Face) GlyphIndex(r rune) int {
	var buf sfnt.Buffer
	gid, err := f.sf.GlyphIndex(&buf, r)
	if err != nil {
		return 0
	}
	return int(gid)
}

// Covers reports whether every non-space rune of text has a glyph.
func (f *Face) Covers(text string) bool {
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			continue
		}
		if f.GlyphIndex(r) == 0 {
			return false
		}
	}
	return true
}

func glyphWidths(font *sfnt.Font, buf *sfnt.Buffer, unitsPerEm sfnt.Units, ppem fixed.Int26_6) map[int]int {
	glyphs := font.NumGlyphs()
	widths := make(map[int]int, glyphs)
	for i := 0; i < glyphs; i++ {
		adv, err := font.GlyphAdvance(buf, sfnt.GlyphIndex(i), ppem, xfont.HintingNone)
		if err != nil {
			continue
		}
		widths[i] = int(math.Round(scaleFixed(adv, unitsPerEm)))
	}
	return widths
}

func scaleFixed(val fixed.Int26_6, unitsPerEm sfnt.Units) float64 {
	return float64(val) * 1000.0 / (64.0 * float64(unitsPerEm))
}

func sanitizeName(n string) string {
	var b strings.Builder
	for _, r := range n {
		if r > ' ' && r < 0x7f && !strings.ContainsRune("()<>[]{}/%#", r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "CustomTT"
	}
	return b.String()
}
