package fonts

import (
	"bytes"
	"fmt"
	"sort"
	"time"
	"unicode/utf16"

	"golang.org/x/crypto/blake2b"

	"github.com/wudi/pdfmark/observability"
)

// Usage collects the glyphs drawn with one face so only those are
// embedded. Glyph ids double as CIDs (Identity-H).
type Usage struct {
	Face   *Face
	glyphs map[int][]rune
}

func NewUsage(f *Face) *Usage {
	return &Usage{Face: f, glyphs: make(map[int][]rune)}
}

// Add records shaped glyphs. The first text seen for a glyph wins.
func (u *Usage) Add(glyphs []Glyph) {
	for _, g := range glyphs {
		if r, ok := u.glyphs[g.ID]; !ok || (len(r) == 0 && len(g.Runes) > 0) {
			u.glyphs[g.ID] = g.Runes
		}
	}
}

func (u *Usage) Empty() bool { return len(u.glyphs) == 0 }

// GIDs returns the used glyph ids in ascending order.
func (u *Usage) GIDs() []int {
	out := make([]int, 0, len(u.glyphs))
	for gid := range u.glyphs {
		out = append(out, gid)
	}
	sort.Ints(out)
	return out
}

// WidthRun is one c [w1 w2 ...] entry of a CIDFont W array.
type WidthRun struct {
	First  int
	Widths []int
}

// Embedding is everything needed to write a Type0 font with one
// CIDFontType2 descendant.
type Embedding struct {
	BaseFont     string
	FontFile     []byte
	DefaultWidth int
	Widths       []WidthRun
	ToUnicode    []byte
	Ascent       float64
	Descent      float64
	CapHeight    float64
	ItalicAngle  float64
	BBox         [4]float64
	Flags        int
}

// Embedding subsets the face to the used glyphs. The subset tag is derived
// from the glyph set, so identical usage gives identical output.
func (u *Usage) Embedding(log observability.Logger) (*Embedding, error) {
	if log == nil {
		log = observability.NopLogger{}
	}
	gids := u.GIDs()
	used := make(map[int]bool, len(gids))
	for _, gid := range gids {
		used[gid] = true
	}
	start := time.Now()
	file, err := SubsetTrueType(u.Face.data, used)
	if err != nil {
		return nil, fmt.Errorf("subset %s: %w", u.Face.Name, err)
	}
	log.Debug("font subset",
		observability.String("font", u.Face.Name),
		observability.Int("glyphs", len(gids)),
		observability.Int("bytes", len(file)),
		observability.Duration(observability.MetricSubsettingTime, time.Since(start)))

	flags := 32 // nonsymbolic
	if u.Face.ItalicAngle != 0 {
		flags |= 64
	}
	return &Embedding{
		BaseFont:     subsetTag(gids) + "+" + u.Face.Name,
		FontFile:     file,
		DefaultWidth: u.Face.GlyphWidth(0),
		Widths:       u.widthRuns(gids),
		ToUnicode:    u.toUnicode(gids),
		Ascent:       u.Face.Ascent,
		Descent:      u.Face.Descent,
		CapHeight:    u.Face.CapHeight,
		ItalicAngle:  u.Face.ItalicAngle,
		BBox:         u.Face.BBox,
		Flags:        flags,
	}, nil
}

func (u *Usage) widthRuns(gids []int) []WidthRun {
	var runs []WidthRun
	for _, gid := range gids {
		w := u.Face.GlyphWidth(gid)
		if n := len(runs); n > 0 && runs[n-1].First+len(runs[n-1].Widths) == gid {
			runs[n-1].Widths = append(runs[n-1].Widths, w)
			continue
		}
		runs = append(runs, WidthRun{First: gid, Widths: []int{w}})
	}
	return runs
}

func subsetTag(gids []int) string {
	h, _ := blake2b.New256(nil)
	for _, gid := range gids {
		h.Write([]byte{byte(gid >> 8), byte(gid)})
	}
	sum := h.Sum(nil)
	tag := make([]byte, 6)
	for i := range tag {
		tag[i] = 'A' + sum[i]%26
	}
	return string(tag)
}

// toUnicode writes a ToUnicode CMap for the used glyphs with text.
func (u *Usage) toUnicode(gids []int) []byte {
	type entry struct {
		gid  int
		text []rune
	}
	var entries []entry
	for _, gid := range gids {
		if r := u.glyphs[gid]; len(r) > 0 {
			entries = append(entries, entry{gid, r})
		}
	}
	var b bytes.Buffer
	b.WriteString("/CIDInit /ProcSet findresource begin\n12 dict begin\nbegincmap\n")
	b.WriteString("/CIDSystemInfo << /Registry (Adobe) /Ordering (UCS) /Supplement 0 >> def\n")
	b.WriteString("/CMapName /Adobe-Identity-UCS def\n/CMapType 2 def\n")
	b.WriteString("1 begincodespacerange\n<0000> <FFFF>\nendcodespacerange\n")
	for len(entries) > 0 {
		n := min(len(entries), 100)
		fmt.Fprintf(&b, "%d beginbfchar\n", n)
		for _, e := range entries[:n] {
			fmt.Fprintf(&b, "<%04X> <", e.gid)
			for _, unit := range utf16.Encode(e.text) {
				fmt.Fprintf(&b, "%04X", unit)
			}
			b.WriteString(">\n")
		}
		b.WriteString("endbfchar\n")
		entries = entries[n:]
	}
	b.WriteString("endcmap\nCMapName currentdict /CMap defineresource pop\nend\nend\n")
	return b.Bytes()
}

// Encode returns the two-byte Identity-H codes for glyphs.
func Encode(glyphs []Glyph) []byte {
	out := make([]byte, 0, 2*len(glyphs))
	for _, g := range glyphs {
		out = append(out, byte(g.ID>>8), byte(g.ID))
	}
	return out
}

// DecodeWidth measures Identity-H codes with f, in glyph space.
func (f *Face) DecodeWidth(codes []byte) float64 {
	total := 0.0
	for i := 0; i+1 < len(codes); i += 2 {
		total += float64(f.GlyphWidth(int(codes[i])<<8 | int(codes[i+1])))
	}
	return total
}
