package fonts

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
)

func TestParseFamily(t *testing.T) {
	tests := map[string]Family{
		"":                Sans,
		"Helvetica":       Sans,
		"sans-serif":      Sans,
		"Times New Roman": Serif,
		"serif":           Serif,
		"Courier":         Mono,
		"monospace":       Mono,
		"Comic":           Sans,
	}
	for in, want := range tests {
		if got := ParseFamily(in); got != want {
			t.Errorf("ParseFamily(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRegistry_SharesFaces(t *testing.T) {
	r := NewRegistry()
	a, err := r.Face(Sans, true, false)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := r.Face(Sans, true, false)
	if a != b {
		t.Fatalf("face parsed twice")
	}
	if a.Name != "GoBold" {
		t.Fatalf("bold sans = %q", a.Name)
	}
	mono, _ := r.Face(Mono, false, true)
	if mono.Name != "GoMonoItalic" {
		t.Fatalf("mono italic = %q", mono.Name)
	}
}

func TestSignatureFontFor_Deterministic(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("user-%d", i)
		id := SignatureFontFor(key)
		if id != SignatureFontFor(key) {
			t.Fatalf("non deterministic pick for %q", key)
		}
		seen[id] = true
	}
	if len(seen) < 2 {
		t.Fatalf("picks never vary: %v", seen)
	}
	r := NewRegistry()
	f1, err := r.Signature("unknown-id")
	if err != nil {
		t.Fatal(err)
	}
	f2, _ := r.Signature(SignatureFontFor("unknown-id"))
	if f1 != f2 {
		t.Fatalf("unknown id must map onto a known face")
	}
}

func regular(t *testing.T) *Face {
	t.Helper()
	f, err := Parse("GoRegular", goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestParse_Metrics(t *testing.T) {
	f := regular(t)
	if f.Ascent <= 0 || f.Descent >= 0 {
		t.Fatalf("ascent %v descent %v", f.Ascent, f.Descent)
	}
	if f.GlyphWidth(f.GlyphIndex('M')) <= f.GlyphWidth(f.GlyphIndex('i')) {
		t.Fatalf("M should be wider than i")
	}
	if !f.Covers("Hello, world") || f.Covers("世") {
		t.Fatalf("coverage check wrong")
	}
	if _, err := Parse("x", nil); err == nil {
		t.Fatalf("expected error for empty data")
	}
}

func TestShape(t *testing.T) {
	f := regular(t)
	glyphs := f.Shape("Hello")
	if len(glyphs) != 5 {
		t.Fatalf("got %d glyphs", len(glyphs))
	}
	var text []rune
	for _, g := range glyphs {
		text = append(text, g.Runes...)
		if g.XAdvance <= 0 {
			t.Fatalf("glyph %+v has no advance", g)
		}
	}
	if string(text) != "Hello" {
		t.Fatalf("runes = %q", string(text))
	}
	if glyphs[0].ID != f.GlyphIndex('H') {
		t.Fatalf("first glyph %d, want %d", glyphs[0].ID, f.GlyphIndex('H'))
	}
	if adv := f.Advance("Hello"); adv <= 0 || adv >= 5000 {
		t.Fatalf("advance = %v", adv)
	}
	if f.Shape("") != nil {
		t.Fatalf("empty text should shape to nothing")
	}
}

func TestUsageEmbedding(t *testing.T) {
	f := regular(t)
	u := NewUsage(f)
	u.Add(f.Shape("Hi"))
	u.Add(f.Shape("iH"))
	emb, err := u.Embedding(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(emb.BaseFont, "+GoRegular") || len(emb.BaseFont) != len("ABCDEF+GoRegular") {
		t.Fatalf("base font = %q", emb.BaseFont)
	}
	if len(emb.FontFile) >= len(goregular.TTF) {
		t.Fatalf("subset not smaller: %d >= %d", len(emb.FontFile), len(goregular.TTF))
	}
	hGID := f.GlyphIndex('H')
	cmap := string(emb.ToUnicode)
	if !strings.Contains(cmap, fmt.Sprintf("<%04X> <0048>", hGID)) {
		t.Fatalf("ToUnicode lacks H mapping:\n%s", cmap)
	}
	var total int
	for _, run := range emb.Widths {
		total += len(run.Widths)
	}
	if total != 2 {
		t.Fatalf("expected widths for 2 glyphs, got %d", total)
	}

	sub, err := sfnt.Parse(emb.FontFile)
	if err != nil {
		t.Fatalf("subset does not parse: %v", err)
	}
	var buf sfnt.Buffer
	gid, err := sub.GlyphIndex(&buf, 'H')
	if err != nil || int(gid) != hGID {
		t.Fatalf("glyph id changed: %d (%v), want %d", gid, err, hGID)
	}
	if _, err := sub.LoadGlyph(&buf, gid, 1000<<6, nil); err != nil {
		t.Fatalf("subset glyph outline: %v", err)
	}
}

func TestSubsetTrueType_LongLoca(t *testing.T) {
	out, err := SubsetTrueType(goregular.TTF, map[int]bool{10: true})
	if err != nil {
		t.Fatal(err)
	}
	p := &ttParser{data: out}
	if err := p.parseDirectory(); err != nil {
		t.Fatal(err)
	}
	head, err := p.table("head")
	if err != nil {
		t.Fatal(err)
	}
	if format := binary.BigEndian.Uint16(head[50:]); format != 1 {
		t.Fatalf("indexToLocFormat = %d, want 1", format)
	}
	if checksum(out) != 0xB1B0AFBA {
		t.Fatalf("file checksum = %#x", checksum(out))
	}
	if bytes.Equal(out, goregular.TTF) {
		t.Fatalf("font unchanged")
	}
}

func TestEncodeDecodeWidth(t *testing.T) {
	f := regular(t)
	glyphs := f.Shape("AV")
	codes := Encode(glyphs)
	if len(codes) != 4 {
		t.Fatalf("codes = % X", codes)
	}
	want := float64(f.GlyphWidth(glyphs[0].ID) + f.GlyphWidth(glyphs[1].ID))
	if got := f.DecodeWidth(codes); got != want {
		t.Fatalf("DecodeWidth = %v, want %v", got, want)
	}
}
