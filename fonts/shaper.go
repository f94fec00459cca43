package fonts

import (
	"unicode"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

// Glyph is one shaped glyph. Advances and offsets are in glyph space
// (thousandths of an em). Runes holds the text the glyph stands for; it is
// empty for the second and later glyphs of a cluster.
type Glyph struct {
	ID       int
	Cluster  int
	XAdvance float64
	YAdvance float64
	XOffset  float64
	YOffset  float64
	Runes    []rune
}

// Shape shapes text with HarfBuzz rules. Newlines must be split off by the
// caller.
func (f *Face) Shape(text string) []Glyph {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	script := detectScript(runes)
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: scriptDirection(script),
		Face:      f.shape,
		// 1 em = 1000 units, so advances come back in glyph space.
		Size:     fixed.Int26_6(1000 * 64),
		Script:   script,
		Language: language.DefaultLanguage(),
	}

	f.mu.Lock()
	output := f.shaper.Shape(input)
	f.mu.Unlock()

	result := make([]Glyph, 0, len(output.Glyphs))
	for _, g := range output.Glyphs {
		result = append(result, Glyph{
			ID:       int(g.GlyphID),
			Cluster:  g.ClusterIndex,
			XAdvance: float64(g.XAdvance) / 64.0,
			YAdvance: float64(g.YAdvance) / 64.0,
			XOffset:  float64(g.XOffset) / 64.0,
			YOffset:  float64(g.YOffset) / 64.0,
		})
	}
	assignRunes(result, runes)
	return result
}

// assignRunes gives each cluster's text to the first glyph of the cluster.
func assignRunes(glyphs []Glyph, runes []rune) {
	starts := make(map[int]bool)
	for _, g := range glyphs {
		starts[g.Cluster] = true
	}
	end := func(cluster int) int {
		for i := cluster + 1; i < len(runes); i++ {
			if starts[i] {
				return i
			}
		}
		return len(runes)
	}
	seen := make(map[int]bool)
	for i := range glyphs {
		c := glyphs[i].Cluster
		if seen[c] || c < 0 || c >= len(runes) {
			continue
		}
		seen[c] = true
		glyphs[i].Runes = append([]rune(nil), runes[c:end(c)]...)
	}
}

// Advance returns the shaped width of text in glyph space.
func (f *Face) Advance(text string) float64 {
	total := 0.0
	for _, g := range f.Shape(text) {
		total += g.XAdvance
	}
	return total
}

func scriptDirection(script language.Script) di.Direction {
	switch script {
	case language.Arabic, language.Hebrew, language.Syriac, language.Thaana, language.Nko:
		return di.DirectionRTL
	default:
		return di.DirectionLTR
	}
}

func detectScript(runes []rune) language.Script {
	counts := make(map[language.Script]int)
	maxCount := 0
	bestScript := language.Latin

	for _, r := range runes {
		script := scriptFromRune(r)
		if script == language.Unknown {
			continue
		}
		counts[script]++
		if counts[script] > maxCount {
			maxCount = counts[script]
			bestScript = script
		}
	}
	return bestScript
}

func scriptFromRune(r rune) language.Script {
	switch {
	case unicode.Is(unicode.Arabic, r):
		return language.Arabic
	case unicode.Is(unicode.Hebrew, r):
		return language.Hebrew
	case unicode.Is(unicode.Latin, r):
		return language.Latin
	case unicode.Is(unicode.Cyrillic, r):
		return language.Cyrillic
	case unicode.Is(unicode.Greek, r):
		return language.Greek
	case unicode.Is(unicode.Thai, r):
		return language.Thai
	case unicode.Is(unicode.Devanagari, r):
		return language.Devanagari
	case unicode.Is(unicode.Bengali, r):
		return language.Bengali
	case unicode.Is(unicode.Gurmukhi, r):
		return language.Gurmukhi
	case unicode.Is(unicode.Gujarati, r):
		return language.Gujarati
	case unicode.Is(unicode.Oriya, r):
		return language.Oriya
	case unicode.Is(unicode.Tamil, r):
		return language.Tamil
	case unicode.Is(unicode.Telugu, r):
		return language.Telugu
	case unicode.Is(unicode.Kannada, r):
		return language.Kannada
	case unicode.Is(unicode.Malayalam, r):
		return language.Malayalam
	case unicode.Is(unicode.Sinhala, r):
		return language.Sinhala
	case unicode.Is(unicode.Lao, r):
		return language.Lao
	case unicode.Is(unicode.Tibetan, r):
		return language.Tibetan
	case unicode.Is(unicode.Myanmar, r):
		return language.Myanmar
	case unicode.Is(unicode.Khmer, r):
		return language.Khmer
	case unicode.Is(unicode.Han, r):
		return language.Han
	case unicode.Is(unicode.Hiragana, r):
		return language.Hiragana
	case unicode.Is(unicode.Katakana, r):
		return language.Katakana
	case unicode.Is(unicode.Hangul, r):
		return language.Hangul
	}
	return language.Unknown
}
