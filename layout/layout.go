// Package layout breaks styled text runs into lines that fit a box.
package layout

import (
	"strings"
	"unicode"

	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/coords"
	"github.com/wudi/pdfmark/fonts"
)

// Run is text in one face, size and color.
type Run struct {
	Text      string
	Face      *fonts.Face
	Size      float64
	Underline bool
	Color     annotation.Color
}

func (r *Run) width(text string) float64 {
	return r.Face.Advance(text) * r.Size / 1000
}

// Piece is the part of a run that landed on one line, already shaped.
type Piece struct {
	Run    *Run
	Text   string
	Glyphs []fonts.Glyph
	X      float64
	Width  float64
}

// Line is one laid out line. Ascent and Descent are positive distances
// from the baseline.
type Line struct {
	Pieces  []Piece
	Width   float64
	Ascent  float64
	Descent float64
	Height  float64
}

// Engine lays out runs within a fixed width.
type Engine struct {
	// Width is the available line width; zero disables wrapping.
	Width float64
	// LineHeight is a multiplier of the largest font size on a line.
	LineHeight float64
}

// Option defines a configuration option for the Engine.
type Option func(*Engine)

func WithWidth(w float64) Option {
	return func(e *Engine) { e.Width = w }
}

func WithLineHeight(h float64) Option {
	return func(e *Engine) { e.LineHeight = h }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{LineHeight: 1.2}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type token struct {
	run   *Run
	text  string
	width float64
	space bool
	nl    bool
}

func tokenize(runs []Run) []token {
	var out []token
	for i := range runs {
		r := &runs[i]
		if r.Face == nil || r.Size <= 0 {
			continue
		}
		text := r.Text
		for text != "" {
			switch {
			case text[0] == '\n':
				out = append(out, token{run: r, nl: true})
				text = text[1:]
			case text[0] == '\r':
				text = text[1:]
			default:
				isSpace := unicode.IsSpace(rune(text[0]))
				end := strings.IndexFunc(text, func(c rune) bool {
					return c == '\n' || c == '\r' || unicode.IsSpace(c) != isSpace
				})
				if end < 0 {
					end = len(text)
				}
				out = append(out, token{run: r, text: text[:end], width: r.width(text[:end]), space: isSpace})
				text = text[end:]
			}
		}
	}
	return out
}

// Lines lays out runs. Explicit newlines always break; words wrap at the
// engine width and a word wider than the whole line is split between
// characters. Spaces at a wrap point are dropped.
func (e *Engine) Lines(runs []Run) []Line {
	var (
		lines   []Line
		cur     []token
		width   float64
		last    *Run
		wrapped bool
		endNL   bool
	)
	flush := func(style *Run) {
		for len(cur) > 0 && cur[len(cur)-1].space {
			cur = cur[:len(cur)-1]
		}
		lines = append(lines, e.build(cur, style))
		cur, width = nil, 0
	}
	for _, tok := range tokenize(runs) {
		last, endNL = tok.run, tok.nl
		switch {
		case tok.nl:
			flush(tok.run)
			wrapped = false
			continue
		case tok.space:
			if len(cur) == 0 && wrapped {
				continue
			}
		case e.Width > 0 && width+tok.width > e.Width:
			if hasInk(cur) {
				flush(tok.run)
				wrapped = true
			}
			for tok.width > e.Width-width && len([]rune(tok.text)) > 1 {
				head, rest := split(tok, e.Width-width)
				if head.text == "" {
					if len(cur) > 0 {
						flush(tok.run)
						wrapped = true
						continue
					}
					head, rest = split(tok, head.run.width(string([]rune(tok.text)[:1])))
				}
				cur = append(cur, head)
				flush(tok.run)
				wrapped = true
				tok = rest
			}
		}
		cur = append(cur, tok)
		width += tok.width
	}
	if last != nil && (len(cur) > 0 || len(lines) == 0 || endNL) {
		flush(last)
	}
	return lines
}

func hasInk(toks []token) bool {
	for _, t := range toks {
		if !t.space {
			return true
		}
	}
	return false
}

// split cuts tok after as many runes as fit in avail.
func split(tok token, avail float64) (token, token) {
	runes := []rune(tok.text)
	n := 0
	for n < len(runes) && tok.run.width(string(runes[:n+1])) <= avail {
		n++
	}
	head := token{run: tok.run, text: string(runes[:n])}
	head.width = tok.run.width(head.text)
	rest := token{run: tok.run, text: string(runes[n:])}
	rest.width = tok.run.width(rest.text)
	return head, rest
}

func (e *Engine) build(toks []token, style *Run) Line {
	var line Line
	measure := func(r *Run) {
		line.Ascent = max(line.Ascent, r.Face.Ascent*r.Size/1000)
		line.Descent = max(line.Descent, -r.Face.Descent*r.Size/1000)
		line.Height = max(line.Height, r.Size*e.LineHeight)
	}
	x := 0.0
	for i := 0; i < len(toks); {
		j := i
		var sb strings.Builder
		for j < len(toks) && toks[j].run == toks[i].run {
			sb.WriteString(toks[j].text)
			j++
		}
		r := toks[i].run
		p := Piece{Run: r, Text: sb.String(), X: x}
		p.Glyphs = r.Face.Shape(p.Text)
		for _, g := range p.Glyphs {
			p.Width += g.XAdvance * r.Size / 1000
		}
		line.Pieces = append(line.Pieces, p)
		x += p.Width
		measure(r)
		i = j
	}
	line.Width = x
	if len(line.Pieces) == 0 && style != nil && style.Face != nil {
		measure(style)
	}
	return line
}

// Height returns the total height of lines.
func Height(lines []Line) float64 {
	total := 0.0
	for _, l := range lines {
		total += l.Height
	}
	return total
}

// Fit sizes a single line of the given advance (in thousandths of an em)
// to fill r, centred. x is where the line starts; dy is how far the
// baseline sits from the vertical centre of r, towards the bottom of the
// glyphs.
func Fit(face *fonts.Face, advance float64, r coords.Rect) (size, x, dy float64) {
	height := face.Ascent - face.Descent
	if height <= 0 {
		height = 1000
	}
	size = r.H * 0.8 * 1000 / height
	if advance > 0 {
		size = min(size, r.W*0.95*1000/advance)
	}
	x = r.X + (r.W-advance*size/1000)/2
	dy = (face.Ascent + face.Descent) / 2 * size / 1000
	return size, x, dy
}

// Advance sums the advances of glyphs in thousandths of an em.
func Advance(glyphs []fonts.Glyph) float64 {
	total := 0.0
	for _, g := range glyphs {
		total += g.XAdvance
	}
	return total
}
