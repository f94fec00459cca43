package richtext

import (
	"strings"


	"github.com/wudi/pdfmark/annotation"
)

// run is one emitted piece of text with its resolved style. leaf is nil for
// the newline implied by a block boundary.
type run struct {
	text  string
	style annotation.Style
	leaf  *Node
	start int
}

// flatten walks root in document order. Block boundaries become newlines
// the same way a contenteditable region lays them out: a block starts on a
// fresh line and content after a block starts on a fresh line.
func flatten(root *Node, base annotation.Style) []run {
	var f flattener
	f.walk(root, base)
	return f.runs
}

type flattener struct {
	runs      []run
	pos       int
	lastNL    bool
	pendingNL bool
	styleNL   annotation.Style
}

func (f *flattener) emit(text string, st annotation.Style, leaf *Node) {
	f.runs = append(f.runs, run{text: text, style: st, leaf: leaf, start: f.pos})
	f.pos += len([]rune(text))
	f.lastNL = strings.HasSuffix(text, "\n")
}

func (f *flattener) lineBoundary(st annotation.Style) {
	if f.pos > 0 && !f.lastNL {
		f.emit("\n", st, nil)
	}
}

func (f *flattener) flush() {
	if f.pendingNL {
		f.pendingNL = false
		f.lineBoundary(f.styleNL)
	}
}

func (f *flattener) walk(n *Node, st annotation.Style) {
	if n == nil {
		return
	}
	switch n.Kind {
	case TextNode:
		if n.Text == "" {
			return
		}
		f.flush()
		f.emit(n.Text, st, n)
	case BreakNode:
		f.flush()
		f.emit("\n", st, n)
	default:
		st = n.Style.Apply(st)
		if n.Block {
			f.pendingNL = false
			f.lineBoundary(st)
		}
		for _, c := range n.Children {
			f.walk(c, st)
		}
		if n.Block {
			f.pendingNL = true
			f.styleNL = st
		}
	}
}

// Serialize converts the region into spans. Each span carries its fully
// resolved style; adjacent runs with the same style are merged and line
// breaks stay inside span text. An empty region yields exactly one empty
// span with the base style.
func Serialize(root *Node, base annotation.Style) []annotation.Span {
	var spans []annotation.Span
	var cur annotation.Style
	var sb strings.Builder
	flushSpan := func() {
		if sb.Len() == 0 {
			return
		}
		spans = append(spans, annotation.SpanFor(sb.String(), cur))
		sb.Reset()
	}
	for _, r := range flatten(root, base) {
		if sb.Len() > 0 && !sameStyle(r.style, cur) {
			flushSpan()
		}
		cur = r.style
		sb.WriteString(r.text)
	}
	flushSpan()
	if len(spans) == 0 {
		spans = []annotation.Span{annotation.SpanFor("", base)}
	}
	return spans
}

func sameStyle(a, b annotation.Style) bool {
	return a.Bold == b.Bold && a.Italic == b.Italic && a.Underline == b.Underline &&
		a.FontSize == b.FontSize && a.Color == b.Color
}

// Render is the inverse of Serialize: one element per span with every style
// field assigned directly, newlines turned into break nodes.
func Render(spans []annotation.Span, base annotation.Style) *Node {
	root := Element(Patch{})
	for _, s := range spans {
		el := Element(Full(s.Resolve(base)))
		lines := strings.Split(s.Text, "\n")
		for i, line := range lines {
			if i > 0 {
				el.Children = append(el.Children, Break())
			}
			if line != "" {
				el.Children = append(el.Children, Leaf(line))
			}
		}
		root.Children = append(root.Children, el)
	}
	return root
}
