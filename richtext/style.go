package richtext

import (
	"errors"
	"fmt"

	"github.com/wudi/pdfmark/annotation"
)

// Range is a selection in rune offsets over the region's plain text.
type Range struct{ Start, End int }

func (r Range) Collapsed() bool { return r.Start == r.End }

func (r Range) normalized() Range {
	if r.End < r.Start {
		r.Start, r.End = r.End, r.Start
	}
	return r
}

var ErrCollapsed = errors.New("richtext: selection is collapsed")

// ApplyStyle wraps the selected part of the region in a new element
// carrying patch. Leaves crossing the selection boundary are split; nothing
// is merged. The input tree is not modified.
func ApplyStyle(root *Node, sel Range, patch Patch) (*Node, error) {
	sel = sel.normalized()
	if sel.Collapsed() {
		return nil, ErrCollapsed
	}
	total := root.Len()
	if sel.Start < 0 || sel.End > total {
		return nil, fmt.Errorf("richtext: selection %d..%d outside region of %d", sel.Start, sel.End, total)
	}
	out := root.Clone()
	starts := make(map[*Node]int)
	for _, r := range flatten(out, annotation.Style{}) {
		if r.leaf != nil {
			starts[r.leaf] = r.start
		}
	}
	splitChildren(out, starts, sel, patch)
	return out, nil
}

func splitChildren(n *Node, starts map[*Node]int, sel Range, patch Patch) {
	var next []*Node
	for _, c := range n.Children {
		if c.Kind == ElementNode {
			splitChildren(c, starts, sel, patch)
			next = append(next, c)
			continue
		}
		start, ok := starts[c]
		if !ok {
			next = append(next, c)
			continue
		}
		next = append(next, splitLeaf(c, start, sel, patch)...)
	}
	n.Children = next
}

func splitLeaf(leaf *Node, start int, sel Range, patch Patch) []*Node {
	if leaf.Kind == BreakNode {
		if start >= sel.Start && start < sel.End {
			return []*Node{Element(patch, leaf)}
		}
		return []*Node{leaf}
	}
	runes := []rune(leaf.Text)
	end := start + len(runes)
	if end <= sel.Start || start >= sel.End {
		return []*Node{leaf}
	}
	a := max(sel.Start, start) - start
	b := min(sel.End, end) - start
	var out []*Node
	if a > 0 {
		out = append(out, Leaf(string(runes[:a])))
	}
	out = append(out, Element(patch, Leaf(string(runes[a:b]))))
	if b < len(runes) {
		out = append(out, Leaf(string(runes[b:])))
	}
	return out
}

// Attr is a toggleable style flag.
type Attr int

const (
	AttrBold Attr = iota
	AttrItalic
	AttrUnderline
)

func (a Attr) get(st annotation.Style) bool {
	switch a {
	case AttrBold:
		return st.Bold
	case AttrItalic:
		return st.Italic
	}
	return st.Underline
}

func (a Attr) Patch(on bool) Patch {
	switch a {
	case AttrBold:
		return Patch{Bold: Bool(on)}
	case AttrItalic:
		return Patch{Italic: Bool(on)}
	}
	return Patch{Underline: Bool(on)}
}

// Toggle returns the patch a toggle of attr produces for sel: the flag is
// turned on unless every selected character already has it.
func Toggle(root *Node, base annotation.Style, sel Range, attr Attr) Patch {
	sel = sel.normalized()
	all := true
	for _, r := range flatten(root, base) {
		n := len([]rune(r.text))
		if r.start+n <= sel.Start || r.start >= sel.End || r.text == "\n" {
			continue
		}
		if !attr.get(r.style) {
			all = false
			break
		}
	}
	return attr.Patch(!all)
}

// StyleChange is the outcome of a style action under the selection rules:
// with a real selection the region is restyled, otherwise only the default
// style for new content changes.
type StyleChange struct {
	Region   *Node
	Spans    []annotation.Span
	Defaults annotation.Style
	// Restyled is true when the selection was styled, false when only
	// Defaults changed.
	Restyled bool
}

// ChangeStyle applies patch following the selection rules. sel may be nil
// when nothing is selected. defaults is the style new content gets: the
// selected annotation's base style or the tool defaults.
func ChangeStyle(root *Node, sel *Range, patch Patch, defaults annotation.Style) (StyleChange, error) {
	if sel == nil || sel.Collapsed() || root == nil {
		return StyleChange{Region: root, Defaults: patch.Apply(defaults)}, nil
	}
	next, err := ApplyStyle(root, *sel, patch)
	if err != nil {
		return StyleChange{}, err
	}
	return StyleChange{
		Region:   next,
		Spans:    Serialize(next, defaults),
		Defaults: defaults,
		Restyled: true,
	}, nil
}
