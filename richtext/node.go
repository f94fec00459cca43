// Package richtext converts between the styled tree of an editable text
// region and the ordered style-tagged spans stored on text annotations.
// The tree is toolkit independent: element nodes carry style overrides,
// leaves carry text or a line break.
package richtext

import (
	"github.com/wudi/pdfmark/annotation"
)

type NodeKind int

const (
	ElementNode NodeKind = iota
	TextNode
	BreakNode
)

// Patch is a partial style. Nil fields inherit from the enclosing element.
type Patch struct {
	Bold      *bool
	Italic    *bool
	Underline *bool
	FontSize  *float64
	Color     *annotation.Color
}

// Apply returns st with the fields set in p overridden.
func (p Patch) Apply(st annotation.Style) annotation.Style {
	if p.Bold != nil {
		st.Bold = *p.Bold
	}
	if p.Italic != nil {
		st.Italic = *p.Italic
	}
	if p.Underline != nil {
		st.Underline = *p.Underline
	}
	if p.FontSize != nil && *p.FontSize > 0 {
		st.FontSize = *p.FontSize
	}
	if p.Color != nil {
		st.Color = *p.Color
	}
	return st
}

// Merge returns p with the fields set in o layered on top.
func (p Patch) Merge(o Patch) Patch {
	if o.Bold != nil {
		p.Bold = o.Bold
	}
	if o.Italic != nil {
		p.Italic = o.Italic
	}
	if o.Underline != nil {
		p.Underline = o.Underline
	}
	if o.FontSize != nil {
		p.FontSize = o.FontSize
	}
	if o.Color != nil {
		p.Color = o.Color
	}
	return p
}

func (p Patch) IsEmpty() bool {
	return p.Bold == nil && p.Italic == nil && p.Underline == nil && p.FontSize == nil && p.Color == nil
}

// Full returns a patch that pins every field of st.
func Full(st annotation.Style) Patch {
	b, i, u, size, c := st.Bold, st.Italic, st.Underline, st.FontSize, st.Color
	return Patch{Bold: &b, Italic: &i, Underline: &u, FontSize: &size, Color: &c}
}

func Bool(v bool) *bool                          { return &v }
func Size(v float64) *float64                    { return &v }
func Color(c annotation.Color) *annotation.Color { return &c }

// Node is one node of the editable region.
type Node struct {
	Kind  NodeKind
	Text  string
	Style Patch
	// Block elements start on a new line and end one, like <div> or <p>.
	Block    bool
	Children []*Node
}

func Element(style Patch, children ...*Node) *Node {
	return &Node{Kind: ElementNode, Style: style, Children: children}
}

func Block(children ...*Node) *Node {
	return &Node{Kind: ElementNode, Block: true, Children: children}
}

func Leaf(text string) *Node { return &Node{Kind: TextNode, Text: text} }

func Break() *Node { return &Node{Kind: BreakNode} }

// Clone deep-copies the subtree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Children = make([]*Node, len(n.Children))
	for i, ch := range n.Children {
		c.Children[i] = ch.Clone()
	}
	return &c
}

// PlainText returns the plain text of the region, breaks as newlines.
func (n *Node) PlainText() string {
	return annotation.JoinSpans(Serialize(n, annotation.Style{}))
}

// Len is the length of PlainText in runes.
func (n *Node) Len() int {
	total := 0
	for _, s := range Serialize(n, annotation.Style{}) {
		total += len([]rune(s.Text))
	}
	return total
}
