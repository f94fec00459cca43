package richtext

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/unicode/norm"

	"github.com/wudi/pdfmark/annotation"
)

// FromMarkdown builds a region from markdown source. Headings scale the
// base font size, emphasis maps to italic and strong emphasis to bold.
// Other constructs keep their text. The source is normalised to NFC.
func FromMarkdown(source string, base annotation.Style) *Node {
	src := []byte(norm.NFC.String(source))
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	root := Element(Patch{})
	appendMarkdown(root, doc, src, base)
	return root
}

func appendMarkdown(parent *Node, node ast.Node, source []byte, base annotation.Style) {
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch n := child.(type) {
		case *ast.Heading:
			size := base.FontSize * 2.0
			if n.Level == 2 {
				size = base.FontSize * 1.5
			} else if n.Level >= 3 {
				size = base.FontSize * 1.25
			}
			el := &Node{Kind: ElementNode, Block: true, Style: Patch{Bold: Bool(true), FontSize: Size(size)}}
			appendMarkdown(el, n, source, base)
			parent.Children = append(parent.Children, el)
		case *ast.Paragraph, *ast.TextBlock, *ast.ListItem:
			el := Block()
			appendMarkdown(el, n, source, base)
			parent.Children = append(parent.Children, el)
		case *ast.Emphasis:
			p := Patch{Italic: Bool(true)}
			if n.Level >= 2 {
				p = Patch{Bold: Bool(true)}
			}
			el := Element(p)
			appendMarkdown(el, n, source, base)
			parent.Children = append(parent.Children, el)
		case *ast.Text:
			parent.Children = append(parent.Children, Leaf(string(n.Segment.Value(source))))
			if n.HardLineBreak() {
				parent.Children = append(parent.Children, Break())
			} else if n.SoftLineBreak() {
				parent.Children = append(parent.Children, Leaf(" "))
			}
		case *ast.String:
			parent.Children = append(parent.Children, Leaf(string(n.Value)))
		case *ast.CodeSpan:
			parent.Children = append(parent.Children, Leaf(string(n.Text(source))))
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			el := Block()
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				if i > 0 {
					el.Children = append(el.Children, Break())
				}
				line := string(seg.Value(source))
				if l := len(line); l > 0 && line[l-1] == '\n' {
					line = line[:l-1]
				}
				el.Children = append(el.Children, Leaf(line))
			}
			parent.Children = append(parent.Children, el)
		default:
			appendMarkdown(parent, child, source, base)
		}
	}
}
