package richtext

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"

	"github.com/wudi/pdfmark/annotation"
)

// ParseHTML reads the markup of an editable region (as produced by a
// browser contenteditable or by RenderHTML) into a tree. Text is brought
// to NFC here, so offsets into the tree match what is later stored.
func ParseHTML(src string) (*Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(norm.NFC.String(src)), ctx)
	if err != nil {
		return nil, err
	}
	root := Element(Patch{})
	for _, n := range nodes {
		if c := convertHTML(n); c != nil {
			root.Children = append(root.Children, c)
		}
	}
	return root, nil
}

func convertHTML(n *html.Node) *Node {
	switch n.Type {
	case html.TextNode:
		return Leaf(n.Data)
	case html.ElementNode:
	default:
		return nil
	}
	out := Element(Patch{})
	switch n.DataAtom {
	case atom.Br:
		return Break()
	case atom.Script, atom.Style, atom.Head:
		return nil
	case atom.B, atom.Strong:
		out.Style.Bold = Bool(true)
	case atom.I, atom.Em:
		out.Style.Italic = Bool(true)
	case atom.U, atom.Ins:
		out.Style.Underline = Bool(true)
	case atom.Div, atom.P, atom.Li, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		out.Block = true
	case atom.Font:
		if c, ok := attr(n, "color"); ok {
			if col, err := annotation.ParseColor(c); err == nil {
				out.Style.Color = Color(col)
			}
		}
	}
	if css, ok := attr(n, "style"); ok {
		out.Style = out.Style.Merge(parseCSS(css))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if child := convertHTML(c); child != nil {
			out.Children = append(out.Children, child)
		}
	}
	return out
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

// parseCSS understands the inline declarations editors emit for spans.
// Unknown properties are ignored.
func parseCSS(css string) Patch {
	var p Patch
	for _, decl := range strings.Split(css, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.ToLower(strings.TrimSpace(value))
		switch name {
		case "font-weight":
			switch value {
			case "bold", "bolder", "600", "700", "800", "900":
				p.Bold = Bool(true)
			case "normal", "lighter", "400":
				p.Bold = Bool(false)
			}
		case "font-style":
			p.Italic = Bool(value == "italic" || value == "oblique")
		case "text-decoration", "text-decoration-line":
			p.Underline = Bool(strings.Contains(value, "underline"))
		case "font-size":
			if v, err := strconv.ParseFloat(strings.TrimSuffix(value, "px"), 64); err == nil && v > 0 {
				p.FontSize = Size(v)
			}
		case "color":
			if c, err := annotation.ParseColor(value); err == nil {
				p.Color = Color(c)
			}
		}
	}
	return p
}

// RenderHTML writes spans as inline-styled markup that ParseHTML reads back
// into the same spans.
func RenderHTML(spans []annotation.Span, base annotation.Style) (string, error) {
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, s := range spans {
		st := s.Resolve(base)
		el := &html.Node{
			Type:     html.ElementNode,
			Data:     "span",
			DataAtom: atom.Span,
			Attr:     []html.Attribute{{Key: "style", Val: styleCSS(st)}},
		}
		for i, line := range strings.Split(s.Text, "\n") {
			if i > 0 {
				el.AppendChild(&html.Node{Type: html.ElementNode, Data: "br", DataAtom: atom.Br})
			}
			if line != "" {
				el.AppendChild(&html.Node{Type: html.TextNode, Data: line})
			}
		}
		root.AppendChild(el)
	}
	var sb strings.Builder
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

func styleCSS(st annotation.Style) string {
	weight, style, deco := "normal", "normal", "none"
	if st.Bold {
		weight = "bold"
	}
	if st.Italic {
		style = "italic"
	}
	if st.Underline {
		deco = "underline"
	}
	return fmt.Sprintf("font-weight: %s; font-style: %s; text-decoration: %s; font-size: %spx; color: %s",
		weight, style, deco, strconv.FormatFloat(st.FontSize, 'f', -1, 64), st.Color.Hex())
}
