// Package document defines the contracts between the editor and the
// services that read, render and rewrite PDF documents.
//
// All geometry crossing these interfaces is in document space: points with
// a bottom-left origin on the page as displayed, after its rotation.
package document

import (
	"context"
	"image"

	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/coords"
)

// PageInfo describes one page as displayed.
type PageInfo struct {
	Size     coords.Size
	Rotation int
}

// Info summarises a loaded document.
type Info struct {
	PageCount int
	Pages     []PageInfo
}

// Page returns the info of a 1-based page number.
func (i Info) Page(n int) (PageInfo, bool) {
	if n < 1 || n > len(i.Pages) {
		return PageInfo{}, false
	}
	return i.Pages[n-1], true
}

// PageSpec selects a source page for one output position. Rotation is
// added clockwise to the page's own rotation.
type PageSpec struct {
	Number   int
	Rotation int
}

type HighlightOp struct {
	Page    int
	Rect    coords.Rect
	Color   annotation.Color
	Opacity float64
}

type ImageOp struct {
	Page    int
	Rect    coords.Rect
	Asset   *annotation.Asset
	Opacity float64
}

// TextRun is a piece of text with one resolved style. FontSize is in
// document units.
type TextRun struct {
	Text  string
	Style annotation.Style
}

// Frame decorates a text box with a border and an optional fill.
type Frame struct {
	Border annotation.Color
	Width  float64
	Fill   *annotation.Color
}

// TextOp lays out runs inside Rect, wrapping at its width less padding.
// Center centres every line and the block as a whole.
type TextOp struct {
	Page    int
	Rect    coords.Rect
	Runs    []TextRun
	Padding float64
	Center  bool
	Frame   *Frame
}

type SignatureOp struct {
	Page   int
	Rect   coords.Rect
	Text   string
	FontID string
	Color  annotation.Color
}

type PathOp struct {
	Page    int
	Points  []coords.Point
	Color   annotation.Color
	Width   float64
	Opacity float64
}

// ShapeOp describes a vector shape. Box shapes use Rect; the others use
// Points.
type ShapeOp struct {
	Page        int
	Type        annotation.ShapeType
	Rect        coords.Rect
	Points      []coords.Point
	Stroke      annotation.Color
	StrokeWidth float64
	Fill        *annotation.Color
	Opacity     float64
}

// Service reads and rewrites documents. Every method returns new bytes and
// leaves its input untouched. Draw methods take the whole batch of one kind
// so a document is re-encoded once per call.
type Service interface {
	Load(ctx context.Context, doc []byte) (Info, error)
	CopyPages(ctx context.Context, doc []byte, pages []PageSpec) ([]byte, error)
	DrawHighlights(ctx context.Context, doc []byte, ops []HighlightOp) ([]byte, error)
	DrawImages(ctx context.Context, doc []byte, ops []ImageOp) ([]byte, error)
	DrawText(ctx context.Context, doc []byte, ops []TextOp) ([]byte, error)
	DrawSignatures(ctx context.Context, doc []byte, ops []SignatureOp) ([]byte, error)
	DrawPaths(ctx context.Context, doc []byte, ops []PathOp) ([]byte, error)
	DrawShapes(ctx context.Context, doc []byte, ops []ShapeOp) ([]byte, error)
}

// Renderer rasterises one page. rotation is added to the page's own
// rotation; scale is pixels per point.
type Renderer interface {
	Render(ctx context.Context, doc []byte, page, rotation int, scale float64) (image.Image, error)
}
