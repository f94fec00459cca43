// Package builder composes page content: paths, shapes, images and shaped
// text, collecting the named resources the content refers to.
package builder

import (
	"fmt"
	"sort"

	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/contentstream"
	"github.com/wudi/pdfmark/coords"
	"github.com/wudi/pdfmark/fonts"
)

// Color is an RGB color with components in [0, 1].
type Color struct {
	R, G, B float64
}

// RGB converts an annotation color.
func RGB(c annotation.Color) Color {
	r, g, b := c.Unit()
	return Color{R: r, G: g, B: b}
}

// PathOptions configures path drawing. Opacity 0 is treated as unset and
// paints opaque.
type PathOptions struct {
	StrokeColor Color
	FillColor   Color
	LineWidth   float64
	LineCap     contentstream.LineCap
	LineJoin    contentstream.LineJoin
	DashPattern []float64
	DashPhase   float64
	Fill        bool
	Stroke      bool
	Opacity     float64
	BlendMode   string
}

// RectOptions configures rectangle drawing (defaults to stroke if neither fill nor stroke is set).
type RectOptions = PathOptions

// LineOptions configures line drawing.
type LineOptions struct {
	StrokeColor Color
	LineWidth   float64
	LineCap     contentstream.LineCap
	DashPattern []float64
	DashPhase   float64
	Opacity     float64
}

// TextOptions configures text drawing.
type TextOptions struct {
	Face      *fonts.Face
	FontSize  float64
	Color     Color
	Underline bool
	Opacity   float64
}

// ExtGState is the subset of graphics state parameters the canvas sets.
type ExtGState struct {
	FillAlpha   float64
	StrokeAlpha float64
	BlendMode   string
}

type FontResource struct {
	Name  string
	Usage *fonts.Usage
}

type ImageResource struct {
	Name  string
	Key   string
	Image *Image
}

// Registry names resources across every canvas of one output pass so each
// font, image and graphics state is written once.
type Registry struct {
	prefix string
	fonts  map[*fonts.Face]*FontResource
	images map[string]*ImageResource
	states map[ExtGState]string
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithPrefix prepends p to every resource name, so content can be added to
// pages whose resources already use the plain names.
func WithPrefix(p string) RegistryOption {
	return func(r *Registry) { r.prefix = p }
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		fonts:  make(map[*fonts.Face]*FontResource),
		images: make(map[string]*ImageResource),
		states: make(map[ExtGState]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) font(f *fonts.Face) *FontResource {
	if res, ok := r.fonts[f]; ok {
		return res
	}
	res := &FontResource{Name: fmt.Sprintf("%sF%d", r.prefix, len(r.fonts)+1), Usage: fonts.NewUsage(f)}
	r.fonts[f] = res
	return res
}

func (r *Registry) image(key string, img *Image) *ImageResource {
	if res, ok := r.images[key]; ok {
		return res
	}
	res := &ImageResource{Name: fmt.Sprintf("%sIm%d", r.prefix, len(r.images)+1), Key: key, Image: img}
	r.images[key] = res
	return res
}

func (r *Registry) state(gs ExtGState) string {
	if name, ok := r.states[gs]; ok {
		return name
	}
	name := fmt.Sprintf("%sGS%d", r.prefix, len(r.states)+1)
	r.states[gs] = name
	return name
}

// Fonts returns the registered fonts ordered by name.
func (r *Registry) Fonts() []*FontResource {
	out := make([]*FontResource, 0, len(r.fonts))
	for _, f := range r.fonts {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return resourceLess(out[i].Name, out[j].Name) })
	return out
}

// Images returns the registered images ordered by name.
func (r *Registry) Images() []*ImageResource {
	out := make([]*ImageResource, 0, len(r.images))
	for _, im := range r.images {
		out = append(out, im)
	}
	sort.Slice(out, func(i, j int) bool { return resourceLess(out[i].Name, out[j].Name) })
	return out
}

// ExtGStates returns the registered graphics states by name.
func (r *Registry) ExtGStates() map[string]ExtGState {
	out := make(map[string]ExtGState, len(r.states))
	for gs, name := range r.states {
		out[name] = gs
	}
	return out
}

// Widths measures Identity-H strings shown with registered fonts.
func (r *Registry) Widths() contentstream.WidthFunc {
	return func(font string, s []byte) float64 {
		for f, res := range r.fonts {
			if res.Name == font {
				return f.DecodeWidth(s)
			}
		}
		return float64(len(s)) * 500
	}
}

func resourceLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// Used lists the resource names one canvas refers to.
type Used struct {
	Fonts      []string
	Images     []string
	ExtGStates []string
}

// Canvas accumulates the content of one page.
type Canvas struct {
	reg   *Registry
	ops   []contentstream.Operation
	used  map[string]bool
	depth int
}

func NewCanvas(reg *Registry) *Canvas {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Canvas{reg: reg, used: make(map[string]bool)}
}

func (c *Canvas) Registry() *Registry { return c.reg }

func (c *Canvas) emit(op string, operands ...contentstream.Operand) {
	c.ops = append(c.ops, contentstream.Op(op, operands...))
}

func (c *Canvas) Save() {
	c.depth++
	c.emit("q")
}

func (c *Canvas) Restore() {
	if c.depth == 0 {
		return
	}
	c.depth--
	c.emit("Q")
}

// Transform concatenates m to the current transformation matrix.
func (c *Canvas) Transform(m coords.Matrix) {
	if m.IsIdentity() {
		return
	}
	c.emit("cm", contentstream.Nums(m[0], m[1], m[2], m[3], m[4], m[5])...)
}

// Operations returns the content so far with any open state closed.
func (c *Canvas) Operations() []contentstream.Operation {
	out := append([]contentstream.Operation(nil), c.ops...)
	for i := 0; i < c.depth; i++ {
		out = append(out, contentstream.Op("Q"))
	}
	return out
}

// Bytes encodes the content stream.
func (c *Canvas) Bytes() []byte { return contentstream.Encode(c.Operations()) }

func (c *Canvas) Empty() bool { return len(c.ops) == 0 }

// Used reports which registry entries this canvas refers to.
func (c *Canvas) Used() Used {
	var u Used
	for _, f := range c.reg.Fonts() {
		if c.used[f.Name] {
			u.Fonts = append(u.Fonts, f.Name)
		}
	}
	for _, im := range c.reg.Images() {
		if c.used[im.Name] {
			u.Images = append(u.Images, im.Name)
		}
	}
	for name := range c.reg.ExtGStates() {
		if c.used[name] {
			u.ExtGStates = append(u.ExtGStates, name)
		}
	}
	sort.Slice(u.ExtGStates, func(i, j int) bool { return resourceLess(u.ExtGStates[i], u.ExtGStates[j]) })
	return u
}

func opaque(o float64) bool { return o <= 0 || o >= 1 }

// setAlpha selects a graphics state for opacity and blend mode. It must be
// called inside a saved state.
func (c *Canvas) setAlpha(opacity float64, blend string) {
	if opaque(opacity) && (blend == "" || blend == "Normal") {
		return
	}
	alpha := 1.0
	if !opaque(opacity) {
		alpha = opacity
	}
	name := c.reg.state(ExtGState{FillAlpha: alpha, StrokeAlpha: alpha, BlendMode: blend})
	c.used[name] = true
	c.emit("gs", contentstream.Name(name))
}

func (c *Canvas) fillColor(col Color) {
	c.emit("rg", contentstream.Nums(col.R, col.G, col.B)...)
}

func (c *Canvas) strokeColor(col Color) {
	c.emit("RG", contentstream.Nums(col.R, col.G, col.B)...)
}

func (c *Canvas) applyPathState(opts PathOptions) {
	c.setAlpha(opts.Opacity, opts.BlendMode)
	if opts.Fill {
		c.fillColor(opts.FillColor)
	}
	if !opts.Stroke {
		return
	}
	c.strokeColor(opts.StrokeColor)
	if opts.LineWidth > 0 {
		c.emit("w", contentstream.Num(opts.LineWidth))
	}
	if opts.LineCap != contentstream.LineCapButt {
		c.emit("J", contentstream.Num(float64(opts.LineCap)))
	}
	if opts.LineJoin != contentstream.LineJoinMiter {
		c.emit("j", contentstream.Num(float64(opts.LineJoin)))
	}
	if len(opts.DashPattern) > 0 {
		c.emit("d", contentstream.ArrayOperand{Values: contentstream.Nums(opts.DashPattern...)}, contentstream.Num(opts.DashPhase))
	}
}

func paintOperator(fill, stroke bool) string {
	switch {
	case fill && stroke:
		return "B"
	case fill:
		return "f"
	default:
		return "S"
	}
}

func (c *Canvas) DrawPath(path *contentstream.Path, opts PathOptions) {
	if path == nil || len(path.Subpaths) == 0 {
		return
	}
	if !opts.Fill && !opts.Stroke {
		opts.Stroke = true
	}
	c.Save()
	c.applyPathState(opts)
	c.ops = append(c.ops, path.Operations()...)
	c.emit(paintOperator(opts.Fill, opts.Stroke))
	c.Restore()
}

func (c *Canvas) DrawRectangle(x, y, width, height float64, opts RectOptions) {
	if !opts.Fill && !opts.Stroke {
		opts.Stroke = true
	}
	c.Save()
	c.applyPathState(opts)
	c.emit("re", contentstream.Nums(x, y, width, height)...)
	c.emit(paintOperator(opts.Fill, opts.Stroke))
	c.Restore()
}

func (c *Canvas) DrawLine(x1, y1, x2, y2 float64, opts LineOptions) {
	path := (&contentstream.Path{}).MoveTo(x1, y1).LineTo(x2, y2)
	c.DrawPath(path, PathOptions{
		StrokeColor: opts.StrokeColor,
		LineWidth:   opts.LineWidth,
		LineCap:     opts.LineCap,
		DashPattern: opts.DashPattern,
		DashPhase:   opts.DashPhase,
		Stroke:      true,
		Opacity:     opts.Opacity,
	})
}

// DrawImage paints img into the rectangle. key identifies the image data
// so repeated placements share one XObject.
func (c *Canvas) DrawImage(key string, img *Image, x, y, width, height, opacity float64) {
	if img == nil {
		return
	}
	res := c.reg.image(key, img)
	c.used[res.Name] = true
	c.Save()
	c.setAlpha(opacity, "")
	c.emit("cm", contentstream.Nums(width, 0, 0, height, x, y)...)
	c.emit("Do", contentstream.Name(res.Name))
	c.Restore()
}

// DrawGlyphs shows shaped glyphs with their baseline origin at (x, y).
// Differences between shaped advances and the font's default widths are
// written as TJ adjustments so kerning survives. It returns the run width.
func (c *Canvas) DrawGlyphs(face *fonts.Face, size, x, y float64, glyphs []fonts.Glyph, col Color) float64 {
	if face == nil || len(glyphs) == 0 || size <= 0 {
		return 0
	}
	res := c.reg.font(face)
	res.Usage.Add(glyphs)
	c.used[res.Name] = true

	var (
		arr   []contentstream.Operand
		run   []fonts.Glyph
		width float64
	)
	for _, g := range glyphs {
		run = append(run, g)
		width += g.XAdvance
		if adj := float64(face.GlyphWidth(g.ID)) - g.XAdvance; adj > 0.01 || adj < -0.01 {
			arr = append(arr, contentstream.StringOperand{Value: fonts.Encode(run), Hex: true}, contentstream.Num(adj))
			run = nil
		}
	}
	if len(run) > 0 {
		arr = append(arr, contentstream.StringOperand{Value: fonts.Encode(run), Hex: true})
	}

	c.emit("BT")
	c.emit("Tf", contentstream.Name(res.Name), contentstream.Num(size))
	c.fillColor(col)
	c.emit("Td", contentstream.Num(x), contentstream.Num(y))
	c.emit("TJ", contentstream.ArrayOperand{Values: arr})
	c.emit("ET")
	return width * size / 1000
}

// UnderlinePosition returns the offset below the baseline and the
// thickness of an underline rule for a font size.
func UnderlinePosition(size float64) (offset, thickness float64) {
	return size * 0.12, max(size*0.06, 0.5)
}

// DrawText shapes and shows text on one line, underlining it when asked.
func (c *Canvas) DrawText(text string, x, y float64, opts TextOptions) float64 {
	if opts.Face == nil {
		return 0
	}
	c.Save()
	c.setAlpha(opts.Opacity, "")
	w := c.DrawGlyphs(opts.Face, opts.FontSize, x, y, opts.Face.Shape(text), opts.Color)
	if opts.Underline && w > 0 {
		c.Underline(x, y, w, opts.FontSize, opts.Color)
	}
	c.Restore()
	return w
}

// Underline draws a filled rule under a run of the given width.
func (c *Canvas) Underline(x, y, width, size float64, col Color) {
	off, th := UnderlinePosition(size)
	c.DrawRectangle(x, y-off-th, width, th, RectOptions{Fill: true, FillColor: col})
}
