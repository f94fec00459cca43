// Package preview rasterises the annotation overlay of one page on top of
// the page image, the way the editor shows it.
package preview

import (
	"bytes"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/coords"
	"github.com/wudi/pdfmark/failure"
	"github.com/wudi/pdfmark/fonts"
	"github.com/wudi/pdfmark/gesture"
	"github.com/wudi/pdfmark/observability"
)

// Assets resolves image asset ids.
type Assets interface {
	Get(id string) (*annotation.Asset, error)
}

// Options control what is drawn besides the committed annotations.
type Options struct {
	ShowComments bool
	// TextDefaults fill in what a text annotation leaves unset.
	TextDefaults annotation.Style
	// Draft is the multi-click shape under construction, if any.
	Draft *gesture.Draft
	// Selected is outlined.
	Selected string
}

// Skip is an annotation that could not be drawn.
type Skip struct {
	ID  string
	Err error
}

type Result struct {
	Image   *image.RGBA
	Skipped []Skip
}

// Renderer draws overlays. Parsed fonts and decoded images are cached, so
// one Renderer should be kept per editor. It is safe for concurrent use.
type Renderer struct {
	fonts *fonts.Registry
	log   observability.Logger

	mu     sync.Mutex
	parsed map[*fonts.Face]*truetype.Font
	faces  map[faceKey]font.Face
	images map[string]image.Image
}

type faceKey struct {
	face *fonts.Face
	size float64
}

type Option func(*Renderer)

func WithLogger(l observability.Logger) Option {
	return func(r *Renderer) { r.log = l }
}

func WithFonts(reg *fonts.Registry) Option {
	return func(r *Renderer) { r.fonts = reg }
}

func New(opts ...Option) *Renderer {
	r := &Renderer{
		log:    observability.NopLogger{},
		parsed: make(map[*fonts.Face]*truetype.Font),
		faces:  make(map[faceKey]font.Face),
		images: make(map[string]image.Image),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.fonts == nil {
		r.fonts = fonts.NewRegistry()
	}
	return r
}

// Render draws items onto base scaled to the overlay size. Annotations are
// painted in export order, so what the preview shows stacks the same way
// as the exported page. Annotations that cannot be drawn are skipped and
// reported.
func (r *Renderer) Render(base image.Image, items []annotation.Annotation, assets Assets, overlay coords.Size, opts Options) (*Result, error) {
	if overlay.IsZero() {
		return nil, failure.Errorf(failure.MissingOverlaySize, "preview.Render", "overlay %gx%g", overlay.W, overlay.H)
	}
	start := time.Now()
	w, h := int(math.Ceil(overlay.W)), int(math.Ceil(overlay.H))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(dst, dst.Bounds(), image.White, image.Point{}, xdraw.Src)
	if base != nil {
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), base, base.Bounds(), xdraw.Over, nil)
	}

	p := &painter{r: r, dc: gg.NewContextForRGBA(dst), overlay: overlay, assets: assets, opts: opts}
	res := &Result{Image: dst}
	for _, a := range Ordered(items, opts.ShowComments) {
		if err := p.paint(a); err != nil {
			res.Skipped = append(res.Skipped, Skip{ID: a.Common().ID, Err: err})
		}
	}
	if opts.Draft != nil {
		p.draft(opts.Draft)
	}
	if opts.Selected != "" {
		for _, a := range items {
			if a.Common().ID == opts.Selected {
				p.outline(a)
			}
		}
	}
	r.log.Debug("overlay rendered",
		observability.Int("annotations", len(items)),
		observability.Int("skipped", len(res.Skipped)),
		observability.Duration(observability.MetricRenderTime, time.Since(start)))
	return res, nil
}

var layers = [][]annotation.Kind{
	{annotation.KindHighlight},
	{annotation.KindImage},
	{annotation.KindText, annotation.KindComment, annotation.KindStamp},
	{annotation.KindSignature},
	{annotation.KindDraw},
	{annotation.KindShape},
}

// Ordered returns items in paint order, bottom first. Comments are left
// out unless comments is set.
func Ordered(items []annotation.Annotation, comments bool) []annotation.Annotation {
	out := make([]annotation.Annotation, 0, len(items))
	for _, layer := range layers {
		for _, a := range items {
			if a.Kind() == annotation.KindComment && !comments {
				continue
			}
			for _, k := range layer {
				if a.Kind() == k {
					out = append(out, a)
				}
			}
		}
	}
	return out
}

func (r *Renderer) truetype(f *fonts.Face, size float64) (font.Face, error) {
	size = math.Round(size*4) / 4
	r.mu.Lock()
	defer r.mu.Unlock()
	if ff, ok := r.faces[faceKey{f, size}]; ok {
		return ff, nil
	}
	tf, ok := r.parsed[f]
	if !ok {
		var err error
		if tf, err = truetype.Parse(f.Data()); err != nil {
			return nil, err
		}
		r.parsed[f] = tf
	}
	ff := truetype.NewFace(tf, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone})
	r.faces[faceKey{f, size}] = ff
	return ff, nil
}

func (r *Renderer) image(a *annotation.Asset) (image.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if img, ok := r.images[a.ID]; ok {
		return img, nil
	}
	img, _, err := image.Decode(bytes.NewReader(a.Data))
	if err != nil {
		return nil, failure.New(failure.InvalidInput, "preview", err)
	}
	r.images[a.ID] = img
	return img, nil
}

// Forget drops cached decoded images, for example after a new document is
// loaded.
func (r *Renderer) Forget() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images = make(map[string]image.Image)
}

func rgba(c annotation.Color, alpha float64) color.Color {
	a := uint8(coords.Clamp(alpha, 0, 1)*255 + 0.5)
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: a}
}
