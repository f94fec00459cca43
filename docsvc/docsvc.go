// Package docsvc implements document.Service on top of pdfcpu.
//
// Every call parses the input into a fresh pdfcpu context and writes a new
// buffer, so callers' bytes are never touched.
package docsvc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/wudi/pdfmark/coords"
	"github.com/wudi/pdfmark/document"
	"github.com/wudi/pdfmark/failure"
	"github.com/wudi/pdfmark/fonts"
	"github.com/wudi/pdfmark/observability"
)

var errNotPDF = errors.New("not a PDF document")

// letter is used when a page has no usable MediaBox.
var letter = coords.Rect{W: 612, H: 792}

var disableConfigDir sync.Once

// Service is a document.Service backed by pdfcpu.
type Service struct {
	log   observability.Logger
	fonts *fonts.Registry
}

var _ document.Service = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

func WithLogger(l observability.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithFonts shares a face registry, e.g. with the preview renderer.
func WithFonts(r *fonts.Registry) Option {
	return func(s *Service) { s.fonts = r }
}

func New(opts ...Option) *Service {
	// pdfcpu otherwise creates a configuration directory in the user's home.
	disableConfigDir.Do(api.DisableConfigDir)
	s := &Service{log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.fonts == nil {
		s.fonts = fonts.NewRegistry()
	}
	return s
}

func configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func (s *Service) read(doc []byte) (*model.Context, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(doc[:min(len(doc), 1024)], "\x00\t\r\n "), []byte("%PDF-")) {
		return nil, errNotPDF
	}
	ctx, err := api.ReadContext(bytes.NewReader(doc), configuration())
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return ctx, nil
}

func (s *Service) write(ctx *model.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	return buf.Bytes(), nil
}

// Load reports page count, display sizes and rotations.
func (s *Service) Load(ctx context.Context, doc []byte) (document.Info, error) {
	if err := ctx.Err(); err != nil {
		return document.Info{}, err
	}
	pdf, err := s.read(doc)
	if err != nil {
		return document.Info{}, failure.New(failure.InvalidInput, "docsvc.Load", err)
	}
	info := document.Info{PageCount: pdf.PageCount, Pages: make([]document.PageInfo, 0, pdf.PageCount)}
	for n := 1; n <= pdf.PageCount; n++ {
		pg, err := loadPage(pdf, n)
		if err != nil {
			return document.Info{}, failure.New(failure.InvalidInput, "docsvc.Load", err)
		}
		info.Pages = append(info.Pages, document.PageInfo{Size: pg.size(), Rotation: pg.rotation})
	}
	s.log.Debug("document loaded", observability.Int("pages", info.PageCount), observability.Int("bytes", len(doc)))
	return info, nil
}

// page is a page dictionary with its inherited attributes resolved.
type page struct {
	dict      types.Dict
	ref       *types.IndirectRef
	mediaBox  *types.Rectangle
	cropBox   *types.Rectangle
	resources types.Dict
	rotation  int
}

func loadPage(pdf *model.Context, n int) (*page, error) {
	d, ref, attrs, err := pdf.PageDict(n, false)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", n, err)
	}
	if d == nil {
		return nil, fmt.Errorf("page %d: missing page dictionary", n)
	}
	pg := &page{dict: d, ref: ref}
	if attrs != nil {
		pg.mediaBox = attrs.MediaBox
		pg.cropBox = attrs.CropBox
		pg.resources = attrs.Resources
		pg.rotation = coords.NormalizeRotation(attrs.Rotate)
	}
	if own, ok := d["Resources"]; ok {
		res, err := pdf.DereferenceDict(own)
		if err != nil {
			return nil, fmt.Errorf("page %d resources: %w", n, err)
		}
		pg.resources = res
	}
	return pg, nil
}

// box is the visible page area in user space.
func (p *page) box() coords.Rect {
	r := p.cropBox
	if r == nil {
		r = p.mediaBox
	}
	if r == nil || r.Width() <= 0 || r.Height() <= 0 {
		return letter
	}
	return coords.Rect{X: r.LL.X, Y: r.LL.Y, W: r.Width(), H: r.Height()}
}

func (p *page) size() coords.Size { return coords.DisplaySize(p.rotation, p.box()) }

// displayToUser maps display space, where export geometry lives, into the
// page's user space.
func (p *page) displayToUser() coords.Matrix { return coords.DisplayToUser(p.rotation, p.box()) }
