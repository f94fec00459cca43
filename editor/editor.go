// Package editor is one editing session over a PDF document: it owns the
// annotations, page properties and tool configuration of the open
// document, dispatches pointer input to gestures and drives export and
// session persistence.
//
// An Editor is safe for concurrent use. Mutations are serialised; export,
// page rendering and background saves work on snapshots taken under the
// lock.
package editor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/coords"
	"github.com/wudi/pdfmark/docsvc"
	"github.com/wudi/pdfmark/document"
	"github.com/wudi/pdfmark/export"
	"github.com/wudi/pdfmark/failure"
	"github.com/wudi/pdfmark/fonts"
	"github.com/wudi/pdfmark/gesture"
	"github.com/wudi/pdfmark/observability"
	"github.com/wudi/pdfmark/pageprops"
	"github.com/wudi/pdfmark/preview"
	"github.com/wudi/pdfmark/session"
	"github.com/wudi/pdfmark/storage"
	"github.com/wudi/pdfmark/tool"
)

var (
	// ErrNoDocument is returned by operations that need an open document.
	ErrNoDocument = failure.Errorf(failure.InvalidInput, "editor", "no document loaded")
	// ErrStaleRender is returned when the page changed while it was being
	// rendered; the result was dropped.
	ErrStaleRender = errors.New("editor: render result is stale")
)

// Config holds the tunables of an editor.
type Config struct {
	AutosaveDelay time.Duration
	ToolDefaults  tool.Defaults
	// RenderScale is pixels per point used when no overlay size is known.
	RenderScale  float64
	HistoryLimit int
}

func DefaultConfig() Config {
	return Config{
		AutosaveDelay: session.DefaultAutosaveDelay,
		ToolDefaults:  tool.DefaultDefaults(),
		RenderScale:   1.5,
		HistoryLimit:  session.DefaultHistoryLimit,
	}
}

// Option configures an Editor.
type Option func(*Editor)

func WithConfig(c Config) Option {
	return func(e *Editor) { e.cfg = c }
}

func WithLogger(l observability.Logger) Option {
	return func(e *Editor) { e.log = l }
}

func WithTracer(t observability.Tracer) Option {
	return func(e *Editor) { e.tracer = t }
}

// WithStorage sets where the last document, the signature profile and the
// session history are kept. The default is in memory.
func WithStorage(s storage.Store) Option {
	return func(e *Editor) { e.store = s }
}

func WithAutosaveDelay(d time.Duration) Option {
	return func(e *Editor) { e.cfg.AutosaveDelay = d }
}

func WithToolDefaults(d tool.Defaults) Option {
	return func(e *Editor) { e.cfg.ToolDefaults = d }
}

// WithDocumentService replaces the pdfcpu backed service.
func WithDocumentService(s document.Service) Option {
	return func(e *Editor) { e.svc = s }
}

// WithRenderer sets the page rasteriser. Without one pages render blank
// under their overlay.
func WithRenderer(r document.Renderer) Option {
	return func(e *Editor) { e.renderer = r }
}

func WithClock(now func() time.Time) Option {
	return func(e *Editor) { e.now = now }
}

// Editor is an editing session. The zero value is not usable; call New.
type Editor struct {
	cfg      Config
	log      observability.Logger
	tracer   observability.Tracer
	store    storage.Store
	svc      document.Service
	renderer document.Renderer
	now      func() time.Time

	pipeline *export.Pipeline
	preview  *preview.Renderer
	history  *session.History
	autosave *session.Autosaver

	mu sync.Mutex

	name    string
	doc     []byte
	info    document.Info
	pages   *pageprops.Set
	annots  *annotation.Store
	assets  *annotation.AssetStore
	handles map[string]string

	tools    *tool.Config
	drafts   gesture.DraftSlot
	active   gesture.Controller
	selected string
	current  int
	overlay  coords.Size

	showComments bool
	profile      *session.SignatureProfile
	status       string
	renderGen    uint64
}

// New returns an editor with no document loaded.
func New(opts ...Option) *Editor {
	e := &Editor{
		cfg:     DefaultConfig(),
		log:     observability.NopLogger{},
		tracer:  observability.NopTracer(),
		now:     time.Now,
		annots:  annotation.NewStore(),
		assets:  annotation.NewAssetStore(),
		handles: make(map[string]string),

		showComments: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = storage.NewMemory()
	}
	reg := fonts.NewRegistry()
	if e.svc == nil {
		e.svc = docsvc.New(docsvc.WithLogger(e.log), docsvc.WithFonts(reg))
	}
	e.tools = tool.NewConfig(e.cfg.ToolDefaults)
	e.pipeline = export.New(e.svc, export.WithLogger(e.log), export.WithTracer(e.tracer))
	e.preview = preview.New(preview.WithLogger(e.log), preview.WithFonts(reg))
	e.history = session.NewHistory(e.store, e.cfg.HistoryLimit)
	e.autosave = session.NewAutosaver(e.cfg.AutosaveDelay, e.saveSession, e.log)
	return e
}

// lastDocument is the value stored under storage.KeyLastDocument.
type lastDocument struct {
	Name     string `json:"name"`
	Document []byte `json:"document"`
}

// Load opens doc, replacing everything about the previous document. A
// document the service rejects leaves the editor unchanged.
func (e *Editor) Load(ctx context.Context, name string, doc []byte) error {
	const op = "editor.Load"
	info, err := e.svc.Load(ctx, doc)
	if err != nil {
		if failure.KindOf(err) == failure.Unknown {
			err = failure.New(failure.InvalidInput, op, err)
		}
		return e.fail(err)
	}
	if info.PageCount < 1 {
		return e.fail(failure.Errorf(failure.InvalidInput, op, "document has no pages"))
	}
	// The pending save belongs to the document being replaced.
	if err := e.autosave.Flush(ctx); err != nil {
		e.log.Warn("saving previous session failed", observability.Error("error", err))
	}

	own := append([]byte(nil), doc...)
	e.mu.Lock()
	e.name = name
	e.doc = own
	e.info = info
	e.pages = pageprops.New(info.PageCount)
	e.annots.Reset()
	e.assets.Reset()
	e.handles = make(map[string]string)
	e.tools.Reset()
	e.drafts.Cancel()
	e.active = nil
	e.selected = ""
	e.current = 1
	e.showComments = true
	e.status = ""
	e.renderGen++
	e.mu.Unlock()

	e.log.Info("document loaded",
		observability.String("name", name),
		observability.Int("pages", info.PageCount),
		observability.Int("bytes", len(own)))

	data, err := json.Marshal(lastDocument{Name: name, Document: own})
	if err == nil {
		err = e.store.Put(ctx, storage.KeyLastDocument, data)
	}
	if err != nil {
		e.log.Warn("remembering document failed", observability.Error("error", err))
	}
	return nil
}

// LoadLast reopens the document remembered by the previous Load. ok is
// false when nothing was remembered.
func (e *Editor) LoadLast(ctx context.Context) (ok bool, err error) {
	data, ok, err := e.store.Get(ctx, storage.KeyLastDocument)
	if err != nil || !ok {
		return false, err
	}
	var last lastDocument
	if err := json.Unmarshal(data, &last); err != nil {
		return false, e.fail(failure.New(failure.InvalidInput, "editor.LoadLast", err))
	}
	if err := e.Load(ctx, last.Name, last.Document); err != nil {
		return false, err
	}
	return true, nil
}

// Close writes any pending session save and stops autosaving.
func (e *Editor) Close(ctx context.Context) error {
	err := e.autosave.Flush(ctx)
	e.autosave.Stop()
	return err
}

// Document returns a copy of the original bytes of the open document.
func (e *Editor) Document() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]byte(nil), e.doc...)
}

func (e *Editor) Name() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.name
}

// Info describes the open document as loaded.
func (e *Editor) Info() document.Info {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.info
}

// Annotations returns copies of every annotation.
func (e *Editor) Annotations() []annotation.Annotation { return e.annots.All() }

// Annotation returns a copy of one annotation.
func (e *Editor) Annotation(id string) (annotation.Annotation, bool) { return e.annots.Get(id) }

// Asset resolves an image asset id.
func (e *Editor) Asset(id string) (*annotation.Asset, error) { return e.assets.Get(id) }

// Handle returns the presentation handle built for an asset.
func (e *Editor) Handle(assetID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h, ok := e.handles[assetID]
	return h, ok
}

// Pages returns a copy of the page properties.
func (e *Editor) Pages() []pageprops.Props {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pages == nil {
		return nil
	}
	return e.pages.Props()
}

func (e *Editor) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Tool returns a copy of the current tool configuration.
func (e *Editor) Tool() tool.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.tools
}

// Draft returns the polygon or cloud being drawn, if any.
func (e *Editor) Draft() *gesture.Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drafts.Current()
}

// Status is the user facing text of the last failed operation, empty after
// a successful one.
func (e *Editor) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// fail records err as the status and returns it.
func (e *Editor) fail(err error) error {
	e.mu.Lock()
	e.failLocked(err)
	e.mu.Unlock()
	return err
}

func (e *Editor) failLocked(err error) error {
	if err == nil {
		e.status = ""
		return nil
	}
	e.status = failure.Message(err)
	e.log.Debug("operation failed", observability.String("kind", failure.KindOf(err).String()), observability.Error("error", err))
	return err
}

func (e *Editor) requireDoc() error {
	if e.doc == nil {
		return ErrNoDocument
	}
	return nil
}

// changed schedules a session save after an edit.
func (e *Editor) changed() {
	e.status = ""
	e.autosave.Trigger()
}
