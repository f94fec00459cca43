// Package export burns annotations into a copy of a document.
//
// Export is a fold over ordered stages: each stage receives the bytes the
// previous stage produced and returns new bytes. The caller's document is
// never modified.
package export

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/document"
	"github.com/wudi/pdfmark/failure"
	"github.com/wudi/pdfmark/observability"
	"github.com/wudi/pdfmark/pageprops"
)

// Phase orders stages. Later phases paint on top of earlier ones.
type Phase int

const (
	PhasePages Phase = iota
	PhaseHighlights
	PhaseImages
	PhaseText
	PhaseSignatures
	PhaseDraw
	PhaseShapes
)

var phaseNames = []string{"pages", "highlights", "images", "text", "signatures", "draw", "shapes"}

func (p Phase) String() string {
	if int(p) >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

var phases = []Phase{PhasePages, PhaseHighlights, PhaseImages, PhaseText, PhaseSignatures, PhaseDraw, PhaseShapes}

// Stage is one step of the pipeline. Apply returns the next document and
// how many items it drew; a stage with nothing to do returns doc unchanged
// and 0 without calling the document service.
type Stage interface {
	Name() string
	Phase() Phase
	Priority() int
	Apply(ctx context.Context, env *Env, doc []byte) ([]byte, int, error)
}

// Assets resolves image asset ids.
type Assets interface {
	Get(id string) (*annotation.Asset, error)
}

// Input is everything an export reads. Nothing in it is modified.
type Input struct {
	Document     []byte
	Annotations  []annotation.Annotation
	Assets       Assets
	Pages        *pageprops.Set
	TextDefaults annotation.Style
	ShowComments bool
}

// Env is the read-only context shared by the stages of one run.
type Env struct {
	Input
	Service document.Service
	Log     observability.Logger
	// Sequence is the export page sequence of source page numbers.
	Sequence []int
	// Output describes the paginated document; it is set after the pages
	// phase.
	Output document.Info

	report *Report
}

// Skip records an annotation left out of the output.
func (e *Env) Skip(a annotation.Annotation, err error) {
	e.report.Skipped = append(e.report.Skipped, Skipped{ID: a.Common().ID, Kind: a.Kind(), Reason: failure.KindOf(err)})
	e.Log.Warn("annotation skipped",
		observability.String("annotation", annotation.Describe(a)),
		observability.Error("error", err))
}

// Skipped names an annotation that was not exported.
type Skipped struct {
	ID     string
	Kind   annotation.Kind
	Reason failure.Kind
}

// StageReport summarises one stage.
type StageReport struct {
	Name     string
	Phase    Phase
	Items    int
	Skipped  bool
	Duration time.Duration
	Bytes    int
}

type Report struct {
	Pages   int
	Stages  []StageReport
	Skipped []Skipped
}

// Result is the exported document with its report.
type Result struct {
	Document []byte
	Report   Report
}

// Pipeline runs registered stages in phase order, then by priority.
type Pipeline struct {
	svc    document.Service
	log    observability.Logger
	tracer observability.Tracer
	stages map[Phase][]Stage
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithLogger(l observability.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

func WithTracer(t observability.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// New returns a pipeline with the standard stages registered.
func New(svc document.Service, opts ...Option) *Pipeline {
	p := &Pipeline{
		svc:    svc,
		log:    observability.NopLogger{},
		tracer: observability.NopTracer(),
		stages: make(map[Phase][]Stage),
	}
	for _, opt := range opts {
		opt(p)
	}
	for _, s := range StandardStages() {
		p.Register(s)
	}
	return p
}

// Register adds a stage. Stages of one phase run by ascending priority.
func (p *Pipeline) Register(s Stage) {
	ph := s.Phase()
	p.stages[ph] = append(p.stages[ph], s)
	sort.SliceStable(p.stages[ph], func(i, j int) bool { return p.stages[ph][i].Priority() < p.stages[ph][j].Priority() })
}

// Stages returns the registered stages in execution order.
func (p *Pipeline) Stages() []Stage {
	var out []Stage
	for _, ph := range phases {
		out = append(out, p.stages[ph]...)
	}
	return out
}

// Run exports in. The first failing stage aborts the run and nothing is
// returned; in is left as it was.
func (p *Pipeline) Run(ctx context.Context, in Input) (res *Result, err error) {
	const op = "export.Run"
	ctx, span := p.tracer.StartSpan(ctx, "export")
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		span.Finish()
	}()
	if p.svc == nil {
		return nil, failure.Errorf(failure.DocumentServiceFailure, op, "no document service")
	}
	if len(in.Document) == 0 || in.Pages == nil {
		return nil, failure.Errorf(failure.InvalidInput, op, "no document loaded")
	}
	seq := in.Pages.ExportSequence()
	if len(seq) == 0 {
		return nil, failure.Errorf(failure.InvalidInput, op, "every page is hidden or deleted")
	}

	start := time.Now()
	report := &Report{}
	env := &Env{Input: in, Service: p.svc, Log: p.log, Sequence: seq, report: report}
	doc := in.Document
	for _, ph := range phases {
		for _, st := range p.stages[ph] {
			if doc, err = p.apply(ctx, env, st, doc); err != nil {
				p.log.Error("export failed", observability.String("stage", st.Name()), observability.Error("error", err))
				return nil, err
			}
		}
		if ph == PhasePages {
			if env.Output, err = p.svc.Load(ctx, doc); err != nil {
				return nil, failure.New(failure.DocumentServiceFailure, op, err)
			}
		}
	}
	report.Pages = env.Output.PageCount
	span.SetTag("pages", report.Pages)
	p.log.Info("export finished",
		observability.Int("pages", report.Pages),
		observability.Int("annotations", len(in.Annotations)),
		observability.Int("skipped", len(report.Skipped)),
		observability.Int("bytes", len(doc)),
		observability.Duration(observability.MetricExportTime, time.Since(start)))
	return &Result{Document: doc, Report: *report}, nil
}

func (p *Pipeline) apply(ctx context.Context, env *Env, st Stage, doc []byte) ([]byte, error) {
	ctx, span := p.tracer.StartSpan(ctx, "export."+st.Name())
	defer span.Finish()
	start := time.Now()
	out, n, err := st.Apply(ctx, env, doc)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	rep := StageReport{Name: st.Name(), Phase: st.Phase(), Items: n, Skipped: n == 0, Duration: time.Since(start), Bytes: len(out)}
	env.report.Stages = append(env.report.Stages, rep)
	span.SetTag("items", n)
	if rep.Skipped {
		p.log.Debug("stage skipped", observability.String("stage", st.Name()))
		return doc, nil
	}
	p.log.Debug("stage finished",
		observability.String("stage", st.Name()),
		observability.Int(observability.MetricStageOps, n),
		observability.Int("bytes", len(out)),
		observability.Duration(observability.MetricStageTime, rep.Duration))
	return out, nil
}
