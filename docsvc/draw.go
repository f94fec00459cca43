package docsvc

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/wudi/pdfmark/builder"
	"github.com/wudi/pdfmark/failure"
	"github.com/wudi/pdfmark/observability"
)

// painter draws one op onto a page canvas whose coordinates are display
// space points.
type painter func(c *builder.Canvas) error

type job struct {
	page  int
	paint painter
}

var resourceCategories = []string{"Font", "XObject", "ExtGState"}

// draw runs the painters of one stage and appends their content to the
// pages they target, in a single read and write of the document.
func (s *Service) draw(ctx context.Context, op string, doc []byte, jobs []job) ([]byte, error) {
	if len(jobs) == 0 {
		return append([]byte(nil), doc...), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	pdf, err := s.read(doc)
	if err != nil {
		return nil, failure.New(failure.DocumentServiceFailure, op, err)
	}

	byPage := make(map[int][]painter)
	var numbers []int
	for _, j := range jobs {
		if j.page < 1 || j.page > pdf.PageCount {
			return nil, failure.Errorf(failure.InvalidInput, op, "page %d out of range 1-%d", j.page, pdf.PageCount)
		}
		if _, ok := byPage[j.page]; !ok {
			numbers = append(numbers, j.page)
		}
		byPage[j.page] = append(byPage[j.page], j.paint)
	}
	sort.Ints(numbers)

	pages := make(map[int]*page, len(numbers))
	for _, n := range numbers {
		pg, err := loadPage(pdf, n)
		if err != nil {
			return nil, failure.New(failure.DocumentServiceFailure, op, err)
		}
		pages[n] = pg
	}

	reg := builder.NewRegistry(builder.WithPrefix(uniquePrefix(pdf, pages)))
	canvases := make(map[int]*builder.Canvas, len(numbers))
	for _, n := range numbers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := builder.NewCanvas(reg)
		c.Save()
		c.Transform(pages[n].displayToUser())
		for _, paint := range byPage[n] {
			if err := paint(c); err != nil {
				return nil, failure.New(failure.DocumentServiceFailure, op, fmt.Errorf("page %d: %w", n, err))
			}
		}
		c.Restore()
		canvases[n] = c
	}

	w := &resourceWriter{pdf: pdf, log: s.log}
	refs, err := w.write(reg)
	if err != nil {
		return nil, failure.New(failure.DocumentServiceFailure, op, err)
	}
	for _, n := range numbers {
		c := canvases[n]
		if err := appendContent(pdf, pages[n].dict, c.Bytes()); err != nil {
			return nil, failure.New(failure.DocumentServiceFailure, op, err)
		}
		mergeResources(pdf, pages[n], refs.forCanvas(c.Used()))
	}

	out, err := s.write(pdf)
	if err != nil {
		return nil, failure.New(failure.DocumentServiceFailure, op, err)
	}
	s.log.Debug("stage drawn",
		observability.String("op", op),
		observability.Int("ops", len(jobs)),
		observability.Int("pages", len(numbers)),
		observability.Int("bytes", len(out)),
		observability.Duration(observability.MetricStageTime, time.Since(start)))
	return out, nil
}

// uniquePrefix picks a resource name prefix no target page already uses,
// so stages can be layered onto the output of earlier stages.
func uniquePrefix(pdf *model.Context, pages map[int]*page) string {
	var names []string
	for _, pg := range pages {
		for _, cat := range resourceCategories {
			sub, err := pdf.DereferenceDict(pg.resources[cat])
			if err != nil {
				continue
			}
			for k := range sub {
				names = append(names, k)
			}
		}
	}
	for i := 1; ; i++ {
		prefix := fmt.Sprintf("Mk%d", i)
		taken := false
		for _, name := range names {
			if strings.HasPrefix(name, prefix) {
				taken = true
				break
			}
		}
		if !taken {
			return prefix
		}
	}
}

// appendContent isolates the existing content in q/Q and appends ours.
func appendContent(pdf *model.Context, d types.Dict, content []byte) error {
	var existing types.Array
	switch v := d["Contents"].(type) {
	case types.IndirectRef:
		obj, err := pdf.Dereference(v)
		if err != nil {
			return fmt.Errorf("contents: %w", err)
		}
		if arr, ok := obj.(types.Array); ok {
			existing = arr
		} else {
			existing = types.Array{v}
		}
	case types.Array:
		existing = v
	}

	var arr types.Array
	if len(existing) > 0 {
		pre, err := newStream(pdf, types.Dict{}, []byte("q\n"), false)
		if err != nil {
			return err
		}
		arr = append(arr, pre)
		arr = append(arr, existing...)
		content = append([]byte("Q\n"), content...)
	}
	ref, err := newStream(pdf, types.Dict{}, content, true)
	if err != nil {
		return err
	}
	d["Contents"] = append(arr, ref)
	return nil
}

// mergeResources gives the page its own resource dictionary holding the
// old entries plus add. Shared dictionaries are copied, never modified.
func mergeResources(pdf *model.Context, pg *page, add map[string]types.Dict) {
	res := types.Dict{}
	for k, v := range pg.resources {
		res[k] = v
	}
	for cat, entries := range add {
		if len(entries) == 0 {
			continue
		}
		sub := types.Dict{}
		if old, err := pdf.DereferenceDict(res[cat]); err == nil {
			for k, v := range old {
				sub[k] = v
			}
		}
		for k, v := range entries {
			sub[k] = v
		}
		res[cat] = sub
	}
	pg.dict["Resources"] = res
	pg.resources = res
}

// newStream adds a stream object, Flate compressed when asked.
func newStream(pdf *model.Context, d types.Dict, content []byte, compress bool) (types.IndirectRef, error) {
	sd := types.StreamDict{Dict: d, Content: content}
	if compress {
		sd.FilterPipeline = []types.PDFFilter{{Name: "FlateDecode"}}
		d["Filter"] = types.Name("FlateDecode")
	}
	if err := sd.Encode(); err != nil {
		return types.IndirectRef{}, fmt.Errorf("encode stream: %w", err)
	}
	ref, err := pdf.IndRefForNewObject(sd)
	if err != nil {
		return types.IndirectRef{}, fmt.Errorf("add stream: %w", err)
	}
	return *ref, nil
}
