package docsvc

import (
	"context"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/wudi/pdfmark/coords"
	"github.com/wudi/pdfmark/document"
	"github.com/wudi/pdfmark/failure"
	"github.com/wudi/pdfmark/observability"
)

// skipKeys are not copied from a source page; the inheritable ones are
// written explicitly instead.
var skipKeys = map[string]bool{
	"Parent":    true,
	"Resources": true,
	"MediaBox":  true,
	"CropBox":   true,
	"Rotate":    true,
}

// duplicateSkipKeys hold objects that belong to exactly one page.
var duplicateSkipKeys = map[string]bool{
	"Annots":        true,
	"B":             true,
	"StructParents": true,
}

// CopyPages builds a document whose pages are the listed source pages in
// order. Each position gets its own page object, so a page listed twice
// yields two independent pages.
func (s *Service) CopyPages(ctx context.Context, doc []byte, pages []document.PageSpec) ([]byte, error) {
	const op = "docsvc.CopyPages"
	if len(pages) == 0 {
		return nil, failure.Errorf(failure.InvalidInput, op, "no pages selected")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pdf, err := s.read(doc)
	if err != nil {
		return nil, failure.New(failure.DocumentServiceFailure, op, err)
	}
	out, err := s.copyPages(pdf, pages)
	if err != nil {
		return nil, failure.New(failure.DocumentServiceFailure, op, err)
	}
	s.log.Debug("pages copied",
		observability.Int("source_pages", pdf.PageCount),
		observability.Int("pages", len(pages)),
		observability.Int("bytes", len(out)))
	return out, nil
}

func (s *Service) copyPages(pdf *model.Context, pages []document.PageSpec) ([]byte, error) {
	catalog, err := pdf.Catalog()
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	rootRef, ok := catalog["Pages"].(types.IndirectRef)
	if !ok {
		return nil, fmt.Errorf("catalog has no page tree reference")
	}
	root, err := pdf.DereferenceDict(rootRef)
	if err != nil {
		return nil, fmt.Errorf("page tree: %w", err)
	}

	// Resolve every source page before touching the tree.
	sources := make(map[int]*page)
	for _, spec := range pages {
		if spec.Number < 1 || spec.Number > pdf.PageCount {
			return nil, fmt.Errorf("page %d out of range 1-%d", spec.Number, pdf.PageCount)
		}
		if _, ok := sources[spec.Number]; ok {
			continue
		}
		pg, err := loadPage(pdf, spec.Number)
		if err != nil {
			return nil, err
		}
		sources[spec.Number] = pg
	}

	seen := make(map[int]bool)
	kids := make(types.Array, 0, len(pages))
	for _, spec := range pages {
		src := sources[spec.Number]
		d := types.Dict{}
		for k, v := range src.dict {
			if skipKeys[k] || (seen[spec.Number] && duplicateSkipKeys[k]) {
				continue
			}
			d[k] = v
		}
		seen[spec.Number] = true

		d["Parent"] = rootRef
		if src.mediaBox != nil {
			d["MediaBox"] = src.mediaBox.Array()
		} else {
			d["MediaBox"] = types.NewRectangle(letter.X, letter.Y, letter.W, letter.H).Array()
		}
		if src.cropBox != nil {
			d["CropBox"] = src.cropBox.Array()
		}
		if src.resources != nil {
			d["Resources"] = copyDict(src.resources)
		}
		if rot := coords.NormalizeRotation(src.rotation + spec.Rotation); rot != 0 {
			d["Rotate"] = types.Integer(rot)
		}
		ref, err := pdf.IndRefForNewObject(d)
		if err != nil {
			return nil, fmt.Errorf("add page: %w", err)
		}
		kids = append(kids, *ref)
	}

	root["Kids"] = kids
	root["Count"] = types.Integer(len(kids))
	for k := range skipKeys {
		if k != "Parent" {
			delete(root, k)
		}
	}
	pdf.PageCount = len(kids)
	return s.write(pdf)
}

func copyDict(d types.Dict) types.Dict {
	out := make(types.Dict, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
