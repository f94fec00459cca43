package docsvc

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/wudi/pdfmark/builder"
	"github.com/wudi/pdfmark/fonts"
	"github.com/wudi/pdfmark/observability"
)

type resourceWriter struct {
	pdf *model.Context
	log observability.Logger
}

// resourceRefs maps registry names to written objects, by category.
type resourceRefs map[string]map[string]types.Object

func (r resourceRefs) forCanvas(u builder.Used) map[string]types.Dict {
	out := make(map[string]types.Dict)
	pick := func(cat string, names []string) {
		if len(names) == 0 {
			return
		}
		d := types.Dict{}
		for _, n := range names {
			d[n] = r[cat][n]
		}
		out[cat] = d
	}
	pick("Font", u.Fonts)
	pick("XObject", u.Images)
	pick("ExtGState", u.ExtGStates)
	return out
}

// write adds every resource of the registry to the document once.
func (w *resourceWriter) write(reg *builder.Registry) (resourceRefs, error) {
	refs := resourceRefs{"Font": {}, "XObject": {}, "ExtGState": {}}
	for _, f := range reg.Fonts() {
		if f.Usage.Empty() {
			continue
		}
		ref, err := w.font(f.Usage)
		if err != nil {
			return nil, fmt.Errorf("font %s: %w", f.Usage.Face.Name, err)
		}
		refs["Font"][f.Name] = ref
	}
	for _, im := range reg.Images() {
		ref, err := w.image(im.Image)
		if err != nil {
			return nil, fmt.Errorf("image %s: %w", im.Key, err)
		}
		refs["XObject"][im.Name] = ref
	}
	for name, gs := range reg.ExtGStates() {
		d := types.Dict{
			"Type": types.Name("ExtGState"),
			"ca":   types.Float(gs.FillAlpha),
			"CA":   types.Float(gs.StrokeAlpha),
		}
		if gs.BlendMode != "" {
			d["BM"] = types.Name(gs.BlendMode)
		}
		refs["ExtGState"][name] = d
	}
	return refs, nil
}

// font writes a Type0 font with one CIDFontType2 descendant holding the
// subset TrueType program. Codes are glyph ids (Identity-H).
func (w *resourceWriter) font(u *fonts.Usage) (types.IndirectRef, error) {
	emb, err := u.Embedding(w.log)
	if err != nil {
		return types.IndirectRef{}, err
	}
	file, err := newStream(w.pdf, types.Dict{"Length1": types.Integer(len(emb.FontFile))}, emb.FontFile, true)
	if err != nil {
		return types.IndirectRef{}, err
	}
	descriptor, err := w.pdf.IndRefForNewObject(types.Dict{
		"Type":        types.Name("FontDescriptor"),
		"FontName":    types.Name(emb.BaseFont),
		"Flags":       types.Integer(emb.Flags),
		"FontBBox":    floats(emb.BBox[:]...),
		"ItalicAngle": types.Float(emb.ItalicAngle),
		"Ascent":      types.Float(emb.Ascent),
		"Descent":     types.Float(emb.Descent),
		"CapHeight":   types.Float(emb.CapHeight),
		"StemV":       types.Integer(80),
		"FontFile2":   file,
	})
	if err != nil {
		return types.IndirectRef{}, err
	}

	widths := types.Array{}
	for _, run := range emb.Widths {
		ws := make(types.Array, len(run.Widths))
		for i, v := range run.Widths {
			ws[i] = types.Integer(v)
		}
		widths = append(widths, types.Integer(run.First), ws)
	}
	cid, err := w.pdf.IndRefForNewObject(types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("CIDFontType2"),
		"BaseFont": types.Name(emb.BaseFont),
		"CIDSystemInfo": types.Dict{
			"Registry":   types.StringLiteral("Adobe"),
			"Ordering":   types.StringLiteral("Identity"),
			"Supplement": types.Integer(0),
		},
		"FontDescriptor": *descriptor,
		"DW":             types.Integer(emb.DefaultWidth),
		"W":              widths,
		"CIDToGIDMap":    types.Name("Identity"),
	})
	if err != nil {
		return types.IndirectRef{}, err
	}

	toUnicode, err := newStream(w.pdf, types.Dict{}, emb.ToUnicode, true)
	if err != nil {
		return types.IndirectRef{}, err
	}
	ref, err := w.pdf.IndRefForNewObject(types.Dict{
		"Type":            types.Name("Font"),
		"Subtype":         types.Name("Type0"),
		"BaseFont":        types.Name(emb.BaseFont),
		"Encoding":        types.Name("Identity-H"),
		"DescendantFonts": types.Array{*cid},
		"ToUnicode":       toUnicode,
	})
	if err != nil {
		return types.IndirectRef{}, err
	}
	return *ref, nil
}

// image writes an image XObject and its soft mask.
func (w *resourceWriter) image(img *builder.Image) (types.IndirectRef, error) {
	d := types.Dict{
		"Type":             types.Name("XObject"),
		"Subtype":          types.Name("Image"),
		"Width":            types.Integer(img.Width),
		"Height":           types.Integer(img.Height),
		"ColorSpace":       types.Name(img.ColorSpace),
		"BitsPerComponent": types.Integer(img.BitsPerComponent),
	}
	if img.SMask != nil {
		mask, err := w.image(img.SMask)
		if err != nil {
			return types.IndirectRef{}, err
		}
		d["SMask"] = mask
	}
	if img.Filter != "" {
		// Already encoded; the bytes are stored as they are.
		d["Filter"] = types.Name(img.Filter)
		return newStream(w.pdf, d, img.Data, false)
	}
	return newStream(w.pdf, d, img.Data, true)
}

func floats(vs ...float64) types.Array {
	out := make(types.Array, len(vs))
	for i, v := range vs {
		out[i] = types.Float(v)
	}
	return out
}
