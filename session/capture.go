package session

import (
	"encoding/base64"
	"time"

	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/failure"
	"github.com/wudi/pdfmark/pageprops"
)

// Assets resolves image asset ids.
type Assets interface {
	Get(id string) (*annotation.Asset, error)
}

// Source is the editor state captured into an entry.
type Source struct {
	Name         string
	Document     []byte
	PageCount    int
	Annotations  []annotation.Annotation
	Assets       Assets
	Pages        *pageprops.Set
	ShowComments bool
}

// Capture flattens src into an entry stamped with now. Image annotations
// whose asset cannot be resolved are still recorded, without bytes; their
// ids are returned so the caller can report them.
func Capture(src Source, now time.Time) (*Entry, []string) {
	e := &Entry{
		Version:      Version,
		DocumentHash: Fingerprint(src.Document),
		Name:         src.Name,
		SavedAt:      now.UTC(),
		PageCount:    src.PageCount,
		ShowComments: src.ShowComments,
		Records:      make([]Record, 0, len(src.Annotations)),
	}
	if src.Pages != nil {
		e.PageProps = src.Pages.Props()
	}
	var missing []string
	for _, a := range src.Annotations {
		rec := Record{Annotation: a.Clone()}
		if img, ok := a.(*annotation.Image); ok {
			asset, err := lookup(src.Assets, img.AssetID)
			if err != nil {
				missing = append(missing, img.ID)
			}
			rec.Asset = asset
		}
		e.Records = append(e.Records, rec)
	}
	return e, missing
}

func lookup(assets Assets, id string) (*annotation.Asset, error) {
	if assets == nil {
		return nil, failure.Errorf(failure.AssetNotFound, "session.Capture", "asset %q", id)
	}
	return assets.Get(id)
}

// HandleFactory builds the presentation handle of an asset, for example a
// URL an image element can display. Handles are never persisted.
type HandleFactory func(*annotation.Asset) string

// DataURL is the default HandleFactory.
func DataURL(a *annotation.Asset) string {
	return "data:" + a.MIME + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// Restored is an entry rebuilt against its document.
type Restored struct {
	Annotations  []annotation.Annotation
	Assets       []*annotation.Asset
	Pages        *pageprops.Set
	ShowComments bool
	// Handles maps asset ids to handles built for this restore.
	Handles map[string]string
}

// Counts tallies the restored annotations by kind.
func (r *Restored) Counts() map[annotation.Kind]int {
	out := make(map[annotation.Kind]int)
	for _, a := range r.Annotations {
		out[a.Kind()]++
	}
	return out
}

// Restore rebuilds e for doc. It fails with SessionMismatch when doc is not
// the document e was saved for, and with InvalidInput when a record is
// malformed; in both cases nothing is returned.
func Restore(e *Entry, doc []byte, handles HandleFactory) (*Restored, error) {
	const op = "session.Restore"
	if e == nil {
		return nil, failure.Errorf(failure.InvalidInput, op, "no session")
	}
	if got := Fingerprint(doc); got != e.DocumentHash {
		return nil, failure.Errorf(failure.SessionMismatch, op, "document hash %.12s does not match session %.12s", got, e.DocumentHash)
	}
	if handles == nil {
		handles = DataURL
	}

	out := &Restored{ShowComments: e.ShowComments, Handles: make(map[string]string)}
	seen := make(map[string]bool, len(e.Records))
	assets := make(map[string]*annotation.Asset)
	for _, rec := range e.Records {
		a := rec.Annotation
		if err := annotation.Validate(a); err != nil {
			return nil, failure.New(failure.InvalidInput, op, err)
		}
		id := a.Common().ID
		if seen[id] {
			return nil, failure.Errorf(failure.InvalidInput, op, "duplicate annotation id %q", id)
		}
		seen[id] = true
		if e.PageCount > 0 && a.Common().Page > e.PageCount {
			return nil, failure.Errorf(failure.InvalidInput, op, "%s is past the last page", annotation.Describe(a))
		}
		if img, ok := a.(*annotation.Image); ok && rec.Asset != nil {
			if rec.Asset.ID != img.AssetID || len(rec.Asset.Data) == 0 {
				return nil, failure.Errorf(failure.InvalidInput, op, "image %s: embedded asset does not match", id)
			}
			if _, ok := assets[img.AssetID]; !ok {
				assets[img.AssetID] = rec.Asset
				out.Assets = append(out.Assets, rec.Asset)
			}
		}
		out.Annotations = append(out.Annotations, a.Clone())
	}
	for _, a := range out.Assets {
		out.Handles[a.ID] = handles(a)
	}

	switch {
	case len(e.PageProps) == 0:
		out.Pages = pageprops.New(e.PageCount)
	case e.PageCount > 0 && len(e.PageProps) != e.PageCount:
		return nil, failure.Errorf(failure.InvalidInput, op, "%d page properties for %d pages", len(e.PageProps), e.PageCount)
	default:
		sources := make(map[int]bool, len(e.PageProps))
		for i, p := range e.PageProps {
			if p.Source == 0 {
				continue
			}
			if sources[p.Source] || (e.PageCount > 0 && p.Source > e.PageCount) || p.Source < 0 {
				return nil, failure.Errorf(failure.InvalidInput, op, "page %d: bad source page %d", i+1, p.Source)
			}
			sources[p.Source] = true
		}
		out.Pages = pageprops.FromProps(e.PageProps)
	}
	return out, nil
}
