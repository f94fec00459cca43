// Package session flattens the editor state into a self-contained,
// persistable entry and rebuilds it, refusing entries that were saved for
// a different document.
package session

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/failure"
	"github.com/wudi/pdfmark/pageprops"
)

// Version is the entry layout written by Encode.
const Version = 1

// Fingerprint is the content hash stored with an entry.
func Fingerprint(doc []byte) string {
	sum := blake2b.Sum256(doc)
	return hex.EncodeToString(sum[:])
}

// Record is one annotation in persisted form. Image records carry a copy of
// their asset so that an entry does not depend on anything in memory.
//
// On the wire a record is a single object: the annotation's own fields plus
// "type" and, for images, "asset".
type Record struct {
	Annotation annotation.Annotation
	Asset      *annotation.Asset
}

func (r Record) MarshalJSON() ([]byte, error) {
	if r.Annotation == nil {
		return nil, fmt.Errorf("session: empty record")
	}
	body, err := json.Marshal(r.Annotation)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	if fields["type"], err = json.Marshal(r.Annotation.Kind().String()); err != nil {
		return nil, err
	}
	if r.Asset != nil {
		if fields["asset"], err = json.Marshal(r.Asset); err != nil {
			return nil, err
		}
	}
	return json.Marshal(fields)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var head struct {
		Type  string            `json:"type"`
		Asset *annotation.Asset `json:"asset"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	kind, err := annotation.ParseKind(head.Type)
	if err != nil {
		return err
	}
	a := blank(kind)
	if err := json.Unmarshal(data, a); err != nil {
		return fmt.Errorf("%s record: %w", kind, err)
	}
	r.Annotation, r.Asset = a, head.Asset
	return nil
}

func blank(k annotation.Kind) annotation.Annotation {
	switch k {
	case annotation.KindImage:
		return &annotation.Image{}
	case annotation.KindText:
		return &annotation.Text{}
	case annotation.KindSignature:
		return &annotation.Signature{}
	case annotation.KindDraw:
		return &annotation.Draw{}
	case annotation.KindHighlight:
		return &annotation.Highlight{}
	case annotation.KindShape:
		return &annotation.Shape{}
	case annotation.KindComment:
		return &annotation.Comment{}
	case annotation.KindStamp:
		return &annotation.Stamp{}
	}
	panic(fmt.Sprintf("session: no record type for %v", k))
}

// Entry is one saved session.
type Entry struct {
	Version      int               `json:"version"`
	DocumentHash string            `json:"documentHash"`
	Name         string            `json:"name"`
	SavedAt      time.Time         `json:"savedAt"`
	PageCount    int               `json:"pageCount"`
	Records      []Record          `json:"records"`
	PageProps    []pageprops.Props `json:"pageProps,omitempty"`
	ShowComments bool              `json:"showComments"`
}

// Encode serialises e.
func Encode(e *Entry) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("session: encode: %w", err)
	}
	return data, nil
}

// Decode parses an entry written by Encode.
func Decode(data []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, failure.New(failure.InvalidInput, "session.Decode", err)
	}
	if e.Version < 1 || e.Version > Version {
		return nil, failure.Errorf(failure.InvalidInput, "session.Decode", "unsupported session version %d", e.Version)
	}
	return &e, nil
}
