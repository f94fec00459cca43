package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/wudi/pdfmark/failure"
	"github.com/wudi/pdfmark/fonts"
	"github.com/wudi/pdfmark/storage"
)

// SignatureProfile is the saved name used by the signature tool.
type SignatureProfile struct {
	Name     string `json:"name"`
	Initials string `json:"initials"`
	FontID   string `json:"fontId"`
}

// NewSignatureProfile derives initials and a decorative font from name.
func NewSignatureProfile(name string) (SignatureProfile, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return SignatureProfile{}, failure.Errorf(failure.InvalidInput, "session.SignatureProfile", "empty name")
	}
	return SignatureProfile{Name: name, Initials: Initials(name), FontID: fonts.SignatureFontFor(name)}, nil
}

// Initials returns the upper-cased first letter of each word.
func Initials(name string) string {
	var sb strings.Builder
	for _, w := range strings.Fields(name) {
		for _, r := range w {
			if unicode.IsLetter(r) {
				sb.WriteRune(unicode.ToUpper(r))
				break
			}
		}
	}
	return sb.String()
}

// LoadProfile reads the saved profile; ok is false when none is saved.
func LoadProfile(ctx context.Context, store storage.Store) (p SignatureProfile, ok bool, err error) {
	data, ok, err := store.Get(ctx, storage.KeySignatureProfile)
	if err != nil || !ok {
		return SignatureProfile{}, false, err
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return SignatureProfile{}, false, failure.New(failure.InvalidInput, "session.LoadProfile", err)
	}
	return p, true, nil
}

func SaveProfile(ctx context.Context, store storage.Store, p SignatureProfile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := store.Put(ctx, storage.KeySignatureProfile, data); err != nil {
		return fmt.Errorf("save signature profile: %w", err)
	}
	return nil
}
