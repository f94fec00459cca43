package failure

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindMatchesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("export: %w", New(MissingOverlaySize, "coords.ToDocumentRect", errors.New("overlay 0x0")))
	if !errors.Is(err, ErrMissingOverlaySize) {
		t.Fatalf("expected MissingOverlaySize to match, got %v", err)
	}
	if errors.Is(err, ErrInvalidInput) {
		t.Fatalf("kinds must not cross-match")
	}
	if KindOf(err) != MissingOverlaySize {
		t.Fatalf("KindOf = %v", KindOf(err))
	}
}

func TestMessageIsNonTechnical(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{Errorf(SessionMismatch, "session.Restore", "hash %x", []byte{1}), "The saved session belongs to a different document."},
		{errors.New("boom"), "Something went wrong."},
	}
	for _, tt := range tests {
		if got := Message(tt.err); got != tt.want {
			t.Errorf("Message(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestErrorString(t *testing.T) {
	err := New(InvalidInput, "pageprops.ParseRange", errors.New(`bad token "x"`))
	if got := err.Error(); got != `pageprops.ParseRange: bad token "x"` {
		t.Fatalf("unexpected error text %q", got)
	}
	if got := ErrAssetNotFound.Error(); got != "AssetNotFound" {
		t.Fatalf("unexpected sentinel text %q", got)
	}
}
