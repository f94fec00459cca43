package failure

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the caller and for the status line.
type Kind int

const (
	Unknown Kind = iota
	InvalidInput
	MissingOverlaySize
	AssetNotFound
	SessionMismatch
	DocumentServiceFailure
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case MissingOverlaySize:
		return "MissingOverlaySize"
	case AssetNotFound:
		return "AssetNotFound"
	case SessionMismatch:
		return "SessionMismatch"
	case DocumentServiceFailure:
		return "DocumentServiceFailure"
	}
	return "Unknown"
}

// Sentinels usable with errors.Is. Any *Error of the same kind matches.
var (
	ErrInvalidInput       = &Error{Kind: InvalidInput}
	ErrMissingOverlaySize = &Error{Kind: MissingOverlaySize}
	ErrAssetNotFound      = &Error{Kind: AssetNotFound}
	ErrSessionMismatch    = &Error{Kind: SessionMismatch}
	ErrDocumentService    = &Error{Kind: DocumentServiceFailure}
)

// Error is a classified error raised by an editor operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return e.Op + ": " + e.Kind.String()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so that wrapped errors match the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// New wraps err with a kind and the failing operation.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf is New with a formatted cause.
func Errorf(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost classified error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Message returns the short status text shown to the user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case InvalidInput:
		return "That input could not be used. Check the file or value and try again."
	case MissingOverlaySize:
		return "An annotation has no recorded page size and could not be placed."
	case AssetNotFound:
		return "An image used by an annotation is missing."
	case SessionMismatch:
		return "The saved session belongs to a different document."
	case DocumentServiceFailure:
		return "The document could not be processed."
	}
	return "Something went wrong."
}
