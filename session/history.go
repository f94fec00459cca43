package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wudi/pdfmark/failure"
	"github.com/wudi/pdfmark/storage"
)

// DefaultHistoryLimit bounds the number of remembered sessions.
const DefaultHistoryLimit = 10

// History is the list of saved sessions, newest first, with at most one
// entry per document.
type History struct {
	store storage.Store
	limit int
}

func NewHistory(store storage.Store, limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{store: store, limit: limit}
}

// Entries returns the saved sessions. A missing list is empty.
func (h *History) Entries(ctx context.Context) ([]*Entry, error) {
	data, ok, err := h.store.Get(ctx, storage.KeySessionHistory)
	if err != nil {
		return nil, fmt.Errorf("session history: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, failure.New(failure.InvalidInput, "session.History", err)
	}
	out := make([]*Entry, 0, len(raw))
	for _, r := range raw {
		e, err := Decode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Find returns the session saved for the document with the given hash.
func (h *History) Find(ctx context.Context, hash string) (*Entry, bool, error) {
	entries, err := h.Entries(ctx)
	if err != nil {
		return nil, false, err
	}
	for _, e := range entries {
		if e.DocumentHash == hash {
			return e, true, nil
		}
	}
	return nil, false, nil
}

// Save puts e at the front, replacing any entry for the same document, and
// trims the list to the limit.
func (h *History) Save(ctx context.Context, e *Entry) error {
	entries, err := h.Entries(ctx)
	if err != nil {
		// An unreadable list is replaced rather than blocking every save.
		entries = nil
	}
	next := []*Entry{e}
	for _, old := range entries {
		if old.DocumentHash != e.DocumentHash && len(next) < h.limit {
			next = append(next, old)
		}
	}
	return h.write(ctx, next)
}

// Remove drops the entry for hash.
func (h *History) Remove(ctx context.Context, hash string) error {
	entries, err := h.Entries(ctx)
	if err != nil {
		return err
	}
	next := entries[:0]
	for _, e := range entries {
		if e.DocumentHash != hash {
			next = append(next, e)
		}
	}
	return h.write(ctx, next)
}

func (h *History) write(ctx context.Context, entries []*Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("session history: %w", err)
	}
	if err := h.store.Put(ctx, storage.KeySessionHistory, data); err != nil {
		return fmt.Errorf("session history: %w", err)
	}
	return nil
}
