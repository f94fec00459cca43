package editor

import (
	"context"
	"time"

	"github.com/wudi/pdfmark/export"
	"github.com/wudi/pdfmark/failure"
	"github.com/wudi/pdfmark/observability"
	"github.com/wudi/pdfmark/session"
)

// Export burns the annotations into a copy of the document. The editor
// state is snapshotted first, so editing may continue while the export
// runs; the original bytes are never touched.
func (e *Editor) Export(ctx context.Context) (*export.Result, error) {
	e.mu.Lock()
	if err := e.requireDoc(); err != nil {
		e.failLocked(err)
		e.mu.Unlock()
		return nil, err
	}
	in := export.Input{
		Document:     e.doc,
		Annotations:  e.annots.All(),
		Assets:       e.assets,
		Pages:        e.pages.Clone(),
		TextDefaults: e.tools.Defaults.Text.Style(),
		ShowComments: e.showComments,
	}
	e.mu.Unlock()

	res, err := e.pipeline.Run(ctx, in)
	if err != nil {
		return nil, e.fail(err)
	}
	e.fail(nil)
	return res, nil
}

// capture snapshots the session state. It must be called with e.mu held.
func (e *Editor) capture() *session.Entry {
	entry, missing := session.Capture(session.Source{
		Name:         e.name,
		Document:     e.doc,
		PageCount:    e.info.PageCount,
		Annotations:  e.annots.All(),
		Assets:       e.assets,
		Pages:        e.pages,
		ShowComments: e.showComments,
	}, e.now())
	if len(missing) > 0 {
		e.log.Warn("session saved without image data", observability.Strings("annotations", missing))
	}
	return entry
}

// SaveSession writes the current state to the session history now.
func (e *Editor) SaveSession(ctx context.Context) (*session.Entry, error) {
	e.mu.Lock()
	if err := e.requireDoc(); err != nil {
		e.failLocked(err)
		e.mu.Unlock()
		return nil, err
	}
	entry := e.capture()
	e.mu.Unlock()
	if err := e.history.Save(ctx, entry); err != nil {
		return nil, e.fail(err)
	}
	e.log.Info("session saved",
		observability.String("document", entry.DocumentHash),
		observability.Int("records", len(entry.Records)))
	return entry, nil
}

// saveSession is the autosave callback.
func (e *Editor) saveSession(ctx context.Context) error {
	e.mu.Lock()
	if e.doc == nil {
		e.mu.Unlock()
		return nil
	}
	entry := e.capture()
	e.mu.Unlock()
	return e.history.Save(ctx, entry)
}

// RestoreSession replaces the annotations, assets and page properties with
// those of entry. An entry saved for another document is refused with
// SessionMismatch and nothing changes; there is no merging.
func (e *Editor) RestoreSession(ctx context.Context, entry *session.Entry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireDoc(); err != nil {
		return e.failLocked(err)
	}
	start := time.Now()
	r, err := session.Restore(entry, e.doc, nil)
	if err != nil {
		if failure.KindOf(err) == failure.SessionMismatch {
			e.log.Warn("session refused", observability.String("name", entry.Name), observability.Error("error", err))
		}
		return e.failLocked(err)
	}
	if r.Pages.Count() != e.info.PageCount {
		return e.failLocked(failure.Errorf(failure.InvalidInput, "editor.RestoreSession",
			"session has %d pages, document has %d", r.Pages.Count(), e.info.PageCount))
	}
	if err := e.annots.Replace(r.Annotations); err != nil {
		return e.failLocked(err)
	}
	e.abortGesture()
	e.drafts.Cancel()
	e.assets.Replace(r.Assets)
	e.handles = r.Handles
	e.pages = r.Pages
	e.showComments = r.ShowComments
	e.selected = ""
	e.current = e.pages.Resolve(max(e.current, 1))
	e.renderGen++
	e.status = ""

	counts := r.Counts()
	fields := []observability.Field{
		observability.String("name", entry.Name),
		observability.Int("annotations", len(r.Annotations)),
		observability.Duration("elapsed", time.Since(start)),
	}
	for k, n := range counts {
		fields = append(fields, observability.Int(k.String(), n))
	}
	e.log.Info("session restored", fields...)
	return nil
}

// ResumeSession restores the latest saved session of the open document.
// ok is false when there is none.
func (e *Editor) ResumeSession(ctx context.Context) (ok bool, err error) {
	e.mu.Lock()
	if err := e.requireDoc(); err != nil {
		e.mu.Unlock()
		return false, err
	}
	hash := session.Fingerprint(e.doc)
	e.mu.Unlock()

	entry, ok, err := e.history.Find(ctx, hash)
	if err != nil || !ok {
		return false, err
	}
	if err := e.RestoreSession(ctx, entry); err != nil {
		return false, err
	}
	return true, nil
}

// ImportSession restores a session from its encoded form.
func (e *Editor) ImportSession(ctx context.Context, data []byte) error {
	entry, err := session.Decode(data)
	if err != nil {
		return e.fail(err)
	}
	return e.RestoreSession(ctx, entry)
}

// Sessions lists the saved sessions, newest first.
func (e *Editor) Sessions(ctx context.Context) ([]*session.Entry, error) {
	return e.history.Entries(ctx)
}
