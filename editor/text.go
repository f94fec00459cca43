package editor

import (
	"github.com/wudi/pdfmark/annotation"
	"github.com/wudi/pdfmark/failure"
	"github.com/wudi/pdfmark/richtext"
)

func (e *Editor) textAnnotation(op, id string) (*annotation.Text, error) {
	a, ok := e.annots.Get(id)
	if !ok {
		return nil, failure.Errorf(failure.InvalidInput, op, "no annotation %q", id)
	}
	t, ok := a.(*annotation.Text)
	if !ok {
		return nil, failure.Errorf(failure.InvalidInput, op, "%s is not a text annotation", annotation.Describe(a))
	}
	return t, nil
}

// TextRegion builds the editable tree of a text annotation.
func (e *Editor) TextRegion(id string) (*richtext.Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, err := e.textAnnotation("editor.TextRegion", id)
	if err != nil {
		return nil, e.failLocked(err)
	}
	return richtext.Render(t.Spans, t.BaseStyle(e.tools.Defaults.Text.Style())), nil
}

// EditText stores the content of an edited region. Spans and text are both
// derived from root.
func (e *Editor) EditText(id string, root *richtext.Node) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	defaults := e.tools.Defaults.Text.Style()
	err := e.annots.Update(id, func(a annotation.Annotation) error {
		t, ok := a.(*annotation.Text)
		if !ok {
			return failure.Errorf(failure.InvalidInput, "editor.EditText", "%s is not a text annotation", annotation.Describe(a))
		}
		t.SetSpans(richtext.Serialize(root, t.BaseStyle(defaults)))
		return nil
	})
	if err != nil {
		return e.failLocked(err)
	}
	e.changed()
	return nil
}

// ApplyStyle applies patch under the selection rules. With a selection in
// the region of text annotation id, only the selected characters change.
// Without one the style of new content changes: the base size and color of
// the annotation id, or the tool defaults when id is empty. Bold, italic
// and underline of new content always live in the tool defaults.
func (e *Editor) ApplyStyle(id string, root *richtext.Node, sel *richtext.Range, patch richtext.Patch) (richtext.StyleChange, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch, err := e.applyStyle(id, root, sel, patch)
	return ch, e.failLocked(err)
}

func (e *Editor) applyStyle(id string, root *richtext.Node, sel *richtext.Range, patch richtext.Patch) (richtext.StyleChange, error) {
	const op = "editor.ApplyStyle"
	defaults := e.tools.Defaults.Text.Style()
	if id == "" {
		ch, err := richtext.ChangeStyle(nil, nil, patch, defaults)
		if err != nil {
			return ch, err
		}
		e.setTextDefaults(ch.Defaults)
		return ch, nil
	}
	t, err := e.textAnnotation(op, id)
	if err != nil {
		return richtext.StyleChange{}, err
	}
	if root == nil {
		root = richtext.Render(t.Spans, t.BaseStyle(defaults))
	}
	ch, err := richtext.ChangeStyle(root, sel, patch, t.BaseStyle(defaults))
	if err != nil {
		return ch, failure.New(failure.InvalidInput, op, err)
	}
	err = e.annots.Update(id, func(a annotation.Annotation) error {
		t := a.(*annotation.Text)
		if ch.Restyled {
			t.SetSpans(ch.Spans)
			return nil
		}
		t.FontSize = ch.Defaults.FontSize
		c := ch.Defaults.Color
		t.Color = &c
		return nil
	})
	if err != nil {
		return ch, err
	}
	if !ch.Restyled {
		st := patch.Apply(defaults)
		d := &e.tools.Defaults.Text
		d.Bold, d.Italic, d.Underline = st.Bold, st.Italic, st.Underline
	}
	e.changed()
	return ch, nil
}

func (e *Editor) setTextDefaults(st annotation.Style) {
	d := &e.tools.Defaults.Text
	d.Bold, d.Italic, d.Underline = st.Bold, st.Italic, st.Underline
	d.FontSize, d.Color = st.FontSize, st.Color
}

// ToggleStyle flips attr. With a selection the flag is set unless every
// selected character already has it; without one the flag of new content
// is flipped.
func (e *Editor) ToggleStyle(id string, root *richtext.Node, sel *richtext.Range, attr richtext.Attr) (richtext.StyleChange, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defaults := e.tools.Defaults.Text.Style()
	var patch richtext.Patch
	if id != "" && sel != nil && !sel.Collapsed() {
		t, err := e.textAnnotation("editor.ToggleStyle", id)
		if err != nil {
			return richtext.StyleChange{}, e.failLocked(err)
		}
		if root == nil {
			root = richtext.Render(t.Spans, t.BaseStyle(defaults))
		}
		patch = richtext.Toggle(root, t.BaseStyle(defaults), *sel, attr)
	} else {
		patch = attr.Patch(!flag(defaults, attr))
	}
	ch, err := e.applyStyle(id, root, sel, patch)
	return ch, e.failLocked(err)
}

func flag(st annotation.Style, attr richtext.Attr) bool {
	switch attr {
	case richtext.AttrBold:
		return st.Bold
	case richtext.AttrItalic:
		return st.Italic
	}
	return st.Underline
}

// ImportMarkdown replaces the content of a text annotation with markdown.
func (e *Editor) ImportMarkdown(id, source string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, err := e.textAnnotation("editor.ImportMarkdown", id)
	if err != nil {
		return e.failLocked(err)
	}
	base := t.BaseStyle(e.tools.Defaults.Text.Style())
	root := richtext.FromMarkdown(source, base)
	err = e.annots.Update(id, func(a annotation.Annotation) error {
		a.(*annotation.Text).SetSpans(richtext.Serialize(root, base))
		return nil
	})
	if err != nil {
		return e.failLocked(err)
	}
	e.changed()
	return nil
}
