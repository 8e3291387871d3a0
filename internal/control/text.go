package control

import (
	"fmt"

	"formwidget/internal/form"
	"formwidget/internal/response"
)

// Text is the state of a short- or long-answer question.
type Text struct {
	question form.Question
	updater  response.Updater

	value   string
	invalid bool
}

// NewText builds a text control, pushing the question default if it has one.
func NewText(q form.Question, updater response.Updater) (*Text, error) {
	if !q.Type.IsText() {
		return nil, fmt.Errorf("question %q: %q is not a text type", q.ID, q.Type)
	}
	t := &Text{question: q, updater: updater}
	if q.Default != "" {
		if err := updater.Update(q.ID, q.Default); err != nil {
			return nil, err
		}
		t.value = q.Default
	}
	return t, nil
}

func (t *Text) Question() form.Question { return t.question }
func (t *Text) Value() string           { return t.value }
func (t *Text) Multiline() bool         { return t.question.Type == form.TypeLongAnswer }

// Invalid is recomputed on every edit: a required field that was edited back
// to empty is invalid until it is non-empty again. An untouched field is
// never flagged.
func (t *Text) Invalid() bool { return t.invalid }

func (t *Text) Missing() bool { return t.question.Required && t.value == "" }

// SetValue records an edit and reports whether the answer changed.
func (t *Text) SetValue(v string) (bool, error) {
	t.invalid = t.question.Required && v == ""
	if v == t.value {
		return false, nil
	}
	if err := t.updater.Update(t.question.ID, v); err != nil {
		return false, err
	}
	t.value = v
	return true, nil
}
