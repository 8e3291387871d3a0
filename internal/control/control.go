// Package control holds the per-question editing state behind each rendered
// input. A control owns its local state and pushes its answer into a
// response.Updater whenever, and only when, that answer changes.
package control

import (
	"errors"
	"fmt"

	"formwidget/internal/form"
	"formwidget/internal/response"
	"formwidget/internal/selection"
)

// ErrUnknownOption is returned when a toggle names an option the question
// does not have.
var ErrUnknownOption = errors.New("unknown option")

// Control is the state of one rendered question.
type Control interface {
	Question() form.Question
	// Value is the answer as last pushed to the updater.
	Value() string
	// Invalid reports whether an inline error should be shown.
	Invalid() bool
	// Missing reports whether the question is required and unanswered.
	Missing() bool
}

// New builds the control matching q's type.
func New(q form.Question, updater response.Updater, codec selection.Codec) (Control, error) {
	switch {
	case q.Type.IsChoice():
		return NewChoice(q, updater, codec)
	case q.Type.IsText():
		return NewText(q, updater)
	}
	return nil, fmt.Errorf("question %q: no control for type %q", q.ID, q.Type)
}

// BuildAll builds one control per question, in order.
func BuildAll(questions []form.Question, updater response.Updater, codec selection.Codec) ([]Control, error) {
	out := make([]Control, 0, len(questions))
	for _, q := range questions {
		c, err := New(q, updater, codec)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
