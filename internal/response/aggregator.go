// Package response owns the answers of one form session.
//
// The Aggregator is the only mutable store of answers. Question controls are
// handed an Updater and never see each other's state or the mapping itself.
package response

import (
	"errors"
	"fmt"
	"sync"

	"formwidget/internal/form"
)

// ErrUnknownQuestion means an update named a question the aggregator was not
// initialized with. It indicates the controls and the aggregator were built
// from different question sets.
var ErrUnknownQuestion = errors.New("unknown question")

// Updater is the single write entry point given to question controls.
type Updater interface {
	Update(questionID, value string) error
}

// Aggregator maps question ids to their current answer, in question order.
// Entries are created once by New and never reordered or resized.
type Aggregator struct {
	mu      sync.RWMutex
	entries []form.Entry
	index   map[string]int
}

var _ Updater = (*Aggregator)(nil)

// New initializes one empty entry per question, in question order.
func New(questions []form.Question) *Aggregator {
	a := &Aggregator{
		entries: make([]form.Entry, len(questions)),
		index:   make(map[string]int, len(questions)),
	}
	for i, q := range questions {
		a.entries[i] = form.Entry{QuestionID: q.ID}
		a.index[q.ID] = i
	}
	return a
}

// Update replaces the value of the entry for questionID.
func (a *Aggregator) Update(questionID, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	i, ok := a.index[questionID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQuestion, questionID)
	}
	a.entries[i].Value = value
	return nil
}

// Value returns the current answer for questionID.
func (a *Aggregator) Value(questionID string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	i, ok := a.index[questionID]
	if !ok {
		return "", false
	}
	return a.entries[i].Value, true
}

// Len returns the number of entries.
func (a *Aggregator) Len() int {
	return len(a.entries)
}

// Snapshot returns a copy of the mapping. Later updates do not affect it.
func (a *Aggregator) Snapshot() []form.Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]form.Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Response packages a snapshot with the form id for submission.
func (a *Aggregator) Response(formID string) form.FormResponse {
	return form.FormResponse{
		FormID:            formID,
		QuestionResponses: a.Snapshot(),
	}
}
