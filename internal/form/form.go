// Package form defines the form definition and response types shared by the
// selection encoder, the response aggregator, the transport and the TUI.
package form

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// QuestionType identifies which input control renders a question.
type QuestionType string

const (
	TypeSingleChoice          QuestionType = "single-choice"
	TypeMultiChoice           QuestionType = "multi-choice"
	TypeSingleChoiceWithImage QuestionType = "single-choice-with-image"
	TypeMultiChoiceWithImage  QuestionType = "multi-choice-with-image"
	TypeShortAnswer           QuestionType = "short-answer"
	TypeLongAnswer            QuestionType = "long-answer"
)

// AllTypes lists every supported question type.
var AllTypes = []QuestionType{
	TypeSingleChoice,
	TypeMultiChoice,
	TypeSingleChoiceWithImage,
	TypeMultiChoiceWithImage,
	TypeShortAnswer,
	TypeLongAnswer,
}

// IsKnown reports whether t is one of AllTypes.
func (t QuestionType) IsKnown() bool {
	for _, k := range AllTypes {
		if k == t {
			return true
		}
	}
	return false
}

// IsChoice reports whether answers are selections from a fixed option list.
func (t QuestionType) IsChoice() bool {
	switch t {
	case TypeSingleChoice, TypeMultiChoice, TypeSingleChoiceWithImage, TypeMultiChoiceWithImage:
		return true
	}
	return false
}

// IsMultiSelect reports whether more than one option may be selected at once.
func (t QuestionType) IsMultiSelect() bool {
	return t == TypeMultiChoice || t == TypeMultiChoiceWithImage
}

// HasImages reports whether options carry an image reference.
func (t QuestionType) HasImages() bool {
	return t == TypeSingleChoiceWithImage || t == TypeMultiChoiceWithImage
}

// IsText reports whether the answer is free text.
func (t QuestionType) IsText() bool {
	return t == TypeShortAnswer || t == TypeLongAnswer
}

// Option is one selectable item of a choice question.
type Option struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Subtitle string `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Image    string `json:"image,omitempty" yaml:"image,omitempty"`
}

// Question is one item in a form.
type Question struct {
	ID          string       `json:"id" yaml:"id"`
	Type        QuestionType `json:"type" yaml:"type"`
	Prompt      string       `json:"prompt" yaml:"prompt"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Placeholder string       `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Required    bool         `json:"required" yaml:"required"`
	Default     string       `json:"default,omitempty" yaml:"default,omitempty"`
	Options     []Option     `json:"options,omitempty" yaml:"options,omitempty"`
}

// Option returns the option with the given id.
func (q Question) Option(id string) (Option, bool) {
	for _, o := range q.Options {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// Form is a form definition as served by the fetch endpoint.
type Form struct {
	ID             string     `json:"id" yaml:"id"`
	Name           string     `json:"name" yaml:"name"`
	Description    string     `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt      Timestamp  `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	StillAccepting bool       `json:"stillAccepting" yaml:"stillAccepting"`
	Questions      []Question `json:"questions" yaml:"questions"`
}

// Timestamp is the form's creation time exactly as the server wrote it.
// Servers send it in different formats and nothing here interprets it, so
// any scalar is accepted and kept as text.
type Timestamp string

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Timestamp(s)
	case len(data) > 0 && (data[0] == '{' || data[0] == '['):
		return fmt.Errorf("createdAt must be a scalar, got %s", data[:1])
	default:
		*t = Timestamp(data)
	}
	return nil
}

func (t *Timestamp) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("createdAt must be a scalar (line %d)", node.Line)
	}
	if node.Tag == "!!null" {
		*t = ""
		return nil
	}
	*t = Timestamp(node.Value)
	return nil
}

// ErrInvalidForm is returned by Validate.
var ErrInvalidForm = errors.New("invalid form")

// Validate checks the structural invariants the controls rely on: non-empty
// and unique question ids, known types, and non-empty unique option ids on
// choice questions. Options on text questions are ignored. It does not
// validate content.
func (f *Form) Validate() error {
	seen := make(map[string]bool, len(f.Questions))
	for i, q := range f.Questions {
		if q.ID == "" {
			return fmt.Errorf("%w: question %d has no id", ErrInvalidForm, i)
		}
		if seen[q.ID] {
			return fmt.Errorf("%w: duplicate question id %q", ErrInvalidForm, q.ID)
		}
		seen[q.ID] = true

		if !q.Type.IsKnown() {
			return fmt.Errorf("%w: question %q has unknown type %q", ErrInvalidForm, q.ID, q.Type)
		}
		if !q.Type.IsChoice() {
			continue
		}
		if len(q.Options) == 0 {
			return fmt.Errorf("%w: choice question %q has no options", ErrInvalidForm, q.ID)
		}
		optIDs := make(map[string]bool, len(q.Options))
		for _, o := range q.Options {
			if o.ID == "" {
				return fmt.Errorf("%w: question %q has an option without id", ErrInvalidForm, q.ID)
			}
			if optIDs[o.ID] {
				return fmt.Errorf("%w: question %q has duplicate option id %q", ErrInvalidForm, q.ID, o.ID)
			}
			optIDs[o.ID] = true
		}
	}
	return nil
}

// Entry is one answer in a response mapping.
type Entry struct {
	QuestionID string `json:"questionId" yaml:"questionId"`
	Value      string `json:"value" yaml:"value"`
}

// FormResponse is the payload handed to the submit endpoint.
type FormResponse struct {
	FormID            string  `json:"formId"`
	QuestionResponses []Entry `json:"questionResponses"`
}
