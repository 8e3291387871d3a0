package session

import (
	"fmt"
	"io"

	"formwidget/internal/control"

	"gopkg.in/yaml.v3"
)

// Answer is a prepared answer: text for text questions, option ids for
// choice questions. In YAML a scalar is text and a sequence is options.
type Answer struct {
	Text    string
	Options []string
}

func (a *Answer) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&a.Text)
	case yaml.SequenceNode:
		return node.Decode(&a.Options)
	}
	return fmt.Errorf("line %d: answer must be a string or a list of option ids", node.Line)
}

// Answers maps question ids to prepared answers.
type Answers map[string]Answer

// DecodeAnswers reads an Answers document.
func DecodeAnswers(r io.Reader) (Answers, error) {
	var out Answers
	if err := yaml.NewDecoder(r).Decode(&out); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}
	if out == nil {
		out = Answers{}
	}
	return out, nil
}

// Apply feeds answers through the same controls the UI uses. Choice answers
// replace the selection; a scalar answer to a choice question is one option
// id. Unknown question ids are an error.
func (s *Session) Apply(answers Answers) error {
	if !s.Editable() {
		return fmt.Errorf("apply answers in state %s", s.State())
	}

	def := s.Form()
	for id := range answers {
		if _, ok := def.Question(id); !ok {
			return fmt.Errorf("answer for unknown question %q", id)
		}
	}

	// question order keeps pushes deterministic
	for _, c := range s.Controls() {
		a, ok := answers[c.Question().ID]
		if !ok {
			continue
		}
		switch ctl := c.(type) {
		case *control.Choice:
			ids := a.Options
			if ids == nil && a.Text != "" {
				ids = []string{a.Text}
			}
			if _, err := ctl.Select(ids...); err != nil {
				return err
			}
		case *control.Text:
			if a.Options != nil {
				return fmt.Errorf("question %q: text answer expected, got a list", ctl.Question().ID)
			}
			if _, err := ctl.SetValue(a.Text); err != nil {
				return err
			}
		}
	}
	s.log.Debug("applied %d prepared answers", len(answers))
	return nil
}
