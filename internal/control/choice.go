package control

import (
	"fmt"

	"formwidget/internal/form"
	"formwidget/internal/response"
	"formwidget/internal/selection"
)

// Choice is the state of a single- or multi-choice question.
type Choice struct {
	question form.Question
	multi    bool
	codec    selection.Codec
	updater  response.Updater

	set     selection.Set
	value   string
	touched bool
	cursor  int
}

// NewChoice builds a choice control. Every option id must be representable by
// codec; a non-empty question default is decoded and pushed once.
func NewChoice(q form.Question, updater response.Updater, codec selection.Codec) (*Choice, error) {
	if !q.Type.IsChoice() {
		return nil, fmt.Errorf("question %q: %q is not a choice type", q.ID, q.Type)
	}
	if codec == nil {
		codec = selection.PackedCodec{}
	}
	for _, o := range q.Options {
		one, err := selection.NewSet(o.ID)
		if err != nil {
			return nil, fmt.Errorf("question %q: %w", q.ID, err)
		}
		if _, err := codec.Encode(one); err != nil {
			return nil, fmt.Errorf("question %q: %s codec: %w", q.ID, codec.Name(), err)
		}
	}

	c := &Choice{
		question: q,
		multi:    q.Type.IsMultiSelect(),
		codec:    codec,
		updater:  updater,
	}

	if q.Default != "" {
		set, err := codec.Decode(q.Default)
		if err != nil {
			return nil, fmt.Errorf("question %q default: %w", q.ID, err)
		}
		if !c.multi && set.Len() > 1 {
			return nil, fmt.Errorf("question %q default: %w: %d selections on a single-choice question",
				q.ID, selection.ErrInvalidState, set.Len())
		}
		for _, id := range set.IDs() {
			if _, ok := q.Option(id); !ok {
				return nil, fmt.Errorf("question %q default: %w %q", q.ID, ErrUnknownOption, id)
			}
		}
		if err := c.apply(set); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Choice) Question() form.Question { return c.question }
func (c *Choice) Value() string           { return c.value }
func (c *Choice) Multi() bool             { return c.multi }

// Selection returns the current selection.
func (c *Choice) Selection() selection.Set { return c.set }

// IsSelected reports whether optionID is currently selected.
func (c *Choice) IsSelected(optionID string) bool { return c.set.Has(optionID) }

func (c *Choice) Invalid() bool { return c.touched && c.Missing() }

func (c *Choice) Missing() bool { return c.question.Required && c.set.Len() == 0 }

// Toggle applies a click on optionID and reports whether the answer changed.
func (c *Choice) Toggle(optionID string) (bool, error) {
	if _, ok := c.question.Option(optionID); !ok {
		return false, fmt.Errorf("question %q: %w %q", c.question.ID, ErrUnknownOption, optionID)
	}
	next, err := c.set.Toggle(optionID, c.multi)
	if err != nil {
		return false, err
	}
	c.touched = true
	before := c.value
	if err := c.apply(next); err != nil {
		return false, err
	}
	return c.value != before, nil
}

// Select replaces the whole selection with ids, in order. It is how
// answers supplied up front (not clicked) are applied.
func (c *Choice) Select(ids ...string) (bool, error) {
	for _, id := range ids {
		if _, ok := c.question.Option(id); !ok {
			return false, fmt.Errorf("question %q: %w %q", c.question.ID, ErrUnknownOption, id)
		}
	}
	if !c.multi && len(ids) > 1 {
		return false, fmt.Errorf("question %q: %w: %d selections on a single-choice question",
			c.question.ID, selection.ErrInvalidState, len(ids))
	}
	next, err := selection.NewSet(ids...)
	if err != nil {
		return false, fmt.Errorf("question %q: %w", c.question.ID, err)
	}
	c.touched = true
	before := c.value
	if err := c.apply(next); err != nil {
		return false, err
	}
	return c.value != before, nil
}

// apply encodes next and pushes it if the encoded value differs.
func (c *Choice) apply(next selection.Set) error {
	encoded, err := c.codec.Encode(next)
	if err != nil {
		return fmt.Errorf("question %q: %w", c.question.ID, err)
	}
	if encoded != c.value {
		if err := c.updater.Update(c.question.ID, encoded); err != nil {
			return err
		}
	}
	c.set = next
	c.value = encoded
	return nil
}

// Cursor is the index of the highlighted option.
func (c *Choice) Cursor() int { return c.cursor }

// MoveCursor moves the highlight by delta, clamped to the option list.
func (c *Choice) MoveCursor(delta int) {
	c.cursor += delta
	if c.cursor < 0 {
		c.cursor = 0
	}
	if last := len(c.question.Options) - 1; c.cursor > last {
		c.cursor = last
	}
}

// ToggleCursor toggles the highlighted option.
func (c *Choice) ToggleCursor() (bool, error) {
	if len(c.question.Options) == 0 {
		return false, nil
	}
	return c.Toggle(c.question.Options[c.cursor].ID)
}
