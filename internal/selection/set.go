package selection

import (
	"fmt"
	"slices"
)

// Set is an ordered set of selected option ids. The order is the order in
// which the options were selected, not the order they are listed in.
//
// Set is a value type: Toggle returns a new Set and never mutates the
// receiver, so a Set handed to another component stays stable.
type Set struct {
	ids []string
}

// NewSet builds a Set from ids in the given order. Empty or repeated ids are
// rejected.
func NewSet(ids ...string) (Set, error) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			return Set{}, fmt.Errorf("%w: empty id", ErrInvalidOptionID)
		}
		if slices.Contains(out, id) {
			return Set{}, fmt.Errorf("%w: %q selected twice", ErrInvalidState, id)
		}
		out = append(out, id)
	}
	return Set{ids: out}, nil
}

// Toggle applies one click on id. Semantics match the packed Toggle but ids
// may be any non-empty string.
func (s Set) Toggle(id string, multi bool) (Set, error) {
	if id == "" {
		return s, fmt.Errorf("%w: empty id", ErrInvalidOptionID)
	}

	if !multi {
		if len(s.ids) == 1 && s.ids[0] == id {
			return Set{}, nil
		}
		return Set{ids: []string{id}}, nil
	}

	if i := slices.Index(s.ids, id); i >= 0 {
		next := make([]string, 0, len(s.ids)-1)
		next = append(next, s.ids[:i]...)
		next = append(next, s.ids[i+1:]...)
		return Set{ids: next}, nil
	}
	next := make([]string, len(s.ids), len(s.ids)+1)
	copy(next, s.ids)
	return Set{ids: append(next, id)}, nil
}

// Has reports whether id is selected.
func (s Set) Has(id string) bool {
	return slices.Contains(s.ids, id)
}

// IDs returns a copy of the selected ids in selection order.
func (s Set) IDs() []string {
	return append([]string{}, s.ids...)
}

// Len returns the number of selected ids.
func (s Set) Len() int {
	return len(s.ids)
}

// Equal reports whether both sets hold the same ids in the same order.
func (s Set) Equal(other Set) bool {
	return slices.Equal(s.ids, other.ids)
}

func (s Set) String() string {
	return fmt.Sprintf("%v", s.ids)
}
