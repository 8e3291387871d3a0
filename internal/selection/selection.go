// Package selection tracks which options of a choice question are selected.
//
// Two representations exist. The packed string form concatenates single
// digit option ids in selection order ("02" means option 0 then option 2);
// it is what the submit endpoint has always received and caps a question at
// ten options. Set is the general form: an ordered set of arbitrary ids,
// turned into a wire string by a Codec.
package selection

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidOptionID is returned for ids the chosen representation cannot hold.
	ErrInvalidOptionID = errors.New("invalid option id")
	// ErrInvalidState is returned when an encoded state is malformed.
	ErrInvalidState = errors.New("invalid selection state")
)

// isDigitID reports whether id is exactly one ASCII digit.
func isDigitID(id string) bool {
	return len(id) == 1 && id[0] >= '0' && id[0] <= '9'
}

// validatePacked checks that state holds only distinct digits.
func validatePacked(state string) error {
	var seen [10]bool
	for i := 0; i < len(state); i++ {
		c := state[i]
		if c < '0' || c > '9' {
			return fmt.Errorf("%w: %q contains non-digit %q", ErrInvalidState, state, c)
		}
		if seen[c-'0'] {
			return fmt.Errorf("%w: %q repeats %q", ErrInvalidState, state, c)
		}
		seen[c-'0'] = true
	}
	return nil
}

// Toggle applies one click on optionID to a packed state.
//
// In single-select mode the result is "" when optionID was the only active
// choice, otherwise optionID replaces whatever was selected. In multi-select
// mode optionID is removed if present (the rest keep their order) or appended
// if absent.
func Toggle(state, optionID string, multi bool) (string, error) {
	if !isDigitID(optionID) {
		return state, fmt.Errorf("%w: %q is not a single digit", ErrInvalidOptionID, optionID)
	}
	if err := validatePacked(state); err != nil {
		return state, err
	}

	if !multi {
		if len(state) > 1 {
			return state, fmt.Errorf("%w: %q has more than one selection in single-select mode", ErrInvalidState, state)
		}
		if state == optionID {
			return "", nil
		}
		return optionID, nil
	}

	if i := strings.Index(state, optionID); i >= 0 {
		return state[:i] + state[i+1:], nil
	}
	return state + optionID, nil
}

// IsSelected reports whether optionID occurs in the packed state.
func IsSelected(state, optionID string) bool {
	if optionID == "" {
		return false
	}
	return strings.Contains(state, optionID)
}
