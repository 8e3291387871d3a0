package form

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ErrNoForm means the document decoded to null instead of a form object.
var ErrNoForm = errors.New("document holds no form")

// DecodeJSON reads a form definition in the fetch endpoint's JSON format.
func DecodeJSON(r io.Reader) (*Form, error) {
	var f *Form
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode form: %w", err)
	}
	if f == nil {
		return nil, fmt.Errorf("failed to decode form: %w", ErrNoForm)
	}
	return f, nil
}

// DecodeYAML reads a form definition written by hand in YAML.
func DecodeYAML(r io.Reader) (*Form, error) {
	var f *Form
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode form: %w", err)
	}
	if f == nil {
		return nil, fmt.Errorf("failed to decode form: %w", ErrNoForm)
	}
	return f, nil
}

// MarshalIndent renders f as indented JSON, the same shape DecodeJSON reads.
func MarshalIndent(f *Form) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("failed to encode form: %w", err)
	}
	return buf.Bytes(), nil
}
