package selection

import (
	"fmt"
	"strings"
)

// Codec turns a Set into the string stored in the response mapping and back.
type Codec interface {
	Name() string
	Encode(Set) (string, error)
	Decode(string) (Set, error)
}

// Codec names accepted by CodecByName.
const (
	CodecPacked    = "packed"
	CodecDelimited = "delimited"
)

// DefaultSeparator is the DelimitedCodec separator when none is given.
const DefaultSeparator = ","

// PackedCodec concatenates single digit ids. It is the format the submit
// endpoint has always received.
type PackedCodec struct{}

func (PackedCodec) Name() string { return CodecPacked }

func (PackedCodec) Encode(s Set) (string, error) {
	var sb strings.Builder
	for _, id := range s.ids {
		if !isDigitID(id) {
			return "", fmt.Errorf("%w: %q cannot be packed", ErrInvalidOptionID, id)
		}
		sb.WriteString(id)
	}
	return sb.String(), nil
}

func (PackedCodec) Decode(state string) (Set, error) {
	if err := validatePacked(state); err != nil {
		return Set{}, err
	}
	ids := make([]string, 0, len(state))
	for i := 0; i < len(state); i++ {
		ids = append(ids, state[i:i+1])
	}
	return Set{ids: ids}, nil
}

// DelimitedCodec joins ids with Sep. Ids may be any non-empty string that
// does not contain Sep.
type DelimitedCodec struct {
	Sep string
}

func (c DelimitedCodec) sep() string {
	if c.Sep == "" {
		return DefaultSeparator
	}
	return c.Sep
}

func (DelimitedCodec) Name() string { return CodecDelimited }

func (c DelimitedCodec) Encode(s Set) (string, error) {
	sep := c.sep()
	for _, id := range s.ids {
		if strings.Contains(id, sep) {
			return "", fmt.Errorf("%w: %q contains separator %q", ErrInvalidOptionID, id, sep)
		}
	}
	return strings.Join(s.ids, sep), nil
}

func (c DelimitedCodec) Decode(state string) (Set, error) {
	if state == "" {
		return Set{}, nil
	}
	return NewSet(strings.Split(state, c.sep())...)
}

// CodecByName returns the codec registered under name. An empty name selects
// the packed codec.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", CodecPacked:
		return PackedCodec{}, nil
	case CodecDelimited:
		return DelimitedCodec{Sep: DefaultSeparator}, nil
	}
	return nil, fmt.Errorf("unknown selection codec %q (valid: %s, %s)", name, CodecPacked, CodecDelimited)
}
