package entry

import (
	"fmt"
	"regexp"

	"github.com/goliatone/go-formplayer/pkg/answer"
)

// FreeText accepts any string. Empty input is a valid, explicitly blank
// answer, not an error.
type FreeText struct{}

func (FreeText) Datatype() Datatype { return DatatypeString }

func (FreeText) ErrorMessage(raw Raw, _ []string) string {
	if _, ok := rawString(raw); !ok {
		return "Free response answers must be text"
	}
	return ""
}

func (FreeText) Encode(raw Raw) answer.Value {
	s, _ := rawString(raw)
	if s == "" {
		return answer.NoAnswer
	}
	return s
}

func (FreeText) Decode(wire any) answer.Value { return decodeString(wire) }

func (FreeText) Answerable() bool { return true }

// phonePattern accepts digits with an optional leading sign and at most one
// decimal point.
var phonePattern = regexp.MustCompile(`^[+-]?\d*(\.\d+)?$`)

// Phone is free text constrained to phone/numeric-id characters.
type Phone struct{}

func (Phone) Datatype() Datatype { return DatatypeString }

func (Phone) ErrorMessage(raw Raw, _ []string) string {
	s, ok := rawString(raw)
	if !ok {
		return "Phone answers must be text"
	}
	if s == "" {
		return ""
	}
	if !phonePattern.MatchString(s) {
		return "This does not appear to be a valid phone/numeric number"
	}
	return ""
}

func (Phone) Encode(raw Raw) answer.Value {
	s, _ := rawString(raw)
	if s == "" {
		return answer.NoAnswer
	}
	return s
}

func (Phone) Decode(wire any) answer.Value { return decodeString(wire) }

func (Phone) Answerable() bool { return true }

// Info is a display-only label. It validates everything and never produces an
// answer intent.
type Info struct{}

func (Info) Datatype() Datatype { return DatatypeInfo }

func (Info) ErrorMessage(Raw, []string) string { return "" }

func (Info) Encode(Raw) answer.Value { return answer.NoAnswer }

func (Info) Decode(any) answer.Value { return answer.NoAnswer }

func (Info) Answerable() bool { return false }

// Unsupported stands in for datatypes the player cannot drive.
type Unsupported struct {
	datatype Datatype
}

func (u Unsupported) Datatype() Datatype { return u.datatype }

func (u Unsupported) ErrorMessage(Raw, []string) string {
	return fmt.Sprintf("%q questions are not supported", string(u.datatype))
}

func (Unsupported) Encode(Raw) answer.Value { return answer.NoAnswer }

func (Unsupported) Decode(wire any) answer.Value { return answer.Normalize(wire) }

func (Unsupported) Answerable() bool { return false }

func rawString(raw Raw) (string, bool) {
	if raw == nil {
		return "", true
	}
	s, ok := raw.(string)
	return s, ok
}

func decodeString(wire any) answer.Value {
	switch t := wire.(type) {
	case nil:
		return answer.NoAnswer
	case string:
		if t == "" {
			return answer.NoAnswer
		}
		return t
	default:
		return answer.Normalize(wire)
	}
}
