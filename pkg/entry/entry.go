// Package entry maps question datatypes to codec/validator pairs. Each entry
// validates raw user input, encodes it into a typed answer, and decodes wire
// answers from server snapshots into the same canonical shape so the two can
// be compared structurally.
package entry

import (
	"strings"

	"github.com/goliatone/go-formplayer/pkg/answer"
)

// Datatype tags a question with the entry that should drive it. The values
// match the wire names used by the form server.
type Datatype string

const (
	DatatypeString      Datatype = "str"
	DatatypeInt         Datatype = "int"
	DatatypeLongInt     Datatype = "longint"
	DatatypeFloat       Datatype = "float"
	DatatypeSelect      Datatype = "select"
	DatatypeMultiSelect Datatype = "multiselect"
	DatatypeDate        Datatype = "date"
	DatatypeTime        Datatype = "time"
	DatatypeDateTime    Datatype = "datetime"
	DatatypeGeo         Datatype = "geo"
	DatatypeInfo        Datatype = "info"
)

// StyleNumeric is the appearance style that turns a string question into a
// phone/numeric-id entry.
const StyleNumeric = "numeric"

// Raw is unprocessed user input: a string for single-valued entries, []int for
// multiselect, []float64 for geopoint.
type Raw any

// Entry is the per-datatype codec and validator contract. Implementations are
// stateless; ErrorMessage and Encode are pure.
type Entry interface {
	// Datatype reports the tag this entry serves.
	Datatype() Datatype

	// ErrorMessage validates raw input and returns a human-readable message,
	// or "" when the input is valid.
	ErrorMessage(raw Raw, choices []string) string

	// Encode converts valid raw input into a typed answer, or answer.NoAnswer
	// for explicitly blank input. Callers must check ErrorMessage first;
	// Encode on invalid input is unspecified.
	Encode(raw Raw) answer.Value

	// Decode converts a wire answer from a server snapshot into the entry's
	// canonical typed shape so it compares cleanly against encoded input.
	Decode(wire any) answer.Value

	// Answerable reports whether the entry ever produces answer intents.
	// Display-only entries return false.
	Answerable() bool
}

// IsValid reports whether raw input passes e's validation.
func IsValid(e Entry, raw Raw, choices []string) bool {
	return e.ErrorMessage(raw, choices) == ""
}

// ForDatatype resolves the entry for a datatype and appearance style.
// Unrecognized datatypes resolve to an always-invalid unsupported entry rather
// than an error so a form with one exotic question stays usable.
func ForDatatype(datatype Datatype, style string) Entry {
	switch datatype {
	case DatatypeString:
		if hasStyle(style, StyleNumeric) {
			return Phone{}
		}
		return FreeText{}
	case DatatypeInt:
		return Int{Limit: intValueLimit}
	case DatatypeLongInt:
		return Int{datatype: DatatypeLongInt, Limit: longIntValueLimit}
	case DatatypeFloat:
		return Float{}
	case DatatypeSelect:
		return Select{}
	case DatatypeMultiSelect:
		return MultiSelect{}
	case DatatypeDate:
		return Date{}
	case DatatypeTime:
		return Time{}
	case DatatypeDateTime:
		return DateTime{}
	case DatatypeGeo:
		return Geo{}
	case DatatypeInfo:
		return Info{}
	default:
		return Unsupported{datatype: datatype}
	}
}

func hasStyle(style, want string) bool {
	for _, s := range strings.Fields(style) {
		if s == want {
			return true
		}
	}
	return false
}
