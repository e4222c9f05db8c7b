package entry

import (
	"github.com/goliatone/go-formplayer/pkg/answer"
)

// Select is a single choice out of a question's choice list. Raw input and the
// encoded answer are both the 1-based index of the chosen option.
type Select struct{}

func (Select) Datatype() Datatype { return DatatypeSelect }

func (Select) ErrorMessage(raw Raw, choices []string) string {
	idx, ok := rawIndex(raw)
	if !ok {
		return "Not a valid choice"
	}
	if idx == 0 {
		return ""
	}
	if idx < 1 || idx > len(choices) {
		return "Not a valid choice"
	}
	return ""
}

func (Select) Encode(raw Raw) answer.Value {
	idx, _ := rawIndex(raw)
	if idx == 0 {
		return answer.NoAnswer
	}
	return int64(idx)
}

func (Select) Decode(wire any) answer.Value { return decodeInt(wire) }

func (Select) Answerable() bool { return true }

// MultiSelect is a set of choices, carried as 1-based indexes. The empty set
// encodes to NoAnswer; comparisons are unordered.
type MultiSelect struct{}

func (MultiSelect) Datatype() Datatype { return DatatypeMultiSelect }

func (MultiSelect) ErrorMessage(raw Raw, choices []string) string {
	idxs, ok := rawIndexes(raw)
	if !ok {
		return "Not a valid choice"
	}
	for _, idx := range idxs {
		if idx < 1 || idx > len(choices) {
			return "Not a valid choice"
		}
	}
	return ""
}

func (MultiSelect) Encode(raw Raw) answer.Value {
	idxs, _ := rawIndexes(raw)
	if len(idxs) == 0 {
		return answer.NoAnswer
	}
	out := make([]int, len(idxs))
	copy(out, idxs)
	return out
}

func (MultiSelect) Decode(wire any) answer.Value {
	switch t := wire.(type) {
	case nil:
		return answer.NoAnswer
	case []int:
		if len(t) == 0 {
			return answer.NoAnswer
		}
		return t
	default:
		return answer.Normalize(wire)
	}
}

func (MultiSelect) Answerable() bool { return true }

// rawIndex reads a 1-based choice index from raw input. A nil raw or zero
// index means "no selection".
func rawIndex(raw Raw) (int, bool) {
	switch t := raw.(type) {
	case nil:
		return 0, true
	case int:
		return t, true
	case int64:
		return int(t), true
	default:
		return 0, false
	}
}

func rawIndexes(raw Raw) ([]int, bool) {
	switch t := raw.(type) {
	case nil:
		return nil, true
	case []int:
		return t, true
	default:
		return nil, false
	}
}
