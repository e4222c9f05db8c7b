package entry

import (
	"github.com/goliatone/go-formplayer/pkg/answer"
)

// Geo is a geopoint answer: a [latitude, longitude] pair. Coordinates pass
// through encode, compare, and transmit without rounding.
type Geo struct{}

func (Geo) Datatype() Datatype { return DatatypeGeo }

func (Geo) ErrorMessage(raw Raw, _ []string) string {
	coords, ok := rawCoords(raw)
	if !ok {
		return "Not a valid location"
	}
	if len(coords) != 0 && len(coords) != 2 {
		return "Not a valid location"
	}
	return ""
}

func (Geo) Encode(raw Raw) answer.Value {
	coords, _ := rawCoords(raw)
	if len(coords) == 0 {
		return answer.NoAnswer
	}
	out := make([]float64, len(coords))
	copy(out, coords)
	return out
}

func (Geo) Decode(wire any) answer.Value {
	switch t := wire.(type) {
	case nil:
		return answer.NoAnswer
	case []float64:
		if len(t) == 0 {
			return answer.NoAnswer
		}
		return t
	case []any:
		out := make([]float64, 0, len(t))
		for _, item := range t {
			f, ok := item.(float64)
			if !ok {
				return answer.Normalize(wire)
			}
			out = append(out, f)
		}
		if len(out) == 0 {
			return answer.NoAnswer
		}
		return out
	default:
		return answer.Normalize(wire)
	}
}

func (Geo) Answerable() bool { return true }

func rawCoords(raw Raw) ([]float64, bool) {
	switch t := raw.(type) {
	case nil:
		return nil, true
	case []float64:
		return t, true
	default:
		return nil, false
	}
}
