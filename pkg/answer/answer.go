// Package answer defines the typed answer values exchanged between entries,
// the form tree, and the session coordinator, together with the structural
// equality rules used for no-op suppression and pending-answer acknowledgment.
package answer

import "encoding/json"

// Value is a typed question answer. Concrete shapes by datatype:
//
//	string          free text, phone, date, time, datetime
//	int64           integer and single-select (1-based choice index)
//	float64         float
//	[]int           multiselect (1-based choice indexes)
//	[]float64       geopoint ([lat, lon])
//
// NoAnswer marks an explicitly blank value.
type Value any

type blank struct{}

func (blank) String() string { return "no-answer" }

// MarshalJSON renders the blank sentinel as null on the wire.
func (blank) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// NoAnswer is the distinguished "explicitly blank" value. It is distinct from
// a question that was never touched, and from the NoPending marker used by the
// reconciliation gate.
var NoAnswer Value = blank{}

// IsBlank reports whether v is the NoAnswer sentinel or a nil value.
func IsBlank(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(blank)
	return ok
}

// Equal compares two answers structurally. Multiselect answers compare as
// unordered sets, geopoint answers element-wise, and numeric answers by value
// regardless of the concrete integer or float representation. NoAnswer is
// equal only to NoAnswer (or nil).
func Equal(a, b Value) bool {
	if IsBlank(a) || IsBlank(b) {
		return IsBlank(a) && IsBlank(b)
	}

	if as, ok := intSlice(a); ok {
		bs, ok := intSlice(b)
		return ok && equalAsSets(as, bs)
	}
	if as, ok := floatSlice(a); ok {
		bs, ok := floatSlice(b)
		return ok && equalElementwise(as, bs)
	}
	if an, ok := numeric(a); ok {
		bn, ok := numeric(b)
		return ok && an == bn
	}
	if astr, ok := a.(string); ok {
		bstr, ok := b.(string)
		return ok && astr == bstr
	}
	return a == b
}

// Normalize converts values decoded from JSON (json.Number, float64 indexes,
// []any) into the canonical shapes documented on Value. Unknown shapes pass
// through untouched.
func Normalize(v Value) Value {
	switch t := v.(type) {
	case nil:
		return NoAnswer
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		if len(t) == 0 {
			return NoAnswer
		}
		if ints, ok := toIntSlice(t); ok {
			return ints
		}
		if floats, ok := toFloatSlice(t); ok {
			return floats
		}
		return t
	default:
		return v
	}
}

func equalAsSets(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int]int, len(a))
	for _, v := range a {
		seen[v]++
	}
	for _, v := range b {
		if seen[v] == 0 {
			return false
		}
		seen[v]--
	}
	return true
}

func equalElementwise(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func numeric(v Value) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	default:
		return 0, false
	}
}

func intSlice(v Value) ([]int, bool) {
	switch t := v.(type) {
	case []int:
		return t, true
	case []int64:
		out := make([]int, len(t))
		for i, n := range t {
			out[i] = int(n)
		}
		return out, true
	default:
		return nil, false
	}
}

func floatSlice(v Value) ([]float64, bool) {
	t, ok := v.([]float64)
	return t, ok
}

func toIntSlice(items []any) ([]int, bool) {
	out := make([]int, 0, len(items))
	for _, item := range items {
		f, ok := numericAny(item)
		if !ok || f != float64(int(f)) {
			return nil, false
		}
		out = append(out, int(f))
	}
	return out, true
}

func toFloatSlice(items []any) ([]float64, bool) {
	out := make([]float64, 0, len(items))
	for _, item := range items {
		f, ok := numericAny(item)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}

func numericAny(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return numeric(t)
	}
}
