package entry

import (
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-formplayer/pkg/answer"
)

const (
	intValueLimit     = math.MaxInt32
	longIntValueLimit = math.MaxInt64
)

// Int accepts whole numbers up to a value limit. The longint datatype uses the
// same codec with a wider limit.
type Int struct {
	datatype Datatype
	Limit    int64
}

func (e Int) Datatype() Datatype {
	if e.datatype != "" {
		return e.datatype
	}
	return DatatypeInt
}

func (e Int) ErrorMessage(raw Raw, _ []string) string {
	s, ok := rawString(raw)
	if !ok {
		return "Not a valid whole number"
	}
	if s == "" {
		return ""
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return "Not a valid whole number"
	}
	if n > e.limit() {
		return "Number is too large"
	}
	return ""
}

func (e Int) Encode(raw Raw) answer.Value {
	s, _ := rawString(raw)
	if s == "" {
		return answer.NoAnswer
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return answer.NoAnswer
	}
	return n
}

func (e Int) Decode(wire any) answer.Value { return decodeInt(wire) }

func (Int) Answerable() bool { return true }

func (e Int) limit() int64 {
	if e.Limit != 0 {
		return e.Limit
	}
	return intValueLimit
}

// Float accepts real numbers.
type Float struct{}

func (Float) Datatype() Datatype { return DatatypeFloat }

func (Float) ErrorMessage(raw Raw, _ []string) string {
	s, ok := rawString(raw)
	if !ok {
		return "Not a valid number"
	}
	if s == "" {
		return ""
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
		return "Not a valid number"
	}
	return ""
}

func (Float) Encode(raw Raw) answer.Value {
	s, _ := rawString(raw)
	if s == "" {
		return answer.NoAnswer
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return answer.NoAnswer
	}
	return f
}

func (Float) Decode(wire any) answer.Value {
	switch t := wire.(type) {
	case nil:
		return answer.NoAnswer
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	default:
		return answer.Normalize(wire)
	}
}

func (Float) Answerable() bool { return true }

func decodeInt(wire any) answer.Value {
	switch t := wire.(type) {
	case nil:
		return answer.NoAnswer
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return answer.Normalize(wire)
	}
}
