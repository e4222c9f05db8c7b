package entry

import (
	"strings"
	"time"

	"github.com/goliatone/go-formplayer/pkg/answer"
)

// Wire layouts for temporal answers.
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04"
	DateTimeLayout = time.RFC3339
)

// Date accepts calendar dates and carries them as "YYYY-MM-DD" strings.
type Date struct{}

func (Date) Datatype() Datatype { return DatatypeDate }

func (Date) ErrorMessage(raw Raw, _ []string) string {
	return temporalError(raw, DateLayout, "Not a valid date")
}

func (Date) Encode(raw Raw) answer.Value { return temporalEncode(raw, DateLayout) }

func (Date) Decode(wire any) answer.Value { return decodeString(wire) }

func (Date) Answerable() bool { return true }

// Time accepts times of day and carries them as "HH:MM" strings.
type Time struct{}

func (Time) Datatype() Datatype { return DatatypeTime }

func (Time) ErrorMessage(raw Raw, _ []string) string {
	return temporalError(raw, TimeLayout, "Not a valid time")
}

func (Time) Encode(raw Raw) answer.Value { return temporalEncode(raw, TimeLayout) }

func (Time) Decode(wire any) answer.Value { return decodeString(wire) }

func (Time) Answerable() bool { return true }

// DateTime accepts RFC 3339 timestamps.
type DateTime struct{}

func (DateTime) Datatype() Datatype { return DatatypeDateTime }

func (DateTime) ErrorMessage(raw Raw, _ []string) string {
	return temporalError(raw, DateTimeLayout, "Not a valid date and time")
}

func (DateTime) Encode(raw Raw) answer.Value { return temporalEncode(raw, DateTimeLayout) }

func (DateTime) Decode(wire any) answer.Value { return decodeString(wire) }

func (DateTime) Answerable() bool { return true }

func temporalError(raw Raw, layout, message string) string {
	s, ok := rawString(raw)
	if !ok {
		return message
	}
	if s == "" {
		return ""
	}
	if _, err := time.Parse(layout, strings.TrimSpace(s)); err != nil {
		return message
	}
	return ""
}

func temporalEncode(raw Raw, layout string) answer.Value {
	s, _ := rawString(raw)
	s = strings.TrimSpace(s)
	if s == "" {
		return answer.NoAnswer
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return answer.NoAnswer
	}
	return t.Format(layout)
}
