package entry

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formplayer/pkg/answer"
)

func TestForDatatypeDispatch(t *testing.T) {
	cases := []struct {
		datatype Datatype
		style    string
		want     Datatype
	}{
		{DatatypeString, "", DatatypeString},
		{DatatypeString, "numeric", DatatypeString},
		{DatatypeInt, "", DatatypeInt},
		{DatatypeMultiSelect, "", DatatypeMultiSelect},
		{DatatypeInfo, "", DatatypeInfo},
	}
	for _, tc := range cases {
		e := ForDatatype(tc.datatype, tc.style)
		if e.Datatype() != tc.want {
			t.Fatalf("dispatch mismatch for %s: got %s", tc.datatype, e.Datatype())
		}
	}

	if _, ok := ForDatatype(DatatypeString, "numeric").(Phone); !ok {
		t.Fatalf("expected numeric-styled string to use the phone entry")
	}
	if _, ok := ForDatatype("barcode", "").(Unsupported); !ok {
		t.Fatalf("expected unknown datatype to resolve to Unsupported")
	}
}

func TestPhoneCharset(t *testing.T) {
	e := Phone{}

	for _, raw := range []string{"-+123", "...123", "12a3", "1.2.3", "--4"} {
		if IsValid(e, raw, nil) {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
	for _, raw := range []string{"-123.4", "+15551234", "123", ""} {
		if msg := e.ErrorMessage(raw, nil); msg != "" {
			t.Fatalf("expected %q to be accepted, got %q", raw, msg)
		}
	}

	if got := e.Encode("-123.4"); got != "-123.4" {
		t.Fatalf("phone answers keep their raw text: got %#v", got)
	}
	if got := e.Encode(""); !answer.IsBlank(got) {
		t.Fatalf("empty phone input encodes to NoAnswer, got %#v", got)
	}
}

func TestIntValidation(t *testing.T) {
	e := ForDatatype(DatatypeInt, "")

	if msg := e.ErrorMessage("12.5", nil); msg != "Not a valid whole number" {
		t.Fatalf("unexpected message: %q", msg)
	}
	if msg := e.ErrorMessage("twelve", nil); msg != "Not a valid whole number" {
		t.Fatalf("unexpected message: %q", msg)
	}
	if msg := e.ErrorMessage("3000000000", nil); msg != "Number is too large" {
		t.Fatalf("unexpected message: %q", msg)
	}
	if msg := e.ErrorMessage("42", nil); msg != "" {
		t.Fatalf("expected 42 to be valid, got %q", msg)
	}
	if got := e.Encode("42"); got != int64(42) {
		t.Fatalf("expected int64 answer, got %#v", got)
	}

	long := ForDatatype(DatatypeLongInt, "")
	if msg := long.ErrorMessage("3000000000", nil); msg != "" {
		t.Fatalf("longint should accept 3000000000, got %q", msg)
	}
}

func TestFloatValidation(t *testing.T) {
	e := Float{}
	if msg := e.ErrorMessage("abc", nil); msg != "Not a valid number" {
		t.Fatalf("unexpected message: %q", msg)
	}
	if got := e.Encode("1.25"); got != 1.25 {
		t.Fatalf("expected 1.25, got %#v", got)
	}
	if got := e.Encode(""); !answer.IsBlank(got) {
		t.Fatalf("empty float input encodes to NoAnswer, got %#v", got)
	}
}

func TestFreeTextBlank(t *testing.T) {
	e := FreeText{}
	if msg := e.ErrorMessage("", nil); msg != "" {
		t.Fatalf("empty free text is not an error, got %q", msg)
	}
	if got := e.Encode(""); !answer.IsBlank(got) {
		t.Fatalf("empty free text encodes to NoAnswer, got %#v", got)
	}
	if got := e.Encode("ben"); got != "ben" {
		t.Fatalf("expected text answer, got %#v", got)
	}
}

func TestSelectRange(t *testing.T) {
	choices := []string{"red", "green", "blue"}
	e := Select{}

	if msg := e.ErrorMessage(2, choices); msg != "" {
		t.Fatalf("index 2 should be valid, got %q", msg)
	}
	if msg := e.ErrorMessage(4, choices); msg != "Not a valid choice" {
		t.Fatalf("unexpected message: %q", msg)
	}
	if got := e.Encode(2); got != int64(2) {
		t.Fatalf("expected 1-based index answer, got %#v", got)
	}
}

func TestMultiSelectSetComparison(t *testing.T) {
	choices := []string{"a", "b", "c"}
	e := MultiSelect{}

	if msg := e.ErrorMessage([]int{1, 3}, choices); msg != "" {
		t.Fatalf("unexpected message: %q", msg)
	}
	if msg := e.ErrorMessage([]int{0}, choices); msg != "Not a valid choice" {
		t.Fatalf("unexpected message: %q", msg)
	}

	a := e.Encode([]int{1, 3})
	b := e.Encode([]int{3, 1})
	if !answer.Equal(a, b) {
		t.Fatalf("multiselect answers compare as sets: %#v vs %#v", a, b)
	}
	if got := e.Encode([]int{}); !answer.IsBlank(got) {
		t.Fatalf("empty selection encodes to NoAnswer, got %#v", got)
	}
}

func TestGeoPrecision(t *testing.T) {
	e := Geo{}
	coords := []float64{42.373611104297, -71.110558463519}

	got := e.Encode(coords)
	if diff := cmp.Diff(coords, got); diff != "" {
		t.Fatalf("geo answer lost precision (-want +got):\n%s", diff)
	}
	if !answer.Equal(got, e.Decode([]any{42.373611104297, -71.110558463519})) {
		t.Fatalf("wire round trip must compare equal")
	}
	if answer.Equal(got, []float64{42.3736111, -71.1105584}) {
		t.Fatalf("rounded coordinates must not compare equal")
	}
	if msg := e.ErrorMessage([]float64{1}, nil); msg == "" {
		t.Fatalf("a single coordinate is not a valid location")
	}
}

func TestTemporalLayouts(t *testing.T) {
	if msg := (Date{}).ErrorMessage("2024-02-30", nil); msg == "" {
		t.Fatalf("impossible date should be rejected")
	}
	if got := (Date{}).Encode("2024-02-29"); got != "2024-02-29" {
		t.Fatalf("unexpected date answer: %#v", got)
	}
	if got := (Time{}).Encode("09:30"); got != "09:30" {
		t.Fatalf("unexpected time answer: %#v", got)
	}
	if msg := (Time{}).ErrorMessage("25:00", nil); msg == "" {
		t.Fatalf("expected invalid time to be rejected")
	}
}

func TestInfoNeverAnswers(t *testing.T) {
	e := Info{}
	if !IsValid(e, "anything", nil) {
		t.Fatalf("info entries validate everything")
	}
	if e.Answerable() {
		t.Fatalf("info entries never produce answer intents")
	}
}
