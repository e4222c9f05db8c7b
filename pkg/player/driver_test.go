package player

import (
	"errors"
	"testing"
)

func TestSurveyValidatorAdaptsStringCheck(t *testing.T) {
	wantErr := errors.New("too short")
	v := surveyValidator(func(s string) error {
		if len(s) < 3 {
			return wantErr
		}
		return nil
	})

	if err := v("ben"); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
	if err := v("b"); !errors.Is(err, wantErr) {
		t.Fatalf("invalid input: got %v, want %v", err, wantErr)
	}
	// survey hands over whatever the prompt produced; anything that is not a
	// string validates as the empty string.
	if err := v(42); !errors.Is(err, wantErr) {
		t.Fatalf("non-string input: got %v, want %v", err, wantErr)
	}
}
