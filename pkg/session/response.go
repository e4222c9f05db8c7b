package session

import "github.com/goliatone/go-formplayer/pkg/form"

// Response statuses. Anything except these is treated as a hard error.
const (
	StatusSuccess         = "success"
	StatusError           = "error"
	StatusValidationError = "validation-error"
	StatusRetry           = "retry"
)

// Validation failure subtypes.
const (
	ValidationRequired   = "required"
	ValidationConstraint = "constraint"
)

// ValidationFailure describes one question that failed server-side
// validation during a submit.
type ValidationFailure struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

// Progress reports how far a long-running server operation has advanced.
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// Response is the reply envelope for every form session operation.
type Response struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id,omitempty"`

	// Monotonic response counter. Replies carrying a seq_id below the
	// highest one already handled are stale and must be discarded.
	SeqID int64 `json:"seq_id,omitempty"`

	// Refreshed form state. Present on successful tree-bearing replies.
	form.Snapshot

	// Validation-error payload for a single question.
	Type   string `json:"type,omitempty"`
	Reason string `json:"reason,omitempty"`
	Ix     string `json:"ix,omitempty"`

	// Per-question failures on a rejected submit, keyed by index.
	Errors map[string]ValidationFailure `json:"errors,omitempty"`

	// Retry/poll payload.
	RetryAfterMs int      `json:"retryAfterMs,omitempty"`
	Progress     Progress `json:"progress,omitempty"`

	// Human-readable failure or notification text.
	Message             string `json:"message,omitempty"`
	NotificationMessage string `json:"notification,omitempty"`
}

// ValidationMessage renders a server validation failure as user-facing text.
func ValidationMessage(failureType, reason string) string {
	switch failureType {
	case ValidationRequired:
		return "An answer is required"
	case ValidationConstraint:
		if reason != "" {
			return reason
		}
		return "This answer is outside the allowed range."
	default:
		if reason != "" {
			return reason
		}
		return "This answer is not valid."
	}
}
