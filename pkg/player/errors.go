package player

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("player: aborted")
	// ErrLoadRejected is returned when the session refused to open the form.
	ErrLoadRejected = errors.New("player: form load rejected")
)
