package session

import "github.com/goliatone/go-formplayer/pkg/answer"

// Action names a server-side form session operation.
type Action string

const (
	ActionNewForm      Action = "new-form"
	ActionCurrent      Action = "current"
	ActionAnswer       Action = "answer"
	ActionNewRepeat    Action = "new-repeat"
	ActionDeleteRepeat Action = "delete-repeat"
	ActionChangeLang   Action = "change-locale"
	ActionSubmit       Action = "submit-all"
)

// Blocking classifies how an operation interacts with other in-flight
// requests. Structural operations rewrite the tree wholesale and must run
// alone; answers only need to keep a submit from racing past them.
type Blocking string

const (
	BlockNone   Blocking = "none"
	BlockSubmit Blocking = "submit"
	BlockAll    Blocking = "all"
)

// Operation is the request envelope sent to the form engine. A single struct
// covers every action; unused fields stay at their zero value and are elided
// from the wire.
type Operation struct {
	Action    Action `json:"action"`
	RequestID string `json:"request_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`

	// New-form parameters.
	FormURL     string            `json:"form_url,omitempty"`
	Lang        string            `json:"lang,omitempty"`
	SessionData map[string]string `json:"session_data,omitempty"`

	// Question or juncture index the operation targets.
	Ix string `json:"ix,omitempty"`

	// Answer payload.
	Answer answer.Value `json:"answer,omitempty"`

	// Submit payload: every answerable question's value keyed by index,
	// plus a flag telling the engine the client already validated them.
	Answers      map[string]answer.Value `json:"answers,omitempty"`
	Prevalidated bool                    `json:"prevalidated,omitempty"`
}

// key identifies the retry slot an operation occupies. A fresh operation with
// the same key supersedes any poll loop the previous one left behind.
func (op Operation) key() string {
	return string(op.Action) + "/" + op.Ix
}
