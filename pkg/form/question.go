package form

import (
	"time"

	"github.com/goliatone/go-formplayer/pkg/answer"
	"github.com/goliatone/go-formplayer/pkg/cell"
	"github.com/goliatone/go-formplayer/pkg/entry"
)

type noPending struct{}

func (noPending) String() string { return "no-pending-answer" }

// NoPending marks a question with no answer awaiting server acknowledgment.
// It is distinct from answer.NoAnswer: a pending NoAnswer means "clearing this
// question is in flight".
var NoPending answer.Value = noPending{}

// IsNoPending reports whether v is the NoPending marker.
func IsNoPending(v answer.Value) bool {
	_, ok := v.(noPending)
	return ok
}

// Question is a leaf of the form tree. Its mutable state lives in cells so a
// presentation layer can subscribe per concern. All mutation goes through
// SetRaw (local edits) and the form's reconciliation; no other writer is
// permitted.
type Question struct {
	form     *Form
	path     string
	datatype entry.Datatype
	style    string
	entry    entry.Entry
	required bool

	// Caption is the sanitized question label.
	Caption *cell.Cell[string]
	// RawAnswer is the latest raw user input, valid or not.
	RawAnswer *cell.Cell[entry.Raw]
	// Answer is the last known typed value, optimistic or confirmed.
	Answer *cell.Cell[answer.Value]
	// Pending is the value awaiting server acknowledgment, or NoPending.
	Pending *cell.Cell[answer.Value]
	// Choices lists the selectable options for select datatypes.
	Choices *cell.Cell[[]string]
	// ClientError is the synchronous local validation failure, or "".
	ClientError *cell.Cell[string]
	// ServerError is the last server-reported constraint failure, or "".
	ServerError *cell.Cell[string]

	hasAnswered bool
	timerToken  int
	timer       *time.Timer
}

func newQuestion(f *Form, sn SnapshotNode) *Question {
	q := &Question{
		form:        f,
		path:        sn.Ix,
		datatype:    entry.Datatype(sn.Datatype),
		style:       sn.Style,
		entry:       entry.ForDatatype(entry.Datatype(sn.Datatype), sn.Style),
		required:    sn.Required,
		Caption:     cell.New(sanitizeCaption(sn.Caption)),
		RawAnswer:   cell.New[entry.Raw](nil),
		Answer:      cell.New(answer.NoAnswer),
		Pending:     cell.New(NoPending),
		Choices:     cell.New(sn.Choices),
		ClientError: cell.New(""),
		ServerError: cell.New(""),
	}
	q.Answer.Set(q.entry.Decode(sn.Answer))
	return q
}

// Path returns the question's tree index, the stable identity used for
// reconciliation pairing.
func (q *Question) Path() string { return q.path }

// Kind reports NodeTypeQuestion.
func (q *Question) Kind() string { return NodeTypeQuestion }

// Datatype reports the wire datatype driving this question's entry.
func (q *Question) Datatype() entry.Datatype { return q.datatype }

// Entry returns the codec/validator for this question.
func (q *Question) Entry() entry.Entry { return q.entry }

// Required reports whether the server marked the question mandatory.
func (q *Question) Required() bool { return q.required }

// HasAnswered reports whether the question has ever held a pending answer.
func (q *Question) HasAnswered() bool {
	q.form.mu.Lock()
	defer q.form.mu.Unlock()
	return q.hasAnswered
}

// IsValid reports whether the question currently carries no client or server
// error.
func (q *Question) IsValid() bool {
	return q.ClientError.Get() == "" && q.ServerError.Get() == ""
}

// SetRaw records raw user input. Invalid input sets ClientError and leaves the
// answer untouched. Valid input that encodes to a value structurally equal to
// the current answer is suppressed entirely: no cell changes, no network
// traffic. Otherwise the answer is updated optimistically, marked pending, and
// the per-question debounce window is (re)started; when it expires, exactly
// one answer intent for the latest value reaches the session.
func (q *Question) SetRaw(raw entry.Raw) {
	f := q.form
	f.mu.Lock()
	defer f.mu.Unlock()

	q.RawAnswer.Set(raw)

	if msg := q.entry.ErrorMessage(raw, q.Choices.Get()); msg != "" {
		q.ClientError.Set(msg)
		return
	}
	q.ClientError.Set("")

	if !q.entry.Answerable() {
		return
	}

	encoded := q.entry.Encode(raw)
	if answer.Equal(encoded, q.Answer.Get()) {
		return
	}

	q.Answer.Set(encoded)
	q.Pending.Set(encoded)
	q.hasAnswered = true
	q.restartDebounce()
}

// restartDebounce must run with the form lock held. A new edit supersedes a
// not-yet-fired timer, so only the latest value is ever emitted.
func (q *Question) restartDebounce() {
	q.timerToken++
	token := q.timerToken
	if q.timer != nil {
		q.timer.Stop()
	}
	q.timer = time.AfterFunc(q.form.debounce, func() { q.emit(token) })
}

func (q *Question) emit(token int) {
	f := q.form
	f.mu.Lock()
	if token != q.timerToken {
		f.mu.Unlock()
		return
	}
	value := q.Pending.Get()
	hook := f.onAnswer
	f.mu.Unlock()

	if hook == nil || IsNoPending(value) {
		return
	}
	hook(q, value)
}

// ResetPending drops the pending marker without touching the answer. The
// session uses it when an answer request fails outright.
func (q *Question) ResetPending() {
	q.form.mu.Lock()
	defer q.form.mu.Unlock()
	q.Pending.Set(NoPending)
}
