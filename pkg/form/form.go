// Package form holds the live question tree for one entry session and the
// reconciliation protocol that merges authoritative server snapshots into it
// without discarding unacknowledged local edits.
package form

import (
	"sync"
	"time"

	"github.com/goliatone/go-formplayer/pkg/answer"
	"github.com/goliatone/go-formplayer/pkg/cell"
	"github.com/goliatone/go-formplayer/pkg/entry"
)

// DefaultDebounce is the answer coalescing window applied when no override is
// configured.
const DefaultDebounce = 200 * time.Millisecond

// AnswerFunc receives a question's debounced answer intent: the question and
// the value to transmit. It runs off the form lock and may block.
type AnswerFunc func(q *Question, value answer.Value)

// Option configures a Form.
type Option func(*Form)

// WithDebounce overrides the per-question answer coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(f *Form) {
		if d > 0 {
			f.debounce = d
		}
	}
}

// WithAnswerFunc registers the sink for debounced answer intents. The session
// coordinator installs itself here.
func WithAnswerFunc(fn AnswerFunc) Option {
	return func(f *Form) {
		f.onAnswer = fn
	}
}

// Form is the root of a session's question tree. It is created from the
// session's initial snapshot and then mutated in place by reconciliation so
// cell subscriptions on surviving nodes remain valid.
type Form struct {
	mu       sync.Mutex
	debounce time.Duration
	onAnswer AnswerFunc

	// Title is the sanitized form title.
	Title *cell.Cell[string]
	// Lang is the language selection, changed only by reconciliation.
	Lang *cell.Cell[string]
	// Langs lists the languages the form definition offers.
	Langs []string
	// Children holds the ordered root nodes.
	Children *cell.Cell[[]Node]
}

// New builds a form tree from a session's initial snapshot.
func New(snap Snapshot, options ...Option) *Form {
	f := &Form{
		debounce: DefaultDebounce,
		Title:    cell.New(sanitizeCaption(snap.Title)),
		Lang:     cell.New(snap.Lang),
		Langs:    snap.Langs,
		Children: cell.New[[]Node](nil),
	}
	for _, opt := range options {
		if opt != nil {
			opt(f)
		}
	}
	f.Children.Set(buildNodes(f, snap.Tree))
	return f
}

// LoadSnapshot repopulates the tree wholesale, replacing the child list. Used
// only at session start or a full reload; incremental updates go through
// Reconcile.
func (f *Form) LoadSnapshot(snap Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Title.Set(sanitizeCaption(snap.Title))
	if snap.Lang != "" {
		f.Lang.Set(snap.Lang)
	}
	if len(snap.Langs) > 0 {
		f.Langs = snap.Langs
	}
	f.Children.Set(buildNodes(f, snap.Tree))
}

// QuestionAt walks the tree for the question with the given path, handling
// repeat junctures whose child count differs between snapshots. Returns nil
// when no visible question matches (a display condition may have hidden it).
func (f *Form) QuestionAt(path string) *Question {
	f.mu.Lock()
	defer f.mu.Unlock()
	return questionAt(f.Children.Get(), path)
}

func questionAt(nodes []Node, path string) *Question {
	for _, n := range nodes {
		switch t := n.(type) {
		case *Question:
			if t.path == path {
				return t
			}
		default:
			if children := nodeChildren(n); children != nil {
				if q := questionAt(children.Get(), path); q != nil {
					return q
				}
			}
		}
	}
	return nil
}

// Questions returns the tree's questions depth-first.
func (f *Form) Questions() []*Question {
	f.mu.Lock()
	defer f.mu.Unlock()
	return collectQuestions(f.Children.Get(), nil)
}

func collectQuestions(nodes []Node, out []*Question) []*Question {
	for _, n := range nodes {
		switch t := n.(type) {
		case *Question:
			out = append(out, t)
		default:
			if children := nodeChildren(n); children != nil {
				out = collectQuestions(children.Get(), out)
			}
		}
	}
	return out
}

// AccumulateAnswers gathers the answers of every valid question keyed by path
// for submission; display-only questions contribute "OK". The boolean result
// reports prevalidation: false when any question currently carries an error.
func (f *Form) AccumulateAnswers() (map[string]answer.Value, bool) {
	prevalidated := true
	answers := make(map[string]answer.Value)
	for _, q := range f.Questions() {
		if !q.IsValid() {
			prevalidated = false
			continue
		}
		if q.datatype == entry.DatatypeInfo {
			answers[q.path] = "OK"
			continue
		}
		answers[q.path] = q.Answer.Get()
	}
	return answers, prevalidated
}

// PendingCount reports how many questions currently await acknowledgment.
func (f *Form) PendingCount() int {
	count := 0
	for _, q := range f.Questions() {
		if !IsNoPending(q.Pending.Get()) {
			count++
		}
	}
	return count
}
