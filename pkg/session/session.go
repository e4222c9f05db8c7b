// Package session coordinates a form against its server-side engine. It
// classifies each operation by how much concurrency it tolerates, funnels
// every failure into a single error sink, and keeps stale or superseded
// replies from ever reaching the form tree.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-formplayer/pkg/answer"
	"github.com/goliatone/go-formplayer/pkg/form"
)

// User-facing failure messages.
const (
	// TimeoutMessage is shown whenever a request ran out of time,
	// regardless of which operation it carried.
	TimeoutMessage = "The server is taking too long to respond. Please try again later."

	// GenericErrorMessage is the fallback when the server gave no usable
	// explanation, or when a callback blew up while handling a reply.
	GenericErrorMessage = "Something unexpected went wrong with that request. " +
		"If you have problems filling in the rest of your form please submit the form and try again."

	// AnswerSaveMessage is pinned to a question whose answer the server
	// failed to record.
	AnswerSaveMessage = "We were unable to save this answer. Please try again later."

	// InvalidFormMessage is raised when a submit is refused locally
	// because some answers do not pass client validation.
	InvalidFormMessage = "There are errors in the form. Please fix them before submitting."
)

const defaultRetryDelay = time.Second

// FormSpec identifies the form a new session should open.
type FormSpec struct {
	FormURL     string
	Lang        string
	SessionData map[string]string
}

// Option configures a Session.
type Option func(*Session)

// WithLogger replaces the default no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithDebounce sets the answer debounce window on forms the session builds.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithSessionID resumes an existing server session instead of opening one.
func WithSessionID(id string) Option {
	return func(s *Session) {
		s.sessionID = id
	}
}

// OnError registers the single sink every failure is reported through.
func OnError(fn func(message string)) Option {
	return func(s *Session) {
		s.onError = fn
	}
}

// OnProgress registers a callback for long-running operation progress.
func OnProgress(fn func(p Progress)) Option {
	return func(s *Session) {
		s.onProgress = fn
	}
}

// OnLoad registers a callback invoked once the form tree is first built.
func OnLoad(fn func(f *form.Form)) Option {
	return func(s *Session) {
		s.onLoad = fn
	}
}

// OnSubmit registers a callback invoked when the server accepts a submit.
func OnSubmit(fn func(resp *Response)) Option {
	return func(s *Session) {
		s.onSubmit = fn
	}
}

// Session owns one live form and the request traffic that keeps it in sync
// with the server.
type Session struct {
	transport Transport
	log       *zap.Logger
	queue     *TaskQueue
	debounce  time.Duration

	onError    func(string)
	onProgress func(Progress)
	onLoad     func(*form.Form)
	onSubmit   func(*Response)

	mu          sync.Mutex
	ctx         context.Context
	form        *form.Form
	sessionID   string
	lastHandled int64
	blocking    Blocking
	retryGen    map[string]int
}

// New creates a session over the given transport.
func New(t Transport, options ...Option) *Session {
	s := &Session{
		transport: t,
		log:       zap.NewNop(),
		queue:     NewTaskQueue(),
		debounce:  form.DefaultDebounce,
		blocking:  BlockNone,
		retryGen:  make(map[string]int),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Form returns the live form tree, or nil before the first load completes.
func (s *Session) Form() *form.Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// SessionID returns the server session identifier, once one was adopted.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Blocking reports the class of the request currently in flight.
func (s *Session) Blocking() Blocking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocking
}

// Tasks exposes the deferred follow-up queue. The head task runs after the
// next request completes; callers may also drain it explicitly.
func (s *Session) Tasks() *TaskQueue {
	return s.queue
}

// Load opens a new server session for the given form and builds the tree
// from the first snapshot. The context also backs debounced answer traffic
// for the session's lifetime.
func (s *Session) Load(ctx context.Context, spec FormSpec) bool {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	op := Operation{
		Action:      ActionNewForm,
		FormURL:     spec.FormURL,
		Lang:        spec.Lang,
		SessionData: spec.SessionData,
	}
	return s.dispatch(ctx, op, BlockAll, func(resp *Response) {
		f := form.New(resp.Snapshot,
			form.WithDebounce(s.debounce),
			form.WithAnswerFunc(s.sendAnswer))
		s.mu.Lock()
		s.form = f
		s.mu.Unlock()
		if s.onLoad != nil {
			s.onLoad(f)
		}
	}, nil)
}

// Resume re-fetches the current tree for an existing server session. Before
// the first load it builds the tree, afterwards it reconciles in place.
func (s *Session) Resume(ctx context.Context) bool {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	return s.dispatch(ctx, Operation{Action: ActionCurrent}, BlockAll, func(resp *Response) {
		s.mu.Lock()
		f := s.form
		s.mu.Unlock()
		if f == nil {
			f = form.New(resp.Snapshot,
				form.WithDebounce(s.debounce),
				form.WithAnswerFunc(s.sendAnswer))
			s.mu.Lock()
			s.form = f
			s.mu.Unlock()
			if s.onLoad != nil {
				s.onLoad(f)
			}
			return
		}
		f.Reconcile(resp.Snapshot, nil)
	}, nil)
}

// NewRepeat asks the server to append an instance to the repeat juncture.
func (s *Session) NewRepeat(ctx context.Context, r *form.Repeat) bool {
	op := Operation{Action: ActionNewRepeat, Ix: r.Path()}
	return s.dispatch(ctx, op, BlockAll, func(resp *Response) {
		s.applyTree(resp, r)
	}, nil)
}

// DeleteRepeat asks the server to remove one repeat instance.
func (s *Session) DeleteRepeat(ctx context.Context, g *form.Group) bool {
	op := Operation{Action: ActionDeleteRepeat, Ix: g.Path()}
	return s.dispatch(ctx, op, BlockAll, func(resp *Response) {
		s.applyTree(resp, nil)
	}, nil)
}

// ChangeLang switches the display language and refreshes every caption.
func (s *Session) ChangeLang(ctx context.Context, lang string) bool {
	op := Operation{Action: ActionChangeLang, Lang: lang}
	return s.dispatch(ctx, op, BlockAll, func(resp *Response) {
		s.applyTree(resp, nil)
	}, nil)
}

// Submit validates every answerable question locally and, if they all pass,
// sends the accumulated answers. While an answer round trip is still in
// flight the submit is parked behind it; repeated submits replace the parked
// one rather than piling up.
func (s *Session) Submit(ctx context.Context) bool {
	s.mu.Lock()
	f := s.form
	s.mu.Unlock()
	if f == nil {
		return false
	}

	answers, ok := f.AccumulateAnswers()
	if !ok {
		s.log.Debug("submit refused by client validation")
		s.emitError(InvalidFormMessage)
		return false
	}

	op := Operation{Action: ActionSubmit, Answers: answers, Prevalidated: true}
	return s.dispatch(ctx, op, BlockAll, func(resp *Response) {
		if resp.Status == StatusSuccess || resp.Status == "" {
			if s.onSubmit != nil {
				s.onSubmit(resp)
			}
			return
		}
		for ix, failure := range resp.Errors {
			f.ApplyValidationError(ix, ValidationMessage(failure.Type, failure.Reason))
		}
		msg := resp.NotificationMessage
		if msg == "" {
			msg = "Form submission failed with errors"
		}
		s.emitError(msg)
	}, nil)
}

// sendAnswer is the form's answer hook: one coalesced intent per question
// per debounce window lands here.
func (s *Session) sendAnswer(q *form.Question, value answer.Value) {
	op := Operation{Action: ActionAnswer, Ix: q.Path(), Answer: value}
	s.dispatch(s.context(), op, BlockSubmit, func(resp *Response) {
		s.applyTree(resp, q)
	}, func() {
		q.ServerError.Set(AnswerSaveMessage)
		q.ResetPending()
	})
}

// applyTree routes a tree-bearing reply into the form: validation failures
// pin a message on the offending question, everything else reconciles.
func (s *Session) applyTree(resp *Response, origin form.Node) {
	s.mu.Lock()
	f := s.form
	s.mu.Unlock()
	if f == nil {
		return
	}
	if resp.Status == StatusValidationError {
		path := resp.Ix
		if path == "" && origin != nil {
			path = origin.Path()
		}
		f.ApplyValidationError(path, ValidationMessage(resp.Type, resp.Reason))
		return
	}
	f.Reconcile(resp.Snapshot, origin)
}

// dispatch enforces the blocking rules and hands the operation to the
// transport on its own goroutine. It reports whether the operation was
// accepted (sent or parked); a drop is silent beyond a log line.
func (s *Session) dispatch(ctx context.Context, op Operation, blocking Blocking, onSuccess func(*Response), onFailure func()) bool {
	if op.Action == ActionSubmit {
		// A newer submit supersedes any parked one.
		s.queue.Clear(string(ActionSubmit))
	}

	s.mu.Lock()
	switch {
	case s.blocking == BlockAll:
		s.mu.Unlock()
		s.log.Warn("dropping request while a blocking request is in flight",
			zap.String("action", string(op.Action)), zap.String("ix", op.Ix))
		return false
	case s.blocking == BlockSubmit && op.Action == ActionSubmit:
		s.queue.Enqueue(string(ActionSubmit), func() {
			s.dispatch(ctx, op, blocking, onSuccess, onFailure)
		})
		s.mu.Unlock()
		s.log.Debug("submit parked behind in-flight answer")
		return true
	}
	s.blocking = blocking
	s.retryGen[op.key()]++
	gen := s.retryGen[op.key()]
	op.SessionID = s.sessionID
	s.mu.Unlock()

	if op.RequestID == "" {
		op.RequestID = uuid.NewString()
	}
	s.log.Debug("sending request",
		zap.String("action", string(op.Action)),
		zap.String("ix", op.Ix),
		zap.String("request_id", op.RequestID))

	go s.send(ctx, op, gen, onSuccess, onFailure)
	return true
}

func (s *Session) send(ctx context.Context, op Operation, gen int, onSuccess func(*Response), onFailure func()) {
	resp, err := s.transport.Send(ctx, op)
	if err != nil {
		s.finishFailure(op, err, onFailure)
		return
	}
	if resp.Status == StatusRetry {
		s.scheduleRetry(ctx, op, gen, resp, onSuccess, onFailure)
		return
	}
	s.finishSuccess(op, resp, onSuccess, onFailure)
}

// scheduleRetry keeps re-issuing the identical operation until the server
// answers with a terminal status. The blocking class stays held for the
// whole poll; a fresh operation on the same slot abandons it.
func (s *Session) scheduleRetry(ctx context.Context, op Operation, gen int, resp *Response, onSuccess func(*Response), onFailure func()) {
	// Every retry response surfaces progress, even a zero-valued one, so the
	// caller can show that the poll is alive before the server reports totals.
	if s.onProgress != nil {
		s.invoke(func() { s.onProgress(resp.Progress) })
	}
	delay := defaultRetryDelay
	if resp.RetryAfterMs > 0 {
		delay = time.Duration(resp.RetryAfterMs) * time.Millisecond
	}
	s.log.Debug("server busy, polling",
		zap.String("action", string(op.Action)),
		zap.Duration("delay", delay),
		zap.Int("done", resp.Progress.Done),
		zap.Int("total", resp.Progress.Total))

	time.AfterFunc(delay, func() {
		s.mu.Lock()
		superseded := s.retryGen[op.key()] != gen
		s.mu.Unlock()
		if superseded {
			s.log.Debug("poll superseded", zap.String("action", string(op.Action)))
			return
		}
		if ctx.Err() != nil {
			s.finishFailure(op, ctx.Err(), onFailure)
			return
		}
		s.send(ctx, op, gen, onSuccess, onFailure)
	})
}

func (s *Session) finishSuccess(op Operation, resp *Response, onSuccess func(*Response), onFailure func()) {
	defer s.release()

	s.mu.Lock()
	if resp.SeqID != 0 {
		if resp.SeqID < s.lastHandled {
			s.mu.Unlock()
			s.log.Warn("discarding stale response",
				zap.String("action", string(op.Action)),
				zap.Int64("seq_id", resp.SeqID))
			return
		}
		s.lastHandled = resp.SeqID
	}
	if resp.SessionID != "" {
		s.sessionID = resp.SessionID
	}
	s.mu.Unlock()

	if resp.Status == StatusError {
		if onFailure != nil {
			s.invoke(onFailure)
		}
		msg := resp.Message
		if msg == "" {
			msg = GenericErrorMessage
		}
		s.emitError(msg)
		return
	}
	if onSuccess != nil {
		s.invoke(func() { onSuccess(resp) })
	}
}

func (s *Session) finishFailure(op Operation, err error, onFailure func()) {
	defer s.release()

	s.log.Error("request failed",
		zap.String("action", string(op.Action)),
		zap.String("ix", op.Ix),
		zap.Error(err))
	if onFailure != nil {
		s.invoke(onFailure)
	}
	s.emitError(classify(err))
}

// release clears the blocking class and lets the next parked follow-up run.
func (s *Session) release() {
	s.mu.Lock()
	s.blocking = BlockNone
	s.mu.Unlock()
	s.queue.Run()
}

// invoke runs a callback and converts a panic into an error report instead
// of tearing the session down.
func (s *Session) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("callback panicked", zap.Any("panic", r))
			s.emitError(GenericErrorMessage)
		}
	}()
	fn()
}

func (s *Session) emitError(msg string) {
	if s.onError == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("error sink panicked", zap.Any("panic", r))
		}
	}()
	s.onError(msg)
}

func (s *Session) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		return s.ctx
	}
	return context.Background()
}

func classify(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		if te.Timeout {
			return TimeoutMessage
		}
		if te.Message != "" {
			return te.Message
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutMessage
	}
	return GenericErrorMessage
}
