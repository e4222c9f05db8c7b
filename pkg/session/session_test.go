package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-formplayer/pkg/form"
)

// fakeTransport scripts the server side of a session. Each Send records the
// operation, optionally blocks on a gate, and answers with whatever the
// script returns for that call.
type fakeTransport struct {
	mu     sync.Mutex
	calls  []Operation
	script func(op Operation, call int) (*Response, error)
	gate   chan struct{}
}

func (ft *fakeTransport) Send(ctx context.Context, op Operation) (*Response, error) {
	ft.mu.Lock()
	ft.calls = append(ft.calls, op)
	call := len(ft.calls)
	script := ft.script
	gate := ft.gate
	ft.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return script(op, call)
}

func (ft *fakeTransport) sent() []Operation {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	out := make([]Operation, len(ft.calls))
	copy(out, ft.calls)
	return out
}

func (ft *fakeTransport) setGate(gate chan struct{}) {
	ft.mu.Lock()
	ft.gate = gate
	ft.mu.Unlock()
}

func treeResponse(title string) *Response {
	return &Response{
		Status:    StatusSuccess,
		SessionID: "session-1",
		Snapshot: form.Snapshot{
			Title: title,
			Lang:  "en",
			Langs: []string{"en", "es"},
			Tree: []form.SnapshotNode{
				{Type: form.NodeTypeQuestion, Ix: "0", Datatype: "str", Caption: "Name"},
				{Type: form.NodeTypeQuestion, Ix: "1", Datatype: "int", Caption: "Age"},
			},
		},
	}
}

func alwaysTree(title string) func(Operation, int) (*Response, error) {
	return func(Operation, int) (*Response, error) {
		return treeResponse(title), nil
	}
}

// echoAnswers scripts a server that reflects each saved answer back into its
// tree node, the way a real acknowledgment does.
func echoAnswers(title string) func(Operation, int) (*Response, error) {
	return func(op Operation, _ int) (*Response, error) {
		resp := treeResponse(title)
		if op.Action == ActionAnswer {
			for i := range resp.Tree {
				if resp.Tree[i].Ix == op.Ix {
					resp.Tree[i].Answer = op.Answer
				}
			}
		}
		return resp, nil
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

func loadedSession(t *testing.T, ft *fakeTransport, options ...Option) *Session {
	t.Helper()
	if ft.script == nil {
		ft.script = alwaysTree("Survey")
	}
	s := New(ft, options...)
	if !s.Load(context.Background(), FormSpec{FormURL: "http://forms/survey.xml", Lang: "en"}) {
		t.Fatalf("load was dropped")
	}
	waitFor(t, func() bool { return s.Form() != nil })
	return s
}

func TestLoadBuildsFormAndAdoptsSession(t *testing.T) {
	ft := &fakeTransport{}
	s := loadedSession(t, ft)

	if got := s.SessionID(); got != "session-1" {
		t.Fatalf("session id = %q, want %q", got, "session-1")
	}
	f := s.Form()
	if got := f.Title.Get(); got != "Survey" {
		t.Fatalf("title = %q", got)
	}
	if q := f.QuestionAt("0"); q == nil {
		t.Fatalf("question 0 missing after load")
	}
	ops := ft.sent()
	if len(ops) != 1 || ops[0].Action != ActionNewForm {
		t.Fatalf("sent = %+v", ops)
	}
	if ops[0].RequestID == "" {
		t.Fatalf("request id not assigned")
	}
}

func TestBlockingExclusivity(t *testing.T) {
	ft := &fakeTransport{}
	s := loadedSession(t, ft)

	gate := make(chan struct{})
	ft.setGate(gate)

	if !s.ChangeLang(context.Background(), "es") {
		t.Fatalf("first structural request was dropped")
	}
	waitFor(t, func() bool { return len(ft.sent()) == 2 })

	// Anything attempted while a structural request is in flight vanishes.
	if s.ChangeLang(context.Background(), "en") {
		t.Fatalf("second structural request was accepted")
	}
	if s.Submit(context.Background()) {
		t.Fatalf("submit accepted during structural request")
	}

	close(gate)
	waitFor(t, func() bool { return s.Blocking() == BlockNone })
	if got := len(ft.sent()); got != 2 {
		t.Fatalf("transport saw %d calls, want 2", got)
	}
}

func TestAnswersDoNotBlockEachOther(t *testing.T) {
	ft := &fakeTransport{}
	ft.script = echoAnswers("Survey")
	s := loadedSession(t, ft, WithDebounce(time.Millisecond))
	f := s.Form()

	gate := make(chan struct{})
	ft.setGate(gate)

	f.QuestionAt("0").SetRaw("ben")
	waitFor(t, func() bool { return len(ft.sent()) == 2 })

	// A second question's intent goes out while the first is in flight.
	f.QuestionAt("1").SetRaw("34")
	waitFor(t, func() bool { return len(ft.sent()) == 3 })

	close(gate)
	waitFor(t, func() bool { return f.PendingCount() == 0 })
}

func TestSubmitParkedBehindAnswer(t *testing.T) {
	ft := &fakeTransport{}
	s := loadedSession(t, ft, WithDebounce(time.Millisecond))
	f := s.Form()

	gate := make(chan struct{})
	ft.setGate(gate)

	f.QuestionAt("0").SetRaw("ben")
	waitFor(t, func() bool { return s.Blocking() == BlockSubmit })

	if !s.Submit(context.Background()) {
		t.Fatalf("submit was dropped instead of parked")
	}
	if got := s.Tasks().Len(); got != 1 {
		t.Fatalf("parked tasks = %d, want 1", got)
	}

	// Submit spam replaces the parked submit rather than stacking up.
	if !s.Submit(context.Background()) {
		t.Fatalf("repeat submit was dropped")
	}
	if got := s.Tasks().Len(); got != 1 {
		t.Fatalf("parked tasks after spam = %d, want 1", got)
	}

	close(gate)
	waitFor(t, func() bool {
		for _, op := range ft.sent() {
			if op.Action == ActionSubmit {
				return true
			}
		}
		return false
	})

	submits := 0
	for _, op := range ft.sent() {
		if op.Action == ActionSubmit {
			submits++
		}
	}
	if submits != 1 {
		t.Fatalf("submits sent = %d, want 1", submits)
	}
}

func TestSubmitCarriesPrevalidatedAnswers(t *testing.T) {
	ft := &fakeTransport{}
	ft.script = func(op Operation, call int) (*Response, error) {
		resp := treeResponse("Survey")
		if op.Action == ActionAnswer {
			resp.Tree[0].Answer = op.Answer
		}
		if op.Action == ActionSubmit {
			return &Response{Status: StatusSuccess}, nil
		}
		return resp, nil
	}
	var done bool
	var mu sync.Mutex
	s := loadedSession(t, ft, WithDebounce(time.Millisecond), OnSubmit(func(*Response) {
		mu.Lock()
		done = true
		mu.Unlock()
	}))
	f := s.Form()

	f.QuestionAt("0").SetRaw("ben")
	waitFor(t, func() bool { return f.PendingCount() == 0 && s.Blocking() == BlockNone })

	if !s.Submit(context.Background()) {
		t.Fatalf("submit dropped")
	}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return done
	})

	var submit *Operation
	ops := ft.sent()
	for i := range ops {
		if ops[i].Action == ActionSubmit {
			submit = &ops[i]
		}
	}
	if submit == nil {
		t.Fatalf("no submit sent")
	}
	if !submit.Prevalidated {
		t.Fatalf("submit not marked prevalidated")
	}
	if got := submit.Answers["0"]; got != "ben" {
		t.Fatalf("answers[0] = %v", got)
	}
}

func TestSubmitValidationFailureMarksQuestions(t *testing.T) {
	ft := &fakeTransport{}
	ft.script = func(op Operation, call int) (*Response, error) {
		if op.Action == ActionSubmit {
			return &Response{
				Status: StatusValidationError,
				Errors: map[string]ValidationFailure{
					"1": {Type: ValidationConstraint, Reason: "Age must be under 120"},
				},
			}, nil
		}
		return treeResponse("Survey"), nil
	}
	var errMsg string
	var mu sync.Mutex
	s := loadedSession(t, ft, OnError(func(msg string) {
		mu.Lock()
		errMsg = msg
		mu.Unlock()
	}))
	f := s.Form()

	s.Submit(context.Background())
	waitFor(t, func() bool {
		return f.QuestionAt("1").ServerError.Get() != ""
	})
	if got := f.QuestionAt("1").ServerError.Get(); got != "Age must be under 120" {
		t.Fatalf("server error = %q", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if errMsg == "" {
		t.Fatalf("no error surfaced for rejected submit")
	}
}

func TestRetryPollsUntilTerminal(t *testing.T) {
	ft := &fakeTransport{}
	var progress []Progress
	var mu sync.Mutex
	ft.script = func(op Operation, call int) (*Response, error) {
		if op.Action != ActionSubmit {
			return treeResponse("Survey"), nil
		}
		submits := 0
		for _, sent := range ft.sent() {
			if sent.Action == ActionSubmit {
				submits++
			}
		}
		if submits < 3 {
			return &Response{
				Status:       StatusRetry,
				RetryAfterMs: 5,
				Progress:     Progress{Done: submits, Total: 3},
			}, nil
		}
		return &Response{Status: StatusSuccess}, nil
	}

	var done bool
	s := loadedSession(t, ft,
		OnProgress(func(p Progress) {
			mu.Lock()
			progress = append(progress, p)
			mu.Unlock()
		}),
		OnSubmit(func(*Response) {
			mu.Lock()
			done = true
			mu.Unlock()
		}))

	s.Submit(context.Background())
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return done
	})

	first := ft.sent()
	var submits []Operation
	for _, op := range first {
		if op.Action == ActionSubmit {
			submits = append(submits, op)
		}
	}
	if len(submits) != 3 {
		t.Fatalf("submit issued %d times, want 3", len(submits))
	}
	for _, op := range submits[1:] {
		if op.RequestID != submits[0].RequestID {
			t.Fatalf("poll changed the request: %+v vs %+v", op, submits[0])
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if len(progress) != 2 || progress[1].Done != 2 || progress[1].Total != 3 {
		t.Fatalf("progress = %+v", progress)
	}
}

func TestRetryWithoutTotalsStillReportsProgress(t *testing.T) {
	ft := &fakeTransport{}
	ft.script = func(op Operation, call int) (*Response, error) {
		if op.Action != ActionSubmit {
			return treeResponse("Survey"), nil
		}
		submits := 0
		for _, sent := range ft.sent() {
			if sent.Action == ActionSubmit {
				submits++
			}
		}
		// The server has not counted its work yet; the retry carries no totals.
		if submits < 2 {
			return &Response{Status: StatusRetry, RetryAfterMs: 5}, nil
		}
		return &Response{Status: StatusSuccess}, nil
	}

	var progress []Progress
	var done bool
	var mu sync.Mutex
	s := loadedSession(t, ft,
		OnProgress(func(p Progress) {
			mu.Lock()
			progress = append(progress, p)
			mu.Unlock()
		}),
		OnSubmit(func(*Response) {
			mu.Lock()
			done = true
			mu.Unlock()
		}))

	s.Submit(context.Background())
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return done
	})

	mu.Lock()
	defer mu.Unlock()
	if len(progress) != 1 {
		t.Fatalf("progress callbacks = %d, want 1", len(progress))
	}
	if progress[0] != (Progress{}) {
		t.Fatalf("progress = %+v, want zero value", progress[0])
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	ft := &fakeTransport{}
	ft.script = func(op Operation, call int) (*Response, error) {
		switch op.Action {
		case ActionNewForm:
			resp := treeResponse("Survey")
			resp.SeqID = 5
			return resp, nil
		default:
			resp := treeResponse("Stale Title")
			resp.SeqID = 3
			return resp, nil
		}
	}
	s := loadedSession(t, ft)

	s.ChangeLang(context.Background(), "es")
	waitFor(t, func() bool { return s.Blocking() == BlockNone && len(ft.sent()) == 2 })

	if got := s.Form().Title.Get(); got != "Survey" {
		t.Fatalf("stale response mutated the tree: title = %q", got)
	}
}

func TestTimeoutUsesFixedMessage(t *testing.T) {
	ft := &fakeTransport{}
	ft.script = func(op Operation, call int) (*Response, error) {
		if op.Action == ActionNewForm {
			return treeResponse("Survey"), nil
		}
		return nil, &TransportError{Timeout: true}
	}
	var got string
	var mu sync.Mutex
	s := loadedSession(t, ft, OnError(func(msg string) {
		mu.Lock()
		got = msg
		mu.Unlock()
	}))

	s.ChangeLang(context.Background(), "es")
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got != ""
	})
	mu.Lock()
	defer mu.Unlock()
	if got != TimeoutMessage {
		t.Fatalf("error = %q, want %q", got, TimeoutMessage)
	}
}

func TestServerErrorMessageFallsBackToGeneric(t *testing.T) {
	ft := &fakeTransport{}
	ft.script = func(op Operation, call int) (*Response, error) {
		switch op.Action {
		case ActionNewForm:
			return treeResponse("Survey"), nil
		case ActionChangeLang:
			return &Response{Status: StatusError, Message: "XPath evaluation failed"}, nil
		default:
			return &Response{Status: StatusError}, nil
		}
	}
	var msgs []string
	var mu sync.Mutex
	s := loadedSession(t, ft, OnError(func(msg string) {
		mu.Lock()
		msgs = append(msgs, msg)
		mu.Unlock()
	}))

	s.ChangeLang(context.Background(), "es")
	waitFor(t, func() bool { return s.Blocking() == BlockNone && countErrors(&mu, &msgs) == 1 })
	s.Submit(context.Background())
	waitFor(t, func() bool { return countErrors(&mu, &msgs) == 2 })

	mu.Lock()
	defer mu.Unlock()
	if msgs[0] != "XPath evaluation failed" {
		t.Fatalf("first error = %q", msgs[0])
	}
	if msgs[1] != GenericErrorMessage {
		t.Fatalf("second error = %q, want generic fallback", msgs[1])
	}
}

func countErrors(mu *sync.Mutex, msgs *[]string) int {
	mu.Lock()
	defer mu.Unlock()
	return len(*msgs)
}

func TestAnswerFailureResetsPending(t *testing.T) {
	ft := &fakeTransport{}
	ft.script = func(op Operation, call int) (*Response, error) {
		if op.Action == ActionAnswer {
			return nil, &TransportError{StatusCode: 500}
		}
		return treeResponse("Survey"), nil
	}
	var got string
	var mu sync.Mutex
	s := loadedSession(t, ft, WithDebounce(time.Millisecond), OnError(func(msg string) {
		mu.Lock()
		got = msg
		mu.Unlock()
	}))
	f := s.Form()

	q := f.QuestionAt("0")
	q.SetRaw("ben")
	waitFor(t, func() bool { return q.ServerError.Get() != "" })

	if msg := q.ServerError.Get(); msg != AnswerSaveMessage {
		t.Fatalf("server error = %q", msg)
	}
	if f.PendingCount() != 0 {
		t.Fatalf("pending marker survived a failed save")
	}
	// The optimistic value stays visible so the user can retry.
	if v := q.Answer.Get(); v != "ben" {
		t.Fatalf("answer = %v", v)
	}
	mu.Lock()
	defer mu.Unlock()
	if got == "" {
		t.Fatalf("failure never reached the error sink")
	}
}

func TestCallbackPanicBecomesError(t *testing.T) {
	ft := &fakeTransport{}
	ft.script = alwaysTree("Survey")
	var got string
	var mu sync.Mutex
	s := New(ft,
		OnLoad(func(*form.Form) { panic("boom") }),
		OnError(func(msg string) {
			mu.Lock()
			got = msg
			mu.Unlock()
		}))

	s.Load(context.Background(), FormSpec{FormURL: "http://forms/survey.xml"})
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got != ""
	})
	mu.Lock()
	msg := got
	mu.Unlock()
	if msg != GenericErrorMessage {
		t.Fatalf("error = %q", msg)
	}

	// The session is still usable afterwards.
	waitFor(t, func() bool { return s.Blocking() == BlockNone })
	if !s.ChangeLang(context.Background(), "es") {
		t.Fatalf("session wedged after callback panic")
	}
}

func TestDeleteRepeatRemovesInstance(t *testing.T) {
	instance := func(ix, id string) form.SnapshotNode {
		return form.SnapshotNode{
			Type: form.NodeTypeGroup, Ix: ix, UUID: id,
			Children: []form.SnapshotNode{
				{Type: form.NodeTypeQuestion, Ix: ix + ",0", Datatype: "str", Caption: "Member name"},
			},
		}
	}
	repeatTree := func(instances ...form.SnapshotNode) *Response {
		return &Response{
			Status:    StatusSuccess,
			SessionID: "session-1",
			Snapshot: form.Snapshot{
				Title: "Household",
				Tree: []form.SnapshotNode{
					{Type: form.NodeTypeRepeat, Ix: "0", Caption: "Members", Children: instances},
				},
			},
		}
	}

	ft := &fakeTransport{}
	ft.script = func(op Operation, call int) (*Response, error) {
		if op.Action == ActionDeleteRepeat {
			return repeatTree(instance("0:0", "bbb")), nil
		}
		return repeatTree(instance("0:0", "aaa"), instance("0:1", "bbb")), nil
	}
	s := loadedSession(t, ft)
	f := s.Form()

	rep := f.Children.Get()[0].(*form.Repeat)
	doomed := rep.Children.Get()[0].(*form.Group)
	survivor := rep.Children.Get()[1].(*form.Group)

	if !s.DeleteRepeat(context.Background(), doomed) {
		t.Fatalf("delete repeat dropped")
	}
	waitFor(t, func() bool { return len(rep.Children.Get()) == 1 })

	ops := ft.sent()
	last := ops[len(ops)-1]
	if last.Action != ActionDeleteRepeat || last.Ix != "0:0" {
		t.Fatalf("delete op = %+v", last)
	}
	// The surviving instance keeps its node object across the shift to 0:0.
	if got := rep.Children.Get()[0]; got != form.Node(survivor) {
		t.Fatalf("survivor was rebuilt instead of kept")
	}
}

func TestAnswerReconcilesWithOrigin(t *testing.T) {
	ft := &fakeTransport{}
	ft.script = func(op Operation, call int) (*Response, error) {
		if op.Action == ActionAnswer {
			resp := treeResponse("Survey")
			resp.Tree[0].Answer = op.Answer
			return resp, nil
		}
		return treeResponse("Survey"), nil
	}
	s := loadedSession(t, ft, WithDebounce(time.Millisecond))
	f := s.Form()

	q := f.QuestionAt("0")
	q.SetRaw("ben")
	waitFor(t, func() bool { return f.PendingCount() == 0 })

	if got := q.Answer.Get(); got != "ben" {
		t.Fatalf("answer = %v after acknowledgment", got)
	}
}
