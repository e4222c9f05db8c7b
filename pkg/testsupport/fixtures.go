// Package testsupport carries fixture loaders, golden helpers, and a
// scripted transport shared by tests across the module.
package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formplayer/pkg/form"
	"github.com/goliatone/go-formplayer/pkg/session"
)

// LoadSnapshot reads a JSON fixture into a form snapshot. Testing helpers
// fail the test on error to keep contract tests concise.
func LoadSnapshot(t *testing.T, path string) form.Snapshot {
	t.Helper()

	snap, err := LoadSnapshotFromPath(path)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	return snap
}

// LoadSnapshotFromPath returns a snapshot without requiring testing.T,
// allowing callers to wire fixtures in setup functions.
func LoadSnapshotFromPath(path string) (form.Snapshot, error) {
	if path == "" {
		return form.Snapshot{}, errors.New("testsupport: snapshot path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return form.Snapshot{}, fmt.Errorf("testsupport: read snapshot: %w", err)
	}
	var out form.Snapshot
	if err := json.Unmarshal(data, &out); err != nil {
		return form.Snapshot{}, fmt.Errorf("testsupport: unmarshal snapshot: %w", err)
	}
	return out, nil
}

// MustLoadResponse reads a JSON fixture into a full response envelope.
func MustLoadResponse(t *testing.T, path string) *session.Response {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("load response: %v", err)
	}
	var out session.Response
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return &out
}

// WriteGolden writes arbitrary data to a golden file when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// ScriptedTransport plays the server side of a session from canned replies.
// Per-action handlers answer matching operations; anything unhandled fails
// loudly so tests never succeed against a reply they did not script.
type ScriptedTransport struct {
	mu       sync.Mutex
	calls    []session.Operation
	handlers map[session.Action]func(op session.Operation) (*session.Response, error)
}

// NewScriptedTransport returns an empty transport; register handlers with
// Handle before use.
func NewScriptedTransport() *ScriptedTransport {
	return &ScriptedTransport{
		handlers: make(map[session.Action]func(op session.Operation) (*session.Response, error)),
	}
}

// Handle registers the reply function for one action.
func (st *ScriptedTransport) Handle(action session.Action, fn func(op session.Operation) (*session.Response, error)) *ScriptedTransport {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.handlers[action] = fn
	return st
}

// Reply registers a fixed successful reply for one action.
func (st *ScriptedTransport) Reply(action session.Action, resp *session.Response) *ScriptedTransport {
	return st.Handle(action, func(session.Operation) (*session.Response, error) {
		return resp, nil
	})
}

// Send records the operation and dispatches it to the registered handler.
func (st *ScriptedTransport) Send(ctx context.Context, op session.Operation) (*session.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st.mu.Lock()
	st.calls = append(st.calls, op)
	fn := st.handlers[op.Action]
	st.mu.Unlock()

	if fn == nil {
		return nil, fmt.Errorf("testsupport: no handler scripted for action %q", op.Action)
	}
	return fn(op)
}

// Calls returns a copy of every operation sent so far.
func (st *ScriptedTransport) Calls() []session.Operation {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]session.Operation, len(st.calls))
	copy(out, st.calls)
	return out
}
