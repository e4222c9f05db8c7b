package testsupport

import (
	"testing"

	"github.com/goliatone/go-formplayer/pkg/form"
	"github.com/goliatone/go-formplayer/pkg/session"
)

func TestLoadSnapshotFixture(t *testing.T) {
	snap := LoadSnapshot(t, "testdata/registration.json")

	if snap.Title != "Patient Registration" {
		t.Fatalf("title = %q", snap.Title)
	}
	if len(snap.Tree) != 4 {
		t.Fatalf("tree has %d roots, want 4", len(snap.Tree))
	}
	rep := snap.Tree[3]
	if rep.Type != form.NodeTypeRepeat || rep.AddCaption != "Add a household member" {
		t.Fatalf("repeat juncture = %+v", rep)
	}
	if got := rep.Children[0].UUID; got != "member-aaa" {
		t.Fatalf("instance uuid = %q", got)
	}

	f := form.New(snap)
	if q := f.QuestionAt("3:0,0"); q == nil {
		t.Fatalf("repeat question not reachable")
	}
}

func TestScriptedTransportUnhandledAction(t *testing.T) {
	st := NewScriptedTransport().Reply(session.ActionNewForm, &session.Response{Status: session.StatusSuccess})

	if _, err := st.Send(Context(), session.Operation{Action: session.ActionNewForm}); err != nil {
		t.Fatalf("scripted action failed: %v", err)
	}
	if _, err := st.Send(Context(), session.Operation{Action: session.ActionSubmit}); err == nil {
		t.Fatalf("unscripted action did not fail")
	}
	if got := len(st.Calls()); got != 2 {
		t.Fatalf("recorded %d calls, want 2", got)
	}
}
