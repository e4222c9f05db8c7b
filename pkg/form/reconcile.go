package form

import (
	"slices"

	"github.com/google/uuid"

	"github.com/goliatone/go-formplayer/pkg/answer"
	"github.com/goliatone/go-formplayer/pkg/cell"
)

// Reconcile merges an authoritative server snapshot into the live tree.
// origin names the node whose request produced this snapshot (nil for
// broadcast updates such as a language change); a server error previously
// pinned on an origin question is cleared before the merge. The merge pairs
// nodes by path, and repeat instances by uuid, applying the pending-answer
// gate to every question alike: a node holding a pending answer keeps its
// local state unless the snapshot value already equals the pending one, which
// acknowledges it. The gate covers origin too, because the user may have
// re-edited the question while its request was in flight.
//
// The correctness property: no client edit is ever overwritten before its own
// corresponding server acknowledgment arrives.
func (f *Form) Reconcile(snap Snapshot, origin Node) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if snap.Title != "" {
		if title := sanitizeCaption(snap.Title); title != f.Title.Get() {
			f.Title.Set(title)
		}
	}
	if snap.Lang != "" && snap.Lang != f.Lang.Get() {
		f.Lang.Set(snap.Lang)
	}
	if len(snap.Langs) > 0 {
		f.Langs = snap.Langs
	}

	if origin != nil {
		if q, ok := origin.(*Question); ok {
			q.ServerError.Set("")
		}
	}

	f.Children.Set(f.mergeChildren(f.Children.Get(), snap.Tree))
}

// ApplyValidationError records a server-side constraint failure on the
// question at path. It bypasses the pending-answer gate: the error always
// applies, resets the question's pending marker, and makes it report invalid
// until explicitly cleared. An empty message clears the error.
func (f *Form) ApplyValidationError(path, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := questionAt(f.Children.Get(), path)
	if q == nil {
		return
	}
	q.ServerError.Set(message)
	if message != "" {
		q.Pending.Set(NoPending)
	}
}

// mergeChildren diffs incoming snapshot children against live ones, keeping
// surviving node objects so cell subscriptions stay attached. New nodes are
// inserted, absent ones dropped, survivors merged recursively. Runs with the
// form lock held.
func (f *Form) mergeChildren(current []Node, incoming []SnapshotNode) []Node {
	byUUID := make(map[string]Node)
	byPath := make(map[string]Node)
	for _, n := range current {
		if g, ok := n.(*Group); ok && g.uuid != "" {
			byUUID[g.uuid] = n
		}
		byPath[n.Path()] = n
	}

	changed := len(current) != len(incoming)
	merged := make([]Node, 0, len(incoming))
	for i, sn := range incoming {
		var existing Node
		if sn.UUID != "" {
			// A keyed instance pairs only with its own identity; falling
			// back to position would adopt a different instance's node.
			existing = byUUID[sn.UUID]
		} else {
			existing = byPath[sn.Ix]
		}
		if existing == nil || existing.Kind() != nodeTypeOf(sn) {
			merged = append(merged, buildNode(f, sn))
			changed = true
			continue
		}
		f.mergeNode(existing, sn)
		if i >= len(current) || current[i] != existing {
			changed = true
		}
		merged = append(merged, existing)
	}

	if !changed {
		return current
	}
	return merged
}

func nodeTypeOf(sn SnapshotNode) string {
	switch sn.Type {
	case NodeTypeQuestion:
		return NodeTypeQuestion
	case NodeTypeRepeat:
		return NodeTypeRepeat
	default:
		return NodeTypeGroup
	}
}

func (f *Form) mergeNode(n Node, sn SnapshotNode) {
	switch t := n.(type) {
	case *Question:
		f.mergeQuestion(t, sn)
	case *Group:
		t.path = sn.Ix
		if sn.UUID != "" {
			t.uuid = sn.UUID
		}
		setCaption(t.Caption, sn.Caption)
		t.Children.Set(f.mergeChildren(t.Children.Get(), sn.Children))
	case *Repeat:
		t.path = sn.Ix
		setCaption(t.Caption, sn.Caption)
		setCaption(t.AddCaption, sn.AddCaption)
		children := f.mergeChildren(t.Children.Get(), sn.Children)
		for _, child := range children {
			if g, ok := child.(*Group); ok && g.uuid == "" {
				g.uuid = uuid.NewString()
			}
		}
		t.Children.Set(children)
	}
}

func (f *Form) mergeQuestion(q *Question, sn SnapshotNode) {
	q.path = sn.Ix
	q.required = sn.Required
	setCaption(q.Caption, sn.Caption)

	incoming := q.entry.Decode(sn.Answer)
	pending := q.Pending.Get()

	switch {
	case !IsNoPending(pending):
		// An edit is awaiting acknowledgment. Accept only when the snapshot
		// already carries that value; the gate applies to the origin question
		// too, since a re-edit during the round trip leaves a newer pending
		// value that a stale echo must not roll back.
		if answer.Equal(incoming, pending) {
			q.Pending.Set(NoPending)
			q.acceptAnswer(incoming)
			q.replaceChoices(sn.Choices)
		}
		// Still dirty: keep the local answer, raw input, and choices
		// untouched; the pending value's own response will reconcile it.
	case q.ServerError.Get() != "":
		// A question flagged by the server keeps its local answer so the
		// user sees what they must correct.
	default:
		q.acceptAnswer(incoming)
		q.replaceChoices(sn.Choices)
	}
}

func (q *Question) acceptAnswer(v answer.Value) {
	if !answer.Equal(v, q.Answer.Get()) {
		q.Answer.Set(v)
	}
}

// replaceChoices skips the update when nothing changed; large choice lists
// make the replacement expensive for subscribers.
func (q *Question) replaceChoices(choices []string) {
	if slices.Equal(q.Choices.Get(), choices) {
		return
	}
	q.Choices.Set(choices)
}

func setCaption(c *cell.Cell[string], raw string) {
	if raw == "" {
		return
	}
	if s := sanitizeCaption(raw); s != c.Get() {
		c.Set(s)
	}
}
