package form

import (
	"github.com/google/uuid"

	"github.com/goliatone/go-formplayer/pkg/cell"
)

// Node is any member of the form tree: a Question, a Group, or a Repeat.
type Node interface {
	// Path is the node's tree index. Unique within a snapshot and stable
	// across reconciliations of the same logical node.
	Path() string
	// Kind is one of the NodeType tags.
	Kind() string
}

// Group is a sub-group of questions. When it is an instance inside a repeat
// juncture it also carries a uuid that identifies it independently of its
// position.
type Group struct {
	form *Form
	path string
	uuid string

	// Caption is the sanitized group label.
	Caption *cell.Cell[string]
	// Children holds the ordered child nodes.
	Children *cell.Cell[[]Node]
}

func newGroup(f *Form, sn SnapshotNode) *Group {
	g := &Group{
		form:     f,
		path:     sn.Ix,
		uuid:     sn.UUID,
		Caption:  cell.New(sanitizeCaption(sn.Caption)),
		Children: cell.New[[]Node](nil),
	}
	g.Children.Set(buildNodes(f, sn.Children))
	return g
}

// Path returns the group's tree index.
func (g *Group) Path() string { return g.path }

// Kind reports NodeTypeGroup.
func (g *Group) Kind() string { return NodeTypeGroup }

// UUID returns the repeat-instance identity, or "" for plain groups.
func (g *Group) UUID() string { return g.uuid }

// Repeat is a repeat juncture: a dynamically sized collection of repeated
// sub-group instances. Instances are added and removed only by
// reconciliation, never speculatively by the client.
type Repeat struct {
	form *Form
	path string

	// Caption is the sanitized repeat label.
	Caption *cell.Cell[string]
	// AddCaption is the label for the "add another" affordance.
	AddCaption *cell.Cell[string]
	// Children holds the repeat's instance groups in server order.
	Children *cell.Cell[[]Node]
}

func newRepeat(f *Form, sn SnapshotNode) *Repeat {
	r := &Repeat{
		form:       f,
		path:       sn.Ix,
		Caption:    cell.New(sanitizeCaption(sn.Caption)),
		AddCaption: cell.New(sanitizeCaption(sn.AddCaption)),
		Children:   cell.New[[]Node](nil),
	}
	children := buildNodes(f, sn.Children)
	for _, child := range children {
		// Instances stay addressable while their ix shifts; give local
		// identity to the ones the server left unkeyed.
		if g, ok := child.(*Group); ok && g.uuid == "" {
			g.uuid = uuid.NewString()
		}
	}
	r.Children.Set(children)
	return r
}

// Path returns the repeat juncture's tree index.
func (r *Repeat) Path() string { return r.path }

// Kind reports NodeTypeRepeat.
func (r *Repeat) Kind() string { return NodeTypeRepeat }

func buildNode(f *Form, sn SnapshotNode) Node {
	switch sn.Type {
	case NodeTypeQuestion:
		return newQuestion(f, sn)
	case NodeTypeRepeat:
		return newRepeat(f, sn)
	default:
		return newGroup(f, sn)
	}
}

func buildNodes(f *Form, sns []SnapshotNode) []Node {
	if len(sns) == 0 {
		return nil
	}
	out := make([]Node, 0, len(sns))
	for _, sn := range sns {
		out = append(out, buildNode(f, sn))
	}
	return out
}

func nodeChildren(n Node) *cell.Cell[[]Node] {
	switch t := n.(type) {
	case *Group:
		return t.Children
	case *Repeat:
		return t.Children
	default:
		return nil
	}
}
