package form

// Node type tags as they appear on the wire.
const (
	NodeTypeQuestion = "question"
	NodeTypeGroup    = "sub-group"
	NodeTypeRepeat   = "repeat-juncture"
)

// Snapshot is the authoritative tree representation the server returns with
// every successful response. The engine never builds snapshots; it only loads
// and merges them.
type Snapshot struct {
	Title string         `json:"title,omitempty"`
	Lang  string         `json:"langs_current,omitempty"`
	Langs []string       `json:"langs,omitempty"`
	Tree  []SnapshotNode `json:"tree"`
}

// SnapshotNode is one node of a server snapshot. Questions carry datatype,
// answer and choices; groups and repeat junctures carry children. Repeat
// instances are groups with a server-issued uuid that stays stable while their
// ix shifts as siblings are added or removed.
type SnapshotNode struct {
	Type       string         `json:"type"`
	Ix         string         `json:"ix"`
	UUID       string         `json:"uuid,omitempty"`
	Datatype   string         `json:"datatype,omitempty"`
	Style      string         `json:"style,omitempty"`
	Caption    string         `json:"caption,omitempty"`
	Required   bool           `json:"required,omitempty"`
	Answer     any            `json:"answer,omitempty"`
	Choices    []string       `json:"choices,omitempty"`
	AddCaption string         `json:"add-choice,omitempty"`
	Children   []SnapshotNode `json:"children,omitempty"`
}
