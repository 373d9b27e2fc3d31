package crdt

import "encoding/json"

// OpKind is the closed set of CRDT operations a client can emit.
type OpKind uint8

const (
	OpInsertNode OpKind = iota
	OpDeleteNode
	OpUpdateProperty
	OpMoveNode
	OpPresenceUpdate
)

// Operation is one mutation in a SyncMessage. Only the fields relevant to
// Kind are populated; node_data/value carry arbitrary caller-defined JSON.
type Operation struct {
	Kind OpKind

	// InsertNode
	ParentID string
	NodeID   string
	NodeData json.RawMessage
	Index    *int

	// DeleteNode: NodeID only.

	// UpdateProperty
	Key   string
	Value json.RawMessage

	// MoveNode
	NewParentID string

	// PresenceUpdate
	Presence *Presence
}

// CursorKind distinguishes what a Presence's cursor is pointing at.
type CursorKind uint8

const (
	CursorNode CursorKind = iota
	CursorTextOffset
)

// Cursor locates a collaborator's selection, either a whole node or a byte
// offset inside a node's text content.
type Cursor struct {
	Kind       CursorKind
	NodeID     string
	TextOffset int // valid when Kind == CursorTextOffset
}

// Presence is a collaborator's live editing state, broadcast and merged by
// timestamp rather than by logical clock.
type Presence struct {
	ClientID  string
	AvatarURL string
	Color     string
	Cursor    *Cursor
	Timestamp int64
}

func InsertNode(parentID, nodeID string, nodeData json.RawMessage, index *int) Operation {
	return Operation{Kind: OpInsertNode, ParentID: parentID, NodeID: nodeID, NodeData: nodeData, Index: index}
}

func DeleteNode(nodeID string) Operation {
	return Operation{Kind: OpDeleteNode, NodeID: nodeID}
}

func UpdateProperty(nodeID, key string, value json.RawMessage) Operation {
	return Operation{Kind: OpUpdateProperty, NodeID: nodeID, Key: key, Value: value}
}

func MoveNode(nodeID, newParentID string, index *int) Operation {
	return Operation{Kind: OpMoveNode, NodeID: nodeID, NewParentID: newParentID, Index: index}
}

func PresenceUpdate(p Presence) Operation {
	return Operation{Kind: OpPresenceUpdate, Presence: &p}
}
