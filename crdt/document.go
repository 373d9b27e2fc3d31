package crdt

import (
	"encoding/json"
	"sort"
	"sync"
)

type node struct {
	nodeID    string
	nodeData  json.RawMessage
	parentID  string
	hasParent bool
	indexHint *int
	deleted   bool

	deleteClock    *Clock
	positionClock  *Clock
	propertyClocks map[string]Clock
}

type messageID struct {
	clientID string
	counter  uint64
}

// Document is a minimal, deterministic CRDT-like scene tree for real-time
// collaboration. It implements LWW registers for properties
// (UpdateProperty), LWW for node position (MoveNode), and tombstoning with
// revive-if-newer on InsertNode. node_data is treated as opaque JSON since
// the document itself does not need to interpret it -- only the consumer
// of ExportTree does.
type Document struct {
	RootID string

	mu       sync.Mutex
	nodes    map[string]*node
	presence map[string]Presence
	seen     map[messageID]bool
}

// NewDocument returns a Document rooted at rootID, with the root node
// pre-inserted as an empty JSON object.
func NewDocument(rootID string) *Document {
	d := &Document{
		RootID:   rootID,
		nodes:    map[string]*node{},
		presence: map[string]Presence{},
		seen:     map[messageID]bool{},
	}
	d.nodes[rootID] = &node{nodeID: rootID, nodeData: json.RawMessage(`{}`), propertyClocks: map[string]Clock{}}
	return d
}

// Node is a read-only snapshot of one node's current state.
type Node struct {
	NodeID   string
	NodeData json.RawMessage
	ParentID string
	HasParent bool
	IndexHint *int
	Deleted   bool
}

// GetNode returns a snapshot of the node with the given id, if present.
func (d *Document) GetNode(nodeID string) (Node, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.nodes[nodeID]
	if !ok {
		return Node{}, false
	}
	return snapshotNode(n), true
}

func snapshotNode(n *node) Node {
	return Node{NodeID: n.nodeID, NodeData: n.nodeData, ParentID: n.parentID, HasParent: n.hasParent, IndexHint: n.indexHint, Deleted: n.deleted}
}

// Presence returns a snapshot of every known collaborator's live presence.
func (d *Document) Presence() map[string]Presence {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]Presence, len(d.presence))
	for k, v := range d.presence {
		out[k] = v
	}
	return out
}

// ApplyMessage applies message's operations under its clock, deduplicating
// by (client_id, counter) so replays are idempotent.
func (d *Document) ApplyMessage(message SyncMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.applyMessageLocked(message)
}

func (d *Document) applyMessageLocked(message SyncMessage) {
	id := messageID{clientID: message.Clock.ClientID, counter: message.Clock.Counter}
	if d.seen[id] {
		return
	}
	d.seen[id] = true
	for _, op := range message.Operations {
		d.applyOperationLocked(op, message.Clock)
	}
}

// ApplyMessages applies a batch of messages in LWW clock order, so the
// result is independent of delivery order.
func (d *Document) ApplyMessages(messages []SyncMessage) {
	sorted := make([]SyncMessage, len(messages))
	copy(sorted, messages)
	sort.Slice(sorted, func(i, j int) bool {
		return CompareLWW(sorted[i].Clock, sorted[j].Clock) < 0
	})
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range sorted {
		d.applyMessageLocked(m)
	}
}

// ApplyOperation applies a single operation under the given clock, bypassing
// the seen-message dedup (for callers that manage their own idempotency).
func (d *Document) ApplyOperation(op Operation, clock Clock) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.applyOperationLocked(op, clock)
}

func (d *Document) applyOperationLocked(op Operation, clock Clock) {
	switch op.Kind {
	case OpInsertNode:
		d.applyInsert(op, clock)
	case OpDeleteNode:
		d.deleteSubtree(op.NodeID, clock)
	case OpUpdateProperty:
		d.applyUpdateProperty(op, clock)
	case OpMoveNode:
		d.applyMove(op, clock)
	case OpPresenceUpdate:
		d.applyPresence(op.Presence)
	}
}

func (d *Document) applyInsert(op Operation, clock Clock) {
	existing, ok := d.nodes[op.NodeID]
	if !ok {
		n := &node{
			nodeID:         op.NodeID,
			nodeData:       op.NodeData,
			parentID:       op.ParentID,
			hasParent:      true,
			indexHint:      op.Index,
			positionClock:  clockPtr(clock),
			propertyClocks: map[string]Clock{},
		}
		d.nodes[op.NodeID] = n
		return
	}

	if existing.deleted {
		canRevive := existing.deleteClock == nil || clock.GreaterLWW(*existing.deleteClock)
		if !canRevive {
			return
		}
		existing.deleted = false
		existing.deleteClock = nil
	}

	existing.nodeData = op.NodeData

	shouldMove := existing.positionClock == nil || clock.GreaterLWW(*existing.positionClock)
	if shouldMove {
		existing.parentID = op.ParentID
		existing.hasParent = true
		existing.indexHint = op.Index
		existing.positionClock = clockPtr(clock)
	}
}

func (d *Document) applyUpdateProperty(op Operation, clock Clock) {
	n, ok := d.nodes[op.NodeID]
	if !ok || n.deleted {
		return
	}
	prev, hasPrev := n.propertyClocks[op.Key]
	if hasPrev && !clock.GreaterLWW(prev) {
		return
	}

	obj := map[string]json.RawMessage{}
	if len(n.nodeData) > 0 {
		_ = json.Unmarshal(n.nodeData, &obj) // non-object data is replaced below
	}
	if obj == nil {
		obj = map[string]json.RawMessage{}
	}
	obj[op.Key] = op.Value
	merged, _ := json.Marshal(obj) // map[string]json.RawMessage always marshals
	n.nodeData = merged
	n.propertyClocks[op.Key] = clock
}

func (d *Document) applyMove(op Operation, clock Clock) {
	if op.NodeID == d.RootID {
		return
	}
	n, ok := d.nodes[op.NodeID]
	if !ok || n.deleted {
		return
	}
	shouldMove := n.positionClock == nil || clock.GreaterLWW(*n.positionClock)
	if !shouldMove {
		return
	}
	n.parentID = op.NewParentID
	n.hasParent = true
	n.indexHint = op.Index
	n.positionClock = clockPtr(clock)
}

func (d *Document) applyPresence(p *Presence) {
	if p == nil {
		return
	}
	existing, ok := d.presence[p.ClientID]
	if !ok || p.Timestamp >= existing.Timestamp {
		d.presence[p.ClientID] = *p
	}
}

// deleteSubtree tombstones nodeID and every descendant not already deleted
// by a newer clock, via an explicit stack so deep trees don't depend on
// call-stack depth.
func (d *Document) deleteSubtree(nodeID string, clock Clock) {
	if nodeID == d.RootID {
		return
	}
	stack := []string{nodeID}
	for len(stack) > 0 {
		currentID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n, ok := d.nodes[currentID]
		if !ok {
			continue
		}
		canDelete := n.deleteClock == nil || clock.GreaterLWW(*n.deleteClock)
		if !canDelete {
			continue
		}
		n.deleted = true
		n.deleteClock = clockPtr(clock)

		for _, child := range d.nodes {
			if child.hasParent && child.parentID == currentID {
				stack = append(stack, child.nodeID)
			}
		}
	}
}

func clockPtr(c Clock) *Clock { return &c }

// TreeNode is one node of an exported, deterministically ordered snapshot.
type TreeNode struct {
	NodeID   string          `json:"node_id"`
	Data     json.RawMessage `json:"data"`
	Children []TreeNode      `json:"children"`
}

// ExportTree reconstructs a deterministic tree snapshot from RootID,
// ordering siblings by index_hint, then position clock, then node id, so
// any two replicas that have applied the same set of operations (in any
// order) export identical trees.
func (d *Document) ExportTree() TreeNode {
	d.mu.Lock()
	defer d.mu.Unlock()
	visited := map[string]bool{}
	t, ok := d.exportNode(d.RootID, visited)
	if !ok {
		return TreeNode{NodeID: d.RootID, Data: json.RawMessage(`{}`)}
	}
	return t
}

func (d *Document) exportNode(nodeID string, visited map[string]bool) (TreeNode, bool) {
	if visited[nodeID] {
		return TreeNode{}, false
	}
	visited[nodeID] = true

	n, ok := d.nodes[nodeID]
	if !ok || n.deleted {
		return TreeNode{}, false
	}

	var children []*node
	for _, c := range d.nodes {
		if c.hasParent && c.parentID == nodeID && !c.deleted {
			children = append(children, c)
		}
	}
	sort.Slice(children, func(i, j int) bool { return lessChild(children[i], children[j]) })

	out := TreeNode{NodeID: n.nodeID, Data: n.nodeData}
	for _, c := range children {
		if childTree, ok := d.exportNode(c.nodeID, visited); ok {
			out.Children = append(out.Children, childTree)
		}
	}
	return out, true
}

func lessChild(a, b *node) bool {
	ia, ib := indexOrMax(a.indexHint), indexOrMax(b.indexHint)
	if ia != ib {
		return ia < ib
	}
	switch {
	case a.positionClock == nil && b.positionClock == nil:
		return a.nodeID < b.nodeID
	case a.positionClock == nil:
		return true
	case b.positionClock == nil:
		return false
	default:
		cmp := CompareLWW(*a.positionClock, *b.positionClock)
		if cmp != 0 {
			return cmp < 0
		}
		return a.nodeID < b.nodeID
	}
}

func indexOrMax(idx *int) int {
	if idx == nil {
		return int(^uint(0) >> 1)
	}
	return *idx
}
