package crdt

import (
	"encoding/json"
	"testing"
)

func msg(client string, counter uint64, ops ...Operation) SyncMessage {
	return NewSyncMessage(client, counter, ops)
}

func intPtr(v int) *int { return &v }

func TestLWWPropertyUpdatesCommuteOnTieCounter(t *testing.T) {
	base := NewDocument("root")
	base.ApplyMessage(msg("a", 1, InsertNode("root", "n1", json.RawMessage(`{}`), intPtr(0))))

	m1 := msg("a", 2, UpdateProperty("n1", "x", json.RawMessage(`10`)))
	m2 := msg("b", 2, UpdateProperty("n1", "x", json.RawMessage(`20`)))

	docA := cloneDoc(base)
	docA.ApplyMessage(m1)
	docA.ApplyMessage(m2)

	docB := cloneDoc(base)
	docB.ApplyMessage(m2)
	docB.ApplyMessage(m1)

	xa := propertyValue(t, docA, "n1", "x")
	xb := propertyValue(t, docB, "n1", "x")
	if xa != "20" || xb != "20" {
		t.Fatalf("expected both replicas to converge on 20, got %s and %s", xa, xb)
	}
}

func TestLWWMoveIsDeterministic(t *testing.T) {
	base := NewDocument("root")
	base.ApplyMessage(msg("a", 1,
		InsertNode("root", "n1", json.RawMessage(`{}`), intPtr(0)),
		InsertNode("root", "n2", json.RawMessage(`{}`), intPtr(1)),
	))

	m1 := msg("a", 5, MoveNode("n1", "root", intPtr(1)))
	m2 := msg("b", 5, MoveNode("n1", "root", intPtr(0)))

	docA := cloneDoc(base)
	docA.ApplyMessage(m1)
	docA.ApplyMessage(m2)

	docB := cloneDoc(base)
	docB.ApplyMessage(m2)
	docB.ApplyMessage(m1)

	treeA := docA.ExportTree()
	treeB := docB.ExportTree()
	if !treesEqual(treeA, treeB) {
		t.Fatalf("replicas diverged: %+v vs %+v", treeA, treeB)
	}
	if len(treeA.Children) != 2 || treeA.Children[0].NodeID != "n1" || treeA.Children[1].NodeID != "n2" {
		t.Fatalf("unexpected child order: %+v", treeA.Children)
	}
}

func TestApplyingSameMessageTwiceIsIdempotent(t *testing.T) {
	doc := NewDocument("root")
	m := msg("a", 1, InsertNode("root", "n1", json.RawMessage(`{"x":1}`), intPtr(0)))
	doc.ApplyMessage(m)
	once := doc.ExportTree()
	doc.ApplyMessage(m)
	twice := doc.ExportTree()
	if !treesEqual(once, twice) {
		t.Fatalf("re-applying the same message changed the tree")
	}
}

func TestDeleteTombstonesAndBlocksPropertyUpdates(t *testing.T) {
	doc := NewDocument("root")
	doc.ApplyMessage(msg("a", 1, InsertNode("root", "n1", json.RawMessage(`{}`), intPtr(0))))
	doc.ApplyMessage(msg("a", 2, DeleteNode("n1")))
	doc.ApplyMessage(msg("b", 10, UpdateProperty("n1", "x", json.RawMessage(`123`))))

	tree := doc.ExportTree()
	if len(tree.Children) != 0 {
		t.Fatalf("expected deleted node to be absent from export, got %+v", tree.Children)
	}
}

func TestPresenceUpdateKeepsLatestTimestamp(t *testing.T) {
	doc := NewDocument("root")
	doc.ApplyOperation(PresenceUpdate(Presence{ClientID: "a", Color: "red", Timestamp: 5}), Clock{ClientID: "a", Counter: 1})
	doc.ApplyOperation(PresenceUpdate(Presence{ClientID: "a", Color: "blue", Timestamp: 3}), Clock{ClientID: "a", Counter: 2})

	p := doc.Presence()["a"]
	if p.Color != "red" {
		t.Fatalf("expected stale presence update to be dropped, got color %q", p.Color)
	}
}

func cloneDoc(d *Document) *Document {
	clone := NewDocument(d.RootID)
	clone.nodes = map[string]*node{}
	for id, n := range d.nodes {
		nCopy := *n
		nCopy.propertyClocks = map[string]Clock{}
		for k, v := range n.propertyClocks {
			nCopy.propertyClocks[k] = v
		}
		clone.nodes[id] = &nCopy
	}
	clone.seen = map[messageID]bool{}
	for k, v := range d.seen {
		clone.seen[k] = v
	}
	return clone
}

func propertyValue(t *testing.T, d *Document, nodeID, key string) string {
	t.Helper()
	n, ok := d.GetNode(nodeID)
	if !ok {
		t.Fatalf("node %s not found", nodeID)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(n.NodeData, &obj); err != nil {
		t.Fatalf("unmarshaling node data: %v", err)
	}
	return string(obj[key])
}

func treesEqual(a, b TreeNode) bool {
	ab, _ := json.Marshal(a)
	bb, _ := json.Marshal(b)
	return string(ab) == string(bb)
}
