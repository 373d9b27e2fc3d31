// Package crdt implements the last-writer-wins document CRDT used to
// reconcile concurrent scene-graph edits from multiple collaborators before
// they reach the render core.
package crdt

import "strings"

// Clock is a per-client logical clock: a monotonically increasing counter
// scoped to a client id. Comparing two Clocks gives a deterministic total
// order across clients with no coordination.
type Clock struct {
	ClientID string
	Counter  uint64
}

// CompareLWW orders two clocks: higher Counter wins; ties break on
// lexicographic ClientID. Returns -1, 0, or 1 like strings.Compare.
func CompareLWW(a, b Clock) int {
	switch {
	case a.Counter < b.Counter:
		return -1
	case a.Counter > b.Counter:
		return 1
	default:
		return strings.Compare(a.ClientID, b.ClientID)
	}
}

// GreaterLWW reports whether c is strictly newer than other under the LWW order.
func (c Clock) GreaterLWW(other Clock) bool {
	return CompareLWW(c, other) > 0
}
