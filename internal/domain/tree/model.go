// Package tree implements the versioned document tree: node identity,
// structural invariants, and pre-order traversal (spec components C2/C3).
package tree

import "time"

// Node is an element of the document tree.
type Node struct {
	NodeID         string
	Title          string
	Depth          int
	ParentID       *string
	ChildOrder     []string
	CurrentVersion int
	CreatedAt      time.Time
	ModifiedAt     time.Time
}

// TraversalEntry is one line of a pre-order walk of the tree.
type TraversalEntry struct {
	Depth          int
	NodeID         string
	Title          string
	CurrentVersion int
}

// Snapshot is the in-memory projection of the whole tree, reconstructed from
// the Store at the start of every traversal. It is never mutated in place;
// Create/Rename persist to the Store and the next read rebuilds it.
type Snapshot struct {
	Nodes    map[string]*Node
	TopLevel []string
}

// Child returns the node for id, or nil if it does not exist in the snapshot.
func (s *Snapshot) Child(id string) *Node {
	return s.Nodes[id]
}
