package conflict

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreadEdit is returned when an agent edits a node it has never read.
	ErrUnreadEdit = errors.New("edit rejected: node must be read before it can be edited")
	// ErrNoPendingConflict is returned when resolve is invoked with nothing pending.
	ErrNoPendingConflict = errors.New("no pending conflict for this node and agent")
	// ErrCorruptState indicates an invariant the engine relies on has been violated.
	ErrCorruptState = errors.New("corrupt state: observed version exceeds current version")
	// ErrNodeNotFound indicates the target node doesn't exist.
	ErrNodeNotFound = errors.New("node not found")
)

// DetectedError is raised when submit_edit finds the author's observed
// version stale (§4.6 step 5). It carries both sides of the quarantine so
// the caller can render a structured conflict, never a flattened string.
type DetectedError struct {
	NodeID         string
	LosingContent  string
	WinningContent string
	WinningVersion int
	ConflictID     string
}

func (e *DetectedError) Error() string {
	return fmt.Sprintf("conflict detected on %s: local write stale against version %d", e.NodeID, e.WinningVersion)
}
