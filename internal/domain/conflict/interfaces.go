package conflict

import (
	"context"

	"github.com/JJStrongstone/niwa/internal/domain/version"
)

// Repository owns the atomic multi-table transactions the conflict engine
// needs: every commit touches the node record, the appended version row, and
// the author's read receipt together, and every conflict write touches the
// conflicts table alone without disturbing the node (spec §4.1, §4.6).
type Repository interface {
	// Commit appends a new version, advances the node's current_version, and
	// clears the author's read receipt, all in one transaction.
	Commit(ctx context.Context, nodeID, author, content, summary string, baseVersion int) (*version.Version, error)

	// CreateConflict quarantines a losing write without touching the node.
	CreateConflict(ctx context.Context, nodeID, losingAuthor, losingContent, losingSummary string, losingBaseVersion, winningVersion int) (*Conflict, error)

	// Pending lists pending conflicts, optionally filtered to one node (empty
	// nodeID means all nodes).
	Pending(ctx context.Context, nodeID string) ([]Conflict, error)

	// MostRecentPendingForAgent finds the most recent pending conflict on a
	// node whose losing_author is agent (§4.6 Resolution, open question b).
	MostRecentPendingForAgent(ctx context.Context, nodeID, agent string) (*Conflict, error)

	// ResolveAcceptYours commits the conflict's losing payload as a fresh
	// edit based on the current version, clears the agent's receipt, and
	// marks the conflict resolved, all atomically.
	ResolveAcceptYours(ctx context.Context, conflictID, agent string) (*version.Version, error)

	// ResolveAcceptTheirs marks the conflict resolved and clears the agent's
	// receipt without touching node state.
	ResolveAcceptTheirs(ctx context.Context, conflictID, agent string) error

	// ResolveMerge commits mergedContent as a fresh edit based on the current
	// version, clears the agent's receipt, and marks the conflict resolved.
	ResolveMerge(ctx context.Context, conflictID, agent, mergedContent string) (*version.Version, error)
}
