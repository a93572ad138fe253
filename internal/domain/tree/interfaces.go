package tree

import "context"

// Repository persists nodes. CreateNode must atomically allocate the node id,
// insert the node row, append it to its parent's child_order, and write
// version 1 (spec §4.1, §4.3) — so node creation never observably exists
// without its initial version.
type Repository interface {
	CreateNode(ctx context.Context, parentID *string, title, author, content string) (*Node, error)
	RenameNode(ctx context.Context, nodeID, newTitle, author string) (*Node, error)
	Get(ctx context.Context, nodeID string) (*Node, error)
	Snapshot(ctx context.Context) (*Snapshot, error)
}
