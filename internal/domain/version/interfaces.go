package version

import "context"

// Repository persists version rows and reads them back.
type Repository interface {
	Append(ctx context.Context, nodeID, content, author, summary string, baseVersion *int) (*Version, error)
	Get(ctx context.Context, nodeID string, v int) (*Version, error)
	Latest(ctx context.Context, nodeID string) (*Version, error)
	List(ctx context.Context, nodeID string) ([]Version, error)
}
