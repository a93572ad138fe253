package readtracker

import "context"

// Repository persists read receipts.
type Repository interface {
	Record(ctx context.Context, agent, nodeID string, version int) error
	Observed(ctx context.Context, agent, nodeID string) (*int, error)
	Clear(ctx context.Context, agent, nodeID string) error
}
