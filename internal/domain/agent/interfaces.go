package agent

import "context"

// Repository persists agent identity records.
type Repository interface {
	Touch(ctx context.Context, agentID string) (*Agent, error)
	List(ctx context.Context) ([]Agent, error)
}
