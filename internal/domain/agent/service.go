package agent

import "context"

// Service manages agent identity records.
type Service struct {
	repo Repository
}

// NewService builds an agent Service over the given Repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Touch records (or creates) the agent's last-seen timestamp, returning the
// up-to-date record.
func (s *Service) Touch(ctx context.Context, agentID string) (*Agent, error) {
	return s.repo.Touch(ctx, agentID)
}

// List returns every agent ever seen, for the `agents` diagnostic command.
func (s *Service) List(ctx context.Context) ([]Agent, error) {
	return s.repo.List(ctx)
}
