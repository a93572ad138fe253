package readtracker

import (
	"context"
	"io"
	"log/slog"
)

// Service wraps read-receipt persistence. Peek purity (P5) is structural:
// this package exposes no peek method at all, so a caller that wants to
// inspect content without recording a receipt (the `peek` command) simply
// never calls Record — there is no code path that could accidentally do so.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService builds a readtracker Service over the given Repository. A nil
// logger discards output.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, logger: logger}
}

// Record upserts the observed version for an (agent, node) pair.
func (s *Service) Record(ctx context.Context, agent, nodeID string, version int) error {
	if err := s.repo.Record(ctx, agent, nodeID, version); err != nil {
		return err
	}
	s.logger.Debug("read receipt recorded", "agent", agent, "node_id", nodeID, "version", version)
	return nil
}

// Observed returns the last version the agent recorded for the node, or nil
// if the agent has never read it.
func (s *Service) Observed(ctx context.Context, agent, nodeID string) (*int, error) {
	return s.repo.Observed(ctx, agent, nodeID)
}

// Clear removes the agent's receipt for the node. The conflict engine does
// not call it: its Repository clears the receipt inside the same
// transaction as a commit or resolution.
func (s *Service) Clear(ctx context.Context, agent, nodeID string) error {
	if err := s.repo.Clear(ctx, agent, nodeID); err != nil {
		return err
	}
	s.logger.Debug("read receipt cleared", "agent", agent, "node_id", nodeID)
	return nil
}
