package conflict

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/JJStrongstone/niwa/internal/domain/readtracker"
	"github.com/JJStrongstone/niwa/internal/domain/version"
	"github.com/JJStrongstone/niwa/internal/repository"
)

// Service is the conflict engine: admission control for every write after
// v1, and the resolution protocol for quarantined writes (spec §4.6).
type Service struct {
	repo        Repository
	versions    *version.Service
	readTracker *readtracker.Service
	logger      *slog.Logger
}

// NewService builds a conflict engine Service. A nil logger discards output.
func NewService(repo Repository, versions *version.Service, readTracker *readtracker.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, versions: versions, readTracker: readTracker, logger: logger}
}

// SubmitEdit is the §4.6 admission algorithm.
func (s *Service) SubmitEdit(ctx context.Context, agent, nodeID, newContent, summary string) (*version.Version, error) {
	latest, err := s.versions.Latest(ctx, nodeID)
	if err != nil {
		if errors.Is(err, version.ErrVersionNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, err
	}

	observed, err := s.readTracker.Observed(ctx, agent, nodeID)
	if err != nil {
		return nil, translate(err)
	}

	// No-read policy: the author must `read` before `edit` (§4.6 step 3).
	if observed == nil {
		return nil, ErrUnreadEdit
	}

	switch {
	case *observed == latest.Version:
		v, err := s.repo.Commit(ctx, nodeID, agent, newContent, summary, *observed)
		if err != nil {
			return nil, translate(err)
		}
		s.logger.Info("edit committed", "node_id", nodeID, "version", v.Version, "author", agent)
		return v, nil

	case *observed < latest.Version:
		c, err := s.repo.CreateConflict(ctx, nodeID, agent, newContent, summary, *observed, latest.Version)
		if err != nil {
			return nil, translate(err)
		}
		s.logger.Warn("edit quarantined", "node_id", nodeID, "conflict_id", c.ConflictID,
			"author", agent, "observed_version", *observed, "winning_version", latest.Version)
		return nil, &DetectedError{
			NodeID:         nodeID,
			LosingContent:  newContent,
			WinningContent: latest.Content,
			WinningVersion: latest.Version,
			ConflictID:     c.ConflictID,
		}

	default:
		// observed > latest.version is impossible by invariants 4 and 5.
		s.logger.Error("observed version exceeds latest version", "node_id", nodeID, "author", agent, "observed_version", *observed, "latest_version", latest.Version)
		return nil, ErrCorruptState
	}
}

// Resolve applies action to the most recent pending conflict for the
// (node, agent) pair (§4.6 Resolution, open question b).
func (s *Service) Resolve(ctx context.Context, agent, nodeID string, action Resolution, mergedContent string) (*version.Version, error) {
	c, err := s.repo.MostRecentPendingForAgent(ctx, nodeID, agent)
	if err != nil {
		return nil, translate(err)
	}
	if c == nil {
		return nil, ErrNoPendingConflict
	}

	switch action {
	case AcceptYours:
		v, err := s.repo.ResolveAcceptYours(ctx, c.ConflictID, agent)
		if err != nil {
			return nil, translate(err)
		}
		s.logger.Info("conflict resolved", "conflict_id", c.ConflictID, "resolution", AcceptYours, "agent", agent)
		return v, nil

	case AcceptTheirs:
		if err := s.repo.ResolveAcceptTheirs(ctx, c.ConflictID, agent); err != nil {
			return nil, translate(err)
		}
		s.logger.Info("conflict resolved", "conflict_id", c.ConflictID, "resolution", AcceptTheirs, "agent", agent)
		return nil, nil

	case Merge:
		v, err := s.repo.ResolveMerge(ctx, c.ConflictID, agent, mergedContent)
		if err != nil {
			return nil, translate(err)
		}
		s.logger.Info("conflict resolved", "conflict_id", c.ConflictID, "resolution", Merge, "agent", agent)
		return v, nil

	default:
		return nil, errors.New("conflict: unknown resolution action")
	}
}

// Pending lists pending conflicts, optionally filtered to one node.
func (s *Service) Pending(ctx context.Context, nodeID string) ([]Conflict, error) {
	list, err := s.repo.Pending(ctx, nodeID)
	if err != nil {
		return nil, translate(err)
	}
	return list, nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNodeNotFound
	case errors.Is(err, repository.ErrConflict):
		return ErrCorruptState
	default:
		return err
	}
}
