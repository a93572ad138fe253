package tree

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/JJStrongstone/niwa/internal/repository"
)

// Service is the in-memory-projection-facing half of the tree component
// (spec C3): it validates shape before delegating the atomic work — id
// allocation, duplicate/parent/depth checks, and the version-1 write — to
// the Repository, which performs all of it inside a single transaction.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService builds a tree Service over the given Repository. A nil logger
// discards output, matching the teacher's constructors where logger is
// always supplied by main but never required to be non-nil for callers
// that don't care.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, logger: logger}
}

// Create adds a new node under parentID (nil for top-level) and returns it.
// content seeds version 1 directly; it is empty for a bare `add`.
func (s *Service) Create(ctx context.Context, title string, parentID *string, author, content string) (*Node, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrInvalidTitle
	}

	node, err := s.repo.CreateNode(ctx, parentID, title, author, content)
	if err != nil {
		return nil, translate(err)
	}
	s.logger.Info("node created", "node_id", node.NodeID, "title", node.Title, "author", author)
	return node, nil
}

// Rename changes a node's title, bumping its version with unchanged content.
func (s *Service) Rename(ctx context.Context, nodeID, newTitle, author string) (*Node, error) {
	if strings.TrimSpace(newTitle) == "" {
		return nil, ErrInvalidTitle
	}

	node, err := s.repo.RenameNode(ctx, nodeID, newTitle, author)
	if err != nil {
		return nil, translate(err)
	}
	s.logger.Info("node renamed", "node_id", node.NodeID, "title", node.Title, "author", author)
	return node, nil
}

// Get fetches a single node by id.
func (s *Service) Get(ctx context.Context, nodeID string) (*Node, error) {
	node, err := s.repo.Get(ctx, nodeID)
	if err != nil {
		return nil, translate(err)
	}
	return node, nil
}

// Traverse walks the whole tree in pre-order, siblings ordered by ChildOrder.
func (s *Service) Traverse(ctx context.Context) ([]TraversalEntry, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, translate(err)
	}

	var entries []TraversalEntry
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		n := snap.Child(id)
		if n == nil {
			return
		}
		entries = append(entries, TraversalEntry{
			Depth:          depth,
			NodeID:         n.NodeID,
			Title:          n.Title,
			CurrentVersion: n.CurrentVersion,
		})
		for _, childID := range n.ChildOrder {
			walk(childID, depth+1)
		}
	}
	for _, id := range snap.TopLevel {
		walk(id, 1)
	}
	return entries, nil
}

// Snapshot exposes the raw tree projection, e.g. for the markdown codec.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return snap, nil
}

// translate maps repository-layer sentinels onto this package's error kinds,
// mirroring the teacher's boundary-layer error translation.
func translate(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNodeNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return ErrDuplicateTitle
	case errors.Is(err, repository.ErrForeignKeyViolation):
		return ErrParentNotFound
	case errors.Is(err, repository.ErrDepthExceeded):
		return ErrDepthExceeded
	case errors.Is(err, repository.ErrInvalidInput):
		return ErrInvalidTitle
	default:
		return err
	}
}
