package version

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/JJStrongstone/niwa/internal/repository"
)

// Service is the version-history half of the versioning component (spec C4).
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService builds a version Service over the given Repository. A nil
// logger discards output.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, logger: logger}
}

// Append records a new version. Neither the command surface nor the conflict
// engine calls it: the engine appends versions through its own Repository's
// Commit and resolve transactions.
func (s *Service) Append(ctx context.Context, nodeID, content, author, summary string, baseVersion *int) (*Version, error) {
	v, err := s.repo.Append(ctx, nodeID, content, author, summary, baseVersion)
	if err != nil {
		return nil, translate(err)
	}
	s.logger.Info("version appended", "node_id", v.NodeID, "version", v.Version, "author", author)
	return v, nil
}

// Get fetches a single version of a node.
func (s *Service) Get(ctx context.Context, nodeID string, v int) (*Version, error) {
	ver, err := s.repo.Get(ctx, nodeID, v)
	if err != nil {
		return nil, translate(err)
	}
	return ver, nil
}

// Latest fetches the most recent version of a node.
func (s *Service) Latest(ctx context.Context, nodeID string) (*Version, error) {
	ver, err := s.repo.Latest(ctx, nodeID)
	if err != nil {
		return nil, translate(err)
	}
	return ver, nil
}

// List returns all versions of a node in version order.
func (s *Service) List(ctx context.Context, nodeID string) ([]Version, error) {
	list, err := s.repo.List(ctx, nodeID)
	if err != nil {
		return nil, translate(err)
	}
	return list, nil
}

// Diff computes a line-oriented diff between two versions of a node: split
// both contents on "\n", compute the longest common subsequence of lines,
// and emit "+", "-", and context lines along that alignment (spec §4.4).
func (s *Service) Diff(ctx context.Context, nodeID string, vA, vB int) ([]DiffLine, error) {
	a, err := s.Get(ctx, nodeID, vA)
	if err != nil {
		return nil, err
	}
	b, err := s.Get(ctx, nodeID, vB)
	if err != nil {
		return nil, err
	}
	return DiffLines(splitLines(a.Content), splitLines(b.Content)), nil
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}

// DiffLines emits a line diff between a and b via the longest common
// subsequence: lines present in both (in order) become context, lines only
// in a become removals, lines only in b become additions.
func DiffLines(a, b []string) []DiffLine {
	n, m := len(a), len(b)
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var out []DiffLine
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			out = append(out, DiffLine{Kind: " ", Text: a[i]})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			out = append(out, DiffLine{Kind: "-", Text: a[i]})
			i++
		default:
			out = append(out, DiffLine{Kind: "+", Text: b[j]})
			j++
		}
	}
	for ; i < n; i++ {
		out = append(out, DiffLine{Kind: "-", Text: a[i]})
	}
	for ; j < m; j++ {
		out = append(out, DiffLine{Kind: "+", Text: b[j]})
	}
	return out
}

func translate(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrVersionNotFound
	default:
		return err
	}
}
