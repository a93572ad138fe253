// Package search exposes case-insensitive substring search over node
// titles and content (spec component C8). The heavy lifting — a trigram
// FTS5 virtual table kept in sync by triggers — lives in the sqlite
// repository; this package is the thin wrapper the command surface calls
// into, plus the pre-order reordering the spec asks results be returned in.
package search

import "context"

// Repository performs the underlying match.
type Repository interface {
	// Search returns the node ids whose title or latest content contain
	// query, case-insensitively, in no particular order.
	Search(ctx context.Context, query string) ([]string, error)
}

// Service is the search component.
type Service struct {
	repo Repository
}

// NewService builds a search Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Search returns matching node ids in no particular order; an empty query
// returns an empty result, never an error, and so does no match. Callers
// that need pre-order (the `search` command does, per §4.8) should pass the
// result through OrderByPreOrder against a pre-order traversal.
func (s *Service) Search(ctx context.Context, query string) ([]string, error) {
	if query == "" {
		return nil, nil
	}
	return s.repo.Search(ctx, query)
}

// OrderByPreOrder reorders ids to match their position in preOrder (a full
// pre-order traversal's node id sequence), satisfying §4.8's ordering
// requirement without the search index needing any notion of tree shape.
func OrderByPreOrder(ids []string, preOrder []string) []string {
	rank := make(map[string]int, len(preOrder))
	for i, id := range preOrder {
		rank[id] = i
	}

	sorted := make([]string, len(ids))
	copy(sorted, ids)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && rank[sorted[j-1]] > rank[sorted[j]]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	return sorted
}
