package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JJStrongstone/niwa/internal/sqlite"
)

func TestSearchRepository_Search_MatchesTitleViaFTS(t *testing.T) {
	db := sqlite.NewTestDB(t)
	nodes := sqlite.NewNodeRepository(db)
	repo := sqlite.NewSearchRepository(db)
	ctx := context.Background()

	root, err := nodes.CreateNode(ctx, nil, "Quarterly Report", "alice", "numbers go here")
	require.NoError(t, err)
	_, err = nodes.CreateNode(ctx, nil, "Unrelated", "alice", "nothing interesting")
	require.NoError(t, err)

	ids, err := repo.Search(ctx, "Quarterly")
	require.NoError(t, err)
	require.Equal(t, []string{root.NodeID}, ids)
}

func TestSearchRepository_Search_MatchesContent(t *testing.T) {
	db := sqlite.NewTestDB(t)
	nodes := sqlite.NewNodeRepository(db)
	repo := sqlite.NewSearchRepository(db)
	ctx := context.Background()

	root, err := nodes.CreateNode(ctx, nil, "Root", "alice", "contains a unique phrase about pelicans")
	require.NoError(t, err)

	ids, err := repo.Search(ctx, "pelicans")
	require.NoError(t, err)
	require.Equal(t, []string{root.NodeID}, ids)
}

func TestSearchRepository_Search_IsCaseInsensitive(t *testing.T) {
	db := sqlite.NewTestDB(t)
	nodes := sqlite.NewNodeRepository(db)
	repo := sqlite.NewSearchRepository(db)
	ctx := context.Background()

	root, err := nodes.CreateNode(ctx, nil, "Root", "alice", "Mixed CASE Content")
	require.NoError(t, err)

	ids, err := repo.Search(ctx, "mixed case")
	require.NoError(t, err)
	require.Equal(t, []string{root.NodeID}, ids)
}

func TestSearchRepository_Search_ShortQueryUsesLikeFallback(t *testing.T) {
	db := sqlite.NewTestDB(t)
	nodes := sqlite.NewNodeRepository(db)
	repo := sqlite.NewSearchRepository(db)
	ctx := context.Background()

	root, err := nodes.CreateNode(ctx, nil, "ok", "alice", "")
	require.NoError(t, err)

	ids, err := repo.Search(ctx, "ok")
	require.NoError(t, err)
	require.Equal(t, []string{root.NodeID}, ids)
}

func TestSearchRepository_Search_NoMatchesReturnsEmpty(t *testing.T) {
	db := sqlite.NewTestDB(t)
	nodes := sqlite.NewNodeRepository(db)
	repo := sqlite.NewSearchRepository(db)
	ctx := context.Background()

	_, err := nodes.CreateNode(ctx, nil, "Root", "alice", "body")
	require.NoError(t, err)

	ids, err := repo.Search(ctx, "zzz-nope")
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestSearchRepository_Search_ReflectsRenamedTitle(t *testing.T) {
	db := sqlite.NewTestDB(t)
	nodes := sqlite.NewNodeRepository(db)
	repo := sqlite.NewSearchRepository(db)
	ctx := context.Background()

	root, err := nodes.CreateNode(ctx, nil, "Original Title", "alice", "")
	require.NoError(t, err)

	before, err := repo.Search(ctx, "Original")
	require.NoError(t, err)
	require.Equal(t, []string{root.NodeID}, before)

	_, err = nodes.RenameNode(ctx, root.NodeID, "Renamed Title", "alice")
	require.NoError(t, err)

	after, err := repo.Search(ctx, "Original")
	require.NoError(t, err)
	require.Empty(t, after)

	after, err = repo.Search(ctx, "Renamed")
	require.NoError(t, err)
	require.Equal(t, []string{root.NodeID}, after)
}
