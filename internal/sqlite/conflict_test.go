package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JJStrongstone/niwa/internal/domain/conflict"
	"github.com/JJStrongstone/niwa/internal/repository"
	"github.com/JJStrongstone/niwa/internal/sqlite"
)

func TestConflictRepository_Commit_Success(t *testing.T) {
	db := sqlite.NewTestDB(t)
	nodes := sqlite.NewNodeRepository(db)
	conflicts := sqlite.NewConflictRepository(db)
	ctx := context.Background()

	root, err := nodes.CreateNode(ctx, nil, "Root", "alice", "v1")
	require.NoError(t, err)

	v, err := conflicts.Commit(ctx, root.NodeID, "alice", "v2", "edit", 1)
	require.NoError(t, err)
	require.Equal(t, 2, v.Version)

	fetched, err := nodes.Get(ctx, root.NodeID)
	require.NoError(t, err)
	require.Equal(t, 2, fetched.CurrentVersion)
	var content string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT content FROM nodes WHERE node_id = ?`, root.NodeID).Scan(&content))
	require.Equal(t, "v2", content)
}

func TestConflictRepository_Commit_StaleBaseVersionReturnsConflict(t *testing.T) {
	db := sqlite.NewTestDB(t)
	nodes := sqlite.NewNodeRepository(db)
	conflicts := sqlite.NewConflictRepository(db)
	ctx := context.Background()

	root, err := nodes.CreateNode(ctx, nil, "Root", "alice", "v1")
	require.NoError(t, err)

	_, err = conflicts.Commit(ctx, root.NodeID, "alice", "v2", "edit", 1)
	require.NoError(t, err)

	_, err = conflicts.Commit(ctx, root.NodeID, "bob", "v3-stale", "edit", 1)
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestConflictRepository_Commit_ClearsAuthorReceipt(t *testing.T) {
	db := sqlite.NewTestDB(t)
	nodes := sqlite.NewNodeRepository(db)
	conflicts := sqlite.NewConflictRepository(db)
	tracker := sqlite.NewReadTrackerRepository(db)
	ctx := context.Background()

	root, err := nodes.CreateNode(ctx, nil, "Root", "alice", "v1")
	require.NoError(t, err)
	require.NoError(t, tracker.Record(ctx, "alice", root.NodeID, 1))

	_, err = conflicts.Commit(ctx, root.NodeID, "alice", "v2", "edit", 1)
	require.NoError(t, err)

	observed, err := tracker.Observed(ctx, "alice", root.NodeID)
	require.NoError(t, err)
	require.Nil(t, observed)
}

func TestConflictRepository_CreateConflict_ThenPending(t *testing.T) {
	db := sqlite.NewTestDB(t)
	nodes := sqlite.NewNodeRepository(db)
	conflicts := sqlite.NewConflictRepository(db)
	ctx := context.Background()

	root, err := nodes.CreateNode(ctx, nil, "Root", "alice", "v1")
	require.NoError(t, err)

	c, err := conflicts.CreateConflict(ctx, root.NodeID, "bob", "bob's content", "bob's edit", 1, 2)
	require.NoError(t, err)
	require.Equal(t, conflict.Pending, c.Status)
	require.NotEmpty(t, c.ConflictID)

	pending, err := conflicts.Pending(ctx, "")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, c.ConflictID, pending[0].ConflictID)
}

func TestConflictRepository_CreateConflict_UnknownNodeIsForeignKeyViolation(t *testing.T) {
	db := sqlite.NewTestDB(t)
	conflicts := sqlite.NewConflictRepository(db)

	_, err := conflicts.CreateConflict(context.Background(), "missing", "bob", "content", "summary", 1, 2)
	require.ErrorIs(t, err, repository.ErrForeignKeyViolation)
}

func TestConflictRepository_Pending_FilteredByNode(t *testing.T) {
	db := sqlite.NewTestDB(t)
	nodes := sqlite.NewNodeRepository(db)
	conflicts := sqlite.NewConflictRepository(db)
	ctx := context.Background()

	first, err := nodes.CreateNode(ctx, nil, "First", "alice", "")
	require.NoError(t, err)
	second, err := nodes.CreateNode(ctx, nil, "Second", "alice", "")
	require.NoError(t, err)

	_, err = conflicts.CreateConflict(ctx, first.NodeID, "bob", "content", "summary", 1, 2)
	require.NoError(t, err)
	_, err = conflicts.CreateConflict(ctx, second.NodeID, "bob", "content", "summary", 1, 2)
	require.NoError(t, err)

	pending, err := conflicts.Pending(ctx, first.NodeID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, first.NodeID, pending[0].NodeID)
}

func TestConflictRepository_MostRecentPendingForAgent_NoneReturnsNilNoError(t *testing.T) {
	db := sqlite.NewTestDB(t)
	nodes := sqlite.NewNodeRepository(db)
	conflicts := sqlite.NewConflictRepository(db)
	ctx := context.Background()

	root, err := nodes.CreateNode(ctx, nil, "Root", "alice", "")
	require.NoError(t, err)

	c, err := conflicts.MostRecentPendingForAgent(ctx, root.NodeID, "bob")
	require.NoError(t, err)
	require.Nil(t, c)
}

func TestConflictRepository_MostRecentPendingForAgent_ReturnsLatest(t *testing.T) {
	db := sqlite.NewTestDB(t)
	nodes := sqlite.NewNodeRepository(db)
	conflicts := sqlite.NewConflictRepository(db)
	ctx := context.Background()

	root, err := nodes.CreateNode(ctx, nil, "Root", "alice", "")
	require.NoError(t, err)

	_, err = conflicts.CreateConflict(ctx, root.NodeID, "bob", "first attempt", "summary", 1, 2)
	require.NoError(t, err)
	second, err := conflicts.CreateConflict(ctx, root.NodeID, "bob", "second attempt", "summary", 1, 3)
	require.NoError(t, err)

	latest, err := conflicts.MostRecentPendingForAgent(ctx, root.NodeID, "bob")
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Equal(t, second.ConflictID, latest.ConflictID)
}

func TestConflictRepository_ResolveAcceptYours_CommitsLosingContent(t *testing.T) {
	db := sqlite.NewTestDB(t)
	nodes := sqlite.NewNodeRepository(db)
	conflicts := sqlite.NewConflictRepository(db)
	tracker := sqlite.NewReadTrackerRepository(db)
	ctx := context.Background()

	root, err := nodes.CreateNode(ctx, nil, "Root", "alice", "v1")
	require.NoError(t, err)
	_, err = conflicts.Commit(ctx, root.NodeID, "alice", "v2 winning", "edit", 1)
	require.NoError(t, err)
	c, err := conflicts.CreateConflict(ctx, root.NodeID, "bob", "bob's content", "bob's edit", 1, 2)
	require.NoError(t, err)
	require.NoError(t, tracker.Record(ctx, "bob", root.NodeID, 1))

	v, err := conflicts.ResolveAcceptYours(ctx, c.ConflictID, "bob")
	require.NoError(t, err)
	require.Equal(t, "bob's content", v.Content)
	require.Equal(t, 3, v.Version)

	pending, err := conflicts.Pending(ctx, root.NodeID)
	require.NoError(t, err)
	require.Empty(t, pending)

	observed, err := tracker.Observed(ctx, "bob", root.NodeID)
	require.NoError(t, err)
	require.Nil(t, observed)
}

func TestConflictRepository_ResolveMerge_RecordsMergeResolution(t *testing.T) {
	db := sqlite.NewTestDB(t)
	nodes := sqlite.NewNodeRepository(db)
	conflicts := sqlite.NewConflictRepository(db)
	ctx := context.Background()

	root, err := nodes.CreateNode(ctx, nil, "Root", "alice", "v1")
	require.NoError(t, err)
	_, err = conflicts.Commit(ctx, root.NodeID, "alice", "v2 winning", "edit", 1)
	require.NoError(t, err)
	c, err := conflicts.CreateConflict(ctx, root.NodeID, "bob", "bob's content", "bob's edit", 1, 2)
	require.NoError(t, err)

	v, err := conflicts.ResolveMerge(ctx, c.ConflictID, "bob", "merged content")
	require.NoError(t, err)
	require.Equal(t, "merged content", v.Content)

	var content string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT content FROM nodes WHERE node_id = ?`, root.NodeID).Scan(&content))
	require.Equal(t, "merged content", content)

	resolved, err := conflicts.MostRecentPendingForAgent(ctx, root.NodeID, "bob")
	require.NoError(t, err)
	require.Nil(t, resolved)
}

func TestConflictRepository_ResolveAcceptTheirs_LeavesNodeUntouched(t *testing.T) {
	db := sqlite.NewTestDB(t)
	nodes := sqlite.NewNodeRepository(db)
	conflicts := sqlite.NewConflictRepository(db)
	tracker := sqlite.NewReadTrackerRepository(db)
	ctx := context.Background()

	root, err := nodes.CreateNode(ctx, nil, "Root", "alice", "v1")
	require.NoError(t, err)
	_, err = conflicts.Commit(ctx, root.NodeID, "alice", "v2 winning", "edit", 1)
	require.NoError(t, err)
	c, err := conflicts.CreateConflict(ctx, root.NodeID, "bob", "bob's content", "bob's edit", 1, 2)
	require.NoError(t, err)
	require.NoError(t, tracker.Record(ctx, "bob", root.NodeID, 1))

	err = conflicts.ResolveAcceptTheirs(ctx, c.ConflictID, "bob")
	require.NoError(t, err)

	fetched, err := nodes.Get(ctx, root.NodeID)
	require.NoError(t, err)
	var content string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT content FROM nodes WHERE node_id = ?`, root.NodeID).Scan(&content))
	require.Equal(t, "v2 winning", content)
	require.Equal(t, 2, fetched.CurrentVersion)

	observed, err := tracker.Observed(ctx, "bob", root.NodeID)
	require.NoError(t, err)
	require.Nil(t, observed)

	pending, err := conflicts.Pending(ctx, root.NodeID)
	require.NoError(t, err)
	require.Empty(t, pending)
}
