package conflict_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JJStrongstone/niwa/internal/domain/conflict"
	"github.com/JJStrongstone/niwa/internal/domain/readtracker"
	"github.com/JJStrongstone/niwa/internal/domain/version"
	"github.com/JJStrongstone/niwa/internal/repository"
)

type mockConflictRepo struct {
	mock.Mock
}

func (m *mockConflictRepo) Commit(ctx context.Context, nodeID, author, content, summary string, baseVersion int) (*version.Version, error) {
	args := m.Called(ctx, nodeID, author, content, summary, baseVersion)
	if v, ok := args.Get(0).(*version.Version); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockConflictRepo) CreateConflict(ctx context.Context, nodeID, losingAuthor, losingContent, losingSummary string, losingBaseVersion, winningVersion int) (*conflict.Conflict, error) {
	args := m.Called(ctx, nodeID, losingAuthor, losingContent, losingSummary, losingBaseVersion, winningVersion)
	if c, ok := args.Get(0).(*conflict.Conflict); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockConflictRepo) Pending(ctx context.Context, nodeID string) ([]conflict.Conflict, error) {
	args := m.Called(ctx, nodeID)
	if list, ok := args.Get(0).([]conflict.Conflict); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockConflictRepo) MostRecentPendingForAgent(ctx context.Context, nodeID, agent string) (*conflict.Conflict, error) {
	args := m.Called(ctx, nodeID, agent)
	if c, ok := args.Get(0).(*conflict.Conflict); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockConflictRepo) ResolveAcceptYours(ctx context.Context, conflictID, agent string) (*version.Version, error) {
	args := m.Called(ctx, conflictID, agent)
	if v, ok := args.Get(0).(*version.Version); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockConflictRepo) ResolveAcceptTheirs(ctx context.Context, conflictID, agent string) error {
	args := m.Called(ctx, conflictID, agent)
	return args.Error(0)
}

func (m *mockConflictRepo) ResolveMerge(ctx context.Context, conflictID, agent, mergedContent string) (*version.Version, error) {
	args := m.Called(ctx, conflictID, agent, mergedContent)
	if v, ok := args.Get(0).(*version.Version); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockVersionRepo struct {
	mock.Mock
}

func (m *mockVersionRepo) Append(ctx context.Context, nodeID, content, author, summary string, baseVersion *int) (*version.Version, error) {
	args := m.Called(ctx, nodeID, content, author, summary, baseVersion)
	if v, ok := args.Get(0).(*version.Version); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVersionRepo) Get(ctx context.Context, nodeID string, v int) (*version.Version, error) {
	args := m.Called(ctx, nodeID, v)
	if ver, ok := args.Get(0).(*version.Version); ok {
		return ver, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVersionRepo) Latest(ctx context.Context, nodeID string) (*version.Version, error) {
	args := m.Called(ctx, nodeID)
	if ver, ok := args.Get(0).(*version.Version); ok {
		return ver, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVersionRepo) List(ctx context.Context, nodeID string) ([]version.Version, error) {
	args := m.Called(ctx, nodeID)
	if list, ok := args.Get(0).([]version.Version); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockReadRepo struct {
	mock.Mock
}

func (m *mockReadRepo) Record(ctx context.Context, agent, nodeID string, version int) error {
	args := m.Called(ctx, agent, nodeID, version)
	return args.Error(0)
}

func (m *mockReadRepo) Observed(ctx context.Context, agent, nodeID string) (*int, error) {
	args := m.Called(ctx, agent, nodeID)
	if v, ok := args.Get(0).(*int); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReadRepo) Clear(ctx context.Context, agent, nodeID string) error {
	args := m.Called(ctx, agent, nodeID)
	return args.Error(0)
}

func intPtr(v int) *int { return &v }

func newService(conflictRepo *mockConflictRepo, versionRepo *mockVersionRepo, readRepo *mockReadRepo) *conflict.Service {
	return conflict.NewService(conflictRepo, version.NewService(versionRepo, nil), readtracker.NewService(readRepo, nil), nil)
}

func TestSubmitEdit_RejectsUnreadNode(t *testing.T) {
	conflictRepo := &mockConflictRepo{}
	versionRepo := &mockVersionRepo{}
	readRepo := &mockReadRepo{}

	versionRepo.On("Latest", mock.Anything, "h1_0").Return(&version.Version{NodeID: "h1_0", Version: 1}, nil)
	readRepo.On("Observed", mock.Anything, "alice", "h1_0").Return((*int)(nil), nil)

	svc := newService(conflictRepo, versionRepo, readRepo)
	_, err := svc.SubmitEdit(context.Background(), "alice", "h1_0", "new content", "")
	require.ErrorIs(t, err, conflict.ErrUnreadEdit)
	conflictRepo.AssertNotCalled(t, "Commit")
	conflictRepo.AssertNotCalled(t, "CreateConflict")
}

func TestSubmitEdit_CommitsWhenObservedMatchesLatest(t *testing.T) {
	conflictRepo := &mockConflictRepo{}
	versionRepo := &mockVersionRepo{}
	readRepo := &mockReadRepo{}

	versionRepo.On("Latest", mock.Anything, "h1_0").Return(&version.Version{NodeID: "h1_0", Version: 2}, nil)
	readRepo.On("Observed", mock.Anything, "alice", "h1_0").Return(intPtr(2), nil)
	committed := &version.Version{NodeID: "h1_0", Version: 3}
	conflictRepo.On("Commit", mock.Anything, "h1_0", "alice", "new content", "summary", 2).Return(committed, nil)

	svc := newService(conflictRepo, versionRepo, readRepo)
	v, err := svc.SubmitEdit(context.Background(), "alice", "h1_0", "new content", "summary")
	require.NoError(t, err)
	require.Equal(t, committed, v)
	conflictRepo.AssertNotCalled(t, "CreateConflict")
}

func TestSubmitEdit_QuarantinesStaleWrite(t *testing.T) {
	conflictRepo := &mockConflictRepo{}
	versionRepo := &mockVersionRepo{}
	readRepo := &mockReadRepo{}

	versionRepo.On("Latest", mock.Anything, "h1_0").Return(&version.Version{NodeID: "h1_0", Version: 5, Content: "current"}, nil)
	readRepo.On("Observed", mock.Anything, "alice", "h1_0").Return(intPtr(3), nil)
	conflictRepo.On("CreateConflict", mock.Anything, "h1_0", "alice", "stale write", "", 3, 5).
		Return(&conflict.Conflict{ConflictID: "c1"}, nil)

	svc := newService(conflictRepo, versionRepo, readRepo)
	_, err := svc.SubmitEdit(context.Background(), "alice", "h1_0", "stale write", "")

	var detected *conflict.DetectedError
	require.ErrorAs(t, err, &detected)
	require.Equal(t, "h1_0", detected.NodeID)
	require.Equal(t, "stale write", detected.LosingContent)
	require.Equal(t, "current", detected.WinningContent)
	require.Equal(t, 5, detected.WinningVersion)
	require.Equal(t, "c1", detected.ConflictID)
	conflictRepo.AssertNotCalled(t, "Commit")
}

func TestSubmitEdit_CorruptStateWhenObservedExceedsLatest(t *testing.T) {
	conflictRepo := &mockConflictRepo{}
	versionRepo := &mockVersionRepo{}
	readRepo := &mockReadRepo{}

	versionRepo.On("Latest", mock.Anything, "h1_0").Return(&version.Version{NodeID: "h1_0", Version: 2}, nil)
	readRepo.On("Observed", mock.Anything, "alice", "h1_0").Return(intPtr(4), nil)

	svc := newService(conflictRepo, versionRepo, readRepo)
	_, err := svc.SubmitEdit(context.Background(), "alice", "h1_0", "x", "")
	require.ErrorIs(t, err, conflict.ErrCorruptState)
}

func TestSubmitEdit_UnknownNode(t *testing.T) {
	conflictRepo := &mockConflictRepo{}
	versionRepo := &mockVersionRepo{}
	readRepo := &mockReadRepo{}

	versionRepo.On("Latest", mock.Anything, "missing").Return(nil, repository.ErrNotFound)

	svc := newService(conflictRepo, versionRepo, readRepo)
	_, err := svc.SubmitEdit(context.Background(), "alice", "missing", "x", "")
	require.ErrorIs(t, err, conflict.ErrNodeNotFound)
}

func TestResolve_NoPendingConflict(t *testing.T) {
	conflictRepo := &mockConflictRepo{}
	versionRepo := &mockVersionRepo{}
	readRepo := &mockReadRepo{}

	conflictRepo.On("MostRecentPendingForAgent", mock.Anything, "h1_0", "alice").Return(nil, nil)

	svc := newService(conflictRepo, versionRepo, readRepo)
	_, err := svc.Resolve(context.Background(), "alice", "h1_0", conflict.AcceptYours, "")
	require.ErrorIs(t, err, conflict.ErrNoPendingConflict)
}

func TestResolve_AcceptTheirsReturnsNoVersion(t *testing.T) {
	conflictRepo := &mockConflictRepo{}
	versionRepo := &mockVersionRepo{}
	readRepo := &mockReadRepo{}

	pending := &conflict.Conflict{ConflictID: "c1", NodeID: "h1_0"}
	conflictRepo.On("MostRecentPendingForAgent", mock.Anything, "h1_0", "alice").Return(pending, nil)
	conflictRepo.On("ResolveAcceptTheirs", mock.Anything, "c1", "alice").Return(nil)

	svc := newService(conflictRepo, versionRepo, readRepo)
	v, err := svc.Resolve(context.Background(), "alice", "h1_0", conflict.AcceptTheirs, "")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestResolve_MergeCommitsMergedContent(t *testing.T) {
	conflictRepo := &mockConflictRepo{}
	versionRepo := &mockVersionRepo{}
	readRepo := &mockReadRepo{}

	pending := &conflict.Conflict{ConflictID: "c1", NodeID: "h1_0"}
	conflictRepo.On("MostRecentPendingForAgent", mock.Anything, "h1_0", "alice").Return(pending, nil)
	merged := &version.Version{NodeID: "h1_0", Version: 6}
	conflictRepo.On("ResolveMerge", mock.Anything, "c1", "alice", "merged body").Return(merged, nil)

	svc := newService(conflictRepo, versionRepo, readRepo)
	v, err := svc.Resolve(context.Background(), "alice", "h1_0", conflict.Merge, "merged body")
	require.NoError(t, err)
	require.Equal(t, merged, v)
}
