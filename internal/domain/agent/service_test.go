package agent_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JJStrongstone/niwa/internal/domain/agent"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Touch(ctx context.Context, agentID string) (*agent.Agent, error) {
	args := m.Called(ctx, agentID)
	if a, ok := args.Get(0).(*agent.Agent); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) List(ctx context.Context) ([]agent.Agent, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]agent.Agent); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestService_Touch(t *testing.T) {
	repo := &mockRepo{}
	now := time.Now()
	want := &agent.Agent{AgentID: "alice", FirstSeen: now, LastSeen: now}
	repo.On("Touch", mock.Anything, "alice").Return(want, nil)
	svc := agent.NewService(repo)

	got, err := svc.Touch(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestService_List(t *testing.T) {
	repo := &mockRepo{}
	want := []agent.Agent{{AgentID: "alice"}, {AgentID: "bob"}}
	repo.On("List", mock.Anything).Return(want, nil)
	svc := agent.NewService(repo)

	got, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got)
}
