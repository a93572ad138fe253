package sqlite

import (
	"context"
	"fmt"

	"github.com/JJStrongstone/niwa/internal/domain/agent"
)

// AgentRepository implements agent.Repository for SQLite.
type AgentRepository struct {
	db *DB
}

// NewAgentRepository creates a new AgentRepository.
func NewAgentRepository(db *DB) *AgentRepository {
	return &AgentRepository{db: db}
}

// Touch creates the agent record on first contact, or bumps last_seen.
func (r *AgentRepository) Touch(ctx context.Context, agentID string) (*agent.Agent, error) {
	now := nowUTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO agents (agent_id, first_seen, last_seen) VALUES (?, ?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET last_seen = excluded.last_seen
	`, agentID, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to touch agent: %w", err)
	}

	var a agent.Agent
	err = r.db.QueryRowContext(ctx, `
		SELECT agent_id, first_seen, last_seen FROM agents WHERE agent_id = ?
	`, agentID).Scan(&a.AgentID, &a.FirstSeen, &a.LastSeen)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent: %w", err)
	}
	return &a, nil
}

// List returns every agent ever seen.
func (r *AgentRepository) List(ctx context.Context) ([]agent.Agent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT agent_id, first_seen, last_seen FROM agents ORDER BY first_seen ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var agents []agent.Agent
	for rows.Next() {
		var a agent.Agent
		if err := rows.Scan(&a.AgentID, &a.FirstSeen, &a.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}
