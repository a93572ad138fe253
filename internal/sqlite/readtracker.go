package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// ReadTrackerRepository implements readtracker.Repository for SQLite.
type ReadTrackerRepository struct {
	db *DB
}

// NewReadTrackerRepository creates a new ReadTrackerRepository.
func NewReadTrackerRepository(db *DB) *ReadTrackerRepository {
	return &ReadTrackerRepository{db: db}
}

// Record upserts the observed version for an (agent, node) pair.
func (r *ReadTrackerRepository) Record(ctx context.Context, agent, nodeID string, version int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO read_receipts (agent, node_id, observed_version, timestamp)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(agent, node_id) DO UPDATE SET observed_version = excluded.observed_version, timestamp = excluded.timestamp
	`, agent, nodeID, version, nowUTC())
	if err != nil {
		return fmt.Errorf("failed to record read receipt: %w", err)
	}
	return nil
}

// Observed returns the last version the agent recorded for the node, or nil
// if it has never read it.
func (r *ReadTrackerRepository) Observed(ctx context.Context, agent, nodeID string) (*int, error) {
	var v int
	err := r.db.QueryRowContext(ctx, `
		SELECT observed_version FROM read_receipts WHERE agent = ? AND node_id = ?
	`, agent, nodeID).Scan(&v)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt: %w", err)
	}
	return &v, nil
}

// Clear removes the agent's receipt for the node.
func (r *ReadTrackerRepository) Clear(ctx context.Context, agent, nodeID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM read_receipts WHERE agent = ? AND node_id = ?`, agent, nodeID)
	if err != nil {
		return fmt.Errorf("failed to clear read receipt: %w", err)
	}
	return nil
}
