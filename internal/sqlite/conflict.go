package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/JJStrongstone/niwa/internal/domain/conflict"
	"github.com/JJStrongstone/niwa/internal/domain/version"
	"github.com/JJStrongstone/niwa/internal/repository"
)

// ConflictRepository implements conflict.Repository for SQLite. Every method
// here owns a single transaction spanning whichever of the node, version,
// read_receipts, and conflicts tables the operation touches, per §4.1.
type ConflictRepository struct {
	db *DB
}

// NewConflictRepository creates a new ConflictRepository.
func NewConflictRepository(db *DB) *ConflictRepository {
	return &ConflictRepository{db: db}
}

// Commit appends a new version, advances current_version, and clears the
// author's read receipt, atomically (§4.6 step 4).
func (r *ConflictRepository) Commit(ctx context.Context, nodeID, author, content, summary string, baseVersion int) (*version.Version, error) {
	tx, err := r.db.BeginWriteTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var currentVersion int
	err = tx.QueryRowContext(ctx, `SELECT current_version FROM nodes WHERE node_id = ?`, nodeID).Scan(&currentVersion)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up node: %w", err)
	}
	if baseVersion != currentVersion {
		// The caller raced another writer between its read and this commit;
		// the conflict engine should have routed this through CreateConflict
		// instead. Surface it as a conflict rather than silently overwriting.
		return nil, repository.ErrConflict
	}

	base := baseVersion
	v, err := appendVersionTx(ctx, tx.Tx, nodeID, content, author, summary, &base, currentVersion+1)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE nodes SET current_version = ?, content = ?, modified_at = ? WHERE node_id = ?`,
		v.Version, content, v.Timestamp, nodeID); err != nil {
		return nil, fmt.Errorf("failed to advance current version: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM read_receipts WHERE agent = ? AND node_id = ?`, author, nodeID); err != nil {
		return nil, fmt.Errorf("failed to clear read receipt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return v, nil
}

// CreateConflict quarantines a losing write without touching the node
// (§4.6 step 5).
func (r *ConflictRepository) CreateConflict(ctx context.Context, nodeID, losingAuthor, losingContent, losingSummary string, losingBaseVersion, winningVersion int) (*conflict.Conflict, error) {
	tx, err := r.db.BeginWriteTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	c := &conflict.Conflict{
		ConflictID:        uuid.NewString(),
		NodeID:            nodeID,
		LosingAuthor:      losingAuthor,
		LosingContent:     losingContent,
		LosingSummary:     losingSummary,
		LosingBaseVersion: losingBaseVersion,
		WinningVersion:    winningVersion,
		Status:            conflict.Pending,
		CreatedAt:         nowUTC(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conflicts (conflict_id, node_id, losing_author, losing_content, losing_summary, losing_base_version, winning_version, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'pending', ?)
	`, c.ConflictID, c.NodeID, c.LosingAuthor, c.LosingContent, c.LosingSummary, c.LosingBaseVersion, c.WinningVersion, c.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, repository.ErrForeignKeyViolation
		}
		return nil, fmt.Errorf("failed to insert conflict: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return c, nil
}

// Pending lists pending conflicts, optionally filtered to one node.
func (r *ConflictRepository) Pending(ctx context.Context, nodeID string) ([]conflict.Conflict, error) {
	var rows *sql.Rows
	var err error
	if nodeID == "" {
		rows, err = r.db.QueryContext(ctx, `
			SELECT conflict_id, node_id, losing_author, losing_content, losing_summary, losing_base_version, winning_version, status, resolution, created_at, resolved_at
			FROM conflicts WHERE status = 'pending' ORDER BY created_at ASC
		`)
	} else {
		rows, err = r.db.QueryContext(ctx, `
			SELECT conflict_id, node_id, losing_author, losing_content, losing_summary, losing_base_version, winning_version, status, resolution, created_at, resolved_at
			FROM conflicts WHERE status = 'pending' AND node_id = ? ORDER BY created_at ASC
		`, nodeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list conflicts: %w", err)
	}
	defer rows.Close()

	var out []conflict.Conflict
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanConflict(row rowScanner) (*conflict.Conflict, error) {
	var c conflict.Conflict
	var resolution sql.NullString
	var resolvedAt sql.NullTime
	err := row.Scan(
		&c.ConflictID, &c.NodeID, &c.LosingAuthor, &c.LosingContent, &c.LosingSummary,
		&c.LosingBaseVersion, &c.WinningVersion, &c.Status, &resolution, &c.CreatedAt, &resolvedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan conflict: %w", err)
	}
	if resolution.Valid {
		res := conflict.Resolution(resolution.String)
		c.Resolution = &res
	}
	if resolvedAt.Valid {
		c.ResolvedAt = &resolvedAt.Time
	}
	return &c, nil
}

// MostRecentPendingForAgent finds the most recent pending conflict on a
// node whose losing_author is agent (§4.6 Resolution, open question b).
func (r *ConflictRepository) MostRecentPendingForAgent(ctx context.Context, nodeID, agent string) (*conflict.Conflict, error) {
	c, err := scanConflict(r.db.QueryRowContext(ctx, `
		SELECT conflict_id, node_id, losing_author, losing_content, losing_summary, losing_base_version, winning_version, status, resolution, created_at, resolved_at
		FROM conflicts WHERE node_id = ? AND losing_author = ? AND status = 'pending'
		ORDER BY created_at DESC LIMIT 1
	`, nodeID, agent))
	if err == repository.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ResolveAcceptYours commits the conflict's losing payload as a fresh edit
// based on the current version, clears the agent's receipt, and marks the
// conflict resolved, atomically.
func (r *ConflictRepository) ResolveAcceptYours(ctx context.Context, conflictID, agent string) (*version.Version, error) {
	return r.resolveWithCommit(ctx, conflictID, agent, conflict.AcceptYours, func(c *conflict.Conflict) string {
		return c.LosingContent
	})
}

// ResolveMerge commits mergedContent as a fresh edit based on the current
// version, clears the agent's receipt, and marks the conflict resolved.
func (r *ConflictRepository) ResolveMerge(ctx context.Context, conflictID, agent, mergedContent string) (*version.Version, error) {
	return r.resolveWithCommit(ctx, conflictID, agent, conflict.Merge, func(*conflict.Conflict) string {
		return mergedContent
	})
}

func (r *ConflictRepository) resolveWithCommit(ctx context.Context, conflictID, agent string, resolution conflict.Resolution, content func(*conflict.Conflict) string) (*version.Version, error) {
	tx, err := r.db.BeginWriteTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	c, err := scanConflict(tx.QueryRowContext(ctx, `
		SELECT conflict_id, node_id, losing_author, losing_content, losing_summary, losing_base_version, winning_version, status, resolution, created_at, resolved_at
		FROM conflicts WHERE conflict_id = ?
	`, conflictID))
	if err != nil {
		return nil, err
	}

	var currentVersion int
	err = tx.QueryRowContext(ctx, `SELECT current_version FROM nodes WHERE node_id = ?`, c.NodeID).Scan(&currentVersion)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up node: %w", err)
	}

	base := currentVersion
	newContent := content(c)
	v, err := appendVersionTx(ctx, tx.Tx, c.NodeID, newContent, agent, "resolved conflict", &base, currentVersion+1)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE nodes SET current_version = ?, content = ?, modified_at = ? WHERE node_id = ?`,
		v.Version, newContent, v.Timestamp, c.NodeID); err != nil {
		return nil, fmt.Errorf("failed to advance current version: %w", err)
	}

	if err := markResolved(ctx, tx.Tx, conflictID, resolution); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM read_receipts WHERE agent = ? AND node_id = ?`, agent, c.NodeID); err != nil {
		return nil, fmt.Errorf("failed to clear read receipt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return v, nil
}

// ResolveAcceptTheirs marks the conflict resolved and clears the agent's
// receipt without touching node state.
func (r *ConflictRepository) ResolveAcceptTheirs(ctx context.Context, conflictID, agent string) error {
	tx, err := r.db.BeginWriteTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	c, err := scanConflict(tx.QueryRowContext(ctx, `
		SELECT conflict_id, node_id, losing_author, losing_content, losing_summary, losing_base_version, winning_version, status, resolution, created_at, resolved_at
		FROM conflicts WHERE conflict_id = ?
	`, conflictID))
	if err != nil {
		return err
	}

	if err := markResolved(ctx, tx.Tx, conflictID, conflict.AcceptTheirs); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM read_receipts WHERE agent = ? AND node_id = ?`, agent, c.NodeID); err != nil {
		return fmt.Errorf("failed to clear read receipt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func markResolved(ctx context.Context, tx *sql.Tx, conflictID string, resolution conflict.Resolution) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE conflicts SET status = 'resolved', resolution = ?, resolved_at = ? WHERE conflict_id = ?
	`, string(resolution), nowUTC(), conflictID)
	if err != nil {
		return fmt.Errorf("failed to mark conflict resolved: %w", err)
	}
	return nil
}
