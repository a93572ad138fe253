package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JJStrongstone/niwa/internal/domain/version"
	"github.com/JJStrongstone/niwa/internal/repository"
)

// VersionRepository implements version.Repository for SQLite.
type VersionRepository struct {
	db *DB
}

// NewVersionRepository creates a new VersionRepository.
func NewVersionRepository(db *DB) *VersionRepository {
	return &VersionRepository{db: db}
}

// Append is exposed for completeness with version.Repository, but the only
// production caller is the conflict engine's own transaction in conflict.go;
// this path is used by tests exercising VersionLog in isolation.
func (r *VersionRepository) Append(ctx context.Context, nodeID, content, author, summary string, baseVersion *int) (*version.Version, error) {
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

	v, err := appendVersionTx(ctx, tx.Tx, nodeID, content, author, summary, baseVersion, currentVersion+1)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE nodes SET current_version = ?, content = ?, modified_at = ? WHERE node_id = ?`,
		v.Version, content, v.Timestamp, nodeID); err != nil {
		return nil, fmt.Errorf("failed to advance current version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return v, nil
}

// appendVersionTx inserts one version row within an already-open transaction
// and returns the resulting Version. Shared by VersionRepository.Append and
// the conflict engine's commit paths.
func appendVersionTx(ctx context.Context, tx *sql.Tx, nodeID, content, author, summary string, baseVersion *int, newVersion int) (*version.Version, error) {
	now := nowUTC()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO versions (node_id, version, content, author, summary, timestamp, base_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, nodeID, newVersion, content, author, summary, now, baseVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to insert version: %w", err)
	}

	return &version.Version{
		NodeID:      nodeID,
		Version:     newVersion,
		Content:     content,
		Author:      author,
		Summary:     summary,
		Timestamp:   now,
		BaseVersion: baseVersion,
	}, nil
}

// Get fetches a single version of a node.
func (r *VersionRepository) Get(ctx context.Context, nodeID string, v int) (*version.Version, error) {
	return scanVersion(r.db.QueryRowContext(ctx, `
		SELECT node_id, version, content, author, summary, timestamp, base_version
		FROM versions WHERE node_id = ? AND version = ?
	`, nodeID, v))
}

// Latest fetches the most recent version of a node.
func (r *VersionRepository) Latest(ctx context.Context, nodeID string) (*version.Version, error) {
	return scanVersion(r.db.QueryRowContext(ctx, `
		SELECT node_id, version, content, author, summary, timestamp, base_version
		FROM versions WHERE node_id = ?
		ORDER BY version DESC LIMIT 1
	`, nodeID))
}

func scanVersion(row *sql.Row) (*version.Version, error) {
	var v version.Version
	var baseVersion sql.NullInt64
	err := row.Scan(&v.NodeID, &v.Version, &v.Content, &v.Author, &v.Summary, &v.Timestamp, &baseVersion)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan version: %w", err)
	}
	if baseVersion.Valid {
		b := int(baseVersion.Int64)
		v.BaseVersion = &b
	}
	return &v, nil
}

// List returns all versions of a node in version order.
func (r *VersionRepository) List(ctx context.Context, nodeID string) ([]version.Version, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT node_id, version, content, author, summary, timestamp, base_version
		FROM versions WHERE node_id = ? ORDER BY version ASC
	`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var versions []version.Version
	for rows.Next() {
		var v version.Version
		var baseVersion sql.NullInt64
		if err := rows.Scan(&v.NodeID, &v.Version, &v.Content, &v.Author, &v.Summary, &v.Timestamp, &baseVersion); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		if baseVersion.Valid {
			b := int(baseVersion.Int64)
			v.BaseVersion = &b
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating version rows: %w", err)
	}
	if len(versions) == 0 {
		return nil, repository.ErrNotFound
	}
	return versions, nil
}
