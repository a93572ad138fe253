package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/JJStrongstone/niwa/internal/domain/tree"
	"github.com/JJStrongstone/niwa/internal/repository"
)

// NodeRepository implements tree.Repository for SQLite.
type NodeRepository struct {
	db *DB
}

// NewNodeRepository creates a new NodeRepository.
func NewNodeRepository(db *DB) *NodeRepository {
	return &NodeRepository{db: db}
}

// CreateNode allocates an id, inserts the node row, and writes version 1, all
// in one transaction (§4.1, §4.2, §4.3).
func (r *NodeRepository) CreateNode(ctx context.Context, parentID *string, title, author, content string) (*tree.Node, error) {
	tx, err := r.db.BeginWriteTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	depth := 1
	siblingKey := ""
	if parentID != nil {
		var parentDepth int
		err := tx.QueryRowContext(ctx, `SELECT depth FROM nodes WHERE node_id = ?`, *parentID).Scan(&parentDepth)
		if err == sql.ErrNoRows {
			return nil, repository.ErrForeignKeyViolation
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up parent: %w", err)
		}
		depth = parentDepth + 1
		siblingKey = *parentID
	}
	if depth > tree.MaxDepth {
		return nil, repository.ErrDepthExceeded
	}

	nodeID, err := allocateID(ctx, tx.Tx, depth)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO nodes (node_id, title, depth, parent_id, sibling_key, current_version, content, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?)
	`, nodeID, title, depth, parentID, siblingKey, content, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, fmt.Errorf("failed to insert node: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO versions (node_id, version, content, author, summary, timestamp, base_version)
		VALUES (?, 1, ?, ?, '', ?, NULL)
	`, nodeID, content, author, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert initial version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &tree.Node{
		NodeID:         nodeID,
		Title:          title,
		Depth:          depth,
		ParentID:       parentID,
		CurrentVersion: 1,
		CreatedAt:      now,
		ModifiedAt:     now,
	}, nil
}

// allocateID bumps the per-depth counter and returns the newly allocated
// node id. The counter update and the node insert share one transaction
// (§4.2), so no two committed nodes get the same ordinal; when the insert
// rolls back, the counter bump rolls back with it and the next create is
// given that ordinal.
func allocateID(ctx context.Context, tx *sql.Tx, depth int) (string, error) {
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO id_counters (depth, next_ordinal) VALUES (?, 0)`, depth); err != nil {
		return "", fmt.Errorf("failed to seed id counter: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE id_counters SET next_ordinal = next_ordinal + 1 WHERE depth = ?`, depth); err != nil {
		return "", fmt.Errorf("failed to advance id counter: %w", err)
	}

	var nextOrdinal int
	if err := tx.QueryRowContext(ctx, `SELECT next_ordinal FROM id_counters WHERE depth = ?`, depth).Scan(&nextOrdinal); err != nil {
		return "", fmt.Errorf("failed to read id counter: %w", err)
	}

	return fmt.Sprintf("h%d_%d", depth, nextOrdinal-1), nil
}

// RenameNode bumps the node's title and version, leaving content untouched.
func (r *NodeRepository) RenameNode(ctx context.Context, nodeID, newTitle, author string) (*tree.Node, error) {
	tx, err := r.db.BeginWriteTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var depth, currentVersion int
	var parentID sql.NullString
	var content string
	err = tx.QueryRowContext(ctx, `
		SELECT depth, parent_id, current_version, content FROM nodes WHERE node_id = ?
	`, nodeID).Scan(&depth, &parentID, &currentVersion, &content)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up node: %w", err)
	}

	now := time.Now().UTC()
	newVersion := currentVersion + 1

	_, err = tx.ExecContext(ctx, `
		UPDATE nodes SET title = ?, current_version = ?, modified_at = ? WHERE node_id = ?
	`, newTitle, newVersion, now, nodeID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, fmt.Errorf("failed to rename node: %w", err)
	}

	baseVersion := currentVersion
	_, err = tx.ExecContext(ctx, `
		INSERT INTO versions (node_id, version, content, author, summary, timestamp, base_version)
		VALUES (?, ?, ?, ?, 'rename', ?, ?)
	`, nodeID, newVersion, content, author, now, baseVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to insert rename version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	var parentPtr *string
	if parentID.Valid {
		parentPtr = &parentID.String
	}
	return &tree.Node{
		NodeID:         nodeID,
		Title:          newTitle,
		Depth:          depth,
		ParentID:       parentPtr,
		CurrentVersion: newVersion,
		ModifiedAt:     now,
	}, nil
}

// Get fetches a single node and its child order.
func (r *NodeRepository) Get(ctx context.Context, nodeID string) (*tree.Node, error) {
	var n tree.Node
	var parentID sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT node_id, title, depth, parent_id, current_version, created_at, modified_at
		FROM nodes WHERE node_id = ?
	`, nodeID).Scan(&n.NodeID, &n.Title, &n.Depth, &parentID, &n.CurrentVersion, &n.CreatedAt, &n.ModifiedAt)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	if parentID.Valid {
		n.ParentID = &parentID.String
	}

	children, err := r.childOrder(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	n.ChildOrder = children

	return &n, nil
}

func (r *NodeRepository) childOrder(ctx context.Context, parentID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT node_id FROM nodes WHERE parent_id = ? ORDER BY rowid
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan child id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Snapshot reconstructs the whole tree in one pass, ordered by rowid so
// ChildOrder reflects insertion order (spec §3, §9).
func (r *NodeRepository) Snapshot(ctx context.Context) (*tree.Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT node_id, title, depth, parent_id, current_version, created_at, modified_at
		FROM nodes ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	defer rows.Close()

	snap := &tree.Snapshot{Nodes: make(map[string]*tree.Node)}
	for rows.Next() {
		var n tree.Node
		var parentID sql.NullString
		if err := rows.Scan(&n.NodeID, &n.Title, &n.Depth, &parentID, &n.CurrentVersion, &n.CreatedAt, &n.ModifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		if parentID.Valid {
			n.ParentID = &parentID.String
			parent := snap.Nodes[parentID.String]
			if parent != nil {
				parent.ChildOrder = append(parent.ChildOrder, n.NodeID)
			}
		} else {
			snap.TopLevel = append(snap.TopLevel, n.NodeID)
		}
		snap.Nodes[n.NodeID] = &n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating node rows: %w", err)
	}

	return snap, nil
}
