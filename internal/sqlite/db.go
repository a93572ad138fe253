package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JJStrongstone/niwa/internal/repository"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps a SQLite database connection. writeMu serializes committing
// transactions across repository calls within this process, matching the
// single-writer discipline §5 asks of the Store; WAL mode lets concurrent
// readers see a consistent snapshot without blocking on it.
type DB struct {
	*sql.DB
	writeMu sync.Mutex
}

// nowUTC is the single clock read used when stamping rows, kept as a
// function so it reads the same way everywhere version/conflict rows are
// written.
func nowUTC() time.Time {
	return time.Now().UTC()
}

// New creates a new SQLite database connection and applies the schema
// migrations. dataSourceName may be a file path or ":memory:".
func New(dataSourceName string) (*DB, error) {
	conn, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// WAL mode gives read-only operations (peek, tree, export, search,
	// history, diff, conflicts) a consistent snapshot without blocking on
	// in-flight writers, per §5.
	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// A single-writer busy timeout maps driver-level lock contention onto
	// repository.ErrBusy instead of an immediate "database is locked" error,
	// satisfying the §5 mutual-exclusion model across concurrent invocations.
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	db := &DB{DB: conn}
	if err := db.RunMigrations(); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations applies the embedded schema. It is idempotent: every
// statement uses CREATE ... IF NOT EXISTS.
func (db *DB) RunMigrations() error {
	data, err := migrationsFS.ReadFile("migrations/0001_init.sql")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	if _, err := db.Exec(string(data)); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// WriteTx is a transaction that holds the process-wide writer lock until it
// is committed or rolled back.
type WriteTx struct {
	*sql.Tx
	db   *DB
	done bool
}

// BeginWriteTx acquires the writer lock and opens a transaction. Callers
// must always reach Commit or Rollback (a deferred Rollback is safe after a
// successful Commit, same as with *sql.Tx) so the lock is released.
func (db *DB) BeginWriteTx(ctx context.Context) (*WriteTx, error) {
	db.writeMu.Lock()
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		db.writeMu.Unlock()
		if isBusyErr(err) {
			return nil, repository.ErrBusy
		}
		return nil, err
	}
	return &WriteTx{Tx: tx, db: db}, nil
}

// Commit commits the underlying transaction and releases the writer lock.
func (wt *WriteTx) Commit() error {
	defer wt.release()
	return wt.Tx.Commit()
}

// Rollback rolls back the underlying transaction and releases the writer
// lock. A no-op if Commit already ran.
func (wt *WriteTx) Rollback() error {
	defer wt.release()
	if wt.done {
		return nil
	}
	return wt.Tx.Rollback()
}

func (wt *WriteTx) release() {
	if !wt.done {
		wt.done = true
		wt.db.writeMu.Unlock()
	}
}
