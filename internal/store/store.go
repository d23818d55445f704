package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the SQLite-backed ledger: accounts, categories and transactions.
// Reads through the embedded Queries run outside any transaction; anything
// that writes to more than one row should go through WithTx.
type Store struct {
	*Queries
	db   *sql.DB
	path string
}

// Open opens (or creates) the ledger database at path and applies all
// pending schema migrations.
func Open(path string) (*Store, error) {
	if err := Migrate(path); err != nil {
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}
	// One writer; SQLite serializes anyway and this keeps WithTx honest.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging db: %w", err)
	}
	return &Store{Queries: &Queries{q: db}, db: db, path: path}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// WithTx runs fn inside one SQLite transaction. If fn returns an error
// (or panics) every write it made is rolled back.
func (s *Store) WithTx(ctx context.Context, fn func(q *Queries) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Queries{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing tx: %w", err)
	}
	return nil
}

// Queries holds every ledger query, bound to either the database or an
// open transaction.
type Queries struct {
	q Querier
}

// Now returns UTC time truncated to seconds, the resolution stored in SQLite.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
