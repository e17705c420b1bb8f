package db

import (
	"context"
	"database/sql"
	"fmt"
)

// dbtx is the subset of *sql.DB / *sql.Tx the store methods need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store provides access to all persisted state. Methods are plain SQL over a
// single serialized connection; multi-statement updates go through WithTx.
type Store struct {
	db *sql.DB
	q  dbtx
}

// NewStore creates a Store over an open database
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// DB exposes the underlying handle (status queries, tests)
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn with a Store bound to a transaction. The transaction is
// rolled back if fn returns an error.
func (s *Store) WithTx(ctx context.Context, fn func(*Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		// already inside a transaction
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}
