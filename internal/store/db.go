package store

import (
	"context"
	"database/sql"
)

// DBTX is the common query surface of *sql.DB and *sql.Tx. Stores take it
// instead of a concrete handle, so the same methods run standalone or inside
// a caller-managed transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
