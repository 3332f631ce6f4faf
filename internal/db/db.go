package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *pgxpool.Pool and *pgxpool.Conn (and a bare
// *pgx.Conn), letting Queries run against a pool or a single acquired
// connection identically.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries wraps a DBTX with the hand-written, sqlc-shaped query methods in
// the queries_*.go files.
type Queries struct {
	db DBTX
}

// New creates a Queries bound to the given DBTX.
func New(dbtx DBTX) *Queries {
	return &Queries{db: dbtx}
}
