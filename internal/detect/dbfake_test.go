package detect

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// errFakeQuery is returned by every fakeDBTX.Query call unless a test
// overrides it. ConfigResolver.Resolve treats any GetDetectorOverrides error
// as "no overrides" and falls back to the global defaults, so detector
// tests can exercise their real Detect logic against those defaults without
// standing up a Postgres row-iterator fake.
var errFakeQuery = errors.New("fake: Query not stubbed for this test")

// fakeRow adapts a plain function to pgx.Row for QueryRow-based lookups.
type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

func rowNotFound() pgx.Row {
	return fakeRow{scan: func(dest ...any) error { return pgx.ErrNoRows }}
}

// fakeDBTX is a minimal db.DBTX stand-in. queryRow is invoked for every
// QueryRow call; Query always fails unless a test supplies its own.
type fakeDBTX struct {
	queryRow func(ctx context.Context, sql string, args ...any) pgx.Row
	query    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (f *fakeDBTX) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (f *fakeDBTX) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if f.query != nil {
		return f.query(ctx, sql, args...)
	}
	return nil, errFakeQuery
}

func (f *fakeDBTX) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if f.queryRow != nil {
		return f.queryRow(ctx, sql, args...)
	}
	return rowNotFound()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, nil))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
