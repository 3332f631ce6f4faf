package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// GetActiveBlacklistEntry looks up client_ip in ip_blacklist. Entries whose
// expires_at is in the past are logically absent, so the WHERE clause
// excludes them directly rather than filtering in Go.
func (q *Queries) GetActiveBlacklistEntry(ctx context.Context, ip string) (BlacklistEntry, error) {
	var e BlacklistEntry
	row := q.db.QueryRow(ctx, `
		SELECT ip, reason, added_by, expires_at, created_at
		FROM ip_blacklist
		WHERE ip = $1 AND (expires_at IS NULL OR expires_at > now())`, ip)
	err := row.Scan(&e.IP, &e.Reason, &e.AddedBy, &e.ExpiresAt, &e.CreatedAt)
	return e, err
}

// GetWhitelistEntry looks up client_ip in ip_whitelist.
func (q *Queries) GetWhitelistEntry(ctx context.Context, ip string) (WhitelistEntry, error) {
	var e WhitelistEntry
	row := q.db.QueryRow(ctx, `SELECT ip, added_by, created_at FROM ip_whitelist WHERE ip = $1`, ip)
	err := row.Scan(&e.IP, &e.AddedBy, &e.CreatedAt)
	return e, err
}

// IsNotFound reports whether err is the "no matching row" sentinel, used by
// callers of the two lookups above to distinguish "not listed" from a real
// storage failure.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
