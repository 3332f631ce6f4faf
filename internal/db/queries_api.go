package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const apiColumns = `id, owner_id, name, ingest_key, encrypted_secret, base_url, active, created_at`

type CreateApiParams struct {
	OwnerID         uuid.UUID
	Name            string
	IngestKey       string
	EncryptedSecret []byte
	BaseURL         *string
}

func scanApi(row pgx.Row) (Api, error) {
	var a Api
	err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.IngestKey, &a.EncryptedSecret, &a.BaseURL, &a.Active, &a.CreatedAt)
	return a, err
}

// CreateApi inserts a new API registration.
func (q *Queries) CreateApi(ctx context.Context, p CreateApiParams) (Api, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO apis (owner_id, name, ingest_key, encrypted_secret, base_url, active)
		VALUES ($1, $2, $3, $4, $5, true)
		RETURNING `+apiColumns,
		p.OwnerID, p.Name, p.IngestKey, p.EncryptedSecret, p.BaseURL)
	a, err := scanApi(row)
	if err != nil {
		return Api{}, fmt.Errorf("creating api: %w", err)
	}
	return a, nil
}

// GetApiByID fetches a single API by primary key.
func (q *Queries) GetApiByID(ctx context.Context, id uuid.UUID) (Api, error) {
	row := q.db.QueryRow(ctx, `SELECT `+apiColumns+` FROM apis WHERE id = $1`, id)
	return scanApi(row)
}

// GetApiByIngestKey resolves the ingest key presented on the data plane to
// its owning API. This is the only credential the ingest path checks.
func (q *Queries) GetApiByIngestKey(ctx context.Context, ingestKey string) (Api, error) {
	row := q.db.QueryRow(ctx, `SELECT `+apiColumns+` FROM apis WHERE ingest_key = $1`, ingestKey)
	return scanApi(row)
}

// ListApis returns every registered API, most recently created first.
func (q *Queries) ListApis(ctx context.Context) ([]Api, error) {
	rows, err := q.db.Query(ctx, `SELECT `+apiColumns+` FROM apis ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing apis: %w", err)
	}
	defer rows.Close()

	var out []Api
	for rows.Next() {
		a, err := scanApi(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning api row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetApiActive flips the active flag. active=false rejects ingest without
// deleting history.
func (q *Queries) SetApiActive(ctx context.Context, id uuid.UUID, active bool) (Api, error) {
	row := q.db.QueryRow(ctx, `UPDATE apis SET active = $2 WHERE id = $1 RETURNING `+apiColumns, id, active)
	return scanApi(row)
}

// DeleteApi removes an API; ON DELETE CASCADE on request_logs, alerts, and
// ml_models fulfils the cascade rule in the data model.
func (q *Queries) DeleteApi(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM apis WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting api: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
