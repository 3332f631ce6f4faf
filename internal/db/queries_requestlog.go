package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const requestLogColumns = `id, api_id, ts, method, endpoint, client_ip, status_code, latency_ms, headers, body_size, user_agent, suspicious_flag`

type CreateRequestLogParams struct {
	ApiID      uuid.UUID
	Ts         float64
	Method     string
	Endpoint   string
	ClientIP   string
	StatusCode *int32
	LatencyMs  *float64
	Headers    []byte
	BodySize   int32
	UserAgent  *string
}

func scanRequestLog(row pgx.Row) (RequestLog, error) {
	var l RequestLog
	err := row.Scan(&l.ID, &l.ApiID, &l.Ts, &l.Method, &l.Endpoint, &l.ClientIP,
		&l.StatusCode, &l.LatencyMs, &l.Headers, &l.BodySize, &l.UserAgent, &l.Suspicious)
	return l, err
}

// CreateRequestLog appends one request-log record and returns it with its
// assigned, monotonically increasing ID.
func (q *Queries) CreateRequestLog(ctx context.Context, p CreateRequestLogParams) (RequestLog, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO request_logs (api_id, ts, method, endpoint, client_ip, status_code, latency_ms, headers, body_size, user_agent, suspicious_flag)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false)
		RETURNING `+requestLogColumns,
		p.ApiID, p.Ts, p.Method, p.Endpoint, p.ClientIP, p.StatusCode, p.LatencyMs, p.Headers, p.BodySize, p.UserAgent)
	l, err := scanRequestLog(row)
	if err != nil {
		return RequestLog{}, fmt.Errorf("creating request log: %w", err)
	}
	return l, nil
}

// GetRequestLog fetches a single request log by ID.
func (q *Queries) GetRequestLog(ctx context.Context, id int64) (RequestLog, error) {
	row := q.db.QueryRow(ctx, `SELECT `+requestLogColumns+` FROM request_logs WHERE id = $1`, id)
	return scanRequestLog(row)
}

// SetRequestLogSuspicious flips suspicious_flag to true. Per the data model
// this happens at most once, immediately after detection.
func (q *Queries) SetRequestLogSuspicious(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx, `UPDATE request_logs SET suspicious_flag = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("flagging request log suspicious: %w", err)
	}
	return nil
}

// RecentLatencies returns the most recent non-null latency_ms values for an
// API, newest first, up to limit rows — the feed for the statistical detector.
func (q *Queries) RecentLatencies(ctx context.Context, apiID uuid.UUID, limit int) ([]float64, error) {
	rows, err := q.db.Query(ctx, `
		SELECT latency_ms FROM request_logs
		WHERE api_id = $1 AND latency_ms IS NOT NULL
		ORDER BY id DESC LIMIT $2`, apiID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching recent latencies: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning latency row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CountRequestsWindow returns the total request count and the error
// (status_code >= 400) count for an API within the last windowSeconds,
// measured against nowTs (seconds since epoch, matching the Request Log's
// ts column).
func (q *Queries) CountRequestsWindow(ctx context.Context, apiID uuid.UUID, nowTs float64, windowSeconds int) (total, errors int64, err error) {
	row := q.db.QueryRow(ctx, `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status_code >= 400) AS errors
		FROM request_logs
		WHERE api_id = $1 AND ts > $2`,
		apiID, nowTs-float64(windowSeconds))
	if err := row.Scan(&total, &errors); err != nil {
		return 0, 0, fmt.Errorf("counting request window: %w", err)
	}
	return total, errors, nil
}

// ListTrainingRows pulls up to limit most-recent rows for an API where
// suspicious_flag is false — the ML detector's training set.
func (q *Queries) ListTrainingRows(ctx context.Context, apiID uuid.UUID, limit int) ([]RequestLog, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+requestLogColumns+` FROM request_logs
		WHERE api_id = $1 AND suspicious_flag = false
		ORDER BY id DESC LIMIT $2`, apiID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing training rows: %w", err)
	}
	defer rows.Close()

	var out []RequestLog
	for rows.Next() {
		l, err := scanRequestLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning training row: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListDistinctApiIDs returns every api_id that has at least one request log,
// used by the ML retrainer background loop to discover retraining candidates.
func (q *Queries) ListDistinctApiIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, `SELECT DISTINCT api_id FROM request_logs`)
	if err != nil {
		return nil, fmt.Errorf("listing distinct api ids: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning api id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
