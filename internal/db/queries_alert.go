package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const alertColumns = `id, api_id, log_id, kind, severity, score, title, description, detector_details, acknowledged, muted, acknowledged_by, acknowledged_at, created_at`

type CreateAlertParams struct {
	ApiID           uuid.UUID
	LogID           *int64
	Kind            string
	Severity        string
	Score           float64
	Title           string
	Description     string
	DetectorDetails []byte
}

func scanAlert(row pgx.Row) (Alert, error) {
	var a Alert
	err := row.Scan(&a.ID, &a.ApiID, &a.LogID, &a.Kind, &a.Severity, &a.Score, &a.Title,
		&a.Description, &a.DetectorDetails, &a.Acknowledged, &a.Muted, &a.AcknowledgedBy,
		&a.AcknowledgedAt, &a.CreatedAt)
	return a, err
}

// CreateAlert inserts a new alert. The engine calls this before invoking the
// alert service, so the returned ID is available to the notification path.
func (q *Queries) CreateAlert(ctx context.Context, p CreateAlertParams) (Alert, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO alerts (api_id, log_id, kind, severity, score, title, description, detector_details, acknowledged, muted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, false)
		RETURNING `+alertColumns,
		p.ApiID, p.LogID, p.Kind, p.Severity, p.Score, p.Title, p.Description, p.DetectorDetails)
	a, err := scanAlert(row)
	if err != nil {
		return Alert{}, fmt.Errorf("creating alert: %w", err)
	}
	return a, nil
}

// GetAlert fetches a single alert by ID.
func (q *Queries) GetAlert(ctx context.Context, id uuid.UUID) (Alert, error) {
	row := q.db.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1`, id)
	return scanAlert(row)
}

// ListAlertsByApi returns alerts for an API, most recent first.
func (q *Queries) ListAlertsByApi(ctx context.Context, apiID uuid.UUID) ([]Alert, error) {
	rows, err := q.db.Query(ctx, `SELECT `+alertColumns+` FROM alerts WHERE api_id = $1 ORDER BY created_at DESC`, apiID)
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning alert row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AcknowledgeAlert sets acknowledged=true. Acknowledgement is monotonic: an
// already-acknowledged alert is left untouched rather than overwriting
// acknowledged_by/acknowledged_at.
func (q *Queries) AcknowledgeAlert(ctx context.Context, id uuid.UUID, by uuid.UUID) (Alert, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE alerts SET
			acknowledged = true,
			acknowledged_by = COALESCE(acknowledged_by, $2),
			acknowledged_at = COALESCE(acknowledged_at, now())
		WHERE id = $1
		RETURNING `+alertColumns, id, by)
	return scanAlert(row)
}

// SetAlertMuted toggles the orthogonal muted flag.
func (q *Queries) SetAlertMuted(ctx context.Context, id uuid.UUID, muted bool) (Alert, error) {
	row := q.db.QueryRow(ctx, `UPDATE alerts SET muted = $2 WHERE id = $1 RETURNING `+alertColumns, id, muted)
	return scanAlert(row)
}

type CreateAlertNotificationParams struct {
	AlertID      uuid.UUID
	Channel      string
	Status       string
	ErrorMessage *string
	SentAt       *time.Time
}

// CreateAlertNotification records the outcome of one dispatch attempt. On
// success, SentAt must be the actual dispatch time (now()), never a
// placeholder sentinel.
func (q *Queries) CreateAlertNotification(ctx context.Context, p CreateAlertNotificationParams) (AlertNotification, error) {
	var n AlertNotification
	row := q.db.QueryRow(ctx, `
		INSERT INTO alert_notifications (alert_id, channel, status, error_message, sent_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, alert_id, channel, status, error_message, sent_at`,
		p.AlertID, p.Channel, p.Status, p.ErrorMessage, p.SentAt)
	if err := row.Scan(&n.ID, &n.AlertID, &n.Channel, &n.Status, &n.ErrorMessage, &n.SentAt); err != nil {
		return AlertNotification{}, fmt.Errorf("recording alert notification: %w", err)
	}
	return n, nil
}

// LastNotificationSentAt returns the most recent sent_at timestamp recorded
// across all alerts and channels.
func (q *Queries) LastNotificationSentAt(ctx context.Context) (*time.Time, error) {
	var t *time.Time
	row := q.db.QueryRow(ctx, `SELECT MAX(sent_at) FROM alert_notifications WHERE status = 'sent'`)
	if err := row.Scan(&t); err != nil {
		return nil, fmt.Errorf("querying last notification time: %w", err)
	}
	return t, nil
}
