package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// UpsertMLModel replaces the persisted {model, scaler} blob for an api_id.
// Keyed by api_id per the data model's upsert semantics.
func (q *Queries) UpsertMLModel(ctx context.Context, apiID uuid.UUID, blob []byte, trainingSamples int) (MLModel, error) {
	var m MLModel
	row := q.db.QueryRow(ctx, `
		INSERT INTO ml_models (api_id, kind, blob, training_samples, trained_at, active)
		VALUES ($1, 'isolation_forest', $2, $3, now(), true)
		ON CONFLICT (api_id) DO UPDATE SET
			blob = EXCLUDED.blob,
			training_samples = EXCLUDED.training_samples,
			trained_at = now(),
			active = true
		RETURNING api_id, kind, blob, training_samples, trained_at, active`,
		apiID, blob, trainingSamples)
	if err := row.Scan(&m.ApiID, &m.Kind, &m.Blob, &m.TrainingSamples, &m.TrainedAt, &m.Active); err != nil {
		return MLModel{}, fmt.Errorf("upserting ml model: %w", err)
	}
	return m, nil
}

// GetMLModel fetches the active persisted model for an api_id.
func (q *Queries) GetMLModel(ctx context.Context, apiID uuid.UUID) (MLModel, error) {
	var m MLModel
	row := q.db.QueryRow(ctx, `
		SELECT api_id, kind, blob, training_samples, trained_at, active
		FROM ml_models WHERE api_id = $1 AND active = true`, apiID)
	err := row.Scan(&m.ApiID, &m.Kind, &m.Blob, &m.TrainingSamples, &m.TrainedAt, &m.Active)
	return m, err
}
