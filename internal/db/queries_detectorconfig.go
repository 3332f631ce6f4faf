package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// GetDetectorOverrides returns every per-API override row for apiID. A
// detector with no row here uses the global default unmodified.
func (q *Queries) GetDetectorOverrides(ctx context.Context, apiID uuid.UUID) ([]DetectorConfigOverride, error) {
	rows, err := q.db.Query(ctx, `
		SELECT api_id, detector, enabled, threshold, weight, window_seconds
		FROM detector_configs WHERE api_id = $1`, apiID)
	if err != nil {
		return nil, fmt.Errorf("listing detector overrides: %w", err)
	}
	defer rows.Close()

	var out []DetectorConfigOverride
	for rows.Next() {
		var o DetectorConfigOverride
		if err := rows.Scan(&o.ApiID, &o.Detector, &o.Enabled, &o.Threshold, &o.Weight, &o.WindowSec); err != nil {
			return nil, fmt.Errorf("scanning detector override: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
