package detect

import (
	"context"
	"fmt"

	"github.com/corvidwatch/sentrywatch/internal/db"
)

const errorRateMinTotal = 10

// ErrorRateDetector flags an API whose recent error ratio (status >= 400)
// exceeds a threshold. Only invoked when the current request is itself an
// error, matching the reference semantics: a healthy request never pays for
// this query.
type ErrorRateDetector struct {
	queries  *db.Queries
	resolver *ConfigResolver
}

// NewErrorRateDetector builds an ErrorRateDetector.
func NewErrorRateDetector(queries *db.Queries, resolver *ConfigResolver) *ErrorRateDetector {
	return &ErrorRateDetector{queries: queries, resolver: resolver}
}

// Detect implements Detector.
func (d *ErrorRateDetector) Detect(ctx context.Context, rec Record) (*Detection, error) {
	if rec.StatusCode == nil || *rec.StatusCode < 400 {
		return nil, nil
	}

	cfg := d.resolver.Resolve(ctx, rec.ApiID).ErrorRate
	if !cfg.Enabled {
		return nil, nil
	}

	total, errs, err := d.queries.CountRequestsWindow(ctx, rec.ApiID, rec.Ts, cfg.WindowSec)
	if err != nil {
		return nil, fmt.Errorf("counting error rate window: %w", err)
	}
	if total <= errorRateMinTotal {
		return nil, nil
	}

	ratio := float64(errs) / float64(total)
	if ratio <= cfg.Threshold {
		return nil, nil
	}

	score := cfg.Weight * ratio / cfg.Threshold
	if score > 10 {
		score = 10
	}

	return &Detection{
		Tag:    detectorErrorRate,
		Score:  score,
		Reason: fmt.Sprintf("error ratio %.2f over last %ds (%d/%d requests) exceeds %.2f", ratio, cfg.WindowSec, errs, total, cfg.Threshold),
		Metadata: map[string]any{
			"total":  total,
			"errors": errs,
			"ratio":  ratio,
		},
	}, nil
}
