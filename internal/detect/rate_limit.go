package detect

import (
	"context"
	"fmt"

	"github.com/corvidwatch/sentrywatch/internal/window"
)

// RateLimitDetector flags a client IP that exceeds a per-API request count
// within a sliding window.
type RateLimitDetector struct {
	windows  *window.Store
	resolver *ConfigResolver
}

// NewRateLimitDetector builds a RateLimitDetector backed by the given sliding
// window store.
func NewRateLimitDetector(windows *window.Store, resolver *ConfigResolver) *RateLimitDetector {
	return &RateLimitDetector{windows: windows, resolver: resolver}
}

// Detect implements Detector.
func (d *RateLimitDetector) Detect(ctx context.Context, rec Record) (*Detection, error) {
	cfg := d.resolver.Resolve(ctx, rec.ApiID).RateLimit
	if !cfg.Enabled {
		return nil, nil
	}

	count := d.windows.RecordAndCount(rec.ApiID, rec.ClientIP, rec.Ts, cfg.WindowSec)
	if float64(count) <= cfg.Threshold {
		return nil, nil
	}

	score := cfg.Weight * float64(count) / cfg.Threshold
	if score > 10 {
		score = 10
	}

	return &Detection{
		Tag:    detectorRateLimit,
		Score:  score,
		Reason: fmt.Sprintf("%d requests from %s in %ds window exceeds threshold %.0f", count, rec.ClientIP, cfg.WindowSec, cfg.Threshold),
		Metadata: map[string]any{
			"count":     count,
			"window_s":  cfg.WindowSec,
			"threshold": cfg.Threshold,
		},
	}, nil
}
