package detect

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/corvidwatch/sentrywatch/internal/config"
	"github.com/corvidwatch/sentrywatch/internal/db"
	"github.com/corvidwatch/sentrywatch/internal/detect/ml"
)

// MLDetector scores requests against the per-API Isolation Forest cached in
// memory. It never trains synchronously on the request path: the first time
// an api_id has no cached model, it fires off a single asynchronous training
// run (coalesced through the cache's in-flight marker so a burst of requests
// for the same untrained api_id triggers exactly one run) and returns no
// detection for this request.
type MLDetector struct {
	cache    *ml.Cache
	resolver *ConfigResolver
	queries  *db.Queries
	cfg      *config.Config
	logger   *slog.Logger
}

// NewMLDetector builds an MLDetector over a shared model cache.
func NewMLDetector(cache *ml.Cache, resolver *ConfigResolver, queries *db.Queries, cfg *config.Config, logger *slog.Logger) *MLDetector {
	return &MLDetector{cache: cache, resolver: resolver, queries: queries, cfg: cfg, logger: logger}
}

// Detect implements Detector.
func (d *MLDetector) Detect(ctx context.Context, rec Record) (*Detection, error) {
	cfg := d.resolver.Resolve(ctx, rec.ApiID).ML
	if !cfg.Enabled {
		return nil, nil
	}

	model := d.cache.Get(rec.ApiID.String())
	if model == nil {
		d.triggerTraining(rec.ApiID)
		return nil, nil
	}

	features := ml.ExtractFeatures(ml.Record{
		Endpoint:   rec.Endpoint,
		StatusCode: rec.StatusCode,
		LatencyMs:  rec.LatencyMs,
		BodySize:   rec.BodySize,
	})

	isAnomaly, score := model.Score(features)
	if !isAnomaly {
		return nil, nil
	}

	return &Detection{
		Tag:    detectorML,
		Score:  cfg.Weight,
		Reason: fmt.Sprintf("isolation forest anomaly score %.2f exceeds trained threshold", score),
		Metadata: map[string]any{
			"anomaly_score": score,
		},
	}, nil
}

// triggerTraining fires a training run for apiID detached from the request's
// context (which is canceled the moment the ingest handler returns). The
// cache's in-flight marker makes this safe to call on every request for an
// untrained api_id: every caller starts RetrainOne in a goroutine, but only
// the one that wins TryBeginTraining trains; every concurrent caller after it
// returns at once.
func (d *MLDetector) triggerTraining(apiID uuid.UUID) {
	go RetrainOne(context.Background(), d.queries, d.cache, d.cfg, d.logger, apiID)
}
