package detect

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/corvidwatch/sentrywatch/internal/config"
	"github.com/corvidwatch/sentrywatch/internal/db"
	"github.com/corvidwatch/sentrywatch/internal/detect/ml"
)

// RetrainAll discovers every api_id with request history and triggers a
// retrain for each, skipping any api_id that already has a training run in
// flight (concurrent retrain triggers for the same api_id coalesce into the
// run already underway rather than stacking).
func RetrainAll(ctx context.Context, queries *db.Queries, cache *ml.Cache, cfg *config.Config, logger *slog.Logger) {
	if !cfg.ML.Enabled {
		return
	}

	apiIDs, err := queries.ListDistinctApiIDs(ctx)
	if err != nil {
		logger.Error("listing api ids for ml retraining", "error", err)
		return
	}

	for _, apiID := range apiIDs {
		RetrainOne(ctx, queries, cache, cfg, logger, apiID)
	}
}

// RetrainOne trains (or skips, if insufficient history) a fresh model for
// one api_id and hot-swaps it into the cache on success. Safe to call
// concurrently for different api_ids; a second concurrent call for the same
// api_id is a no-op. A panic during the run is recovered and logged.
func RetrainOne(ctx context.Context, queries *db.Queries, cache *ml.Cache, cfg *config.Config, logger *slog.Logger, apiID uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("ml retraining panicked", "api_id", apiID, "panic", r)
		}
	}()
	if !cache.TryBeginTraining(apiID.String()) {
		return
	}
	defer cache.EndTraining(apiID.String())

	rows, err := queries.ListTrainingRows(ctx, apiID, cfg.ML.TrainSetSize)
	if err != nil {
		logger.Error("listing training rows", "api_id", apiID, "error", err)
		return
	}
	if len(rows) < cfg.ML.MinSamples {
		return
	}

	features := make([][ml.FeatureCount]float64, len(rows))
	for i, r := range rows {
		features[i] = ml.ExtractFeatures(ml.Record{
			Endpoint:   r.Endpoint,
			StatusCode: r.StatusCode,
			LatencyMs:  r.LatencyMs,
			BodySize:   r.BodySize,
		})
	}

	model := ml.Train(features, ml.TrainParams{
		NumTrees:      cfg.ML.NumTrees,
		SubsampleSize: cfg.ML.SubsampleSize,
		Contamination: cfg.ML.Contamination,
		RandomSeed:    cfg.ML.RandomSeed,
	})

	blob, err := ml.Encode(model)
	if err != nil {
		logger.Error("encoding ml model", "api_id", apiID, "error", err)
		return
	}
	if _, err := queries.UpsertMLModel(ctx, apiID, blob, len(rows)); err != nil {
		logger.Error("persisting ml model", "api_id", apiID, "error", err)
		return
	}

	cache.Set(apiID.String(), model)
	logger.Info("ml model trained", "api_id", apiID, "samples", len(rows))
}

// LoadCacheFromStorage warms the in-memory cache from persisted models at
// startup, so the detector is not silent for every api_id until the first
// retrain tick fires.
func LoadCacheFromStorage(ctx context.Context, queries *db.Queries, cache *ml.Cache, logger *slog.Logger) {
	apiIDs, err := queries.ListDistinctApiIDs(ctx)
	if err != nil {
		logger.Error("listing api ids for ml cache warmup", "error", err)
		return
	}

	for _, apiID := range apiIDs {
		row, err := queries.GetMLModel(ctx, apiID)
		if err != nil {
			if db.IsNotFound(err) {
				continue
			}
			logger.Warn("loading persisted ml model", "api_id", apiID, "error", err)
			continue
		}
		model, err := ml.Decode(row.Blob)
		if err != nil {
			logger.Warn("decoding persisted ml model", "api_id", apiID, "error", err)
			continue
		}
		cache.Set(apiID.String(), model)
	}
}
