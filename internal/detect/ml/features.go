// Package ml implements the per-API Isolation Forest anomaly detector: fixed
// feature extraction, standardization, a hand-rolled forest (no ecosystem
// Isolation Forest implementation exists in Go), asynchronous training, and
// an atomically hot-swappable model cache.
package ml

import (
	"time"
)

// FeatureCount is the length of every feature vector this package produces.
const FeatureCount = 6

// Record is the subset of a request-log row the ML detector needs. It
// mirrors detect.Record deliberately rather than importing it, to keep this
// package free of any dependency on the rule/statistical detector layer.
type Record struct {
	Endpoint   string
	StatusCode *int32
	LatencyMs  *float64
	BodySize   int32
}

// ExtractFeatures builds the fixed-order feature vector:
// [latency_ms||0, body_size||0, status_code>=400?1:0, len(endpoint), hour_of_day, day_of_week].
// hour_of_day and day_of_week are taken from the wall clock at extraction
// time (training and scoring both call this at the moment they run), not
// from the request's own timestamp.
func ExtractFeatures(rec Record) [FeatureCount]float64 {
	now := time.Now()

	var latency float64
	if rec.LatencyMs != nil {
		latency = *rec.LatencyMs
	}

	isError := 0.0
	if rec.StatusCode != nil && *rec.StatusCode >= 400 {
		isError = 1.0
	}

	return [FeatureCount]float64{
		latency,
		float64(rec.BodySize),
		isError,
		float64(len(rec.Endpoint)),
		float64(now.Hour()),
		float64(int(now.Weekday())),
	}
}

// sliceOf converts the fixed array to a slice for consumption by the scaler
// and forest, which operate on variable-length feature vectors generically.
func sliceOf(f [FeatureCount]float64) []float64 {
	return f[:]
}
