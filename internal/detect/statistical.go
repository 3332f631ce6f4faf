package detect

import (
	"context"
	"fmt"
	"math"

	"github.com/corvidwatch/sentrywatch/internal/db"
	"gonum.org/v1/gonum/stat"
)

// StatisticalDetector flags a latency outlier against an API's recent
// history using a population z-score.
type StatisticalDetector struct {
	queries     *db.Queries
	resolver    *ConfigResolver
	minSamples  int
	sampleDepth int
}

// NewStatisticalDetector builds a StatisticalDetector. minSamples and
// sampleDepth are process-wide (not per-API overridable, unlike
// threshold/weight): they bound how much history is fetched and are a
// resource-sizing concern, not a tenant traffic-shape concern.
func NewStatisticalDetector(queries *db.Queries, resolver *ConfigResolver, minSamples, sampleDepth int) *StatisticalDetector {
	return &StatisticalDetector{queries: queries, resolver: resolver, minSamples: minSamples, sampleDepth: sampleDepth}
}

// Detect implements Detector.
func (d *StatisticalDetector) Detect(ctx context.Context, rec Record) (*Detection, error) {
	cfg := d.resolver.Resolve(ctx, rec.ApiID).Statistical
	if !cfg.Enabled || rec.LatencyMs == nil {
		return nil, nil
	}

	latencies, err := d.queries.RecentLatencies(ctx, rec.ApiID, d.sampleDepth)
	if err != nil {
		return nil, fmt.Errorf("fetching recent latencies: %w", err)
	}
	if len(latencies) < d.minSamples {
		return nil, nil
	}

	mean := stat.Mean(latencies, nil)
	sigma := populationStdDev(latencies, mean)
	if sigma == 0 {
		return nil, nil
	}

	z := math.Abs(*rec.LatencyMs-mean) / sigma
	if z <= cfg.Threshold {
		return nil, nil
	}

	score := cfg.Weight * z / cfg.Threshold
	if score > 10 {
		score = 10
	}

	return &Detection{
		Tag:    detectorLatencySpike,
		Score:  score,
		Reason: fmt.Sprintf("latency z-score %.1f exceeds threshold %.1f (mean=%.1fms, σ=%.1fms)", z, cfg.Threshold, mean, sigma),
		Metadata: map[string]any{
			"z_score": z,
			"mean_ms": mean,
			"sigma_ms": sigma,
		},
	}, nil
}

// populationStdDev computes the population (not Bessel-corrected) standard
// deviation, per the spec's z-score definition. gonum's stat.StdDev applies
// the sample correction (divides by n-1), so it is not a drop-in substitute
// here — the reduction itself is hand-rolled on top of gonum's Mean.
func populationStdDev(xs []float64, mean float64) float64 {
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}
