package ml

import (
	"math/rand"
	"testing"
)

func TestAveragePathLength_KnownValues(t *testing.T) {
	tests := []struct {
		n    int
		want float64
	}{
		{0, 0},
		{1, 0},
		{2, 1},
	}
	for _, tt := range tests {
		got := averagePathLength(tt.n)
		if got != tt.want {
			t.Errorf("averagePathLength(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestAveragePathLength_Monotonic(t *testing.T) {
	prev := averagePathLength(3)
	for _, n := range []int{10, 100, 1000} {
		got := averagePathLength(n)
		if got <= prev {
			t.Errorf("averagePathLength(%d) = %v, expected to exceed previous value %v", n, got, prev)
		}
		prev = got
	}
}

func syntheticSamples(n int, rng *rand.Rand) [][]float64 {
	samples := make([][]float64, n)
	for i := range samples {
		row := make([]float64, FeatureCount)
		for f := range row {
			row[f] = rng.Float64() * 10
		}
		samples[i] = row
	}
	return samples
}

func TestForest_ScoreInUnitRange(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	samples := syntheticSamples(200, rng)

	forest := TrainForest(samples, 50, 64, rng)

	for _, s := range samples[:20] {
		score := forest.Score(s)
		if score < 0 || score > 1 {
			t.Fatalf("Score() = %v, want in [0, 1]", score)
		}
	}
}

func TestForest_OutlierScoresHigherThanInlier(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	// A tight cluster around the origin, plus far-out points are scored
	// separately below.
	samples := make([][]float64, 0, 200)
	for i := 0; i < 200; i++ {
		row := make([]float64, FeatureCount)
		for f := range row {
			row[f] = rng.NormFloat64() * 0.1
		}
		samples = append(samples, row)
	}

	forest := TrainForest(samples, 100, 128, rng)

	inlier := make([]float64, FeatureCount)
	outlier := make([]float64, FeatureCount)
	for f := range outlier {
		outlier[f] = 1000
	}

	inlierScore := forest.Score(inlier)
	outlierScore := forest.Score(outlier)

	if outlierScore <= inlierScore {
		t.Errorf("expected a far-out point to score higher than an inlier: outlier=%v inlier=%v", outlierScore, inlierScore)
	}
}

func TestForest_SetThreshold_EmptyDefaultsToPoint6(t *testing.T) {
	f := &Forest{}
	f.SetThreshold(nil, 0.1)
	if f.Threshold != 0.6 {
		t.Errorf("Threshold for empty training scores = %v, want 0.6", f.Threshold)
	}
}

func TestForest_SetThreshold_PicksContaminationQuantile(t *testing.T) {
	f := &Forest{}
	scores := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
	f.SetThreshold(scores, 0.1) // top 10% flagged as anomalies

	if f.Threshold != 0.9 {
		t.Errorf("Threshold = %v, want 0.9 (90th percentile of 10 sorted scores)", f.Threshold)
	}
}

func TestForest_IsAnomaly_RespectsThreshold(t *testing.T) {
	f := &Forest{Trees: nil, Threshold: 0.5}
	// An empty tree set always scores 0, which must be below any positive
	// threshold.
	isAnomaly, score := f.IsAnomaly([]float64{1, 2, 3, 4, 5, 6})
	if isAnomaly {
		t.Errorf("IsAnomaly with no trees should be false (score=%v)", score)
	}
}
