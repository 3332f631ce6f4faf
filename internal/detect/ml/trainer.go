package ml

import "math/rand"

// TrainParams bundles the tunables pulled from configuration so Train stays
// free of any dependency on the config package.
type TrainParams struct {
	NumTrees      int
	SubsampleSize int
	Contamination float64
	RandomSeed    int64
}

// Train fits a Scaler and Forest over a set of already-extracted feature
// rows and returns the persistable Model. Training is deterministic given
// the same rows and RandomSeed, satisfying idempotent-modulo-seed retraining.
func Train(rows [][FeatureCount]float64, p TrainParams) *Model {
	samples := make([][]float64, len(rows))
	for i, r := range rows {
		samples[i] = sliceOf(r)
	}

	scaler := FitScaler(samples)
	scaled := make([][]float64, len(samples))
	for i, s := range samples {
		scaled[i] = scaler.Transform(s)
	}

	rng := rand.New(rand.NewSource(p.RandomSeed))
	forest := TrainForest(scaled, p.NumTrees, p.SubsampleSize, rng)

	trainScores := make([]float64, len(scaled))
	for i, s := range scaled {
		trainScores[i] = forest.Score(s)
	}
	forest.SetThreshold(trainScores, p.Contamination)

	return &Model{Scaler: scaler, Forest: forest}
}
