package ml

import (
	"math/rand"
	"reflect"
	"testing"
)

func trainingRows(n int, rng *rand.Rand) [][FeatureCount]float64 {
	rows := make([][FeatureCount]float64, n)
	for i := range rows {
		for f := 0; f < FeatureCount; f++ {
			rows[i][f] = rng.Float64() * 100
		}
	}
	return rows
}

func TestTrain_DeterministicGivenSameSeed(t *testing.T) {
	rows := trainingRows(150, rand.New(rand.NewSource(99)))
	params := TrainParams{NumTrees: 20, SubsampleSize: 32, Contamination: 0.1, RandomSeed: 42}

	modelA := Train(rows, params)
	modelB := Train(rows, params)

	probe := rows[0]
	_, scoreA := modelA.Score(probe)
	_, scoreB := modelB.Score(probe)

	if scoreA != scoreB {
		t.Errorf("Train with the same rows and seed produced different scores: %v vs %v", scoreA, scoreB)
	}
	if modelA.Forest.Threshold != modelB.Forest.Threshold {
		t.Errorf("Train with the same rows and seed produced different thresholds: %v vs %v", modelA.Forest.Threshold, modelB.Forest.Threshold)
	}
}

func TestTrain_DifferentSeedsCanDiffer(t *testing.T) {
	rows := trainingRows(150, rand.New(rand.NewSource(99)))

	modelA := Train(rows, TrainParams{NumTrees: 20, SubsampleSize: 32, Contamination: 0.1, RandomSeed: 1})
	modelB := Train(rows, TrainParams{NumTrees: 20, SubsampleSize: 32, Contamination: 0.1, RandomSeed: 2})

	if reflect.DeepEqual(modelA.Forest.Trees[0], modelB.Forest.Trees[0]) {
		t.Skip("different seeds happened to build identical first trees; not a meaningful failure")
	}
}

func TestTrain_ModelScoresInRange(t *testing.T) {
	rows := trainingRows(100, rand.New(rand.NewSource(5)))
	model := Train(rows, TrainParams{NumTrees: 30, SubsampleSize: 32, Contamination: 0.1, RandomSeed: 5})

	for _, r := range rows[:10] {
		_, score := model.Score(r)
		if score < 0 || score > 1 {
			t.Fatalf("model score = %v, want in [0, 1]", score)
		}
	}
}
