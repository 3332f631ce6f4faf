package ml

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Scaler implements zero-mean, unit-variance standardization, fit once per
// training run and applied identically at scoring time.
type Scaler struct {
	Mean []float64
	Std  []float64
}

// FitScaler computes per-feature population mean/stddev over the training
// matrix (rows are samples, columns are features).
func FitScaler(samples [][]float64) *Scaler {
	n := len(samples)
	if n == 0 {
		return &Scaler{Mean: make([]float64, FeatureCount), Std: make([]float64, FeatureCount)}
	}

	s := &Scaler{Mean: make([]float64, FeatureCount), Std: make([]float64, FeatureCount)}
	for f := 0; f < FeatureCount; f++ {
		col := make([]float64, n)
		for i, row := range samples {
			col[i] = row[f]
		}
		mean := stat.Mean(col, nil)
		s.Mean[f] = mean
		s.Std[f] = populationStdDev(col, mean)
		if s.Std[f] == 0 {
			s.Std[f] = 1 // avoid divide-by-zero for a constant feature column
		}
	}
	return s
}

// Transform standardizes a single feature vector, returning a new slice
// (the input is never mutated).
func (s *Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.Mean[i]) / s.Std[i]
	}
	return out
}

func populationStdDev(xs []float64, mean float64) float64 {
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}
