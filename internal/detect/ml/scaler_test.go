package ml

import (
	"math"
	"testing"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFitScaler_MeanAndStdDev(t *testing.T) {
	samples := [][]float64{
		{2, 100},
		{4, 200},
		{4, 200},
		{4, 200},
		{5, 300},
		{5, 300},
		{7, 400},
		{9, 500},
	}
	// Pad each row out to the FeatureCount columns expected by the package.
	padded := make([][]float64, len(samples))
	for i, s := range samples {
		row := make([]float64, FeatureCount)
		copy(row, s)
		padded[i] = row
	}

	scaler := FitScaler(padded)

	wantMean := 5.0 // population mean of {2,4,4,4,5,5,7,9}
	if !approxEqual(scaler.Mean[0], wantMean) {
		t.Errorf("Mean[0] = %v, want %v", scaler.Mean[0], wantMean)
	}

	wantStd := 2.0 // population stddev of the same series
	if !approxEqual(scaler.Std[0], wantStd) {
		t.Errorf("Std[0] = %v, want %v", scaler.Std[0], wantStd)
	}
}

func TestFitScaler_ConstantColumnAvoidsDivideByZero(t *testing.T) {
	samples := [][]float64{
		{5, 0, 0, 0, 0, 0},
		{5, 0, 0, 0, 0, 0},
		{5, 0, 0, 0, 0, 0},
	}
	scaler := FitScaler(samples)

	if scaler.Std[0] != 1 {
		t.Errorf("Std[0] for a constant column = %v, want 1 (guard against /0)", scaler.Std[0])
	}

	out := scaler.Transform([]float64{5, 0, 0, 0, 0, 0})
	if out[0] != 0 {
		t.Errorf("Transform of the mean value = %v, want 0", out[0])
	}
}

func TestScaler_Transform_DoesNotMutateInput(t *testing.T) {
	scaler := &Scaler{
		Mean: []float64{1, 1, 1, 1, 1, 1},
		Std:  []float64{1, 1, 1, 1, 1, 1},
	}
	in := []float64{5, 5, 5, 5, 5, 5}
	inCopy := append([]float64(nil), in...)

	_ = scaler.Transform(in)

	for i := range in {
		if in[i] != inCopy[i] {
			t.Fatalf("Transform mutated its input at index %d", i)
		}
	}
}

func TestFitScaler_Empty(t *testing.T) {
	scaler := FitScaler(nil)
	if len(scaler.Mean) != FeatureCount || len(scaler.Std) != FeatureCount {
		t.Fatalf("empty FitScaler should still return FeatureCount-length Mean/Std")
	}
}
