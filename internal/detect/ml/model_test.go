package ml

import (
	"math/rand"
	"testing"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	rows := trainingRows(80, rand.New(rand.NewSource(3)))
	model := Train(rows, TrainParams{NumTrees: 15, SubsampleSize: 32, Contamination: 0.1, RandomSeed: 3})

	blob, err := Encode(model)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	decoded, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	probe := rows[0]
	wantAnomaly, wantScore := model.Score(probe)
	gotAnomaly, gotScore := decoded.Score(probe)

	if gotAnomaly != wantAnomaly {
		t.Errorf("decoded model anomaly verdict = %v, want %v", gotAnomaly, wantAnomaly)
	}
	if gotScore != wantScore {
		t.Errorf("decoded model score = %v, want %v", gotScore, wantScore)
	}
}

func TestDecode_RejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("not a gob blob")); err == nil {
		t.Error("expected Decode to reject a malformed blob")
	}
}
