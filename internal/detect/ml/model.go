package ml

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Model is the full persisted artifact for one API: the scaler used to
// standardize features plus the trained forest, gob-encoded into the
// ml_models.blob column.
type Model struct {
	Scaler *Scaler
	Forest *Forest
}

func init() {
	gob.Register(&isoNode{})
}

// Encode serializes a Model for persistence.
func Encode(m *Model) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, fmt.Errorf("encoding ml model: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes a Model persisted by Encode.
func Decode(blob []byte) (*Model, error) {
	var m Model
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding ml model: %w", err)
	}
	return &m, nil
}

// Score standardizes x with the model's scaler and returns the forest's
// anomaly verdict and raw score.
func (m *Model) Score(x [FeatureCount]float64) (bool, float64) {
	scaled := m.Scaler.Transform(sliceOf(x))
	return m.Forest.IsAnomaly(scaled)
}
