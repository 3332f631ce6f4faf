// Package detect implements the multi-layer detector pipeline: rule-based,
// statistical, and (via the ml subpackage) Isolation-Forest detectors, fanned
// out and aggregated by the Detection Engine.
package detect

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// Record is one ingested request, enriched with its assigned log ID, as
// handed to every detector.
type Record struct {
	LogID      int64
	ApiID      uuid.UUID
	Ts         float64
	Method     string
	Endpoint   string
	ClientIP   string
	StatusCode *int32
	LatencyMs  *float64
	Headers    json.RawMessage
	BodySize   int32
	UserAgent  *string
}

// Detection is one detector's verdict for one request.
type Detection struct {
	Tag      string         `json:"detector_tag"`
	Score    float64        `json:"score"`
	Reason   string         `json:"reason"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Detector is the single capability every detector in the pipeline
// implements: given a record, return nothing or one Detection. Registration
// is configuration-driven — detectors are modeled as a sequence of values,
// not a fixed struct of named fields, so adding a detector never touches the
// engine's aggregation logic.
type Detector interface {
	Detect(ctx context.Context, rec Record) (*Detection, error)
}

// DetectorFunc adapts a plain function to the Detector interface.
type DetectorFunc func(ctx context.Context, rec Record) (*Detection, error)

// Detect implements Detector.
func (f DetectorFunc) Detect(ctx context.Context, rec Record) (*Detection, error) {
	return f(ctx, rec)
}
