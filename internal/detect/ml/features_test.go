package ml

import "testing"

func TestExtractFeatures_Length(t *testing.T) {
	f := ExtractFeatures(Record{})
	if len(f) != FeatureCount {
		t.Fatalf("len(features) = %d, want %d", len(f), FeatureCount)
	}
}

func TestExtractFeatures_LatencyAndBodySize(t *testing.T) {
	latency := 123.5
	f := ExtractFeatures(Record{LatencyMs: &latency, BodySize: 4096})

	if f[0] != latency {
		t.Errorf("latency feature = %v, want %v", f[0], latency)
	}
	if f[1] != 4096 {
		t.Errorf("body size feature = %v, want 4096", f[1])
	}
}

func TestExtractFeatures_NilLatencyDefaultsToZero(t *testing.T) {
	f := ExtractFeatures(Record{})
	if f[0] != 0 {
		t.Errorf("latency feature with nil LatencyMs = %v, want 0", f[0])
	}
}

func TestExtractFeatures_StatusCodeErrorFlag(t *testing.T) {
	ok := int32(200)
	errStatus := int32(500)

	okFeatures := ExtractFeatures(Record{StatusCode: &ok})
	if okFeatures[2] != 0 {
		t.Errorf("is_error feature for status 200 = %v, want 0", okFeatures[2])
	}

	errFeatures := ExtractFeatures(Record{StatusCode: &errStatus})
	if errFeatures[2] != 1 {
		t.Errorf("is_error feature for status 500 = %v, want 1", errFeatures[2])
	}
}

func TestExtractFeatures_EndpointLength(t *testing.T) {
	f := ExtractFeatures(Record{Endpoint: "/api/v1/users"})
	if f[3] != float64(len("/api/v1/users")) {
		t.Errorf("endpoint length feature = %v, want %d", f[3], len("/api/v1/users"))
	}
}

func TestExtractFeatures_TimeFeaturesInRange(t *testing.T) {
	f := ExtractFeatures(Record{})
	if f[4] < 0 || f[4] > 23 {
		t.Errorf("hour_of_day = %v, want in [0, 23]", f[4])
	}
	if f[5] < 0 || f[5] > 6 {
		t.Errorf("day_of_week = %v, want in [0, 6]", f[5])
	}
}
