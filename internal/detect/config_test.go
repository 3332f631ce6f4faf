package detect

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/corvidwatch/sentrywatch/internal/config"
	"github.com/corvidwatch/sentrywatch/internal/db"
)

func TestApplyOverride_OnlySetFieldsChange(t *testing.T) {
	p := &RuleParams{Enabled: true, Threshold: 1, Weight: 2, WindowSec: 60}

	enabled := false
	applyOverride(p, db.DetectorConfigOverride{Enabled: &enabled})

	if p.Enabled != false {
		t.Errorf("Enabled = %v, want false", p.Enabled)
	}
	if p.Threshold != 1 || p.Weight != 2 || p.WindowSec != 60 {
		t.Errorf("unset fields must be left untouched, got %+v", p)
	}
}

func TestApplyOverride_AllFields(t *testing.T) {
	p := &RuleParams{}
	enabled := true
	threshold := 0.75
	weight := 9.0
	windowSec := int32(120)

	applyOverride(p, db.DetectorConfigOverride{
		Enabled:   &enabled,
		Threshold: &threshold,
		Weight:    &weight,
		WindowSec: &windowSec,
	})

	want := RuleParams{Enabled: true, Threshold: 0.75, Weight: 9.0, WindowSec: 120}
	if *p != want {
		t.Errorf("applyOverride result = %+v, want %+v", *p, want)
	}
}

func TestDetectorParams_RoutesByTag(t *testing.T) {
	r := &Resolved{
		RateLimit:        RuleParams{Weight: 1},
		IPBlacklist:      RuleParams{Weight: 2},
		AttackSignatures: RuleParams{Weight: 3},
		ErrorRate:        RuleParams{Weight: 4},
		Statistical:      RuleParams{Weight: 5},
		ML:               RuleParams{Weight: 6},
	}

	tests := []struct {
		tag  string
		want float64
	}{
		{detectorRateLimit, 1},
		{detectorIPBlacklist, 2},
		{detectorAttackSignatures, 3},
		{detectorErrorRate, 4},
		{detectorLatencySpike, 5},
		{detectorML, 6},
	}
	for _, tt := range tests {
		got := detectorParams(r, tt.tag)
		if got.Weight != tt.want {
			t.Errorf("detectorParams(%q).Weight = %v, want %v", tt.tag, got.Weight, tt.want)
		}
	}
}

func TestDetectorParams_UnknownTagReturnsFreshParams(t *testing.T) {
	r := &Resolved{RateLimit: RuleParams{Weight: 99}}
	got := detectorParams(r, "not_a_real_detector")
	if *got != (RuleParams{}) {
		t.Errorf("unknown detector tag should route to an isolated zero-value RuleParams, got %+v", *got)
	}
}

func TestConfigResolver_Resolve_FallsBackToGlobalOnError(t *testing.T) {
	cfg := &config.Config{}
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Threshold = 42

	queries := db.New(&fakeDBTX{}) // Query always errors via errFakeQuery
	resolver := NewConfigResolver(cfg, queries, discardLogger())

	resolved := resolver.Resolve(context.Background(), uuid.New())

	if !resolved.RateLimit.Enabled || resolved.RateLimit.Threshold != 42 {
		t.Errorf("Resolve() on a storage error should return the global default, got %+v", resolved.RateLimit)
	}
}
