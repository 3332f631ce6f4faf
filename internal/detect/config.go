package detect

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/corvidwatch/sentrywatch/internal/config"
	"github.com/corvidwatch/sentrywatch/internal/db"
)

// RuleParams is the enabled/threshold/weight/window tuple every rule and
// statistical detector is configured by.
type RuleParams struct {
	Enabled   bool
	Threshold float64
	Weight    float64
	WindowSec int
}

// Resolved holds every detector's effective configuration for one API,
// after merging any per-API override over the global default.
type Resolved struct {
	RateLimit        RuleParams
	IPBlacklist      RuleParams
	AttackSignatures RuleParams
	ErrorRate        RuleParams
	Statistical      RuleParams
	ML               RuleParams
}

const (
	detectorRateLimit        = "rate_limit"
	detectorIPBlacklist      = "ip_blacklist"
	detectorAttackSignatures = "attack_signatures"
	detectorErrorRate        = "error_rate"
	detectorLatencySpike     = "latency_spike"
	detectorML               = "ml"
)

// ConfigResolver merges per-API detector_configs overrides over the global
// defaults loaded at startup. The detector_configs table exists precisely
// because the global DETECTOR_* defaults are not always right for every
// tenant's traffic profile.
type ConfigResolver struct {
	queries *db.Queries
	global  Resolved
	logger  *slog.Logger
}

// NewConfigResolver builds a resolver from global configuration.
func NewConfigResolver(cfg *config.Config, queries *db.Queries, logger *slog.Logger) *ConfigResolver {
	return &ConfigResolver{
		queries: queries,
		logger:  logger,
		global: Resolved{
			RateLimit: RuleParams{
				Enabled: cfg.RateLimit.Enabled, Threshold: cfg.RateLimit.Threshold,
				Weight: cfg.RateLimit.Weight, WindowSec: cfg.RateLimit.WindowSec,
			},
			IPBlacklist: RuleParams{
				Enabled: cfg.IPBlacklist.Enabled, Weight: cfg.IPBlacklist.Weight,
			},
			AttackSignatures: RuleParams{
				Enabled: cfg.AttackSignatures.Enabled, Weight: cfg.AttackSignatures.Weight,
			},
			ErrorRate: RuleParams{
				Enabled: cfg.ErrorRate.Enabled, Threshold: cfg.ErrorRate.Threshold,
				Weight: cfg.ErrorRate.Weight, WindowSec: cfg.ErrorRate.WindowSec,
			},
			Statistical: RuleParams{
				Enabled: cfg.Statistical.Enabled, Threshold: cfg.Statistical.ZThreshold,
				Weight: cfg.Statistical.Weight,
			},
			ML: RuleParams{
				Enabled: cfg.ML.Enabled, Weight: cfg.ML.Weight,
			},
		},
	}
}

// Resolve returns the effective configuration for apiID, falling back to the
// global default for any detector with no override row.
func (c *ConfigResolver) Resolve(ctx context.Context, apiID uuid.UUID) Resolved {
	resolved := c.global

	overrides, err := c.queries.GetDetectorOverrides(ctx, apiID)
	if err != nil {
		c.logger.Warn("resolving detector config overrides, using global defaults", "error", fmt.Errorf("%w", err), "api_id", apiID)
		return resolved
	}

	for _, o := range overrides {
		applyOverride(detectorParams(&resolved, o.Detector), o)
	}

	return resolved
}

func detectorParams(r *Resolved, detector string) *RuleParams {
	switch detector {
	case detectorRateLimit:
		return &r.RateLimit
	case detectorIPBlacklist:
		return &r.IPBlacklist
	case detectorAttackSignatures:
		return &r.AttackSignatures
	case detectorErrorRate:
		return &r.ErrorRate
	case detectorLatencySpike:
		return &r.Statistical
	case detectorML:
		return &r.ML
	default:
		return &RuleParams{}
	}
}

func applyOverride(p *RuleParams, o db.DetectorConfigOverride) {
	if o.Enabled != nil {
		p.Enabled = *o.Enabled
	}
	if o.Threshold != nil {
		p.Threshold = *o.Threshold
	}
	if o.Weight != nil {
		p.Weight = *o.Weight
	}
	if o.WindowSec != nil {
		p.WindowSec = int(*o.WindowSec)
	}
}
