package detect

import (
	"context"
	"fmt"

	"github.com/corvidwatch/sentrywatch/internal/db"
)

// BlacklistDetector flags any request whose client IP has a non-expired
// ip_blacklist entry.
type BlacklistDetector struct {
	queries  *db.Queries
	resolver *ConfigResolver
}

// NewBlacklistDetector builds a BlacklistDetector.
func NewBlacklistDetector(queries *db.Queries, resolver *ConfigResolver) *BlacklistDetector {
	return &BlacklistDetector{queries: queries, resolver: resolver}
}

// Detect implements Detector.
func (d *BlacklistDetector) Detect(ctx context.Context, rec Record) (*Detection, error) {
	cfg := d.resolver.Resolve(ctx, rec.ApiID).IPBlacklist
	if !cfg.Enabled {
		return nil, nil
	}

	entry, err := d.queries.GetActiveBlacklistEntry(ctx, rec.ClientIP)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("looking up ip blacklist: %w", err)
	}

	reason := "blacklisted"
	if entry.Reason != nil {
		reason = *entry.Reason
	}

	return &Detection{
		Tag:    detectorIPBlacklist,
		Score:  cfg.Weight,
		Reason: fmt.Sprintf("client ip %s is blacklisted: %s", rec.ClientIP, reason),
		Metadata: map[string]any{
			"ip": rec.ClientIP,
		},
	}, nil
}
