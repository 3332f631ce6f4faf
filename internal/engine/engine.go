// Package engine implements the Detection Engine: it fans a request out to
// every registered detector, aggregates the resulting risk score, and — at
// most once per request, at the highest qualifying severity band — creates
// an alert and triggers the alert service. The engine does not publish to the
// live bus: the ingest handler broadcasts one request_log event per request,
// and no separate alert event is broadcast.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/corvidwatch/sentrywatch/internal/alertsvc"
	"github.com/corvidwatch/sentrywatch/internal/db"
	"github.com/corvidwatch/sentrywatch/internal/detect"
	"github.com/corvidwatch/sentrywatch/internal/telemetry"
)

const maxRiskScore = 10.0

// Result is what the ingest endpoint needs back from the engine.
type Result struct {
	IsSuspicious bool
	RiskScore    float64
	AlertID      *string
}

// Engine orchestrates the detector pipeline for one request at a time.
// Detectors run sequentially — the spec notes correctness does not depend
// on parallelism — which keeps per-request state (the DB-backed config
// resolver, the window store) free of any need for per-call synchronization
// beyond what each detector already provides.
type Engine struct {
	ruleDetectors   []detect.Detector // short-circuited by a whitelisted client_ip
	otherDetectors  []detect.Detector // statistical, ML — always run
	queries         *db.Queries
	alertSvc        *alertsvc.Service
	logger          *slog.Logger
	mediumThreshold float64
	highThreshold   float64
}

// New builds an Engine. ruleDetectors are the rate-limit/blacklist/signature/
// error-rate family, skipped entirely for a whitelisted client_ip;
// otherDetectors (statistical, ML) always run, matching the original
// system's early-return that only short-circuits rule-based checks.
func New(ruleDetectors, otherDetectors []detect.Detector, queries *db.Queries, alertSvc *alertsvc.Service, logger *slog.Logger, mediumThreshold, highThreshold float64) *Engine {
	return &Engine{
		ruleDetectors:   ruleDetectors,
		otherDetectors:  otherDetectors,
		queries:         queries,
		alertSvc:        alertSvc,
		logger:          logger,
		mediumThreshold: mediumThreshold,
		highThreshold:   highThreshold,
	}
}

// Process runs every detector against rec, aggregates the risk score, and
// creates at most one alert at the highest qualifying severity band. The
// engine never allows a detector failure to escape this call: each
// detector's error is caught, logged, and treated as "no detection" so the
// remaining detectors still run.
func (e *Engine) Process(ctx context.Context, rec detect.Record) Result {
	var detections []detect.Detection

	whitelisted := e.isWhitelisted(ctx, rec.ClientIP)

	var pipeline []detect.Detector
	if !whitelisted {
		pipeline = append(pipeline, e.ruleDetectors...)
	}
	pipeline = append(pipeline, e.otherDetectors...)

	for _, d := range pipeline {
		start := time.Now()
		detection, err := e.runDetector(ctx, d, rec)
		telemetry.DetectorDuration.WithLabelValues(detectorLabel(d)).Observe(time.Since(start).Seconds())

		if err != nil {
			telemetry.DetectorErrorsTotal.WithLabelValues(detectorLabel(d)).Inc()
			e.logger.Error("detector failed, treating as no detection", "detector", detectorLabel(d), "api_id", rec.ApiID, "error", err)
			continue
		}
		if detection != nil {
			detections = append(detections, *detection)
		}
	}

	riskScore := 0.0
	for _, d := range detections {
		riskScore += d.Score
	}
	if riskScore > maxRiskScore {
		riskScore = maxRiskScore
	}

	// Suspicion and the medium alert band share the same cutoff (both
	// default to 5): a request is flagged suspicious exactly when it
	// qualifies for at least a medium alert.
	result := Result{
		IsSuspicious: riskScore >= e.mediumThreshold,
		RiskScore:    riskScore,
	}

	if len(detections) == 0 {
		return result
	}

	severity := e.severityFor(riskScore)
	if severity == "" {
		return result
	}

	alert, err := e.createAlert(ctx, rec, detections, severity, riskScore)
	if err != nil {
		e.logger.Error("creating alert", "api_id", rec.ApiID, "error", err)
		return result
	}

	id := alert.ID.String()
	result.AlertID = &id
	telemetry.AlertsCreatedTotal.WithLabelValues(alert.Severity, alert.Kind).Inc()

	// Side-channel notification is fire-and-forget and detached from the
	// request's context: the ingest response must not wait on SMTP/webhook
	// round trips, and the request context would be canceled the moment the
	// HTTP handler returns.
	go e.alertSvc.Notify(context.Background(), alert)

	return result
}

// isWhitelisted reports whether clientIP has a standing ip_whitelist entry.
// A lookup failure fails open toward running every detector, not toward
// silently skipping rule checks on a storage hiccup.
func (e *Engine) isWhitelisted(ctx context.Context, clientIP string) bool {
	_, err := e.queries.GetWhitelistEntry(ctx, clientIP)
	if err == nil {
		return true
	}
	if !db.IsNotFound(err) {
		e.logger.Warn("checking ip whitelist, treating as not whitelisted", "client_ip", clientIP, "error", err)
	}
	return false
}

// runDetector recovers from a detector panic (e.g. a pathological regex) in
// addition to catching a returned error, so "detector internal failure" per
// the error taxonomy covers both.
func (e *Engine) runDetector(ctx context.Context, d detect.Detector, rec detect.Record) (detection *detect.Detection, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detector panicked: %v", r)
		}
	}()
	return d.Detect(ctx, rec)
}

// severityFor returns the alert severity for a risk score, or "" if no
// alert should be created.
func (e *Engine) severityFor(score float64) string {
	switch {
	case score >= e.highThreshold:
		return "critical"
	case score >= e.mediumThreshold:
		return "medium"
	default:
		return ""
	}
}

func (e *Engine) createAlert(ctx context.Context, rec detect.Record, detections []detect.Detection, severity string, score float64) (db.Alert, error) {
	kind := detections[0].Tag
	if len(detections) > 1 {
		kind = "multi_threat"
	}

	reasons := make([]string, 0, len(detections))
	for _, d := range detections {
		reasons = append(reasons, d.Reason)
	}

	title := fmt.Sprintf("%s: %d threats detected", strings.ToUpper(severity), len(detections))
	description := strings.Join(reasons, "; ")

	details, err := json.Marshal(map[string]any{"detections": detections})
	if err != nil {
		return db.Alert{}, fmt.Errorf("marshaling detector details: %w", err)
	}

	logID := rec.LogID
	return e.queries.CreateAlert(ctx, db.CreateAlertParams{
		ApiID:           rec.ApiID,
		LogID:           &logID,
		Kind:            kind,
		Severity:        severity,
		Score:           score,
		Title:           title,
		Description:     description,
		DetectorDetails: details,
	})
}

// detectorLabel derives a stable Prometheus label from a detector's
// concrete type, e.g. "*detect.RateLimitDetector".
func detectorLabel(d detect.Detector) string {
	return fmt.Sprintf("%T", d)
}
