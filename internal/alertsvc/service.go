// Package alertsvc dispatches per-(api,kind) throttled alert notifications
// to email and webhook channels, recording the outcome of every attempt.
// Notifications are fire-and-forget: a failed dispatch is recorded as
// failed and never retried in-band, and never rolls back the alert itself.
package alertsvc

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/corvidwatch/sentrywatch/internal/config"
	"github.com/corvidwatch/sentrywatch/internal/db"
	"github.com/corvidwatch/sentrywatch/internal/telemetry"
)

// Service fans a newly created alert out to configured channels, honoring
// the per-(api_id, kind) throttle.
type Service struct {
	queries *db.Queries
	logger  *slog.Logger

	throttleSeconds int
	throttleMu      sync.Mutex
	lastSent        map[string]time.Time

	email   *emailDispatcher
	webhook *webhookDispatcher
}

// NewService builds a Service from application configuration. Either
// dispatcher is nil when its channel is not configured/enabled, in which
// case Notify simply skips it.
func NewService(cfg *config.Config, queries *db.Queries, logger *slog.Logger) *Service {
	s := &Service{
		queries:         queries,
		logger:          logger,
		throttleSeconds: cfg.ThrottleSeconds,
		lastSent:        make(map[string]time.Time),
	}

	if cfg.EmailEnabled && cfg.SMTPHost != "" && cfg.AlertRecipient != "" {
		s.email = newEmailDispatcher(cfg)
	}
	if cfg.WebhookURL != "" {
		s.webhook = newWebhookDispatcher(cfg.WebhookURL, &http.Client{Timeout: 10 * time.Second})
	}

	return s
}

// throttleKey is (api_id, alert_kind).
func throttleKey(apiID, kind string) string {
	return apiID + "|" + kind
}

// tryAcquire reports whether a dispatch for key is allowed right now,
// recording the attempt time on success. A return of false means the last
// dispatch for this key is newer than now-THROTTLE_SECONDS and this call
// must drop silently rather than retry later.
func (s *Service) tryAcquire(key string) bool {
	s.throttleMu.Lock()
	defer s.throttleMu.Unlock()

	now := time.Now()
	if last, ok := s.lastSent[key]; ok && now.Sub(last) < time.Duration(s.throttleSeconds)*time.Second {
		return false
	}
	s.lastSent[key] = now
	return true
}

// Notify dispatches alert to every configured channel, subject to the
// throttle cache. Intended to be invoked in a background goroutine by the
// detection engine, detached from the ingest request's context (the
// caller passes a context whose cancellation does not track the HTTP
// request that triggered the alert).
func (s *Service) Notify(ctx context.Context, alert db.Alert) {
	key := throttleKey(alert.ApiID.String(), alert.Kind)
	if !s.tryAcquire(key) {
		telemetry.NotificationsThrottledTotal.WithLabelValues(alert.Kind).Inc()
		return
	}

	var wg sync.WaitGroup

	if s.email != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.dispatch(ctx, alert, "email", s.email.send)
		}()
	}

	if s.webhook != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.dispatch(ctx, alert, "webhook", s.webhook.send)
		}()
	}

	wg.Wait()
}

// dispatch runs one channel's send function, records the outcome in
// alert_notifications, and updates metrics. Per-channel failures never
// propagate — they are recorded as failed and left for the operator to
// notice via acknowledgement, not retried here.
func (s *Service) dispatch(ctx context.Context, alert db.Alert, channel string, send func(context.Context, db.Alert) error) {
	err := send(ctx, alert)

	params := db.CreateAlertNotificationParams{
		AlertID: alert.ID,
		Channel: channel,
	}

	if err != nil {
		s.logger.Warn("alert notification dispatch failed", "channel", channel, "alert_id", alert.ID, "error", err)
		msg := err.Error()
		params.Status = "failed"
		params.ErrorMessage = &msg
		telemetry.NotificationsTotal.WithLabelValues(channel, "failed").Inc()
	} else {
		now := time.Now()
		params.Status = "sent"
		params.SentAt = &now
		telemetry.NotificationsTotal.WithLabelValues(channel, "sent").Inc()
	}

	if _, dbErr := s.queries.CreateAlertNotification(ctx, params); dbErr != nil {
		s.logger.Error("recording alert notification", "channel", channel, "alert_id", alert.ID, "error", dbErr)
	}
}

// severityColor maps an alert severity to the color convention used by both
// the email template and the Slack-style webhook attachment: red for
// critical, amber otherwise.
func severityColor(severity string) string {
	if severity == "critical" {
		return "#d32f2f"
	}
	return "#ff9800"
}
