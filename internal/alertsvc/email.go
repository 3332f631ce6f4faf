package alertsvc

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/corvidwatch/sentrywatch/internal/config"
	"github.com/corvidwatch/sentrywatch/internal/db"
)

// emailDispatcher sends an alert over SMTP as a multipart message: a
// plain-text part with an HTML alternative.
type emailDispatcher struct {
	dialer    *gomail.Dialer
	from      string
	recipient string
}

func newEmailDispatcher(cfg *config.Config) *emailDispatcher {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	if cfg.SMTPTLS {
		d.TLSConfig = &tls.Config{ServerName: cfg.SMTPHost}
	} else {
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator opted out of TLS explicitly
	}

	return &emailDispatcher{dialer: d, from: cfg.SMTPFrom, recipient: cfg.AlertRecipient}
}

// send builds and delivers the alert email. gomail.Dialer.DialAndSend is
// synchronous and has no context parameter, so it runs in its own goroutine
// and send returns a timeout error once 30s pass without a result; the
// abandoned DialAndSend call keeps running until the dialer returns.
func (e *emailDispatcher) send(ctx context.Context, alert db.Alert) error {
	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", e.recipient)
	m.SetHeader("Subject", alert.Title)
	m.SetBody("text/plain", fmt.Sprintf("%s\n\n%s\n\nAPI: %s\nScore: %.1f / 10\nKind: %s\nAlert ID: %s\n",
		alert.Title, alert.Description, alert.ApiID, alert.Score, alert.Kind, alert.ID))
	m.AddAlternative("text/html", renderAlertHTML(alert))

	errCh := make(chan error, 1)
	go func() { errCh <- e.dialer.DialAndSend(m) }()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("sending alert email: %w", err)
		}
		return nil
	case <-time.After(30 * time.Second):
		return fmt.Errorf("sending alert email: timed out after 30s")
	}
}

// renderAlertHTML builds the alert notification body. The severity colour
// is red for critical, amber otherwise, matching the webhook attachment.
func renderAlertHTML(alert db.Alert) string {
	color := severityColor(alert.Severity)
	return fmt.Sprintf(`<html><body style="font-family:sans-serif">
<div style="border-left:4px solid %s;padding:12px 16px;background:#fafafa">
  <h2 style="margin:0 0 8px;color:%s">%s</h2>
  <p style="margin:0 0 8px">%s</p>
  <table style="font-size:13px;color:#333">
    <tr><td><b>API</b></td><td>%s</td></tr>
    <tr><td><b>Score</b></td><td>%.1f / 10</td></tr>
    <tr><td><b>Kind</b></td><td>%s</td></tr>
    <tr><td><b>Alert ID</b></td><td>%s</td></tr>
  </table>
</div>
</body></html>`,
		color, color, alert.Title, alert.Description,
		alert.ApiID, alert.Score, alert.Kind, alert.ID)
}
