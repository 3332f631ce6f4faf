package alertsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/slack-go/slack"

	"github.com/corvidwatch/sentrywatch/internal/db"
)

// webhookDispatcher posts a Slack-compatible incoming-webhook payload for
// every alert: an attachment carrying severity colour, title, description,
// and a handful of fields.
type webhookDispatcher struct {
	url    string
	client *http.Client
}

func newWebhookDispatcher(url string, client *http.Client) *webhookDispatcher {
	return &webhookDispatcher{url: url, client: client}
}

// send POSTs the alert as a Slack attachment payload. HTTP status >= 400
// counts as failure, matching the contract in the design notes.
func (w *webhookDispatcher) send(ctx context.Context, alert db.Alert) error {
	msg := &slack.WebhookMessage{
		Attachments: []slack.Attachment{
			{
				Color: severityColor(alert.Severity),
				Title: alert.Title,
				Text:  alert.Description,
				Fields: []slack.AttachmentField{
					{Title: "Severity", Value: alert.Severity, Short: true},
					{Title: "Score", Value: strconv.FormatFloat(alert.Score, 'f', 1, 64), Short: true},
					{Title: "Alert ID", Value: alert.ID.String(), Short: true},
					{Title: "API ID", Value: alert.ApiID.String(), Short: true},
				},
				Footer: "sentrywatch",
				Ts:     json.Number(strconv.FormatInt(alert.CreatedAt.Unix(), 10)),
			},
		},
	}

	if err := slack.PostWebhookCustomHTTPContext(ctx, w.url, w.client, msg); err != nil {
		return fmt.Errorf("posting alert webhook: %w", err)
	}
	return nil
}
