// Package notify provides the reminder delivery backends used by the
// dispatcher.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/carebridge/checkin/config"
	"github.com/carebridge/checkin/dispatch"
	"github.com/carebridge/checkin/log"
	"github.com/pkg/errors"
)

// FromConfig picks the delivery backend: a webhook when -notify-url is set,
// otherwise the log-only notifier.
func FromConfig(cfg config.Config) dispatch.Notifier {
	if cfg.NotifyURL != "" {
		return NewWebhook(cfg.NotifyURL)
	}
	return LogNotifier{}
}

// LogNotifier writes reminders to the application log. It stands in for a
// real delivery channel in development and test setups.
type LogNotifier struct{}

func (LogNotifier) SendReminder(ctx context.Context, r dispatch.Reminder) error {
	log.Infof("reminder: %s <%s> has %q due %s",
		r.Caregiver, r.Contact, r.Survey, r.DueAt.Format(time.RFC3339))
	return nil
}

// Webhook posts each reminder as JSON to an external delivery endpoint,
// typically an SMS or push gateway.
type Webhook struct {
	URL    string
	Client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Contact   string    `json:"contact"`
	Caregiver string    `json:"caregiver"`
	Survey    string    `json:"survey"`
	DueAt     time.Time `json:"due_at"`
}

func (wh *Webhook) SendReminder(ctx context.Context, r dispatch.Reminder) error {
	body, err := json.Marshal(webhookPayload(r))
	if err != nil {
		return errors.Wrap(err, "marshal reminder")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build reminder request")
	}
	req.Header.Set("content-type", "application/json")

	resp, err := wh.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "deliver reminder")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.Errorf("deliver reminder: gateway returned %s", resp.Status)
	}
	return nil
}
