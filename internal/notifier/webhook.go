package notifier

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"

	"github.com/helioforge/fswatcher/internal/version"
)

var userAgent = fmt.Sprintf("%s/%s (%s; %s)", version.AppName, version.Version, runtime.GOOS, runtime.GOARCH)

// WebhookNotifier posts notifications as JSON to a Slack-compatible webhook
// URL. The channel field is carried in the payload; the webhook decides what
// to do with it.
type WebhookNotifier struct {
	url    string
	client *req.Client
}

type webhookPayload struct {
	Channel  string `json:"channel,omitempty"`
	Text     string `json:"text"`
	Severity string `json:"severity"`
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	client := req.C().
		SetCommonRetryCount(2).
		SetCommonRetryFixedInterval(1 * time.Second).
		SetTimeout(10 * time.Second).
		SetUserAgent(userAgent).
		SetJsonMarshal(json.Marshal).
		SetJsonUnmarshal(json.Unmarshal)

	return &WebhookNotifier{
		url:    url,
		client: client,
	}
}

func (w *WebhookNotifier) Notify(ctx context.Context, channel, message string, severity Severity) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBodyJsonMarshal(&webhookPayload{
			Channel:  channel,
			Text:     message,
			Severity: string(severity),
		}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if resp.IsErrorState() {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}

var _ Notifier = (*WebhookNotifier)(nil)
