package proxy

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// WebhookNotifier POSTs to a URL so proxies that do not watch the engine can
// reload their configuration.
type WebhookNotifier struct {
	url    string
	client *retryablehttp.Client
}

// NewWebhookNotifier returns a notifier that POSTs to url, retrying up to
// retries times on connection errors and 5xx responses.
func NewWebhookNotifier(url string, retries int, logger *zap.Logger) *WebhookNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.Logger = leveledLogger{logger.Sugar()}

	return &WebhookNotifier{url: url, client: client}
}

// NotifyRoutingChanged implements Notifier.
func (n *WebhookNotifier) NotifyRoutingChanged(ctx context.Context) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, n.url, nil)
	if err != nil {
		return fmt.Errorf("building proxy webhook request: %w", err)
	}
	req.Header.Set("User-Agent", "wsmongo")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("proxy webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("proxy webhook: unexpected status %s", resp.Status)
	}
	return nil
}

// leveledLogger routes retryablehttp's logging through zap at debug level,
// except errors.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
