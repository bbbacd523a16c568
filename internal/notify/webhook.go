package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/lawfirm-intake/pkg/logging"
)

var webhookTracer = otel.Tracer("lawfirm.internal.notify.webhook")

// WebhookChannel posts messages to a chat incoming-webhook URL.
type WebhookChannel struct {
	url        string
	httpClient *http.Client
	logger     *logging.Logger
}

var _ Channel = (*WebhookChannel)(nil)

// NewWebhookChannel returns nil when no URL is configured.
func NewWebhookChannel(url string, httpClient *http.Client, logger *logging.Logger) *WebhookChannel {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookChannel{url: url, httpClient: httpClient, logger: logger}
}

// Send makes one POST; there are no retries.
func (c *WebhookChannel) Send(ctx context.Context, msg Message) error {
	ctx, span := webhookTracer.Start(ctx, "notify.webhook.send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("notify.kind", string(msg.Kind)),
		attribute.String("notify.severity", string(msg.Severity)),
		attribute.String("lead.record_id", msg.RecordID),
	)

	body, err := json.Marshal(map[string]string{"text": msg.Text})
	if err != nil {
		return fmt.Errorf("notify: marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook request failed")
		return fmt.Errorf("notify: webhook request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= 300 {
		span.SetStatus(codes.Error, "webhook rejected")
		return fmt.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// LogChannel writes messages to the log instead of delivering them.
type LogChannel struct {
	logger *logging.Logger
}

var _ Channel = (*LogChannel)(nil)

// NewLogChannel creates a channel for development and tests.
func NewLogChannel(logger *logging.Logger) *LogChannel {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogChannel{logger: logger}
}

// Send logs but doesn't send.
func (c *LogChannel) Send(ctx context.Context, msg Message) error {
	c.logger.Info("log channel: would notify",
		"kind", msg.Kind,
		"severity", msg.Severity,
		"subject", msg.Subject,
		"record_id", msg.RecordID,
	)
	return nil
}
