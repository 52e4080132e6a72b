// Package notify delivers escalation events to the human hand-off workflow.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/EmonKarmaker/ai-support-system/internal/domain"
	"github.com/EmonKarmaker/ai-support-system/internal/port"
)

// Webhook posts escalation events as JSON to a workflow webhook such as n8n.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (w *Webhook) Notify(ctx context.Context, event domain.EscalationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return &port.ProviderError{Provider: "webhook", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return &port.ProviderError{Provider: "webhook", StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}

// LogNotifier records escalation events in the log. It is used when no
// webhook is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, event domain.EscalationEvent) error {
	n.logger.Info("escalation raised",
		zap.String("ticket_id", event.TicketID),
		zap.String("session_id", event.SessionID),
		zap.String("reason", string(event.Reason)),
		zap.Bool("has_contact", event.UserContact != ""),
	)
	return nil
}
