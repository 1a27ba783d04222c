package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/YusovID/onetalk-router/internal/domain"
	"golang.org/x/time/rate"
)

const webhookSource = "onetalk"

type webhookPayload struct {
	Source string      `json:"source"`
	Type   string      `json:"type"`
	Data   webhookData `json:"data"`
}

type webhookData struct {
	domain.Communication
	Outcome string `json:"outcome,omitempty"`
}

type WebhookConfig struct {
	URL     string
	Timeout time.Duration
	// RPS caps outgoing requests per second; zero disables pacing.
	RPS float64
}

// Webhook posts every event as JSON to a business hub endpoint.
type Webhook struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

func NewWebhook(cfg WebhookConfig, log *slog.Logger) *Webhook {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}

	return &Webhook{
		url:     cfg.URL,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		log:     log,
	}
}

func (w *Webhook) Publish(ctx context.Context, event domain.Event) error {
	const op = "internal.notify.Webhook.Publish"

	body, err := json.Marshal(webhookPayload{
		Source: webhookSource,
		Type:   string(event.Type),
		Data:   webhookData{Communication: event.Communication, Outcome: event.Outcome},
	})
	if err != nil {
		return fmt.Errorf("%s: failed to marshal payload: %w", op, err)
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limiter: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: failed to send request: %w", op, err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	w.log.Debug("webhook delivered",
		slog.String("op", op),
		slog.String("type", string(event.Type)),
		slog.String("communication_id", event.Communication.ID),
	)

	return nil
}
