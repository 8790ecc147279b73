// Package payout performs the external transfer step of withdrawals. The
// ledger has already zeroed escrow when a sink runs; an error return means no
// value moved and escrow will be restored.
package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// WebhookSink posts payout instructions to an external processor. Any
// non-2xx response rejects the payout.
type WebhookSink struct {
	url    string
	client *http.Client
}

func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type instruction struct {
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

func (s *WebhookSink) Transfer(ctx context.Context, to string, amount int64) error {
	body, err := json.Marshal(instruction{To: to, Amount: amount})
	if err != nil {
		return fmt.Errorf("marshal payout: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build payout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("payout processor: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("payout processor returned %d", resp.StatusCode)
	}
	return nil
}

// LogSink records payout intents and always succeeds. It stands in when no
// processor is configured, e.g. in development.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Transfer(_ context.Context, to string, amount int64) error {
	s.logger.Info("payout (log sink)", "to", to, "amount", amount)
	return nil
}
