// Package notify delivers outbound messages through the external gateway.
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

	"github.com/plata-bot/plata/internal/apperr"
	"github.com/plata-bot/plata/pkg/config"
)

const defaultTimeout = 10 * time.Second

// Notifier sends a message to a phone number.
type Notifier interface {
	Send(ctx context.Context, phone, text string) error
}

// GatewayClient delivers messages via the gateway's HTTP API.
type GatewayClient struct {
	httpClient *http.Client
	url        string
	token      string
	log        *slog.Logger
}

// NewGatewayClient builds a gateway delivery client from configuration.
func NewGatewayClient(cfg config.GatewayConfig, log *slog.Logger) *GatewayClient {
	if log == nil {
		log = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &GatewayClient{
		httpClient: &http.Client{Timeout: timeout},
		url:        cfg.SendURL,
		token:      cfg.Token,
		log:        log,
	}
}

type sendRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// Send delivers one message. Errors are returned for logging but callers
// never roll back state because of them.
func (c *GatewayClient) Send(ctx context.Context, phone, text string) error {
	body, err := json.Marshal(sendRequest{To: phone, Body: text})
	if err != nil {
		return fmt.Errorf("encode send request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("call gateway: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	return nil
}

// BestEffort wraps a Notifier so delivery failures are logged and dropped.
// Outbound delivery is fire-and-forget with respect to the triggering
// request: a failure never affects persisted state.
type BestEffort struct {
	next Notifier
	log  *slog.Logger
}

// NewBestEffort builds the fire-and-forget wrapper.
func NewBestEffort(next Notifier, log *slog.Logger) *BestEffort {
	if log == nil {
		log = slog.Default()
	}

	return &BestEffort{next: next, log: log}
}

// Send delivers the message, swallowing any failure after logging it.
func (b *BestEffort) Send(ctx context.Context, phone, text string) error {
	if err := b.next.Send(ctx, phone, text); err != nil {
		appErr := apperr.NewDeliveryError(err)
		b.log.Error("outbound delivery failed",
			slog.String("code", appErr.Code),
			slog.String("phone", phone),
			slog.Any("error", err),
		)
	}

	return nil
}
