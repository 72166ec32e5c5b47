// Package advice calls the external advice-generation service for short
// natural-language tips.
package advice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/plata-bot/plata/internal/apperr"
	"github.com/plata-bot/plata/pkg/config"
)

const defaultTimeout = 8 * time.Second

// Advisor produces a one-line tip for an alert or question.
type Advisor interface {
	// Tip returns a short tip about the given topic. It never returns an
	// error: on any failure a generic fallback referencing topic is
	// substituted, because an alert must not be suppressed merely because
	// the advice call failed.
	Tip(ctx context.Context, prompt, topic string) string
}

// Client is the HTTP advisor implementation.
type Client struct {
	httpClient *http.Client
	url        string
	token      string
	log        *slog.Logger
}

// NewClient builds an advice client from configuration.
func NewClient(cfg config.AdviceConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        cfg.URL,
		token:      cfg.Token,
		log:        log,
	}
}

type tipRequest struct {
	Prompt string `json:"prompt"`
}

type tipResponse struct {
	Tip string `json:"tip"`
}

// Tip asks the advice service for a tip, falling back to a generic line on
// any failure.
func (c *Client) Tip(ctx context.Context, prompt, topic string) string {
	tip, err := c.call(ctx, prompt)
	if err != nil {
		appErr := apperr.NewAdviceError(err)
		c.log.Warn("advice generation failed, using fallback tip",
			slog.String("code", appErr.Code),
			slog.Any("error", err),
		)
		return FallbackTip(topic)
	}

	return tip
}

func (c *Client) call(ctx context.Context, prompt string) (string, error) {
	if c.url == "" {
		return "", fmt.Errorf("advice service not configured")
	}

	body, err := json.Marshal(tipRequest{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("encode advice request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build advice request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call advice service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("advice service returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read advice response: %w", err)
	}

	var parsed tipResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode advice response: %w", err)
	}

	tip := strings.TrimSpace(parsed.Tip)
	if tip == "" {
		return "", fmt.Errorf("advice service returned empty tip")
	}

	return tip, nil
}

// FallbackTip is the generic tip substituted when advice generation fails.
func FallbackTip(topic string) string {
	if topic == "" {
		return "Revisa tus gastos de este mes y recorta lo que no sea esencial."
	}
	return fmt.Sprintf("Revisa tus gastos en %s y recorta lo que no sea esencial.", topic)
}
