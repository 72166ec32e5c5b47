package classifier

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

// Request is the classifier contract's input: the raw message plus the
// caller's declared figures and the live category names.
type Request struct {
	Message           string   `json:"message"`
	MonthlyIncome     int64    `json:"monthlyIncome"`
	SavingsGoal       int64    `json:"savingsGoal"`
	ExpenseCategories []string `json:"expenseCategories"`
	IncomeCategories  []string `json:"incomeCategories"`
}

// Classifier produces an intent for a message.
type Classifier interface {
	Classify(ctx context.Context, req Request) Result
}

// Client calls the external classifier over HTTP. Any transport failure,
// empty payload or malformed payload yields the neutral fallback intent;
// classification is never retried and never surfaces as a user error.
type Client struct {
	httpClient *http.Client
	url        string
	token      string
	log        *slog.Logger
}

// NewClient builds a classifier client from configuration.
func NewClient(cfg config.ClassifierConfig, log *slog.Logger) *Client {
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

// Classify sends the message to the classifier and returns its intent, or
// the fallback on any failure.
func (c *Client) Classify(ctx context.Context, req Request) Result {
	result, err := c.call(ctx, req)
	if err != nil {
		appErr := apperr.NewClassifierError(err)
		c.log.Warn("classification failed, using fallback intent",
			slog.String("code", appErr.Code),
			slog.Any("error", err),
		)
		return Fallback()
	}

	return result
}

func (c *Client) call(ctx context.Context, req Request) (Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("encode classifier request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build classifier request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("call classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("read classifier response: %w", err)
	}

	if len(data) == 0 {
		return Result{}, fmt.Errorf("classifier returned empty body")
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("decode classifier response: %w", err)
	}

	if !Known(result.Type) {
		return Result{}, fmt.Errorf("classifier returned unknown intent %q", result.Type)
	}

	return result, nil
}
