package pending

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	incomeWindowKeyPattern = "user:income_prompt:%s"
	incomeWindowTTL        = 5 * time.Minute
)

// IncomeWindow tracks the short reply window after an income re-estimation
// prompt. The stored value is the proposed average; once the TTL lapses the
// prompt is simply no longer answerable.
type IncomeWindow struct {
	client *redis.Client
}

// NewIncomeWindow builds the Redis-backed prompt window.
func NewIncomeWindow(client *redis.Client) *IncomeWindow {
	return &IncomeWindow{client: client}
}

// Open records that the prompt was sent, remembering the proposed average.
func (w *IncomeWindow) Open(ctx context.Context, phone string, average int64) error {
	key := fmt.Sprintf(incomeWindowKeyPattern, phone)
	if err := w.client.Set(ctx, key, strconv.FormatInt(average, 10), incomeWindowTTL).Err(); err != nil {
		return fmt.Errorf("open income window: %w", err)
	}
	return nil
}

// Get returns the proposed average and whether the window is still open.
func (w *IncomeWindow) Get(ctx context.Context, phone string) (int64, bool, error) {
	key := fmt.Sprintf(incomeWindowKeyPattern, phone)
	value, err := w.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read income window: %w", err)
	}

	average, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("decode income window: %w", err)
	}

	return average, true, nil
}

// Close discards the window after the user answered.
func (w *IncomeWindow) Close(ctx context.Context, phone string) error {
	key := fmt.Sprintf(incomeWindowKeyPattern, phone)
	if err := w.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("close income window: %w", err)
	}
	return nil
}
