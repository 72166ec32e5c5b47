package pending

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPattern = "user:lock:%s"
	lockTTL        = 15 * time.Second
	lockRetryDelay = 100 * time.Millisecond
)

// ErrLocked indicates that another message from the same user is being
// handled right now.
var ErrLocked = errors.New("user handling is locked, try again later")

// Lock serializes message handling per phone number. Two messages from the
// same user arriving close together must not both observe the pre-update
// pending action, so only one handler runs at a time per user.
type Lock struct {
	client *redis.Client
	log    *slog.Logger
}

// NewLock creates a Redis-backed per-user lock.
func NewLock(client *redis.Client, log *slog.Logger) *Lock {
	if log == nil {
		log = slog.Default()
	}

	return &Lock{client: client, log: log}
}

// Acquire takes the lock for the phone number, waiting until ctx expires.
// The returned release function is safe to call once.
func (l *Lock) Acquire(ctx context.Context, phone string) (func(), error) {
	key := fmt.Sprintf(lockKeyPattern, phone)

	for {
		acquired, err := l.client.SetNX(ctx, key, 1, lockTTL).Result()
		if err != nil {
			l.log.Error("failed to acquire user lock", "phone", phone, "error", err)
			return nil, err
		}

		if acquired {
			return func() { l.release(phone, key) }, nil
		}

		select {
		case <-ctx.Done():
			l.log.Warn("gave up waiting for user lock", "phone", phone)
			return nil, ErrLocked
		case <-time.After(lockRetryDelay):
		}
	}
}

func (l *Lock) release(phone, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := l.client.Del(ctx, key).Err(); err != nil {
		l.log.Error("failed to release user lock", "phone", phone, "error", err)
	}
}
