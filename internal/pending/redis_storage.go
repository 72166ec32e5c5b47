package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	actionKeyPattern = "user:pending:%s"
	actionTTL        = 24 * time.Hour
)

// RedisStorage persists pending actions in Redis.
//
// The TTL doubles as an implicit expiration on stale conversational context:
// a pending action nobody answers for a day silently evaporates.
type RedisStorage struct {
	client *redis.Client
	log    *slog.Logger
}

// NewRedisStorage initializes a Redis-backed Storage implementation.
func NewRedisStorage(client *redis.Client, log *slog.Logger) *RedisStorage {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStorage{
		client: client,
		log:    log,
	}
}

// Get returns the stored pending action or ErrNotFound when absent.
func (s *RedisStorage) Get(ctx context.Context, phone string) (Action, error) {
	data, err := s.client.Get(ctx, actionKey(phone)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return None(), ErrNotFound
		}

		s.log.Error("failed to get pending action from redis", "phone", phone, "error", err)
		return None(), err
	}

	var action Action
	if err := json.Unmarshal([]byte(data), &action); err != nil {
		s.log.Error("failed to decode pending action", "phone", phone, "error", err)
		return None(), err
	}

	return action, nil
}

// Set saves the pending action, replacing any previous one.
func (s *RedisStorage) Set(ctx context.Context, phone string, action Action) error {
	action.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(action)
	if err != nil {
		s.log.Error("failed to encode pending action", "phone", phone, "error", err)
		return err
	}

	if err := s.client.Set(ctx, actionKey(phone), data, actionTTL).Err(); err != nil {
		s.log.Error("failed to save pending action in redis", "phone", phone, "error", err)
		return err
	}

	return nil
}

// Clear removes the stored pending action for the given phone number.
func (s *RedisStorage) Clear(ctx context.Context, phone string) error {
	if err := s.client.Del(ctx, actionKey(phone)).Err(); err != nil {
		s.log.Error("failed to clear pending action", "phone", phone, "error", err)
		return err
	}

	return nil
}

func actionKey(phone string) string {
	return fmt.Sprintf(actionKeyPattern, phone)
}
