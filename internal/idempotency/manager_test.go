package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T) (Manager, Store) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, testLogger())
	return NewManager(store, testLogger()), store
}

func TestExecute_RunsOperationOnce(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	calls := 0
	op := func(context.Context) (interface{}, error) {
		calls++
		return map[string]int{"created": 3}, nil
	}

	first, err := m.Execute(ctx, "batch:2025-03-15", time.Hour, op)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := m.Execute(ctx, "batch:2025-03-15", time.Hour, op)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, calls, "a recorded key must not re-run the operation")
}

func TestExecute_DistinctKeysDoNotShareResults(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	calls := 0
	op := func(context.Context) (interface{}, error) {
		calls++
		return calls, nil
	}

	_, err := m.Execute(ctx, "batch:day-1", time.Hour, op)
	require.NoError(t, err)
	_, err = m.Execute(ctx, "batch:day-2", time.Hour, op)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestExecute_FailureLeavesNoRecord(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	boom := errors.New("downstream unavailable")
	calls := 0

	_, err := m.Execute(ctx, "batch:flaky", time.Hour, func(context.Context) (interface{}, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return "ok", nil
	})
	assert.ErrorIs(t, err, boom)

	// A failed run must stay retryable.
	result, err := m.Execute(ctx, "batch:flaky", time.Hour, func(context.Context) (interface{}, error) {
		calls++
		return "ok", nil
	})
	assert.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, "ok", result.Response)
	assert.Equal(t, 2, calls)
}

func TestExecute_ProcessingKeyIsReported(t *testing.T) {
	m, store := newTestManager(t)
	ctx := context.Background()

	locked, err := store.Lock(ctx, "batch:busy", time.Minute)
	require.NoError(t, err)
	require.True(t, locked)
	require.NoError(t, store.Set(ctx, "batch:busy", &Record{Status: StatusProcessing}, time.Minute))

	_, err = m.Execute(ctx, "batch:busy", time.Hour, func(context.Context) (interface{}, error) {
		return "never", nil
	})

	assert.ErrorIs(t, err, ErrRequestInProgress)
}

func TestExecute_NilOperation(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Execute(context.Background(), "batch:nil", time.Hour, nil)

	assert.Error(t, err)
}
