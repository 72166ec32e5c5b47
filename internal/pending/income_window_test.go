package pending

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIncomeWindow_OpenGetClose(t *testing.T) {
	client, _ := setupTestRedis(t)
	window := NewIncomeWindow(client)
	ctx := context.Background()

	average, open, err := window.Get(ctx, "+573001112233")
	assert.NoError(t, err)
	assert.False(t, open)
	assert.Zero(t, average)

	assert.NoError(t, window.Open(ctx, "+573001112233", 650000))

	average, open, err = window.Get(ctx, "+573001112233")
	assert.NoError(t, err)
	assert.True(t, open)
	assert.Equal(t, int64(650000), average)

	assert.NoError(t, window.Close(ctx, "+573001112233"))

	_, open, err = window.Get(ctx, "+573001112233")
	assert.NoError(t, err)
	assert.False(t, open)
}

func TestIncomeWindow_Expires(t *testing.T) {
	client, mr := setupTestRedis(t)
	window := NewIncomeWindow(client)
	ctx := context.Background()

	assert.NoError(t, window.Open(ctx, "+573001112233", 650000))

	mr.FastForward(incomeWindowTTL + time.Second)

	_, open, err := window.Get(ctx, "+573001112233")
	assert.NoError(t, err)
	assert.False(t, open)
}
