package pending

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLock_AcquireAndRelease(t *testing.T) {
	client, _ := setupTestRedis(t)
	lock := NewLock(client, testLogger())

	release, err := lock.Acquire(context.Background(), "+573001112233")
	assert.NoError(t, err)
	assert.NotNil(t, release)

	release()

	// After release the lock is free again.
	release2, err := lock.Acquire(context.Background(), "+573001112233")
	assert.NoError(t, err)
	release2()
}

func TestLock_SecondAcquireBlocksUntilTimeout(t *testing.T) {
	client, _ := setupTestRedis(t)
	lock := NewLock(client, testLogger())

	release, err := lock.Acquire(context.Background(), "+573001112233")
	assert.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	_, err = lock.Acquire(ctx, "+573001112233")
	assert.ErrorIs(t, err, ErrLocked)
}

func TestLock_DifferentPhonesAreIndependent(t *testing.T) {
	client, _ := setupTestRedis(t)
	lock := NewLock(client, testLogger())

	release1, err := lock.Acquire(context.Background(), "+573001112233")
	assert.NoError(t, err)
	defer release1()

	release2, err := lock.Acquire(context.Background(), "+573004445566")
	assert.NoError(t, err)
	defer release2()
}
