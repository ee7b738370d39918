package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCacheRequiresClient(t *testing.T) {
	_, err := NewCache(nil)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestGetMissingKey(t *testing.T) {
	client, mock := redismock.NewClientMock()
	defer client.Close()
	c, err := NewCache(client)
	require.NoError(t, err)

	mock.ExpectGet("patients_cache:1").RedisNil()

	val, err := c.Get(context.Background(), "patients_cache:1")
	require.NoError(t, err)
	assert.Empty(t, val)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPropagatesErrors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	defer client.Close()
	c, _ := NewCache(client)

	mock.ExpectGet("k").SetErr(errors.New("connection refused"))

	_, err := c.Get(context.Background(), "k")
	assert.EqualError(t, err, "connection refused")
}

func TestLockLifecycle(t *testing.T) {
	client, mock := redismock.NewClientMock()
	defer client.Close()
	c, _ := NewCache(client)
	ctx := context.Background()

	mock.ExpectSetNX("patient_lock:c1_555", "owner", 10*time.Second).SetVal(true)
	mock.ExpectSetNX("patient_lock:c1_555", "other", 10*time.Second).SetVal(false)
	mock.ExpectEvalSha(releaseLock.Hash(), []string{"patient_lock:c1_555"}, "other").SetVal(int64(0))
	mock.ExpectEvalSha(releaseLock.Hash(), []string{"patient_lock:c1_555"}, "owner").SetVal(int64(1))

	locked, err := c.AcquireLock(ctx, "patient_lock:c1_555", "owner", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, locked)

	locked, err = c.AcquireLock(ctx, "patient_lock:c1_555", "other", 10*time.Second)
	require.NoError(t, err)
	assert.False(t, locked)

	assert.ErrorIs(t, c.ReleaseLock(ctx, "patient_lock:c1_555", "other"), ErrNotLockOwner)
	assert.NoError(t, c.ReleaseLock(ctx, "patient_lock:c1_555", "owner"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteBatchSkipsEmpty(t *testing.T) {
	client, mock := redismock.NewClientMock()
	defer client.Close()
	c, _ := NewCache(client)

	mock.ExpectDel("a", "b").SetVal(2)

	assert.NoError(t, c.DeleteBatch(context.Background()))
	assert.NoError(t, c.DeleteBatch(context.Background(), "a", "b"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func newMiniredisCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	c, err := NewCache(client)
	require.NoError(t, err)
	return c, server
}

func TestDeleteAllMatchesPattern(t *testing.T) {
	c, server := newMiniredisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "session:u1:a", "1", time.Hour))
	require.NoError(t, c.Set(ctx, "session:u1:b", "1", time.Hour))
	require.NoError(t, c.Set(ctx, "session:u2:a", "1", time.Hour))

	require.NoError(t, c.DeleteAll(ctx, "session:u1:*"))

	assert.False(t, server.Exists("session:u1:a"))
	assert.False(t, server.Exists("session:u1:b"))
	assert.True(t, server.Exists("session:u2:a"))
}

func TestIncrKeepsFirstExpiry(t *testing.T) {
	c, server := newMiniredisCache(t)
	ctx := context.Background()

	n, err := c.Incr(ctx, "reset_attempts:a@b.c", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	server.FastForward(30 * time.Second)
	n, err = c.Incr(ctx, "reset_attempts:a@b.c", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 30*time.Second, server.TTL("reset_attempts:a@b.c"))

	server.FastForward(31 * time.Second)
	assert.False(t, server.Exists("reset_attempts:a@b.c"))
}

func TestPublishSubscribe(t *testing.T) {
	c, _ := newMiniredisCache(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := c.Subscribe(ctx, "clinic:c1:changes")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, c.Publish(ctx, "clinic:c1:changes", `{"table":"patients"}`))

	select {
	case msg := <-sub.Channel():
		assert.Equal(t, "clinic:c1:changes", msg.Channel)
		assert.Equal(t, `{"table":"patients"}`, msg.Payload)
	case <-ctx.Done():
		t.Fatal("no message received")
	}
}
