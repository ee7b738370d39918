package repositories

import (
	"HealPing/cache"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrAlreadyExists is returned when a unique record is created twice.
var ErrAlreadyExists = errors.New("record already exists")

var ErrLockNotAcquired = errors.New("failed to acquire lock")

var (
	lockRetries    = 3
	lockRetryDelay = 2 * time.Second
	lockTTL        = 10 * time.Second
)

// withLock runs fn while holding the Redis lock key, retrying acquisition a
// bounded number of times.
func withLock(ctx context.Context, c *cache.Cache, key string, fn func() error) error {
	lockValue := uuid.New().String()

	var locked bool
	var err error
	for i := 0; i < lockRetries; i++ {
		locked, err = c.AcquireLock(ctx, key, lockValue, lockTTL)
		if err == nil && locked {
			break
		}
		if i < lockRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(lockRetryDelay):
			}
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLockNotAcquired, err)
	}
	if !locked {
		return ErrLockNotAcquired
	}
	defer func() {
		if err := c.ReleaseLock(ctx, key, lockValue); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to release lock")
		}
	}()

	return fn()
}
