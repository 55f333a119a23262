package locks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/teamseats/pkg/accounts"
)

func setupGuard(t *testing.T, ttl time.Duration) (*RedisGuard, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisGuard(client, ttl, nil), mr
}

func TestRedisGuard_Acquire(t *testing.T) {
	ctx := context.Background()

	t.Run("second holder is rejected until release", func(t *testing.T) {
		guard, mr := setupGuard(t, time.Minute)
		subID := uuid.New()

		release, err := guard.Acquire(ctx, subID)
		require.NoError(t, err)
		assert.True(t, mr.Exists(keyPrefix+subID.String()))

		_, err = guard.Acquire(ctx, subID)
		assert.True(t, errors.Is(err, accounts.ErrMutationInProgress))
		assert.True(t, errors.Is(err, accounts.ErrInvariantViolation))

		release()
		assert.False(t, mr.Exists(keyPrefix+subID.String()))

		release2, err := guard.Acquire(ctx, subID)
		require.NoError(t, err)
		release2()
	})

	t.Run("subscriptions are independent", func(t *testing.T) {
		guard, _ := setupGuard(t, time.Minute)

		r1, err := guard.Acquire(ctx, uuid.New())
		require.NoError(t, err)
		defer r1()

		r2, err := guard.Acquire(ctx, uuid.New())
		require.NoError(t, err)
		defer r2()
	})

	t.Run("expired lock can be retaken and stale release keeps the new holder", func(t *testing.T) {
		guard, mr := setupGuard(t, time.Second)
		subID := uuid.New()

		stale, err := guard.Acquire(ctx, subID)
		require.NoError(t, err)

		mr.FastForward(2 * time.Second)

		fresh, err := guard.Acquire(ctx, subID)
		require.NoError(t, err)

		stale()
		assert.True(t, mr.Exists(keyPrefix+subID.String()), "stale release must not delete the new holder's key")

		fresh()
		assert.False(t, mr.Exists(keyPrefix+subID.String()))
	})

	t.Run("redis unavailable", func(t *testing.T) {
		guard, mr := setupGuard(t, time.Minute)
		mr.Close()

		_, err := guard.Acquire(ctx, uuid.New())
		require.Error(t, err)
		assert.False(t, errors.Is(err, accounts.ErrMutationInProgress))
	})
}

func TestRedisGuard_DefaultTTL(t *testing.T) {
	guard := NewRedisGuard(nil, 0, nil)
	assert.Equal(t, DefaultTTL, guard.ttl)
}

func TestOpenRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := OpenRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer client.Close()

	_, err = OpenRedis(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestNoopGuard(t *testing.T) {
	g := OrNoop(nil)
	release, err := g.Acquire(context.Background(), uuid.New())
	require.NoError(t, err)
	release()

	redisGuard := NewRedisGuard(nil, 0, nil)
	assert.Equal(t, MutationGuard(redisGuard), OrNoop(redisGuard))
}
