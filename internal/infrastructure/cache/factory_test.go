package cache

import (
	"context"
	"testing"

	"github.com/condo/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableRedis(env, backend string) *config.Config {
	return &config.Config{
		App:         config.AppConfig{Env: env},
		Redis:       config.RedisConfig{Host: "127.0.0.1", Port: 1},
		Idempotency: config.IdempotencyConfig{Backend: backend},
	}
}

func TestNewIdempotencyStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory backend", func(t *testing.T) {
		store, err := NewIdempotencyStore(ctx, unreachableRedis("development", "memory"), nil)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("redis falls back to memory outside production", func(t *testing.T) {
		store, err := NewIdempotencyStore(ctx, unreachableRedis("development", "redis"), nil)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("redis is required in production", func(t *testing.T) {
		_, err := NewIdempotencyStore(ctx, unreachableRedis("production", "redis"), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis idempotency store unavailable")
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewIdempotencyStore(ctx, unreachableRedis("development", "etcd"), nil)
		require.Error(t, err)
	})
}
