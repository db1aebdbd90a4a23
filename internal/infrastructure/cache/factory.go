package cache

import (
	"context"
	"fmt"

	"github.com/condo/backend/internal/domain/shared"
	"github.com/condo/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewIdempotencyStore builds the store selected by cfg.Idempotency.Backend.
// The redis backend falls back to memory outside production when Redis is unreachable.
func NewIdempotencyStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (shared.IdempotencyStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Idempotency.Backend {
	case "", "memory":
		logger.Info("Using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	case "redis":
		store, err := NewRedisIdempotencyStore(ctx, cfg.Redis)
		if err == nil {
			logger.Info("Using Redis idempotency store", zap.String("addr", cfg.Redis.Addr()))
			return store, nil
		}
		if cfg.App.Env == "production" {
			return nil, fmt.Errorf("redis idempotency store unavailable: %w", err)
		}
		logger.Warn("Redis unavailable, falling back to in-memory idempotency store", zap.Error(err))
		return NewInMemoryIdempotencyStore(), nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", cfg.Idempotency.Backend)
	}
}
