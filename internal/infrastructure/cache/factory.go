package cache

import (
	"fmt"

	"github.com/gridpos/backend/internal/domain/shared"
	"github.com/gridpos/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// OpenIdempotencyStore connects the dedup fast path. Redis is
// preferred; when it is unreachable and fallback is allowed, an
// in-process store is used instead. Losing the fast path is safe for
// billing dedup because the payment_events unique index remains
// authoritative.
func OpenIdempotencyStore(cfg config.RedisConfig, allowInMemoryFallback bool, logger *zap.Logger) (shared.IdempotencyStore, error) {
	store, err := NewRedisIdempotencyStore(RedisConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err == nil {
		logger.Info("using Redis idempotency store")
		return store, nil
	}

	if !allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for idempotency but unavailable: %w", err)
	}

	logger.Warn("Redis unavailable, falling back to in-memory idempotency store",
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}
