package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/apperror"
	"github.com/fekuna/omnipos-checkout-service/internal/checkout/dto"
	"github.com/fekuna/omnipos-checkout-service/pkg/cache"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pendingMarker = "pending"

// idempotency remembers which order an Idempotency-Key produced. While a
// checkout runs the key holds pendingMarker; afterwards it holds the order id.
type idempotency struct {
	cache      *cache.RedisClient
	ttl        time.Duration
	pendingTTL time.Duration
}

func idempotencyKey(owner, key string) string {
	return fmt.Sprintf("checkout:idem:%s:%s", owner, key)
}

// claim reserves key for a new checkout. When the key already finished it
// returns the order id it produced with claimed false.
func (i *idempotency) claim(ctx context.Context, owner, key string) (orderID string, claimed bool, err error) {
	k := idempotencyKey(owner, key)

	ok, err := i.cache.AcquireLock(ctx, k, pendingMarker, i.pendingTTL)
	if err != nil {
		return "", false, apperror.NewTransient(fmt.Errorf("claim idempotency key: %w", err))
	}
	if ok {
		return "", true, nil
	}

	val, err := i.cache.Client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// Released between SETNX and GET; the caller may try again.
		return "", false, apperror.ErrCheckoutInProgress
	}
	if err != nil {
		return "", false, apperror.NewTransient(fmt.Errorf("read idempotency key: %w", err))
	}
	if val == pendingMarker {
		return "", false, apperror.ErrCheckoutInProgress
	}
	return val, false, nil
}

// finish records the order on success and frees the key on failure so the
// client can retry with the same key.
func (i *idempotency) finish(ctx context.Context, owner, key string, summary *dto.OrderSummary, err error, log logger.ZapLogger) {
	k := idempotencyKey(owner, key)

	if err != nil || summary == nil {
		if relErr := i.cache.ReleaseLock(ctx, k, pendingMarker); relErr != nil {
			log.Error("Failed to release idempotency key", zap.String("key", k), zap.Error(relErr))
		}
		return
	}

	if setErr := i.cache.Client.Set(ctx, k, summary.OrderID, i.ttl).Err(); setErr != nil {
		log.Error("Failed to store idempotency result", zap.String("key", k), zap.Error(setErr))
	}
}
