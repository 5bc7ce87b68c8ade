package redisx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still carries our token, so an expired claim
// taken over by another instance is never released by the old holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// CheckoutLocks is a CheckoutLocker shared by every API instance.
type CheckoutLocks struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewCheckoutLocks(rdb *redis.Client, log *slog.Logger) *CheckoutLocks {
	return &CheckoutLocks{rdb: rdb, ttl: TTLCheckoutLock, log: log}
}

func (l *CheckoutLocks) TryLock(ctx context.Context, userID string) (func(), error) {
	k := fmt.Sprintf(KeyCheckoutLock, userID)
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, k, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("claim checkout lock: %w", err)
	}
	if !ok {
		return nil, orders.ErrCheckoutInProgress
	}
	return func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.rdb, []string{k}, token).Err(); err != nil {
			l.log.Warn("release checkout lock failed", "user_id", userID, "err", err)
		}
	}, nil
}
