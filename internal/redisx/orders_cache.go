package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/redis/go-redis/v9"
)

// OrdersCache is a cache-aside copy of each user's order list. Entries are keyed by a
// per-user generation: Invalidate bumps it, so a list read before the bump lands under a key
// nobody reads any more.
type OrdersCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewOrdersCache(rdb *redis.Client, ttl time.Duration) *OrdersCache {
	return &OrdersCache{rdb: rdb, ttl: ttl}
}

func genKey(userID string) string { return fmt.Sprintf(KeyUserOrdersGen, userID) }

func listKey(userID string, gen int64) string { return fmt.Sprintf(KeyUserOrders, userID, gen) }

// Get returns the cached list and the generation it was looked up under. Pass gen to Set.
func (c *OrdersCache) Get(ctx context.Context, userID string) (list []orders.Order, gen int64, hit bool, err error) {
	gen, err = c.rdb.Get(ctx, genKey(userID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, err
	}
	b, err := c.rdb.Get(ctx, listKey(userID, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, err
	}
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, gen, false, fmt.Errorf("decode cached orders: %w", err)
	}
	return list, gen, true, nil
}

func (c *OrdersCache) Set(ctx context.Context, userID string, gen int64, list []orders.Order) error {
	b, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, listKey(userID, gen), b, c.ttl).Err()
}

func (c *OrdersCache) Invalidate(ctx context.Context, userID string) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(userID))
		// any list stored under an older generation has expired before the counter resets
		pipe.Expire(ctx, genKey(userID), c.ttl+TTLIdempotency)
		return nil
	})
	return err
}
