package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/ariefcatur/go-cart-checkout/internal/redisx"
	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 20

var ErrContention = errors.New("cart update contention")

// RedisStore keeps each cart as one JSON value. Mutations run inside WATCH/MULTI, so an
// interleaved write on the same cart aborts and retries instead of being lost.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func key(userID string) string { return fmt.Sprintf(redisx.KeyCart, userID) }

func decodeLines(b []byte) ([]orders.CartLine, error) {
	var lines []orders.CartLine
	if len(b) == 0 {
		return lines, nil
	}
	if err := json.Unmarshal(b, &lines); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return lines, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readLines(ctx context.Context, c getter, k string) ([]orders.CartLine, error) {
	b, err := c.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeLines(b)
}

func (s *RedisStore) Get(ctx context.Context, userID string) (orders.Cart, error) {
	if err := validateUser(userID); err != nil {
		return orders.Cart{}, err
	}
	lines, err := readLines(ctx, s.rdb, key(userID))
	if err != nil {
		return orders.Cart{}, err
	}
	return snapshot(userID, lines), nil
}

func (s *RedisStore) mutate(ctx context.Context, userID string, fn func([]orders.CartLine) ([]orders.CartLine, error)) (orders.Cart, error) {
	k := key(userID)
	var result []orders.CartLine

	txf := func(tx *redis.Tx) error {
		lines, err := readLines(ctx, tx, k)
		if err != nil {
			return err
		}
		if lines, err = fn(lines); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(lines) == 0 {
				pipe.Del(ctx, k)
				return nil
			}
			b, err := json.Marshal(lines)
			if err != nil {
				return err
			}
			pipe.Set(ctx, k, b, s.ttl)
			return nil
		})
		if err == nil {
			result = lines
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, k)
		if err == nil {
			return snapshot(userID, result), nil
		}
		if orders.IsValidation(err) {
			return orders.Cart{}, err
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return orders.Cart{}, fmt.Errorf("update cart %s: %w", userID, err)
		}
	}
	return orders.Cart{}, ErrContention
}

func (s *RedisStore) AddLine(ctx context.Context, userID, productID string, qty int) (orders.Cart, error) {
	if err := validateAdd(userID, productID, qty); err != nil {
		return orders.Cart{}, err
	}
	return s.mutate(ctx, userID, func(l []orders.CartLine) ([]orders.CartLine, error) {
		return addLine(l, productID, qty)
	})
}

func (s *RedisStore) SetQuantity(ctx context.Context, userID, productID string, qty int) (orders.Cart, error) {
	if err := validateUser(userID); err != nil {
		return orders.Cart{}, err
	}
	if productID == "" {
		return orders.Cart{}, orders.NewValidationError("productId", "is required")
	}
	return s.mutate(ctx, userID, func(l []orders.CartLine) ([]orders.CartLine, error) {
		return setQuantity(l, productID, qty)
	})
}

func (s *RedisStore) RemoveLine(ctx context.Context, userID, productID string) (orders.Cart, error) {
	if err := validateUser(userID); err != nil {
		return orders.Cart{}, err
	}
	return s.mutate(ctx, userID, func(l []orders.CartLine) ([]orders.CartLine, error) {
		return removeLine(l, productID), nil
	})
}

func (s *RedisStore) Deduct(ctx context.Context, userID string, lines []orders.CartLine) (orders.Cart, error) {
	if err := validateUser(userID); err != nil {
		return orders.Cart{}, err
	}
	return s.mutate(ctx, userID, func(l []orders.CartLine) ([]orders.CartLine, error) {
		return deductLines(l, lines), nil
	})
}

// Clear is a single DEL, which is atomic on its own.
func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	if err := validateUser(userID); err != nil {
		return err
	}
	return s.rdb.Del(ctx, key(userID)).Err()
}
