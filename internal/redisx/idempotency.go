package redisx

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const pendingMarker = "pending"

var ErrInFlight = errors.New("request with this idempotency key is in progress")

// Idempotency remembers which order a (user, key) pair produced.
type Idempotency struct {
	rdb *redis.Client
}

func NewIdempotency(rdb *redis.Client) *Idempotency { return &Idempotency{rdb: rdb} }

func idemKey(userID, key string) string { return fmt.Sprintf(KeyIdemOrderCreate, userID, key) }

// Begin claims the key. It returns the stored order id when the key was already completed,
// and ErrInFlight when another request holds it.
func (s *Idempotency) Begin(ctx context.Context, userID, key string) (orderID string, err error) {
	k := idemKey(userID, key)
	ok, err := s.rdb.SetNX(ctx, k, pendingMarker, TTLPending).Result()
	if err != nil {
		return "", err
	}
	if ok {
		return "", nil
	}
	v, err := s.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; the caller may retry
		return "", ErrInFlight
	}
	if err != nil {
		return "", err
	}
	if v == pendingMarker {
		return "", ErrInFlight
	}
	return v, nil
}

func (s *Idempotency) Complete(ctx context.Context, userID, key, orderID string) error {
	return s.rdb.Set(ctx, idemKey(userID, key), orderID, TTLIdempotency).Err()
}

// Abort frees the key so a failed attempt can be retried with it.
func (s *Idempotency) Abort(ctx context.Context, userID, key string) error {
	return s.rdb.Del(ctx, idemKey(userID, key)).Err()
}
