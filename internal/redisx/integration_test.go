//go:build integration

package redisx_test

import (
	"context"
	"testing"
	"time"

	"github.com/ariefcatur/go-cart-checkout/internal/logging"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/ariefcatur/go-cart-checkout/internal/redisx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()

	t.Run("idempotency", func(t *testing.T) {
		idem := redisx.NewIdempotency(rdb)

		prior, err := idem.Begin(ctx, "u1", "k1")
		require.NoError(t, err)
		assert.Empty(t, prior)

		_, err = idem.Begin(ctx, "u1", "k1")
		assert.ErrorIs(t, err, redisx.ErrInFlight)

		require.NoError(t, idem.Complete(ctx, "u1", "k1", "order-1"))
		prior, err = idem.Begin(ctx, "u1", "k1")
		require.NoError(t, err)
		assert.Equal(t, "order-1", prior)

		prior, err = idem.Begin(ctx, "u2", "k1")
		require.NoError(t, err)
		assert.Empty(t, prior, "keys are scoped per user")

		require.NoError(t, idem.Abort(ctx, "u2", "k1"))
		prior, err = idem.Begin(ctx, "u2", "k1")
		require.NoError(t, err)
		assert.Empty(t, prior)
	})

	t.Run("orders cache", func(t *testing.T) {
		cache := redisx.NewOrdersCache(rdb, time.Minute)

		_, gen, ok, err := cache.Get(ctx, "u1")
		require.NoError(t, err)
		assert.False(t, ok)

		list := []orders.Order{orders.NewOrder("u1", []orders.OrderLine{{ProductID: "p", Quantity: 1, UnitPriceCents: 5}})}
		require.NoError(t, cache.Set(ctx, "u1", gen, list))
		got, _, ok, err := cache.Get(ctx, "u1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, list[0].TotalCents, got[0].TotalCents)

		require.NoError(t, cache.Invalidate(ctx, "u1"))
		_, next, ok, err := cache.Get(ctx, "u1")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Greater(t, next, gen)

		// a fill that read the ledger before the invalidation lands under the old generation
		require.NoError(t, cache.Set(ctx, "u1", gen, list))
		_, _, ok, err = cache.Get(ctx, "u1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("checkout locks", func(t *testing.T) {
		locks := redisx.NewCheckoutLocks(rdb, logging.Discard())

		unlock, err := locks.TryLock(ctx, "u1")
		require.NoError(t, err)
		_, err = locks.TryLock(ctx, "u1")
		assert.ErrorIs(t, err, orders.ErrCheckoutInProgress)

		other, err := locks.TryLock(ctx, "u2")
		require.NoError(t, err)
		other()

		unlock()
		unlock, err = locks.TryLock(ctx, "u1")
		require.NoError(t, err)

		// once the claim has expired and been taken over, the old holder must not release it
		require.NoError(t, rdb.Set(ctx, "lock:checkout:u1", "someone-else", time.Minute).Err())
		unlock()
		_, err = locks.TryLock(ctx, "u1")
		assert.ErrorIs(t, err, orders.ErrCheckoutInProgress)
	})

	t.Run("sales stats", func(t *testing.T) {
		st := redisx.NewSalesStats(rdb)

		first, err := st.MarkSeen(ctx, "projector", "e1")
		require.NoError(t, err)
		assert.True(t, first)
		again, err := st.MarkSeen(ctx, "projector", "e1")
		require.NoError(t, err)
		assert.False(t, again)

		require.NoError(t, st.Record(ctx, []orders.ItemPrice{{ProductID: "a", Qty: 2, PriceCents: 150}}))
		require.NoError(t, st.Record(ctx, []orders.ItemPrice{{ProductID: "a", Qty: 1, PriceCents: 150}}))

		all, err := st.All(ctx)
		require.NoError(t, err)
		assert.Equal(t, []orders.SalesStat{{ProductID: "a", UnitsSold: 3, RevenueCents: 450, Revenue: "4.50"}}, all)
	})
}
