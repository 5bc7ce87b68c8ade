//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ariefcatur/go-cart-checkout/internal/catalog"
	"github.com/ariefcatur/go-cart-checkout/internal/ledger"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/ariefcatur/go-cart-checkout/internal/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("shop"),
		tcpostgres.WithUsername("app"),
		tcpostgres.WithPassword("secret"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := postgres.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, postgres.Migrate(ctx, db))
	require.NoError(t, postgres.Migrate(ctx, db), "migrations must be re-runnable")
	return db
}

func TestPostgres(t *testing.T) {
	db := startDB(t)
	ctx := context.Background()
	cat := catalog.NewPostgres(db)
	led := ledger.NewPostgres(db)

	t.Run("reserve and release", func(t *testing.T) {
		require.NoError(t, cat.Put(ctx, orders.Product{ID: "rr", Name: "Mug", PriceCents: 500, Stock: 3}))

		p, err := cat.Reserve(ctx, "rr", 2)
		require.NoError(t, err)
		assert.Equal(t, 1, p.Stock)
		assert.Equal(t, int64(500), p.PriceCents)

		_, err = cat.Reserve(ctx, "rr", 2)
		var short *orders.InsufficientStockError
		require.True(t, errors.As(err, &short))
		assert.Equal(t, 1, short.Available)

		_, err = cat.Reserve(ctx, "missing", 1)
		assert.ErrorIs(t, err, orders.ErrProductNotFound)

		require.NoError(t, cat.Release(ctx, "rr", 2))
		p, err = cat.Lookup(ctx, "rr")
		require.NoError(t, err)
		assert.Equal(t, 3, p.Stock)
	})

	t.Run("no oversell under contention", func(t *testing.T) {
		require.NoError(t, cat.Put(ctx, orders.Product{ID: "hot", Name: "Lamp", PriceCents: 100, Stock: 5}))

		var (
			wg sync.WaitGroup
			ok atomic.Int32
		)
		for i := 0; i < 40; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := cat.Reserve(ctx, "hot", 1); err == nil {
					ok.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(5), ok.Load())
		p, err := cat.Lookup(ctx, "hot")
		require.NoError(t, err)
		assert.Zero(t, p.Stock)
	})

	t.Run("ledger append and find", func(t *testing.T) {
		first, err := led.Append(ctx, orders.NewOrder("u1", []orders.OrderLine{
			{ProductID: "rr", Name: "Mug", Quantity: 2, UnitPriceCents: 500},
			{ProductID: "hot", Name: "Lamp", Quantity: 1, UnitPriceCents: 100},
		}))
		require.NoError(t, err)
		assert.NotEmpty(t, first.ID)
		assert.False(t, first.CreatedAt.IsZero())

		second, err := led.Append(ctx, orders.NewOrder("u1", []orders.OrderLine{
			{ProductID: "rr", Name: "Mug", Quantity: 1, UnitPriceCents: 500},
		}))
		require.NoError(t, err)

		got, err := led.FindByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, first.Lines, got.Lines)
		assert.Equal(t, int64(1100), got.TotalCents)

		mine, err := led.FindByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, second.ID, mine[0].ID)

		_, err = led.FindByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, orders.ErrOrderNotFound)

		_, err = led.Append(ctx, orders.Order{UserID: "u1"})
		assert.True(t, orders.IsValidation(err))
	})
}
