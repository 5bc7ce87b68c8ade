package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-cart-checkout/internal/cart"
	"github.com/ariefcatur/go-cart-checkout/internal/catalog"
	"github.com/ariefcatur/go-cart-checkout/internal/checkout"
	"github.com/ariefcatur/go-cart-checkout/internal/config"
	"github.com/ariefcatur/go-cart-checkout/internal/httpx"
	kafkax "github.com/ariefcatur/go-cart-checkout/internal/kafka"
	"github.com/ariefcatur/go-cart-checkout/internal/ledger"
	"github.com/ariefcatur/go-cart-checkout/internal/logging"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/ariefcatur/go-cart-checkout/internal/postgres"
	"github.com/ariefcatur/go-cart-checkout/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type catalogStore interface {
	orders.Catalog
	catalog.Seeder
}

type stores struct {
	carts   orders.CartStore
	catalog catalogStore
	ledger  orders.Ledger
	locks   orders.CheckoutLocker
	rdb     *redis.Client
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)

	if err := run(cfg, log); err != nil {
		log.Error("api exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, closeStores, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStores()

	if cfg.CatalogSeed != "" {
		if err := seedCatalog(ctx, cfg.CatalogSeed, st.catalog, log); err != nil {
			return err
		}
	}

	var (
		events orders.EventPublisher = orders.NopPublisher{}
		prod   *kafkax.Producer
	)
	if cfg.UsesKafka() {
		prod = kafkax.NewProducer(log, cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024)
		prod.Start()
		events = &kafkax.OrderEvents{Producer: prod, Service: cfg.ServiceName}
	}

	auth := httpx.NewAuth(cfg.JWTSecret, log)
	ch := &httpx.CartHandler{Carts: st.carts, Catalog: st.catalog, Log: log}
	oh := &httpx.OrdersHandler{
		Checkout: checkout.NewCoordinator(log, st.carts, st.catalog, st.ledger, events, st.locks),
		Ledger:   st.ledger,
		Auth:     auth,
		Log:      log,
	}
	if cfg.UsesRedis() {
		oh.Idempotency = redisx.NewIdempotency(st.rdb)
		oh.Cache = redisx.NewOrdersCache(st.rdb, cfg.OrdersCacheTTL)
		// the Redis projection is only fed when the projector is consuming
		if cfg.UsesKafka() {
			oh.Stats = redisx.NewSalesStats(st.rdb)
		}
	}

	router := httpx.NewRouter(log)
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware)
		ch.Register(r)
		oh.Register(r)
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http listening", "addr", cfg.HTTPAddr, "store", cfg.Store, "kafka", cfg.UsesKafka())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(sctx)
		if prod != nil {
			prod.Close()
			prod.WaitClosed()
		}
		return err
	})
	return g.Wait()
}

func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (stores, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		return stores{
			carts:   cart.NewMemory(),
			catalog: catalog.NewMemory(),
			ledger:  ledger.NewMemory(),
		}, func() {}, nil

	case config.StorePostgres:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return stores{}, nil, fmt.Errorf("db connect: %w", err)
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return stores{}, nil, err
		}
		rdb, err := redisx.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			db.Close()
			return stores{}, nil, err
		}
		return stores{
				carts:   cart.NewRedis(rdb, cfg.CartTTL),
				catalog: catalog.NewPostgres(db),
				ledger:  ledger.NewPostgres(db),
				locks:   redisx.NewCheckoutLocks(rdb, log),
				rdb:     rdb,
			}, func() {
				_ = rdb.Close()
				db.Close()
			}, nil
	}
	return stores{}, nil, fmt.Errorf("unknown STORE %q", cfg.Store)
}

func seedCatalog(ctx context.Context, path string, dst catalog.Seeder, log *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open catalog seed: %w", err)
	}
	defer f.Close()

	ps, err := catalog.LoadSeed(ctx, f, dst)
	if err != nil {
		return fmt.Errorf("load catalog seed %s: %w", path, err)
	}
	log.Info("catalog seeded", "path", path, "products", len(ps))
	return nil
}
