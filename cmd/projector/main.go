package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-cart-checkout/internal/config"
	kafkax "github.com/ariefcatur/go-cart-checkout/internal/kafka"
	"github.com/ariefcatur/go-cart-checkout/internal/logging"
	"github.com/ariefcatur/go-cart-checkout/internal/orders"
	"github.com/ariefcatur/go-cart-checkout/internal/projector"
	"github.com/ariefcatur/go-cart-checkout/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logging.New(cfg.LogLevel).With("service", cfg.ServiceName+"-projector")

	if err := run(cfg, log); err != nil {
		log.Error("projector exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	if !cfg.UsesKafka() {
		return errors.New("KAFKA_BROKERS is required")
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := redisx.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer rdb.Close()

	svc := &projector.Service{
		Stats:       redisx.NewSalesStats(rdb),
		ServiceName: "projector",
		Log:         log,
	}
	cons := kafkax.NewConsumer(log, cfg.KafkaBrokers, cfg.ProjectorGroup, orders.TopicOrderPlaced, cfg.ProjectorWorkers)

	log.Info("projector consuming", "group", cfg.ProjectorGroup, "topic", orders.TopicOrderPlaced, "workers", cfg.ProjectorWorkers)
	return cons.Start(ctx, svc.HandleOrderPlaced)
}
