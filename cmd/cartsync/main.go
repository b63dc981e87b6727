package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront.git/internal/backend"
	"github.com/ariefcatur/go-storefront.git/internal/cart"
	"github.com/ariefcatur/go-storefront.git/internal/cartsync"
	"github.com/ariefcatur/go-storefront.git/internal/config"
	kafkax "github.com/ariefcatur/go-storefront.git/internal/kafka"
	"github.com/ariefcatur/go-storefront.git/internal/logx"
	"github.com/ariefcatur/go-storefront.git/internal/orders"
	"github.com/ariefcatur/go-storefront.git/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	service := cfg.ServiceName + "-cartsync"
	log := logx.New(cfg.LogLevel, service)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("redis ping", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	api := backend.New(cfg.BackendURL,
		backend.WithLogger(log),
		backend.WithRetries(cfg.BackendRetries),
		backend.WithTimeout(cfg.BackendTimeout),
	)

	svc := &cartsync.Service{
		Cart:        &cart.Service{API: api, RDB: rdb, Log: log},
		Redis:       rdb,
		ServiceName: service,
		Log:         log,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.CartSyncGroup, orders.TopicCartChanged, cfg.CartSyncWorkers, log)
	log.Info("cartsync consumer started",
		zap.String("group", cfg.CartSyncGroup),
		zap.String("topic", orders.TopicCartChanged),
		zap.Int("workers", cfg.CartSyncWorkers))

	if err := cons.Start(ctx, svc.HandleCartChanged); err != nil {
		log.Error("consumer exit", zap.Error(err))
		os.Exit(1)
	}
	log.Info("cartsync stopped")
}
