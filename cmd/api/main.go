package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront.git/internal/account"
	"github.com/ariefcatur/go-storefront.git/internal/backend"
	"github.com/ariefcatur/go-storefront.git/internal/cart"
	"github.com/ariefcatur/go-storefront.git/internal/catalog"
	"github.com/ariefcatur/go-storefront.git/internal/checkout"
	"github.com/ariefcatur/go-storefront.git/internal/config"
	"github.com/ariefcatur/go-storefront.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront.git/internal/kafka"
	"github.com/ariefcatur/go-storefront.git/internal/logx"
	"github.com/ariefcatur/go-storefront.git/internal/notify"
	"github.com/ariefcatur/go-storefront.git/internal/orders"
	"github.com/ariefcatur/go-storefront.git/internal/postgres"
	"github.com/ariefcatur/go-storefront.git/internal/redisx"
	"github.com/ariefcatur/go-storefront.git/internal/session"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logx.New(cfg.LogLevel, cfg.ServiceName)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("redis ping", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	// Order history
	var store orders.Store
	switch cfg.OrderHistory {
	case "memory":
		store = orders.NewMemoryStore()
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN, log)
		if err != nil {
			log.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		repo := &orders.Repo{DB: db}
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal("db schema", zap.Error(err))
		}
		store = repo
	}

	// Kafka producers, one per topic
	pCart := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicCartChanged, 1024, log)
	pSession := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicSessionChanged, 256, log)
	pOrder := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 256, log)
	producers := []*kafkax.Producer{pCart, pSession, pOrder}
	for _, p := range producers {
		p.Start(ctx)
	}

	hub := notify.NewHub()
	notifier := notify.Multi{hub, &notify.Kafka{Cart: pCart, Session: pSession, Service: cfg.ServiceName, Instance: cfg.InstanceID}}

	// Other replicas' events into the local hub
	if cfg.FanoutGroup != "" {
		group := kafkax.FanoutGroup(cfg.FanoutGroup, cfg.InstanceID)
		for _, topic := range []string{orders.TopicCartChanged, orders.TopicSessionChanged} {
			cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topic, 1, log, kafkax.FromLatest())
			go func(topic string) {
				if err := cons.Start(ctx, notify.FanIn(hub, cfg.InstanceID, log)); err != nil {
					log.Error("fan-in consumer exit", zap.String("topic", topic), zap.Error(err))
				}
			}(topic)
		}
	}

	api := backend.New(cfg.BackendURL,
		backend.WithLogger(log),
		backend.WithRetries(cfg.BackendRetries),
		backend.WithTimeout(cfg.BackendTimeout),
	)
	sessions := session.NewStore(rdb, cfg.SessionTTL)
	carts := &cart.Service{API: api, Notify: notifier, RDB: rdb, Log: log}

	h := &httpx.Handlers{
		Catalog: &catalog.Service{API: api},
		Cart:    carts,
		Checkout: &checkout.Service{
			Cart:   carts,
			API:    api,
			Orders: store,
			Events: &orders.EventPublisher{Producer: pOrder, Service: cfg.ServiceName},
			RDB:    rdb,
			Log:    log,
		},
		Accounts: &account.Service{
			API:            api,
			Sessions:       sessions,
			Notify:         notifier,
			Regions:        account.DefaultRegions(),
			AllowedDomains: cfg.AllowedEmailDomains,
			Log:            log,
		},
		Sessions:      sessions,
		Orders:        store,
		Hub:           hub,
		Log:           log,
		SecureCookies: cfg.CookieSecure,
	}
	router := httpx.NewRouter()
	h.Register(router)

	// HTTP server
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	// open event streams would otherwise hold Shutdown until its deadline
	srv.RegisterOnShutdown(hub.Close)

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr), zap.String("backend", cfg.BackendURL), zap.String("instance", cfg.InstanceID))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	cancel()
	for _, p := range producers {
		p.Close()
	}
	for _, p := range producers {
		p.WaitClosed()
	}
}
