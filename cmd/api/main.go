package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/01moynul/taptosell-commerce/internal/auth"
	"github.com/01moynul/taptosell-commerce/internal/cart"
	"github.com/01moynul/taptosell-commerce/internal/catalog"
	"github.com/01moynul/taptosell-commerce/internal/checkout"
	"github.com/01moynul/taptosell-commerce/internal/config"
	"github.com/01moynul/taptosell-commerce/internal/database"
	"github.com/01moynul/taptosell-commerce/internal/events"
	"github.com/01moynul/taptosell-commerce/internal/handlers"
	"github.com/01moynul/taptosell-commerce/internal/inventory"
	"github.com/01moynul/taptosell-commerce/internal/locker"
	"github.com/01moynul/taptosell-commerce/internal/logger"
	"github.com/01moynul/taptosell-commerce/internal/metrics"
	"github.com/01moynul/taptosell-commerce/internal/middleware"
	"github.com/01moynul/taptosell-commerce/internal/orders"
	"github.com/01moynul/taptosell-commerce/internal/routes"
	"github.com/01moynul/taptosell-commerce/internal/store"
	"github.com/01moynul/taptosell-commerce/internal/store/memstore"
	"github.com/01moynul/taptosell-commerce/internal/store/mongostore"
	"github.com/01moynul/taptosell-commerce/internal/users"
	"github.com/01moynul/taptosell-commerce/internal/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("err", err))
		os.Exit(1)
	}
}

func run() error {
	// 0. --- Configuration (.env + environment) ---
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, logCloser, err := logger.New(logger.Options{
		Service:   "commerce-api",
		Env:       cfg.AppEnv,
		Level:     cfg.LogLevel,
		AddSource: cfg.IsDev(),
		File:      cfg.LogFile,
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()

	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. --- Store ---
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			log.Warn("store close failed", slog.Any("err", err))
		}
	}()

	// 2. --- Checkout lock, shared across instances when Redis is configured ---
	var lk locker.Locker = locker.NewLocal()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		lk = locker.NewRedis(rdb, cfg.CheckoutTimeout*2, log)
		log.Info("checkout lock backed by redis", slog.String("addr", cfg.RedisAddr))
	}

	// 3. --- Order events ---
	var pub events.Publisher = events.NewLogPublisher(log)
	if len(cfg.KafkaBrokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic, log)
		log.Info("order events go to kafka", slog.String("topic", cfg.KafkaOrderTopic))
	}
	defer pub.Close()

	// 4. --- Services ---
	m := metrics.New()
	ledger := inventory.NewLedger(log)

	secret := cfg.JWTSecret
	if secret == "" {
		// Only reachable in dev; tokens die with the process.
		secret = uuid.NewString()
		log.Warn("JWT_SECRET not set, using a throwaway secret")
	}
	tokens := auth.NewTokens(secret, cfg.JWTTTL)

	app := &handlers.Handlers{
		Carts: cart.NewService(st, log, m),
		Checkout: checkout.New(checkout.Config{
			Store:     st,
			Ledger:    ledger,
			Locker:    lk,
			Publisher: pub,
			Metrics:   m,
			Logger:    log,
			Timeout:   cfg.CheckoutTimeout,
		}),
		Orders:  orders.NewService(st, ledger, pub, m, log),
		Catalog: catalog.NewService(st, ledger, m, log),
		Users:   users.NewService(st, tokens, log),
		Log:     log,
	}

	// 5. --- Background Workers ---
	if cfg.CartTTL > 0 {
		sweeper := worker.NewCartSweeper(st, cfg.CartTTL, cfg.SweepInterval, m, log)
		go sweeper.Run(ctx)
	}

	// 6. --- Router Setup ---
	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	router := routes.SetupRouter(app, routes.Deps{
		Tokens:     tokens,
		Health:     st,
		Metrics:    m,
		Limiter:    limiter,
		Log:        log,
		CORSOrigin: cfg.CORSOrigin,
	})

	// 7. --- Start Server ---
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.CheckoutTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting API server", slog.String("addr", cfg.HTTPAddr), slog.String("store", cfg.StoreDriver))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Store, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn("using the in-memory store, data is lost on restart")
		return memstore.New(), nil
	}

	client, db, err := database.OpenDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return mongostore.New(client, db), nil
}
