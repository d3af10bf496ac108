package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/storefront-session/api/controllers"
	"github.com/angelmondragon/storefront-session/api/routes"
	"github.com/angelmondragon/storefront-session/internal/cart"
	"github.com/angelmondragon/storefront-session/internal/checkout"
	"github.com/angelmondragon/storefront-session/internal/cron"
	"github.com/angelmondragon/storefront-session/internal/customers"
	"github.com/angelmondragon/storefront-session/internal/recent"
	"github.com/angelmondragon/storefront-session/internal/session"
	"github.com/angelmondragon/storefront-session/internal/wishlist"
	"github.com/angelmondragon/storefront-session/pkg/config"
	"github.com/angelmondragon/storefront-session/pkg/db"
	"github.com/angelmondragon/storefront-session/pkg/instance"
	"github.com/angelmondragon/storefront-session/pkg/kvstore"
	"github.com/angelmondragon/storefront-session/pkg/logger"
	"github.com/angelmondragon/storefront-session/pkg/metrics"
	"github.com/angelmondragon/storefront-session/pkg/migrate"
	"github.com/angelmondragon/storefront-session/pkg/redis"
	"github.com/angelmondragon/storefront-session/pkg/shopapi"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	readiness := map[string]controllers.Pinger{}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		requireResource(ctx, logg, "redis", err)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		readiness["redis"] = redisClient
	} else {
		logg.Warn(ctx, "redis not configured; idempotency replay and rate limiting are off")
	}

	var (
		store   kvstore.Store
		sweeper kvstore.Sweeper
	)
	switch cfg.Storage.Backend {
	case config.StorageBackendRedis:
		store, err = kvstore.NewRedisStore(redisClient)
		requireResource(ctx, logg, "redis slot store", err)

	case config.StorageBackendSQL:
		dbClient, err := db.New(ctx, cfg.DB, logg)
		requireResource(ctx, logg, "database", err)
		defer func() {
			if err := dbClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing database", err)
			}
		}()
		requireResource(ctx, logg, "migrations", migrate.MaybeRun(ctx, cfg, logg, dbClient))

		sqlStore, err := kvstore.NewSQLStore(dbClient)
		requireResource(ctx, logg, "sql slot store", err)
		store = sqlStore

	default:
		memory := kvstore.NewMemoryStore()
		store, sweeper = memory, memory
	}

	readiness["slot_store"] = store

	sessions, err := session.NewManager(store, cfg.Storage.SlotTTL, logg)
	requireResource(ctx, logg, "session manager", err)

	shopClient, err := shopapi.New(cfg.ShopAPI,
		shopapi.WithMetrics(metrics.NewShopAPIMetrics(registry)),
		shopapi.WithLogger(logg),
	)
	requireResource(ctx, logg, "shop api client", err)

	cartService, err := cart.NewService(shopClient, sessions, cart.NewGuard(), metrics.NewCartMetrics(registry), logg)
	requireResource(ctx, logg, "cart service", err)

	checkoutService, err := checkout.NewService(sessions, logg)
	requireResource(ctx, logg, "checkout service", err)

	customerService, err := customers.NewService(customers.ServiceParams{
		API:              shopClient,
		Sessions:         sessions,
		Logger:           logg,
		GuestEmailDomain: cfg.Guest.EmailDomain,
	})
	requireResource(ctx, logg, "customer service", err)

	wishlistService, err := wishlist.NewService(sessions)
	requireResource(ctx, logg, "wishlist service", err)

	recentService, err := recent.NewService(sessions, cfg.Recent.Limit)
	requireResource(ctx, logg, "recently viewed service", err)

	// The in-memory backend lives in this process, so its sweeper does too.
	if sweeper != nil {
		maintenance, err := newLocalSweeper(cfg, logg, sweeper, metrics.NewCronJobMetrics(registry))
		requireResource(ctx, logg, "slot sweeper", err)
		go func() {
			if err := maintenance.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "slot sweeper stopped unexpectedly", err)
			}
		}()
	}

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":             cfg.App.Env,
		"addr":            addr,
		"storage_backend": cfg.Storage.Backend,
		"instance":        instance.ID(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:    cfg,
			Logger:    logg,
			Sessions:  sessions,
			Redis:     redisClient,
			Readiness: readiness,
			Gatherer:  registry,
			Cart:      cartService,
			Checkout:  checkoutService,
			Customers: customerService,
			Wishlist:  wishlistService,
			Recent:    recentService,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		logg.Info(ctx, "api server shutting down")
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown incomplete", err)
		}
	}
}

func newLocalSweeper(cfg *config.Config, logg *logger.Logger, store kvstore.Sweeper, m *metrics.CronJobMetrics) (*cron.Service, error) {
	job, err := cron.NewSlotSweepJob(cron.SlotSweepJobParams{
		Logger:    logg,
		Store:     store,
		Metrics:   m,
		BatchSize: cfg.Sweeper.BatchSize,
	})
	if err != nil {
		return nil, err
	}
	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(job),
		Lock:     &cron.LocalLock{},
		Metrics:  m,
		Interval: cfg.Sweeper.Interval,
	})
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
