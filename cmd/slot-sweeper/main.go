package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-session/internal/cron"
	"github.com/angelmondragon/storefront-session/pkg/config"
	"github.com/angelmondragon/storefront-session/pkg/db"
	"github.com/angelmondragon/storefront-session/pkg/instance"
	"github.com/angelmondragon/storefront-session/pkg/kvstore"
	"github.com/angelmondragon/storefront-session/pkg/logger"
	"github.com/angelmondragon/storefront-session/pkg/metrics"
	"github.com/angelmondragon/storefront-session/pkg/migrate"
	"github.com/angelmondragon/storefront-session/pkg/redis"
)

const lockName = "slot-sweeper"

func main() {
	logg := logger.New(logger.Options{ServiceName: "slot-sweeper"})

	once := flag.Bool("once", false, "run a single sweep cycle and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "slot-sweeper",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":             cfg.App.Env,
		"storage_backend": cfg.Storage.Backend,
		"instance":        instance.ID(),
	})

	// Redis expires slots natively and the memory backend is swept by the api
	// process that owns it.
	if cfg.Storage.Backend != config.StorageBackendSQL {
		logg.Info(ctx, "storage backend needs no external sweeper; exiting")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run migrations", err)
		os.Exit(1)
	}

	store, err := kvstore.NewSQLStore(dbClient)
	if err != nil {
		logg.Error(ctx, "failed to create slot store", err)
		os.Exit(1)
	}

	var lock cron.Lock = &cron.LocalLock{}
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		lock, err = cron.NewRedisLock(redisClient, redisClient.LockKey(lockName), 0)
		if err != nil {
			logg.Error(ctx, "failed to create sweeper lock", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(ctx, "redis not configured; sweeper replicas will not coordinate")
	}

	jobMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	job, err := cron.NewSlotSweepJob(cron.SlotSweepJobParams{
		Logger:    logg,
		Store:     store,
		Metrics:   jobMetrics,
		BatchSize: cfg.Sweeper.BatchSize,
	})
	if err != nil {
		logg.Error(ctx, "failed to create sweep job", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(job),
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Sweeper.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create sweeper service", err)
		os.Exit(1)
	}

	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "sweep failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting slot sweeper")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "slot sweeper stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "slot sweeper shutting down gracefully")
}
