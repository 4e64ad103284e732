package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dealerbridge/dealerdesk-backend/internal/cron"
	"github.com/dealerbridge/dealerdesk-backend/internal/discounts"
	"github.com/dealerbridge/dealerdesk-backend/internal/notifications"
	"github.com/dealerbridge/dealerdesk-backend/internal/orders"
	"github.com/dealerbridge/dealerdesk-backend/internal/pricing"
	"github.com/dealerbridge/dealerdesk-backend/internal/stock"
	"github.com/dealerbridge/dealerdesk-backend/pkg/config"
	"github.com/dealerbridge/dealerdesk-backend/pkg/db"
	"github.com/dealerbridge/dealerdesk-backend/pkg/logger"
	"github.com/dealerbridge/dealerdesk-backend/pkg/metrics"
	"github.com/dealerbridge/dealerdesk-backend/pkg/migrate"
	"github.com/dealerbridge/dealerdesk-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if !cfg.AutoCancel.Enabled {
		logg.Warn(context.Background(), "auto-cancel disabled, nothing to schedule")
		return
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ordersRepo, ordersSvc, err := buildOrderService(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire order service", err)
		os.Exit(1)
	}

	job, err := cron.NewAutoCancelJob(cron.AutoCancelParams{
		Finder:    ordersRepo,
		Canceller: ordersSvc,
		Cfg:       cfg.AutoCancel,
		Log:       logg,
		Metrics:   metrics.NewAutoCancelMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auto-cancel job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()
	if err := registry.Register(job); err != nil {
		logg.Error(context.Background(), "failed to register auto-cancel job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Registry: registry,
		Lock:     lock,
		Log:      logg,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.AutoCancel.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	service.Start(ctx)

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildOrderService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*orders.Repo, orders.Service, error) {
	ordersRepo, err := orders.NewRepo(dbClient.DB())
	if err != nil {
		return nil, nil, err
	}
	discountRepo, err := discounts.NewRepo(dbClient.DB())
	if err != nil {
		return nil, nil, err
	}
	tracker, err := discounts.NewTracker(dbClient.DB())
	if err != nil {
		return nil, nil, err
	}
	validator, err := discounts.NewValidator(discountRepo, tracker)
	if err != nil {
		return nil, nil, err
	}
	usageLock, err := discounts.NewRedisUsageLock(redisClient, logg)
	if err != nil {
		return nil, nil, err
	}
	notificationsRepo, err := notifications.NewRepo(dbClient.DB())
	if err != nil {
		return nil, nil, err
	}
	dispatcher, err := notifications.NewDispatcher(notificationsRepo, logg)
	if err != nil {
		return nil, nil, err
	}

	ordersSvc, err := orders.NewService(orders.Params{
		TxRunner:  dbClient,
		Repo:      ordersRepo,
		Stock:     stock.NewLedger(cfg.FeatureFlags.StockClamp),
		Pricing:   pricing.NewResolver(dbClient.DB()),
		Discounts: validator,
		Tracker:   tracker,
		UsageLock: usageLock,
		Notifier:  dispatcher,
		Log:       logg,
	})
	if err != nil {
		return nil, nil, err
	}
	return ordersRepo, ordersSvc, nil
}
