package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/dealerbridge/dealerdesk-backend/api/routes"
	"github.com/dealerbridge/dealerdesk-backend/internal/discounts"
	"github.com/dealerbridge/dealerdesk-backend/internal/notifications"
	"github.com/dealerbridge/dealerdesk-backend/internal/orders"
	"github.com/dealerbridge/dealerdesk-backend/internal/pricing"
	"github.com/dealerbridge/dealerdesk-backend/internal/stock"
	"github.com/dealerbridge/dealerdesk-backend/pkg/config"
	"github.com/dealerbridge/dealerdesk-backend/pkg/db"
	"github.com/dealerbridge/dealerdesk-backend/pkg/logger"
	"github.com/dealerbridge/dealerdesk-backend/pkg/migrate"
	"github.com/dealerbridge/dealerdesk-backend/pkg/redis"
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
	})

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

	ordersSvc, notificationsRepo, err := buildServices(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, ordersSvc, notificationsRepo),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (orders.Service, *notifications.Repo, error) {
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
	return ordersSvc, notificationsRepo, nil
}
