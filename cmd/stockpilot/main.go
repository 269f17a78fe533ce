package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stockpilot/stockpilot/internal/alerting"
	"github.com/stockpilot/stockpilot/internal/app"
	"github.com/stockpilot/stockpilot/internal/catalog"
	"github.com/stockpilot/stockpilot/internal/forecast"
	"github.com/stockpilot/stockpilot/internal/observability"
	"github.com/stockpilot/stockpilot/internal/platform/cache"
	"github.com/stockpilot/stockpilot/internal/platform/db"
	"github.com/stockpilot/stockpilot/internal/purchase"
	"github.com/stockpilot/stockpilot/internal/reorder"
	"github.com/stockpilot/stockpilot/internal/sales"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, starting without cache", slog.Any("error", err))
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	catalogRepo := catalog.NewRepository(pool)
	salesRepo := sales.NewRepository(pool)

	forecastCache := forecast.NewCache(redisClient, cfg.ForecastCacheTTL)
	forecastRepo := forecast.NewRepository(pool)
	forecastService := forecast.NewService(catalogRepo, salesRepo, forecastRepo, forecastCache, metrics, logger, forecast.ServiceConfig{
		MinHistoryDays: cfg.ForecastMinHistoryDays,
		FitTimeout:     cfg.ForecastFitTimeout,
		Workers:        cfg.Workers(),
		DefaultHorizon: cfg.ForecastHorizonDays,
	})

	alertRepo := alerting.NewRepository(pool)
	alertService := alerting.NewService(alertRepo, catalogRepo, forecastService, metrics, logger, alerting.ServiceConfig{
		Rules:       alerting.RuleConfig{OverstockDays: cfg.AlertOverstockDays},
		HorizonDays: cfg.ForecastHorizonDays,
		Workers:     cfg.Workers(),
	})

	reorderService := reorder.NewService(logger, catalogRepo, forecastService, salesRepo, reorder.ServiceConfig{
		HorizonDays:        cfg.ForecastHorizonDays,
		TrailingWindowDays: cfg.ReorderTrailingWindowDays,
	})

	purchaseRepo := purchase.NewRepository(pool)
	purchaseService := purchase.NewService(logger, purchaseRepo, reorderService)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Pool:            pool,
		CatalogHandler:  catalog.NewHandler(logger, catalogRepo),
		SalesHandler:    sales.NewHandler(logger, salesRepo, forecastCache),
		ForecastHandler: forecast.NewHandler(logger, forecastService),
		AlertHandler:    alerting.NewHandler(logger, alertService),
		ReorderHandler:  reorder.NewHandler(logger, reorderService),
		PurchaseHandler: purchase.NewHandler(logger, purchaseService),
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
