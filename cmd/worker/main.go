package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/stockpilot/stockpilot/internal/alerting"
	"github.com/stockpilot/stockpilot/internal/app"
	"github.com/stockpilot/stockpilot/internal/catalog"
	"github.com/stockpilot/stockpilot/internal/forecast"
	"github.com/stockpilot/stockpilot/internal/platform/cache"
	"github.com/stockpilot/stockpilot/internal/platform/db"
	"github.com/stockpilot/stockpilot/internal/sales"
	"github.com/stockpilot/stockpilot/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect database", slog.Any("error", err))
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

	catalogRepo := catalog.NewRepository(pool)
	salesRepo := sales.NewRepository(pool)

	forecastCache := forecast.NewCache(redisClient, cfg.ForecastCacheTTL)
	forecastRepo := forecast.NewRepository(pool)
	forecastService := forecast.NewService(catalogRepo, salesRepo, forecastRepo, forecastCache, nil, logger, forecast.ServiceConfig{
		MinHistoryDays: cfg.ForecastMinHistoryDays,
		FitTimeout:     cfg.ForecastFitTimeout,
		Workers:        cfg.Workers(),
		DefaultHorizon: cfg.ForecastHorizonDays,
	})

	alertRepo := alerting.NewRepository(pool)
	alertService := alerting.NewService(alertRepo, catalogRepo, forecastService, nil, logger, alerting.ServiceConfig{
		Rules:       alerting.RuleConfig{OverstockDays: cfg.AlertOverstockDays},
		HorizonDays: cfg.ForecastHorizonDays,
		Workers:     cfg.Workers(),
	})

	warmupJob := jobs.NewForecastWarmupJob(forecastService, logger, nil)
	scanJob := jobs.NewAlertScanJob(alertService, logger, nil)

	warmupTask, err := jobs.NewForecastWarmupTask(jobs.ForecastWarmupPayload{HorizonDays: cfg.ForecastHorizonDays})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	scanTask, err := jobs.NewAlertScanTask(jobs.AlertScanPayload{HorizonDays: cfg.ForecastHorizonDays})
	if err != nil {
		logger.Error("build alert scan task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskForecastWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskAlertScan, Handler: scanJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 1 * * *", Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
