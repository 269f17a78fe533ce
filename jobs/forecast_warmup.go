package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stockpilot/stockpilot/internal/forecast"
	jobmetrics "github.com/stockpilot/stockpilot/internal/jobs"
)

// Forecaster is the slice of the forecast service the warmup job needs.
type Forecaster interface {
	GenerateForAll(ctx context.Context, horizonDays int) (map[int64]forecast.Result, error)
}

// ForecastWarmupJob regenerates forecasts for every active product so the
// first request of the day never pays the fitting cost.
type ForecastWarmupJob struct {
	Forecaster Forecaster
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// NewForecastWarmupJob initialises the warmup handler.
func NewForecastWarmupJob(forecaster Forecaster, logger *slog.Logger, metrics *jobmetrics.Metrics) *ForecastWarmupJob {
	return &ForecastWarmupJob{Forecaster: forecaster, Logger: logger, Metrics: metrics}
}

// Handle executes the warmup run.
func (j *ForecastWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Forecaster == nil {
		return errors.New("forecast warmup: handler not configured")
	}
	var payload ForecastWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := time.Now()
	tracker := j.metrics().Track(TaskForecastWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int("horizon_days", payload.HorizonDays))
	logger.Info("starting forecast warmup")

	results, err := j.Forecaster.GenerateForAll(ctx, payload.HorizonDays)
	if err != nil {
		resultErr = err
		logger.Error("warmup failed", slog.Any("error", err))
		return resultErr
	}

	var succeeded, failed int
	for productID, result := range results {
		if result.Err != nil {
			failed++
			logger.Warn("forecast not generated",
				slog.Int64("product_id", productID),
				slog.Any("error", result.Err))
			continue
		}
		succeeded++
	}

	logger.Info("completed forecast warmup",
		slog.Int("products", len(results)),
		slog.Int("succeeded", succeeded),
		slog.Int("failed", failed),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *ForecastWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskForecastWarmup))
	}
	return slog.Default().With(slog.String("job", TaskForecastWarmup))
}

func (j *ForecastWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
