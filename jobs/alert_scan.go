package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stockpilot/stockpilot/internal/alerting"
	jobmetrics "github.com/stockpilot/stockpilot/internal/jobs"
)

// AlertGenerator is the slice of the alerting service the scan job needs.
type AlertGenerator interface {
	GenerateAlerts(ctx context.Context) (alerting.Report, error)
}

// AlertScanJob sweeps the catalog and raises inventory alerts.
type AlertScanJob struct {
	Alerts  AlertGenerator
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewAlertScanJob initialises the scan handler.
func NewAlertScanJob(alerts AlertGenerator, logger *slog.Logger, metrics *jobmetrics.Metrics) *AlertScanJob {
	return &AlertScanJob{Alerts: alerts, Logger: logger, Metrics: metrics}
}

// Handle executes the scan.
func (j *AlertScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Alerts == nil {
		return errors.New("alert scan: handler not configured")
	}
	var payload AlertScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := time.Now()
	tracker := j.metrics().Track(TaskAlertScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	logger.Info("starting alert scan")

	report, err := j.Alerts.GenerateAlerts(ctx)
	if err != nil {
		resultErr = err
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}

	byType := make(map[string]int)
	for _, alert := range report.Created {
		byType[string(alert.Type)]++
	}
	for alertType, count := range byType {
		j.metrics().AddAlerts(alertType, count)
	}
	for _, skip := range report.Skipped {
		logger.Warn("product skipped during scan",
			slog.Int64("product_id", skip.ProductID),
			slog.String("reason", skip.Reason))
	}

	logger.Info("completed alert scan",
		slog.Int("created", len(report.Created)),
		slog.Int("skipped", len(report.Skipped)),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *AlertScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAlertScan))
	}
	return slog.Default().With(slog.String("job", TaskAlertScan))
}

func (j *AlertScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
