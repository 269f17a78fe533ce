package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/stockpilot/stockpilot/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskForecastWarmup regenerates forecasts for all active products.
	TaskForecastWarmup = "forecast:warmup"
	// TaskAlertScan evaluates inventory alert rules across the catalog.
	TaskAlertScan = "alerts:scan"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ForecastWarmupPayload tunes a warmup run.
type ForecastWarmupPayload struct {
	HorizonDays int `json:"horizon_days"`
}

// NewForecastWarmupTask constructs a warmup task.
func NewForecastWarmupTask(payload ForecastWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskForecastWarmup, data), nil
}

// AlertScanPayload tunes an alert scan run.
type AlertScanPayload struct {
	HorizonDays int `json:"horizon_days"`
}

// NewAlertScanTask constructs an alert scan task.
func NewAlertScanTask(payload AlertScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAlertScan, data), nil
}
