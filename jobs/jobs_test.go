package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/stockpilot/stockpilot/internal/alerting"
	"github.com/stockpilot/stockpilot/internal/forecast"
)

type stubForecaster struct {
	horizon int
	err     error
}

func (s *stubForecaster) GenerateForAll(_ context.Context, horizonDays int) (map[int64]forecast.Result, error) {
	s.horizon = horizonDays
	if s.err != nil {
		return nil, s.err
	}
	return map[int64]forecast.Result{
		1: {Forecast: &forecast.Forecast{ProductID: 1}},
		2: {Err: forecast.ErrInsufficientHistory},
	}, nil
}

type stubAlertGenerator struct {
	report alerting.Report
	err    error
}

func (s *stubAlertGenerator) GenerateAlerts(context.Context) (alerting.Report, error) {
	return s.report, s.err
}

func TestForecastWarmupJob(t *testing.T) {
	fc := &stubForecaster{}
	job := NewForecastWarmupJob(fc, nil, nil)

	task, err := NewForecastWarmupTask(ForecastWarmupPayload{HorizonDays: 45})
	require.NoError(t, err)
	require.Equal(t, TaskForecastWarmup, task.Type())

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 45, fc.horizon, "payload horizon must reach the forecaster")
}

func TestForecastWarmupJobPropagatesFailure(t *testing.T) {
	boom := errors.New("catalog unavailable")
	job := NewForecastWarmupJob(&stubForecaster{err: boom}, nil, nil)

	task, err := NewForecastWarmupTask(ForecastWarmupPayload{})
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

func TestForecastWarmupJobSkipsBadPayload(t *testing.T) {
	job := NewForecastWarmupJob(&stubForecaster{}, nil, nil)
	bad := asynq.NewTask(TaskForecastWarmup, []byte("{not json"))
	require.ErrorIs(t, job.Handle(context.Background(), bad), asynq.SkipRetry)
}

func TestAlertScanJob(t *testing.T) {
	gen := &stubAlertGenerator{report: alerting.Report{
		Created: []alerting.Alert{{ProductID: 1, Type: alerting.TypeLowStock}},
		Skipped: []alerting.Skip{{ProductID: 2, Reason: "no history"}},
	}}
	job := NewAlertScanJob(gen, nil, nil)

	task, err := NewAlertScanTask(AlertScanPayload{HorizonDays: 30})
	require.NoError(t, err)
	require.Equal(t, TaskAlertScan, task.Type())

	require.NoError(t, job.Handle(context.Background(), task))
}

func TestAlertScanJobPropagatesFailure(t *testing.T) {
	boom := errors.New("db down")
	job := NewAlertScanJob(&stubAlertGenerator{err: boom}, nil, nil)

	task, err := NewAlertScanTask(AlertScanPayload{})
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), boom)
}
