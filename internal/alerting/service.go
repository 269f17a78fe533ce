package alerting

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stockpilot/stockpilot/internal/catalog"
	"github.com/stockpilot/stockpilot/internal/forecast"
	"github.com/stockpilot/stockpilot/internal/observability"
)

// RepositoryPort abstracts alert persistence for the service.
type RepositoryPort interface {
	CreateIfAbsent(ctx context.Context, alert Alert) (bool, error)
	Get(ctx context.Context, id uuid.UUID) (Alert, error)
	Transition(ctx context.Context, id uuid.UUID, to Status, from ...Status) (Alert, error)
	List(ctx context.Context, status Status, limit int) ([]Alert, error)
}

// CatalogPort lists products eligible for evaluation.
type CatalogPort interface {
	ListActive(ctx context.Context) ([]catalog.Product, error)
}

// ForecastPort supplies demand forecasts for evaluation.
type ForecastPort interface {
	Forecast(ctx context.Context, productID int64, horizonDays int) (forecast.Forecast, error)
}

// ServiceConfig groups evaluator tuning knobs.
type ServiceConfig struct {
	Rules       RuleConfig
	HorizonDays int
	Workers     int
}

// Service runs alert evaluation and operator status transitions.
type Service struct {
	repo      RepositoryPort
	catalog   CatalogPort
	forecasts ForecastPort
	metrics   *observability.Metrics
	logger    *slog.Logger
	cfg       ServiceConfig
	now       func() time.Time
}

// NewService builds Service. Metrics may be nil.
func NewService(repo RepositoryPort, catalogPort CatalogPort, forecasts ForecastPort, metrics *observability.Metrics, logger *slog.Logger, cfg ServiceConfig) *Service {
	if cfg.Rules.OverstockDays <= 0 {
		cfg.Rules.OverstockDays = 90
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 90
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		catalog:   catalogPort,
		forecasts: forecasts,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// GenerateAlerts evaluates every active product in one pass and returns the
// alerts created by this run. Safe to invoke repeatedly: a condition already
// covered by a non-terminal alert creates nothing new. A product whose
// forecast fails is still evaluated against static thresholds and reported in
// Skipped; its failure never aborts the batch.
func (s *Service) GenerateAlerts(ctx context.Context) (Report, error) {
	products, err := s.catalog.ListActive(ctx)
	if err != nil {
		return Report{}, err
	}

	var mu sync.Mutex
	var report Report

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())
	for _, product := range products {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			created, skip := s.evaluateProduct(gctx, product)
			mu.Lock()
			report.Created = append(report.Created, created...)
			if skip != nil {
				report.Skipped = append(report.Skipped, *skip)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	sort.Slice(report.Created, func(i, j int) bool {
		if report.Created[i].ProductID != report.Created[j].ProductID {
			return report.Created[i].ProductID < report.Created[j].ProductID
		}
		return report.Created[i].Type < report.Created[j].Type
	})
	return report, ctx.Err()
}

func (s *Service) evaluateProduct(ctx context.Context, product catalog.Product) ([]Alert, *Skip) {
	snap := catalog.Snapshot{
		ProductID:    product.ID,
		CurrentStock: product.CurrentStock,
		ReorderPoint: product.ReorderPoint,
		SafetyStock:  product.SafetyStock,
		LeadTimeDays: product.LeadTimeDays,
	}

	var skip *Skip
	var avgDaily float64
	hasForecast := false
	f, err := s.forecasts.Forecast(ctx, product.ID, s.cfg.HorizonDays)
	if err != nil {
		skip = &Skip{ProductID: product.ID, Reason: "demand-based rules skipped: " + err.Error()}
		s.logger.Warn("forecast unavailable for alert evaluation",
			slog.Int64("product_id", product.ID), slog.Any("error", err))
	} else {
		hasForecast = true
		avgDaily = f.AvgDailyDemand()
	}

	candidates := EvaluateRules(snap, avgDaily, hasForecast, s.cfg.Rules)
	var created []Alert
	for _, candidate := range candidates {
		alert := Alert{
			ID:                uuid.New(),
			ProductID:         product.ID,
			Type:              candidate.Type,
			Severity:          candidate.Severity,
			Message:           candidate.Message,
			RecommendedAction: candidate.RecommendedAction,
			Status:            StatusActive,
			CreatedAt:         s.now(),
		}
		inserted, err := s.repo.CreateIfAbsent(ctx, alert)
		if err != nil {
			s.logger.Error("create alert",
				slog.Int64("product_id", product.ID),
				slog.String("type", string(candidate.Type)),
				slog.Any("error", err))
			continue
		}
		if inserted {
			s.metrics.ObserveAlert(string(candidate.Type))
			created = append(created, alert)
		}
	}
	return created, skip
}

// Acknowledge moves an active alert to acknowledged.
func (s *Service) Acknowledge(ctx context.Context, id uuid.UUID) (Alert, error) {
	return s.repo.Transition(ctx, id, StatusAcknowledged, StatusActive)
}

// Dismiss ends the alert lifecycle from either active or acknowledged.
func (s *Service) Dismiss(ctx context.Context, id uuid.UUID) (Alert, error) {
	return s.repo.Transition(ctx, id, StatusDismissed, StatusActive, StatusAcknowledged)
}

// List exposes stored alerts for callers.
func (s *Service) List(ctx context.Context, status Status, limit int) ([]Alert, error) {
	return s.repo.List(ctx, status, limit)
}

func (s *Service) workers() int {
	if s.cfg.Workers > 0 {
		return s.cfg.Workers
	}
	return runtime.NumCPU()
}
