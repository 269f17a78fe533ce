package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stockpilot/stockpilot/internal/catalog"
	"github.com/stockpilot/stockpilot/internal/observability"
	"github.com/stockpilot/stockpilot/internal/sales"
)

// CatalogPort exposes the product lookups the forecaster needs.
type CatalogPort interface {
	Get(ctx context.Context, id int64) (catalog.Product, error)
	ListActive(ctx context.Context) ([]catalog.Product, error)
}

// HistoryPort supplies ordered sales observations.
type HistoryPort interface {
	Observations(ctx context.Context, productID int64, rng sales.Range) ([]sales.Observation, error)
}

// StorePort persists derived forecasts.
type StorePort interface {
	Replace(ctx context.Context, f Forecast) error
	Latest(ctx context.Context, productID int64) (Forecast, error)
}

// ServiceConfig groups forecaster tuning knobs.
type ServiceConfig struct {
	MinHistoryDays int
	FitTimeout     time.Duration
	Workers        int
	DefaultHorizon int
}

// Service coordinates per-product demand forecasting.
type Service struct {
	catalog CatalogPort
	history HistoryPort
	store   StorePort
	cache   *Cache
	metrics *observability.Metrics
	logger  *slog.Logger
	cfg     ServiceConfig
	now     func() time.Time
	fit     func([]DailyPoint) (*Model, error)
}

// NewService builds Service. Store, cache, and metrics may be nil.
func NewService(catalogPort CatalogPort, historyPort HistoryPort, store StorePort, cache *Cache, metrics *observability.Metrics, logger *slog.Logger, cfg ServiceConfig) *Service {
	if cfg.MinHistoryDays <= 0 {
		cfg.MinHistoryDays = 14
	}
	if cfg.FitTimeout <= 0 {
		cfg.FitTimeout = 10 * time.Second
	}
	if cfg.DefaultHorizon <= 0 {
		cfg.DefaultHorizon = 90
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		catalog: catalogPort,
		history: historyPort,
		store:   store,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
		fit:     Fit,
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Forecast produces a demand projection for one product.
func (s *Service) Forecast(ctx context.Context, productID int64, horizonDays int) (Forecast, error) {
	if horizonDays <= 0 {
		horizonDays = s.cfg.DefaultHorizon
	}
	if _, err := s.catalog.Get(ctx, productID); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return Forecast{}, fmt.Errorf("%w: id %d", ErrUnknownProduct, productID)
		}
		return Forecast{}, err
	}

	loader := func(ctx context.Context) (interface{}, error) {
		return s.compute(ctx, productID, horizonDays)
	}
	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return Forecast{}, err
		}
		return value.(Forecast), nil
	}
	key, err := s.cache.BuildKey(ctx, "forecast", strconv.FormatInt(productID, 10), strconv.Itoa(horizonDays))
	if err != nil {
		return Forecast{}, err
	}
	var f Forecast
	if err := s.cache.FetchJSON(ctx, key, &f, loader); err != nil {
		return Forecast{}, err
	}
	return f, nil
}

func (s *Service) compute(ctx context.Context, productID int64, horizonDays int) (Forecast, error) {
	observations, err := s.history.Observations(ctx, productID, sales.Range{})
	if err != nil {
		s.metrics.ObserveForecast("error")
		return Forecast{}, err
	}
	series := BuildDailySeries(observations)
	if len(series) < s.cfg.MinHistoryDays {
		s.metrics.ObserveForecast("insufficient")
		return Forecast{}, fmt.Errorf("%w: %d days of coverage, need %d", ErrInsufficientHistory, len(series), s.cfg.MinHistoryDays)
	}

	model, err := s.fitWithBudget(ctx, series)
	if err != nil {
		switch {
		case errors.Is(err, ErrTimeout):
			s.metrics.ObserveForecast("timeout")
		case errors.Is(err, ErrDegenerateSeries):
			s.metrics.ObserveForecast("insufficient")
			err = fmt.Errorf("%w: series does not support a fit", ErrInsufficientHistory)
		default:
			s.metrics.ObserveForecast("error")
		}
		return Forecast{}, err
	}

	f := Forecast{
		ProductID:   productID,
		ModelName:   ModelName,
		GeneratedAt: s.now(),
		HorizonDays: horizonDays,
		Points:      model.Predict(horizonDays),
	}
	if s.store != nil {
		if err := s.store.Replace(ctx, f); err != nil {
			s.logger.Warn("persist forecast", slog.Int64("product_id", productID), slog.Any("error", err))
		}
	}
	s.metrics.ObserveForecast("ok")
	return f, nil
}

// fitWithBudget runs the model fit under the configured timeout. A product
// whose fit overruns is reported as a timeout failure, never silently retried.
func (s *Service) fitWithBudget(ctx context.Context, series []DailyPoint) (*Model, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FitTimeout)
	defer cancel()

	type fitResult struct {
		model *Model
		err   error
	}
	done := make(chan fitResult, 1)
	go func() {
		model, err := s.fit(series)
		done <- fitResult{model: model, err: err}
	}()
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	case res := <-done:
		return res.model, res.err
	}
}

// GenerateForAll forecasts every active product with bounded fan-out. A single
// product's failure is captured in its Result and never aborts the batch; a
// timed-out fit gets exactly one retry before surfacing.
func (s *Service) GenerateForAll(ctx context.Context, horizonDays int) (map[int64]Result, error) {
	products, err := s.catalog.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	results := make(map[int64]Result, len(products))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())
	for _, product := range products {
		g.Go(func() error {
			var res Result
			if gctx.Err() != nil {
				res.Err = gctx.Err()
			} else {
				f, err := s.Forecast(gctx, product.ID, horizonDays)
				if errors.Is(err, ErrTimeout) {
					f, err = s.Forecast(gctx, product.ID, horizonDays)
				}
				if err != nil {
					res.Err = err
				} else {
					res.Forecast = &f
				}
			}
			mu.Lock()
			results[product.ID] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// Latest returns the stored forecast for a product when available.
func (s *Service) Latest(ctx context.Context, productID int64) (Forecast, error) {
	if s.store == nil {
		return Forecast{}, ErrNoForecast
	}
	return s.store.Latest(ctx, productID)
}

func (s *Service) workers() int {
	if s.cfg.Workers > 0 {
		return s.cfg.Workers
	}
	return runtime.NumCPU()
}
