package reorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/stockpilot/stockpilot/internal/catalog"
	"github.com/stockpilot/stockpilot/internal/forecast"
)

// Recommendation is a purchase quantity suggestion for a single product.
type Recommendation struct {
	ProductID      int64     `json:"product_id"`
	SKU            string    `json:"sku"`
	SupplierID     int64     `json:"supplier_id,omitempty"`
	CurrentStock   int64     `json:"current_stock"`
	ReorderPoint   int64     `json:"reorder_point"`
	SafetyStock    int64     `json:"safety_stock"`
	LeadTimeDays   int64     `json:"lead_time_days"`
	LeadTimeDemand float64   `json:"lead_time_demand"`
	RecommendedQty int64     `json:"recommended_qty"`
	DemandSource   string    `json:"demand_source"`
	Rationale      string    `json:"rationale"`
	UnitCost       float64   `json:"unit_cost"`
	EstimatedCost  float64   `json:"estimated_cost"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// Demand source labels reported on recommendations.
const (
	SourceForecast        = "forecast"
	SourceTrailingAverage = "trailing_average"
)

// CatalogPort resolves products.
type CatalogPort interface {
	Get(ctx context.Context, id int64) (catalog.Product, error)
	ListActive(ctx context.Context) ([]catalog.Product, error)
}

// ForecastPort produces demand forecasts on request.
type ForecastPort interface {
	Forecast(ctx context.Context, productID int64, horizonDays int) (forecast.Forecast, error)
}

// SalesPort supplies the fallback demand estimate.
type SalesPort interface {
	TrailingDailyAverage(ctx context.Context, productID int64, days int) (float64, error)
}

// ServiceConfig tunes the recommender.
type ServiceConfig struct {
	// HorizonDays is the minimum forecast horizon requested. The effective
	// horizon is raised to cover the product lead time when it is longer.
	HorizonDays int
	// TrailingWindowDays sizes the fallback moving-average window.
	TrailingWindowDays int
}

func (c *ServiceConfig) withDefaults() {
	if c.HorizonDays <= 0 {
		c.HorizonDays = 90
	}
	if c.TrailingWindowDays <= 0 {
		c.TrailingWindowDays = 30
	}
}

// Service computes reorder recommendations.
type Service struct {
	logger     *slog.Logger
	catalog    CatalogPort
	forecaster ForecastPort
	sales      SalesPort
	cfg        ServiceConfig
	now        func() time.Time
}

// NewService constructs the recommender. Logger may be nil.
func NewService(logger *slog.Logger, cat CatalogPort, fc ForecastPort, sl SalesPort, cfg ServiceConfig) *Service {
	cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:     logger,
		catalog:    cat,
		forecaster: fc,
		sales:      sl,
		cfg:        cfg,
		now:        time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Recommend computes the suggested order quantity for one product.
//
// quantity = max(0, reorderPoint + safetyStock + leadTimeDemand - currentStock)
//
// Lead-time demand comes from the forecast when one is available, otherwise
// from the trailing daily sales average multiplied by the lead time.
func (s *Service) Recommend(ctx context.Context, productID int64) (Recommendation, error) {
	product, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return Recommendation{}, err
	}
	return s.recommendFor(ctx, product), nil
}

// RecommendAll computes recommendations for every active product with a
// positive recommended quantity.
func (s *Service) RecommendAll(ctx context.Context) ([]Recommendation, error) {
	products, err := s.catalog.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	recs := make([]Recommendation, 0, len(products))
	for _, product := range products {
		rec := s.recommendFor(ctx, product)
		if rec.RecommendedQty > 0 {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func (s *Service) recommendFor(ctx context.Context, product catalog.Product) Recommendation {
	leadTime := product.LeadTimeDays
	if leadTime <= 0 {
		leadTime = 1
	}

	demand, source, rationale := s.leadTimeDemand(ctx, product, leadTime)

	raw := float64(product.ReorderPoint+product.SafetyStock-product.CurrentStock) + demand
	qty := int64(math.Ceil(raw))
	if qty < 0 {
		qty = 0
	}

	return Recommendation{
		ProductID:      product.ID,
		SKU:            product.SKU,
		SupplierID:     product.SupplierID,
		CurrentStock:   product.CurrentStock,
		ReorderPoint:   product.ReorderPoint,
		SafetyStock:    product.SafetyStock,
		LeadTimeDays:   leadTime,
		LeadTimeDemand: demand,
		RecommendedQty: qty,
		DemandSource:   source,
		Rationale:      rationale,
		UnitCost:       product.UnitCost,
		EstimatedCost:  float64(qty) * product.UnitCost,
		GeneratedAt:    s.now().UTC(),
	}
}

// leadTimeDemand estimates demand over the lead time. The forecast horizon is
// stretched to cover the lead time so the projection never truncates.
func (s *Service) leadTimeDemand(ctx context.Context, product catalog.Product, leadTime int64) (float64, string, string) {
	horizon := s.cfg.HorizonDays
	if int(leadTime) > horizon {
		horizon = int(leadTime)
	}

	fc, err := s.forecaster.Forecast(ctx, product.ID, horizon)
	if err == nil {
		demand := 0.0
		for i, point := range fc.Points {
			if int64(i) >= leadTime {
				break
			}
			demand += point.Predicted
		}
		rationale := fmt.Sprintf("projected %.1f units over %d-day lead time from %s forecast", demand, leadTime, fc.ModelName)
		return demand, SourceForecast, rationale
	}

	if !errors.Is(err, forecast.ErrInsufficientHistory) && !errors.Is(err, forecast.ErrTimeout) {
		s.logger.Warn("forecast unavailable for recommendation",
			slog.Int64("product_id", product.ID),
			slog.Any("error", err))
	}

	avg, avgErr := s.sales.TrailingDailyAverage(ctx, product.ID, s.cfg.TrailingWindowDays)
	if avgErr != nil {
		s.logger.Warn("trailing average unavailable",
			slog.Int64("product_id", product.ID),
			slog.Any("error", avgErr))
		avg = 0
	}
	demand := avg * float64(leadTime)
	rationale := fmt.Sprintf("no usable forecast; used %d-day trailing average %.2f/day over %d-day lead time", s.cfg.TrailingWindowDays, avg, leadTime)
	return demand, SourceTrailingAverage, rationale
}
