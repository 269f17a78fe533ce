package reorder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stockpilot/stockpilot/internal/catalog"
	"github.com/stockpilot/stockpilot/internal/forecast"
)

type stubCatalog struct {
	products map[int64]catalog.Product
}

func (c *stubCatalog) Get(_ context.Context, id int64) (catalog.Product, error) {
	if p, ok := c.products[id]; ok {
		return p, nil
	}
	return catalog.Product{}, catalog.ErrProductNotFound
}

func (c *stubCatalog) ListActive(context.Context) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(c.products))
	for _, p := range c.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

type stubForecaster struct {
	perDay map[int64]float64
	err    error
}

func (f *stubForecaster) Forecast(_ context.Context, productID int64, horizonDays int) (forecast.Forecast, error) {
	if f.err != nil {
		return forecast.Forecast{}, f.err
	}
	points := make([]forecast.Point, horizonDays)
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	for i := range points {
		points[i] = forecast.Point{Date: base.AddDate(0, 0, i+1), Predicted: f.perDay[productID]}
	}
	return forecast.Forecast{ProductID: productID, HorizonDays: horizonDays, Points: points}, nil
}

type stubSales struct {
	avg map[int64]float64
}

func (s *stubSales) TrailingDailyAverage(_ context.Context, productID int64, _ int) (float64, error) {
	return s.avg[productID], nil
}

func TestRecommendFromForecast(t *testing.T) {
	cat := &stubCatalog{products: map[int64]catalog.Product{
		1: {ID: 1, SKU: "SKU-1", SupplierID: 7, UnitCost: 3.5, CurrentStock: 8, ReorderPoint: 10, SafetyStock: 5, LeadTimeDays: 5, IsActive: true},
	}}
	fc := &stubForecaster{perDay: map[int64]float64{1: 4.0}}
	svc := NewService(nil, cat, fc, &stubSales{}, ServiceConfig{})

	rec, err := svc.Recommend(context.Background(), 1)
	require.NoError(t, err)

	// 10 + 5 + 5*4 - 8 = 27
	require.Equal(t, int64(27), rec.RecommendedQty)
	require.InDelta(t, 20.0, rec.LeadTimeDemand, 1e-9)
	require.Equal(t, SourceForecast, rec.DemandSource)
	require.InDelta(t, 27*3.5, rec.EstimatedCost, 1e-9)
	require.NotEmpty(t, rec.Rationale)
}

func TestRecommendClampsToZero(t *testing.T) {
	cat := &stubCatalog{products: map[int64]catalog.Product{
		1: {ID: 1, CurrentStock: 500, ReorderPoint: 10, SafetyStock: 5, LeadTimeDays: 5, IsActive: true},
	}}
	fc := &stubForecaster{perDay: map[int64]float64{1: 1.0}}
	svc := NewService(nil, cat, fc, &stubSales{}, ServiceConfig{})

	rec, err := svc.Recommend(context.Background(), 1)
	require.NoError(t, err)
	require.Zero(t, rec.RecommendedQty)
	require.Zero(t, rec.EstimatedCost)
}

func TestRecommendFallsBackToTrailingAverage(t *testing.T) {
	cat := &stubCatalog{products: map[int64]catalog.Product{
		1: {ID: 1, CurrentStock: 8, ReorderPoint: 10, SafetyStock: 5, LeadTimeDays: 4, IsActive: true},
	}}
	fc := &stubForecaster{err: forecast.ErrInsufficientHistory}
	sl := &stubSales{avg: map[int64]float64{1: 3.0}}
	svc := NewService(nil, cat, fc, sl, ServiceConfig{})

	rec, err := svc.Recommend(context.Background(), 1)
	require.NoError(t, err)

	// 10 + 5 + 4*3 - 8 = 19
	require.Equal(t, int64(19), rec.RecommendedQty)
	require.Equal(t, SourceTrailingAverage, rec.DemandSource)
	require.Contains(t, rec.Rationale, "trailing average")
}

func TestRecommendFractionalDemandRoundsUp(t *testing.T) {
	cat := &stubCatalog{products: map[int64]catalog.Product{
		1: {ID: 1, CurrentStock: 0, ReorderPoint: 0, SafetyStock: 0, LeadTimeDays: 3, IsActive: true},
	}}
	fc := &stubForecaster{perDay: map[int64]float64{1: 1.4}}
	svc := NewService(nil, cat, fc, &stubSales{}, ServiceConfig{})

	rec, err := svc.Recommend(context.Background(), 1)
	require.NoError(t, err)

	// 3 * 1.4 = 4.2, never under-order on a fractional projection
	require.Equal(t, int64(5), rec.RecommendedQty)
}

func TestRecommendUnknownProduct(t *testing.T) {
	svc := NewService(nil, &stubCatalog{products: map[int64]catalog.Product{}}, &stubForecaster{}, &stubSales{}, ServiceConfig{})

	_, err := svc.Recommend(context.Background(), 99)
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestRecommendAllFiltersZeroQuantities(t *testing.T) {
	cat := &stubCatalog{products: map[int64]catalog.Product{
		1: {ID: 1, CurrentStock: 8, ReorderPoint: 10, SafetyStock: 5, LeadTimeDays: 5, IsActive: true},
		2: {ID: 2, CurrentStock: 500, ReorderPoint: 10, SafetyStock: 5, LeadTimeDays: 5, IsActive: true},
	}}
	fc := &stubForecaster{perDay: map[int64]float64{1: 4.0, 2: 1.0}}
	svc := NewService(nil, cat, fc, &stubSales{}, ServiceConfig{})

	recs, err := svc.RecommendAll(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, int64(1), recs[0].ProductID)
}
