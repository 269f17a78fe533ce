package forecast

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stockpilot/stockpilot/internal/catalog"
	"github.com/stockpilot/stockpilot/internal/sales"
)

type memoryCatalog struct {
	products map[int64]catalog.Product
}

func (c *memoryCatalog) Get(_ context.Context, id int64) (catalog.Product, error) {
	if p, ok := c.products[id]; ok {
		return p, nil
	}
	return catalog.Product{}, catalog.ErrProductNotFound
}

func (c *memoryCatalog) ListActive(_ context.Context) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(c.products))
	for _, p := range c.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memoryHistory struct {
	observations map[int64][]sales.Observation
}

func (h *memoryHistory) Observations(_ context.Context, productID int64, _ sales.Range) ([]sales.Observation, error) {
	return h.observations[productID], nil
}

type memoryStore struct {
	mu     sync.Mutex
	latest map[int64]Forecast
}

func newMemoryStore() *memoryStore {
	return &memoryStore{latest: make(map[int64]Forecast)}
}

func (s *memoryStore) Replace(_ context.Context, f Forecast) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[f.ProductID] = f
	return nil
}

func (s *memoryStore) Latest(_ context.Context, productID int64) (Forecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.latest[productID]; ok {
		return f, nil
	}
	return Forecast{}, ErrNoForecast
}

func steadyObservations(productID int64, days int) []sales.Observation {
	start := day(2026, 1, 5)
	out := make([]sales.Observation, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, sales.Observation{
			ProductID: productID,
			Date:      start.AddDate(0, 0, i),
			Quantity:  int64(5 + i%7),
			UnitPrice: 12.5,
		})
	}
	return out
}

func newTestService(cat *memoryCatalog, hist *memoryHistory, store StorePort) *Service {
	return NewService(cat, hist, store, nil, nil, nil, ServiceConfig{
		MinHistoryDays: 14,
		FitTimeout:     5 * time.Second,
		Workers:        2,
		DefaultHorizon: 30,
	})
}

func TestForecastUnknownProduct(t *testing.T) {
	svc := newTestService(&memoryCatalog{products: map[int64]catalog.Product{}}, &memoryHistory{}, nil)

	_, err := svc.Forecast(context.Background(), 42, 30)
	require.ErrorIs(t, err, ErrUnknownProduct)
}

func TestForecastInsufficientHistory(t *testing.T) {
	cat := &memoryCatalog{products: map[int64]catalog.Product{1: {ID: 1, IsActive: true}}}
	hist := &memoryHistory{observations: map[int64][]sales.Observation{
		1: steadyObservations(1, 5),
	}}
	svc := newTestService(cat, hist, nil)

	_, err := svc.Forecast(context.Background(), 1, 30)
	require.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestForecastProducesHorizonAndPersists(t *testing.T) {
	cat := &memoryCatalog{products: map[int64]catalog.Product{1: {ID: 1, IsActive: true}}}
	hist := &memoryHistory{observations: map[int64][]sales.Observation{
		1: steadyObservations(1, 60),
	}}
	store := newMemoryStore()
	svc := newTestService(cat, hist, store)
	generatedAt := day(2026, 3, 10)
	svc.WithNow(func() time.Time { return generatedAt })

	f, err := svc.Forecast(context.Background(), 1, 28)
	require.NoError(t, err)
	require.Equal(t, int64(1), f.ProductID)
	require.Equal(t, ModelName, f.ModelName)
	require.Equal(t, 28, f.HorizonDays)
	require.Len(t, f.Points, 28)
	require.Equal(t, generatedAt, f.GeneratedAt)

	stored, err := svc.Latest(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, f.GeneratedAt, stored.GeneratedAt)
	require.Len(t, stored.Points, 28)
}

func TestForecastDefaultHorizon(t *testing.T) {
	cat := &memoryCatalog{products: map[int64]catalog.Product{1: {ID: 1, IsActive: true}}}
	hist := &memoryHistory{observations: map[int64][]sales.Observation{
		1: steadyObservations(1, 30),
	}}
	svc := newTestService(cat, hist, nil)

	f, err := svc.Forecast(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Equal(t, 30, f.HorizonDays)
	require.Len(t, f.Points, 30)
}

func TestGenerateForAllIsolatesFailures(t *testing.T) {
	cat := &memoryCatalog{products: map[int64]catalog.Product{
		1: {ID: 1, IsActive: true},
		2: {ID: 2, IsActive: true},
		3: {ID: 3, IsActive: true},
	}}
	hist := &memoryHistory{observations: map[int64][]sales.Observation{
		1: steadyObservations(1, 60),
		2: steadyObservations(2, 3),
		3: steadyObservations(3, 45),
	}}
	svc := newTestService(cat, hist, nil)

	results, err := svc.GenerateForAll(context.Background(), 14)
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.NoError(t, results[1].Err)
	require.NotNil(t, results[1].Forecast)
	require.Len(t, results[1].Forecast.Points, 14)

	require.ErrorIs(t, results[2].Err, ErrInsufficientHistory)
	require.Nil(t, results[2].Forecast)

	require.NoError(t, results[3].Err)
	require.NotNil(t, results[3].Forecast)
}

func TestGenerateForAllRetriesTimedOutFit(t *testing.T) {
	cat := &memoryCatalog{products: map[int64]catalog.Product{1: {ID: 1, IsActive: true}}}
	hist := &memoryHistory{observations: map[int64][]sales.Observation{
		1: steadyObservations(1, 60),
	}}
	svc := NewService(cat, hist, nil, nil, nil, nil, ServiceConfig{
		MinHistoryDays: 14,
		FitTimeout:     25 * time.Millisecond,
		Workers:        1,
		DefaultHorizon: 30,
	})
	var calls atomic.Int32
	svc.fit = func(series []DailyPoint) (*Model, error) {
		if calls.Add(1) == 1 {
			time.Sleep(500 * time.Millisecond)
		}
		return Fit(series)
	}

	results, err := svc.GenerateForAll(context.Background(), 14)
	require.NoError(t, err)
	require.NoError(t, results[1].Err)
	require.NotNil(t, results[1].Forecast)
	require.Len(t, results[1].Forecast.Points, 14)
	require.Equal(t, int32(2), calls.Load(), "a timed out fit gets one more attempt")
}

func TestGenerateForAllBoundsTimeoutRetries(t *testing.T) {
	cat := &memoryCatalog{products: map[int64]catalog.Product{1: {ID: 1, IsActive: true}}}
	hist := &memoryHistory{observations: map[int64][]sales.Observation{
		1: steadyObservations(1, 60),
	}}
	svc := NewService(cat, hist, nil, nil, nil, nil, ServiceConfig{
		MinHistoryDays: 14,
		FitTimeout:     25 * time.Millisecond,
		Workers:        1,
		DefaultHorizon: 30,
	})
	var calls atomic.Int32
	svc.fit = func(series []DailyPoint) (*Model, error) {
		calls.Add(1)
		time.Sleep(500 * time.Millisecond)
		return Fit(series)
	}

	results, err := svc.GenerateForAll(context.Background(), 14)
	require.NoError(t, err)
	require.ErrorIs(t, results[1].Err, ErrTimeout)
	require.Nil(t, results[1].Forecast)
	require.Equal(t, int32(2), calls.Load(), "a persistent timeout is retried exactly once")
}

type gatedHistory struct {
	inner   *memoryHistory
	blockOn int64
	started chan struct{}
	mu      sync.Mutex
	seen    []int64
}

func (h *gatedHistory) Observations(ctx context.Context, productID int64, rng sales.Range) ([]sales.Observation, error) {
	h.mu.Lock()
	h.seen = append(h.seen, productID)
	h.mu.Unlock()
	if productID == h.blockOn {
		close(h.started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return h.inner.Observations(ctx, productID, rng)
}

func TestGenerateForAllStopsOnCancellation(t *testing.T) {
	cat := &memoryCatalog{products: map[int64]catalog.Product{
		1: {ID: 1, IsActive: true},
		2: {ID: 2, IsActive: true},
		3: {ID: 3, IsActive: true},
	}}
	hist := &gatedHistory{
		inner: &memoryHistory{observations: map[int64][]sales.Observation{
			1: steadyObservations(1, 60),
			3: steadyObservations(3, 60),
		}},
		blockOn: 2,
		started: make(chan struct{}),
	}
	store := newMemoryStore()
	svc := NewService(cat, hist, store, nil, nil, nil, ServiceConfig{
		MinHistoryDays: 14,
		FitTimeout:     5 * time.Second,
		Workers:        1,
		DefaultHorizon: 30,
	})

	ctx, cancel := context.WithCancel(context.Background())
	type outcome struct {
		results map[int64]Result
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		results, err := svc.GenerateForAll(ctx, 14)
		done <- outcome{results: results, err: err}
	}()

	<-hist.started
	cancel()
	run := <-done
	require.NoError(t, run.err)
	results := run.results

	require.Len(t, results, 3)
	require.NoError(t, results[1].Err)
	require.NotNil(t, results[1].Forecast)
	require.ErrorIs(t, results[2].Err, context.Canceled)
	require.ErrorIs(t, results[3].Err, context.Canceled)
	require.NotContains(t, hist.seen, int64(3), "work queued after cancellation must not run")

	stored, err := store.Latest(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, stored.Points, 14, "a forecast persisted before cancellation stays put")
}
