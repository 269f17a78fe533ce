package purchase

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/stockpilot/stockpilot/internal/reorder"
)

type memoryOrderStore struct {
	orders map[int64]Order
	lines  map[int64][]Line
	nextID int64
}

func newMemoryOrderStore() *memoryOrderStore {
	return &memoryOrderStore{orders: make(map[int64]Order), lines: make(map[int64][]Line)}
}

type memoryOrderTx struct {
	store *memoryOrderStore
}

func (s *memoryOrderStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryOrderTx{store: s})
}

func (s *memoryOrderStore) Get(_ context.Context, id int64) (Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	order.Lines = s.lines[id]
	return order, nil
}

func (s *memoryOrderStore) List(_ context.Context, _ int) ([]Order, error) {
	out := make([]Order, 0, len(s.orders))
	for _, order := range s.orders {
		out = append(out, order)
	}
	return out, nil
}

func (tx *memoryOrderTx) CreateOrder(_ context.Context, order Order) (int64, error) {
	tx.store.nextID++
	order.ID = tx.store.nextID
	tx.store.orders[order.ID] = order
	return order.ID, nil
}

func (tx *memoryOrderTx) InsertLine(_ context.Context, line Line) error {
	tx.store.lines[line.OrderID] = append(tx.store.lines[line.OrderID], line)
	return nil
}

type stubRecommender struct {
	recs []reorder.Recommendation
	err  error
}

func (r *stubRecommender) RecommendAll(context.Context) ([]reorder.Recommendation, error) {
	return r.recs, r.err
}

func TestCreateFromRecommendationsGroupsBySupplier(t *testing.T) {
	store := newMemoryOrderStore()
	recs := &stubRecommender{recs: []reorder.Recommendation{
		{ProductID: 1, SKU: "SKU-1", SupplierID: 7, RecommendedQty: 10, UnitCost: 2.5, LeadTimeDays: 5},
		{ProductID: 2, SKU: "SKU-2", SupplierID: 7, RecommendedQty: 4, UnitCost: 10, LeadTimeDays: 12},
		{ProductID: 3, SKU: "SKU-3", SupplierID: 9, RecommendedQty: 6, UnitCost: 1, LeadTimeDays: 3},
	}}
	svc := NewService(nil, store, recs)
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return now })

	report, err := svc.CreateFromRecommendations(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Orders, 2)
	require.Empty(t, report.Skipped)

	first := report.Orders[0]
	require.Equal(t, int64(7), first.SupplierID)
	require.Equal(t, StatusDraft, first.Status)
	require.Len(t, first.Lines, 2)
	// 10 * 2.50 + 4 * 10.00
	require.True(t, first.Total.Equal(decimal.RequireFromString("65")), "got total %s", first.Total)
	// expected date covers the slowest line on the order
	require.Equal(t, now.AddDate(0, 0, 12), first.ExpectedDate)

	second := report.Orders[1]
	require.Equal(t, int64(9), second.SupplierID)
	require.Len(t, second.Lines, 1)
	require.True(t, second.Total.Equal(decimal.RequireFromString("6")))

	stored, err := svc.Get(context.Background(), first.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 2)
	require.Equal(t, first.Number, stored.Number)
}

func TestCreateFromRecommendationsSkipsSupplierless(t *testing.T) {
	store := newMemoryOrderStore()
	recs := &stubRecommender{recs: []reorder.Recommendation{
		{ProductID: 1, SKU: "SKU-1", SupplierID: 0, RecommendedQty: 10, UnitCost: 2},
	}}
	svc := NewService(nil, store, recs)

	report, err := svc.CreateFromRecommendations(context.Background())
	require.NoError(t, err)
	require.Empty(t, report.Orders)
	require.Len(t, report.Skipped, 1)
	require.Equal(t, int64(1), report.Skipped[0].ProductID)
}

func TestCreateFromRecommendationsEmpty(t *testing.T) {
	svc := NewService(nil, newMemoryOrderStore(), &stubRecommender{})

	report, err := svc.CreateFromRecommendations(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report.Orders)
	require.Empty(t, report.Orders)
}

func TestGetUnknownOrder(t *testing.T) {
	svc := NewService(nil, newMemoryOrderStore(), &stubRecommender{})

	_, err := svc.Get(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)
}
