package purchase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockpilot/stockpilot/internal/reorder"
)

// RecommenderPort supplies the reorder suggestions orders are built from.
type RecommenderPort interface {
	RecommendAll(ctx context.Context) ([]reorder.Recommendation, error)
}

// StorePort persists orders.
type StorePort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context, limit int) ([]Order, error)
}

// Service raises draft purchase orders from reorder recommendations.
type Service struct {
	logger *slog.Logger
	store  StorePort
	recs   RecommenderPort
	now    func() time.Time
}

// NewService constructs the purchase service. Logger may be nil.
func NewService(logger *slog.Logger, store StorePort, recs RecommenderPort) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, store: store, recs: recs, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// CreationReport summarizes a batch order run.
type CreationReport struct {
	Orders  []Order `json:"orders"`
	Skipped []Skip  `json:"skipped,omitempty"`
}

// Skip explains why a recommended product was left off all orders.
type Skip struct {
	ProductID int64  `json:"product_id"`
	Reason    string `json:"reason"`
}

// CreateFromRecommendations groups current recommendations by supplier and
// raises one draft order per supplier. Products without a supplier are
// reported as skipped, never silently dropped.
func (s *Service) CreateFromRecommendations(ctx context.Context) (CreationReport, error) {
	recommendations, err := s.recs.RecommendAll(ctx)
	if err != nil {
		return CreationReport{}, err
	}

	var report CreationReport
	bySupplier := make(map[int64][]reorder.Recommendation)
	for _, rec := range recommendations {
		if rec.SupplierID == 0 {
			report.Skipped = append(report.Skipped, Skip{
				ProductID: rec.ProductID,
				Reason:    "no supplier assigned",
			})
			continue
		}
		bySupplier[rec.SupplierID] = append(bySupplier[rec.SupplierID], rec)
	}

	supplierIDs := make([]int64, 0, len(bySupplier))
	for id := range bySupplier {
		supplierIDs = append(supplierIDs, id)
	}
	sort.Slice(supplierIDs, func(i, j int) bool { return supplierIDs[i] < supplierIDs[j] })

	now := s.now().UTC()
	for _, supplierID := range supplierIDs {
		order, err := s.createOrder(ctx, supplierID, bySupplier[supplierID], now)
		if err != nil {
			s.logger.Error("create purchase order",
				slog.Int64("supplier_id", supplierID),
				slog.Any("error", err))
			return report, err
		}
		report.Orders = append(report.Orders, order)
	}
	if report.Orders == nil {
		report.Orders = []Order{}
	}
	return report, nil
}

func (s *Service) createOrder(ctx context.Context, supplierID int64, recs []reorder.Recommendation, now time.Time) (Order, error) {
	if len(recs) == 0 {
		return Order{}, ErrNoLines
	}

	maxLead := int64(0)
	for _, rec := range recs {
		if rec.LeadTimeDays > maxLead {
			maxLead = rec.LeadTimeDays
		}
	}

	order := Order{
		Number:       generateNumber("PO", now),
		SupplierID:   supplierID,
		Status:       StatusDraft,
		ExpectedDate: now.AddDate(0, 0, int(maxLead)),
		CreatedAt:    now,
	}

	total := decimal.Zero
	lines := make([]Line, 0, len(recs))
	for _, rec := range recs {
		unitCost := decimal.NewFromFloat(rec.UnitCost)
		lineTotal := unitCost.Mul(decimal.NewFromInt(rec.RecommendedQty)).Round(2)
		total = total.Add(lineTotal)
		lines = append(lines, Line{
			ProductID: rec.ProductID,
			SKU:       rec.SKU,
			Qty:       rec.RecommendedQty,
			UnitCost:  unitCost,
			LineTotal: lineTotal,
			Note:      rec.Rationale,
		})
	}
	order.Total = total

	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateOrder(ctx, order)
		if err != nil {
			return err
		}
		order.ID = id
		for i := range lines {
			lines[i].OrderID = id
			if err := tx.InsertLine(ctx, lines[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	order.Lines = lines

	s.logger.Info("purchase order created",
		slog.String("number", order.Number),
		slog.Int64("supplier_id", supplierID),
		slog.Int("lines", len(lines)),
		slog.String("total", order.Total.String()))
	return order, nil
}

// Get returns one order with lines.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	return s.store.Get(ctx, id)
}

// List returns recent orders.
func (s *Service) List(ctx context.Context, limit int) ([]Order, error) {
	return s.store.List(ctx, limit)
}

func generateNumber(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%d", prefix, now.Format("20060102"), now.UnixNano()%1_000_000)
}
