package purchase

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Purchase order lifecycle statuses.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusClosed    Status = "CLOSED"
	StatusCancelled Status = "CANCELLED"
)

// Order is a draft purchase order raised from reorder recommendations.
type Order struct {
	ID           int64           `json:"id"`
	Number       string          `json:"number"`
	SupplierID   int64           `json:"supplier_id"`
	Status       Status          `json:"status"`
	ExpectedDate time.Time       `json:"expected_date"`
	Total        decimal.Decimal `json:"total"`
	Note         string          `json:"note,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	Lines        []Line          `json:"lines,omitempty"`
}

// Line is a single product entry on an order.
type Line struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	SKU       string          `json:"sku"`
	Qty       int64           `json:"qty"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	LineTotal decimal.Decimal `json:"line_total"`
	Note      string          `json:"note,omitempty"`
}

var (
	// ErrNotFound indicates the order does not exist.
	ErrNotFound = errors.New("purchase: order not found")
	// ErrNoLines occurs when an order would be created without any lines.
	ErrNoLines = errors.New("purchase: order has no lines")
)
