package catalog

import (
	"errors"
	"time"
)

// Product is the catalog read model consumed by the forecasting engine.
// The engine only ever reads snapshots of it; stock mutations happen elsewhere.
type Product struct {
	ID           int64     `json:"id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	SupplierID   int64     `json:"supplier_id,omitempty"`
	UnitCost     float64   `json:"unit_cost"`
	UnitPrice    float64   `json:"unit_price"`
	ReorderPoint int64     `json:"reorder_point"`
	SafetyStock  int64     `json:"safety_stock"`
	LeadTimeDays int64     `json:"lead_time_days"`
	CurrentStock int64     `json:"current_stock"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Snapshot carries the inventory state needed by alert evaluation and
// reorder computation.
type Snapshot struct {
	ProductID    int64 `json:"product_id"`
	CurrentStock int64 `json:"current_stock"`
	ReorderPoint int64 `json:"reorder_point"`
	SafetyStock  int64 `json:"safety_stock"`
	LeadTimeDays int64 `json:"lead_time_days"`
}

// ErrProductNotFound indicates the requested product does not exist.
var ErrProductNotFound = errors.New("catalog: product not found")
