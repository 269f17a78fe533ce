package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads product and inventory state from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, sku, name, COALESCE(supplier_id, 0), unit_cost, unit_price,
reorder_point, safety_stock, lead_time_days, current_stock, is_active, created_at, updated_at`

// Get fetches a single product by id.
func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	var p Product
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.SKU, &p.Name, &p.SupplierID, &p.UnitCost, &p.UnitPrice,
		&p.ReorderPoint, &p.SafetyStock, &p.LeadTimeDays, &p.CurrentStock,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// ListActive returns all active products ordered by SKU.
func (r *Repository) ListActive(ctx context.Context) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE is_active ORDER BY sku`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID, &p.SKU, &p.Name, &p.SupplierID, &p.UnitCost, &p.UnitPrice,
			&p.ReorderPoint, &p.SafetyStock, &p.LeadTimeDays, &p.CurrentStock,
			&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
