package purchase

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for purchase orders.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations that run inside a transaction.
type TxRepository interface {
	CreateOrder(ctx context.Context, order Order) (int64, error)
	InsertLine(ctx context.Context, line Line) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (tx *txRepo) CreateOrder(ctx context.Context, order Order) (int64, error) {
	const q = `
		INSERT INTO purchase_orders (number, supplier_id, status, expected_date, total, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	var id int64
	err := tx.tx.QueryRow(ctx, q,
		order.Number, order.SupplierID, string(order.Status),
		order.ExpectedDate, order.Total, order.Note, order.CreatedAt,
	).Scan(&id)
	return id, err
}

func (tx *txRepo) InsertLine(ctx context.Context, line Line) error {
	const q = `
		INSERT INTO purchase_order_lines (order_id, product_id, sku, qty, unit_cost, line_total, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := tx.tx.Exec(ctx, q,
		line.OrderID, line.ProductID, line.SKU, line.Qty,
		line.UnitCost, line.LineTotal, line.Note,
	)
	return err
}

// Get returns an order with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (Order, error) {
	const q = `
		SELECT id, number, supplier_id, status, expected_date, total, note, created_at
		FROM purchase_orders
		WHERE id = $1`
	var order Order
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&order.ID, &order.Number, &order.SupplierID, &order.Status,
		&order.ExpectedDate, &order.Total, &order.Note, &order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}

	const ql = `
		SELECT id, order_id, product_id, sku, qty, unit_cost, line_total, note
		FROM purchase_order_lines
		WHERE order_id = $1
		ORDER BY id`
	rows, err := r.pool.Query(ctx, ql, id)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.SKU,
			&line.Qty, &line.UnitCost, &line.LineTotal, &line.Note); err != nil {
			return Order{}, err
		}
		order.Lines = append(order.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return Order{}, err
	}
	return order, nil
}

// List returns orders newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
		SELECT id, number, supplier_id, status, expected_date, total, note, created_at
		FROM purchase_orders
		ORDER BY created_at DESC
		LIMIT $1`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var order Order
		if err := rows.Scan(&order.ID, &order.Number, &order.SupplierID, &order.Status,
			&order.ExpectedDate, &order.Total, &order.Note, &order.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}
