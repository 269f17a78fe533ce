package forecast

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists derived forecasts in PostgreSQL. Forecasts are replaced
// wholesale per product on every generation; they are artifacts, not history.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ErrNoForecast indicates no stored forecast exists for the product.
var ErrNoForecast = errors.New("forecast: no stored forecast")

// Replace deletes previous rows for the product and stores the new points.
func (r *Repository) Replace(ctx context.Context, f Forecast) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM forecasts WHERE product_id = $1`, f.ProductID); err != nil {
		return err
	}
	const insert = `INSERT INTO forecasts
(product_id, model_name, generated_at, horizon_days, forecast_date, predicted_quantity, confidence_lower, confidence_upper)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, p := range f.Points {
		if _, err := tx.Exec(ctx, insert,
			f.ProductID, f.ModelName, f.GeneratedAt, f.HorizonDays,
			p.Date, p.Predicted, p.Lower, p.Upper,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Latest loads the stored forecast for a product.
func (r *Repository) Latest(ctx context.Context, productID int64) (Forecast, error) {
	const query = `SELECT model_name, generated_at, horizon_days, forecast_date, predicted_quantity, confidence_lower, confidence_upper
FROM forecasts WHERE product_id = $1 ORDER BY forecast_date`
	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return Forecast{}, err
	}
	defer rows.Close()

	f := Forecast{ProductID: productID}
	for rows.Next() {
		var p Point
		if err := rows.Scan(&f.ModelName, &f.GeneratedAt, &f.HorizonDays, &p.Date, &p.Predicted, &p.Lower, &p.Upper); err != nil {
			return Forecast{}, err
		}
		f.Points = append(f.Points, p)
	}
	if err := rows.Err(); err != nil {
		return Forecast{}, err
	}
	if len(f.Points) == 0 {
		return Forecast{}, ErrNoForecast
	}
	return f, nil
}
