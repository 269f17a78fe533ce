package sales

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists and reads sales observations in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record stores a sale observation.
func (r *Repository) Record(ctx context.Context, obs Observation) error {
	const query = `INSERT INTO sales (product_id, sale_date, quantity, unit_price)
VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, obs.ProductID, obs.Date, obs.Quantity, obs.UnitPrice)
	return err
}

// Observations lists sales for a product ordered by date.
func (r *Repository) Observations(ctx context.Context, productID int64, rng Range) ([]Observation, error) {
	const query = `SELECT product_id, sale_date, quantity, unit_price
FROM sales
WHERE product_id = $1
  AND ($2::timestamptz IS NULL OR sale_date >= $2)
  AND ($3::timestamptz IS NULL OR sale_date < $3)
ORDER BY sale_date`
	rows, err := r.pool.Query(ctx, query, productID, nullableTime(rng.From), nullableTime(rng.To))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var observations []Observation
	for rows.Next() {
		var obs Observation
		if err := rows.Scan(&obs.ProductID, &obs.Date, &obs.Quantity, &obs.UnitPrice); err != nil {
			return nil, err
		}
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}

// TrailingDailyAverage returns average daily demand over the trailing window,
// counting days with no sales as zero-demand days.
func (r *Repository) TrailingDailyAverage(ctx context.Context, productID int64, days int) (float64, error) {
	if days <= 0 {
		days = 30
	}
	const query = `SELECT COALESCE(SUM(quantity), 0) FROM sales
WHERE product_id = $1 AND sale_date >= $2`
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	var total int64
	if err := r.pool.QueryRow(ctx, query, productID, cutoff).Scan(&total); err != nil {
		return 0, err
	}
	return float64(total) / float64(days), nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
