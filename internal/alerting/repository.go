package alerting

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists alerts in PostgreSQL. A partial unique index on
// (product_id, alert_type) WHERE status <> 'dismissed' backs the idempotent
// creation guarantee under concurrent evaluators.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const alertColumns = `id, product_id, alert_type, severity, message, recommended_action, status, created_at, updated_at`

// CreateIfAbsent inserts the alert unless a non-terminal alert of the same
// (product, type) already exists. Returns true when a row was written.
func (r *Repository) CreateIfAbsent(ctx context.Context, alert Alert) (bool, error) {
	const query = `INSERT INTO alerts (id, product_id, alert_type, severity, message, recommended_action, status, created_at, updated_at)
SELECT $1, $2, $3, $4, $5, $6, $7, $8, $8
WHERE NOT EXISTS (
    SELECT 1 FROM alerts
    WHERE product_id = $2 AND alert_type = $3 AND status <> 'dismissed'
)`
	tag, err := r.pool.Exec(ctx, query,
		alert.ID, alert.ProductID, alert.Type, alert.Severity,
		alert.Message, alert.RecommendedAction, alert.Status, alert.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Lost the race against a concurrent evaluator: same outcome
			// as the NOT EXISTS guard.
			return false, nil
		}
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Get loads one alert by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	var a Alert
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.ProductID, &a.Type, &a.Severity, &a.Message,
		&a.RecommendedAction, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Alert{}, ErrNotFound
		}
		return Alert{}, err
	}
	return a, nil
}

// Transition applies a compare-and-swap status change: the update succeeds
// only when the current status is one of the expected source states. Exactly
// one of two concurrent operators wins.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, to Status, from ...Status) (Alert, error) {
	sources := make([]string, len(from))
	for i, s := range from {
		sources[i] = string(s)
	}
	const query = `UPDATE alerts SET status = $2, updated_at = now()
WHERE id = $1 AND status = ANY($3)
RETURNING ` + alertColumns
	var a Alert
	err := r.pool.QueryRow(ctx, query, id, to, sources).Scan(
		&a.ID, &a.ProductID, &a.Type, &a.Severity, &a.Message,
		&a.RecommendedAction, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Alert{}, err
	}
	// Distinguish a missing alert from an illegal transition.
	if _, getErr := r.Get(ctx, id); getErr != nil {
		return Alert{}, getErr
	}
	return Alert{}, ErrInvalidTransition
}

// List returns alerts filtered by status, newest first. An empty status
// returns everything.
func (r *Repository) List(ctx context.Context, status Status, limit int) ([]Alert, error) {
	if limit <= 0 {
		limit = 200
	}
	query := `SELECT ` + alertColumns + ` FROM alerts
WHERE ($1 = '' OR status = $1)
ORDER BY created_at DESC
LIMIT $2`
	rows, err := r.pool.Query(ctx, query, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var alerts []Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(
			&a.ID, &a.ProductID, &a.Type, &a.Severity, &a.Message,
			&a.RecommendedAction, &a.Status, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
