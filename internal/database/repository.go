package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository provides the history queries used by the handlers.
type Repository struct {
	db *DB
}

// NewRepository creates a repository over an open database.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// RecordEstimate inserts one estimator run.
func (r *Repository) RecordEstimate(ctx context.Context, rec EstimateRecord) error {
	const query = `INSERT INTO estimates
		(id, created_at, estimator, category, sub_category, price_min, price_med, price_max, delay_days, score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.CreatedAt, rec.Estimator, rec.Category, rec.SubCategory,
		rec.PriceMin, rec.PriceMed, rec.PriceMax, rec.DelayDays, rec.Score,
	)
	if err != nil {
		return fmt.Errorf("record estimate: %w", err)
	}
	return nil
}

// Stats aggregates the history per estimator.
func (r *Repository) Stats(ctx context.Context) (map[string]EstimatorStats, error) {
	const query = `SELECT estimator, COUNT(*), COALESCE(AVG(score), 0), COALESCE(AVG(price_med), 0)
		FROM estimates GROUP BY estimator`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query estimate stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]EstimatorStats)
	for rows.Next() {
		var estimator string
		var s EstimatorStats
		if err := rows.Scan(&estimator, &s.Count, &s.AvgScore, &s.AvgPriceMed); err != nil {
			return nil, fmt.Errorf("scan estimate stats: %w", err)
		}
		if estimator != EstimatorPriceTime {
			s.AvgPriceMed = 0
		}
		stats[estimator] = s
	}
	return stats, rows.Err()
}

// CountSince returns how many estimates were recorded after the cutoff.
func (r *Repository) CountSince(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM estimates WHERE created_at > ?`, cutoff,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recent estimates: %w", err)
	}
	return count, nil
}

// Recent returns the latest estimates, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]EstimateRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	const query = `SELECT id, created_at, estimator, category, sub_category,
		price_min, price_med, price_max, delay_days, score
		FROM estimates ORDER BY created_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent estimates: %w", err)
	}
	defer rows.Close()

	var records []EstimateRecord
	for rows.Next() {
		var rec EstimateRecord
		var sub sql.NullString
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.Estimator, &rec.Category, &sub,
			&rec.PriceMin, &rec.PriceMed, &rec.PriceMax, &rec.DelayDays, &rec.Score); err != nil {
			return nil, fmt.Errorf("scan estimate: %w", err)
		}
		rec.SubCategory = sub.String
		records = append(records, rec)
	}
	return records, rows.Err()
}
