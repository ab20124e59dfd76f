package repository

import (
	"context"
	"time"

	"github.com/visitrack/visitrack/internal/model"
)

// VisitRepository stores visit records in PostgreSQL.
type VisitRepository struct {
	repo *Repository
}

// NewVisitRepository creates a new VisitRepository.
func NewVisitRepository(repo *Repository) *VisitRepository {
	return &VisitRepository{repo: repo}
}

// Insert writes one visit row and returns its id.
// visit_month and visit_year are derived from at in UTC.
func (r *VisitRepository) Insert(ctx context.Context, ipAddress string, userAgent *string, at time.Time) (int64, error) {
	rec := model.NewVisitRecord(ipAddress, userAgent, at)

	query := `
		INSERT INTO visitor (ip_address, user_agent, "timestamp", visit_month, visit_year)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.repo.pool.QueryRow(ctx, query,
		rec.IPAddress,
		rec.UserAgent,
		rec.Timestamp,
		rec.VisitMonth,
		rec.VisitYear,
	).Scan(&id)
	if err != nil {
		return 0, NewStorageError(OpInsert, err)
	}

	return id, nil
}

// CountDistinctVisitors returns the number of distinct ip_address values in a period.
// month and year are not range checked; values outside int4 simply match nothing.
func (r *VisitRepository) CountDistinctVisitors(ctx context.Context, month, year int) (int64, error) {
	query := `
		SELECT COUNT(DISTINCT ip_address)
		FROM visitor
		WHERE visit_month = $1::bigint AND visit_year = $2::bigint
	`

	var count int64
	if err := r.repo.pool.QueryRow(ctx, query, month, year).Scan(&count); err != nil {
		return 0, NewStorageError(OpCountDistinct, err)
	}

	return count, nil
}
