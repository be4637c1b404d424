package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akave-ai/hooklog/internal/model"
)

// TestSuiteRepository reads the test_suites table.
type TestSuiteRepository struct {
	pool *pgxpool.Pool
}

// NewTestSuiteRepository returns a TestSuiteRepository using the given pool.
func NewTestSuiteRepository(pool *pgxpool.Pool) *TestSuiteRepository {
	return &TestSuiteRepository{pool: pool}
}

// List returns all test suites ordered by status, newest first within a status.
func (r *TestSuiteRepository) List(ctx context.Context) ([]model.TestSuite, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, status, created_at, updated_at
		FROM test_suites
		ORDER BY status ASC, created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []model.TestSuite{}
	for rows.Next() {
		var s model.TestSuite
		if err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Description,
			&s.Status,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}
