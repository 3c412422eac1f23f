package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/allocation-service/internal/domain"
)

// AssignmentRepository handles persistence for assignment records.
type AssignmentRepository interface {
	ListAll(ctx context.Context) ([]domain.Assignment, error)
}

type assignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository instantiates the repository.
func NewAssignmentRepository(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepository{pool: pool}
}

func (r *assignmentRepository) ListAll(ctx context.Context) ([]domain.Assignment, error) {
	const query = `
        SELECT id, staff_id, work_item_id, workload_delta, forced, created_at
        FROM assignments ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		if err := rows.Scan(
			&a.ID,
			&a.StaffID,
			&a.WorkItemID,
			&a.WorkloadDelta,
			&a.Forced,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
