package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/allocation-service/internal/domain"
)

// WorkItemRepository handles persistence for work items. Assignee lists are
// derived from the assignments table on load rather than stored.
type WorkItemRepository interface {
	Save(ctx context.Context, item domain.WorkItem) error
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]domain.WorkItem, error)
}

type workItemRepository struct {
	pool *pgxpool.Pool
}

// NewWorkItemRepository instantiates the repository.
func NewWorkItemRepository(pool *pgxpool.Pool) WorkItemRepository {
	return &workItemRepository{pool: pool}
}

func (r *workItemRepository) Save(ctx context.Context, item domain.WorkItem) error {
	const query = `
        INSERT INTO work_items (id, name, required_skills, priority, start_date, deadline, estimated_hours,
            status, season, weather_dependency, region, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        ON CONFLICT (id) DO UPDATE SET
            name=EXCLUDED.name, required_skills=EXCLUDED.required_skills, priority=EXCLUDED.priority,
            start_date=EXCLUDED.start_date, deadline=EXCLUDED.deadline,
            estimated_hours=EXCLUDED.estimated_hours, status=EXCLUDED.status,
            season=EXCLUDED.season, weather_dependency=EXCLUDED.weather_dependency,
            region=EXCLUDED.region, updated_at=EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		item.ID,
		item.Name,
		item.RequiredSkills,
		item.Priority,
		item.StartDate,
		item.Deadline,
		item.EstimatedHours,
		item.Status,
		item.Season,
		item.WeatherDependency,
		item.Region,
		item.CreatedAt,
		item.UpdatedAt,
	)
	return err
}

func (r *workItemRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM work_items WHERE id=$1`, id)
	return err
}

func (r *workItemRepository) ListAll(ctx context.Context) ([]domain.WorkItem, error) {
	const query = `
        SELECT w.id, w.name, w.required_skills, w.priority, w.start_date, w.deadline, w.estimated_hours,
            w.status, w.season, w.weather_dependency, w.region, w.created_at, w.updated_at,
            COALESCE(array_agg(a.staff_id ORDER BY a.created_at) FILTER (WHERE a.staff_id IS NOT NULL), '{}')
        FROM work_items w
        LEFT JOIN assignments a ON a.work_item_id = w.id
        GROUP BY w.id
        ORDER BY w.created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.WorkItem
	for rows.Next() {
		var item domain.WorkItem
		if err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.RequiredSkills,
			&item.Priority,
			&item.StartDate,
			&item.Deadline,
			&item.EstimatedHours,
			&item.Status,
			&item.Season,
			&item.WeatherDependency,
			&item.Region,
			&item.CreatedAt,
			&item.UpdatedAt,
			&item.AssignedStaffIDs,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
