package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/allocation-service/internal/domain"
)

// StaffRepository handles persistence for staff members.
type StaffRepository interface {
	Save(ctx context.Context, staff domain.Staff) error
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]domain.Staff, error)
}

type staffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository instantiates the repository.
func NewStaffRepository(pool *pgxpool.Pool) StaffRepository {
	return &staffRepository{pool: pool}
}

func (r *staffRepository) Save(ctx context.Context, staff domain.Staff) error {
	const query = `
        INSERT INTO staff_members (id, name, skills, level, workload_percent, availability, efficiency_score,
            hourly_rate, region, seasonal_preference, weather_suitability, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        ON CONFLICT (id) DO UPDATE SET
            name=EXCLUDED.name, skills=EXCLUDED.skills, level=EXCLUDED.level,
            workload_percent=EXCLUDED.workload_percent, availability=EXCLUDED.availability,
            efficiency_score=EXCLUDED.efficiency_score, hourly_rate=EXCLUDED.hourly_rate,
            region=EXCLUDED.region, seasonal_preference=EXCLUDED.seasonal_preference,
            weather_suitability=EXCLUDED.weather_suitability, updated_at=EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		staff.ID,
		staff.Name,
		staff.Skills,
		staff.Level,
		staff.WorkloadPercent,
		staff.Availability,
		staff.EfficiencyScore,
		staff.HourlyRate,
		staff.Region,
		staff.SeasonalPreference,
		staff.WeatherSuitability,
		staff.CreatedAt,
		staff.UpdatedAt,
	)
	return err
}

func (r *staffRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM staff_members WHERE id=$1`, id)
	return err
}

func (r *staffRepository) ListAll(ctx context.Context) ([]domain.Staff, error) {
	const query = `
        SELECT id, name, skills, level, workload_percent, availability, efficiency_score,
            hourly_rate, region, seasonal_preference, weather_suitability, created_at, updated_at
        FROM staff_members ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Staff
	for rows.Next() {
		var staff domain.Staff
		if err := rows.Scan(
			&staff.ID,
			&staff.Name,
			&staff.Skills,
			&staff.Level,
			&staff.WorkloadPercent,
			&staff.Availability,
			&staff.EfficiencyScore,
			&staff.HourlyRate,
			&staff.Region,
			&staff.SeasonalPreference,
			&staff.WeatherSuitability,
			&staff.CreatedAt,
			&staff.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, staff)
	}
	return result, rows.Err()
}
