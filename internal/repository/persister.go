package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/allocation-service/internal/domain"
)

// PgxPersister writes store mutations through to Postgres. Assignment
// mutations touch three tables and run in one transaction so the durable
// copy never holds an assignment without its workload update.
type PgxPersister struct {
	pool  *pgxpool.Pool
	staff StaffRepository
	items WorkItemRepository
}

// NewPgxPersister creates the persister.
func NewPgxPersister(pool *pgxpool.Pool) *PgxPersister {
	return &PgxPersister{
		pool:  pool,
		staff: NewStaffRepository(pool),
		items: NewWorkItemRepository(pool),
	}
}

// SaveStaff upserts a staff record.
func (p *PgxPersister) SaveStaff(ctx context.Context, staff domain.Staff) error {
	return p.staff.Save(ctx, staff)
}

// DeleteStaff removes a staff record.
func (p *PgxPersister) DeleteStaff(ctx context.Context, id string) error {
	return p.staff.Delete(ctx, id)
}

// SaveWorkItem upserts a work item.
func (p *PgxPersister) SaveWorkItem(ctx context.Context, item domain.WorkItem) error {
	return p.items.Save(ctx, item)
}

// DeleteWorkItem removes a work item and restores released staff workloads
// in one transaction. Assignment rows cascade via foreign key.
func (p *PgxPersister) DeleteWorkItem(ctx context.Context, id string, releasedStaff []domain.Staff) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, staff := range releasedStaff {
		if _, err := tx.Exec(ctx,
			`UPDATE staff_members SET workload_percent=$1, updated_at=$2 WHERE id=$3`,
			staff.WorkloadPercent, staff.UpdatedAt, staff.ID,
		); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM work_items WHERE id=$1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CreateAssignment inserts the assignment and applies the staff and work item
// updates atomically.
func (p *PgxPersister) CreateAssignment(ctx context.Context, a domain.Assignment, staff domain.Staff, item domain.WorkItem) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO assignments (id, staff_id, work_item_id, workload_delta, forced, created_at)
         VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.StaffID, a.WorkItemID, a.WorkloadDelta, a.Forced, a.CreatedAt,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE staff_members SET workload_percent=$1, updated_at=$2 WHERE id=$3`,
		staff.WorkloadPercent, staff.UpdatedAt, staff.ID,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE work_items SET status=$1, updated_at=$2 WHERE id=$3`,
		item.Status, item.UpdatedAt, item.ID,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RemoveAssignment deletes the assignment and reverses the staff and work
// item updates atomically.
func (p *PgxPersister) RemoveAssignment(ctx context.Context, assignmentID string, staff domain.Staff, item domain.WorkItem) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM assignments WHERE id=$1`, assignmentID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE staff_members SET workload_percent=$1, updated_at=$2 WHERE id=$3`,
		staff.WorkloadPercent, staff.UpdatedAt, staff.ID,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE work_items SET status=$1, updated_at=$2 WHERE id=$3`,
		item.Status, item.UpdatedAt, item.ID,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
