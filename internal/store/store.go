package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/allocation-service/internal/domain"
	apperrors "github.com/spec-kit/allocation-service/pkg/util"
)

// Persister writes entity mutations through to durable storage. A nil
// Persister leaves the store memory-only. Multi-entity methods must apply
// their writes atomically so the durable copy never holds an assignment
// without its workload update.
type Persister interface {
	SaveStaff(ctx context.Context, staff domain.Staff) error
	DeleteStaff(ctx context.Context, id string) error
	SaveWorkItem(ctx context.Context, item domain.WorkItem) error
	DeleteWorkItem(ctx context.Context, id string, releasedStaff []domain.Staff) error
	CreateAssignment(ctx context.Context, a domain.Assignment, staff domain.Staff, item domain.WorkItem) error
	RemoveAssignment(ctx context.Context, assignmentID string, staff domain.Staff, item domain.WorkItem) error
}

// Store is the authoritative in-memory working set of staff, work items, and
// assignments. All mutations run under a single mutex; durable writes happen
// before the in-memory commit so a persistence failure leaves the store in
// its last consistent state.
type Store struct {
	mu             sync.Mutex
	staff          map[string]*domain.Staff
	items          map[string]*domain.WorkItem
	assignments    map[string]*domain.Assignment
	dismissed      map[string]bool
	persist        Persister
	allocationUnit int
	maxWorkload    int
	persistTimeout time.Duration
}

// New creates an empty store.
func New(allocationUnit, maxWorkload int, persistTimeout time.Duration, persist Persister) *Store {
	return &Store{
		staff:          make(map[string]*domain.Staff),
		items:          make(map[string]*domain.WorkItem),
		assignments:    make(map[string]*domain.Assignment),
		dismissed:      make(map[string]bool),
		persist:        persist,
		allocationUnit: allocationUnit,
		maxWorkload:    maxWorkload,
		persistTimeout: persistTimeout,
	}
}

func assignmentKey(staffID, workItemID string) string {
	return staffID + "|" + workItemID
}

// Hydrate loads a previously persisted working set. It replaces current
// contents and is intended for boot time only.
func (s *Store) Hydrate(staff []domain.Staff, items []domain.WorkItem, assignments []domain.Assignment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.staff = make(map[string]*domain.Staff, len(staff))
	for i := range staff {
		st := staff[i].Clone()
		s.staff[st.ID] = &st
	}
	s.items = make(map[string]*domain.WorkItem, len(items))
	for i := range items {
		it := items[i].Clone()
		s.items[it.ID] = &it
	}
	s.assignments = make(map[string]*domain.Assignment, len(assignments))
	for i := range assignments {
		a := assignments[i]
		s.assignments[assignmentKey(a.StaffID, a.WorkItemID)] = &a
	}
}

func (s *Store) persistCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.persistTimeout)
}

// UpsertStaff inserts or replaces a staff record.
func (s *Store) UpsertStaff(ctx context.Context, staff domain.Staff) (domain.Staff, error) {
	if staff.WorkloadPercent < 0 || staff.WorkloadPercent > 100 {
		return domain.Staff{}, apperrors.NewValidationError("workload percent out of range [0,100]", map[string]any{
			"workload_percent": staff.WorkloadPercent,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if staff.ID == "" {
		staff.ID = uuid.NewString()
		staff.CreatedAt = now
	} else if existing, ok := s.staff[staff.ID]; ok {
		staff.CreatedAt = existing.CreatedAt
	} else if staff.CreatedAt.IsZero() {
		staff.CreatedAt = now
	}
	staff.UpdatedAt = now

	if s.persist != nil {
		pctx, cancel := s.persistCtx(ctx)
		defer cancel()
		if err := s.persist.SaveStaff(pctx, staff); err != nil {
			return domain.Staff{}, apperrors.MapError(err)
		}
	}

	stored := staff.Clone()
	s.staff[stored.ID] = &stored
	return staff, nil
}

// DeleteStaff removes a staff record. Removal is rejected while assignments
// reference the staff member.
func (s *Store) DeleteStaff(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.staff[id]; !ok {
		return apperrors.NewNotFound("staff", map[string]any{"staff_id": id})
	}
	for _, a := range s.assignments {
		if a.StaffID == id {
			return apperrors.NewValidationError("staff has active assignments", map[string]any{
				"staff_id":     id,
				"work_item_id": a.WorkItemID,
			})
		}
	}

	if s.persist != nil {
		pctx, cancel := s.persistCtx(ctx)
		defer cancel()
		if err := s.persist.DeleteStaff(pctx, id); err != nil {
			return apperrors.MapError(err)
		}
	}

	delete(s.staff, id)
	return nil
}

// GetStaff returns a copy of the staff record.
func (s *Store) GetStaff(id string) (domain.Staff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	staff, ok := s.staff[id]
	if !ok {
		return domain.Staff{}, apperrors.NewNotFound("staff", map[string]any{"staff_id": id})
	}
	return staff.Clone(), nil
}

// UpsertWorkItem inserts or replaces a work item.
func (s *Store) UpsertWorkItem(ctx context.Context, item domain.WorkItem) (domain.WorkItem, error) {
	if len(item.RequiredSkills) == 0 {
		return domain.WorkItem{}, apperrors.NewValidationError("required skills must not be empty", nil)
	}
	if item.EstimatedHours <= 0 {
		return domain.WorkItem{}, apperrors.NewValidationError("estimated hours must be positive", map[string]any{
			"estimated_hours": item.EstimatedHours,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if item.ID == "" {
		item.ID = uuid.NewString()
		item.CreatedAt = now
	} else if existing, ok := s.items[item.ID]; ok {
		item.CreatedAt = existing.CreatedAt
		item.AssignedStaffIDs = append([]string(nil), existing.AssignedStaffIDs...)
	} else if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	item.Status = deriveStatus(&item)

	if s.persist != nil {
		pctx, cancel := s.persistCtx(ctx)
		defer cancel()
		if err := s.persist.SaveWorkItem(pctx, item); err != nil {
			return domain.WorkItem{}, apperrors.MapError(err)
		}
	}

	stored := item.Clone()
	s.items[stored.ID] = &stored
	return item, nil
}

// DeleteWorkItem removes a work item, releasing every assignee's workload.
func (s *Store) DeleteWorkItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return apperrors.NewNotFound("work item", map[string]any{"work_item_id": id})
	}

	released := make([]domain.Staff, 0, len(item.AssignedStaffIDs))
	releasedKeys := make([]string, 0, len(item.AssignedStaffIDs))
	for _, staffID := range item.AssignedStaffIDs {
		key := assignmentKey(staffID, id)
		a, ok := s.assignments[key]
		if !ok {
			continue
		}
		staff, ok := s.staff[staffID]
		if !ok {
			continue
		}
		updated := staff.Clone()
		updated.WorkloadPercent -= a.WorkloadDelta
		if updated.WorkloadPercent < 0 {
			updated.WorkloadPercent = 0
		}
		updated.UpdatedAt = time.Now()
		released = append(released, updated)
		releasedKeys = append(releasedKeys, key)
	}

	if s.persist != nil {
		pctx, cancel := s.persistCtx(ctx)
		defer cancel()
		if err := s.persist.DeleteWorkItem(pctx, id, released); err != nil {
			return apperrors.MapError(err)
		}
	}

	for i := range released {
		staff := released[i]
		s.staff[staff.ID] = &staff
	}
	for _, key := range releasedKeys {
		delete(s.assignments, key)
	}
	delete(s.items, id)
	return nil
}

// GetWorkItem returns a copy of the work item.
func (s *Store) GetWorkItem(id string) (domain.WorkItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return domain.WorkItem{}, apperrors.NewNotFound("work item", map[string]any{"work_item_id": id})
	}
	return item.Clone(), nil
}

// Assign creates an assignment and applies its workload delta atomically.
// The capacity ceiling is enforced here, under the lock, so concurrent
// assigns for the same staff member cannot both observe headroom and commit
// past it. Forced assigns bypass the ceiling and instead clip the delta at
// the 100% cap; the applied value is recorded on the assignment so Unassign
// reverses it exactly.
func (s *Store) Assign(ctx context.Context, staffID, workItemID string, forced bool) (domain.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	staff, ok := s.staff[staffID]
	if !ok {
		return domain.Assignment{}, apperrors.NewNotFound("staff", map[string]any{"staff_id": staffID})
	}
	item, ok := s.items[workItemID]
	if !ok {
		return domain.Assignment{}, apperrors.NewNotFound("work item", map[string]any{"work_item_id": workItemID})
	}
	key := assignmentKey(staffID, workItemID)
	if _, exists := s.assignments[key]; exists {
		return domain.Assignment{}, apperrors.NewAlreadyAssigned(staffID, workItemID)
	}

	delta := s.allocationUnit
	if forced {
		if staff.WorkloadPercent+delta > 100 {
			delta = 100 - staff.WorkloadPercent
		}
	} else if staff.WorkloadPercent+delta > s.maxWorkload {
		return domain.Assignment{}, apperrors.NewCapacityExceeded("workload would exceed maximum", map[string]any{
			"staff_id":         staffID,
			"workload_percent": staff.WorkloadPercent,
			"max_workload":     s.maxWorkload,
		})
	}

	assignment := domain.Assignment{
		ID:            uuid.NewString(),
		StaffID:       staffID,
		WorkItemID:    workItemID,
		WorkloadDelta: delta,
		Forced:        forced,
		CreatedAt:     time.Now(),
	}

	updatedStaff := staff.Clone()
	updatedStaff.WorkloadPercent += delta
	updatedStaff.UpdatedAt = assignment.CreatedAt

	updatedItem := item.Clone()
	updatedItem.AssignedStaffIDs = append(updatedItem.AssignedStaffIDs, staffID)
	updatedItem.Status = deriveStatus(&updatedItem)
	updatedItem.UpdatedAt = assignment.CreatedAt

	if s.persist != nil {
		pctx, cancel := s.persistCtx(ctx)
		defer cancel()
		if err := s.persist.CreateAssignment(pctx, assignment, updatedStaff, updatedItem); err != nil {
			return domain.Assignment{}, apperrors.MapError(err)
		}
	}

	s.staff[staffID] = &updatedStaff
	s.items[workItemID] = &updatedItem
	s.assignments[key] = &assignment
	return assignment, nil
}

// Unassign removes an assignment and reverses its workload delta.
func (s *Store) Unassign(ctx context.Context, staffID, workItemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := assignmentKey(staffID, workItemID)
	assignment, ok := s.assignments[key]
	if !ok {
		return apperrors.NewNotFound("assignment", map[string]any{
			"staff_id":     staffID,
			"work_item_id": workItemID,
		})
	}
	staff, ok := s.staff[staffID]
	if !ok {
		return apperrors.NewNotFound("staff", map[string]any{"staff_id": staffID})
	}
	item, ok := s.items[workItemID]
	if !ok {
		return apperrors.NewNotFound("work item", map[string]any{"work_item_id": workItemID})
	}

	now := time.Now()
	updatedStaff := staff.Clone()
	updatedStaff.WorkloadPercent -= assignment.WorkloadDelta
	if updatedStaff.WorkloadPercent < 0 {
		updatedStaff.WorkloadPercent = 0
	}
	updatedStaff.UpdatedAt = now

	updatedItem := item.Clone()
	assignees := updatedItem.AssignedStaffIDs[:0]
	for _, id := range updatedItem.AssignedStaffIDs {
		if id != staffID {
			assignees = append(assignees, id)
		}
	}
	updatedItem.AssignedStaffIDs = assignees
	updatedItem.Status = deriveStatus(&updatedItem)
	updatedItem.UpdatedAt = now

	if s.persist != nil {
		pctx, cancel := s.persistCtx(ctx)
		defer cancel()
		if err := s.persist.RemoveAssignment(pctx, assignment.ID, updatedStaff, updatedItem); err != nil {
			return apperrors.MapError(err)
		}
	}

	s.staff[staffID] = &updatedStaff
	s.items[workItemID] = &updatedItem
	delete(s.assignments, key)
	return nil
}

// Dismiss records an acknowledgement for a derived conflict id. Returns false
// when the id was already dismissed.
func (s *Store) Dismiss(conflictID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dismissed[conflictID] {
		return false
	}
	s.dismissed[conflictID] = true
	return true
}

// PruneDismissed drops dismissal flags for conflict ids no longer detected.
func (s *Store) PruneDismissed(active map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.dismissed {
		if !active[id] {
			delete(s.dismissed, id)
		}
	}
}

// deriveStatus recomputes assignment-driven statuses. In-progress and
// completed are externally managed states and stay as set.
func deriveStatus(item *domain.WorkItem) domain.WorkItemStatus {
	switch item.Status {
	case domain.WorkItemStatusInProgress, domain.WorkItemStatusCompleted:
		return item.Status
	}
	if len(item.AssignedStaffIDs) == 0 {
		return domain.WorkItemStatusUnassigned
	}
	return domain.WorkItemStatusAssigned
}

// Snapshot is a consistent deep copy of the working set for read-only
// scoring and detection.
type Snapshot struct {
	Staff       map[string]domain.Staff
	WorkItems   map[string]domain.WorkItem
	Assignments []domain.Assignment
	Dismissed   map[string]bool
	TakenAt     time.Time
}

// Snapshot copies the current state under the lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Staff:       make(map[string]domain.Staff, len(s.staff)),
		WorkItems:   make(map[string]domain.WorkItem, len(s.items)),
		Assignments: make([]domain.Assignment, 0, len(s.assignments)),
		Dismissed:   make(map[string]bool, len(s.dismissed)),
		TakenAt:     time.Now(),
	}
	for id, staff := range s.staff {
		snap.Staff[id] = staff.Clone()
	}
	for id, item := range s.items {
		snap.WorkItems[id] = item.Clone()
	}
	for _, a := range s.assignments {
		snap.Assignments = append(snap.Assignments, *a)
	}
	sort.Slice(snap.Assignments, func(i, j int) bool {
		if snap.Assignments[i].StaffID != snap.Assignments[j].StaffID {
			return snap.Assignments[i].StaffID < snap.Assignments[j].StaffID
		}
		return snap.Assignments[i].WorkItemID < snap.Assignments[j].WorkItemID
	})
	for id := range s.dismissed {
		snap.Dismissed[id] = true
	}
	return snap
}

// StaffSorted returns snapshot staff ordered by id for deterministic scans.
func (snap Snapshot) StaffSorted() []domain.Staff {
	out := make([]domain.Staff, 0, len(snap.Staff))
	for _, staff := range snap.Staff {
		out = append(out, staff)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// WorkItemsSorted returns snapshot work items ordered by id.
func (snap Snapshot) WorkItemsSorted() []domain.WorkItem {
	out := make([]domain.WorkItem, 0, len(snap.WorkItems))
	for _, item := range snap.WorkItems {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AssignmentsForStaff returns the snapshot assignments held by a staff member.
func (snap Snapshot) AssignmentsForStaff(staffID string) []domain.Assignment {
	var out []domain.Assignment
	for _, a := range snap.Assignments {
		if a.StaffID == staffID {
			out = append(out, a)
		}
	}
	return out
}

// AssignmentFor returns the snapshot assignment for a pair, if any.
func (snap Snapshot) AssignmentFor(staffID, workItemID string) (domain.Assignment, bool) {
	for _, a := range snap.Assignments {
		if a.StaffID == staffID && a.WorkItemID == workItemID {
			return a, true
		}
	}
	return domain.Assignment{}, false
}
