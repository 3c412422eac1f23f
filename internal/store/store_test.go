package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/allocation-service/internal/domain"
	apperrors "github.com/spec-kit/allocation-service/pkg/util"
)

func newTestStore() *Store {
	return New(20, 80, time.Second, nil)
}

func seedStaff(t *testing.T, s *Store, id string, workload int) domain.Staff {
	t.Helper()
	staff, err := s.UpsertStaff(context.Background(), domain.Staff{
		ID:              id,
		Name:            "Staff " + id,
		Skills:          []string{"ops"},
		Level:           domain.StaffLevelMid,
		WorkloadPercent: workload,
		Availability:    domain.AvailabilityAvailable,
		EfficiencyScore: 80,
	})
	require.NoError(t, err)
	return staff
}

func seedWorkItem(t *testing.T, s *Store, id string) domain.WorkItem {
	t.Helper()
	item, err := s.UpsertWorkItem(context.Background(), domain.WorkItem{
		ID:             id,
		Name:           "Item " + id,
		RequiredSkills: []string{"ops"},
		Priority:       domain.WorkItemPriorityMedium,
		Deadline:       time.Now().AddDate(0, 0, 14),
		EstimatedHours: 16,
	})
	require.NoError(t, err)
	return item
}

func TestUpsertStaffValidation(t *testing.T) {
	s := newTestStore()

	_, err := s.UpsertStaff(context.Background(), domain.Staff{Name: "Jo", WorkloadPercent: 120})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))

	_, err = s.UpsertStaff(context.Background(), domain.Staff{Name: "Jo", WorkloadPercent: -5})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))
}

func TestUpsertStaffGeneratesID(t *testing.T) {
	s := newTestStore()

	staff, err := s.UpsertStaff(context.Background(), domain.Staff{Name: "Jo", WorkloadPercent: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, staff.ID)
	assert.False(t, staff.CreatedAt.IsZero())
}

func TestUpsertWorkItemValidation(t *testing.T) {
	s := newTestStore()

	_, err := s.UpsertWorkItem(context.Background(), domain.WorkItem{
		Name: "no skills", Deadline: time.Now().AddDate(0, 0, 7), EstimatedHours: 8,
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))

	_, err = s.UpsertWorkItem(context.Background(), domain.WorkItem{
		Name: "no hours", RequiredSkills: []string{"ops"}, Deadline: time.Now().AddDate(0, 0, 7),
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))
}

func TestUpsertWorkItemPreservesAssignees(t *testing.T) {
	s := newTestStore()
	seedStaff(t, s, "staff-a", 40)
	item := seedWorkItem(t, s, "item-1")

	_, err := s.Assign(context.Background(), "staff-a", "item-1", false)
	require.NoError(t, err)

	item.Name = "Renamed"
	item.AssignedStaffIDs = nil
	updated, err := s.UpsertWorkItem(context.Background(), item)
	require.NoError(t, err)

	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, []string{"staff-a"}, updated.AssignedStaffIDs)
	assert.Equal(t, domain.WorkItemStatusAssigned, updated.Status)
}

func TestAssignRoundTrip(t *testing.T) {
	s := newTestStore()
	seedStaff(t, s, "staff-a", 40)
	seedWorkItem(t, s, "item-1")

	assignment, err := s.Assign(context.Background(), "staff-a", "item-1", false)
	require.NoError(t, err)
	assert.Equal(t, 20, assignment.WorkloadDelta)

	staff, err := s.GetStaff("staff-a")
	require.NoError(t, err)
	assert.Equal(t, 60, staff.WorkloadPercent)

	item, err := s.GetWorkItem("item-1")
	require.NoError(t, err)
	assert.Equal(t, domain.WorkItemStatusAssigned, item.Status)
	assert.Equal(t, []string{"staff-a"}, item.AssignedStaffIDs)

	require.NoError(t, s.Unassign(context.Background(), "staff-a", "item-1"))

	staff, err = s.GetStaff("staff-a")
	require.NoError(t, err)
	assert.Equal(t, 40, staff.WorkloadPercent)

	item, err = s.GetWorkItem("item-1")
	require.NoError(t, err)
	assert.Equal(t, domain.WorkItemStatusUnassigned, item.Status)
	assert.Empty(t, item.AssignedStaffIDs)
}

func TestAssignRejectsOverCapacity(t *testing.T) {
	s := newTestStore()
	seedStaff(t, s, "staff-a", 70)
	seedWorkItem(t, s, "item-1")

	_, err := s.Assign(context.Background(), "staff-a", "item-1", false)
	require.Error(t, err)
	assert.Equal(t, "CAPACITY_EXCEEDED", apperrors.CodeOf(err))

	staff, err := s.GetStaff("staff-a")
	require.NoError(t, err)
	assert.Equal(t, 70, staff.WorkloadPercent, "rejected assign must not change workload")
	assert.Empty(t, s.Snapshot().Assignments)
}

func TestForcedAssignClipsDeltaAtCap(t *testing.T) {
	s := newTestStore()
	seedStaff(t, s, "staff-a", 90)
	seedWorkItem(t, s, "item-1")

	// Forced assigns bypass the ceiling but never push past 100%.
	assignment, err := s.Assign(context.Background(), "staff-a", "item-1", true)
	require.NoError(t, err)
	assert.Equal(t, 10, assignment.WorkloadDelta)

	staff, err := s.GetStaff("staff-a")
	require.NoError(t, err)
	assert.Equal(t, 100, staff.WorkloadPercent)

	// Reversal restores the pre-assignment workload exactly.
	require.NoError(t, s.Unassign(context.Background(), "staff-a", "item-1"))
	staff, err = s.GetStaff("staff-a")
	require.NoError(t, err)
	assert.Equal(t, 90, staff.WorkloadPercent)
}

func TestConcurrentAssignsRespectCapacity(t *testing.T) {
	s := newTestStore()
	seedStaff(t, s, "staff-a", 60)
	seedWorkItem(t, s, "item-1")
	seedWorkItem(t, s, "item-2")

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, itemID := range []string{"item-1", "item-2"} {
		wg.Add(1)
		go func(i int, itemID string) {
			defer wg.Done()
			_, errs[i] = s.Assign(context.Background(), "staff-a", itemID, false)
		}(i, itemID)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.Equal(t, "CAPACITY_EXCEEDED", apperrors.CodeOf(err))
			rejected++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	staff, err := s.GetStaff("staff-a")
	require.NoError(t, err)
	assert.Equal(t, 80, staff.WorkloadPercent)
	assert.Len(t, s.Snapshot().Assignments, 1)
}

func TestAssignDuplicateRejected(t *testing.T) {
	s := newTestStore()
	seedStaff(t, s, "staff-a", 40)
	seedWorkItem(t, s, "item-1")

	_, err := s.Assign(context.Background(), "staff-a", "item-1", false)
	require.NoError(t, err)

	_, err = s.Assign(context.Background(), "staff-a", "item-1", false)
	require.Error(t, err)
	assert.Equal(t, "ALREADY_ASSIGNED", apperrors.CodeOf(err))

	staff, err := s.GetStaff("staff-a")
	require.NoError(t, err)
	assert.Equal(t, 60, staff.WorkloadPercent, "failed assign must not change workload")
}

func TestAssignUnknownEntities(t *testing.T) {
	s := newTestStore()
	seedStaff(t, s, "staff-a", 40)
	seedWorkItem(t, s, "item-1")

	_, err := s.Assign(context.Background(), "ghost", "item-1", false)
	assert.Equal(t, "NOT_FOUND", apperrors.CodeOf(err))

	_, err = s.Assign(context.Background(), "staff-a", "ghost", false)
	assert.Equal(t, "NOT_FOUND", apperrors.CodeOf(err))
}

func TestDeleteStaffRejectedWhileAssigned(t *testing.T) {
	s := newTestStore()
	seedStaff(t, s, "staff-a", 40)
	seedWorkItem(t, s, "item-1")

	_, err := s.Assign(context.Background(), "staff-a", "item-1", false)
	require.NoError(t, err)

	err = s.DeleteStaff(context.Background(), "staff-a")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))

	require.NoError(t, s.Unassign(context.Background(), "staff-a", "item-1"))
	require.NoError(t, s.DeleteStaff(context.Background(), "staff-a"))
}

func TestDeleteWorkItemReleasesAssignees(t *testing.T) {
	s := newTestStore()
	seedStaff(t, s, "staff-a", 40)
	seedStaff(t, s, "staff-b", 55)
	seedWorkItem(t, s, "item-1")

	_, err := s.Assign(context.Background(), "staff-a", "item-1", false)
	require.NoError(t, err)
	_, err = s.Assign(context.Background(), "staff-b", "item-1", false)
	require.NoError(t, err)

	require.NoError(t, s.DeleteWorkItem(context.Background(), "item-1"))

	staffA, err := s.GetStaff("staff-a")
	require.NoError(t, err)
	assert.Equal(t, 40, staffA.WorkloadPercent)

	staffB, err := s.GetStaff("staff-b")
	require.NoError(t, err)
	assert.Equal(t, 55, staffB.WorkloadPercent)

	snap := s.Snapshot()
	assert.Empty(t, snap.Assignments)
	_, err = s.GetWorkItem("item-1")
	assert.Equal(t, "NOT_FOUND", apperrors.CodeOf(err))
}

func TestDismissIdempotent(t *testing.T) {
	s := newTestStore()

	assert.True(t, s.Dismiss("time:staff-a:item-1:item-2"))
	assert.False(t, s.Dismiss("time:staff-a:item-1:item-2"))

	snap := s.Snapshot()
	assert.True(t, snap.Dismissed["time:staff-a:item-1:item-2"])
}

func TestPruneDismissed(t *testing.T) {
	s := newTestStore()
	s.Dismiss("resource:staff-a")
	s.Dismiss("skill:staff-b:item-9")

	s.PruneDismissed(map[string]bool{"resource:staff-a": true})

	snap := s.Snapshot()
	assert.True(t, snap.Dismissed["resource:staff-a"])
	assert.False(t, snap.Dismissed["skill:staff-b:item-9"])
}

func TestSnapshotIsolation(t *testing.T) {
	s := newTestStore()
	seedStaff(t, s, "staff-a", 40)
	seedWorkItem(t, s, "item-1")

	snap := s.Snapshot()
	mutated := snap.Staff["staff-a"]
	mutated.WorkloadPercent = 99
	mutated.Skills[0] = "tampered"
	snap.Staff["staff-a"] = mutated
	delete(snap.WorkItems, "item-1")

	staff, err := s.GetStaff("staff-a")
	require.NoError(t, err)
	assert.Equal(t, 40, staff.WorkloadPercent)
	assert.Equal(t, []string{"ops"}, staff.Skills)

	_, err = s.GetWorkItem("item-1")
	assert.NoError(t, err)
}

func TestHydrateReplacesState(t *testing.T) {
	s := newTestStore()
	seedStaff(t, s, "old-staff", 10)

	s.Hydrate(
		[]domain.Staff{{ID: "staff-a", Name: "Asha", Skills: []string{"ops"}, WorkloadPercent: 60, Availability: domain.AvailabilityAvailable, EfficiencyScore: 75}},
		[]domain.WorkItem{{ID: "item-1", Name: "Survey", RequiredSkills: []string{"ops"}, Deadline: time.Now().AddDate(0, 0, 7), EstimatedHours: 8, AssignedStaffIDs: []string{"staff-a"}, Status: domain.WorkItemStatusAssigned}},
		[]domain.Assignment{{ID: "a1", StaffID: "staff-a", WorkItemID: "item-1", WorkloadDelta: 20}},
	)

	_, err := s.GetStaff("old-staff")
	assert.Equal(t, "NOT_FOUND", apperrors.CodeOf(err))

	staff, err := s.GetStaff("staff-a")
	require.NoError(t, err)
	assert.Equal(t, 60, staff.WorkloadPercent)

	snap := s.Snapshot()
	require.Len(t, snap.Assignments, 1)
	assert.Equal(t, 20, snap.Assignments[0].WorkloadDelta)
}

// failingPersister simulates a durable write error on assignment creation.
type failingPersister struct{}

func (failingPersister) SaveStaff(context.Context, domain.Staff) error       { return nil }
func (failingPersister) DeleteStaff(context.Context, string) error           { return nil }
func (failingPersister) SaveWorkItem(context.Context, domain.WorkItem) error { return nil }
func (failingPersister) DeleteWorkItem(context.Context, string, []domain.Staff) error {
	return nil
}
func (failingPersister) CreateAssignment(context.Context, domain.Assignment, domain.Staff, domain.WorkItem) error {
	return assert.AnError
}
func (failingPersister) RemoveAssignment(context.Context, string, domain.Staff, domain.WorkItem) error {
	return assert.AnError
}

func TestAssignPersistFailureLeavesStoreUnchanged(t *testing.T) {
	s := New(20, 80, time.Second, failingPersister{})
	seedStaff(t, s, "staff-a", 40)
	seedWorkItem(t, s, "item-1")

	_, err := s.Assign(context.Background(), "staff-a", "item-1", false)
	require.Error(t, err)
	assert.Equal(t, "INTERNAL_ERROR", apperrors.CodeOf(err))

	staff, err := s.GetStaff("staff-a")
	require.NoError(t, err)
	assert.Equal(t, 40, staff.WorkloadPercent)

	item, err := s.GetWorkItem("item-1")
	require.NoError(t, err)
	assert.Empty(t, item.AssignedStaffIDs)
	assert.Equal(t, domain.WorkItemStatusUnassigned, item.Status)
}
