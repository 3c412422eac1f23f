package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/allocation-service/internal/domain"
	"github.com/spec-kit/allocation-service/internal/store"
)

func newTestDetector(threshold float64) *Detector {
	cfg := testEngineConfig()
	if threshold > 0 {
		cfg.MinSkillMatchThreshold = threshold
	}
	return NewDetector(cfg, NewScorer(cfg), NewGate(cfg))
}

func daysFromNow(days int) time.Time {
	return time.Now().AddDate(0, 0, days)
}

func snapshotWith(staff []domain.Staff, items []domain.WorkItem, assignments []domain.Assignment) store.Snapshot {
	snap := store.Snapshot{
		Staff:       make(map[string]domain.Staff),
		WorkItems:   make(map[string]domain.WorkItem),
		Assignments: assignments,
		Dismissed:   make(map[string]bool),
		TakenAt:     time.Now(),
	}
	for _, s := range staff {
		snap.Staff[s.ID] = s
	}
	for _, w := range items {
		snap.WorkItems[w.ID] = w
	}
	return snap
}

func overlappingItems() []domain.WorkItem {
	startA := daysFromNow(1)
	startB := daysFromNow(3)
	return []domain.WorkItem{
		{
			ID: "item-a", Name: "Roof survey", RequiredSkills: []string{"survey"},
			Priority: domain.WorkItemPriorityLow, StartDate: &startA, Deadline: daysFromNow(7),
			EstimatedHours: 16, AssignedStaffIDs: []string{"staff-a"},
		},
		{
			ID: "item-b", Name: "Site inspection", RequiredSkills: []string{"survey"},
			Priority: domain.WorkItemPriorityLow, StartDate: &startB, Deadline: daysFromNow(9),
			EstimatedHours: 16, AssignedStaffIDs: []string{"staff-a"},
		},
	}
}

func TestDetectTimeConflict(t *testing.T) {
	detector := newTestDetector(0)

	staff := domain.Staff{
		ID: "staff-a", Name: "Asha", Skills: []string{"survey"},
		WorkloadPercent: 40, Availability: domain.AvailabilityAvailable, EfficiencyScore: 80,
	}
	items := overlappingItems()
	assignments := []domain.Assignment{
		{ID: "a1", StaffID: "staff-a", WorkItemID: "item-a", WorkloadDelta: 20},
		{ID: "a2", StaffID: "staff-a", WorkItemID: "item-b", WorkloadDelta: 20},
	}

	conflicts := detector.Detect(snapshotWith([]domain.Staff{staff}, items, assignments))

	var timeConflicts []domain.Conflict
	for _, c := range conflicts {
		if c.Type == domain.ConflictTypeTime {
			timeConflicts = append(timeConflicts, c)
		}
	}
	require.Len(t, timeConflicts, 1)

	c := timeConflicts[0]
	assert.True(t, c.References("item-a"))
	assert.True(t, c.References("item-b"))
	assert.Equal(t, []string{"staff-a"}, c.AffectedStaffIDs)
	assert.False(t, c.Resolved)
}

func TestDetectNoTimeConflictWhenDisjoint(t *testing.T) {
	detector := newTestDetector(0)

	staff := domain.Staff{
		ID: "staff-a", Name: "Asha", Skills: []string{"survey"},
		WorkloadPercent: 40, Availability: domain.AvailabilityAvailable, EfficiencyScore: 80,
	}
	items := overlappingItems()
	laterStart := daysFromNow(20)
	items[1].StartDate = &laterStart
	items[1].Deadline = daysFromNow(25)

	assignments := []domain.Assignment{
		{ID: "a1", StaffID: "staff-a", WorkItemID: "item-a", WorkloadDelta: 20},
		{ID: "a2", StaffID: "staff-a", WorkItemID: "item-b", WorkloadDelta: 20},
	}

	conflicts := detector.Detect(snapshotWith([]domain.Staff{staff}, items, assignments))
	for _, c := range conflicts {
		assert.NotEqual(t, domain.ConflictTypeTime, c.Type)
	}
}

func TestDetectSkillConflictWithSuggestion(t *testing.T) {
	detector := newTestDetector(0.5)

	start := daysFromNow(30)
	item := domain.WorkItem{
		ID: "item-x", Name: "Turbine repair", RequiredSkills: []string{"welding", "rigging", "hydraulics", "inspection", "logistics"},
		Priority: domain.WorkItemPriorityLow, StartDate: &start, Deadline: daysFromNow(40),
		EstimatedHours: 16, AssignedStaffIDs: []string{"staff-weak"},
	}
	weak := domain.Staff{
		ID: "staff-weak", Name: "Jo", Skills: []string{"welding"},
		WorkloadPercent: 20, Availability: domain.AvailabilityAvailable, EfficiencyScore: 70,
	}
	strong := domain.Staff{
		ID: "staff-strong", Name: "Sam", Skills: []string{"welding", "rigging", "hydraulics", "inspection", "logistics"},
		WorkloadPercent: 0, Availability: domain.AvailabilityAvailable, EfficiencyScore: 90,
	}
	assignments := []domain.Assignment{
		{ID: "a1", StaffID: "staff-weak", WorkItemID: "item-x", WorkloadDelta: 20},
	}

	conflicts := detector.Detect(snapshotWith([]domain.Staff{weak, strong}, []domain.WorkItem{item}, assignments))

	require.Len(t, conflicts, 1)
	c := conflicts[0]
	assert.Equal(t, domain.ConflictTypeSkill, c.Type)
	require.NotNil(t, c.SuggestedStaffID)
	assert.Equal(t, "staff-strong", *c.SuggestedStaffID)
	assert.NotEmpty(t, c.SuggestedResolution)
	assert.NotEqual(t, FallbackResolution, c.SuggestedResolution)
}

func TestDetectSkillConflictFallbackWhenNoAlternative(t *testing.T) {
	detector := newTestDetector(0.5)

	start := daysFromNow(30)
	item := domain.WorkItem{
		ID: "item-x", Name: "Turbine repair", RequiredSkills: []string{"welding", "rigging", "hydraulics", "inspection", "logistics"},
		Priority: domain.WorkItemPriorityLow, StartDate: &start, Deadline: daysFromNow(40),
		EstimatedHours: 16, AssignedStaffIDs: []string{"staff-weak"},
	}
	weak := domain.Staff{
		ID: "staff-weak", Name: "Jo", Skills: []string{"welding"},
		WorkloadPercent: 20, Availability: domain.AvailabilityAvailable, EfficiencyScore: 70,
	}
	assignments := []domain.Assignment{
		{ID: "a1", StaffID: "staff-weak", WorkItemID: "item-x", WorkloadDelta: 20},
	}

	conflicts := detector.Detect(snapshotWith([]domain.Staff{weak}, []domain.WorkItem{item}, assignments))

	require.Len(t, conflicts, 1)
	assert.Nil(t, conflicts[0].SuggestedStaffID)
	assert.Equal(t, FallbackResolution, conflicts[0].SuggestedResolution)
}

func TestDetectResourceConflict(t *testing.T) {
	detector := newTestDetector(0)

	staff := domain.Staff{
		ID: "staff-a", Name: "Asha", Skills: []string{"ops"},
		WorkloadPercent: 100, Availability: domain.AvailabilityAvailable, EfficiencyScore: 80,
	}
	var items []domain.WorkItem
	var assignments []domain.Assignment
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("item-%d", i)
		start := daysFromNow(i * 10)
		items = append(items, domain.WorkItem{
			ID: id, Name: id, RequiredSkills: []string{"ops"},
			Priority: domain.WorkItemPriorityLow, StartDate: &start, Deadline: start.AddDate(0, 0, 2),
			EstimatedHours: 16, AssignedStaffIDs: []string{"staff-a"},
		})
		assignments = append(assignments, domain.Assignment{
			ID: "a" + id, StaffID: "staff-a", WorkItemID: id, WorkloadDelta: 20,
		})
	}

	conflicts := detector.Detect(snapshotWith([]domain.Staff{staff}, items, assignments))

	found := false
	for _, c := range conflicts {
		if c.Type == domain.ConflictTypeResource {
			found = true
			assert.Equal(t, []string{"staff-a"}, c.AffectedStaffIDs)
		}
	}
	assert.True(t, found, "expected a resource conflict for overcommitted staff")
}

func TestDetectNoResourceConflictForClippedDeltas(t *testing.T) {
	detector := newTestDetector(0)

	// Hydrated state where the last delta was clipped at the 100% cap. The
	// recorded deltas sum to the real workload, so capacity is not exceeded.
	staff := domain.Staff{
		ID: "staff-a", Name: "Asha", Skills: []string{"ops"},
		WorkloadPercent: 100, Availability: domain.AvailabilityAvailable, EfficiencyScore: 80,
	}
	var items []domain.WorkItem
	var assignments []domain.Assignment
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("item-%d", i)
		start := daysFromNow(i * 10)
		items = append(items, domain.WorkItem{
			ID: id, Name: id, RequiredSkills: []string{"ops"},
			Priority: domain.WorkItemPriorityLow, StartDate: &start, Deadline: start.AddDate(0, 0, 2),
			EstimatedHours: 16, AssignedStaffIDs: []string{"staff-a"},
		})
		delta := 20
		if i == 5 {
			delta = 0
		}
		assignments = append(assignments, domain.Assignment{
			ID: "a" + id, StaffID: "staff-a", WorkItemID: id, WorkloadDelta: delta,
		})
	}

	conflicts := detector.Detect(snapshotWith([]domain.Staff{staff}, items, assignments))

	for _, c := range conflicts {
		assert.NotEqual(t, domain.ConflictTypeResource, c.Type)
	}
}

func TestDetectSeverityUpgradesForHighPriority(t *testing.T) {
	detector := newTestDetector(0)

	staff := domain.Staff{
		ID: "staff-a", Name: "Asha", Skills: []string{"survey"},
		WorkloadPercent: 40, Availability: domain.AvailabilityAvailable, EfficiencyScore: 80,
	}
	items := overlappingItems()
	items[0].Priority = domain.WorkItemPriorityUrgent
	assignments := []domain.Assignment{
		{ID: "a1", StaffID: "staff-a", WorkItemID: "item-a", WorkloadDelta: 20},
		{ID: "a2", StaffID: "staff-a", WorkItemID: "item-b", WorkloadDelta: 20},
	}

	conflicts := detector.Detect(snapshotWith([]domain.Staff{staff}, items, assignments))
	for _, c := range conflicts {
		if c.Type == domain.ConflictTypeTime {
			assert.Equal(t, domain.ConflictSeverityHigh, c.Severity)
		}
	}
}

func TestDetectIdempotent(t *testing.T) {
	detector := newTestDetector(0)

	staff := domain.Staff{
		ID: "staff-a", Name: "Asha", Skills: []string{"survey"},
		WorkloadPercent: 40, Availability: domain.AvailabilityAvailable, EfficiencyScore: 80,
	}
	items := overlappingItems()
	assignments := []domain.Assignment{
		{ID: "a1", StaffID: "staff-a", WorkItemID: "item-a", WorkloadDelta: 20},
		{ID: "a2", StaffID: "staff-a", WorkItemID: "item-b", WorkloadDelta: 20},
	}
	snap := snapshotWith([]domain.Staff{staff}, items, assignments)

	first := detector.Detect(snap)
	second := detector.Detect(snap)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Type, second[i].Type)
		assert.Equal(t, first[i].Severity, second[i].Severity)
		assert.Equal(t, first[i].SuggestedResolution, second[i].SuggestedResolution)
	}
}

func TestDetectAppliesDismissals(t *testing.T) {
	detector := newTestDetector(0)

	staff := domain.Staff{
		ID: "staff-a", Name: "Asha", Skills: []string{"survey"},
		WorkloadPercent: 40, Availability: domain.AvailabilityAvailable, EfficiencyScore: 80,
	}
	items := overlappingItems()
	assignments := []domain.Assignment{
		{ID: "a1", StaffID: "staff-a", WorkItemID: "item-a", WorkloadDelta: 20},
		{ID: "a2", StaffID: "staff-a", WorkItemID: "item-b", WorkloadDelta: 20},
	}
	snap := snapshotWith([]domain.Staff{staff}, items, assignments)

	initial := detector.Detect(snap)
	require.NotEmpty(t, initial)
	snap.Dismissed[initial[0].ID] = true

	redetected := detector.Detect(snap)
	for _, c := range redetected {
		if c.ID == initial[0].ID {
			assert.True(t, c.Resolved)
		}
	}
}
