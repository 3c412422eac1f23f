package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/allocation-service/internal/domain"
	"github.com/spec-kit/allocation-service/internal/events"
	apperrors "github.com/spec-kit/allocation-service/pkg/util"
)

// seedSkillConflict forces a no-skill assignment so detection raises a skill
// conflict with strongID as the suggested alternative.
func seedSkillConflict(t *testing.T, f *serviceFixture, withAlternative bool) domain.Conflict {
	t.Helper()

	weak := availableStaff("staff-weak", 0, "plumbing")
	weak.EfficiencyScore = 40
	f.addStaff(t, weak)
	if withAlternative {
		f.addStaff(t, availableStaff("staff-strong", 0, "ops", "survey"))
	}
	f.addWorkItem(t, domain.WorkItem{
		ID: "item-1", Name: "Survey", RequiredSkills: []string{"ops", "survey"},
		Deadline: time.Now().AddDate(0, 0, 30),
	})

	_, err := f.allocation.CreateAssignment(context.Background(), "staff-weak", "item-1", true)
	require.NoError(t, err)

	conflicts, err := f.conflict.List(context.Background(), ConflictFilter{})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.Equal(t, domain.ConflictTypeSkill, conflicts[0].Type)
	return conflicts[0]
}

func TestListFiltersConflicts(t *testing.T) {
	f := newServiceFixture(t)
	seedSkillConflict(t, f, true)

	skill := domain.ConflictTypeSkill
	filtered, err := f.conflict.List(context.Background(), ConflictFilter{Type: &skill})
	require.NoError(t, err)
	assert.Len(t, filtered, 1)

	timeType := domain.ConflictTypeTime
	filtered, err = f.conflict.List(context.Background(), ConflictFilter{Type: &timeType})
	require.NoError(t, err)
	assert.Empty(t, filtered)

	ghost := "ghost"
	filtered, err = f.conflict.List(context.Background(), ConflictFilter{StaffID: &ghost})
	require.NoError(t, err)
	assert.Empty(t, filtered)
}

func TestResolveUnknownConflict(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.conflict.Resolve(context.Background(), "resource:ghost", ResolveActionApply)
	assert.Equal(t, "NOT_FOUND", apperrors.CodeOf(err))
}

func TestResolveRejectsUnknownAction(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.conflict.Resolve(context.Background(), "resource:ghost", ResolveAction("escalate"))
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))
}

func TestResolveIgnoreIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	var dismissed int
	f.dispatcher.Subscribe(events.EventConflictDismissed, func(ctx context.Context, e events.Event) error {
		dismissed++
		return nil
	})
	conflict := seedSkillConflict(t, f, false)

	resolved, err := f.conflict.Resolve(context.Background(), conflict.ID, ResolveActionIgnore)
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	assert.Equal(t, 1, dismissed)

	// Second dismissal is a no-op, not an error.
	again, err := f.conflict.Resolve(context.Background(), conflict.ID, ResolveActionIgnore)
	require.NoError(t, err)
	assert.True(t, again.Resolved)
	assert.Equal(t, 1, dismissed)

	// The dismissal survives recomputation of the conflict set.
	unresolvedOnly := false
	listed, err := f.conflict.List(context.Background(), ConflictFilter{Resolved: &unresolvedOnly})
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestResolveApplyReassigns(t *testing.T) {
	f := newServiceFixture(t)
	var resolvedEvents int
	f.dispatcher.Subscribe(events.EventConflictResolved, func(ctx context.Context, e events.Event) error {
		resolvedEvents++
		return nil
	})
	conflict := seedSkillConflict(t, f, true)
	require.NotNil(t, conflict.SuggestedStaffID)

	resolved, err := f.conflict.Resolve(context.Background(), conflict.ID, ResolveActionApply)
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	assert.Equal(t, 1, resolvedEvents)

	item, err := f.store.GetWorkItem("item-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"staff-strong"}, item.AssignedStaffIDs)

	weak, err := f.store.GetStaff("staff-weak")
	require.NoError(t, err)
	assert.Equal(t, 0, weak.WorkloadPercent)

	strong, err := f.store.GetStaff("staff-strong")
	require.NoError(t, err)
	assert.Equal(t, 20, strong.WorkloadPercent)

	// The reassignment clears the conflict.
	unresolvedOnly := false
	listed, err := f.conflict.List(context.Background(), ConflictFilter{Resolved: &unresolvedOnly})
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestResolveApplyWithoutSuggestionFails(t *testing.T) {
	f := newServiceFixture(t)
	conflict := seedSkillConflict(t, f, false)
	require.Nil(t, conflict.SuggestedStaffID)

	_, err := f.conflict.Resolve(context.Background(), conflict.ID, ResolveActionApply)
	assert.Equal(t, "NO_ELIGIBLE_CANDIDATE", apperrors.CodeOf(err))
}

func TestApplySuggestionStaleChecks(t *testing.T) {
	f := newServiceFixture(t)
	conflict := seedSkillConflict(t, f, true)
	require.NotNil(t, conflict.SuggestedStaffID)

	t.Run("suggested staff gone", func(t *testing.T) {
		gone := "ghost"
		stale := conflict.Clone()
		stale.SuggestedStaffID = &gone
		_, err := f.conflict.applySuggestion(context.Background(), &stale)
		assert.Equal(t, "STALE_SUGGESTION", apperrors.CodeOf(err))
	})

	t.Run("work item gone", func(t *testing.T) {
		stale := conflict.Clone()
		stale.WorkItemID = "ghost"
		_, err := f.conflict.applySuggestion(context.Background(), &stale)
		assert.Equal(t, "STALE_SUGGESTION", apperrors.CodeOf(err))
	})

	t.Run("offending assignment gone", func(t *testing.T) {
		stale := conflict.Clone()
		stale.AffectedStaffIDs = []string{"staff-strong"}
		_, err := f.conflict.applySuggestion(context.Background(), &stale)
		assert.Equal(t, "STALE_SUGGESTION", apperrors.CodeOf(err))
	})
}

func TestResolveConcurrentModification(t *testing.T) {
	f := newServiceFixture(t)
	conflict := seedSkillConflict(t, f, true)

	require.True(t, f.conflict.beginResolving(conflict.ID))
	defer f.conflict.endResolving(conflict.ID)

	_, err := f.conflict.Resolve(context.Background(), conflict.ID, ResolveActionApply)
	assert.Equal(t, "CONCURRENT_MODIFICATION", apperrors.CodeOf(err))
}

func TestResolveAllUnknownWorkItem(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.conflict.ResolveAll(context.Background(), "ghost")
	assert.Equal(t, "NOT_FOUND", apperrors.CodeOf(err))
}

func TestResolveAllAppliesSuggestions(t *testing.T) {
	f := newServiceFixture(t)
	seedSkillConflict(t, f, true)

	result, err := f.conflict.ResolveAll(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.ResolvedCount)
	assert.Empty(t, result.Failures)

	item, err := f.store.GetWorkItem("item-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"staff-strong"}, item.AssignedStaffIDs)
}

func TestResolveAllStopsAtFirstFailure(t *testing.T) {
	f := newServiceFixture(t)
	seedSkillConflict(t, f, false)

	result, err := f.conflict.ResolveAll(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ResolvedCount)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "NO_ELIGIBLE_CANDIDATE", apperrors.CodeOf(result.Failures[0]))
}

func TestConcurrentResolveAllSharedCandidate(t *testing.T) {
	f := newServiceFixture(t)

	for _, id := range []string{"staff-weak1", "staff-weak2"} {
		weak := availableStaff(id, 0, "plumbing")
		weak.EfficiencyScore = 40
		f.addStaff(t, weak)
	}
	// The only eligible alternative has headroom for a single reassignment.
	f.addStaff(t, availableStaff("staff-strong", 60, "ops", "survey"))
	for _, id := range []string{"item-1", "item-2"} {
		f.addWorkItem(t, domain.WorkItem{
			ID: id, Name: "Job " + id, RequiredSkills: []string{"ops", "survey"},
			Deadline: time.Now().AddDate(0, 0, 30),
		})
	}
	_, err := f.allocation.CreateAssignment(context.Background(), "staff-weak1", "item-1", true)
	require.NoError(t, err)
	_, err = f.allocation.CreateAssignment(context.Background(), "staff-weak2", "item-2", true)
	require.NoError(t, err)

	results := make([]ResolveAllResult, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, itemID := range []string{"item-1", "item-2"} {
		wg.Add(1)
		go func(i int, itemID string) {
			defer wg.Done()
			results[i], errs[i] = f.conflict.ResolveAll(context.Background(), itemID)
		}(i, itemID)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	resolved := results[0].ResolvedCount + results[1].ResolvedCount
	failures := len(results[0].Failures) + len(results[1].Failures)
	assert.Equal(t, 1, resolved, "only one reassignment fits the shared candidate")
	assert.Equal(t, 1, failures)

	strong, err := f.store.GetStaff("staff-strong")
	require.NoError(t, err)
	assert.Equal(t, 80, strong.WorkloadPercent)

	var assignedToStrong int
	for _, itemID := range []string{"item-1", "item-2"} {
		item, err := f.store.GetWorkItem(itemID)
		require.NoError(t, err)
		require.Len(t, item.AssignedStaffIDs, 1)
		if item.AssignedStaffIDs[0] == "staff-strong" {
			assignedToStrong++
		}
	}
	assert.Equal(t, 1, assignedToStrong)
}

func TestResolveAllGuardsConcurrentRuns(t *testing.T) {
	f := newServiceFixture(t)
	seedSkillConflict(t, f, true)

	require.True(t, f.conflict.beginResolving("workitem:item-1"))
	defer f.conflict.endResolving("workitem:item-1")

	_, err := f.conflict.ResolveAll(context.Background(), "item-1")
	assert.Equal(t, "CONCURRENT_MODIFICATION", apperrors.CodeOf(err))
}
