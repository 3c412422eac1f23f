package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/spec-kit/allocation-service/internal/config"
	"github.com/spec-kit/allocation-service/internal/domain"
	"github.com/spec-kit/allocation-service/internal/store"
)

// FallbackResolution is suggested when no alternative staff passes the gate.
const FallbackResolution = "no eligible alternative - consider relaxing constraints"

// minorSkillGap bounds how far below the threshold a match may fall and still
// count as a low-severity gap.
const minorSkillGap = 0.15

// Detector recomputes the full conflict set from assignment state. Detection
// is a pure function of the snapshot: conflict ids derive from the violating
// entities, so unchanged state always yields an identical set.
type Detector struct {
	cfg    config.EngineConfig
	scorer *Scorer
	gate   *Gate
}

// NewDetector creates a detector sharing the engine tuning.
func NewDetector(cfg config.EngineConfig, scorer *Scorer, gate *Gate) *Detector {
	return &Detector{cfg: cfg, scorer: scorer, gate: gate}
}

// Detect scans the snapshot for resource, time, and skill violations.
func (d *Detector) Detect(snap store.Snapshot) []domain.Conflict {
	now := snap.TakenAt
	var conflicts []domain.Conflict

	for _, staff := range snap.StaffSorted() {
		assignments := snap.AssignmentsForStaff(staff.ID)
		if len(assignments) == 0 {
			continue
		}

		items := make([]domain.WorkItem, 0, len(assignments))
		for _, a := range assignments {
			if item, ok := snap.WorkItems[a.WorkItemID]; ok {
				items = append(items, item)
			}
		}
		sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

		if c, ok := d.detectResource(snap, staff, assignments, items, now); ok {
			conflicts = append(conflicts, c)
		}
		conflicts = append(conflicts, d.detectTime(snap, staff, items, now)...)
		conflicts = append(conflicts, d.detectSkill(snap, staff, items, now)...)
	}

	for i := range conflicts {
		if snap.Dismissed[conflicts[i].ID] {
			conflicts[i].Resolved = true
		}
	}

	sort.Slice(conflicts, func(i, j int) bool {
		if conflicts[i].Type != conflicts[j].Type {
			return conflicts[i].Type < conflicts[j].Type
		}
		return conflicts[i].ID < conflicts[j].ID
	})
	return conflicts
}

// detectResource flags staff whose assignments imply more than full capacity.
// The recorded deltas are summed rather than multiplying by the allocation
// unit, so clipped deltas are not double-counted.
func (d *Detector) detectResource(snap store.Snapshot, staff domain.Staff, assignments []domain.Assignment, items []domain.WorkItem, now time.Time) (domain.Conflict, bool) {
	implied := 0
	for _, a := range assignments {
		implied += a.WorkloadDelta
	}
	if len(items) == 0 || (implied <= 100 && staff.WorkloadPercent <= 100) {
		return domain.Conflict{}, false
	}

	// Reassign the least critical of the staff member's items.
	target := leastCriticalItem(items)
	related := make([]string, 0, len(items)-1)
	for _, item := range items {
		if item.ID != target.ID {
			related = append(related, item.ID)
		}
	}

	c := domain.Conflict{
		ID:         "resource:" + staff.ID,
		Type:       domain.ConflictTypeResource,
		WorkItemID: target.ID,
		Description: fmt.Sprintf("%s is assigned %d work items implying %d%% workload",
			staff.Name, len(items), implied),
		RelatedWorkItemIDs: related,
		AffectedStaffIDs:   []string{staff.ID},
		DetectedAt:         now,
	}
	c.Severity = d.severity(items, now, domain.ConflictSeverityMedium)
	d.suggest(&c, snap, target, staff.ID)
	return c, true
}

// detectTime flags pairs of the staff member's work items with overlapping
// scheduling windows. One conflict per overlapping pair.
func (d *Detector) detectTime(snap store.Snapshot, staff domain.Staff, items []domain.WorkItem, now time.Time) []domain.Conflict {
	var out []domain.Conflict
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			a, b := items[i], items[j]
			if !a.Overlaps(&b) {
				continue
			}
			target := leastCriticalItem([]domain.WorkItem{a, b})
			other := a
			if target.ID == a.ID {
				other = b
			}
			c := domain.Conflict{
				ID:         "time:" + staff.ID + ":" + a.ID + ":" + b.ID,
				Type:       domain.ConflictTypeTime,
				WorkItemID: target.ID,
				Description: fmt.Sprintf("%s has overlapping schedules for %q and %q",
					staff.Name, a.Name, b.Name),
				RelatedWorkItemIDs: []string{other.ID},
				AffectedStaffIDs:   []string{staff.ID},
				DetectedAt:         now,
			}
			c.Severity = d.severity([]domain.WorkItem{a, b}, now, domain.ConflictSeverityMedium)
			d.suggest(&c, snap, target, staff.ID)
			out = append(out, c)
		}
	}
	return out
}

// detectSkill flags assignments whose skill match fell below the threshold,
// typically forced past the gate.
func (d *Detector) detectSkill(snap store.Snapshot, staff domain.Staff, items []domain.WorkItem, now time.Time) []domain.Conflict {
	var out []domain.Conflict
	for _, item := range items {
		match := d.scorer.SkillMatch(&staff, &item)
		if match >= d.cfg.MinSkillMatchThreshold {
			continue
		}
		base := domain.ConflictSeverityMedium
		if d.cfg.MinSkillMatchThreshold-match <= minorSkillGap {
			base = domain.ConflictSeverityLow
		}
		c := domain.Conflict{
			ID:         "skill:" + staff.ID + ":" + item.ID,
			Type:       domain.ConflictTypeSkill,
			WorkItemID: item.ID,
			Description: fmt.Sprintf("%s matches %.0f%% of required skills for %q (minimum %.0f%%)",
				staff.Name, match*100, item.Name, d.cfg.MinSkillMatchThreshold*100),
			AffectedStaffIDs: []string{staff.ID},
			DetectedAt:       now,
		}
		c.Severity = d.severity([]domain.WorkItem{item}, now, base)
		d.suggest(&c, snap, item, staff.ID)
		out = append(out, c)
	}
	return out
}

// severity upgrades to high when a high or urgent priority work item is
// involved, or when a deadline is no longer feasible.
func (d *Detector) severity(items []domain.WorkItem, now time.Time, base domain.ConflictSeverity) domain.ConflictSeverity {
	for _, item := range items {
		if item.Status == domain.WorkItemStatusCompleted {
			continue
		}
		if item.Priority == domain.WorkItemPriorityHigh || item.Priority == domain.WorkItemPriorityUrgent {
			return domain.ConflictSeverityHigh
		}
		if deadlineInfeasible(item, now) {
			return domain.ConflictSeverityHigh
		}
	}
	return base
}

// deadlineInfeasible reports whether the remaining calendar time cannot hold
// the estimated effort.
func deadlineInfeasible(item domain.WorkItem, now time.Time) bool {
	remaining := item.Deadline.Sub(now)
	days := item.EstimatedHours / 8.0
	needed := time.Duration(days * 24 * float64(time.Hour))
	return remaining < needed
}

// suggest ranks all other staff for the conflict's work item and proposes the
// top gated alternative, or the textual fallback.
func (d *Detector) suggest(c *domain.Conflict, snap store.Snapshot, item domain.WorkItem, excludeStaffID string) {
	var candidates []Candidate
	for _, staff := range snap.StaffSorted() {
		if staff.ID == excludeStaffID || item.IsAssignedTo(staff.ID) {
			continue
		}
		st := staff
		score := d.scorer.Score(&st, &item)
		if !d.gate.IsEligible(&st, score) {
			continue
		}
		candidates = append(candidates, Candidate{Staff: &st, Score: score})
	}
	if len(candidates) == 0 {
		c.SuggestedResolution = FallbackResolution
		return
	}
	SortCandidates(candidates)
	top := candidates[0]
	id := top.Staff.ID
	c.SuggestedStaffID = &id
	c.SuggestedResolution = fmt.Sprintf("reassign %q to %s (match score %.2f)", item.Name, top.Staff.Name, top.Score)
}

// leastCriticalItem picks the reassignment target: lowest priority first,
// then latest deadline, then id for determinism.
func leastCriticalItem(items []domain.WorkItem) domain.WorkItem {
	target := items[0]
	for _, item := range items[1:] {
		if priorityRank(item.Priority) != priorityRank(target.Priority) {
			if priorityRank(item.Priority) < priorityRank(target.Priority) {
				target = item
			}
			continue
		}
		if !item.Deadline.Equal(target.Deadline) {
			if item.Deadline.After(target.Deadline) {
				target = item
			}
			continue
		}
		if item.ID < target.ID {
			target = item
		}
	}
	return target
}

func priorityRank(p domain.WorkItemPriority) int {
	switch p {
	case domain.WorkItemPriorityLow:
		return 1
	case domain.WorkItemPriorityMedium:
		return 2
	case domain.WorkItemPriorityHigh:
		return 3
	case domain.WorkItemPriorityUrgent:
		return 4
	}
	return 0
}
