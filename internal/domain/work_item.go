package domain

import "time"

// WorkItemStatus enumerates lifecycle states derived from assignment state.
type WorkItemStatus string

const (
	WorkItemStatusUnassigned WorkItemStatus = "UNASSIGNED"
	WorkItemStatusAssigned   WorkItemStatus = "ASSIGNED"
	WorkItemStatusInProgress WorkItemStatus = "IN_PROGRESS"
	WorkItemStatusCompleted  WorkItemStatus = "COMPLETED"
)

// WorkItemPriority enumerates urgency.
type WorkItemPriority string

const (
	WorkItemPriorityLow    WorkItemPriority = "LOW"
	WorkItemPriorityMedium WorkItemPriority = "MEDIUM"
	WorkItemPriorityHigh   WorkItemPriority = "HIGH"
	WorkItemPriorityUrgent WorkItemPriority = "URGENT"
)

// ValidWorkItemPriority reports whether p is a known priority.
func ValidWorkItemPriority(p WorkItemPriority) bool {
	switch p {
	case WorkItemPriorityLow, WorkItemPriorityMedium, WorkItemPriorityHigh, WorkItemPriorityUrgent:
		return true
	}
	return false
}

// WorkItem is the aggregate for a project or task requiring staff.
type WorkItem struct {
	ID                string
	Name              string
	RequiredSkills    []string
	Priority          WorkItemPriority
	StartDate         *time.Time
	Deadline          time.Time
	EstimatedHours    float64
	AssignedStaffIDs  []string
	Status            WorkItemStatus
	Season            string
	WeatherDependency string
	Region            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// hoursPerWorkday backs the start-date estimate when none was provided.
const hoursPerWorkday = 8.0

// Window returns the scheduling window [start, end] for overlap checks.
// When no explicit start date exists the start is derived from the deadline
// and the estimated effort.
func (w *WorkItem) Window() (time.Time, time.Time) {
	end := w.Deadline
	if w.StartDate != nil {
		return *w.StartDate, end
	}
	days := w.EstimatedHours / hoursPerWorkday
	if days < 1 {
		days = 1
	}
	return end.AddDate(0, 0, -int(days)), end
}

// Overlaps reports whether two work item windows intersect.
func (w *WorkItem) Overlaps(other *WorkItem) bool {
	aStart, aEnd := w.Window()
	bStart, bEnd := other.Window()
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}

// IsAssignedTo reports whether the staff id is in the assignee list.
func (w *WorkItem) IsAssignedTo(staffID string) bool {
	for _, id := range w.AssignedStaffIDs {
		if id == staffID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the work item.
func (w *WorkItem) Clone() WorkItem {
	out := *w
	out.RequiredSkills = append([]string(nil), w.RequiredSkills...)
	out.AssignedStaffIDs = append([]string(nil), w.AssignedStaffIDs...)
	if w.StartDate != nil {
		start := *w.StartDate
		out.StartDate = &start
	}
	return out
}
