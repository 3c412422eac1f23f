package domain

import "time"

// Assignment binds one staff member to one work item. WorkloadDelta records
// the workload percentage actually applied at creation so removal can reverse
// it exactly even when the cap clipped the increase.
type Assignment struct {
	ID            string
	StaffID       string
	WorkItemID    string
	WorkloadDelta int
	Forced        bool
	CreatedAt     time.Time
}
