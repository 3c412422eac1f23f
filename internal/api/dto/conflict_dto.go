package dto

import "time"

// AssignmentRequest payload for create and remove.
type AssignmentRequest struct {
	StaffID    string `json:"staff_id"`
	WorkItemID string `json:"work_item_id"`
	Force      bool   `json:"force,omitempty"`
}

// AssignmentResponse payload.
type AssignmentResponse struct {
	ID         string    `json:"id"`
	StaffID    string    `json:"staff_id"`
	WorkItemID string    `json:"work_item_id"`
	Forced     bool      `json:"forced"`
	CreatedAt  time.Time `json:"created_at"`
}

// ConflictResponse payload.
type ConflictResponse struct {
	ID                  string    `json:"id"`
	Type                string    `json:"type"`
	Severity            string    `json:"severity"`
	Description         string    `json:"description"`
	WorkItemID          string    `json:"work_item_id"`
	RelatedWorkItemIDs  []string  `json:"related_work_item_ids,omitempty"`
	AffectedStaffIDs    []string  `json:"affected_staff_ids"`
	SuggestedStaffID    *string   `json:"suggested_staff_id,omitempty"`
	SuggestedResolution string    `json:"suggested_resolution,omitempty"`
	Resolved            bool      `json:"resolved"`
	DetectedAt          time.Time `json:"detected_at"`
}

// ResolveConflictRequest payload.
type ResolveConflictRequest struct {
	Action string `json:"action"`
}

// ResolveAllResponse payload.
type ResolveAllResponse struct {
	ResolvedCount int      `json:"resolved_count"`
	Failures      []string `json:"failures"`
}
