package events

import (
	"time"

	"github.com/spec-kit/allocation-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAssignmentCreated EventType = "assignment_created"
	EventAssignmentRemoved EventType = "assignment_removed"
	EventConflictDetected  EventType = "conflict_detected"
	EventConflictResolved  EventType = "conflict_resolved"
	EventConflictDismissed EventType = "conflict_dismissed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AssignmentCreatedPayload payload.
type AssignmentCreatedPayload struct {
	AssignmentID string  `json:"assignment_id"`
	StaffID      string  `json:"staff_id"`
	WorkItemID   string  `json:"work_item_id"`
	Score        float64 `json:"score"`
	Forced       bool    `json:"forced"`
}

// AssignmentRemovedPayload payload.
type AssignmentRemovedPayload struct {
	StaffID    string `json:"staff_id"`
	WorkItemID string `json:"work_item_id"`
}

// ConflictDetectedPayload payload.
type ConflictDetectedPayload struct {
	ConflictID string                  `json:"conflict_id"`
	Type       domain.ConflictType     `json:"conflict_type"`
	Severity   domain.ConflictSeverity `json:"severity"`
	WorkItemID string                  `json:"work_item_id"`
}

// ConflictResolvedPayload payload.
type ConflictResolvedPayload struct {
	ConflictID      string  `json:"conflict_id"`
	WorkItemID      string  `json:"work_item_id"`
	ReassignedTo    *string `json:"reassigned_to,omitempty"`
	PreviousStaffID *string `json:"previous_staff_id,omitempty"`
}

// ConflictDismissedPayload payload.
type ConflictDismissedPayload struct {
	ConflictID string `json:"conflict_id"`
}
