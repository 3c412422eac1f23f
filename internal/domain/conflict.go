package domain

import "time"

// ConflictType enumerates scheduling violation categories.
type ConflictType string

const (
	ConflictTypeResource ConflictType = "RESOURCE"
	ConflictTypeTime     ConflictType = "TIME"
	ConflictTypeSkill    ConflictType = "SKILL"
)

// ConflictSeverity enumerates impact levels.
type ConflictSeverity string

const (
	ConflictSeverityLow    ConflictSeverity = "LOW"
	ConflictSeverityMedium ConflictSeverity = "MEDIUM"
	ConflictSeverityHigh   ConflictSeverity = "HIGH"
)

var conflictSeverityRank = map[ConflictSeverity]int{
	ConflictSeverityLow:    1,
	ConflictSeverityMedium: 2,
	ConflictSeverityHigh:   3,
}

// Rank returns the ordinal position of the severity.
func (s ConflictSeverity) Rank() int {
	return conflictSeverityRank[s]
}

// Conflict is a derived violation recomputed from assignment state. IDs are
// deterministic functions of the violating entities so that repeated
// detection runs over unchanged state produce identical records and dismissal
// flags survive recomputation.
type Conflict struct {
	ID                  string
	Type                ConflictType
	Severity            ConflictSeverity
	Description         string
	WorkItemID          string
	RelatedWorkItemIDs  []string
	AffectedStaffIDs    []string
	SuggestedStaffID    *string
	SuggestedResolution string
	Resolved            bool
	DetectedAt          time.Time
}

// Clone returns a deep copy of the conflict.
func (c *Conflict) Clone() Conflict {
	out := *c
	out.RelatedWorkItemIDs = append([]string(nil), c.RelatedWorkItemIDs...)
	out.AffectedStaffIDs = append([]string(nil), c.AffectedStaffIDs...)
	if c.SuggestedStaffID != nil {
		id := *c.SuggestedStaffID
		out.SuggestedStaffID = &id
	}
	return out
}

// References reports whether the conflict involves the given work item.
func (c *Conflict) References(workItemID string) bool {
	if c.WorkItemID == workItemID {
		return true
	}
	for _, id := range c.RelatedWorkItemIDs {
		if id == workItemID {
			return true
		}
	}
	return false
}

// Affects reports whether the conflict involves the given staff member.
func (c *Conflict) Affects(staffID string) bool {
	for _, id := range c.AffectedStaffIDs {
		if id == staffID {
			return true
		}
	}
	return false
}
