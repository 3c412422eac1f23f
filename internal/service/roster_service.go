package service

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/allocation-service/internal/domain"
	"github.com/spec-kit/allocation-service/internal/store"
	apperrors "github.com/spec-kit/allocation-service/pkg/util"
)

// RosterService handles staff and work item management operations.
type RosterService struct {
	store  *store.Store
	logger *zap.Logger
}

// NewRosterService creates the service.
func NewRosterService(entityStore *store.Store, logger *zap.Logger) *RosterService {
	return &RosterService{store: entityStore, logger: logger}
}

// CreateStaff validates and stores a new staff member.
func (s *RosterService) CreateStaff(ctx context.Context, staff domain.Staff) (domain.Staff, error) {
	if err := validateStaff(&staff); err != nil {
		return domain.Staff{}, err
	}
	staff.ID = ""
	return s.store.UpsertStaff(ctx, staff)
}

// UpdateStaff replaces an existing staff member.
func (s *RosterService) UpdateStaff(ctx context.Context, staff domain.Staff) (domain.Staff, error) {
	if staff.ID == "" {
		return domain.Staff{}, apperrors.NewValidationError("staff id required", nil)
	}
	if _, err := s.store.GetStaff(staff.ID); err != nil {
		return domain.Staff{}, err
	}
	if err := validateStaff(&staff); err != nil {
		return domain.Staff{}, err
	}
	return s.store.UpsertStaff(ctx, staff)
}

// DeleteStaff removes a staff member without assignments.
func (s *RosterService) DeleteStaff(ctx context.Context, id string) error {
	return s.store.DeleteStaff(ctx, id)
}

// GetStaff fetches one staff member.
func (s *RosterService) GetStaff(ctx context.Context, id string) (domain.Staff, error) {
	return s.store.GetStaff(id)
}

// StaffListFilter narrows staff listings.
type StaffListFilter struct {
	Availability *domain.Availability
	Skill        *string
	Region       *string
}

// ListStaff returns staff matching the filter, ordered by id.
func (s *RosterService) ListStaff(ctx context.Context, filter StaffListFilter) ([]domain.Staff, error) {
	snap := s.store.Snapshot()
	out := make([]domain.Staff, 0, len(snap.Staff))
	for _, staff := range snap.StaffSorted() {
		if filter.Availability != nil && staff.Availability != *filter.Availability {
			continue
		}
		if filter.Skill != nil && !staff.HasSkill(*filter.Skill) {
			continue
		}
		if filter.Region != nil && staff.Region != *filter.Region {
			continue
		}
		out = append(out, staff)
	}
	return out, nil
}

// CreateWorkItem validates and stores a new work item.
func (s *RosterService) CreateWorkItem(ctx context.Context, item domain.WorkItem) (domain.WorkItem, error) {
	if err := validateWorkItem(&item); err != nil {
		return domain.WorkItem{}, err
	}
	item.ID = ""
	item.AssignedStaffIDs = nil
	item.Status = domain.WorkItemStatusUnassigned
	return s.store.UpsertWorkItem(ctx, item)
}

// UpdateWorkItem replaces an existing work item. Assignee lists are managed
// through assignment commands, not updates.
func (s *RosterService) UpdateWorkItem(ctx context.Context, item domain.WorkItem) (domain.WorkItem, error) {
	if item.ID == "" {
		return domain.WorkItem{}, apperrors.NewValidationError("work item id required", nil)
	}
	if _, err := s.store.GetWorkItem(item.ID); err != nil {
		return domain.WorkItem{}, err
	}
	if err := validateWorkItem(&item); err != nil {
		return domain.WorkItem{}, err
	}
	return s.store.UpsertWorkItem(ctx, item)
}

// DeleteWorkItem removes a work item, releasing its assignees.
func (s *RosterService) DeleteWorkItem(ctx context.Context, id string) error {
	return s.store.DeleteWorkItem(ctx, id)
}

// GetWorkItem fetches one work item.
func (s *RosterService) GetWorkItem(ctx context.Context, id string) (domain.WorkItem, error) {
	return s.store.GetWorkItem(id)
}

// WorkItemListFilter narrows work item listings.
type WorkItemListFilter struct {
	Status   *domain.WorkItemStatus
	Priority *domain.WorkItemPriority
}

// ListWorkItems returns work items matching the filter, ordered by deadline.
func (s *RosterService) ListWorkItems(ctx context.Context, filter WorkItemListFilter) ([]domain.WorkItem, error) {
	snap := s.store.Snapshot()
	out := make([]domain.WorkItem, 0, len(snap.WorkItems))
	for _, item := range snap.WorkItemsSorted() {
		if filter.Status != nil && item.Status != *filter.Status {
			continue
		}
		if filter.Priority != nil && item.Priority != *filter.Priority {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Deadline.Equal(out[j].Deadline) {
			return out[i].Deadline.Before(out[j].Deadline)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func validateStaff(staff *domain.Staff) error {
	if strings.TrimSpace(staff.Name) == "" {
		return apperrors.NewValidationError("staff name required", nil)
	}
	if staff.Level == "" {
		staff.Level = domain.StaffLevelJunior
	}
	if !domain.ValidStaffLevel(staff.Level) {
		return apperrors.NewValidationError("invalid staff level", map[string]any{"level": staff.Level})
	}
	if staff.Availability == "" {
		staff.Availability = domain.AvailabilityAvailable
	}
	if !domain.ValidAvailability(staff.Availability) {
		return apperrors.NewValidationError("invalid availability", map[string]any{"availability": staff.Availability})
	}
	if staff.WorkloadPercent < 0 || staff.WorkloadPercent > 100 {
		return apperrors.NewValidationError("workload percent out of range [0,100]", map[string]any{
			"workload_percent": staff.WorkloadPercent,
		})
	}
	if staff.EfficiencyScore < 0 || staff.EfficiencyScore > 100 {
		return apperrors.NewValidationError("efficiency score out of range [0,100]", map[string]any{
			"efficiency_score": staff.EfficiencyScore,
		})
	}
	return nil
}

func validateWorkItem(item *domain.WorkItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return apperrors.NewValidationError("work item name required", nil)
	}
	if len(item.RequiredSkills) == 0 {
		return apperrors.NewValidationError("required skills must not be empty", nil)
	}
	if item.Priority == "" {
		item.Priority = domain.WorkItemPriorityMedium
	}
	if !domain.ValidWorkItemPriority(item.Priority) {
		return apperrors.NewValidationError("invalid priority", map[string]any{"priority": item.Priority})
	}
	if item.Deadline.IsZero() {
		return apperrors.NewValidationError("deadline required", nil)
	}
	if item.EstimatedHours <= 0 {
		return apperrors.NewValidationError("estimated hours must be positive", map[string]any{
			"estimated_hours": item.EstimatedHours,
		})
	}
	if item.StartDate != nil && item.StartDate.After(item.Deadline) {
		return apperrors.NewValidationError("start date after deadline", nil)
	}
	return nil
}
