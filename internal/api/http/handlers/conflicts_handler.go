package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/allocation-service/internal/api/dto"
	"github.com/spec-kit/allocation-service/internal/domain"
	"github.com/spec-kit/allocation-service/internal/service"
)

// ConflictsHandler exposes conflict queries and the resolution workflow.
type ConflictsHandler struct {
	conflicts *service.ConflictService
}

// NewConflictsHandler constructs handler.
func NewConflictsHandler(conflicts *service.ConflictService) *ConflictsHandler {
	return &ConflictsHandler{conflicts: conflicts}
}

// List handles GET /api/v1/conflicts.
func (h *ConflictsHandler) List(c *fiber.Ctx) error {
	filter := service.ConflictFilter{}
	if val := c.Query("work_item_id"); val != "" {
		filter.WorkItemID = &val
	}
	if val := c.Query("staff_id"); val != "" {
		filter.StaffID = &val
	}
	if val := c.Query("type"); val != "" {
		conflictType := domain.ConflictType(val)
		filter.Type = &conflictType
	}
	if val := c.Query("severity"); val != "" {
		severity := domain.ConflictSeverity(val)
		filter.Severity = &severity
	}
	if val := c.Query("resolved"); val != "" {
		resolved, err := strconv.ParseBool(val)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid resolved filter")
		}
		filter.Resolved = &resolved
	}

	conflicts, err := h.conflicts.List(c.Context(), filter)
	if err != nil {
		return err
	}
	resp := make([]dto.ConflictResponse, 0, len(conflicts))
	for i := range conflicts {
		resp = append(resp, conflictResponse(&conflicts[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Resolve handles POST /api/v1/conflicts/:id/resolve.
func (h *ConflictsHandler) Resolve(c *fiber.Ctx) error {
	var req dto.ResolveConflictRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Action == "" {
		return fiber.NewError(http.StatusBadRequest, "action required")
	}
	conflict, err := h.conflicts.Resolve(c.Context(), c.Params("id"), service.ResolveAction(req.Action))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": conflictResponse(&conflict)})
}

// ResolveAll handles POST /api/v1/work-items/:id/resolve-all.
func (h *ConflictsHandler) ResolveAll(c *fiber.Ctx) error {
	result, err := h.conflicts.ResolveAll(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	failures := make([]string, 0, len(result.Failures))
	for _, failure := range result.Failures {
		failures = append(failures, failure.Error())
	}
	return c.JSON(fiber.Map{"data": dto.ResolveAllResponse{
		ResolvedCount: result.ResolvedCount,
		Failures:      failures,
	}})
}

func conflictResponse(conflict *domain.Conflict) dto.ConflictResponse {
	return dto.ConflictResponse{
		ID:                  conflict.ID,
		Type:                string(conflict.Type),
		Severity:            string(conflict.Severity),
		Description:         conflict.Description,
		WorkItemID:          conflict.WorkItemID,
		RelatedWorkItemIDs:  conflict.RelatedWorkItemIDs,
		AffectedStaffIDs:    conflict.AffectedStaffIDs,
		SuggestedStaffID:    conflict.SuggestedStaffID,
		SuggestedResolution: conflict.SuggestedResolution,
		Resolved:            conflict.Resolved,
		DetectedAt:          conflict.DetectedAt,
	}
}
