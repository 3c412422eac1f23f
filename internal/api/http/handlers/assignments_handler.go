package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/allocation-service/internal/api/dto"
	"github.com/spec-kit/allocation-service/internal/domain"
	"github.com/spec-kit/allocation-service/internal/service"
)

// AssignmentsHandler exposes assignment commands.
type AssignmentsHandler struct {
	allocation *service.AllocationService
}

// NewAssignmentsHandler constructs handler.
func NewAssignmentsHandler(allocation *service.AllocationService) *AssignmentsHandler {
	return &AssignmentsHandler{allocation: allocation}
}

// Create handles POST /api/v1/assignments.
func (h *AssignmentsHandler) Create(c *fiber.Ctx) error {
	var req dto.AssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.StaffID == "" || req.WorkItemID == "" {
		return fiber.NewError(http.StatusBadRequest, "staff_id and work_item_id required")
	}
	assignment, err := h.allocation.CreateAssignment(c.Context(), req.StaffID, req.WorkItemID, req.Force)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": assignmentResponse(&assignment)})
}

// Remove handles DELETE /api/v1/assignments.
func (h *AssignmentsHandler) Remove(c *fiber.Ctx) error {
	var req dto.AssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.StaffID == "" || req.WorkItemID == "" {
		return fiber.NewError(http.StatusBadRequest, "staff_id and work_item_id required")
	}
	if err := h.allocation.RemoveAssignment(c.Context(), req.StaffID, req.WorkItemID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func assignmentResponse(a *domain.Assignment) dto.AssignmentResponse {
	return dto.AssignmentResponse{
		ID:         a.ID,
		StaffID:    a.StaffID,
		WorkItemID: a.WorkItemID,
		Forced:     a.Forced,
		CreatedAt:  a.CreatedAt,
	}
}
