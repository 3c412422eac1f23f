package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/allocation-service/internal/api/dto"
	"github.com/spec-kit/allocation-service/internal/domain"
	"github.com/spec-kit/allocation-service/internal/service"
)

// WorkItemsHandler exposes work item management and candidate endpoints.
type WorkItemsHandler struct {
	roster     *service.RosterService
	allocation *service.AllocationService
}

// NewWorkItemsHandler constructs handler.
func NewWorkItemsHandler(roster *service.RosterService, allocation *service.AllocationService) *WorkItemsHandler {
	return &WorkItemsHandler{roster: roster, allocation: allocation}
}

// Create handles POST /api/v1/work-items.
func (h *WorkItemsHandler) Create(c *fiber.Ctx) error {
	var req dto.WorkItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	item, err := h.roster.CreateWorkItem(c.Context(), workItemFromRequest(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": workItemResponse(&item)})
}

// List handles GET /api/v1/work-items.
func (h *WorkItemsHandler) List(c *fiber.Ctx) error {
	filter := service.WorkItemListFilter{}
	if val := c.Query("status"); val != "" {
		status := domain.WorkItemStatus(val)
		filter.Status = &status
	}
	if val := c.Query("priority"); val != "" {
		priority := domain.WorkItemPriority(val)
		filter.Priority = &priority
	}
	items, err := h.roster.ListWorkItems(c.Context(), filter)
	if err != nil {
		return err
	}
	resp := make([]dto.WorkItemResponse, 0, len(items))
	for i := range items {
		resp = append(resp, workItemResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Get handles GET /api/v1/work-items/:id.
func (h *WorkItemsHandler) Get(c *fiber.Ctx) error {
	item, err := h.roster.GetWorkItem(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workItemResponse(&item)})
}

// Update handles PUT /api/v1/work-items/:id.
func (h *WorkItemsHandler) Update(c *fiber.Ctx) error {
	var req dto.WorkItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	item := workItemFromRequest(req)
	item.ID = c.Params("id")
	updated, err := h.roster.UpdateWorkItem(c.Context(), item)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": workItemResponse(&updated)})
}

// Delete handles DELETE /api/v1/work-items/:id.
func (h *WorkItemsHandler) Delete(c *fiber.Ctx) error {
	if err := h.roster.DeleteWorkItem(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Candidates handles GET /api/v1/work-items/:id/candidates.
func (h *WorkItemsHandler) Candidates(c *fiber.Ctx) error {
	candidates, err := h.allocation.ListEligibleCandidates(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	resp := make([]dto.CandidateResponse, 0, len(candidates))
	for _, candidate := range candidates {
		resp = append(resp, dto.CandidateResponse{
			StaffID: candidate.StaffID,
			Name:    candidate.Name,
			Score:   candidate.Score,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

func workItemFromRequest(req dto.WorkItemRequest) domain.WorkItem {
	return domain.WorkItem{
		Name:              req.Name,
		RequiredSkills:    req.RequiredSkills,
		Priority:          domain.WorkItemPriority(req.Priority),
		StartDate:         req.StartDate,
		Deadline:          req.Deadline,
		EstimatedHours:    req.EstimatedHours,
		Status:            domain.WorkItemStatus(req.Status),
		Season:            req.Season,
		WeatherDependency: req.WeatherDependency,
		Region:            req.Region,
	}
}

func workItemResponse(item *domain.WorkItem) dto.WorkItemResponse {
	return dto.WorkItemResponse{
		ID:                item.ID,
		Name:              item.Name,
		RequiredSkills:    item.RequiredSkills,
		Priority:          string(item.Priority),
		StartDate:         item.StartDate,
		Deadline:          item.Deadline,
		EstimatedHours:    item.EstimatedHours,
		AssignedStaffIDs:  item.AssignedStaffIDs,
		Status:            string(item.Status),
		Season:            item.Season,
		WeatherDependency: item.WeatherDependency,
		Region:            item.Region,
		CreatedAt:         item.CreatedAt,
		UpdatedAt:         item.UpdatedAt,
	}
}
