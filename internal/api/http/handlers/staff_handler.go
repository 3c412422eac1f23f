package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/allocation-service/internal/api/dto"
	"github.com/spec-kit/allocation-service/internal/domain"
	"github.com/spec-kit/allocation-service/internal/service"
)

// StaffHandler exposes staff management endpoints.
type StaffHandler struct {
	roster *service.RosterService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(roster *service.RosterService) *StaffHandler {
	return &StaffHandler{roster: roster}
}

// Create handles POST /api/v1/staff.
func (h *StaffHandler) Create(c *fiber.Ctx) error {
	var req dto.StaffRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	staff, err := h.roster.CreateStaff(c.Context(), staffFromRequest(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": staffResponse(&staff)})
}

// List handles GET /api/v1/staff.
func (h *StaffHandler) List(c *fiber.Ctx) error {
	filter := service.StaffListFilter{}
	if val := c.Query("availability"); val != "" {
		availability := domain.Availability(val)
		filter.Availability = &availability
	}
	if val := c.Query("skill"); val != "" {
		filter.Skill = &val
	}
	if val := c.Query("region"); val != "" {
		filter.Region = &val
	}
	staffList, err := h.roster.ListStaff(c.Context(), filter)
	if err != nil {
		return err
	}
	resp := make([]dto.StaffResponse, 0, len(staffList))
	for i := range staffList {
		resp = append(resp, staffResponse(&staffList[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Get handles GET /api/v1/staff/:id.
func (h *StaffHandler) Get(c *fiber.Ctx) error {
	staff, err := h.roster.GetStaff(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(&staff)})
}

// Update handles PUT /api/v1/staff/:id.
func (h *StaffHandler) Update(c *fiber.Ctx) error {
	var req dto.StaffRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	staff := staffFromRequest(req)
	staff.ID = c.Params("id")
	updated, err := h.roster.UpdateStaff(c.Context(), staff)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(&updated)})
}

// Delete handles DELETE /api/v1/staff/:id.
func (h *StaffHandler) Delete(c *fiber.Ctx) error {
	if err := h.roster.DeleteStaff(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func staffFromRequest(req dto.StaffRequest) domain.Staff {
	return domain.Staff{
		Name:               req.Name,
		Skills:             req.Skills,
		Level:              domain.StaffLevel(req.Level),
		WorkloadPercent:    req.WorkloadPercent,
		Availability:       domain.Availability(req.Availability),
		EfficiencyScore:    req.EfficiencyScore,
		HourlyRate:         req.HourlyRate,
		Region:             req.Region,
		SeasonalPreference: req.SeasonalPreference,
		WeatherSuitability: req.WeatherSuitability,
	}
}

func staffResponse(staff *domain.Staff) dto.StaffResponse {
	return dto.StaffResponse{
		ID:                 staff.ID,
		Name:               staff.Name,
		Skills:             staff.Skills,
		Level:              string(staff.Level),
		WorkloadPercent:    staff.WorkloadPercent,
		Availability:       string(staff.Availability),
		EfficiencyScore:    staff.EfficiencyScore,
		HourlyRate:         staff.HourlyRate,
		Region:             staff.Region,
		SeasonalPreference: staff.SeasonalPreference,
		WeatherSuitability: staff.WeatherSuitability,
		CreatedAt:          staff.CreatedAt,
		UpdatedAt:          staff.UpdatedAt,
	}
}
