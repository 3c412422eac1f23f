package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/allocation-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Staff       *handlers.StaffHandler
	WorkItems   *handlers.WorkItemsHandler
	Assignments *handlers.AssignmentsHandler
	Conflicts   *handlers.ConflictsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")

	staff := api.Group("/staff")
	staff.Post("", cfg.Staff.Create)
	staff.Get("", cfg.Staff.List)
	staff.Get("/:id", cfg.Staff.Get)
	staff.Put("/:id", cfg.Staff.Update)
	staff.Delete("/:id", cfg.Staff.Delete)

	workItems := api.Group("/work-items")
	workItems.Post("", cfg.WorkItems.Create)
	workItems.Get("", cfg.WorkItems.List)
	workItems.Get("/:id", cfg.WorkItems.Get)
	workItems.Put("/:id", cfg.WorkItems.Update)
	workItems.Delete("/:id", cfg.WorkItems.Delete)
	workItems.Get("/:id/candidates", cfg.WorkItems.Candidates)
	workItems.Post("/:id/resolve-all", cfg.Conflicts.ResolveAll)

	api.Post("/assignments", cfg.Assignments.Create)
	api.Delete("/assignments", cfg.Assignments.Remove)

	api.Get("/conflicts", cfg.Conflicts.List)
	api.Post("/conflicts/:id/resolve", cfg.Conflicts.Resolve)
}
