package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/allocation-service/internal/persistence"
	"github.com/spec-kit/allocation-service/internal/store"
)

// HealthHandler responds to liveness and readiness probes. Liveness also
// reports working set sizes since the in-memory store is the authoritative
// runtime state.
type HealthHandler struct {
	serviceName string
	version     string
	store       *store.Store
	postgres    *persistence.Postgres
	redis       *persistence.Redis
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, entityStore *store.Store, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		store:       entityStore,
		postgres:    postgres,
		redis:       redis,
	}
}

// Live reports service liveness and the size of the working set.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	snap := h.store.Snapshot()
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
		"working_set": fiber.Map{
			"staff":       len(snap.Staff),
			"work_items":  len(snap.WorkItems),
			"assignments": len(snap.Assignments),
		},
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	// A service booted without a DSN runs memory-only on purpose.
	if h.postgres.PoolHandle() == nil {
		depStatus["postgres"] = "disabled"
	} else if err := h.postgres.Ping(ctx); err != nil {
		depStatus["postgres"] = err.Error()
		ready = false
	} else {
		depStatus["postgres"] = "ok"
	}

	if err := h.redis.Ping(ctx); err != nil {
		depStatus["redis"] = err.Error()
		ready = false
	} else {
		depStatus["redis"] = "ok"
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}
