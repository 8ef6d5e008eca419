package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/token-service/internal/observability"
	"github.com/spec-kit/token-service/internal/persistence"
)

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds to liveness, readiness and metrics probes.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    Pinger
	metrics     *observability.Metrics
	revocations func() int
}

// NewHealthHandler returns a new handler instance. revocations reports the current
// size of the revocation registry.
func NewHealthHandler(serviceName, version string, postgres Pinger, metrics *observability.Metrics, revocations func() int) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		postgres:    postgres,
		metrics:     metrics,
		revocations: revocations,
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	if h.postgres != nil {
		err := h.postgres.Ping(ctx)
		switch {
		case errors.Is(err, persistence.ErrPostgresDisabled):
			depStatus["postgres"] = "disabled"
		case err != nil:
			depStatus["postgres"] = err.Error()
			ready = false
		default:
			depStatus["postgres"] = "ok"
		}
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

// Metrics reports the in-memory counters.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	revoked := 0
	if h.revocations != nil {
		revoked = h.revocations()
	}
	return c.JSON(fiber.Map{
		"metrics":            h.metrics.Snapshot(),
		"revocation_entries": revoked,
	})
}
