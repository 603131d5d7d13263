package handlers

import (
	"context"
	"time"

	"dytto/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Pinger is a dependency the health check pings
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	connManager  *services.ConnectionManager
	dependencies map[string]Pinger
}

// NewHealthHandler creates a new health handler. dependencies are pinged by name.
func NewHealthHandler(connManager *services.ConnectionManager, dependencies map[string]Pinger) *HealthHandler {
	return &HealthHandler{connManager: connManager, dependencies: dependencies}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := "healthy"
	checks := make(map[string]string, len(h.dependencies))
	for name, dep := range h.dependencies {
		if err := dep.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = "degraded"
			continue
		}
		checks[name] = "ok"
	}

	code := fiber.StatusOK
	if status != "healthy" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":      status,
		"checks":      checks,
		"connections": h.connManager.Count(),
		"timestamp":   time.Now().Format(time.RFC3339),
	})
}
