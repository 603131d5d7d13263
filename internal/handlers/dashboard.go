package handlers

import (
	"dytto/internal/services"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler serves the dashboard summary
type DashboardHandler struct {
	dashboard *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Stats returns the user's dashboard
// GET /api/dashboard
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	stats, err := h.dashboard.Stats(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}
