package handlers

import (
	"strconv"

	"dytto/internal/leveling"
	"dytto/internal/services"

	"github.com/gofiber/fiber/v2"
)

// LevelHandler serves the level table and the dry-run analyzer
type LevelHandler struct {
	progression *services.ProgressionService
}

// NewLevelHandler creates a new level handler
func NewLevelHandler(progression *services.ProgressionService) *LevelHandler {
	return &LevelHandler{progression: progression}
}

// AnalyzeRequest is the body for a dry-run analysis
type AnalyzeRequest struct {
	Content string `json:"content"`
	Level   int    `json:"level"`
}

// Table returns every level with its title, color and XP thresholds
// GET /api/levels
func (h *LevelHandler) Table(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"levels":           leveling.Table(),
		"max_level":        leveling.MaxLevel,
		"milestone_levels": leveling.MilestoneLevels,
	})
}

// Progress describes the level reached with the given XP
// GET /api/levels/progress?xp=
func (h *LevelHandler) Progress(c *fiber.Ctx) error {
	raw := c.Query("xp")
	if raw == "" {
		return badRequest(c, "xp query parameter is required")
	}
	xp, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || xp < 0 {
		return badRequest(c, "xp must be a non-negative integer")
	}
	return c.JSON(leveling.Describe(xp))
}

// Analyze runs the analyzer and reports the XP the content would earn.
// Nothing is stored.
// POST /api/analyze
func (h *LevelHandler) Analyze(c *fiber.Ctx) error {
	var req AnalyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Level <= 0 {
		req.Level = 1
	}

	result, xp, err := h.progression.PreviewInteraction(c.UserContext(), req.Content, req.Level)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"analysis":  result,
		"xp_gained": xp,
		"level":     req.Level,
	})
}
