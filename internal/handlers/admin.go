package handlers

import (
	"log"

	"dytto/internal/jobs"

	"github.com/gofiber/fiber/v2"
)

// JobRunner is the scheduler surface exposed to admins
type JobRunner interface {
	GetStatus() []jobs.JobStatus
	RunNow(name string) error
}

// AdminHandler handles admin operations
type AdminHandler struct {
	scheduler JobRunner
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(scheduler JobRunner) *AdminHandler {
	return &AdminHandler{scheduler: scheduler}
}

// ListJobs returns every scheduled job with its last and next run
// GET /api/admin/jobs
func (h *AdminHandler) ListJobs(c *fiber.Ctx) error {
	status := h.scheduler.GetStatus()
	return c.JSON(fiber.Map{
		"jobs":  status,
		"count": len(status),
	})
}

// RunJob runs a job immediately and reports its outcome
// POST /api/admin/jobs/:name/run
func (h *AdminHandler) RunJob(c *fiber.Ctx) error {
	name := c.Params("name")
	adminUserID, _ := currentUserID(c)
	log.Printf("🔧 Admin %s triggered job %s", adminUserID, name)

	if err := h.scheduler.RunNow(name); err != nil {
		if errorStatus(err) != fiber.StatusInternalServerError {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"job":   name,
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"job":    name,
		"status": "completed",
	})
}
