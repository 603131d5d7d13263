package handlers

import (
	"errors"
	"log"
	"strings"

	"dytto/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errorStatus maps domain errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrAnalysisFailed):
		return fiber.StatusBadGateway
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrDuplicateMilestone),
		errors.Is(err, models.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, models.ErrUnauthorized):
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes err as a JSON error. Internal and analyzer errors are
// logged and reported without details.
func respondError(c *fiber.Ctx, err error) error {
	status := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("❌ [API] %s %s failed: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
	if status == fiber.StatusBadGateway {
		log.Printf("⚠️ [API] %s %s analysis failed: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{
			"error": "Interaction analysis failed, nothing was recorded",
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": clientMessage(err),
	})
}

// clientMessage drops the sentinel prefix ("validation failed: name is required" -> "name is required")
func clientMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{
		models.ErrValidation, models.ErrNotFound,
		models.ErrInvalidTransition, models.ErrDuplicateMilestone, models.ErrConflict,
		models.ErrUnauthorized,
	} {
		if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
			return rest
		}
	}
	return msg
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": message,
	})
}

// currentUserID returns the user set by the auth middleware
func currentUserID(c *fiber.Ctx) (string, bool) {
	userID, ok := c.Locals("user_id").(string)
	return userID, ok && userID != ""
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Authentication required",
	})
}
