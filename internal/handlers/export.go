package handlers

import (
	"fmt"
	"log"
	"time"

	"dytto/internal/models"
	"dytto/internal/services"

	"github.com/gofiber/fiber/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler serves data exports and relationship reports
type ExportHandler struct {
	export *services.ExportService
}

// NewExportHandler creates a new export handler
func NewExportHandler(export *services.ExportService) *ExportHandler {
	return &ExportHandler{export: export}
}

func attachmentName(base, ext string) string {
	return fmt.Sprintf("%s-%s.%s", base, time.Now().UTC().Format("2006-01-02"), ext)
}

// XLSX exports relationships and interactions as a workbook
// GET /api/export/relationships.xlsx
func (h *ExportHandler) XLSX(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	data, err := h.export.XLSX(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}

	log.Printf("📦 [EXPORT] XLSX export for user %s (%d bytes)", userID, len(data))
	c.Attachment(attachmentName("dytto-relationships", "xlsx"))
	c.Set(fiber.HeaderContentType, xlsxContentType)
	return c.Send(data)
}

// CSV exports relationships with every field quoted
// GET /api/export/relationships.csv
func (h *ExportHandler) CSV(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	data, err := h.export.CSV(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}

	c.Attachment(attachmentName("dytto-relationships", "csv"))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return c.Send(data)
}

// JSON exports all of the user's data
// GET /api/export/data.json
func (h *ExportHandler) JSON(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	data, err := h.export.JSON(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}

	c.Attachment(attachmentName("dytto-export", "json"))
	return c.JSON(data)
}

// Report renders a relationship summary as HTML
// GET /api/relationships/:id/report
func (h *ExportHandler) Report(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	html, err := h.export.Report(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(html)
}

// Import restores relationships and interactions from a JSON export
// POST /api/import
func (h *ExportHandler) Import(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	var data models.ExportData
	if err := c.BodyParser(&data); err != nil {
		return badRequest(c, "Invalid backup file")
	}

	summary, err := h.export.Import(c.UserContext(), userID, &data)
	if err != nil {
		return respondError(c, err)
	}

	log.Printf("📥 [IMPORT] Restored %d relationships and %d interactions for user %s",
		summary.Relationships, summary.Interactions, userID)
	return c.Status(fiber.StatusCreated).JSON(summary)
}
