package handlers

import (
	"dytto/internal/models"
	"dytto/internal/services"

	"github.com/gofiber/fiber/v2"
)

// QuestHandler serves the user's quest list and quest transitions
type QuestHandler struct {
	quests *services.QuestService
}

// NewQuestHandler creates a new quest handler
func NewQuestHandler(quests *services.QuestService) *QuestHandler {
	return &QuestHandler{quests: quests}
}

// List returns the user's quests
// GET /api/quests?status=&type=&relationship_id=&limit=
func (h *QuestHandler) List(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	quests, err := h.quests.List(c.UserContext(), models.QuestFilter{
		UserID:         userID,
		RelationshipID: c.Query("relationship_id"),
		Status:         models.QuestStatus(c.Query("status")),
		Type:           models.QuestType(c.Query("type")),
		Limit:          c.QueryInt("limit", 0),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"quests": quests,
		"count":  len(quests),
	})
}

// Create adds a manual quest
// POST /api/quests
func (h *QuestHandler) Create(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	var input models.QuestInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}

	quest, err := h.quests.Create(c.UserContext(), userID, &input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(quest)
}

// Get returns one quest
// GET /api/quests/:id
func (h *QuestHandler) Get(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	quest, err := h.quests.Get(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(quest)
}

// Complete marks a pending quest completed
// POST /api/quests/:id/complete
func (h *QuestHandler) Complete(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	quest, err := h.quests.Complete(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(quest)
}

// Templates lists the template titles per quest type
// GET /api/quests/templates
func (h *QuestHandler) Templates(c *fiber.Ctx) error {
	return c.JSON(h.quests.Templates())
}
