package handlers

import (
	"strings"

	"dytto/internal/models"
	"dytto/internal/services"

	"github.com/gofiber/fiber/v2"
)

// RelationshipHandler serves relationship CRUD and the per-relationship
// interaction, quest and insight routes
type RelationshipHandler struct {
	relationships *services.RelationshipService
	progression   *services.ProgressionService
	quests        *services.QuestService
	insights      *services.InsightsService
}

// NewRelationshipHandler creates a new relationship handler
func NewRelationshipHandler(relationships *services.RelationshipService, progression *services.ProgressionService, quests *services.QuestService, insights *services.InsightsService) *RelationshipHandler {
	return &RelationshipHandler{
		relationships: relationships,
		progression:   progression,
		quests:        quests,
		insights:      insights,
	}
}

// InteractionRequest is the body for logging an interaction
type InteractionRequest struct {
	RelationshipID string   `json:"relationship_id"`
	Content        string   `json:"content"`
	Tags           []string `json:"tags"`
}

// GenerateQuestRequest is the body for generating a quest
type GenerateQuestRequest struct {
	Type models.QuestType `json:"type"`
}

// List returns the user's relationships
// GET /api/relationships?q=&category=&sort=&order=
func (h *RelationshipHandler) List(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	filter := models.RelationshipFilter{
		Query: c.Query("q"),
		Sort:  models.RelationshipSort(c.Query("sort")),
	}
	for _, category := range strings.Split(c.Query("category"), ",") {
		if category = strings.TrimSpace(category); category != "" {
			filter.Categories = append(filter.Categories, category)
		}
	}
	switch strings.ToLower(c.Query("order")) {
	case "", "asc":
	case "desc":
		filter.Descending = true
	default:
		return badRequest(c, "order must be asc or desc")
	}

	relationships, err := h.relationships.List(c.UserContext(), userID, filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"relationships": relationships,
		"count":         len(relationships),
	})
}

// Create adds a relationship
// POST /api/relationships
func (h *RelationshipHandler) Create(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	var input models.RelationshipInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}

	rel, err := h.relationships.Create(c.UserContext(), userID, &input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(rel)
}

// Get returns one relationship
// GET /api/relationships/:id
func (h *RelationshipHandler) Get(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	rel, err := h.relationships.Get(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rel)
}

// Update changes profile fields
// PUT /api/relationships/:id
func (h *RelationshipHandler) Update(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	var input models.RelationshipInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}

	rel, err := h.relationships.Update(c.UserContext(), userID, c.Params("id"), &input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rel)
}

// Delete removes a relationship and everything attached to it
// DELETE /api/relationships/:id
func (h *RelationshipHandler) Delete(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	if err := h.relationships.Delete(c.UserContext(), userID, c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Overview returns the relationship detail view
// GET /api/relationships/:id/overview
func (h *RelationshipHandler) Overview(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	overview, err := h.relationships.Overview(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(overview)
}

// LogInteraction applies an interaction to the relationship in the path
// POST /api/relationships/:id/interactions
func (h *RelationshipHandler) LogInteraction(c *fiber.Ctx) error {
	var req InteractionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.RelationshipID = c.Params("id")
	return h.applyInteraction(c, req)
}

// CreateInteraction applies an interaction to relationship_id from the body
// POST /api/interactions
func (h *RelationshipHandler) CreateInteraction(c *fiber.Ctx) error {
	var req InteractionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	return h.applyInteraction(c, req)
}

func (h *RelationshipHandler) applyInteraction(c *fiber.Ctx, req InteractionRequest) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	result, err := h.progression.ApplyInteraction(c.UserContext(), userID, req.RelationshipID, req.Content, req.Tags)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// ListInteractions lists a relationship's interactions, newest first
// GET /api/relationships/:id/interactions?limit=
func (h *RelationshipHandler) ListInteractions(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	interactions, err := h.relationships.Interactions(c.UserContext(), userID, c.Params("id"), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"interactions": interactions,
		"count":        len(interactions),
	})
}

// GetInteraction returns one interaction
// GET /api/interactions/:id
func (h *RelationshipHandler) GetInteraction(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	interaction, err := h.relationships.Interaction(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(interaction)
}

// LevelHistory lists level changes, newest first
// GET /api/relationships/:id/level-history
func (h *RelationshipHandler) LevelHistory(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	history, err := h.relationships.LevelHistory(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"level_history": history,
		"count":         len(history),
	})
}

// GenerateQuest creates a quest of the requested type for the relationship
// POST /api/relationships/:id/quests
func (h *RelationshipHandler) GenerateQuest(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	var req GenerateQuestRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	quest, err := h.progression.GenerateQuest(c.UserContext(), userID, c.Params("id"), req.Type)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(quest)
}

// ListQuests lists the relationship's quests
// GET /api/relationships/:id/quests?status=
func (h *RelationshipHandler) ListQuests(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	quests, err := h.quests.List(c.UserContext(), models.QuestFilter{
		UserID:         userID,
		RelationshipID: c.Params("id"),
		Status:         models.QuestStatus(c.Query("status")),
		Type:           models.QuestType(c.Query("type")),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"quests": quests,
		"count":  len(quests),
	})
}

// Insights returns the relationship analytics report
// GET /api/relationships/:id/insights
func (h *RelationshipHandler) Insights(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	report, err := h.insights.Get(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

// ConversationStarters suggests openers for a relationship
// GET /api/relationships/:id/starters?count=3
func (h *RelationshipHandler) ConversationStarters(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	starters, err := h.progression.ConversationStarters(c.UserContext(), userID, c.Params("id"), c.QueryInt("count", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"relationship_id": c.Params("id"),
		"starters":        starters,
	})
}
