package services

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"dytto/internal/leveling"
	"dytto/internal/models"
	"dytto/internal/store"

	"github.com/google/uuid"
)

// Relationship profile limits
const (
	MaxNameRunes     = 100
	MaxBioRunes      = 500
	MaxCategories    = 10
	overviewRecent   = 5
	defaultListLimit = 50
)

// RelationshipService manages relationship profiles and their history
type RelationshipService struct {
	store store.Store
	now   func() time.Time
}

// NewRelationshipService creates a new relationship service
func NewRelationshipService(st store.Store) *RelationshipService {
	return &RelationshipService{store: st, now: time.Now}
}

// Create adds a relationship at level 1 with no XP
func (s *RelationshipService) Create(ctx context.Context, userID string, input *models.RelationshipInput) (*models.Relationship, error) {
	if input == nil || input.Name == nil {
		return nil, models.Validationf("name is required")
	}

	now := s.now()
	rel := &models.Relationship{
		ID:               uuid.New().String(),
		UserID:           userID,
		Categories:       []string{},
		Tags:             []string{},
		ReminderInterval: models.ReminderWeekly,
		XP:               0,
		Level:            leveling.LevelFromXP(0),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := applyRelationshipInput(rel, input); err != nil {
		return nil, err
	}

	if err := s.store.CreateRelationship(ctx, rel); err != nil {
		return nil, err
	}
	log.Printf("✅ [RELATIONSHIPS] Created %s (%s) for user %s", rel.ID, rel.Name, userID)
	return rel, nil
}

// Get returns one of the user's relationships
func (s *RelationshipService) Get(ctx context.Context, userID, id string) (*models.Relationship, error) {
	return s.store.GetRelationship(ctx, userID, id)
}

// List returns the user's relationships narrowed and ordered by filter
func (s *RelationshipService) List(ctx context.Context, userID string, filter models.RelationshipFilter) ([]*models.Relationship, error) {
	filter.UserID = userID
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return s.store.ListRelationships(ctx, filter)
}

// Update changes profile fields. XP and level cannot be edited.
func (s *RelationshipService) Update(ctx context.Context, userID, id string, input *models.RelationshipInput) (*models.Relationship, error) {
	if input == nil {
		return nil, models.Validationf("request body is required")
	}
	rel, err := s.store.GetRelationship(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := applyRelationshipInput(rel, input); err != nil {
		return nil, err
	}
	rel.UpdatedAt = s.now()

	if err := s.store.UpdateRelationship(ctx, rel); err != nil {
		return nil, err
	}
	return rel, nil
}

// Delete removes a relationship with its interactions, history and quests
func (s *RelationshipService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteRelationship(ctx, userID, id); err != nil {
		return err
	}
	log.Printf("🗑️ [RELATIONSHIPS] Deleted %s for user %s", id, userID)
	return nil
}

// Overview returns the relationship with level info, recent interactions and pending quests
func (s *RelationshipService) Overview(ctx context.Context, userID, id string) (*models.RelationshipOverview, error) {
	rel, err := s.store.GetRelationship(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.ListInteractions(ctx, id, overviewRecent)
	if err != nil {
		return nil, err
	}
	pending, err := s.store.ListQuests(ctx, models.QuestFilter{UserID: userID, RelationshipID: id, Status: models.QuestPending})
	if err != nil {
		return nil, err
	}

	return &models.RelationshipOverview{
		Relationship:       rel,
		LevelInfo:          leveling.Describe(rel.XP),
		RecentInteractions: recent,
		PendingQuests:      pending,
		Overdue:            rel.IsOverdue(s.now()),
	}, nil
}

// Interactions lists a relationship's interactions, newest first
func (s *RelationshipService) Interactions(ctx context.Context, userID, id string, limit int) ([]*models.Interaction, error) {
	if _, err := s.store.GetRelationship(ctx, userID, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.store.ListInteractions(ctx, id, limit)
}

// Interaction returns one of the user's interactions
func (s *RelationshipService) Interaction(ctx context.Context, userID, id string) (*models.Interaction, error) {
	return s.store.GetInteraction(ctx, userID, id)
}

// LevelHistory lists a relationship's level changes, newest first
func (s *RelationshipService) LevelHistory(ctx context.Context, userID, id string) ([]*models.LevelChange, error) {
	if _, err := s.store.GetRelationship(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.store.ListLevelHistory(ctx, id)
}

func applyRelationshipInput(rel *models.Relationship, input *models.RelationshipInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return models.Validationf("name is required")
		}
		if utf8.RuneCountInString(name) > MaxNameRunes {
			return models.Validationf("name exceeds %d characters", MaxNameRunes)
		}
		rel.Name = name
	}
	if input.Bio != nil {
		bio := strings.TrimSpace(*input.Bio)
		if utf8.RuneCountInString(bio) > MaxBioRunes {
			return models.Validationf("bio exceeds %d characters", MaxBioRunes)
		}
		rel.Bio = bio
	}
	if input.PhotoURL != nil {
		rel.PhotoURL = strings.TrimSpace(*input.PhotoURL)
	}
	if input.Categories != nil {
		categories, err := cleanLabels("categories", input.Categories, MaxCategories)
		if err != nil {
			return err
		}
		rel.Categories = categories
	}
	if input.Tags != nil {
		tags, err := cleanLabels("tags", input.Tags, MaxTags)
		if err != nil {
			return err
		}
		rel.Tags = tags
	}
	if input.ReminderInterval != nil {
		if !input.ReminderInterval.Valid() {
			return models.Validationf("invalid reminder interval %q", *input.ReminderInterval)
		}
		rel.ReminderInterval = *input.ReminderInterval
	}
	return nil
}

// cleanLabels trims, drops empties and case-insensitive duplicates
func cleanLabels(field string, labels []string, max int) ([]string, error) {
	seen := make(map[string]bool, len(labels))
	cleaned := make([]string, 0, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" || seen[strings.ToLower(label)] {
			continue
		}
		if utf8.RuneCountInString(label) > MaxTagRunes {
			return nil, models.Validationf("%s entry %q exceeds %d characters", field, label, MaxTagRunes)
		}
		seen[strings.ToLower(label)] = true
		cleaned = append(cleaned, label)
	}
	if len(cleaned) > max {
		return nil, models.Validationf("at most %d %s are allowed", max, field)
	}
	return cleaned, nil
}
