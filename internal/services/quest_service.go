package services

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"dytto/internal/models"
	"dytto/internal/quests"
	"dytto/internal/store"

	"github.com/google/uuid"
)

// Manual quest limits
const (
	MaxQuestTitleRunes       = 100
	MaxQuestDescriptionRunes = 500
	MaxQuestXPReward         = 100
	defaultManualXPReward    = 5
)

// QuestService manages quest listing, manual quests and status transitions
type QuestService struct {
	store   store.Store
	events  EventPublisher
	metrics *Metrics
	now     func() time.Time
}

// NewQuestService creates a new quest service
func NewQuestService(st store.Store) *QuestService {
	return &QuestService{store: st, now: time.Now}
}

// SetEventPublisher sets where quest events go
func (s *QuestService) SetEventPublisher(events EventPublisher) {
	s.events = events
}

// SetMetrics sets the metrics sink
func (s *QuestService) SetMetrics(metrics *Metrics) {
	s.metrics = metrics
}

// List returns quests matching filter; filter.UserID must be set
func (s *QuestService) List(ctx context.Context, filter models.QuestFilter) ([]*models.Quest, error) {
	if filter.UserID == "" {
		return nil, models.ErrUnauthorized
	}
	if filter.Status != "" && filter.Status != models.QuestPending && filter.Status != models.QuestCompleted && filter.Status != models.QuestExpired {
		return nil, models.Validationf("invalid quest status %q", filter.Status)
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, models.Validationf("invalid quest type %q", filter.Type)
	}
	if filter.RelationshipID != "" {
		if _, err := s.store.GetRelationship(ctx, filter.UserID, filter.RelationshipID); err != nil {
			return nil, err
		}
	}
	return s.store.ListQuests(ctx, filter)
}

// Get returns one of the user's quests
func (s *QuestService) Get(ctx context.Context, userID, id string) (*models.Quest, error) {
	return s.store.GetQuest(ctx, userID, id)
}

// Create stores a manual custom quest, optionally tied to a relationship
func (s *QuestService) Create(ctx context.Context, userID string, input *models.QuestInput) (*models.Quest, error) {
	if input == nil {
		return nil, models.Validationf("request body is required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, models.Validationf("title is required")
	}
	if utf8.RuneCountInString(title) > MaxQuestTitleRunes {
		return nil, models.Validationf("title exceeds %d characters", MaxQuestTitleRunes)
	}
	description := strings.TrimSpace(input.Description)
	if utf8.RuneCountInString(description) > MaxQuestDescriptionRunes {
		return nil, models.Validationf("description exceeds %d characters", MaxQuestDescriptionRunes)
	}

	difficulty := input.Difficulty
	switch difficulty {
	case "":
		difficulty = models.DifficultyEasy
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
	default:
		return nil, models.Validationf("invalid difficulty %q", difficulty)
	}

	reward := input.XPReward
	if reward == 0 {
		reward = defaultManualXPReward
	}
	if reward < 0 || reward > MaxQuestXPReward {
		return nil, models.Validationf("xp_reward must be between 1 and %d", MaxQuestXPReward)
	}

	now := s.now()
	deadline := input.Deadline
	if deadline == nil {
		d := now.Add(quests.CustomDeadline)
		deadline = &d
	} else if !deadline.After(now) {
		return nil, models.Validationf("deadline must be in the future")
	}

	if input.RelationshipID != "" {
		if _, err := s.store.GetRelationship(ctx, userID, input.RelationshipID); err != nil {
			return nil, err
		}
	}

	q := &models.Quest{
		ID:             uuid.New().String(),
		UserID:         userID,
		RelationshipID: input.RelationshipID,
		Title:          title,
		Description:    description,
		Type:           models.QuestCustom,
		Difficulty:     difficulty,
		XPReward:       reward,
		Status:         models.QuestPending,
		Deadline:       deadline,
		CreatedAt:      now,
	}
	if err := s.store.CreateQuest(ctx, q); err != nil {
		return nil, err
	}

	s.metrics.RecordQuestGenerated(string(q.Type))
	s.publish(ctx, questEvent(models.EventQuestCreated, q, now))
	return q, nil
}

// Complete marks a pending quest completed. Relationship XP is unchanged;
// the reward is tracked on the quest and reported by the dashboard.
func (s *QuestService) Complete(ctx context.Context, userID, id string) (*models.Quest, error) {
	now := s.now()
	q, err := s.store.TransitionQuest(ctx, userID, id, models.QuestCompleted, now)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordQuestTransition(string(models.QuestCompleted), 1)
	s.publish(ctx, questEvent(models.EventQuestCompleted, q, now))
	log.Printf("🏆 [QUESTS] Quest %s completed by user %s (+%d XP reward)", q.ID, userID, q.XPReward)
	return q, nil
}

// ExpireOverdue expires every pending quest past its deadline and returns how many changed
func (s *QuestService) ExpireOverdue(ctx context.Context) (int, error) {
	now := s.now()
	expired, err := s.store.ExpireQuests(ctx, now)
	if err != nil {
		return 0, err
	}

	s.metrics.RecordQuestTransition(string(models.QuestExpired), len(expired))
	for _, q := range expired {
		s.publish(ctx, questEvent(models.EventQuestExpired, q, now))
	}
	return len(expired), nil
}

// Templates returns the template titles per quest type
func (s *QuestService) Templates() map[models.QuestType][]string {
	return map[models.QuestType][]string{
		models.QuestDaily:     quests.TemplateTitles(models.QuestDaily),
		models.QuestWeekly:    quests.TemplateTitles(models.QuestWeekly),
		models.QuestMilestone: quests.TemplateTitles(models.QuestMilestone),
		models.QuestCustom:    quests.TemplateTitles(models.QuestCustom),
	}
}

func (s *QuestService) publish(ctx context.Context, evt models.ActivityEvent) {
	if s.events != nil {
		s.events.Publish(ctx, evt)
	}
}
