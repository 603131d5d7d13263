package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"dytto/internal/analysis"
	"dytto/internal/leveling"
	"dytto/internal/logging"
	"dytto/internal/models"
	"dytto/internal/quests"
	"dytto/internal/store"
	"dytto/internal/utils"

	"github.com/google/uuid"
)

// Interaction input limits
const (
	MaxContentRunes = 2000
	MaxTags         = 10
	MaxTagRunes     = 50
)

// EventPublisher receives activity events
type EventPublisher interface {
	Publish(ctx context.Context, evt models.ActivityEvent)
}

// Locker serializes work on one key across instances
type Locker interface {
	WithLock(ctx context.Context, key string, fn func() error) error
}

// insightsInvalidator drops cached insights for a relationship
type insightsInvalidator interface {
	Invalidate(relationshipID string)
}

// ProgressionService applies interactions to relationships: it analyzes the
// text, awards XP atomically, detects level-ups and creates milestone quests.
type ProgressionService struct {
	store     store.Store
	analyzer  analysis.Analyzer
	generator *quests.Generator
	rng       utils.RandomSource

	events   EventPublisher
	locker   Locker
	insights insightsInvalidator
	metrics  *Metrics

	now func() time.Time
}

// NewProgressionService creates the coordinator. Optional collaborators are
// attached with the Set* methods.
func NewProgressionService(st store.Store, analyzer analysis.Analyzer, generator *quests.Generator) *ProgressionService {
	return &ProgressionService{
		store:     st,
		analyzer:  analyzer,
		generator: generator,
		rng:       utils.NewRandomSource(0),
		now:       time.Now,
	}
}

// SetRandomSource sets the randomness used to pick conversation starters
func (s *ProgressionService) SetRandomSource(rng utils.RandomSource) {
	s.rng = rng
}

// SetEventPublisher sets where activity events go
func (s *ProgressionService) SetEventPublisher(events EventPublisher) {
	s.events = events
}

// SetLocker enables the per-relationship distributed lock
func (s *ProgressionService) SetLocker(locker Locker) {
	s.locker = locker
}

// SetInsightsService sets the insights cache to invalidate on new interactions
func (s *ProgressionService) SetInsightsService(insights insightsInvalidator) {
	s.insights = insights
}

// SetMetrics sets the metrics sink
func (s *ProgressionService) SetMetrics(metrics *Metrics) {
	s.metrics = metrics
}

// SetClock overrides the time source
func (s *ProgressionService) SetClock(now func() time.Time) {
	s.now = now
}

// ApplyInteraction logs content against a relationship and returns the
// resulting progress. Nothing is written when validation or analysis fails.
func (s *ProgressionService) ApplyInteraction(ctx context.Context, userID, relationshipID, content string, tags []string) (*models.InteractionResult, error) {
	content = strings.TrimSpace(content)
	tags, err := validateInteractionInput(relationshipID, content, tags)
	if err != nil {
		return nil, err
	}

	if s.locker == nil {
		return s.applyInteraction(ctx, userID, relationshipID, content, tags)
	}

	var result *models.InteractionResult
	err = s.locker.WithLock(ctx, "dytto:lock:relationship:"+relationshipID, func() error {
		var applyErr error
		result, applyErr = s.applyInteraction(ctx, userID, relationshipID, content, tags)
		return applyErr
	})
	return result, err
}

func (s *ProgressionService) applyInteraction(ctx context.Context, userID, relationshipID, content string, tags []string) (*models.InteractionResult, error) {
	logger := logging.WithRelationship(userID, relationshipID)

	rel, err := s.store.GetRelationship(ctx, userID, relationshipID)
	if err != nil {
		return nil, err
	}

	result, err := s.analyze(ctx, content)
	if err != nil {
		logger.Warn("interaction analysis failed", "error", err)
		return nil, err
	}

	xpGained := analysis.CalculateXPGain(content, result.Sentiment, rel.Level)
	now := s.now()

	interaction := &models.Interaction{
		ID:             uuid.New().String(),
		RelationshipID: rel.ID,
		UserID:         userID,
		Content:        content,
		Sentiment:      result.Sentiment,
		SentimentScore: result.Sentiment.Score(),
		XPGained:       xpGained,
		Topics:         append([]string(nil), result.Topics...),
		Tags:           tags,
		Analysis:       result,
		CreatedAt:      now,
	}

	milestones := func(updated *models.Relationship, oldLevel, newLevel int) []*models.Quest {
		var owed []*models.Quest
		for _, level := range leveling.MilestonesCrossed(oldLevel, newLevel) {
			owed = append(owed, s.generator.GenerateMilestone(updated, level, now))
		}
		return owed
	}

	update, err := s.store.RecordInteraction(ctx, interaction, leveling.LevelFromXP, milestones)
	if err != nil {
		logger.Error("failed to record interaction", "error", err)
		return nil, err
	}

	oldLevel := leveling.LevelFromXP(update.OldXP)
	newLevel := leveling.LevelFromXP(update.NewXP)

	res := &models.InteractionResult{
		Interaction:     interaction,
		XPGained:        xpGained,
		NewXP:           update.NewXP,
		OldLevel:        oldLevel,
		NewLevel:        newLevel,
		LeveledUp:       newLevel > oldLevel,
		Analysis:        result,
		MilestoneQuests: append([]*models.Quest{}, update.MilestoneQuests...),
		LevelInfo:       leveling.Describe(update.NewXP),
	}

	for _, q := range res.MilestoneQuests {
		s.metrics.RecordQuestGenerated(string(q.Type))
	}

	s.metrics.RecordInteraction(string(result.Sentiment), xpGained)
	s.metrics.RecordLevelUps(newLevel - oldLevel)

	if s.insights != nil {
		s.insights.Invalidate(rel.ID)
	}
	s.publishProgress(ctx, userID, rel, res)

	if res.LeveledUp {
		log.Printf("🎉 [PROGRESSION] %s reached level %d (%s) with %d XP", rel.ID, newLevel, leveling.LevelTitle(newLevel), update.NewXP)
	}
	logger.Info("interaction applied", "xp_gained", xpGained, "new_xp", update.NewXP, "level", newLevel)

	return res, nil
}

func (s *ProgressionService) analyze(ctx context.Context, content string) (*models.Analysis, error) {
	start := time.Now()
	result, err := s.analyzer.Analyze(ctx, content)
	if err == nil && (result == nil || !result.Sentiment.Valid()) {
		err = fmt.Errorf("analyzer returned no usable result")
	}
	s.metrics.RecordAnalysis(time.Since(start).Seconds(), err != nil)

	if err != nil {
		if errors.Is(err, models.ErrAnalysisFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", models.ErrAnalysisFailed, err)
	}
	return result, nil
}

func (s *ProgressionService) publishProgress(ctx context.Context, userID string, rel *models.Relationship, res *models.InteractionResult) {
	if s.events == nil {
		return
	}
	now := s.now()

	s.events.Publish(ctx, models.ActivityEvent{
		Type:           models.EventInteractionLogged,
		UserID:         userID,
		RelationshipID: rel.ID,
		Data: map[string]interface{}{
			"interaction_id":    res.Interaction.ID,
			"relationship_name": rel.Name,
			"sentiment":         res.Interaction.Sentiment,
			"xp_gained":         res.XPGained,
			"new_xp":            res.NewXP,
		},
		Timestamp: now,
	})

	if res.LeveledUp {
		s.events.Publish(ctx, models.ActivityEvent{
			Type:           models.EventLevelUp,
			UserID:         userID,
			RelationshipID: rel.ID,
			Data: map[string]interface{}{
				"relationship_name": rel.Name,
				"old_level":         res.OldLevel,
				"new_level":         res.NewLevel,
				"title":             leveling.LevelTitle(res.NewLevel),
				"achievement":       leveling.AchievementForLevel(res.NewLevel),
			},
			Timestamp: now,
		})
	}

	for _, q := range res.MilestoneQuests {
		s.events.Publish(ctx, questEvent(models.EventQuestCreated, q, now))
	}
}

// GenerateQuest creates and stores a quest for a relationship on demand
func (s *ProgressionService) GenerateQuest(ctx context.Context, userID, relationshipID string, questType models.QuestType) (*models.Quest, error) {
	if relationshipID == "" {
		return nil, models.Validationf("relationship id is required")
	}

	rel, err := s.store.GetRelationship(ctx, userID, relationshipID)
	if err != nil {
		return nil, err
	}

	recent, err := s.store.ListInteractions(ctx, rel.ID, quests.RecentWindow)
	if err != nil {
		return nil, err
	}

	now := s.now()
	q, err := s.generator.Generate(rel, recent, questType, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateQuest(ctx, q); err != nil {
		return nil, err
	}

	s.metrics.RecordQuestGenerated(string(q.Type))
	if s.events != nil {
		s.events.Publish(ctx, questEvent(models.EventQuestCreated, q, now))
	}
	log.Printf("🎯 [QUESTS] Generated %s quest %q for %s", q.Type, q.Title, rel.ID)
	return q, nil
}

// ConversationStarters suggests openers for a relationship based on its
// recent interactions
func (s *ProgressionService) ConversationStarters(ctx context.Context, userID, relationshipID string, count int) ([]string, error) {
	if count < 0 || count > analysis.MaxStarterCount {
		return nil, models.Validationf("count must be between 1 and %d", analysis.MaxStarterCount)
	}
	rel, err := s.store.GetRelationship(ctx, userID, relationshipID)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.ListInteractions(ctx, rel.ID, quests.RecentWindow)
	if err != nil {
		return nil, err
	}
	return analysis.ConversationStarters(rel, recent, s.rng, count), nil
}

// PreviewInteraction analyzes content and reports the XP it would earn at
// level without touching any relationship
func (s *ProgressionService) PreviewInteraction(ctx context.Context, content string, level int) (*models.Analysis, int, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, 0, models.Validationf("content is required")
	}
	if utf8.RuneCountInString(content) > MaxContentRunes {
		return nil, 0, models.Validationf("content exceeds %d characters", MaxContentRunes)
	}

	result, err := s.analyze(ctx, content)
	if err != nil {
		return nil, 0, err
	}
	return result, analysis.CalculateXPGain(content, result.Sentiment, level), nil
}

func validateInteractionInput(relationshipID, content string, tags []string) ([]string, error) {
	if relationshipID == "" {
		return nil, models.Validationf("relationship id is required")
	}
	if content == "" {
		return nil, models.Validationf("content is required")
	}
	if utf8.RuneCountInString(content) > MaxContentRunes {
		return nil, models.Validationf("content exceeds %d characters", MaxContentRunes)
	}
	if len(tags) > MaxTags {
		return nil, models.Validationf("at most %d tags are allowed", MaxTags)
	}

	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if utf8.RuneCountInString(tag) > MaxTagRunes {
			return nil, models.Validationf("tag %q exceeds %d characters", tag, MaxTagRunes)
		}
		cleaned = append(cleaned, tag)
	}
	return cleaned, nil
}

func questEvent(eventType string, q *models.Quest, at time.Time) models.ActivityEvent {
	return models.ActivityEvent{
		Type:           eventType,
		UserID:         q.UserID,
		RelationshipID: q.RelationshipID,
		Data: map[string]interface{}{
			"quest_id":  q.ID,
			"title":     q.Title,
			"type":      q.Type,
			"status":    q.Status,
			"xp_reward": q.XPReward,
		},
		Timestamp: at,
	}
}
