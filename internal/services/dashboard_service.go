package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"dytto/internal/leveling"
	"dytto/internal/models"
	"dytto/internal/store"

	"golang.org/x/sync/errgroup"
)

const (
	activityFeedSize = 50
	activeWindow     = 30 * 24 * time.Hour
	weekWindow       = 7 * 24 * time.Hour
)

// DashboardService aggregates a user's relationships, quests and activity
type DashboardService struct {
	store store.Store
	now   func() time.Time
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(st store.Store) *DashboardService {
	return &DashboardService{store: st, now: time.Now}
}

// Stats loads everything the dashboard needs concurrently and summarizes it
func (s *DashboardService) Stats(ctx context.Context, userID string) (*models.DashboardStats, error) {
	now := s.now()

	var (
		relationships []*models.Relationship
		questList     []*models.Quest
		weekly        []*models.Interaction
		recent        []*models.Interaction
		levelUps      []*models.LevelChange
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		relationships, err = s.store.ListRelationships(gctx, models.RelationshipFilter{UserID: userID})
		return err
	})
	g.Go(func() (err error) {
		questList, err = s.store.ListQuests(gctx, models.QuestFilter{UserID: userID})
		return err
	})
	g.Go(func() (err error) {
		weekly, err = s.store.ListUserInteractions(gctx, userID, now.Add(-weekWindow), 0)
		return err
	})
	g.Go(func() (err error) {
		recent, err = s.store.ListUserInteractions(gctx, userID, time.Time{}, activityFeedSize)
		return err
	})
	g.Go(func() (err error) {
		levelUps, err = s.store.ListUserLevelHistory(gctx, userID, activityFeedSize)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &models.DashboardStats{
		TotalRelationships: len(relationships),
		WeeklyInteractions: len(weekly),
		LevelDistribution:  make(map[int]int),
	}

	names := make(map[string]string, len(relationships))
	levelSum := 0
	for _, rel := range relationships {
		names[rel.ID] = rel.Name
		stats.TotalXP += rel.XP
		levelSum += rel.Level
		stats.LevelDistribution[rel.Level]++
		if rel.LastInteractionAt != nil && now.Sub(*rel.LastInteractionAt) <= activeWindow {
			stats.ActiveRelationships++
		}
		if rel.IsOverdue(now) {
			stats.OverdueConnections++
		}
	}
	if len(relationships) > 0 {
		stats.AverageLevel = math.Round(float64(levelSum)/float64(len(relationships))*10) / 10
	}

	for _, q := range questList {
		switch q.Status {
		case models.QuestPending:
			stats.PendingQuests++
		case models.QuestCompleted:
			stats.CompletedQuests++
			stats.QuestXPEarned += q.XPReward
		}
	}
	if len(questList) > 0 {
		stats.CompletionRate = math.Round(float64(stats.CompletedQuests)/float64(len(questList))*1000) / 10
	}

	stats.RecentActivity = buildActivityFeed(recent, levelUps, names)
	return stats, nil
}

// buildActivityFeed merges interactions and level-ups, newest first
func buildActivityFeed(interactions []*models.Interaction, levelUps []*models.LevelChange, names map[string]string) []models.ActivityItem {
	items := make([]models.ActivityItem, 0, len(interactions)+len(levelUps))

	for _, in := range interactions {
		name := names[in.RelationshipID]
		items = append(items, models.ActivityItem{
			Type:             "interaction",
			RelationshipID:   in.RelationshipID,
			RelationshipName: name,
			Description:      fmt.Sprintf("Logged a %s interaction with %s", in.Sentiment, name),
			XPGained:         in.XPGained,
			Timestamp:        in.CreatedAt,
		})
	}
	for _, lc := range levelUps {
		name := names[lc.RelationshipID]
		items = append(items, models.ActivityItem{
			Type:             "level_up",
			RelationshipID:   lc.RelationshipID,
			RelationshipName: name,
			Description:      fmt.Sprintf("%s reached level %d: %s", name, lc.NewLevel, leveling.LevelTitle(lc.NewLevel)),
			NewLevel:         lc.NewLevel,
			Timestamp:        lc.CreatedAt,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	if len(items) > activityFeedSize {
		items = items[:activityFeedSize]
	}
	return items
}
