package services

import (
	"context"
	"testing"
	"time"

	"dytto/internal/models"
	"dytto/internal/store"
)

func TestDashboardService_Stats(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	active := seedRelationship(t, st, "user-1", 0)
	seedRelationship(t, st, "user-1", 0)
	stale := &models.Relationship{
		ID:               "stale",
		UserID:           "user-1",
		Name:             "Old Friend",
		Categories:       []string{},
		Tags:             []string{},
		ReminderInterval: models.ReminderWeekly,
		Level:            1,
		CreatedAt:        testNow.Add(-10 * 24 * time.Hour),
		UpdatedAt:        testNow.Add(-10 * 24 * time.Hour),
	}
	if err := st.CreateRelationship(ctx, stale); err != nil {
		t.Fatalf("Failed to create relationship: %v", err)
	}
	seedRelationship(t, st, "user-2", 100)

	progression := newTestProgression(st, nil)
	for _, content := range []string{"Quick call", "Short visit"} {
		if _, err := progression.ApplyInteraction(ctx, "user-1", active.ID, content, nil); err != nil {
			t.Fatalf("ApplyInteraction failed: %v", err)
		}
	}

	questSvc := newTestQuestService(st)
	done, err := questSvc.Create(ctx, "user-1", &models.QuestInput{Title: "Write a letter", XPReward: 10})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := questSvc.Create(ctx, "user-1", &models.QuestInput{Title: "Bake cookies"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := questSvc.Complete(ctx, "user-1", done.ID); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	svc := NewDashboardService(st)
	svc.now = func() time.Time { return testNow.Add(time.Hour) }

	stats, err := svc.Stats(ctx, "user-1")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.TotalRelationships != 3 {
		t.Errorf("Expected 3 relationships, got %d", stats.TotalRelationships)
	}
	if stats.ActiveRelationships != 1 {
		t.Errorf("Expected 1 active relationship, got %d", stats.ActiveRelationships)
	}
	if stats.OverdueConnections != 1 {
		t.Errorf("Expected 1 overdue connection, got %d", stats.OverdueConnections)
	}
	if stats.WeeklyInteractions != 2 {
		t.Errorf("Expected 2 weekly interactions, got %d", stats.WeeklyInteractions)
	}
	if stats.TotalXP != 4 {
		t.Errorf("Expected 4 total XP, got %d", stats.TotalXP)
	}
	if stats.AverageLevel != 1 {
		t.Errorf("Expected average level 1, got %v", stats.AverageLevel)
	}
	if stats.LevelDistribution[1] != 3 {
		t.Errorf("Expected 3 relationships at level 1, got %v", stats.LevelDistribution)
	}
	if stats.PendingQuests != 1 || stats.CompletedQuests != 1 {
		t.Errorf("Expected 1 pending and 1 completed quest, got %d and %d", stats.PendingQuests, stats.CompletedQuests)
	}
	if stats.CompletionRate != 50 {
		t.Errorf("Expected 50%% completion, got %v", stats.CompletionRate)
	}
	if stats.QuestXPEarned != 10 {
		t.Errorf("Expected 10 quest XP earned, got %d", stats.QuestXPEarned)
	}
	if len(stats.RecentActivity) != 2 {
		t.Fatalf("Expected 2 activity items, got %d", len(stats.RecentActivity))
	}
	if stats.RecentActivity[0].RelationshipName != "Sarah" || stats.RecentActivity[0].Type != "interaction" {
		t.Errorf("Unexpected activity item: %+v", stats.RecentActivity[0])
	}
}

func TestDashboardService_Empty(t *testing.T) {
	stats, err := NewDashboardService(store.NewMemoryStore()).Stats(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalRelationships != 0 || stats.AverageLevel != 0 || stats.CompletionRate != 0 {
		t.Errorf("Expected zero stats, got %+v", stats)
	}
	if stats.RecentActivity == nil {
		t.Error("Expected an empty activity list, not nil")
	}
}

func TestBuildActivityFeed(t *testing.T) {
	interactions := []*models.Interaction{
		{RelationshipID: "a", XPGained: 2, Sentiment: models.SentimentNeutral, CreatedAt: testNow},
	}
	levelUps := []*models.LevelChange{
		{RelationshipID: "a", OldLevel: 2, NewLevel: 3, CreatedAt: testNow.Add(time.Minute)},
	}

	feed := buildActivityFeed(interactions, levelUps, map[string]string{"a": "Sarah"})
	if len(feed) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(feed))
	}
	if feed[0].Type != "level_up" || feed[0].NewLevel != 3 {
		t.Errorf("Expected the level-up first, got %+v", feed[0])
	}
	if feed[1].XPGained != 2 {
		t.Errorf("Expected interaction XP 2, got %d", feed[1].XPGained)
	}
}
