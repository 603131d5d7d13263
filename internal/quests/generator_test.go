package quests

import (
	"errors"
	"strings"
	"testing"
	"time"

	"dytto/internal/models"
	"dytto/internal/utils"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testRelationship(level int, categories ...string) *models.Relationship {
	return &models.Relationship{
		ID:         "rel-1",
		UserID:     "user-123",
		Name:       "Alex",
		Categories: categories,
		Level:      level,
	}
}

func interactionWithTopics(topics ...string) *models.Interaction {
	return &models.Interaction{Topics: topics}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestGenerate_DailyFromPool(t *testing.T) {
	g := NewGenerator(utils.NewSeededSource(1))
	pool := TemplateTitles(models.QuestDaily)

	for i := 0; i < 50; i++ {
		q, err := g.Generate(testRelationship(2), nil, models.QuestDaily, testNow)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !contains(pool, q.Title) {
			t.Fatalf("Daily quest %q not in pool %v", q.Title, pool)
		}
		if !q.Deadline.Equal(testNow.Add(24 * time.Hour)) {
			t.Errorf("Expected deadline +1 day, got %v", q.Deadline)
		}
		if q.Status != models.QuestPending {
			t.Errorf("Expected pending status, got %s", q.Status)
		}
		if !strings.Contains(q.Description, "Alex") {
			t.Errorf("Expected description to mention Alex, got %s", q.Description)
		}
	}
}

func TestGenerate_WeeklyPick(t *testing.T) {
	g := NewGenerator(utils.FixedSource{Int: 2})
	q, err := g.Generate(testRelationship(4), nil, models.QuestWeekly, testNow)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if q.Title != "Memory Lane" || q.XPReward != 8 || q.Difficulty != models.DifficultyEasy {
		t.Errorf("Unexpected weekly quest: %+v", q)
	}
	if !q.Deadline.Equal(testNow.Add(7 * 24 * time.Hour)) {
		t.Errorf("Expected deadline +7 days, got %v", q.Deadline)
	}
}

func TestGenerateMilestone(t *testing.T) {
	g := NewGenerator(nil)

	tests := []struct {
		level      int
		title      string
		xp         int
		difficulty models.QuestDifficulty
	}{
		{3, "Foundation Builder", 15, models.DifficultyMedium},
		{5, "Trust Deepener", 20, models.DifficultyMedium},
		{7, "Bond Strengthener", 25, models.DifficultyHard},
		{10, "Soul Connection", 30, models.DifficultyHard},
		{4, "Milestone Achievement", 8, models.DifficultyMedium},
		{8, "Milestone Achievement", 16, models.DifficultyMedium},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			q := g.GenerateMilestone(testRelationship(tt.level), tt.level, testNow)
			if q.Title != tt.title || q.XPReward != tt.xp || q.Difficulty != tt.difficulty {
				t.Errorf("Expected %s/%d/%s, got %s/%d/%s", tt.title, tt.xp, tt.difficulty, q.Title, q.XPReward, q.Difficulty)
			}
			if q.MilestoneLevel == nil || *q.MilestoneLevel != tt.level {
				t.Errorf("Expected milestone level %d", tt.level)
			}
			if q.Type != models.QuestMilestone {
				t.Errorf("Expected milestone type, got %s", q.Type)
			}
			if !q.Deadline.Equal(testNow.Add(30 * 24 * time.Hour)) {
				t.Errorf("Expected deadline +30 days, got %v", q.Deadline)
			}
		})
	}

	generic := g.GenerateMilestone(testRelationship(4), 4, testNow)
	if !strings.Contains(generic.Description, "level 4") || !strings.Contains(generic.Description, "Alex") {
		t.Errorf("Expected interpolated description, got %s", generic.Description)
	}
}

func TestGenerate_MilestoneUsesCurrentLevel(t *testing.T) {
	g := NewGenerator(nil)
	q, err := g.Generate(testRelationship(5), nil, models.QuestMilestone, testNow)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if q.Title != "Trust Deepener" {
		t.Errorf("Expected Trust Deepener, got %s", q.Title)
	}
}

func TestGenerate_CustomRules(t *testing.T) {
	g := NewGenerator(nil)

	tests := []struct {
		name     string
		rel      *models.Relationship
		recent   []*models.Interaction
		expected string
	}{
		{"business without work talk", testRelationship(6, "Business"), []*models.Interaction{interactionWithTopics("family")}, "Professional Connection"},
		{"business with work talk falls through", testRelationship(6, "Business"), []*models.Interaction{interactionWithTopics("work")}, "Connection Builder"},
		{"business category case-insensitive", testRelationship(6, "business"), nil, "Professional Connection"},
		{"friend level 5 without hobbies", testRelationship(5, "Friend"), nil, "Interest Explorer"},
		{"friend with hobbies", testRelationship(5, "Friend"), []*models.Interaction{interactionWithTopics("hobbies")}, "Connection Builder"},
		{"friend below level 5", testRelationship(4, "Friend"), nil, "Connection Builder"},
		{"new relationship", testRelationship(2, "Family"), nil, "Getting to Know You"},
		{"business rule wins over low level", testRelationship(1, "Business"), nil, "Professional Connection"},
		{"default", testRelationship(4, "Mentor"), nil, "Connection Builder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := g.Generate(tt.rel, tt.recent, models.QuestCustom, testNow)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if q.Title != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, q.Title)
			}
			if !q.Deadline.Equal(testNow.Add(14 * 24 * time.Hour)) {
				t.Errorf("Expected deadline +14 days, got %v", q.Deadline)
			}
		})
	}
}

func TestGenerate_CustomOnlyLooksAtRecentWindow(t *testing.T) {
	g := NewGenerator(nil)

	recent := make([]*models.Interaction, 0, 11)
	for i := 0; i < RecentWindow; i++ {
		recent = append(recent, interactionWithTopics("general"))
	}
	recent = append(recent, interactionWithTopics("work")) // 11th, outside the window

	q, err := g.Generate(testRelationship(6, "Business"), recent, models.QuestCustom, testNow)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if q.Title != "Professional Connection" {
		t.Errorf("Expected Professional Connection, got %s", q.Title)
	}
}

func TestGenerate_DefaultsAndErrors(t *testing.T) {
	g := NewGenerator(nil)

	q, err := g.Generate(testRelationship(1), nil, "", testNow)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if q.Type != models.QuestCustom {
		t.Errorf("Expected empty type to default to custom, got %s", q.Type)
	}

	if _, err := g.Generate(testRelationship(1), nil, "monthly", testNow); !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected ErrValidation for unknown type, got %v", err)
	}
	if _, err := g.Generate(nil, nil, models.QuestDaily, testNow); !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected ErrValidation for nil relationship, got %v", err)
	}
}

func TestGenerate_UniqueIDs(t *testing.T) {
	g := NewGenerator(nil)
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		q, _ := g.Generate(testRelationship(2), nil, models.QuestDaily, testNow)
		if seen[q.ID] {
			t.Fatalf("Duplicate quest ID %s", q.ID)
		}
		seen[q.ID] = true
		if q.UserID != "user-123" || q.RelationshipID != "rel-1" {
			t.Errorf("Expected ownership copied from relationship, got %s/%s", q.UserID, q.RelationshipID)
		}
	}
}
