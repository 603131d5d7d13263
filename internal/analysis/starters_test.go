package analysis

import (
	"strings"
	"testing"

	"dytto/internal/models"
	"dytto/internal/utils"
)

func TestConversationStarters(t *testing.T) {
	friend := &models.Relationship{Name: "Sam", Categories: []string{models.CategoryFriend}}
	family := &models.Relationship{Name: "Mum", Categories: []string{models.CategoryFamily}}
	recent := []*models.Interaction{
		{Topics: []string{GeneralTopic}},
		{Topics: []string{"work", "hobbies"}},
	}

	tests := []struct {
		name      string
		rel       *models.Relationship
		recent    []*models.Interaction
		count     int
		wantLen   int
		wantFirst string
	}{
		{"default count", friend, nil, 0, DefaultStarterCount, genericStarters[0]},
		{"recent topic first", friend, recent, 2, 2, "How are you feeling about work lately?"},
		{"family opener", family, nil, 1, 1, "How is everyone at home doing?"},
		{"count capped at pool", friend, nil, 50, len(genericStarters), genericStarters[0]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConversationStarters(tt.rel, tt.recent, utils.FixedSource{}, tt.count)
			if len(got) != tt.wantLen {
				t.Fatalf("Expected %d starters, got %d: %v", tt.wantLen, len(got), got)
			}
			if got[0] != tt.wantFirst {
				t.Errorf("Expected first starter %q, got %q", tt.wantFirst, got[0])
			}
		})
	}
}

func TestConversationStarters_Distinct(t *testing.T) {
	rel := &models.Relationship{Name: "Sam"}
	recent := []*models.Interaction{{Topics: []string{"travel"}}}

	for seed := uint64(1); seed <= 50; seed++ {
		got := ConversationStarters(rel, recent, utils.NewSeededSource(seed), 5)
		seen := make(map[string]bool, len(got))
		for _, s := range got {
			if seen[s] {
				t.Fatalf("Seed %d: duplicate starter %q in %v", seed, s, got)
			}
			seen[s] = true
			if strings.Contains(s, "[") {
				t.Errorf("Seed %d: unfilled placeholder in %q", seed, s)
			}
		}
	}
}
