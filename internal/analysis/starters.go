package analysis

import (
	"fmt"

	"dytto/internal/models"
	"dytto/internal/utils"
)

// Conversation starter limits
const (
	DefaultStarterCount = 3
	MaxStarterCount     = 10
)

var genericStarters = []string{
	"How has your week been going?",
	"What's the most interesting thing that happened to you recently?",
	"I saw something that reminded me of you...",
	"What are you most excited about right now?",
	"What's bringing you joy these days?",
	"Any fun plans coming up?",
	"I'd love to hear your thoughts on...",
}

// ConversationStarters picks count distinct openers for rel. The most recent
// specific topic in recent (newest first) adds openers that mention it.
// count <= 0 means DefaultStarterCount.
func ConversationStarters(rel *models.Relationship, recent []*models.Interaction, rng utils.RandomSource, count int) []string {
	pool := make([]string, 0, len(genericStarters)+3)
	if topic := latestTopic(recent); topic != "" {
		pool = append(pool,
			fmt.Sprintf("How are you feeling about %s lately?", topic),
			fmt.Sprintf("I've been thinking about what you said about %s.", topic),
		)
	}
	if rel != nil && rel.HasCategory(models.CategoryFamily) {
		pool = append(pool, "How is everyone at home doing?")
	}
	pool = append(pool, genericStarters...)

	if count <= 0 {
		count = DefaultStarterCount
	}
	if count > len(pool) {
		count = len(pool)
	}
	for i := 0; i < count; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:count]
}

func latestTopic(recent []*models.Interaction) string {
	for _, in := range recent {
		if in == nil {
			continue
		}
		for _, topic := range in.Topics {
			if topic != "" && topic != GeneralTopic {
				return topic
			}
		}
	}
	return ""
}
