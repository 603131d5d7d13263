package quests

import "dytto/internal/models"

// Template is a quest blueprint. Description may contain {name} and {level}.
type Template struct {
	Title       string
	Description string
	Difficulty  models.QuestDifficulty
	XPReward    int
}

var dailyTemplates = []Template{
	{"Daily Check-in", "Send a quick message to {name} asking how their day is going", models.DifficultyEasy, 5},
	{"Share Something", "Share an interesting article, meme, or thought with {name}", models.DifficultyEasy, 5},
	{"Express Gratitude", "Tell {name} something you appreciate about them", models.DifficultyMedium, 8},
}

var weeklyTemplates = []Template{
	{"Deep Conversation", "Have a meaningful conversation with {name} about their goals or dreams", models.DifficultyMedium, 12},
	{"Plan Together", "Make plans for a future activity or hangout with {name}", models.DifficultyMedium, 10},
	{"Memory Lane", "Share a favorite memory you have with {name}", models.DifficultyEasy, 8},
}

var milestoneTemplates = map[int]Template{
	3:  {"Foundation Builder", "Share a personal story or experience with {name} to strengthen your foundation", models.DifficultyMedium, 15},
	5:  {"Trust Deepener", "Ask {name} for advice on something important to you", models.DifficultyMedium, 20},
	7:  {"Bond Strengthener", "Plan and execute a special activity or experience with {name}", models.DifficultyHard, 25},
	10: {"Soul Connection", "Have a heart-to-heart conversation about life, values, and what your friendship means", models.DifficultyHard, 30},
}

// used for levels without a dedicated milestone template; XP is level*2
var genericMilestone = Template{
	Title:       "Milestone Achievement",
	Description: "Celebrate reaching level {level} with {name} by doing something meaningful together",
	Difficulty:  models.DifficultyMedium,
}

var (
	professionalConnection = Template{"Professional Connection", "Ask {name} about their current work projects or career goals", models.DifficultyEasy, 8}
	interestExplorer       = Template{"Interest Explorer", "Discover a new hobby or interest that {name} is passionate about", models.DifficultyMedium, 12}
	gettingToKnowYou       = Template{"Getting to Know You", "Learn three new things about {name}'s background or interests", models.DifficultyEasy, 10}
	connectionBuilder      = Template{"Connection Builder", "Have a meaningful conversation with {name} about something they care about", models.DifficultyMedium, 10}
)

// Templates returns the fixed template pool for a quest type.
// Milestone pools list the dedicated templates in level order.
func Templates(questType models.QuestType) []Template {
	switch questType {
	case models.QuestDaily:
		return append([]Template(nil), dailyTemplates...)
	case models.QuestWeekly:
		return append([]Template(nil), weeklyTemplates...)
	case models.QuestMilestone:
		out := make([]Template, 0, len(milestoneTemplates))
		for _, level := range []int{3, 5, 7, 10} {
			out = append(out, milestoneTemplates[level])
		}
		return out
	case models.QuestCustom:
		return []Template{professionalConnection, interestExplorer, gettingToKnowYou, connectionBuilder}
	}
	return nil
}

// TemplateTitles returns the titles of the pool for questType
func TemplateTitles(questType models.QuestType) []string {
	pool := Templates(questType)
	titles := make([]string, len(pool))
	for i, t := range pool {
		titles[i] = t.Title
	}
	return titles
}
