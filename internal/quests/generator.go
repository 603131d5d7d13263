// Package quests builds relationship quests from fixed templates and simple rules.
package quests

import (
	"strconv"
	"strings"
	"time"

	"dytto/internal/models"
	"dytto/internal/utils"

	"github.com/google/uuid"
)

// Deadlines per quest type
const (
	DailyDeadline     = 24 * time.Hour
	WeeklyDeadline    = 7 * 24 * time.Hour
	MilestoneDeadline = 30 * 24 * time.Hour
	CustomDeadline    = 14 * 24 * time.Hour
)

// RecentWindow is how many recent interactions the custom rules look at
const RecentWindow = 10

// Generator creates quests. It is pure apart from the injected random source.
type Generator struct {
	rng utils.RandomSource
}

// NewGenerator creates a generator; nil rng uses a clock-seeded source
func NewGenerator(rng utils.RandomSource) *Generator {
	if rng == nil {
		rng = utils.NewRandomSource(0)
	}
	return &Generator{rng: rng}
}

// Generate builds one quest of questType for rel. An empty type means custom.
// recent should be newest first; only the first RecentWindow entries are used.
func (g *Generator) Generate(rel *models.Relationship, recent []*models.Interaction, questType models.QuestType, now time.Time) (*models.Quest, error) {
	if rel == nil {
		return nil, models.Validationf("relationship is required")
	}
	if questType == "" {
		questType = models.QuestCustom
	}

	switch questType {
	case models.QuestDaily:
		tpl := dailyTemplates[g.rng.IntN(len(dailyTemplates))]
		return build(rel, tpl, questType, rel.Level, now.Add(DailyDeadline), now), nil

	case models.QuestWeekly:
		tpl := weeklyTemplates[g.rng.IntN(len(weeklyTemplates))]
		return build(rel, tpl, questType, rel.Level, now.Add(WeeklyDeadline), now), nil

	case models.QuestMilestone:
		return g.GenerateMilestone(rel, rel.Level, now), nil

	case models.QuestCustom:
		tpl := customTemplate(rel, recent)
		return build(rel, tpl, questType, rel.Level, now.Add(CustomDeadline), now), nil
	}

	return nil, models.Validationf("unknown quest type %q", questType)
}

// GenerateMilestone builds the milestone quest for reaching level
func (g *Generator) GenerateMilestone(rel *models.Relationship, level int, now time.Time) *models.Quest {
	tpl, ok := milestoneTemplates[level]
	if !ok {
		tpl = genericMilestone
		tpl.XPReward = level * 2
	}
	q := build(rel, tpl, models.QuestMilestone, level, now.Add(MilestoneDeadline), now)
	milestone := level
	q.MilestoneLevel = &milestone
	return q
}

// customTemplate applies the ordered rules; the first match wins
func customTemplate(rel *models.Relationship, recent []*models.Interaction) Template {
	if len(recent) > RecentWindow {
		recent = recent[:RecentWindow]
	}
	recentTopics := make(map[string]bool)
	for _, in := range recent {
		if in == nil {
			continue
		}
		for _, topic := range in.Topics {
			recentTopics[topic] = true
		}
	}

	switch {
	case rel.HasCategory(models.CategoryBusiness) && !recentTopics["work"]:
		return professionalConnection
	case rel.HasCategory(models.CategoryFriend) && rel.Level >= 5 && !recentTopics["hobbies"]:
		return interestExplorer
	case rel.Level < 3:
		return gettingToKnowYou
	default:
		return connectionBuilder
	}
}

func build(rel *models.Relationship, tpl Template, questType models.QuestType, level int, deadline, now time.Time) *models.Quest {
	return &models.Quest{
		ID:             uuid.New().String(),
		UserID:         rel.UserID,
		RelationshipID: rel.ID,
		Title:          tpl.Title,
		Description:    interpolate(tpl.Description, rel.Name, level),
		Type:           questType,
		Difficulty:     tpl.Difficulty,
		XPReward:       tpl.XPReward,
		Status:         models.QuestPending,
		Deadline:       &deadline,
		CreatedAt:      now,
	}
}

func interpolate(text, name string, level int) string {
	return strings.NewReplacer("{name}", name, "{level}", strconv.Itoa(level)).Replace(text)
}
