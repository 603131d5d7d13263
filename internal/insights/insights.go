// Package insights derives trends, emotional summaries, forecasts and
// suggestions from a relationship's interaction history.
package insights

import (
	"fmt"
	"math"
	"strings"
	"time"

	"dytto/internal/models"
)

const (
	// MinInteractions is the least history needed for a report
	MinInteractions = 3
	// MaxInteractions caps how much history is considered
	MaxInteractions = 50

	maxKeywords    = 5
	maxSuggestions = 3
	topicWindow    = 5
	reconnectDays  = 7
)

// Generate builds the report for rel. interactions must be newest first.
func Generate(rel *models.Relationship, interactions []*models.Interaction, now time.Time) (*models.Insights, error) {
	if rel == nil {
		return nil, models.Validationf("relationship is required")
	}
	if len(interactions) < MinInteractions {
		return nil, models.Validationf("not enough interactions to generate insights, log at least %d first", MinInteractions)
	}
	if len(interactions) > MaxInteractions {
		interactions = interactions[:MaxInteractions]
	}

	weekAgo := now.Add(-7 * 24 * time.Hour)
	monthAgo := now.Add(-30 * 24 * time.Hour)

	weekly, monthly, totalXP := 0, 0, 0
	pos, neg, neu := 0, 0, 0
	for _, in := range interactions {
		if in.CreatedAt.After(weekAgo) {
			weekly++
		}
		if in.CreatedAt.After(monthAgo) {
			monthly++
		}
		totalXP += in.XPGained

		switch sentimentOf(in) {
		case models.SentimentPositive:
			pos++
		case models.SentimentNegative:
			neg++
		case models.SentimentNeutral:
			neu++
		}
	}
	averageXP := float64(totalXP) / float64(len(interactions))
	commonTone := commonTone(pos, neg, neu)

	return &models.Insights{
		RelationshipID: rel.ID,
		InteractionTrends: models.InteractionTrends{
			TotalInteractions: len(interactions),
			WeeklyFrequency:   weekly,
			MonthlyFrequency:  monthly,
			AverageXP:         math.Round(averageXP*10) / 10,
			TrendInsight:      trendInsight(rel.Name, weekly, monthly),
		},
		EmotionalSummary: models.EmotionalSummary{
			CommonTone:            commonTone,
			SentimentDistribution: distribution(pos, neg, neu),
			EmotionalKeywords:     emotionalKeywords(interactions),
			Summary:               emotionalSummary(rel.Name, commonTone, len(interactions)),
		},
		Forecasts: models.ForecastSet{
			Forecasts:  forecasts(rel, len(interactions), averageXP),
			Confidence: ForecastConfidence(len(interactions)),
		},
		SmartSuggestions: smartSuggestions(rel, interactions, now),
		GeneratedAt:      now,
	}, nil
}

func sentimentOf(in *models.Interaction) models.Sentiment {
	if in.Analysis != nil && in.Analysis.Sentiment != "" {
		return in.Analysis.Sentiment
	}
	return in.Sentiment
}

func commonTone(pos, neg, neu int) string {
	switch {
	case pos > neg && pos > neu:
		return "Positive"
	case neg > pos && neg > neu:
		return "Negative"
	default:
		return "Balanced"
	}
}

func distribution(pos, neg, neu int) map[string]int {
	total := pos + neg + neu
	pct := func(n int) int {
		if total == 0 {
			return 0
		}
		return int(math.Round(float64(n) / float64(total) * 100))
	}
	return map[string]int{
		"positive": pct(pos),
		"negative": pct(neg),
		"neutral":  pct(neu),
	}
}

func trendInsight(name string, weekly, monthly int) string {
	switch {
	case weekly == 0 && monthly == 0:
		return fmt.Sprintf("You haven't logged any interactions with %s recently. Consider reaching out!", name)
	case weekly > 2:
		return fmt.Sprintf("You're very active with %s this week! Your relationship is clearly thriving.", name)
	case monthly > weekly*3:
		return fmt.Sprintf("Your interactions with %s have been consistent this month. Great job maintaining the connection!", name)
	default:
		return fmt.Sprintf("You maintain a steady relationship with %s. Consider scheduling regular check-ins.", name)
	}
}

// emotionalKeywords collects up to five distinct tones in history order
func emotionalKeywords(interactions []*models.Interaction) []string {
	seen := make(map[string]bool)
	keywords := make([]string, 0, maxKeywords)
	for _, in := range interactions {
		if in.Analysis == nil {
			continue
		}
		for _, tone := range in.Analysis.EmotionalTone {
			if seen[tone] {
				continue
			}
			seen[tone] = true
			keywords = append(keywords, tone)
			if len(keywords) == maxKeywords {
				return keywords
			}
		}
	}
	return keywords
}

func emotionalSummary(name, tone string, count int) string {
	quality := "stable and balanced"
	switch tone {
	case "Positive":
		quality = "healthy and supportive"
	case "Negative":
		quality = "challenging but important"
	}
	return fmt.Sprintf("Your relationship with %s shows a %s emotional pattern across %d interactions. This suggests a %s connection.",
		name, strings.ToLower(tone), count, quality)
}

func forecasts(rel *models.Relationship, count int, averageXP float64) []models.Forecast {
	var out []models.Forecast
	if averageXP > 2 {
		out = append(out, models.Forecast{
			Path:       "Deepening Connection",
			Confidence: 85,
			Reasoning:  "High-quality interactions suggest this relationship will continue to strengthen.",
		})
	}
	if count > 10 {
		out = append(out, models.Forecast{
			Path:       "Stable Friendship",
			Confidence: 90,
			Reasoning:  "Consistent interaction history indicates a reliable, long-term relationship.",
		})
	}
	if rel.HasCategory(models.CategoryFriend) && rel.Level >= 5 {
		out = append(out, models.Forecast{
			Path:       "Potential for Deeper Bond",
			Confidence: 70,
			Reasoning:  "Current level and friendship category suggest potential for closer connection.",
		})
	}
	if len(out) == 0 {
		out = append(out, models.Forecast{
			Path:       "Continued Growth",
			Confidence: 75,
			Reasoning:  "Based on current interaction patterns, this relationship shows positive potential.",
		})
	}
	return out
}

func smartSuggestions(rel *models.Relationship, interactions []*models.Interaction, now time.Time) []models.SmartSuggestion {
	var out []models.SmartSuggestion

	days := int(now.Sub(interactions[0].CreatedAt).Hours() / 24)
	if days > reconnectDays {
		out = append(out, models.SmartSuggestion{
			Type:    "Reconnection Nudge",
			Content: fmt.Sprintf("It's been %d days since you logged an interaction with %s. How are they doing?", days, rel.Name),
		})
	}

	if rel.Level < 5 {
		out = append(out, models.SmartSuggestion{
			Type:    "Growth Opportunity",
			Content: fmt.Sprintf("Try sharing something personal with %s to deepen your connection.", rel.Name),
		})
	} else {
		out = append(out, models.SmartSuggestion{
			Type:    "Maintenance",
			Content: fmt.Sprintf("Your relationship with %s is strong. Consider planning a meaningful activity together.", rel.Name),
		})
	}

	window := interactions
	if len(window) > topicWindow {
		window = window[:topicWindow]
	}
	for _, in := range window {
		if in.HasTopic("work") || (in.Analysis != nil && containsTopic(in.Analysis.Topics, "work")) {
			out = append(out, models.SmartSuggestion{
				Type:    "Personal Connection",
				Content: fmt.Sprintf("You've been discussing work with %s. Try asking about their personal interests or hobbies.", rel.Name),
			})
			break
		}
	}

	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

func containsTopic(topics []string, topic string) bool {
	for _, t := range topics {
		if t == topic {
			return true
		}
	}
	return false
}

// ForecastConfidence grows with the amount of history
func ForecastConfidence(count int) int {
	switch {
	case count < 5:
		return 60
	case count < 10:
		return 75
	case count < 20:
		return 85
	default:
		return 95
	}
}
