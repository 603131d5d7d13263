package models

import "time"

// Insights is the analytics report for one relationship
type Insights struct {
	RelationshipID    string            `json:"relationship_id"`
	InteractionTrends InteractionTrends `json:"interaction_trends"`
	EmotionalSummary  EmotionalSummary  `json:"emotional_summary"`
	Forecasts         ForecastSet       `json:"relationship_forecasts"`
	SmartSuggestions  []SmartSuggestion `json:"smart_suggestions"`
	GeneratedAt       time.Time         `json:"generated_at"`
}

// InteractionTrends covers frequency and XP
type InteractionTrends struct {
	TotalInteractions int     `json:"total_interactions"`
	WeeklyFrequency   int     `json:"weekly_frequency"`
	MonthlyFrequency  int     `json:"monthly_frequency"`
	AverageXP         float64 `json:"average_xp"`
	TrendInsight      string  `json:"trend_insight"`
}

// EmotionalSummary covers sentiment and tone
type EmotionalSummary struct {
	CommonTone            string         `json:"common_tone"`
	SentimentDistribution map[string]int `json:"sentiment_distribution"`
	EmotionalKeywords     []string       `json:"emotional_keywords"`
	Summary               string         `json:"summary"`
}

// ForecastSet groups forecasts with an overall confidence
type ForecastSet struct {
	Forecasts  []Forecast `json:"forecasts"`
	Confidence int        `json:"confidence"`
}

// Forecast is a predicted direction for the relationship
type Forecast struct {
	Path       string `json:"path"`
	Confidence int    `json:"confidence"`
	Reasoning  string `json:"reasoning"`
}

// SmartSuggestion is an actionable nudge
type SmartSuggestion struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}
