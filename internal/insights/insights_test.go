package insights

import (
	"errors"
	"strings"
	"testing"
	"time"

	"dytto/internal/models"
)

var now = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func interaction(daysAgo int, sentiment models.Sentiment, xp int, topics []string, tones ...string) *models.Interaction {
	return &models.Interaction{
		Sentiment: sentiment,
		XPGained:  xp,
		Topics:    topics,
		CreatedAt: now.Add(-time.Duration(daysAgo) * 24 * time.Hour),
		Analysis: &models.Analysis{
			Sentiment:     sentiment,
			EmotionalTone: tones,
			Topics:        topics,
		},
	}
}

func rel(level int, categories ...string) *models.Relationship {
	return &models.Relationship{ID: "rel-1", Name: "Sam", Level: level, Categories: categories}
}

func TestGenerate_RequiresHistory(t *testing.T) {
	_, err := Generate(rel(2), []*models.Interaction{
		interaction(1, models.SentimentPositive, 2, nil),
		interaction(2, models.SentimentPositive, 2, nil),
	}, now)
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}

func TestGenerate_TrendsAndSummary(t *testing.T) {
	history := []*models.Interaction{
		interaction(1, models.SentimentPositive, 3, []string{"work"}, "enthusiastic", "optimistic"),
		interaction(2, models.SentimentPositive, 3, []string{"general"}, "grateful", "optimistic"),
		interaction(3, models.SentimentPositive, 2, []string{"hobbies"}, "excited", "content"),
		interaction(20, models.SentimentNegative, 1, []string{"family"}, "concerned", "anxious"),
	}

	report, err := Generate(rel(3, "Friend"), history, now)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	trends := report.InteractionTrends
	if trends.TotalInteractions != 4 || trends.WeeklyFrequency != 3 || trends.MonthlyFrequency != 4 {
		t.Errorf("Unexpected trends: %+v", trends)
	}
	if trends.AverageXP != 2.3 {
		t.Errorf("Expected average XP 2.3, got %v", trends.AverageXP)
	}
	if !strings.Contains(trends.TrendInsight, "very active with Sam") {
		t.Errorf("Unexpected trend insight: %s", trends.TrendInsight)
	}

	summary := report.EmotionalSummary
	if summary.CommonTone != "Positive" {
		t.Errorf("Expected Positive tone, got %s", summary.CommonTone)
	}
	if summary.SentimentDistribution["positive"] != 75 || summary.SentimentDistribution["negative"] != 25 {
		t.Errorf("Unexpected distribution: %v", summary.SentimentDistribution)
	}
	if len(summary.EmotionalKeywords) != 5 {
		t.Errorf("Expected 5 keywords, got %v", summary.EmotionalKeywords)
	}
	if !strings.Contains(summary.Summary, "healthy and supportive") {
		t.Errorf("Unexpected summary: %s", summary.Summary)
	}

	if report.Forecasts.Confidence != 60 {
		t.Errorf("Expected forecast confidence 60, got %d", report.Forecasts.Confidence)
	}
	if report.Forecasts.Forecasts[0].Path != "Deepening Connection" {
		t.Errorf("Expected Deepening Connection, got %+v", report.Forecasts.Forecasts)
	}

	types := make([]string, 0, len(report.SmartSuggestions))
	for _, s := range report.SmartSuggestions {
		types = append(types, s.Type)
	}
	if strings.Join(types, ",") != "Growth Opportunity,Personal Connection" {
		t.Errorf("Unexpected suggestions: %v", types)
	}
}

func TestGenerate_ForecastsAndNudge(t *testing.T) {
	var history []*models.Interaction
	for i := 0; i < 12; i++ {
		history = append(history, interaction(10+i, models.SentimentNeutral, 1, []string{"general"}))
	}

	report, err := Generate(rel(6, "Friend"), history, now)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	paths := make([]string, 0)
	for _, f := range report.Forecasts.Forecasts {
		paths = append(paths, f.Path)
	}
	if strings.Join(paths, ",") != "Stable Friendship,Potential for Deeper Bond" {
		t.Errorf("Unexpected forecasts: %v", paths)
	}
	if report.Forecasts.Confidence != 85 {
		t.Errorf("Expected confidence 85, got %d", report.Forecasts.Confidence)
	}
	if report.EmotionalSummary.CommonTone != "Balanced" {
		t.Errorf("Expected Balanced, got %s", report.EmotionalSummary.CommonTone)
	}
	if report.SmartSuggestions[0].Type != "Reconnection Nudge" || !strings.Contains(report.SmartSuggestions[0].Content, "10 days") {
		t.Errorf("Expected reconnection nudge, got %+v", report.SmartSuggestions[0])
	}
	if report.SmartSuggestions[1].Type != "Maintenance" {
		t.Errorf("Expected Maintenance, got %s", report.SmartSuggestions[1].Type)
	}
	if !strings.Contains(report.InteractionTrends.TrendInsight, "consistent this month") {
		t.Errorf("Unexpected trend insight: %s", report.InteractionTrends.TrendInsight)
	}
}

func TestGenerate_DefaultForecastAndCap(t *testing.T) {
	var history []*models.Interaction
	for i := 0; i < 60; i++ {
		history = append(history, interaction(40+i, models.SentimentNegative, 1, nil))
	}

	report, err := Generate(rel(2), history, now)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if report.InteractionTrends.TotalInteractions != MaxInteractions {
		t.Errorf("Expected history capped at %d, got %d", MaxInteractions, report.InteractionTrends.TotalInteractions)
	}
	if report.Forecasts.Forecasts[0].Path != "Stable Friendship" {
		t.Errorf("Unexpected forecast: %+v", report.Forecasts.Forecasts)
	}
	if !strings.Contains(report.InteractionTrends.TrendInsight, "haven't logged any interactions") {
		t.Errorf("Unexpected trend insight: %s", report.InteractionTrends.TrendInsight)
	}

	few := []*models.Interaction{
		interaction(1, models.SentimentNeutral, 1, nil),
		interaction(1, models.SentimentNeutral, 1, nil),
		interaction(1, models.SentimentNeutral, 1, nil),
	}
	report, _ = Generate(rel(2), few, now)
	if len(report.Forecasts.Forecasts) != 1 || report.Forecasts.Forecasts[0].Path != "Continued Growth" {
		t.Errorf("Expected default forecast, got %+v", report.Forecasts.Forecasts)
	}
}

func TestForecastConfidence(t *testing.T) {
	tests := []struct{ count, expected int }{{3, 60}, {5, 75}, {9, 75}, {10, 85}, {19, 85}, {20, 95}, {50, 95}}
	for _, tt := range tests {
		if got := ForecastConfidence(tt.count); got != tt.expected {
			t.Errorf("Expected %d for %d interactions, got %d", tt.expected, tt.count, got)
		}
	}
}
