package analysis

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"dytto/internal/models"
	"dytto/internal/utils"
)

func TestHeuristic_Sentiment(t *testing.T) {
	h := NewHeuristic(nil, utils.FixedSource{})

	tests := []struct {
		name     string
		content  string
		expected models.Sentiment
	}{
		{"positive keywords", "I had an amazing and wonderful time", models.SentimentPositive},
		{"negative keywords", "I hate this awful weather", models.SentimentNegative},
		{"no keywords", "We talked about the weather", models.SentimentNeutral},
		{"tie", "happy but sad", models.SentimentNeutral},
		{"case insensitive", "AMAZING day", models.SentimentPositive},
		{"substring match", "she loves it", models.SentimentPositive},
		{"empty", "", models.SentimentNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.Analyze(context.Background(), tt.content)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if result.Sentiment != tt.expected {
				t.Errorf("Expected %s for %q, got %s", tt.expected, tt.content, result.Sentiment)
			}
		})
	}
}

func TestHeuristic_Topics(t *testing.T) {
	h := NewHeuristic(nil, utils.FixedSource{})

	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{"general fallback", "I had an amazing and wonderful time", []string{"general"}},
		{"work", "Long meeting about the new project", []string{"work"}},
		{"fixed order", "my mom loves cooking", []string{"family", "hobbies", "relationships"}},
		{"goals", "talked about future dreams", []string{"goals"}},
		{"no duplicates", "work work job office", []string{"work"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.Analyze(context.Background(), tt.content)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !reflect.DeepEqual(result.Topics, tt.expected) {
				t.Errorf("Expected topics %v, got %v", tt.expected, result.Topics)
			}
		})
	}
}

func TestHeuristic_ToneCountFollowsRandomSource(t *testing.T) {
	ctx := context.Background()

	two, _ := NewHeuristic(nil, utils.FixedSource{Int: 0}).Analyze(ctx, "amazing")
	if len(two.EmotionalTone) != 2 {
		t.Errorf("Expected 2 tones, got %v", two.EmotionalTone)
	}
	if two.EmotionalTone[0] != "enthusiastic" || two.EmotionalTone[1] != "optimistic" {
		t.Errorf("Expected first positive tones, got %v", two.EmotionalTone)
	}

	three, _ := NewHeuristic(nil, utils.FixedSource{Int: 1}).Analyze(ctx, "terrible")
	expected := []string{"concerned", "frustrated", "disappointed"}
	if !reflect.DeepEqual(three.EmotionalTone, expected) {
		t.Errorf("Expected %v, got %v", expected, three.EmotionalTone)
	}
}

func TestHeuristic_SuggestionsAndConfidence(t *testing.T) {
	h := NewHeuristic(nil, utils.FixedSource{Float: 0})
	result, err := h.Analyze(context.Background(), "worried about my job")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(result.Suggestions) != 3 {
		t.Fatalf("Expected 3 suggestions, got %d", len(result.Suggestions))
	}
	if result.Suggestions[0] != "Check in on how they're feeling" {
		t.Errorf("Expected negative suggestion first, got %s", result.Suggestions[0])
	}
	if result.Confidence != 0.75 {
		t.Errorf("Expected confidence 0.75, got %f", result.Confidence)
	}

	high, _ := NewHeuristic(nil, utils.FixedSource{Float: 0.999}).Analyze(context.Background(), "hi")
	if high.Confidence < 0.75 || high.Confidence > 0.95 {
		t.Errorf("Confidence %f out of [0.75, 0.95]", high.Confidence)
	}
}

func TestHeuristic_ConfidenceRangeWithSeededSource(t *testing.T) {
	h := NewHeuristic(nil, utils.NewSeededSource(99))
	for i := 0; i < 100; i++ {
		result, err := h.Analyze(context.Background(), "great talk about music")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if result.Confidence < 0.75 || result.Confidence > 0.95 {
			t.Fatalf("Confidence %f out of range", result.Confidence)
		}
		if n := len(result.EmotionalTone); n < 2 || n > 3 {
			t.Fatalf("Tone count %d out of range", n)
		}
	}
}

func TestHeuristic_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHeuristic(nil, nil).Analyze(ctx, "amazing")
	if !errors.Is(err, models.ErrAnalysisFailed) {
		t.Errorf("Expected ErrAnalysisFailed, got %v", err)
	}
}
