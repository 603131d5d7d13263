package analysis

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dytto/internal/models"
	"dytto/internal/utils"
)

func TestDefaultLexicon_Valid(t *testing.T) {
	if err := DefaultLexicon().Validate(); err != nil {
		t.Fatalf("Expected default lexicon to be valid: %v", err)
	}
	if len(DefaultLexicon().Topics) != 6 {
		t.Errorf("Expected 6 topics, got %d", len(DefaultLexicon().Topics))
	}
}

func TestLoadLexicon_ExampleFile(t *testing.T) {
	lex, err := LoadLexicon(filepath.Join("..", "..", "lexicon.example.yaml"))
	if err != nil {
		t.Fatalf("Failed to load example lexicon: %v", err)
	}
	if len(lex.Topics) != 3 {
		t.Errorf("Expected 3 topics, got %d", len(lex.Topics))
	}

	// Suggestions are not in the file and keep their defaults
	if len(lex.SentimentSuggestions[models.SentimentPositive]) == 0 {
		t.Error("Expected default sentiment suggestions")
	}

	got := DetectSentiment(lex, Tokenize("I felt so lonely and worried"))
	if got != models.SentimentNegative {
		t.Errorf("Expected negative sentiment, got %s", got)
	}
}

func TestParseLexicon_OverridesSections(t *testing.T) {
	data := []byte(`
positive:
  - Stellar
topics:
  - name: Pets
    keywords: [dog, cat]
    suggestions: ["Ask about their pets"]
`)
	lex, err := ParseLexicon(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(lex.Positive) != 1 || lex.Positive[0] != "stellar" {
		t.Errorf("Expected lowercased override, got %v", lex.Positive)
	}
	if len(lex.Negative) != 10 {
		t.Errorf("Expected default negatives kept, got %d", len(lex.Negative))
	}
	if len(lex.Topics) != 1 || lex.Topics[0].Name != "pets" {
		t.Errorf("Expected pets topic, got %+v", lex.Topics)
	}
	if len(lex.Tones[models.SentimentPositive]) != 5 {
		t.Error("Expected default tones kept")
	}
}

func TestParseLexicon_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "positive: [unclosed"},
		{"duplicate topic", "topics:\n  - name: a\n    keywords: [x]\n  - name: a\n    keywords: [y]\n"},
		{"empty keywords", "topics:\n  - name: a\n    keywords: []\n"},
		{"reserved name", "topics:\n  - name: general\n    keywords: [x]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseLexicon([]byte(tt.data)); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestLexiconStore_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.yaml")
	if err := os.WriteFile(path, []byte("positive: [stellar]\n"), 0o644); err != nil {
		t.Fatalf("Failed to write lexicon: %v", err)
	}

	store := NewLexiconStore(nil)
	h := NewHeuristic(store, utils.FixedSource{})

	before, _ := h.Analyze(context.Background(), "a stellar evening")
	if before.Sentiment != models.SentimentNeutral {
		t.Errorf("Expected neutral before reload, got %s", before.Sentiment)
	}

	if err := store.Reload(path); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	after, _ := h.Analyze(context.Background(), "a stellar evening")
	if after.Sentiment != models.SentimentPositive {
		t.Errorf("Expected positive after reload, got %s", after.Sentiment)
	}

	// invalid file keeps the previous lexicon
	if err := os.WriteFile(path, []byte("positive: [oops"), 0o644); err != nil {
		t.Fatalf("Failed to write lexicon: %v", err)
	}
	if err := store.Reload(path); err == nil {
		t.Error("Expected reload error for invalid YAML")
	}
	if store.Lexicon().Positive[0] != "stellar" {
		t.Error("Expected previous lexicon to remain active")
	}
}

func TestLexiconStore_Watch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.yaml")
	if err := os.WriteFile(path, []byte("positive: [happy]\n"), 0o644); err != nil {
		t.Fatalf("Failed to write lexicon: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := NewLexiconStore(nil)
	if err := store.Watch(ctx, path); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("positive: [radiant]\n"), 0o644); err != nil {
		t.Fatalf("Failed to write lexicon: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if p := store.Lexicon().Positive; len(p) == 1 && p[0] == "radiant" {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("Expected lexicon to be hot-reloaded")
}
