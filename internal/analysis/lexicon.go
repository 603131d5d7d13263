package analysis

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"dytto/internal/models"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// TopicRule maps a topic name to its trigger keywords and follow-up suggestions
type TopicRule struct {
	Name        string   `yaml:"name"`
	Keywords    []string `yaml:"keywords"`
	Suggestions []string `yaml:"suggestions"`
}

// Lexicon holds every keyword list the heuristic analyzer matches against.
// Topics are matched and reported in slice order.
type Lexicon struct {
	Positive             []string                      `yaml:"positive"`
	Negative             []string                      `yaml:"negative"`
	Topics               []TopicRule                   `yaml:"topics"`
	Tones                map[models.Sentiment][]string `yaml:"tones"`
	SentimentSuggestions map[models.Sentiment][]string `yaml:"sentiment_suggestions"`
}

// DefaultLexicon returns the built-in keyword lists
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		Positive: []string{"happy", "great", "amazing", "wonderful", "love", "excited", "fantastic", "awesome", "brilliant", "perfect"},
		Negative: []string{"sad", "angry", "frustrated", "disappointed", "terrible", "awful", "hate", "annoyed", "upset", "worried"},
		Topics: []TopicRule{
			{
				Name:        "work",
				Keywords:    []string{"work", "job", "career", "office", "meeting", "project", "business"},
				Suggestions: []string{"Ask about their career goals", "Share professional experiences", "Discuss work-life balance"},
			},
			{
				Name:        "family",
				Keywords:    []string{"family", "parents", "kids", "children", "mom", "dad", "sister", "brother"},
				Suggestions: []string{"Ask about family updates", "Share family stories", "Plan family activities"},
			},
			{
				Name:        "hobbies",
				Keywords:    []string{"hobby", "music", "sports", "reading", "cooking", "travel", "art", "gaming"},
				Suggestions: []string{"Explore shared interests", "Try a new activity together", "Share recommendations"},
			},
			{
				Name:        "health",
				Keywords:    []string{"health", "exercise", "gym", "doctor", "medical", "fitness", "wellness"},
				Suggestions: []string{"Check on their wellness", "Suggest healthy activities together", "Offer support"},
			},
			{
				Name:        "relationships",
				Keywords:    []string{"relationship", "dating", "marriage", "partner", "love", "friendship"},
				Suggestions: []string{"Offer relationship advice", "Share your experiences", "Be a good listener"},
			},
			{
				Name:        "goals",
				Keywords:    []string{"goal", "dream", "plan", "future", "ambition", "aspiration", "target"},
				Suggestions: []string{"Discuss future plans", "Offer encouragement", "Share your own goals"},
			},
		},
		Tones: map[models.Sentiment][]string{
			models.SentimentPositive: {"enthusiastic", "optimistic", "grateful", "excited", "content"},
			models.SentimentNegative: {"concerned", "frustrated", "disappointed", "anxious", "stressed"},
			models.SentimentNeutral:  {"reflective", "casual", "informative", "thoughtful", "balanced"},
		},
		SentimentSuggestions: map[models.Sentiment][]string{
			models.SentimentPositive: {
				"Continue building on this positive momentum",
				"Share more experiences like this together",
				"Express gratitude for their support",
			},
			models.SentimentNegative: {
				"Check in on how they're feeling",
				"Offer support or help if appropriate",
				"Plan a positive activity together",
			},
			models.SentimentNeutral: {
				"Ask follow-up questions about their interests",
				"Share something personal about yourself",
				"Suggest meeting up soon",
			},
		},
	}
}

// LoadLexicon reads a YAML lexicon. Sections missing from the file keep their defaults.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon file: %w", err)
	}
	return ParseLexicon(data)
}

// ParseLexicon decodes YAML lexicon data over the defaults
func ParseLexicon(data []byte) (*Lexicon, error) {
	var parsed Lexicon
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon YAML: %w", err)
	}

	lex := DefaultLexicon()
	if len(parsed.Positive) > 0 {
		lex.Positive = parsed.Positive
	}
	if len(parsed.Negative) > 0 {
		lex.Negative = parsed.Negative
	}
	if len(parsed.Topics) > 0 {
		lex.Topics = parsed.Topics
	}
	for s, tones := range parsed.Tones {
		if len(tones) > 0 {
			lex.Tones[s] = tones
		}
	}
	for s, suggestions := range parsed.SentimentSuggestions {
		if len(suggestions) > 0 {
			lex.SentimentSuggestions[s] = suggestions
		}
	}

	lex.normalize()
	if err := lex.Validate(); err != nil {
		return nil, err
	}
	return lex, nil
}

// normalize lowercases keywords so matching stays case-insensitive
func (l *Lexicon) normalize() {
	lower := func(words []string) []string {
		out := make([]string, 0, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				out = append(out, w)
			}
		}
		return out
	}
	l.Positive = lower(l.Positive)
	l.Negative = lower(l.Negative)
	for i := range l.Topics {
		l.Topics[i].Name = strings.ToLower(strings.TrimSpace(l.Topics[i].Name))
		l.Topics[i].Keywords = lower(l.Topics[i].Keywords)
	}
}

// Validate checks that every sentiment has tones and suggestions and topics are named
func (l *Lexicon) Validate() error {
	for _, s := range []models.Sentiment{models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative} {
		if len(l.Tones[s]) < 3 {
			return fmt.Errorf("lexicon: sentiment %q needs at least 3 tones", s)
		}
		if len(l.SentimentSuggestions[s]) == 0 {
			return fmt.Errorf("lexicon: sentiment %q has no suggestions", s)
		}
	}
	seen := make(map[string]bool, len(l.Topics))
	for _, t := range l.Topics {
		if t.Name == "" || t.Name == GeneralTopic {
			return fmt.Errorf("lexicon: invalid topic name %q", t.Name)
		}
		if seen[t.Name] {
			return fmt.Errorf("lexicon: duplicate topic %q", t.Name)
		}
		seen[t.Name] = true
		if len(t.Keywords) == 0 {
			return fmt.Errorf("lexicon: topic %q has no keywords", t.Name)
		}
	}
	return nil
}

// LexiconStore holds the active lexicon and swaps it atomically on reload
type LexiconStore struct {
	current atomic.Pointer[Lexicon]
}

// NewLexiconStore creates a store holding lex (or the defaults when nil)
func NewLexiconStore(lex *Lexicon) *LexiconStore {
	if lex == nil {
		lex = DefaultLexicon()
	}
	s := &LexiconStore{}
	s.current.Store(lex)
	return s
}

// Lexicon returns the active lexicon
func (s *LexiconStore) Lexicon() *Lexicon {
	return s.current.Load()
}

// Reload replaces the active lexicon with the file at path.
// The previous lexicon stays active when the file is invalid.
func (s *LexiconStore) Reload(path string) error {
	lex, err := LoadLexicon(path)
	if err != nil {
		return err
	}
	s.current.Store(lex)
	return nil
}

// Watch reloads the lexicon whenever the file changes, until ctx is done
func (s *LexiconStore) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create lexicon watcher: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("failed to resolve lexicon path: %w", err)
	}

	// Watch the directory; editors often replace the file instead of writing it
	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	log.Printf("👁️  [LEXICON] Watching %s for changes (hot-reload enabled)", path)

	go func() {
		defer watcher.Close()

		var debounceTimer *time.Timer
		debounceDuration := 500 * time.Millisecond

		for {
			select {
			case <-ctx.Done():
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filename {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}

				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					if err := s.Reload(absPath); err != nil {
						log.Printf("❌ [LEXICON] Reload failed, keeping previous lexicon: %v", err)
						return
					}
					log.Printf("🔄 [LEXICON] Reloaded keyword lists from %s", path)
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("⚠️  [LEXICON] File watcher error: %v", err)
			}
		}
	}()

	return nil
}
