package analysis

import (
	"context"
	"fmt"
	"strings"

	"dytto/internal/models"
	"dytto/internal/utils"
)

// GeneralTopic is reported when no topic keyword matches
const GeneralTopic = "general"

const maxSuggestions = 3

// Analyzer turns interaction text into a structured analysis.
// Implementations must be safe for concurrent use.
type Analyzer interface {
	Analyze(ctx context.Context, content string) (*models.Analysis, error)
}

// Heuristic is the keyword-based analyzer
type Heuristic struct {
	lexicon *LexiconStore
	rng     utils.RandomSource
}

// NewHeuristic creates a keyword analyzer. A nil store uses the default lexicon
// and a nil rng uses a clock-seeded source.
func NewHeuristic(lexicon *LexiconStore, rng utils.RandomSource) *Heuristic {
	if lexicon == nil {
		lexicon = NewLexiconStore(nil)
	}
	if rng == nil {
		rng = utils.NewRandomSource(0)
	}
	return &Heuristic{lexicon: lexicon, rng: rng}
}

// Analyze classifies content. It only fails when ctx is already done.
func (h *Heuristic) Analyze(ctx context.Context, content string) (*models.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrAnalysisFailed, err)
	}

	lex := h.lexicon.Lexicon()
	words := Tokenize(content)

	sentiment := DetectSentiment(lex, words)
	topics := DetectTopics(lex, words)

	tones := lex.Tones[sentiment]
	toneCount := 2 + h.rng.IntN(2)
	if toneCount > len(tones) {
		toneCount = len(tones)
	}

	return &models.Analysis{
		Sentiment:     sentiment,
		EmotionalTone: append([]string(nil), tones[:toneCount]...),
		Topics:        topics,
		Suggestions:   buildSuggestions(lex, sentiment, topics),
		Confidence:    0.75 + h.rng.Float64()*0.2,
	}, nil
}

// Tokenize lowercases content and splits it on whitespace
func Tokenize(content string) []string {
	return strings.Fields(strings.ToLower(content))
}

// DetectSentiment counts words containing a positive or a negative keyword.
// A word may count on both sides.
func DetectSentiment(lex *Lexicon, words []string) models.Sentiment {
	pos, neg := 0, 0
	for _, w := range words {
		if containsAny(w, lex.Positive) {
			pos++
		}
		if containsAny(w, lex.Negative) {
			neg++
		}
	}
	switch {
	case pos > neg:
		return models.SentimentPositive
	case neg > pos:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// DetectTopics returns matched topic names in lexicon order, or ["general"]
func DetectTopics(lex *Lexicon, words []string) []string {
	var topics []string
	for _, rule := range lex.Topics {
		if anyWordContains(words, rule.Keywords) {
			topics = append(topics, rule.Name)
		}
	}
	if len(topics) == 0 {
		return []string{GeneralTopic}
	}
	return topics
}

func buildSuggestions(lex *Lexicon, sentiment models.Sentiment, topics []string) []string {
	suggestions := append([]string(nil), lex.SentimentSuggestions[sentiment]...)
	for _, topic := range topics {
		for _, rule := range lex.Topics {
			if rule.Name == topic && len(rule.Suggestions) > 0 {
				suggestions = append(suggestions, rule.Suggestions[0])
			}
		}
	}
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}

func containsAny(word string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(word, kw) {
			return true
		}
	}
	return false
}

func anyWordContains(words []string, keywords []string) bool {
	for _, w := range words {
		if containsAny(w, keywords) {
			return true
		}
	}
	return false
}
