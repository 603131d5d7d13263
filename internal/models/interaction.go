package models

import "time"

// Sentiment is the polarity assigned by the analyzer
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Valid reports whether s is a known sentiment
func (s Sentiment) Valid() bool {
	return s == SentimentPositive || s == SentimentNeutral || s == SentimentNegative
}

// Score is the numeric sentiment persisted alongside each interaction
func (s Sentiment) Score() float64 {
	switch s {
	case SentimentPositive:
		return 0.8
	case SentimentNegative:
		return -0.3
	default:
		return 0.1
	}
}

// Analysis is the structured result of analyzing interaction text
type Analysis struct {
	Sentiment     Sentiment `bson:"sentiment" json:"sentiment"`
	EmotionalTone []string  `bson:"emotionalTone" json:"emotional_tone"`
	Topics        []string  `bson:"topics" json:"topics"`
	Suggestions   []string  `bson:"suggestions" json:"suggestions"`
	Confidence    float64   `bson:"confidence" json:"confidence"`
}

// Interaction is an immutable logged exchange with a relationship
type Interaction struct {
	ID             string    `bson:"_id" json:"id"`
	RelationshipID string    `bson:"relationshipId" json:"relationship_id"`
	UserID         string    `bson:"userId" json:"user_id"`
	Content        string    `bson:"content" json:"content"`
	Sentiment      Sentiment `bson:"sentiment" json:"sentiment"`
	SentimentScore float64   `bson:"sentimentScore" json:"sentiment_score"`
	XPGained       int       `bson:"xpGained" json:"xp_gained"`
	Topics         []string  `bson:"topics" json:"topics"`
	Tags           []string  `bson:"tags" json:"tags"`
	Analysis       *Analysis `bson:"analysis,omitempty" json:"analysis,omitempty"`
	CreatedAt      time.Time `bson:"createdAt" json:"created_at"`
}

// HasTopic reports whether the interaction was tagged with topic
func (i *Interaction) HasTopic(topic string) bool {
	for _, t := range i.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

// ProgressUpdate is what the store reports after recording an interaction
type ProgressUpdate struct {
	Relationship *Relationship `json:"relationship"`
	OldXP        int64         `json:"old_xp"`
	NewXP        int64         `json:"new_xp"`
	LevelChange  *LevelChange  `json:"level_change,omitempty"`
	// MilestoneQuests were stored in the same write as the interaction
	MilestoneQuests []*Quest `json:"milestone_quests,omitempty"`
}

// InteractionResult is returned to callers of ApplyInteraction
type InteractionResult struct {
	Interaction     *Interaction `json:"interaction"`
	XPGained        int          `json:"xp_gained"`
	NewXP           int64        `json:"new_xp"`
	OldLevel        int          `json:"old_level"`
	NewLevel        int          `json:"new_level"`
	LeveledUp       bool         `json:"leveled_up"`
	Analysis        *Analysis    `json:"analysis"`
	MilestoneQuests []*Quest     `json:"milestone_quests"`
	LevelInfo       LevelInfo    `json:"level_info"`
}

// LevelInfo is a display snapshot of a relationship's level
type LevelInfo struct {
	Level        int      `json:"level"`
	Title        string   `json:"title"`
	Color        string   `json:"color"`
	XP           int64    `json:"xp"`
	Current      int64    `json:"current"`
	Required     int64    `json:"required"`
	Percentage   float64  `json:"percentage"`
	NextLevelAt  int64    `json:"next_level_at"`
	MaxLevel     bool     `json:"max_level"`
	Achievements []string `json:"achievements,omitempty"`
}

// Progress is the XP position inside the current level
type Progress struct {
	Current    int64   `json:"current"`
	Required   int64   `json:"required"`
	Percentage float64 `json:"percentage"`
}
