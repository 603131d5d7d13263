package models

import "time"

// QuestType selects the generation strategy
type QuestType string

const (
	QuestDaily     QuestType = "daily"
	QuestWeekly    QuestType = "weekly"
	QuestMilestone QuestType = "milestone"
	QuestCustom    QuestType = "custom"
)

// Valid reports whether t is a known quest type
func (t QuestType) Valid() bool {
	switch t {
	case QuestDaily, QuestWeekly, QuestMilestone, QuestCustom:
		return true
	}
	return false
}

// QuestDifficulty is informational only
type QuestDifficulty string

const (
	DifficultyEasy   QuestDifficulty = "easy"
	DifficultyMedium QuestDifficulty = "medium"
	DifficultyHard   QuestDifficulty = "hard"
)

// QuestStatus moves pending -> completed or pending -> expired, never back
type QuestStatus string

const (
	QuestPending   QuestStatus = "pending"
	QuestCompleted QuestStatus = "completed"
	QuestExpired   QuestStatus = "expired"
)

// CanTransition reports whether the state machine allows from -> to
func CanTransition(from, to QuestStatus) bool {
	return from == QuestPending && (to == QuestCompleted || to == QuestExpired)
}

// Quest is a suggested relationship-building action
type Quest struct {
	ID             string          `bson:"_id" json:"id"`
	UserID         string          `bson:"userId" json:"user_id"`
	RelationshipID string          `bson:"relationshipId,omitempty" json:"relationship_id,omitempty"`
	Title          string          `bson:"title" json:"title"`
	Description    string          `bson:"description" json:"description"`
	Type           QuestType       `bson:"type" json:"type"`
	Difficulty     QuestDifficulty `bson:"difficulty" json:"difficulty"`
	XPReward       int             `bson:"xpReward" json:"xp_reward"`
	Status         QuestStatus     `bson:"status" json:"status"`
	Deadline       *time.Time      `bson:"deadline,omitempty" json:"deadline,omitempty"`
	MilestoneLevel *int            `bson:"milestoneLevel,omitempty" json:"milestone_level,omitempty"`
	CompletedAt    *time.Time      `bson:"completedAt,omitempty" json:"completed_at,omitempty"`
	CreatedAt      time.Time       `bson:"createdAt" json:"created_at"`
}

// IsOverdue reports whether a pending quest has passed its deadline
func (q *Quest) IsOverdue(now time.Time) bool {
	return q.Status == QuestPending && q.Deadline != nil && now.After(*q.Deadline)
}

// QuestFilter narrows ListQuests. Zero values mean "any".
type QuestFilter struct {
	UserID         string
	RelationshipID string
	Status         QuestStatus
	Type           QuestType
	Limit          int
}

// QuestInput is the payload for a manually created quest.
// An empty RelationshipID makes a global quest.
type QuestInput struct {
	RelationshipID string          `json:"relationship_id,omitempty"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Difficulty     QuestDifficulty `json:"difficulty,omitempty"`
	XPReward       int             `json:"xp_reward,omitempty"`
	Deadline       *time.Time      `json:"deadline,omitempty"`
}
