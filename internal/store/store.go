// Package store persists relationships, interactions, quests and users.
//
// Every adapter guarantees that RecordInteraction is atomic: the interaction
// insert, the XP increment, the level update, the level history row and any
// milestone quests either all happen or none do, and concurrent calls never
// lose XP.
package store

import (
	"context"
	"sort"
	"strconv"
	"time"

	"dytto/internal/models"
)

// LevelFunc maps total XP to a level
type LevelFunc func(xp int64) int

// MilestoneFunc builds the milestone quests owed for a level change. It must
// be pure because a retried transaction calls it again.
type MilestoneFunc func(rel *models.Relationship, oldLevel, newLevel int) []*models.Quest

// RelationshipStore manages relationship profiles. XP and level are only
// changed through RecordInteraction.
type RelationshipStore interface {
	CreateRelationship(ctx context.Context, rel *models.Relationship) error
	GetRelationship(ctx context.Context, userID, id string) (*models.Relationship, error)
	// ListRelationships returns the filter's matches in the filter's order
	ListRelationships(ctx context.Context, filter models.RelationshipFilter) ([]*models.Relationship, error)
	UpdateRelationship(ctx context.Context, rel *models.Relationship) error
	DeleteRelationship(ctx context.Context, userID, id string) error
}

// InteractionStore records interactions and the progress they cause
type InteractionStore interface {
	// RecordInteraction also stores the quests returned by milestones (may be
	// nil) in the same write. A milestone already pending is skipped, any
	// other quest failure rolls the whole interaction back.
	RecordInteraction(ctx context.Context, in *models.Interaction, levelOf LevelFunc, milestones MilestoneFunc) (*models.ProgressUpdate, error)
	GetInteraction(ctx context.Context, userID, id string) (*models.Interaction, error)
	// ListInteractions returns newest first; limit <= 0 means all
	ListInteractions(ctx context.Context, relationshipID string, limit int) ([]*models.Interaction, error)
	ListUserInteractions(ctx context.Context, userID string, since time.Time, limit int) ([]*models.Interaction, error)
	ListLevelHistory(ctx context.Context, relationshipID string) ([]*models.LevelChange, error)
	ListUserLevelHistory(ctx context.Context, userID string, limit int) ([]*models.LevelChange, error)
}

// QuestStore manages quests and their status machine
type QuestStore interface {
	// CreateQuest fails with ErrDuplicateMilestone when a pending milestone
	// quest already exists for the same relationship and level
	CreateQuest(ctx context.Context, q *models.Quest) error
	GetQuest(ctx context.Context, userID, id string) (*models.Quest, error)
	ListQuests(ctx context.Context, filter models.QuestFilter) ([]*models.Quest, error)
	// TransitionQuest moves a pending quest to a terminal status
	TransitionQuest(ctx context.Context, userID, id string, to models.QuestStatus, at time.Time) (*models.Quest, error)
	// ExpireQuests expires every pending quest whose deadline is before now
	ExpireQuests(ctx context.Context, now time.Time) ([]*models.Quest, error)
}

// UserStore manages local auth accounts
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	IncrementRefreshTokenVersion(ctx context.Context, id string) error
}

// Store is the full persistence surface
type Store interface {
	RelationshipStore
	InteractionStore
	QuestStore
	UserStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// progressFor derives the update from the XP before and after the increment.
// Both levels come from the increment itself, so under concurrent writers each
// threshold crossing is reported by exactly one caller.
func progressFor(rel *models.Relationship, in *models.Interaction, oldXP, newXP int64, levelOf LevelFunc, changeID string) *models.ProgressUpdate {
	update := &models.ProgressUpdate{Relationship: rel, OldXP: oldXP, NewXP: newXP}
	oldLevel, newLevel := levelOf(oldXP), levelOf(newXP)
	if newLevel > oldLevel {
		update.LevelChange = &models.LevelChange{
			ID:             changeID,
			UserID:         in.UserID,
			RelationshipID: in.RelationshipID,
			OldLevel:       oldLevel,
			NewLevel:       newLevel,
			XPGained:       in.XPGained,
			InteractionID:  in.ID,
			CreatedAt:      in.CreatedAt,
		}
	}
	return update
}

// narrowRelationships applies the filter and its ordering in process
func narrowRelationships(list []*models.Relationship, filter models.RelationshipFilter) []*models.Relationship {
	out := make([]*models.Relationship, 0, len(list))
	for _, rel := range list {
		if filter.Matches(rel) {
			out = append(out, rel)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return filter.Less(out[i], out[j]) })
	return out
}

func milestonesFor(update *models.ProgressUpdate, milestones MilestoneFunc) []*models.Quest {
	if milestones == nil || update.LevelChange == nil {
		return nil
	}
	return milestones(update.Relationship, update.LevelChange.OldLevel, update.LevelChange.NewLevel)
}

func validateQuest(q *models.Quest) error {
	if q == nil || q.ID == "" || q.UserID == "" {
		return models.Validationf("quest requires id and user")
	}
	return nil
}

func validateInteraction(in *models.Interaction) error {
	if in == nil || in.ID == "" || in.RelationshipID == "" || in.UserID == "" {
		return models.Validationf("interaction requires id, relationship and user")
	}
	if in.XPGained < 0 {
		return models.Validationf("xp gained cannot be negative")
	}
	return nil
}

func milestoneKey(q *models.Quest) string {
	if q.Type != models.QuestMilestone || q.Status != models.QuestPending || q.MilestoneLevel == nil || q.RelationshipID == "" {
		return ""
	}
	return q.RelationshipID + ":" + strconv.Itoa(*q.MilestoneLevel)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLStore)(nil)
	_ Store = (*MongoStore)(nil)
)
