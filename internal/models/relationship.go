package models

import (
	"strings"
	"time"
)

// Relationship categories used by the UI and the custom quest rules
const (
	CategoryFriend       = "Friend"
	CategoryBusiness     = "Business"
	CategoryFamily       = "Family"
	CategoryMentor       = "Mentor"
	CategoryRomantic     = "Romantic"
	CategoryAcquaintance = "Acquaintance"
)

// ReminderInterval controls when a relationship is considered overdue
type ReminderInterval string

const (
	ReminderWeekly    ReminderInterval = "weekly"
	ReminderBiweekly  ReminderInterval = "biweekly"
	ReminderMonthly   ReminderInterval = "monthly"
	ReminderQuarterly ReminderInterval = "quarterly"
)

// Duration returns the reminder window. Unknown values fall back to weekly.
func (r ReminderInterval) Duration() time.Duration {
	day := 24 * time.Hour
	switch r {
	case ReminderBiweekly:
		return 14 * day
	case ReminderMonthly:
		return 30 * day
	case ReminderQuarterly:
		return 90 * day
	default:
		return 7 * day
	}
}

// Valid reports whether r is one of the known intervals
func (r ReminderInterval) Valid() bool {
	switch r {
	case ReminderWeekly, ReminderBiweekly, ReminderMonthly, ReminderQuarterly:
		return true
	}
	return false
}

// Relationship is a tracked person owned by a user.
// XP only grows and Level always equals leveling.LevelFromXP(XP).
type Relationship struct {
	ID                string           `bson:"_id" json:"id"`
	UserID            string           `bson:"userId" json:"user_id"`
	Name              string           `bson:"name" json:"name"`
	Bio               string           `bson:"bio,omitempty" json:"bio,omitempty"`
	PhotoURL          string           `bson:"photoUrl,omitempty" json:"photo_url,omitempty"`
	Categories        []string         `bson:"categories" json:"categories"`
	Tags              []string         `bson:"tags" json:"tags"`
	ReminderInterval  ReminderInterval `bson:"reminderInterval" json:"reminder_interval"`
	XP                int64            `bson:"xp" json:"xp"`
	Level             int              `bson:"level" json:"level"`
	LastInteractionAt *time.Time       `bson:"lastInteractionAt,omitempty" json:"last_interaction_at,omitempty"`
	CreatedAt         time.Time        `bson:"createdAt" json:"created_at"`
	UpdatedAt         time.Time        `bson:"updatedAt" json:"updated_at"`
}

// HasCategory reports whether the relationship carries the category (case-insensitive)
func (r *Relationship) HasCategory(category string) bool {
	for _, c := range r.Categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// IsOverdue reports whether no interaction happened within the reminder window.
// A relationship that was never contacted is overdue once its window has passed since creation.
func (r *Relationship) IsOverdue(now time.Time) bool {
	last := r.CreatedAt
	if r.LastInteractionAt != nil {
		last = *r.LastInteractionAt
	}
	return now.Sub(last) > r.ReminderInterval.Duration()
}

// RelationshipSort names a field relationships can be ordered by
type RelationshipSort string

const (
	SortByName            RelationshipSort = "name"
	SortByLevel           RelationshipSort = "level"
	SortByXP              RelationshipSort = "xp"
	SortByLastInteraction RelationshipSort = "lastInteraction"
)

// RelationshipFilter narrows and orders a relationship listing.
// Query matches name, bio, tags and categories case-insensitively.
// Categories keeps relationships carrying any of the listed categories.
// An empty Sort lists the most recently updated first.
type RelationshipFilter struct {
	UserID     string
	Query      string
	Categories []string
	Sort       RelationshipSort
	Descending bool
}

// Validate rejects unknown sort fields
func (f RelationshipFilter) Validate() error {
	switch f.Sort {
	case "", SortByName, SortByLevel, SortByXP, SortByLastInteraction:
		return nil
	}
	return Validationf("unknown sort field %q", f.Sort)
}

// Matches reports whether rel passes the query and category filters
func (f RelationshipFilter) Matches(rel *Relationship) bool {
	if f.UserID != "" && rel.UserID != f.UserID {
		return false
	}
	if len(f.Categories) > 0 {
		found := false
		for _, c := range f.Categories {
			if rel.HasCategory(c) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	query := strings.ToLower(strings.TrimSpace(f.Query))
	if query == "" {
		return true
	}
	if strings.Contains(strings.ToLower(rel.Name), query) || strings.Contains(strings.ToLower(rel.Bio), query) {
		return true
	}
	for _, list := range [][]string{rel.Tags, rel.Categories} {
		for _, v := range list {
			if strings.Contains(strings.ToLower(v), query) {
				return true
			}
		}
	}
	return false
}

// Less orders a before b. Ties fall back to the ID so listings are stable.
func (f RelationshipFilter) Less(a, b *Relationship) bool {
	cmp := 0
	switch f.Sort {
	case SortByName:
		cmp = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case SortByLevel:
		cmp = compareInt64(int64(a.Level), int64(b.Level))
	case SortByXP:
		cmp = compareInt64(a.XP, b.XP)
	case SortByLastInteraction:
		cmp = compareInt64(unixMilliOrZero(a.LastInteractionAt), unixMilliOrZero(b.LastInteractionAt))
	default:
		// newest update first unless Descending flips it
		cmp = -compareInt64(a.UpdatedAt.UnixNano(), b.UpdatedAt.UnixNano())
	}
	if f.Descending {
		cmp = -cmp
	}
	if cmp != 0 {
		return cmp < 0
	}
	return a.ID < b.ID
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func unixMilliOrZero(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixMilli()
}

// RelationshipInput is the create/update payload
type RelationshipInput struct {
	Name             *string           `json:"name,omitempty"`
	Bio              *string           `json:"bio,omitempty"`
	PhotoURL         *string           `json:"photo_url,omitempty"`
	Categories       []string          `json:"categories,omitempty"`
	Tags             []string          `json:"tags,omitempty"`
	ReminderInterval *ReminderInterval `json:"reminder_interval,omitempty"`
}

// LevelChange records a level-up caused by an interaction
type LevelChange struct {
	ID             string    `bson:"_id" json:"id"`
	UserID         string    `bson:"userId" json:"user_id"`
	RelationshipID string    `bson:"relationshipId" json:"relationship_id"`
	OldLevel       int       `bson:"oldLevel" json:"old_level"`
	NewLevel       int       `bson:"newLevel" json:"new_level"`
	XPGained       int       `bson:"xpGained" json:"xp_gained"`
	InteractionID  string    `bson:"interactionId" json:"interaction_id"`
	CreatedAt      time.Time `bson:"createdAt" json:"created_at"`
}

// RelationshipOverview is the relationship detail view
type RelationshipOverview struct {
	Relationship       *Relationship  `json:"relationship"`
	LevelInfo          LevelInfo      `json:"level_info"`
	RecentInteractions []*Interaction `json:"recent_interactions"`
	PendingQuests      []*Quest       `json:"pending_quests"`
	Overdue            bool           `json:"overdue"`
}
