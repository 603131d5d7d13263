package models

import (
	"sync"
	"time"
)

// Activity event types pushed to the realtime feed
const (
	EventInteractionLogged = "interaction_logged"
	EventLevelUp           = "level_up"
	EventQuestCreated      = "quest_created"
	EventQuestCompleted    = "quest_completed"
	EventQuestExpired      = "quest_expired"
	EventConnected         = "connected"
)

// ActivityEvent is a progression event for one user
type ActivityEvent struct {
	Type           string                 `json:"type"`
	UserID         string                 `json:"user_id"`
	RelationshipID string                 `json:"relationship_id,omitempty"`
	Data           map[string]interface{} `json:"data,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
}

// EventSubscriber is one live feed connection
type EventSubscriber struct {
	ConnID    string
	UserID    string
	CreatedAt time.Time
	WriteChan chan ActivityEvent
	mu        sync.Mutex
	closed    bool
}

// NewEventSubscriber creates a subscriber with a buffered write channel
func NewEventSubscriber(connID, userID string, buffer int) *EventSubscriber {
	return &EventSubscriber{
		ConnID:    connID,
		UserID:    userID,
		CreatedAt: time.Now(),
		WriteChan: make(chan ActivityEvent, buffer),
	}
}

// SafeSend delivers without blocking. Returns false when closed or the buffer is full.
func (s *EventSubscriber) SafeSend(evt ActivityEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.WriteChan <- evt:
		return true
	default:
		return false
	}
}

// Close closes the write channel once
func (s *EventSubscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.WriteChan)
}

// ActivityItem is one entry in the dashboard feed
type ActivityItem struct {
	Type             string    `json:"type"` // "interaction" or "level_up"
	RelationshipID   string    `json:"relationship_id"`
	RelationshipName string    `json:"relationship_name"`
	Description      string    `json:"description"`
	XPGained         int       `json:"xp_gained,omitempty"`
	NewLevel         int       `json:"new_level,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// DashboardStats summarizes a user's relationships and quests
type DashboardStats struct {
	TotalRelationships  int            `json:"total_relationships"`
	ActiveRelationships int            `json:"active_relationships"`
	OverdueConnections  int            `json:"overdue_connections"`
	WeeklyInteractions  int            `json:"weekly_interactions"`
	TotalXP             int64          `json:"total_xp"`
	AverageLevel        float64        `json:"average_level"`
	PendingQuests       int            `json:"pending_quests"`
	CompletedQuests     int            `json:"completed_quests"`
	CompletionRate      float64        `json:"completion_rate"`
	QuestXPEarned       int            `json:"quest_xp_earned"`
	LevelDistribution   map[int]int    `json:"level_distribution"`
	RecentActivity      []ActivityItem `json:"recent_activity"`
}
