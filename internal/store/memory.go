package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"dytto/internal/models"

	"github.com/google/uuid"
)

// MemoryStore keeps everything in process memory behind one mutex.
// Used for local development, the CLI and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	relationships map[string]*models.Relationship
	interactions  map[string]*models.Interaction
	levelHistory  []*models.LevelChange
	quests        map[string]*models.Quest
	milestones    map[string]string // milestone key -> quest id
	users         map[string]*models.User
	usersByEmail  map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		relationships: make(map[string]*models.Relationship),
		interactions:  make(map[string]*models.Interaction),
		quests:        make(map[string]*models.Quest),
		milestones:    make(map[string]string),
		users:         make(map[string]*models.User),
		usersByEmail:  make(map[string]string),
	}
}

func (s *MemoryStore) CreateRelationship(ctx context.Context, rel *models.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.relationships[rel.ID]; exists {
		return models.ErrConflict
	}
	s.relationships[rel.ID] = cloneRelationship(rel)
	return nil
}

func (s *MemoryStore) GetRelationship(ctx context.Context, userID, id string) (*models.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rel, ok := s.relationships[id]
	if !ok || (userID != "" && rel.UserID != userID) {
		return nil, models.NotFoundf("relationship %s", id)
	}
	return cloneRelationship(rel), nil
}

func (s *MemoryStore) ListRelationships(ctx context.Context, filter models.RelationshipFilter) ([]*models.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Relationship, 0)
	for _, rel := range s.relationships {
		if rel.UserID == filter.UserID {
			out = append(out, cloneRelationship(rel))
		}
	}
	return narrowRelationships(out, filter), nil
}

func (s *MemoryStore) UpdateRelationship(ctx context.Context, rel *models.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.relationships[rel.ID]
	if !ok || existing.UserID != rel.UserID {
		return models.NotFoundf("relationship %s", rel.ID)
	}
	existing.Name = rel.Name
	existing.Bio = rel.Bio
	existing.PhotoURL = rel.PhotoURL
	existing.Categories = cloneStrings(rel.Categories)
	existing.Tags = cloneStrings(rel.Tags)
	existing.ReminderInterval = rel.ReminderInterval
	existing.UpdatedAt = rel.UpdatedAt
	return nil
}

func (s *MemoryStore) DeleteRelationship(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rel, ok := s.relationships[id]
	if !ok || rel.UserID != userID {
		return models.NotFoundf("relationship %s", id)
	}
	delete(s.relationships, id)
	for iid, in := range s.interactions {
		if in.RelationshipID == id {
			delete(s.interactions, iid)
		}
	}
	for qid, q := range s.quests {
		if q.RelationshipID == id {
			if key := milestoneKey(q); key != "" {
				delete(s.milestones, key)
			}
			delete(s.quests, qid)
		}
	}
	kept := s.levelHistory[:0]
	for _, lc := range s.levelHistory {
		if lc.RelationshipID != id {
			kept = append(kept, lc)
		}
	}
	s.levelHistory = kept
	return nil
}

func (s *MemoryStore) RecordInteraction(ctx context.Context, in *models.Interaction, levelOf LevelFunc, milestones MilestoneFunc) (*models.ProgressUpdate, error) {
	if err := validateInteraction(in); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, models.Persistence("record interaction", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rel, ok := s.relationships[in.RelationshipID]
	if !ok || rel.UserID != in.UserID {
		return nil, models.NotFoundf("relationship %s", in.RelationshipID)
	}
	if _, dup := s.interactions[in.ID]; dup {
		return nil, models.ErrConflict
	}

	oldXP := rel.XP
	newXP := oldXP + int64(in.XPGained)

	next := cloneRelationship(rel)
	next.XP = newXP
	if level := levelOf(newXP); level > next.Level {
		next.Level = level
	}
	at := in.CreatedAt
	next.LastInteractionAt = &at
	next.UpdatedAt = in.CreatedAt

	update := progressFor(next, in, oldXP, newXP, levelOf, uuid.New().String())

	// nothing is written until every owed quest is known to fit
	var owed []*models.Quest
	for _, q := range milestonesFor(update, milestones) {
		if err := validateQuest(q); err != nil {
			return nil, err
		}
		if _, exists := s.quests[q.ID]; exists {
			return nil, models.ErrConflict
		}
		if key := milestoneKey(q); key != "" {
			if _, taken := s.milestones[key]; taken {
				continue
			}
		}
		owed = append(owed, q)
	}

	s.relationships[rel.ID] = cloneRelationship(next)
	s.interactions[in.ID] = cloneInteraction(in)
	if update.LevelChange != nil {
		lc := *update.LevelChange
		s.levelHistory = append(s.levelHistory, &lc)
	}
	for _, q := range owed {
		if key := milestoneKey(q); key != "" {
			s.milestones[key] = q.ID
		}
		s.quests[q.ID] = cloneQuest(q)
	}
	update.MilestoneQuests = owed
	return update, nil
}

func (s *MemoryStore) GetInteraction(ctx context.Context, userID, id string) (*models.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	in, ok := s.interactions[id]
	if !ok || (userID != "" && in.UserID != userID) {
		return nil, models.NotFoundf("interaction %s", id)
	}
	return cloneInteraction(in), nil
}

func (s *MemoryStore) ListInteractions(ctx context.Context, relationshipID string, limit int) ([]*models.Interaction, error) {
	return s.filterInteractions(func(in *models.Interaction) bool {
		return in.RelationshipID == relationshipID
	}, limit), nil
}

func (s *MemoryStore) ListUserInteractions(ctx context.Context, userID string, since time.Time, limit int) ([]*models.Interaction, error) {
	return s.filterInteractions(func(in *models.Interaction) bool {
		return in.UserID == userID && !in.CreatedAt.Before(since)
	}, limit), nil
}

func (s *MemoryStore) filterInteractions(keep func(*models.Interaction) bool, limit int) []*models.Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Interaction, 0)
	for _, in := range s.interactions {
		if keep(in) {
			out = append(out, cloneInteraction(in))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *MemoryStore) ListLevelHistory(ctx context.Context, relationshipID string) ([]*models.LevelChange, error) {
	return s.filterLevelHistory(func(lc *models.LevelChange) bool { return lc.RelationshipID == relationshipID }, 0), nil
}

func (s *MemoryStore) ListUserLevelHistory(ctx context.Context, userID string, limit int) ([]*models.LevelChange, error) {
	return s.filterLevelHistory(func(lc *models.LevelChange) bool { return lc.UserID == userID }, limit), nil
}

func (s *MemoryStore) filterLevelHistory(keep func(*models.LevelChange) bool, limit int) []*models.LevelChange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.LevelChange, 0)
	for i := len(s.levelHistory) - 1; i >= 0; i-- {
		if lc := s.levelHistory[i]; keep(lc) {
			c := *lc
			out = append(out, &c)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *MemoryStore) CreateQuest(ctx context.Context, q *models.Quest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.quests[q.ID]; exists {
		return models.ErrConflict
	}
	if key := milestoneKey(q); key != "" {
		if _, taken := s.milestones[key]; taken {
			return models.ErrDuplicateMilestone
		}
		s.milestones[key] = q.ID
	}
	s.quests[q.ID] = cloneQuest(q)
	return nil
}

func (s *MemoryStore) GetQuest(ctx context.Context, userID, id string) (*models.Quest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quests[id]
	if !ok || (userID != "" && q.UserID != userID) {
		return nil, models.NotFoundf("quest %s", id)
	}
	return cloneQuest(q), nil
}

func (s *MemoryStore) ListQuests(ctx context.Context, filter models.QuestFilter) ([]*models.Quest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Quest, 0)
	for _, q := range s.quests {
		if filter.UserID != "" && q.UserID != filter.UserID {
			continue
		}
		if filter.RelationshipID != "" && q.RelationshipID != filter.RelationshipID {
			continue
		}
		if filter.Status != "" && q.Status != filter.Status {
			continue
		}
		if filter.Type != "" && q.Type != filter.Type {
			continue
		}
		out = append(out, cloneQuest(q))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) TransitionQuest(ctx context.Context, userID, id string, to models.QuestStatus, at time.Time) (*models.Quest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quests[id]
	if !ok || (userID != "" && q.UserID != userID) {
		return nil, models.NotFoundf("quest %s", id)
	}
	if !models.CanTransition(q.Status, to) {
		return nil, models.ErrInvalidTransition
	}
	s.applyTransition(q, to, at)
	return cloneQuest(q), nil
}

func (s *MemoryStore) applyTransition(q *models.Quest, to models.QuestStatus, at time.Time) {
	if key := milestoneKey(q); key != "" {
		delete(s.milestones, key)
	}
	q.Status = to
	if to == models.QuestCompleted {
		t := at
		q.CompletedAt = &t
	}
}

func (s *MemoryStore) ExpireQuests(ctx context.Context, now time.Time) ([]*models.Quest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []*models.Quest
	for _, q := range s.quests {
		if q.IsOverdue(now) {
			s.applyTransition(q, models.QuestExpired, now)
			expired = append(expired, cloneQuest(q))
		}
	}
	return expired, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, taken := s.usersByEmail[email]; taken {
		return models.ErrConflict
	}
	c := *u
	s.users[u.ID] = &c
	s.usersByEmail[email] = u.ID
	return nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, models.NotFoundf("user %s", email)
	}
	c := *s.users[id]
	return &c, nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.NotFoundf("user %s", id)
	}
	c := *u
	return &c, nil
}

func (s *MemoryStore) CountUsers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

func (s *MemoryStore) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.NotFoundf("user %s", id)
	}
	u.LastLoginAt = at
	return nil
}

func (s *MemoryStore) IncrementRefreshTokenVersion(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.NotFoundf("user %s", id)
	}
	u.RefreshTokenVersion++
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close(ctx context.Context) error { return nil }
