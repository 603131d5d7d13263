package services

import (
	"context"
	"time"

	"dytto/internal/insights"
	"dytto/internal/models"
	"dytto/internal/store"

	cache "github.com/patrickmn/go-cache"
)

// InsightsService generates relationship insights and caches them until the
// next interaction on that relationship
type InsightsService struct {
	store store.Store
	cache *cache.Cache
	now   func() time.Time
}

// NewInsightsService creates an insights service whose entries live for ttl
func NewInsightsService(st store.Store, ttl time.Duration) *InsightsService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &InsightsService{
		store: st,
		cache: cache.New(ttl, 2*ttl),
		now:   time.Now,
	}
}

// Get returns insights for one of the user's relationships
func (s *InsightsService) Get(ctx context.Context, userID, relationshipID string) (*models.Insights, error) {
	// Ownership is checked before the cache so another user never sees a hit
	rel, err := s.store.GetRelationship(ctx, userID, relationshipID)
	if err != nil {
		return nil, err
	}

	if cached, found := s.cache.Get(relationshipID); found {
		return cached.(*models.Insights), nil
	}

	interactions, err := s.store.ListInteractions(ctx, relationshipID, insights.MaxInteractions)
	if err != nil {
		return nil, err
	}

	report, err := insights.Generate(rel, interactions, s.now())
	if err != nil {
		return nil, err
	}

	s.cache.Set(relationshipID, report, cache.DefaultExpiration)
	return report, nil
}

// Invalidate drops the cached insights for a relationship
func (s *InsightsService) Invalidate(relationshipID string) {
	s.cache.Delete(relationshipID)
}
