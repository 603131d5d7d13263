package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"dytto/internal/database"
	"dytto/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore persists to MongoDB. Progress updates run inside a session
// transaction (requires a replica set) using $inc and $max, so concurrent
// interactions never overwrite each other's XP.
type MongoStore struct {
	db *database.MongoDB
}

// NewMongoStore creates a store over an initialized MongoDB connection
func NewMongoStore(db *database.MongoDB) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) relationships() *mongo.Collection {
	return s.db.Collection(database.CollectionRelationships)
}

func (s *MongoStore) interactions() *mongo.Collection {
	return s.db.Collection(database.CollectionInteractions)
}

func (s *MongoStore) levelHistory() *mongo.Collection {
	return s.db.Collection(database.CollectionLevelHistory)
}

func (s *MongoStore) quests() *mongo.Collection {
	return s.db.Collection(database.CollectionQuests)
}

func (s *MongoStore) users() *mongo.Collection {
	return s.db.Collection(database.CollectionUsers)
}

func ownedFilter(userID, id string) bson.M {
	filter := bson.M{"_id": id}
	if userID != "" {
		filter["userId"] = userID
	}
	return filter
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions, op string) ([]*T, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, models.Persistence(op, err)
	}
	defer cursor.Close(ctx)

	out := make([]*T, 0)
	for cursor.Next(ctx) {
		var item T
		if err := cursor.Decode(&item); err != nil {
			return nil, models.Persistence(op, err)
		}
		out = append(out, &item)
	}
	return out, models.Persistence(op, cursor.Err())
}

// Relationships

func (s *MongoStore) CreateRelationship(ctx context.Context, rel *models.Relationship) error {
	_, err := s.relationships().InsertOne(ctx, rel)
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrConflict
	}
	return models.Persistence("create relationship", err)
}

func (s *MongoStore) GetRelationship(ctx context.Context, userID, id string) (*models.Relationship, error) {
	var rel models.Relationship
	err := s.relationships().FindOne(ctx, ownedFilter(userID, id)).Decode(&rel)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NotFoundf("relationship %s", id)
	}
	if err != nil {
		return nil, models.Persistence("get relationship", err)
	}
	return &rel, nil
}

func (s *MongoStore) ListRelationships(ctx context.Context, filter models.RelationshipFilter) ([]*models.Relationship, error) {
	query := bson.M{"userId": filter.UserID}
	if len(filter.Categories) > 0 {
		in := make(bson.A, 0, len(filter.Categories))
		for _, c := range filter.Categories {
			in = append(in, primitive.Regex{Pattern: "^" + regexp.QuoteMeta(c) + "$", Options: "i"})
		}
		query["categories"] = bson.M{"$in": in}
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"bio": pattern},
			bson.M{"tags": pattern},
			bson.M{"categories": pattern},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "_id", Value: 1}})
	list, err := findAll[models.Relationship](ctx, s.relationships(), query, opts, "list relationships")
	if err != nil {
		return nil, err
	}
	// name ordering is case-insensitive, which a plain index sort is not
	return narrowRelationships(list, filter), nil
}

func (s *MongoStore) UpdateRelationship(ctx context.Context, rel *models.Relationship) error {
	res, err := s.relationships().UpdateOne(ctx, ownedFilter(rel.UserID, rel.ID), bson.M{"$set": bson.M{
		"name":             rel.Name,
		"bio":              rel.Bio,
		"photoUrl":         rel.PhotoURL,
		"categories":       rel.Categories,
		"tags":             rel.Tags,
		"reminderInterval": rel.ReminderInterval,
		"updatedAt":        rel.UpdatedAt,
	}})
	if err != nil {
		return models.Persistence("update relationship", err)
	}
	if res.MatchedCount == 0 {
		return models.NotFoundf("relationship %s", rel.ID)
	}
	return nil
}

func (s *MongoStore) DeleteRelationship(ctx context.Context, userID, id string) error {
	return s.db.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		res, err := s.relationships().DeleteOne(sc, ownedFilter(userID, id))
		if err != nil {
			return models.Persistence("delete relationship", err)
		}
		if res.DeletedCount == 0 {
			return models.NotFoundf("relationship %s", id)
		}
		for _, coll := range []*mongo.Collection{s.interactions(), s.levelHistory(), s.quests()} {
			if _, err := coll.DeleteMany(sc, bson.M{"relationshipId": id}); err != nil {
				return models.Persistence("delete relationship children", err)
			}
		}
		return nil
	})
}

// Interactions

func (s *MongoStore) RecordInteraction(ctx context.Context, in *models.Interaction, levelOf LevelFunc, milestones MilestoneFunc) (*models.ProgressUpdate, error) {
	if err := validateInteraction(in); err != nil {
		return nil, err
	}

	var update *models.ProgressUpdate
	err := s.db.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		// the callback may be retried on transient errors
		update = nil

		var before models.Relationship
		err := s.relationships().FindOneAndUpdate(sc,
			bson.M{"_id": in.RelationshipID, "userId": in.UserID},
			bson.M{
				"$inc": bson.M{"xp": int64(in.XPGained)},
				"$set": bson.M{"lastInteractionAt": in.CreatedAt, "updatedAt": in.CreatedAt},
			},
			options.FindOneAndUpdate().SetReturnDocument(options.Before),
		).Decode(&before)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.NotFoundf("relationship %s", in.RelationshipID)
		}
		if err != nil {
			return models.Persistence("increment xp", err)
		}

		oldXP := before.XP
		newXP := oldXP + int64(in.XPGained)
		level := levelOf(newXP)
		if _, err := s.relationships().UpdateOne(sc, bson.M{"_id": in.RelationshipID},
			bson.M{"$max": bson.M{"level": level}}); err != nil {
			return models.Persistence("update level", err)
		}

		if _, err := s.interactions().InsertOne(sc, in); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return models.ErrConflict
			}
			return models.Persistence("insert interaction", err)
		}

		after := before
		after.XP = newXP
		if level > after.Level {
			after.Level = level
		}
		at := in.CreatedAt
		after.LastInteractionAt = &at
		after.UpdatedAt = in.CreatedAt

		update = progressFor(&after, in, oldXP, newXP, levelOf, uuid.New().String())
		if update.LevelChange != nil {
			if _, err := s.levelHistory().InsertOne(sc, update.LevelChange); err != nil {
				return models.Persistence("insert level history", err)
			}
		}

		for _, q := range milestonesFor(update, milestones) {
			if err := validateQuest(q); err != nil {
				return err
			}
			pending, err := s.quests().CountDocuments(sc, bson.M{
				"relationshipId": q.RelationshipID,
				"milestoneLevel": q.MilestoneLevel,
				"type":           models.QuestMilestone,
				"status":         models.QuestPending,
			})
			if err != nil {
				return models.Persistence("check milestone quest", err)
			}
			if pending > 0 {
				continue
			}
			if _, err := s.quests().InsertOne(sc, q); err != nil {
				if mongo.IsDuplicateKeyError(err) {
					return models.ErrConflict
				}
				return models.Persistence("insert milestone quest", err)
			}
			update.MilestoneQuests = append(update.MilestoneQuests, q)
		}
		return nil
	})
	if err != nil {
		return nil, models.Persistence("record interaction", err)
	}
	return update, nil
}

func (s *MongoStore) GetInteraction(ctx context.Context, userID, id string) (*models.Interaction, error) {
	var in models.Interaction
	err := s.interactions().FindOne(ctx, ownedFilter(userID, id)).Decode(&in)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NotFoundf("interaction %s", id)
	}
	if err != nil {
		return nil, models.Persistence("get interaction", err)
	}
	return &in, nil
}

func newestFirst(limit int) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}

func (s *MongoStore) ListInteractions(ctx context.Context, relationshipID string, limit int) ([]*models.Interaction, error) {
	return findAll[models.Interaction](ctx, s.interactions(), bson.M{"relationshipId": relationshipID}, newestFirst(limit), "list interactions")
}

func (s *MongoStore) ListUserInteractions(ctx context.Context, userID string, since time.Time, limit int) ([]*models.Interaction, error) {
	filter := bson.M{"userId": userID, "createdAt": bson.M{"$gte": since}}
	return findAll[models.Interaction](ctx, s.interactions(), filter, newestFirst(limit), "list user interactions")
}

func (s *MongoStore) ListLevelHistory(ctx context.Context, relationshipID string) ([]*models.LevelChange, error) {
	return findAll[models.LevelChange](ctx, s.levelHistory(), bson.M{"relationshipId": relationshipID}, newestFirst(0), "list level history")
}

func (s *MongoStore) ListUserLevelHistory(ctx context.Context, userID string, limit int) ([]*models.LevelChange, error) {
	return findAll[models.LevelChange](ctx, s.levelHistory(), bson.M{"userId": userID}, newestFirst(limit), "list user level history")
}

// Quests

func (s *MongoStore) CreateQuest(ctx context.Context, q *models.Quest) error {
	_, err := s.quests().InsertOne(ctx, q)
	if mongo.IsDuplicateKeyError(err) {
		if milestoneKey(q) != "" && strings.Contains(err.Error(), "uniq_pending_milestone") {
			return models.ErrDuplicateMilestone
		}
		return models.ErrConflict
	}
	return models.Persistence("create quest", err)
}

func (s *MongoStore) GetQuest(ctx context.Context, userID, id string) (*models.Quest, error) {
	var q models.Quest
	err := s.quests().FindOne(ctx, ownedFilter(userID, id)).Decode(&q)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NotFoundf("quest %s", id)
	}
	if err != nil {
		return nil, models.Persistence("get quest", err)
	}
	return &q, nil
}

func (s *MongoStore) ListQuests(ctx context.Context, filter models.QuestFilter) ([]*models.Quest, error) {
	query := bson.M{}
	if filter.UserID != "" {
		query["userId"] = filter.UserID
	}
	if filter.RelationshipID != "" {
		query["relationshipId"] = filter.RelationshipID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Type != "" {
		query["type"] = filter.Type
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	return findAll[models.Quest](ctx, s.quests(), query, opts, "list quests")
}

func (s *MongoStore) TransitionQuest(ctx context.Context, userID, id string, to models.QuestStatus, at time.Time) (*models.Quest, error) {
	if !models.CanTransition(models.QuestPending, to) {
		return nil, models.ErrInvalidTransition
	}

	set := bson.M{"status": to}
	if to == models.QuestCompleted {
		set["completedAt"] = at
	}
	filter := ownedFilter(userID, id)
	filter["status"] = models.QuestPending

	var q models.Quest
	err := s.quests().FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&q)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := s.GetQuest(ctx, userID, id); getErr != nil {
			return nil, getErr
		}
		return nil, models.ErrInvalidTransition
	}
	if err != nil {
		return nil, models.Persistence("transition quest", err)
	}
	return &q, nil
}

func (s *MongoStore) ExpireQuests(ctx context.Context, now time.Time) ([]*models.Quest, error) {
	due, err := findAll[models.Quest](ctx, s.quests(), bson.M{
		"status":   models.QuestPending,
		"deadline": bson.M{"$lt": now},
	}, options.Find(), "list overdue quests")
	if err != nil {
		return nil, err
	}

	expired := make([]*models.Quest, 0, len(due))
	for _, q := range due {
		res, err := s.quests().UpdateOne(ctx,
			bson.M{"_id": q.ID, "status": models.QuestPending},
			bson.M{"$set": bson.M{"status": models.QuestExpired}})
		if err != nil {
			return expired, models.Persistence("expire quest", err)
		}
		if res.ModifiedCount == 1 {
			q.Status = models.QuestExpired
			expired = append(expired, q)
		}
	}
	return expired, nil
}

// Users

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	c := *u
	c.Email = strings.ToLower(u.Email)
	_, err := s.users().InsertOne(ctx, &c)
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrConflict
	}
	return models.Persistence("create user", err)
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M, label string) (*models.User, error) {
	var u models.User
	err := s.users().FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NotFoundf("user %s", label)
	}
	if err != nil {
		return nil, models.Persistence("get user", err)
	}
	return &u, nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": strings.ToLower(email)}, email)
}

func (s *MongoStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id}, id)
}

func (s *MongoStore) CountUsers(ctx context.Context) (int64, error) {
	n, err := s.users().CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, models.Persistence("count users", err)
	}
	return n, nil
}

func (s *MongoStore) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.users().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"lastLoginAt": at}})
	return models.Persistence("update last login", err)
}

func (s *MongoStore) IncrementRefreshTokenVersion(ctx context.Context, id string) error {
	_, err := s.users().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"refreshTokenVersion": 1}})
	return models.Persistence("increment token version", err)
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Close(ctx)
}
