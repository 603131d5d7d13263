package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"dytto/internal/database"
	"dytto/internal/models"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLStore persists to MySQL or SQLite through database/sql.
// XP increments run as UPDATE xp = xp + ? inside a transaction, so the row
// lock (MySQL) or the single writer (SQLite) serializes concurrent progress.
type SQLStore struct {
	db *database.DB
}

// NewSQLStore creates a store over an initialized database
func NewSQLStore(db *database.DB) *SQLStore {
	return &SQLStore{db: db}
}

const relationshipColumns = `id, user_id, name, bio, photo_url, categories, tags, reminder_interval, xp, level, last_interaction_at, created_at, updated_at`

const interactionColumns = `id, relationship_id, user_id, content, sentiment, sentiment_score, xp_gained, topics, tags, analysis, created_at`

const questColumns = `id, user_id, relationship_id, title, description, type, difficulty, xp_reward, status, deadline, milestone_level, completed_at, created_at`

const levelHistoryColumns = `id, user_id, relationship_id, old_level, new_level, xp_gained, interaction_id, created_at`

const userColumns = `id, email, name, password_hash, role, refresh_token_version, created_at, last_login_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}

func encodeList(list []string) string {
	if list == nil {
		list = []string{}
	}
	data, _ := json.Marshal(list)
	return string(data)
}

func decodeList(raw string) []string {
	var list []string
	if raw == "" {
		return []string{}
	}
	if err := json.Unmarshal([]byte(raw), &list); err != nil || list == nil {
		return []string{}
	}
	return list
}

func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")
	}
	return false
}

func scanRelationship(row rowScanner) (*models.Relationship, error) {
	var (
		rel        models.Relationship
		categories string
		tags       string
		reminder   string
		lastAt     sql.NullInt64
		createdAt  int64
		updatedAt  int64
	)
	if err := row.Scan(&rel.ID, &rel.UserID, &rel.Name, &rel.Bio, &rel.PhotoURL, &categories, &tags,
		&reminder, &rel.XP, &rel.Level, &lastAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rel.Categories = decodeList(categories)
	rel.Tags = decodeList(tags)
	rel.ReminderInterval = models.ReminderInterval(reminder)
	rel.LastInteractionAt = timePtr(lastAt)
	rel.CreatedAt = fromMillis(createdAt)
	rel.UpdatedAt = fromMillis(updatedAt)
	return &rel, nil
}

func scanInteraction(row rowScanner) (*models.Interaction, error) {
	var (
		in        models.Interaction
		sentiment string
		topics    string
		tags      string
		analysis  sql.NullString
		createdAt int64
	)
	if err := row.Scan(&in.ID, &in.RelationshipID, &in.UserID, &in.Content, &sentiment, &in.SentimentScore,
		&in.XPGained, &topics, &tags, &analysis, &createdAt); err != nil {
		return nil, err
	}
	in.Sentiment = models.Sentiment(sentiment)
	in.Topics = decodeList(topics)
	in.Tags = decodeList(tags)
	if analysis.Valid && analysis.String != "" {
		var a models.Analysis
		if err := json.Unmarshal([]byte(analysis.String), &a); err == nil {
			in.Analysis = &a
		}
	}
	in.CreatedAt = fromMillis(createdAt)
	return &in, nil
}

func scanQuest(row rowScanner) (*models.Quest, error) {
	var (
		q              models.Quest
		relationshipID sql.NullString
		questType      string
		difficulty     string
		status         string
		deadline       sql.NullInt64
		milestone      sql.NullInt64
		completedAt    sql.NullInt64
		createdAt      int64
	)
	if err := row.Scan(&q.ID, &q.UserID, &relationshipID, &q.Title, &q.Description, &questType, &difficulty,
		&q.XPReward, &status, &deadline, &milestone, &completedAt, &createdAt); err != nil {
		return nil, err
	}
	q.RelationshipID = relationshipID.String
	q.Type = models.QuestType(questType)
	q.Difficulty = models.QuestDifficulty(difficulty)
	q.Status = models.QuestStatus(status)
	q.Deadline = timePtr(deadline)
	if milestone.Valid {
		level := int(milestone.Int64)
		q.MilestoneLevel = &level
	}
	q.CompletedAt = timePtr(completedAt)
	q.CreatedAt = fromMillis(createdAt)
	return &q, nil
}

func scanLevelChange(row rowScanner) (*models.LevelChange, error) {
	var (
		lc        models.LevelChange
		createdAt int64
	)
	if err := row.Scan(&lc.ID, &lc.UserID, &lc.RelationshipID, &lc.OldLevel, &lc.NewLevel, &lc.XPGained,
		&lc.InteractionID, &createdAt); err != nil {
		return nil, err
	}
	lc.CreatedAt = fromMillis(createdAt)
	return &lc, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u           models.User
		createdAt   int64
		lastLoginAt int64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.RefreshTokenVersion,
		&createdAt, &lastLoginAt); err != nil {
		return nil, err
	}
	u.CreatedAt = fromMillis(createdAt)
	u.LastLoginAt = fromMillis(lastLoginAt)
	return &u, nil
}

// Relationships

func (s *SQLStore) CreateRelationship(ctx context.Context, rel *models.Relationship) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO relationships (`+relationshipColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rel.ID, rel.UserID, rel.Name, rel.Bio, rel.PhotoURL, encodeList(rel.Categories), encodeList(rel.Tags),
		string(rel.ReminderInterval), rel.XP, rel.Level, nullMillis(rel.LastInteractionAt),
		millis(rel.CreatedAt), millis(rel.UpdatedAt))
	if isUniqueViolation(err) {
		return models.ErrConflict
	}
	return models.Persistence("create relationship", err)
}

func (s *SQLStore) GetRelationship(ctx context.Context, userID, id string) (*models.Relationship, error) {
	rel, err := scanRelationship(s.db.QueryRowContext(ctx,
		`SELECT `+relationshipColumns+` FROM relationships WHERE id = ? AND (? = '' OR user_id = ?)`, id, userID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundf("relationship %s", id)
	}
	if err != nil {
		return nil, models.Persistence("get relationship", err)
	}
	return rel, nil
}

// ListRelationships scans the user's rows and narrows them in process, since
// tags and categories are stored as JSON text
func (s *SQLStore) ListRelationships(ctx context.Context, filter models.RelationshipFilter) ([]*models.Relationship, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+relationshipColumns+` FROM relationships WHERE user_id = ? ORDER BY updated_at DESC, id ASC`, filter.UserID)
	if err != nil {
		return nil, models.Persistence("list relationships", err)
	}
	defer rows.Close()

	out := make([]*models.Relationship, 0)
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, models.Persistence("scan relationship", err)
		}
		out = append(out, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, models.Persistence("list relationships", err)
	}
	return narrowRelationships(out, filter), nil
}

func (s *SQLStore) UpdateRelationship(ctx context.Context, rel *models.Relationship) error {
	res, err := s.db.ExecContext(ctx, `UPDATE relationships
		SET name = ?, bio = ?, photo_url = ?, categories = ?, tags = ?, reminder_interval = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		rel.Name, rel.Bio, rel.PhotoURL, encodeList(rel.Categories), encodeList(rel.Tags),
		string(rel.ReminderInterval), millis(rel.UpdatedAt), rel.ID, rel.UserID)
	if err != nil {
		return models.Persistence("update relationship", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports zero for unchanged rows, so confirm the row exists
		if _, err := s.GetRelationship(ctx, rel.UserID, rel.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) DeleteRelationship(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Persistence("begin delete", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM relationships WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return models.Persistence("delete relationship", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.NotFoundf("relationship %s", id)
	}
	for _, stmt := range []string{
		`DELETE FROM interactions WHERE relationship_id = ?`,
		`DELETE FROM level_history WHERE relationship_id = ?`,
		`DELETE FROM quests WHERE relationship_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return models.Persistence("delete relationship children", err)
		}
	}
	return models.Persistence("commit delete", tx.Commit())
}

// Interactions

func (s *SQLStore) RecordInteraction(ctx context.Context, in *models.Interaction, levelOf LevelFunc, milestones MilestoneFunc) (*models.ProgressUpdate, error) {
	if err := validateInteraction(in); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, models.Persistence("begin record interaction", err)
	}
	defer tx.Rollback()

	at := millis(in.CreatedAt)
	if _, err := tx.ExecContext(ctx, `UPDATE relationships
		SET xp = xp + ?, last_interaction_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		in.XPGained, at, at, in.RelationshipID, in.UserID); err != nil {
		return nil, models.Persistence("increment xp", err)
	}

	rel, err := scanRelationship(tx.QueryRowContext(ctx,
		`SELECT `+relationshipColumns+` FROM relationships WHERE id = ? AND user_id = ?`, in.RelationshipID, in.UserID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundf("relationship %s", in.RelationshipID)
	}
	if err != nil {
		return nil, models.Persistence("read relationship", err)
	}

	newXP := rel.XP
	oldXP := newXP - int64(in.XPGained)
	if level := levelOf(newXP); level > rel.Level {
		if _, err := tx.ExecContext(ctx, `UPDATE relationships SET level = ? WHERE id = ? AND level < ?`,
			level, rel.ID, level); err != nil {
			return nil, models.Persistence("update level", err)
		}
		rel.Level = level
	}

	var analysis sql.NullString
	if in.Analysis != nil {
		data, err := json.Marshal(in.Analysis)
		if err != nil {
			return nil, models.Persistence("encode analysis", err)
		}
		analysis = sql.NullString{String: string(data), Valid: true}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO interactions (`+interactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.RelationshipID, in.UserID, in.Content, string(in.Sentiment), in.SentimentScore, in.XPGained,
		encodeList(in.Topics), encodeList(in.Tags), analysis, at); err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrConflict
		}
		return nil, models.Persistence("insert interaction", err)
	}

	update := progressFor(rel, in, oldXP, newXP, levelOf, uuid.New().String())
	if lc := update.LevelChange; lc != nil {
		if _, err := tx.ExecContext(ctx, `INSERT INTO level_history (`+levelHistoryColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			lc.ID, lc.UserID, lc.RelationshipID, lc.OldLevel, lc.NewLevel, lc.XPGained, lc.InteractionID,
			millis(lc.CreatedAt)); err != nil {
			return nil, models.Persistence("insert level history", err)
		}
	}

	for _, q := range milestonesFor(update, milestones) {
		if err := validateQuest(q); err != nil {
			return nil, err
		}
		var pending int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM quests WHERE milestone_key = ?`,
			milestoneKey(q)).Scan(&pending); err != nil {
			return nil, models.Persistence("check milestone quest", err)
		}
		if pending > 0 {
			continue
		}
		if err := insertQuest(ctx, tx, q); err != nil {
			return nil, err
		}
		update.MilestoneQuests = append(update.MilestoneQuests, q)
	}

	if err := tx.Commit(); err != nil {
		return nil, models.Persistence("commit interaction", err)
	}
	return update, nil
}

func (s *SQLStore) GetInteraction(ctx context.Context, userID, id string) (*models.Interaction, error) {
	in, err := scanInteraction(s.db.QueryRowContext(ctx,
		`SELECT `+interactionColumns+` FROM interactions WHERE id = ? AND (? = '' OR user_id = ?)`, id, userID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundf("interaction %s", id)
	}
	if err != nil {
		return nil, models.Persistence("get interaction", err)
	}
	return in, nil
}

func (s *SQLStore) ListInteractions(ctx context.Context, relationshipID string, limit int) ([]*models.Interaction, error) {
	query := `SELECT ` + interactionColumns + ` FROM interactions WHERE relationship_id = ? ORDER BY created_at DESC, id DESC`
	return s.queryInteractions(ctx, query, limit, relationshipID)
}

func (s *SQLStore) ListUserInteractions(ctx context.Context, userID string, since time.Time, limit int) ([]*models.Interaction, error) {
	query := `SELECT ` + interactionColumns + ` FROM interactions WHERE user_id = ? AND created_at >= ? ORDER BY created_at DESC, id DESC`
	return s.queryInteractions(ctx, query, limit, userID, millis(since))
}

func (s *SQLStore) queryInteractions(ctx context.Context, query string, limit int, args ...interface{}) ([]*models.Interaction, error) {
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.Persistence("list interactions", err)
	}
	defer rows.Close()

	out := make([]*models.Interaction, 0)
	for rows.Next() {
		in, err := scanInteraction(rows)
		if err != nil {
			return nil, models.Persistence("scan interaction", err)
		}
		out = append(out, in)
	}
	return out, models.Persistence("list interactions", rows.Err())
}

func (s *SQLStore) ListLevelHistory(ctx context.Context, relationshipID string) ([]*models.LevelChange, error) {
	return s.queryLevelHistory(ctx, `SELECT `+levelHistoryColumns+` FROM level_history
		WHERE relationship_id = ? ORDER BY created_at DESC, new_level DESC`, 0, relationshipID)
}

func (s *SQLStore) ListUserLevelHistory(ctx context.Context, userID string, limit int) ([]*models.LevelChange, error) {
	return s.queryLevelHistory(ctx, `SELECT `+levelHistoryColumns+` FROM level_history
		WHERE user_id = ? ORDER BY created_at DESC, new_level DESC`, limit, userID)
}

func (s *SQLStore) queryLevelHistory(ctx context.Context, query string, limit int, args ...interface{}) ([]*models.LevelChange, error) {
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.Persistence("list level history", err)
	}
	defer rows.Close()

	out := make([]*models.LevelChange, 0)
	for rows.Next() {
		lc, err := scanLevelChange(rows)
		if err != nil {
			return nil, models.Persistence("scan level history", err)
		}
		out = append(out, lc)
	}
	return out, models.Persistence("list level history", rows.Err())
}

// Quests

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *SQLStore) CreateQuest(ctx context.Context, q *models.Quest) error {
	return insertQuest(ctx, s.db, q)
}

func insertQuest(ctx context.Context, ex execer, q *models.Quest) error {
	var milestone sql.NullInt64
	if q.MilestoneLevel != nil {
		milestone = sql.NullInt64{Int64: int64(*q.MilestoneLevel), Valid: true}
	}
	var key sql.NullString
	if k := milestoneKey(q); k != "" {
		key = sql.NullString{String: k, Valid: true}
	}
	var relationshipID sql.NullString
	if q.RelationshipID != "" {
		relationshipID = sql.NullString{String: q.RelationshipID, Valid: true}
	}

	_, err := ex.ExecContext(ctx, `INSERT INTO quests (`+questColumns+`, milestone_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.UserID, relationshipID, q.Title, q.Description, string(q.Type), string(q.Difficulty), q.XPReward,
		string(q.Status), nullMillis(q.Deadline), milestone, nullMillis(q.CompletedAt), millis(q.CreatedAt), key)
	if isUniqueViolation(err) {
		if key.Valid && strings.Contains(err.Error(), "milestone") {
			return models.ErrDuplicateMilestone
		}
		return models.ErrConflict
	}
	return models.Persistence("create quest", err)
}

func (s *SQLStore) GetQuest(ctx context.Context, userID, id string) (*models.Quest, error) {
	return s.getQuest(ctx, s.db.DB, userID, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *SQLStore) getQuest(ctx context.Context, q queryRower, userID, id string) (*models.Quest, error) {
	quest, err := scanQuest(q.QueryRowContext(ctx,
		`SELECT `+questColumns+` FROM quests WHERE id = ? AND (? = '' OR user_id = ?)`, id, userID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundf("quest %s", id)
	}
	if err != nil {
		return nil, models.Persistence("get quest", err)
	}
	return quest, nil
}

func (s *SQLStore) ListQuests(ctx context.Context, filter models.QuestFilter) ([]*models.Quest, error) {
	var (
		clauses []string
		args    []interface{}
	)
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.RelationshipID != "" {
		clauses = append(clauses, "relationship_id = ?")
		args = append(args, filter.RelationshipID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, string(filter.Type))
	}

	query := `SELECT ` + questColumns + ` FROM quests`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.Persistence("list quests", err)
	}
	defer rows.Close()

	out := make([]*models.Quest, 0)
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, models.Persistence("scan quest", err)
		}
		out = append(out, q)
	}
	return out, models.Persistence("list quests", rows.Err())
}

func (s *SQLStore) TransitionQuest(ctx context.Context, userID, id string, to models.QuestStatus, at time.Time) (*models.Quest, error) {
	if !models.CanTransition(models.QuestPending, to) {
		return nil, models.ErrInvalidTransition
	}

	var completedAt sql.NullInt64
	if to == models.QuestCompleted {
		completedAt = sql.NullInt64{Int64: millis(at), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `UPDATE quests
		SET status = ?, completed_at = ?, milestone_key = NULL
		WHERE id = ? AND (? = '' OR user_id = ?) AND status = ?`,
		string(to), completedAt, id, userID, userID, string(models.QuestPending))
	if err != nil {
		return nil, models.Persistence("transition quest", err)
	}

	quest, err := s.GetQuest(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, models.ErrInvalidTransition
	}
	return quest, nil
}

func (s *SQLStore) ExpireQuests(ctx context.Context, now time.Time) ([]*models.Quest, error) {
	due, err := s.ListOverdueQuests(ctx, now)
	if err != nil {
		return nil, err
	}

	expired := make([]*models.Quest, 0, len(due))
	for _, q := range due {
		// compare-and-swap per quest so a concurrent completion wins
		res, err := s.db.ExecContext(ctx, `UPDATE quests SET status = ?, milestone_key = NULL WHERE id = ? AND status = ?`,
			string(models.QuestExpired), q.ID, string(models.QuestPending))
		if err != nil {
			return expired, models.Persistence("expire quest", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			q.Status = models.QuestExpired
			expired = append(expired, q)
		}
	}
	return expired, nil
}

// ListOverdueQuests returns pending quests whose deadline is before now
func (s *SQLStore) ListOverdueQuests(ctx context.Context, now time.Time) ([]*models.Quest, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+questColumns+` FROM quests
		WHERE status = ? AND deadline IS NOT NULL AND deadline < ?`,
		string(models.QuestPending), millis(now))
	if err != nil {
		return nil, models.Persistence("list overdue quests", err)
	}
	defer rows.Close()

	out := make([]*models.Quest, 0)
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, models.Persistence("scan quest", err)
		}
		out = append(out, q)
	}
	return out, models.Persistence("list overdue quests", rows.Err())
}

// Users

func (s *SQLStore) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, strings.ToLower(u.Email), u.Name, u.PasswordHash, u.Role, u.RefreshTokenVersion,
		millis(u.CreatedAt), millis(u.LastLoginAt))
	if isUniqueViolation(err) {
		return models.ErrConflict
	}
	return models.Persistence("create user", err)
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundf("user %s", email)
	}
	if err != nil {
		return nil, models.Persistence("get user", err)
	}
	return u, nil
}

func (s *SQLStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundf("user %s", id)
	}
	if err != nil {
		return nil, models.Persistence("get user", err)
	}
	return u, nil
}

func (s *SQLStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, models.Persistence("count users", err)
	}
	return count, nil
}

func (s *SQLStore) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, millis(at), id)
	return models.Persistence("update last login", err)
}

func (s *SQLStore) IncrementRefreshTokenVersion(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET refresh_token_version = refresh_token_version + 1 WHERE id = ?`, id)
	return models.Persistence("increment token version", err)
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close(ctx context.Context) error {
	return s.db.Close()
}
