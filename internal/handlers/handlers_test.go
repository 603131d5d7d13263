package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dytto/internal/analysis"
	"dytto/internal/jobs"
	"dytto/internal/leveling"
	"dytto/internal/middleware"
	"dytto/internal/models"
	"dytto/internal/quests"
	"dytto/internal/services"
	"dytto/internal/store"
	"dytto/internal/utils"
	"dytto/pkg/auth"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type failingAnalyzer struct{}

func (failingAnalyzer) Analyze(ctx context.Context, content string) (*models.Analysis, error) {
	return nil, errors.New("upstream unavailable")
}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error {
	return errors.New("connection refused")
}

type fakeJobRunner struct {
	ran []string
}

func (f *fakeJobRunner) GetStatus() []jobs.JobStatus {
	return []jobs.JobStatus{{Name: jobs.QuestExpiryJobName, Schedule: "*/15 * * * *"}}
}

func (f *fakeJobRunner) RunNow(name string) error {
	switch name {
	case jobs.QuestExpiryJobName:
		f.ran = append(f.ran, name)
		return nil
	case "broken":
		return errors.New("job exploded")
	default:
		return models.NotFoundf("job %s", name)
	}
}

type testEnv struct {
	app   *fiber.App
	store *store.MemoryStore
	jobs  *fakeJobRunner
}

// setupTestApp wires the API routes on a memory store. Requests are
// authenticated as the user named in X-Test-User, default user-1.
func setupTestApp(t *testing.T, analyzer analysis.Analyzer) *testEnv {
	t.Helper()
	if analyzer == nil {
		analyzer = analysis.NewHeuristic(nil, utils.FixedSource{})
	}

	st := store.NewMemoryStore()
	relationshipService := services.NewRelationshipService(st)
	questService := services.NewQuestService(st)
	insightsService := services.NewInsightsService(st, time.Minute)
	progressionService := services.NewProgressionService(st, analyzer, quests.NewGenerator(utils.FixedSource{}))
	progressionService.SetInsightsService(insightsService)

	relationshipHandler := NewRelationshipHandler(relationshipService, progressionService, questService, insightsService)
	questHandler := NewQuestHandler(questService)
	levelHandler := NewLevelHandler(progressionService)
	exportHandler := NewExportHandler(services.NewExportService(st))
	dashboardHandler := NewDashboardHandler(services.NewDashboardService(st))
	runner := &fakeJobRunner{}
	adminHandler := NewAdminHandler(runner)

	app := fiber.New()
	app.Get("/health", NewHealthHandler(services.NewConnectionManager(), nil).Handle)

	api := app.Group("/api", func(c *fiber.Ctx) error {
		userID := c.Get("X-Test-User")
		if userID == "" {
			userID = "user-1"
		}
		c.Locals("user_id", userID)
		c.Locals("user_role", c.Get("X-Test-Role", "user"))
		return c.Next()
	})

	api.Get("/levels", levelHandler.Table)
	api.Get("/levels/progress", levelHandler.Progress)
	api.Post("/analyze", levelHandler.Analyze)

	api.Get("/relationships", relationshipHandler.List)
	api.Post("/relationships", relationshipHandler.Create)
	api.Get("/relationships/:id", relationshipHandler.Get)
	api.Delete("/relationships/:id", relationshipHandler.Delete)
	api.Post("/relationships/:id/interactions", relationshipHandler.LogInteraction)
	api.Get("/relationships/:id/interactions", relationshipHandler.ListInteractions)
	api.Post("/relationships/:id/quests", relationshipHandler.GenerateQuest)
	api.Get("/relationships/:id/starters", relationshipHandler.ConversationStarters)
	api.Post("/interactions", relationshipHandler.CreateInteraction)

	api.Get("/quests", questHandler.List)
	api.Post("/quests", questHandler.Create)
	api.Post("/quests/:id/complete", questHandler.Complete)

	api.Get("/dashboard", dashboardHandler.Stats)
	api.Get("/export/relationships.csv", exportHandler.CSV)
	api.Get("/export/data.json", exportHandler.JSON)
	api.Post("/import", exportHandler.Import)

	admin := api.Group("/admin", middleware.AdminMiddleware([]string{"ops-user"}))
	admin.Get("/jobs", adminHandler.ListJobs)
	admin.Post("/jobs/:name/run", adminHandler.RunJob)

	return &testEnv{app: app, store: st, jobs: runner}
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("Failed to decode %s response: %v (%s)", path, err, raw)
		}
	}
	return resp.StatusCode, out
}

func seedTestRelationship(t *testing.T, st store.Store, userID string, xp int64) *models.Relationship {
	t.Helper()
	now := time.Now().UTC()
	rel := &models.Relationship{
		ID:               uuid.New().String(),
		UserID:           userID,
		Name:             "Sarah",
		Categories:       []string{models.CategoryFriend},
		Tags:             []string{},
		ReminderInterval: models.ReminderWeekly,
		XP:               xp,
		Level:            leveling.LevelFromXP(xp),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := st.CreateRelationship(context.Background(), rel); err != nil {
		t.Fatalf("Failed to seed relationship: %v", err)
	}
	return rel
}

func TestHealthHandler(t *testing.T) {
	app := fiber.New()
	app.Get("/health", NewHealthHandler(services.NewConnectionManager(), nil).Handle)

	status, body := doJSON(t, app, "GET", "/health", nil, nil)
	if status != fiber.StatusOK {
		t.Errorf("Expected status 200, got %d", status)
	}
	if body["status"] != "healthy" {
		t.Errorf("Expected healthy, got %v", body["status"])
	}

	degraded := fiber.New()
	degraded.Get("/health", NewHealthHandler(services.NewConnectionManager(), map[string]Pinger{"redis": failingPinger{}}).Handle)
	status, body = doJSON(t, degraded, "GET", "/health", nil, nil)
	if status != fiber.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", status)
	}
	checks, _ := body["checks"].(map[string]interface{})
	if checks["redis"] != "connection refused" {
		t.Errorf("Expected redis check error, got %v", checks["redis"])
	}
}

func TestRelationshipHandler_CreateAndGet(t *testing.T) {
	env := setupTestApp(t, nil)

	status, created := doJSON(t, env.app, "POST", "/api/relationships", map[string]interface{}{
		"name":       "Sarah",
		"categories": []string{"Friend"},
	}, nil)
	if status != fiber.StatusCreated {
		t.Fatalf("Expected status 201, got %d (%v)", status, created)
	}
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("Expected relationship id")
	}
	if created["level"] != float64(1) {
		t.Errorf("Expected level 1, got %v", created["level"])
	}

	status, got := doJSON(t, env.app, "GET", "/api/relationships/"+id, nil, nil)
	if status != fiber.StatusOK {
		t.Errorf("Expected status 200, got %d", status)
	}
	if got["name"] != "Sarah" {
		t.Errorf("Expected name Sarah, got %v", got["name"])
	}

	status, _ = doJSON(t, env.app, "GET", "/api/relationships/"+id, nil, map[string]string{"X-Test-User": "user-2"})
	if status != fiber.StatusNotFound {
		t.Errorf("Expected another user's lookup to return 404, got %d", status)
	}

	status, body := doJSON(t, env.app, "POST", "/api/relationships", map[string]interface{}{"bio": "no name"}, nil)
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", status)
	}
	if body["error"] != "name is required" {
		t.Errorf("Expected sentinel prefix stripped, got %v", body["error"])
	}
}

func TestRelationshipHandler_ListFilters(t *testing.T) {
	env := setupTestApp(t, nil)
	for _, input := range []map[string]interface{}{
		{"name": "Zoe", "categories": []string{"Family"}},
		{"name": "adam", "bio": "Climbing partner", "categories": []string{"Friend"}},
		{"name": "Mia", "tags": []string{"climbing"}, "categories": []string{"Business"}},
	} {
		if status, body := doJSON(t, env.app, "POST", "/api/relationships", input, nil); status != fiber.StatusCreated {
			t.Fatalf("Expected status 201, got %d (%v)", status, body)
		}
	}

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantNames  []string
	}{
		{"sorted by name", "?sort=name", fiber.StatusOK, []string{"adam", "Mia", "Zoe"}},
		{"name descending", "?sort=name&order=desc", fiber.StatusOK, []string{"Zoe", "Mia", "adam"}},
		{"search bio and tags", "?q=climb&sort=name", fiber.StatusOK, []string{"adam", "Mia"}},
		{"category list", "?category=family,business&sort=name", fiber.StatusOK, []string{"Mia", "Zoe"}},
		{"unknown sort", "?sort=age", fiber.StatusBadRequest, nil},
		{"bad order", "?order=sideways", fiber.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, env.app, "GET", "/api/relationships"+tt.query, nil, nil)
			if status != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d (%v)", tt.wantStatus, status, body)
			}
			if tt.wantNames == nil {
				return
			}
			list, _ := body["relationships"].([]interface{})
			var names []string
			for _, item := range list {
				names = append(names, item.(map[string]interface{})["name"].(string))
			}
			if fmt.Sprint(names) != fmt.Sprint(tt.wantNames) {
				t.Errorf("Expected %v, got %v", tt.wantNames, names)
			}
		})
	}
}

func TestRelationshipHandler_ConversationStarters(t *testing.T) {
	env := setupTestApp(t, nil)
	rel := seedTestRelationship(t, env.store, "user-1", 0)

	status, body := doJSON(t, env.app, "GET", "/api/relationships/"+rel.ID+"/starters?count=4", nil, nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d (%v)", status, body)
	}
	if starters, _ := body["starters"].([]interface{}); len(starters) != 4 {
		t.Errorf("Expected 4 starters, got %v", body["starters"])
	}

	if status, _ := doJSON(t, env.app, "GET", "/api/relationships/"+rel.ID+"/starters?count=99", nil, nil); status != fiber.StatusBadRequest {
		t.Errorf("Expected status 400 for too many starters, got %d", status)
	}
	if status, _ := doJSON(t, env.app, "GET", "/api/relationships/"+rel.ID+"/starters", nil, map[string]string{"X-Test-User": "user-2"}); status != fiber.StatusNotFound {
		t.Errorf("Expected status 404 for another user, got %d", status)
	}
}

func TestExportHandler_ImportBackup(t *testing.T) {
	env := setupTestApp(t, nil)
	rel := seedTestRelationship(t, env.store, "user-1", 0)
	if status, body := doJSON(t, env.app, "POST", "/api/relationships/"+rel.ID+"/interactions", map[string]string{"content": "Wonderful lunch together"}, nil); status != fiber.StatusCreated {
		t.Fatalf("Failed to log interaction: %d (%v)", status, body)
	}

	status, backup := doJSON(t, env.app, "GET", "/api/export/data.json", nil, nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected status 200 for export, got %d", status)
	}

	status, body := doJSON(t, env.app, "POST", "/api/import", backup, map[string]string{"X-Test-User": "user-2"})
	if status != fiber.StatusCreated {
		t.Fatalf("Expected status 201, got %d (%v)", status, body)
	}
	if body["relationships"] != float64(1) || body["interactions"] != float64(1) {
		t.Errorf("Unexpected import summary: %v", body)
	}

	status, body = doJSON(t, env.app, "GET", "/api/relationships", nil, map[string]string{"X-Test-User": "user-2"})
	if status != fiber.StatusOK || body["count"] != float64(1) {
		t.Errorf("Expected user-2 to own 1 relationship, got %d (%v)", status, body)
	}

	backup["version"] = "9.0.0"
	if status, _ := doJSON(t, env.app, "POST", "/api/import", backup, nil); status != fiber.StatusBadRequest {
		t.Errorf("Expected status 400 for unsupported version, got %d", status)
	}
}

func TestRelationshipHandler_LogInteractionLevelUp(t *testing.T) {
	env := setupTestApp(t, nil)
	rel := seedTestRelationship(t, env.store, "user-1", 9)

	status, body := doJSON(t, env.app, "POST", "/api/relationships/"+rel.ID+"/interactions", map[string]interface{}{
		"content": "Had an amazing dinner, talked about her new job",
		"tags":    []string{"dinner"},
	}, nil)
	if status != fiber.StatusCreated {
		t.Fatalf("Expected status 201, got %d (%v)", status, body)
	}
	if body["xp_gained"] != float64(3) {
		t.Errorf("Expected 3 XP, got %v", body["xp_gained"])
	}
	if body["leveled_up"] != true {
		t.Errorf("Expected level up, got %v", body["leveled_up"])
	}
	if body["new_level"] != float64(3) {
		t.Errorf("Expected new level 3, got %v", body["new_level"])
	}
	milestones, _ := body["milestone_quests"].([]interface{})
	if len(milestones) != 1 {
		t.Errorf("Expected 1 milestone quest, got %d", len(milestones))
	}

	stored, err := env.store.GetRelationship(context.Background(), "user-1", rel.ID)
	if err != nil {
		t.Fatalf("GetRelationship failed: %v", err)
	}
	if stored.XP != 12 {
		t.Errorf("Expected stored XP 12, got %d", stored.XP)
	}
}

func TestRelationshipHandler_CreateInteractionFromBody(t *testing.T) {
	env := setupTestApp(t, nil)
	rel := seedTestRelationship(t, env.store, "user-1", 0)

	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
	}{
		{
			name:       "valid interaction",
			body:       map[string]interface{}{"relationship_id": rel.ID, "content": "Quick call"},
			wantStatus: fiber.StatusCreated,
		},
		{
			name:       "empty content",
			body:       map[string]interface{}{"relationship_id": rel.ID, "content": "   "},
			wantStatus: fiber.StatusBadRequest,
		},
		{
			name:       "missing relationship",
			body:       map[string]interface{}{"content": "Quick call"},
			wantStatus: fiber.StatusBadRequest,
		},
		{
			name:       "unknown relationship",
			body:       map[string]interface{}{"relationship_id": "nope", "content": "Quick call"},
			wantStatus: fiber.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, env.app, "POST", "/api/interactions", tt.body, nil)
			if status != tt.wantStatus {
				t.Errorf("Expected status %d, got %d (%v)", tt.wantStatus, status, body)
			}
		})
	}
}

func TestRelationshipHandler_AnalysisFailure(t *testing.T) {
	env := setupTestApp(t, failingAnalyzer{})
	rel := seedTestRelationship(t, env.store, "user-1", 9)

	status, body := doJSON(t, env.app, "POST", "/api/relationships/"+rel.ID+"/interactions", map[string]interface{}{
		"content": "Had an amazing dinner",
	}, nil)
	if status != fiber.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", status)
	}
	if msg, _ := body["error"].(string); strings.Contains(msg, "upstream") {
		t.Errorf("Expected analyzer details hidden, got %q", msg)
	}

	stored, err := env.store.GetRelationship(context.Background(), "user-1", rel.ID)
	if err != nil {
		t.Fatalf("GetRelationship failed: %v", err)
	}
	if stored.XP != 9 {
		t.Errorf("Expected XP unchanged at 9, got %d", stored.XP)
	}
}

func TestQuestHandler_CompleteTwice(t *testing.T) {
	env := setupTestApp(t, nil)

	status, quest := doJSON(t, env.app, "POST", "/api/quests", map[string]interface{}{
		"title":       "Call mom",
		"description": "Catch up for ten minutes",
	}, nil)
	if status != fiber.StatusCreated {
		t.Fatalf("Expected status 201, got %d (%v)", status, quest)
	}
	id, _ := quest["id"].(string)

	status, completed := doJSON(t, env.app, "POST", "/api/quests/"+id+"/complete", nil, nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", status)
	}
	if completed["status"] != string(models.QuestCompleted) {
		t.Errorf("Expected completed, got %v", completed["status"])
	}

	status, _ = doJSON(t, env.app, "POST", "/api/quests/"+id+"/complete", nil, nil)
	if status != fiber.StatusConflict {
		t.Errorf("Expected status 409 on second completion, got %d", status)
	}

	status, _ = doJSON(t, env.app, "POST", "/api/quests/missing/complete", nil, nil)
	if status != fiber.StatusNotFound {
		t.Errorf("Expected status 404, got %d", status)
	}
}

func TestLevelHandler_Progress(t *testing.T) {
	env := setupTestApp(t, nil)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLevel  float64
	}{
		{name: "zero xp", query: "?xp=0", wantStatus: fiber.StatusOK, wantLevel: 1},
		{name: "mid table", query: "?xp=12", wantStatus: fiber.StatusOK, wantLevel: 3},
		{name: "past max", query: "?xp=10000", wantStatus: fiber.StatusOK, wantLevel: float64(leveling.MaxLevel)},
		{name: "missing xp", query: "", wantStatus: fiber.StatusBadRequest},
		{name: "negative xp", query: "?xp=-1", wantStatus: fiber.StatusBadRequest},
		{name: "not a number", query: "?xp=lots", wantStatus: fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, env.app, "GET", "/api/levels/progress"+tt.query, nil, nil)
			if status != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, status)
			}
			if tt.wantStatus == fiber.StatusOK && body["level"] != tt.wantLevel {
				t.Errorf("Expected level %v, got %v", tt.wantLevel, body["level"])
			}
		})
	}
}

func TestLevelHandler_Analyze(t *testing.T) {
	env := setupTestApp(t, nil)

	status, body := doJSON(t, env.app, "POST", "/api/analyze", map[string]interface{}{
		"content": "I feel sad and worried",
		"level":   8,
	}, nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d (%v)", status, body)
	}
	if body["xp_gained"] != float64(1) {
		t.Errorf("Expected 1 XP, got %v", body["xp_gained"])
	}
	result, _ := body["analysis"].(map[string]interface{})
	if result["sentiment"] != string(models.SentimentNegative) {
		t.Errorf("Expected negative sentiment, got %v", result["sentiment"])
	}

	status, _ = doJSON(t, env.app, "POST", "/api/analyze", map[string]interface{}{"content": ""}, nil)
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected status 400 for empty content, got %d", status)
	}
}

func TestExportHandler_CSVHeaders(t *testing.T) {
	env := setupTestApp(t, nil)
	seedTestRelationship(t, env.store, "user-1", 0)

	resp, err := env.app.Test(httptest.NewRequest("GET", "/api/export/relationships.csv", nil), -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Errorf("Expected CSV content type, got %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "attachment") || !strings.Contains(cd, ".csv") {
		t.Errorf("Expected CSV attachment, got %q", cd)
	}
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), `"Sarah"`) {
		t.Errorf("Expected quoted relationship name in export, got %s", raw)
	}
}

func TestDashboardHandler_Stats(t *testing.T) {
	env := setupTestApp(t, nil)
	seedTestRelationship(t, env.store, "user-1", 0)
	seedTestRelationship(t, env.store, "user-2", 0)

	status, body := doJSON(t, env.app, "GET", "/api/dashboard", nil, nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d", status)
	}
	if body["total_relationships"] != float64(1) {
		t.Errorf("Expected 1 relationship, got %v", body["total_relationships"])
	}
}

func TestAdminHandler_Jobs(t *testing.T) {
	env := setupTestApp(t, nil)
	admin := map[string]string{"X-Test-Role": "admin"}

	tests := []struct {
		name       string
		method     string
		path       string
		headers    map[string]string
		wantStatus int
	}{
		{name: "non-admin rejected", method: "GET", path: "/api/admin/jobs", wantStatus: fiber.StatusForbidden},
		{name: "admin role lists jobs", method: "GET", path: "/api/admin/jobs", headers: admin, wantStatus: fiber.StatusOK},
		{name: "configured admin id", method: "GET", path: "/api/admin/jobs", headers: map[string]string{"X-Test-User": "ops-user"}, wantStatus: fiber.StatusOK},
		{name: "run known job", method: "POST", path: "/api/admin/jobs/" + jobs.QuestExpiryJobName + "/run", headers: admin, wantStatus: fiber.StatusOK},
		{name: "run unknown job", method: "POST", path: "/api/admin/jobs/nope/run", headers: admin, wantStatus: fiber.StatusNotFound},
		{name: "failing job", method: "POST", path: "/api/admin/jobs/broken/run", headers: admin, wantStatus: fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, env.app, tt.method, tt.path, nil, tt.headers)
			if status != tt.wantStatus {
				t.Errorf("Expected status %d, got %d (%v)", tt.wantStatus, status, body)
			}
		})
	}

	if len(env.jobs.ran) != 1 {
		t.Errorf("Expected the quest expiry job to run once, got %d", len(env.jobs.ran))
	}
}

func TestLocalAuthHandler_RegisterLoginRefresh(t *testing.T) {
	jwtAuth, err := auth.NewLocalJWTAuth("handler-test-secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("Failed to create JWT auth: %v", err)
	}
	userService := services.NewUserService(store.NewMemoryStore(), jwtAuth)
	handler := NewLocalAuthHandler(userService, time.Hour)

	app := fiber.New()
	app.Post("/api/auth/register", handler.Register)
	app.Post("/api/auth/login", handler.Login)
	app.Post("/api/auth/refresh", handler.RefreshToken)
	app.Get("/api/auth/status", handler.GetStatus)

	status, body := doJSON(t, app, "GET", "/api/auth/status", nil, nil)
	if status != fiber.StatusOK || body["has_users"] != false {
		t.Errorf("Expected no users yet, got %d %v", status, body)
	}

	status, body = doJSON(t, app, "POST", "/api/auth/register", map[string]string{
		"email":    "Ana@Example.com",
		"password": "correct-horse-battery",
		"name":     "Ana",
	}, nil)
	if status != fiber.StatusBadRequest {
		t.Errorf("Expected status 400 for a weak password, got %d (%v)", status, body)
	}

	status, body = doJSON(t, app, "POST", "/api/auth/register", map[string]string{
		"email":    "Ana@Example.com",
		"password": "Correct-Horse-9!",
		"name":     "Ana",
	}, nil)
	if status != fiber.StatusCreated {
		t.Fatalf("Expected status 201, got %d (%v)", status, body)
	}
	if body["access_token"] == "" || body["access_token"] == nil {
		t.Error("Expected access token")
	}

	status, _ = doJSON(t, app, "POST", "/api/auth/login", map[string]string{
		"email":    "ana@example.com",
		"password": "wrong-password",
	}, nil)
	if status != fiber.StatusUnauthorized {
		t.Errorf("Expected status 401 for wrong password, got %d", status)
	}

	status, body = doJSON(t, app, "POST", "/api/auth/login", map[string]string{
		"email":    "ana@example.com",
		"password": "Correct-Horse-9!",
	}, nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected status 200, got %d (%v)", status, body)
	}
	refreshToken, _ := body["refresh_token"].(string)

	status, body = doJSON(t, app, "POST", "/api/auth/refresh", map[string]string{"refresh_token": refreshToken}, nil)
	if status != fiber.StatusOK {
		t.Errorf("Expected status 200, got %d (%v)", status, body)
	}
	if _, ok := body["access_token"].(string); !ok {
		t.Error("Expected refreshed access token")
	}

	status, _ = doJSON(t, app, "POST", "/api/auth/refresh", map[string]string{"refresh_token": "garbage"}, nil)
	if status != fiber.StatusUnauthorized {
		t.Errorf("Expected status 401 for bad refresh token, got %d", status)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.Validationf("bad"), fiber.StatusBadRequest},
		{fmt.Errorf("%w: timeout", models.ErrAnalysisFailed), fiber.StatusBadGateway},
		{models.NotFoundf("relationship x"), fiber.StatusNotFound},
		{models.ErrInvalidTransition, fiber.StatusConflict},
		{models.ErrDuplicateMilestone, fiber.StatusConflict},
		{models.ErrConflict, fiber.StatusConflict},
		{models.ErrUnauthorized, fiber.StatusUnauthorized},
		{models.ErrPersistence, fiber.StatusInternalServerError},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := errorStatus(tt.err); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}
