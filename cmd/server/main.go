package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dytto/internal/analysis"
	"dytto/internal/config"
	"dytto/internal/handlers"
	"dytto/internal/jobs"
	"dytto/internal/logging"
	"dytto/internal/middleware"
	"dytto/internal/quests"
	"dytto/internal/services"
	"dytto/internal/store"
	"dytto/internal/utils"
	"dytto/pkg/auth"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Dytto Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Storage: %s)", cfg.Port, cfg.StorageDriver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to open %s storage: %v", cfg.StorageDriver, err)
	}
	defer st.Close(context.Background())

	dependencies := map[string]handlers.Pinger{"storage": st}

	// Redis is optional: it adds the per-relationship lock and cross-instance events
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		redisService, err = services.NewRedisService(cfg.RedisURL, cfg.LockTimeout)
		if err != nil {
			log.Printf("⚠️ Redis unavailable: %v (single-instance mode)", err)
			redisService = nil
		} else {
			defer redisService.Close()
			dependencies["redis"] = redisService
		}
	} else {
		log.Println("⚠️ REDIS_URL not set - relationship locks and cross-instance events disabled")
	}

	connManager := services.NewConnectionManager()
	eventBus := services.NewEventBus(connManager, redisService, uuid.New().String())
	if err := eventBus.Start(ctx); err != nil {
		log.Printf("⚠️ Failed to start event bus subscriber: %v", err)
	}

	analyzer := buildAnalyzer(ctx, cfg)
	rng := utils.NewRandomSource(cfg.RandomSeed)

	var metrics *services.Metrics
	if cfg.MetricsEnabled {
		metrics = services.InitMetrics(prometheus.DefaultRegisterer, connManager)
	}

	// Services
	relationshipService := services.NewRelationshipService(st)
	insightsService := services.NewInsightsService(st, cfg.InsightsCacheTTL)
	dashboardService := services.NewDashboardService(st)
	exportService := services.NewExportService(st)

	questService := services.NewQuestService(st)
	questService.SetEventPublisher(eventBus)
	questService.SetMetrics(metrics)

	progressionService := services.NewProgressionService(st, analyzer, quests.NewGenerator(rng))
	progressionService.SetEventPublisher(eventBus)
	progressionService.SetInsightsService(insightsService)
	progressionService.SetMetrics(metrics)
	if redisService != nil {
		progressionService.SetLocker(redisService)
	}

	var jwtAuth *auth.LocalJWTAuth
	if cfg.JWTSecret != "" {
		jwtAuth, err = auth.NewLocalJWTAuth(cfg.JWTSecret, cfg.JWTAccessTokenExpiry, cfg.JWTRefreshTokenExpiry)
		if err != nil {
			log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
		}
		log.Println("✅ Local JWT authentication enabled")
	} else {
		if cfg.IsProduction() {
			log.Fatal("❌ JWT_SECRET is required in production")
		}
		log.Println("⚠️ JWT_SECRET not set - requests run as the development user")
	}
	userService := services.NewUserService(st, jwtAuth)

	// Background jobs
	jobScheduler, err := jobs.NewJobScheduler()
	if err != nil {
		log.Fatalf("❌ Failed to create job scheduler: %v", err)
	}
	if err := jobScheduler.Register(jobs.QuestExpiryJobName, jobs.NewQuestExpiryJob(questService, cfg.QuestExpiryCron)); err != nil {
		log.Fatalf("❌ Failed to register quest expiry job: %v", err)
	}
	jobScheduler.Start()

	app := fiber.New(fiber.Config{
		AppName:      "Dytto v1.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	if cfg.MetricsEnabled {
		fiberProm := fiberprometheus.New("dytto")
		fiberProm.RegisterAt(app, "/metrics")
		app.Use(fiberProm.Middleware)
		log.Println("📊 Prometheus metrics endpoint enabled at /metrics")
	}

	// Fiber's CORS middleware does not allow AllowCredentials with wildcard origins
	allowCredentials := cfg.AllowedOrigins != "*"
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowCredentials,
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", cfg.AllowedOrigins)

	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Auth=%d/min, Interactions=%d/min, Export=%d/min, WS=%d/min",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.AuthMax,
		rateLimitConfig.InteractionMax,
		rateLimitConfig.ExportMax,
		rateLimitConfig.WebSocketMax,
	)
	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))

	// Handlers
	healthHandler := handlers.NewHealthHandler(connManager, dependencies)
	authHandler := handlers.NewLocalAuthHandler(userService, cfg.JWTRefreshTokenExpiry)
	relationshipHandler := handlers.NewRelationshipHandler(relationshipService, progressionService, questService, insightsService)
	questHandler := handlers.NewQuestHandler(questService)
	levelHandler := handlers.NewLevelHandler(progressionService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	exportHandler := handlers.NewExportHandler(exportService)
	adminHandler := handlers.NewAdminHandler(jobScheduler)
	eventsHandler := handlers.NewEventsWebSocketHandler(connManager, eventBus)

	app.Get("/health", healthHandler.Handle)

	// Public auth routes
	authLimiter := middleware.AuthRateLimiter(rateLimitConfig)
	authRoutes := app.Group("/api/auth")
	authRoutes.Get("/status", authHandler.GetStatus)
	authRoutes.Post("/register", authLimiter, authHandler.Register)
	authRoutes.Post("/login", authLimiter, authHandler.Login)
	authRoutes.Post("/refresh", authLimiter, authHandler.RefreshToken)

	authMiddleware := middleware.LocalAuthMiddleware(jwtAuth)
	authRoutes.Post("/logout", authMiddleware, authHandler.Logout)
	authRoutes.Get("/me", authMiddleware, authHandler.GetCurrentUser)

	// Activity feed; browsers pass the token as ?token=
	app.Get("/api/events",
		middleware.WebSocketRateLimiter(rateLimitConfig),
		eventsHandler.Upgrade,
		authMiddleware,
		websocket.New(eventsHandler.Handle, websocket.Config{Origins: cfg.Origins()}),
	)

	api := app.Group("/api", authMiddleware)
	interactionLimiter := middleware.InteractionRateLimiter(rateLimitConfig)
	exportLimiter := middleware.ExportRateLimiter(rateLimitConfig)

	api.Get("/levels", levelHandler.Table)
	api.Get("/levels/progress", levelHandler.Progress)
	api.Post("/analyze", interactionLimiter, levelHandler.Analyze)

	api.Get("/relationships", relationshipHandler.List)
	api.Post("/relationships", relationshipHandler.Create)
	api.Get("/relationships/:id", relationshipHandler.Get)
	api.Put("/relationships/:id", relationshipHandler.Update)
	api.Delete("/relationships/:id", relationshipHandler.Delete)
	api.Get("/relationships/:id/overview", relationshipHandler.Overview)
	api.Get("/relationships/:id/interactions", relationshipHandler.ListInteractions)
	api.Post("/relationships/:id/interactions", interactionLimiter, relationshipHandler.LogInteraction)
	api.Get("/relationships/:id/level-history", relationshipHandler.LevelHistory)
	api.Get("/relationships/:id/quests", relationshipHandler.ListQuests)
	api.Post("/relationships/:id/quests", relationshipHandler.GenerateQuest)
	api.Get("/relationships/:id/insights", relationshipHandler.Insights)
	api.Get("/relationships/:id/report", exportLimiter, exportHandler.Report)
	api.Get("/relationships/:id/starters", relationshipHandler.ConversationStarters)

	api.Post("/interactions", interactionLimiter, relationshipHandler.CreateInteraction)
	api.Get("/interactions/:id", relationshipHandler.GetInteraction)

	api.Get("/quests", questHandler.List)
	api.Post("/quests", questHandler.Create)
	api.Get("/quests/templates", questHandler.Templates)
	api.Get("/quests/:id", questHandler.Get)
	api.Post("/quests/:id/complete", questHandler.Complete)

	api.Get("/dashboard", dashboardHandler.Stats)

	api.Get("/export/relationships.xlsx", exportLimiter, exportHandler.XLSX)
	api.Get("/export/relationships.csv", exportLimiter, exportHandler.CSV)
	api.Get("/export/data.json", exportLimiter, exportHandler.JSON)
	api.Post("/import", exportLimiter, exportHandler.Import)

	admin := api.Group("/admin", middleware.AdminMiddleware(cfg.AdminUserIDs))
	admin.Get("/jobs", adminHandler.ListJobs)
	admin.Post("/jobs/:name/run", adminHandler.RunJob)

	log.Printf("✅ Server ready on port %s", cfg.Port)
	log.Printf("🔌 Activity feed: ws://localhost:%s/api/events", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("🕐 Background jobs: quest expiry (%s)", cfg.QuestExpiryCron)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		jobScheduler.Stop()

		if err := eventBus.Stop(); err != nil {
			log.Printf("⚠️ Error stopping event bus: %v", err)
		}
		cancel()

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// buildAnalyzer returns the remote analyzer when ANALYZER_URL is set,
// otherwise the keyword heuristic with an optionally hot-reloaded lexicon
func buildAnalyzer(ctx context.Context, cfg *config.Config) analysis.Analyzer {
	if cfg.AnalyzerURL != "" {
		log.Printf("🧠 Using remote analyzer at %s", cfg.AnalyzerURL)
		return analysis.NewRemoteAnalyzer(analysis.RemoteConfig{
			BaseURL:    cfg.AnalyzerURL,
			APIKey:     cfg.AnalyzerAPIKey,
			Timeout:    cfg.AnalyzerTimeout,
			RatePerSec: cfg.AnalyzerRatePerSec,
			CacheTTL:   cfg.InsightsCacheTTL,
		})
	}

	lexicons := analysis.NewLexiconStore(nil)
	if cfg.LexiconPath != "" {
		if err := lexicons.Reload(cfg.LexiconPath); err != nil {
			log.Printf("⚠️ Failed to load lexicon %s: %v (using defaults)", cfg.LexiconPath, err)
		} else if err := lexicons.Watch(ctx, cfg.LexiconPath); err != nil {
			log.Printf("⚠️ Lexicon hot-reload disabled: %v", err)
		}
	}
	log.Println("🧠 Using keyword heuristic analyzer")
	return analysis.NewHeuristic(lexicons, utils.NewRandomSource(cfg.RandomSeed))
}
