package api

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/ideaforge-api/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/ideaforge-api/internal/api/middleware"
	"github.com/Conceptual-Machines/ideaforge-api/internal/auth"
	"github.com/Conceptual-Machines/ideaforge-api/internal/config"
	"github.com/Conceptual-Machines/ideaforge-api/internal/database"
	"github.com/Conceptual-Machines/ideaforge-api/internal/generation"
	"github.com/Conceptual-Machines/ideaforge-api/internal/logger"
	"github.com/Conceptual-Machines/ideaforge-api/internal/metrics"
	"github.com/Conceptual-Machines/ideaforge-api/internal/middleware"
	"github.com/Conceptual-Machines/ideaforge-api/internal/services"
	webhandlers "github.com/Conceptual-Machines/ideaforge-api/internal/web/handlers"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	DB        *gorm.DB
	Config    *config.Config
	Version   string
	Generator handlers.Generator
	Recorder  *metrics.Recorder // optional

	// Email overrides the SES-backed service, mainly for tests.
	Email *services.EmailService
}

func SetupRouter(deps Deps) (*gin.Engine, error) {
	db, cfg := deps.DB, deps.Config

	if cfg.JWTSecret == "" && !cfg.IsDemoMode() {
		return nil, errors.New("JWT_SECRET is required unless AUTH_MODE=none")
	}
	issuer := auth.NewTokenIssuer(cfg.JWTSecret)

	var (
		requestRecorder apimiddleware.RequestRecorder
		stats           handlers.GenerationStats
	)
	if deps.Recorder != nil {
		requestRecorder = deps.Recorder
		stats = deps.Recorder
	}

	emailService := deps.Email
	if emailService == nil {
		emailService = services.NewEmailService(cfg)
	}
	creditsService := services.NewCreditsService(db)
	workspaceService := services.NewWorkspaceService(db)
	demoService := services.NewDemoRequestService(db, emailService)

	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())
	router.Use(apimiddleware.SentryMiddleware())
	router.Use(apimiddleware.RequestTracking(requestRecorder))
	router.Use(apimiddleware.CORS(apimiddleware.ParseOrigins(cfg.CORSOrigins)))
	router.Use(apimiddleware.Compression())

	if cfg.IsDemoMode() {
		demoUser, err := database.EnsureDemoUser(db)
		if err != nil {
			return nil, fmt.Errorf("demo mode: %w", err)
		}
		logger.Warn("AUTH_MODE=none: every request runs as the demo user", logger.Fields{"user_id": demoUser.ID})
		router.Use(middleware.DemoUser(demoUser))
	}

	requireAuth := middleware.JWTAuth(db, issuer)
	optionalAuth := middleware.OptionalJWTAuth(db, issuer)

	healthHandler := handlers.NewHealthHandler(db, cfg)
	router.GET("/health", healthHandler.HealthCheck)

	metricsHandler := handlers.NewMetricsHandler(deps.Version, stats)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	// Web pages
	webHandler := webhandlers.NewWebHandler(cfg, creditsService, workspaceService)
	router.GET("/", optionalAuth, webHandler.Home)
	router.GET("/pricing", optionalAuth, webHandler.Pricing)
	router.GET("/login", optionalAuth, webHandler.Login)
	router.GET("/dashboard", optionalAuth, webHandler.Dashboard)

	demoHandler := handlers.NewDemoRequestHandler(demoService)
	router.POST("/api/demo-requests", demoHandler.Submit)

	// Auth routes (public)
	authRoutes := router.Group("/api/auth")
	{
		authHandler := handlers.NewAuthHandler(db, cfg, issuer, creditsService, emailService)
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/logout", authHandler.Logout)
		authRoutes.POST("/refresh", authHandler.Refresh)

		oauthHandler := handlers.NewOAuthHandler(db, cfg, issuer, creditsService)
		authRoutes.GET("/:provider", oauthHandler.BeginAuth)
		authRoutes.GET("/:provider/callback", oauthHandler.Callback)
	}

	// Protected API routes v1 (require JWT)
	v1 := router.Group("/api/v1")
	v1.Use(requireAuth)
	{
		generationHandler := handlers.NewGenerationHandler(deps.Generator, creditsService)
		for _, op := range generation.Operations {
			v1.POST("/generate/"+op.Alias(), generationHandler.Handle(op))
		}

		workspaceHandler := handlers.NewWorkspaceHandler(workspaceService)
		v1.GET("/workspace", workspaceHandler.GetWorkspace)
		v1.POST("/ideas", workspaceHandler.SaveIdea)
		v1.GET("/ideas/matrix", workspaceHandler.IdeaMatrix)
		v1.DELETE("/ideas/:id", workspaceHandler.RemoveIdea)
		v1.GET("/projects", workspaceHandler.ListProjects)
		v1.POST("/projects", workspaceHandler.CreateProject)
		v1.PATCH("/projects/:id/stage", workspaceHandler.MoveProject)
		v1.PUT("/projects/:id/strategy", workspaceHandler.UpdateStrategy)
		v1.POST("/projects/:id/attachments", workspaceHandler.AttachResult)
		v1.DELETE("/projects/:id", workspaceHandler.DeleteProject)

		userHandler := handlers.NewUserHandler(creditsService)
		v1.GET("/me", userHandler.GetProfile)
		v1.GET("/credits", userHandler.GetCredits)
		v1.GET("/usage/stats", userHandler.GetUsageStats)
		v1.GET("/usage/history", userHandler.GetUsageHistory)
	}

	// Admin API routes (admin only)
	admin := router.Group("/api/admin")
	admin.Use(requireAuth, middleware.AdminRequired())
	{
		adminHandler := handlers.NewAdminHandler(db, workspaceService)
		admin.GET("/users", adminHandler.ListUsers)
		admin.GET("/users/:id", adminHandler.GetUserDetails)
		admin.PUT("/users/:id/role", adminHandler.UpdateUserRole)
		admin.PUT("/users/:id/toggle-active", adminHandler.ToggleUserActive)
		admin.PUT("/users/:id/credits", adminHandler.UpdateUserCredits)
		admin.DELETE("/users/:id", adminHandler.DeleteUser)
	}

	return router, nil
}
