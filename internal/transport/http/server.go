package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/sideseat/sideseat-core/internal/config"
	"github.com/sideseat/sideseat-core/internal/core/domain/auth"
	"github.com/sideseat/sideseat-core/internal/transport/http/handlers"
	"github.com/sideseat/sideseat-core/internal/transport/http/middleware"

	"github.com/redis/go-redis/v9"
)

// Server represents the HTTP server
type Server struct {
	config              *config.Config
	logger              *logrus.Logger
	server              *http.Server
	handlers            *handlers.Handlers
	engine              *gin.Engine
	authMiddleware      *middleware.AuthMiddleware
	sdkAuthMiddleware   *middleware.SDKAuthMiddleware
	rateLimitMiddleware *middleware.RateLimitMiddleware
	csrfMiddleware      *middleware.CSRFMiddleware
}

// NewServer creates a new HTTP server instance
func NewServer(
	cfg *config.Config,
	logger *logrus.Logger,
	handlers *handlers.Handlers,
	jwtService auth.JWTService,
	blacklistedTokens auth.BlacklistedTokenService,
	orgMemberService auth.OrganizationMemberService,
	apiKeyService auth.APIKeyService,
	redisClient *redis.Client,
) *Server {
	// Create stateless auth middleware
	authMiddleware := middleware.NewAuthMiddleware(
		jwtService,
		blacklistedTokens,
		orgMemberService,
		logger,
	)

	// Create SDK auth middleware for API key authentication
	sdkAuthMiddleware := middleware.NewSDKAuthMiddleware(
		apiKeyService,
		logger,
	)

	// Create rate limiting middleware
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(
		redisClient,
		&cfg.Auth,
		logger,
	)

	// Create CSRF validation middleware
	csrfMiddleware := middleware.NewCSRFMiddleware(logger)

	return &Server{
		config:              cfg,
		logger:              logger,
		handlers:            handlers,
		authMiddleware:      authMiddleware,
		sdkAuthMiddleware:   sdkAuthMiddleware,
		rateLimitMiddleware: rateLimitMiddleware,
		csrfMiddleware:      csrfMiddleware,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	// Setup Gin mode
	if s.config.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Create Gin engine
	s.engine = gin.New()

	// Setup CORS with security validation
	corsConfig := cors.DefaultConfig()

	// Validate wildcard incompatibility with credentials
	if len(s.config.Server.CORSAllowedOrigins) == 1 && s.config.Server.CORSAllowedOrigins[0] == "*" {
		// CRITICAL: Wildcard incompatible with AllowCredentials (cookies won't work)
		s.logger.Fatal("CORS misconfiguration: cannot use wildcard (*) origins with AllowCredentials (httpOnly cookies require specific origins). " +
			"Set specific origins in CORS_ALLOWED_ORIGINS environment variable.")
		return errors.New("invalid CORS configuration: wildcard origins incompatible with credentials")
	}

	// Configure specific origins (only reached if not wildcard)
	corsConfig.AllowOrigins = s.config.Server.CORSAllowedOrigins

	// Validate at least one origin is configured
	if len(s.config.Server.CORSAllowedOrigins) == 0 {
		s.logger.Fatal("CORS misconfiguration: AllowCredentials requires specific AllowedOrigins. " +
			"Set CORS_ALLOWED_ORIGINS environment variable.")
		return errors.New("invalid CORS configuration: no origins specified")
	}

	corsConfig.AllowMethods = s.config.Server.CORSAllowedMethods

	// Ensure X-CSRF-Token is always allowed (required for CSRF protection)
	allowedHeaders := s.config.Server.CORSAllowedHeaders
	corsConfig.AllowHeaders = append(allowedHeaders, "X-CSRF-Token")

	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 5 * time.Minute
	s.engine.Use(cors.New(corsConfig))

	// Setup routes
	s.setupRoutes()

	// Create HTTP server
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.engine,
		ReadTimeout:  time.Duration(s.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.config.Server.IdleTimeout) * time.Second,
	}

	// Start server (blocking - signal handling done by cmd/server/main.go)
	s.logger.WithField("port", s.config.Server.Port).Info("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Global middleware
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger(s.logger))
	s.engine.Use(middleware.Recovery(s.logger))
	s.engine.Use(middleware.Metrics())

	// Health check (no auth required, support both GET and HEAD for Docker)
	s.engine.GET("/health", s.handlers.Health.Check)
	s.engine.HEAD("/health", s.handlers.Health.Check)
	s.engine.GET("/health/ready", s.handlers.Health.Ready)
	s.engine.HEAD("/health/ready", s.handlers.Health.Ready)
	s.engine.GET("/health/live", s.handlers.Health.Live)
	s.engine.HEAD("/health/live", s.handlers.Health.Live)

	// Metrics endpoint (restricted)
	s.engine.GET("/metrics", s.handlers.Metrics.Handler)

	// Swagger documentation
	if s.config.Server.Environment == "development" {
		s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
	}

	// SDK routes (/v1) - API Key authentication for SDKs
	sdk := s.engine.Group("/v1")

	// Public SDK auth routes (no authentication required)
	// Protected SDK routes (require API key authentication)
	sdk.Use(s.sdkAuthMiddleware.RequireSDKAuth())
	sdk.Use(s.rateLimitMiddleware.RateLimitByAPIKey())
	s.setupSDKRoutes(sdk)

	// OTLP-native routes (/otel/:projectId/v1) - the project id travels in
	// the URL rather than being derived solely from the API key, matching
	// how OpenTelemetry Collector exporters are typically configured against
	// a multi-tenant backend. Still requires a valid API key; the key's own
	// project is only used as a fallback when a route has no URL segment.
	otel := s.engine.Group("/otel/:projectId/v1")
	otel.Use(s.sdkAuthMiddleware.RequireSDKAuth())
	otel.Use(s.rateLimitMiddleware.RateLimitByAPIKey())
	s.setupOTLPRoutes(otel)

	// Dashboard routes (/api/v1) - Bearer token authentication for dashboard
	dashboard := s.engine.Group("/api/v1")
	s.setupDashboardRoutes(dashboard)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handlers.WebSocket.Handle)
}

// setupDashboardRoutes configures dashboard routes (/api/v1/*)
func (s *Server) setupDashboardRoutes(router *gin.RouterGroup) {
	// Apply IP-based rate limiting to all API routes
	router.Use(s.rateLimitMiddleware.RateLimitByIP())

	// Auth routes (no auth required but rate limited)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/login", s.handlers.Auth.Login)
		authRoutes.POST("/signup", s.handlers.Auth.Signup)
		authRoutes.POST("/refresh", s.handlers.Auth.RefreshToken)
		authRoutes.POST("/forgot-password", s.handlers.Auth.ForgotPassword)
		authRoutes.POST("/reset-password", s.handlers.Auth.ResetPassword)

		// OAuth routes (Google/GitHub signup)
		authRoutes.GET("/google", s.handlers.Auth.InitiateGoogleOAuth)
		authRoutes.GET("/google/callback", s.handlers.Auth.GoogleCallback)
		authRoutes.GET("/github", s.handlers.Auth.InitiateGitHubOAuth)
		authRoutes.GET("/github/callback", s.handlers.Auth.GitHubCallback)
	}

	// Public invitation validation (no auth required, rate limited)
	router.GET("/invitations/validate/:token", s.handlers.Organization.ValidateInvitationToken)

	// Protected routes (require JWT auth + CSRF validation)
	protected := router.Group("")
	protected.Use(s.authMiddleware.RequireAuth())          // Step 1: Validate JWT from cookie
	protected.Use(s.csrfMiddleware.ValidateCSRF())         // Step 2: Validate CSRF for mutations
	protected.Use(s.rateLimitMiddleware.RateLimitByUser()) // Step 3: User-based rate limiting

	// User routes
	users := protected.Group("/users")
	{
		users.GET("/me", s.handlers.User.GetProfile)
		users.PUT("/me", s.handlers.User.UpdateProfile)
		users.GET("/me/preferences", s.handlers.User.GetPreferences)
		users.PUT("/me/preferences", s.handlers.User.UpdatePreferences)
	}

	// Onboarding routes
	onboarding := protected.Group("/onboarding")
	{
		onboarding.GET("/questions", s.handlers.Onboarding.GetQuestions)
		onboarding.POST("/responses", s.handlers.Onboarding.SubmitResponses)
		onboarding.POST("/skip", s.handlers.Onboarding.SkipQuestion)
		onboarding.POST("/complete", s.handlers.Onboarding.CompleteOnboarding)
		onboarding.GET("/status", s.handlers.Onboarding.GetStatus)
	}

	// Auth session management routes (protected)
	authSessions := protected.Group("/auth")
	{
		authSessions.POST("/logout", s.handlers.Auth.Logout)
		authSessions.POST("/change-password", s.handlers.Auth.ChangePassword)
	}

	// Organization routes with clean RBAC permissions
	orgs := protected.Group("/organizations")
	{
		orgs.GET("", s.handlers.Organization.List) // No org context required for listing user's orgs
		orgs.POST("", s.handlers.Organization.Create)
		orgs.GET("/:orgId", s.handlers.Organization.Get)
		orgs.PATCH("/:orgId", s.authMiddleware.RequirePermission("organizations:write"), s.handlers.Organization.Update)
		orgs.DELETE("/:orgId", s.authMiddleware.RequirePermission("organizations:delete"), s.handlers.Organization.Delete)
		orgs.GET("/:orgId/members", s.authMiddleware.RequirePermission("members:read"), s.handlers.Organization.ListMembers)
		orgs.POST("/:orgId/members", s.authMiddleware.RequirePermission("members:invite"), s.handlers.Organization.InviteMember)
		orgs.DELETE("/:orgId/members/:userId", s.authMiddleware.RequirePermission("members:remove"), s.handlers.Organization.RemoveMember)

		// Organization settings routes with permission middleware
		orgs.GET("/:orgId/settings", s.authMiddleware.RequirePermission("settings:read"), s.handlers.Organization.GetSettings)
		orgs.POST("/:orgId/settings", s.authMiddleware.RequirePermission("settings:write"), s.handlers.Organization.CreateSetting)
		orgs.GET("/:orgId/settings/:key", s.authMiddleware.RequirePermission("settings:read"), s.handlers.Organization.GetSetting)
		orgs.PUT("/:orgId/settings/:key", s.authMiddleware.RequirePermission("settings:write"), s.handlers.Organization.UpdateSetting)
		orgs.DELETE("/:orgId/settings/:key", s.authMiddleware.RequirePermission("settings:write"), s.handlers.Organization.DeleteSetting)
		orgs.POST("/:orgId/settings/bulk", s.authMiddleware.RequirePermission("settings:write"), s.handlers.Organization.BulkCreateSettings)
		orgs.GET("/:orgId/settings/export", s.authMiddleware.RequirePermission("settings:export"), s.handlers.Organization.ExportSettings)
		orgs.POST("/:orgId/settings/import", s.authMiddleware.RequireAllPermissions([]string{"settings:write", "settings:import"}), s.handlers.Organization.ImportSettings)
		orgs.POST("/:orgId/settings/reset", s.authMiddleware.RequireAnyPermission([]string{"settings:admin", "organizations:admin"}), s.handlers.Organization.ResetToDefaults)
	}

	// Project routes (top-level with optional org filtering)
	projects := protected.Group("/projects")
	{
		projects.GET("", s.handlers.Project.List) // Supports ?organization_id= filter
		projects.POST("", s.authMiddleware.RequirePermission("projects:write"), s.handlers.Project.Create)
		projects.GET("/:projectId", s.authMiddleware.RequirePermission("projects:read"), s.handlers.Project.Get)
		projects.PUT("/:projectId", s.authMiddleware.RequirePermission("projects:write"), s.handlers.Project.Update)
		projects.DELETE("/:projectId", s.authMiddleware.RequirePermission("projects:delete"), s.handlers.Project.Delete)
		projects.GET("/:projectId/environments", s.authMiddleware.RequirePermission("projects:read"), s.handlers.Project.ListEnvironments)

		// API key routes nested under projects (double-nesting only)
		projects.GET("/:projectId/api-keys", s.authMiddleware.RequirePermission("api-keys:read"), s.handlers.APIKey.List)
		projects.POST("/:projectId/api-keys", s.authMiddleware.RequirePermission("api-keys:create"), s.handlers.APIKey.Create)
		projects.DELETE("/:projectId/api-keys/:keyId", s.authMiddleware.RequirePermission("api-keys:delete"), s.handlers.APIKey.Delete)

		// SDK key-pair routes nested under projects
		projects.GET("/:projectId/key-pairs", s.authMiddleware.RequirePermission("api-keys:read"), s.handlers.KeyPair.List)
		projects.POST("/:projectId/key-pairs", s.authMiddleware.RequirePermission("api-keys:create"), s.handlers.KeyPair.Create)
		projects.DELETE("/:projectId/key-pairs/:keyPairId", s.authMiddleware.RequirePermission("api-keys:delete"), s.handlers.KeyPair.Delete)

		// Content-addressed file references nested under projects
		projects.GET("/:projectId/files", s.authMiddleware.RequirePermission("projects:read"), s.handlers.FileStore.List)
	}

	// Blob content-addressed file store
	files := protected.Group("/files")
	{
		files.POST("", s.handlers.FileStore.Upload)
		files.GET("/:fileId", s.handlers.FileStore.Get)
		files.GET("/:fileId/content", s.handlers.FileStore.Download)
		files.DELETE("/:fileId", s.handlers.FileStore.Delete)
	}

	// Traces routes - observability data
	traces := protected.Group("/traces")
	{
		// Read operations
		traces.GET("", s.handlers.Observability.ListTraces)
		traces.GET("/filter-options", s.handlers.Observability.GetTraceFilterOptions)
		traces.GET("/attributes", s.handlers.Observability.DiscoverAttributes)
		traces.GET("/:id", s.handlers.Observability.GetTrace)
		traces.GET("/:id/spans", s.handlers.Observability.GetTraceWithSpans)
		traces.GET("/:id/scores", s.handlers.Observability.GetTraceWithScores)
		// Write operations (corrections/enrichment via dashboard)
		traces.PUT("/:id/tags", s.handlers.Observability.UpdateTraceTags)
		traces.PUT("/:id/bookmark", s.handlers.Observability.UpdateTraceBookmark)
		traces.DELETE("/:id", s.handlers.Observability.DeleteTrace)
	}

	// Spans routes - observability data (ClickHouse)
	spans := protected.Group("/spans")
	{
		spans.GET("", s.handlers.Observability.ListSpans)
		spans.GET("/:id", s.handlers.Observability.GetSpan)
		spans.DELETE("/:id", s.handlers.Observability.DeleteSpan)
	}

	// Quality Scores routes - observability data (ClickHouse)
	scores := protected.Group("/scores")
	{
		// Read operations
		scores.GET("", s.handlers.Observability.ListScores)
		scores.GET("/:id", s.handlers.Observability.GetScore)
		// Write operations (corrections/enrichment via dashboard)
		scores.PUT("/:id", s.handlers.Observability.UpdateScore)
	}

	// Sessions routes - trace-derived observability view
	sessions := protected.Group("/sessions")
	{
		sessions.GET("", s.handlers.Observability.ListSessions)
	}

	// Saved filter presets for the traces/spans explorer
	filterPresets := protected.Group("/filter-presets")
	{
		filterPresets.GET("", s.handlers.Observability.ListFilterPresets)
		filterPresets.POST("", s.handlers.Observability.CreateFilterPreset)
		filterPresets.GET("/:id", s.handlers.Observability.GetFilterPreset)
		filterPresets.PUT("/:id", s.handlers.Observability.UpdateFilterPreset)
		filterPresets.DELETE("/:id", s.handlers.Observability.DeleteFilterPreset)
	}

	// Telemetry ingestion health/diagnostics (dashboard-facing)
	telemetry := protected.Group("/telemetry")
	{
		telemetry.GET("/health", s.handlers.Observability.GetTelemetryHealth)
		telemetry.GET("/metrics", s.handlers.Observability.GetTelemetryMetrics)
		telemetry.GET("/performance", s.handlers.Observability.GetTelemetryPerformanceStats)
	}

	// Logs routes
	logs := protected.Group("/logs")
	{
		logs.GET("/requests", s.handlers.Logs.ListRequests)
		logs.GET("/requests/:requestId", s.handlers.Logs.GetRequest)
		logs.GET("/export", s.handlers.Logs.Export)
	}
}

// setupSDKRoutes configures SDK routes (/v1/*)
func (s *Server) setupSDKRoutes(router *gin.RouterGroup) {
	// OTLP (OpenTelemetry Protocol) ingestion - legacy endpoints kept for
	// SDKs configured before the /otel/:projectId/v1 routes existed. The
	// project id here comes solely from the API key; prefer
	// /otel/:projectId/v1/traces for new integrations.
	// Supports: Protobuf + JSON formats, gzip compression
	router.POST("/traces", s.handlers.OTLP.HandleTraces)
	router.POST("/metrics", s.handlers.OTLPMetrics.HandleMetrics)
	router.POST("/logs", s.handlers.OTLPLogs.HandleLogs)

	// Legacy SDK event ingestion, kept for SDKs that predate OTLP support
	router.POST("/events", s.handlers.Observability.CreateEvent)

	// Filter-expression span queries for SDK-side debugging tools
	router.POST("/spans/query", s.handlers.SpanQuery.HandleQuery)
	router.POST("/spans/query/validate", s.handlers.SpanQuery.HandleValidate)

	// Reconstructed, provider-agnostic conversation feeds
	router.GET("/sessions/:session_id/messages", s.handlers.Messages.HandleGetMessages)
}

// setupOTLPRoutes configures the OTLP-native, URL-tenant routes
// (/otel/:projectId/v1/*). 100% OTLP spec compliant: Protobuf + JSON,
// gzip compression, Collector/SDK compatible.
func (s *Server) setupOTLPRoutes(router *gin.RouterGroup) {
	router.POST("/traces", s.handlers.OTLP.HandleTraces)
	router.POST("/metrics", s.handlers.OTLPMetrics.HandleMetrics)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
