package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ledionnezirii/germanmaster-sub001/internal/config"
	"github.com/ledionnezirii/germanmaster-sub001/internal/handler"
	"github.com/ledionnezirii/germanmaster-sub001/internal/middleware"
	"github.com/ledionnezirii/germanmaster-sub001/internal/response"
	"github.com/ledionnezirii/germanmaster-sub001/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Assessment *handler.AssessmentHandler
	Admin      *handler.AdminHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/login", handlers.Auth.Login)
	}

	// ─── 2. Learner Group (JWT + Single Device) ────────────────────────
	learnerAPI := router.Group("/api/v1/learner")
	learnerAPI.Use(
		middleware.RequireLearnerJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		learnerAPI.POST("/auth/logout", handlers.Auth.Logout)
		learnerAPI.GET("/auth/me", handlers.Auth.Me)

		learnerAPI.GET("/levels", handlers.Assessment.GetAvailability)
		learnerAPI.GET("/assessments/:id", handlers.Assessment.GetPayload)

		learnerAPI.POST("/attempts", handlers.Assessment.StartAttempt)
		learnerAPI.GET("/attempts/active", handlers.Assessment.GetActiveAttempt)
		learnerAPI.POST("/attempts/submit", handlers.Assessment.Submit)
		learnerAPI.POST("/attempts/cancel", handlers.Assessment.Cancel)
		learnerAPI.POST("/attempts/ack", handlers.Assessment.Acknowledge)
	}

	// ─── 3. WebSocket Group (Learner WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireLearnerWSAuth(authService))
	{
		ws.GET("/attempt/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.GET("/assessments", handlers.Admin.ListAssessments)
		adminAPI.GET("/assessments/:id/attempts", handlers.Admin.ListAttempts)
		adminAPI.GET("/attempts/:session_id", handlers.Admin.GetAttempt)
	}

	return router
}
