// Package router sets up all HTTP routes for the API.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/learnsmart-api/internal/handlers"
	"github.com/Shimizu-Technology/learnsmart-api/internal/logger"
	"github.com/Shimizu-Technology/learnsmart-api/internal/middleware"
)

// Setup creates and configures the Gin router with all routes.
func Setup(h *handlers.Handler, rateLimiter *middleware.RateLimiter, jwtSecret string, allowedOrigins []string, log *logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(allowedOrigins))

	// --- Public Routes (no auth required) ---
	r.GET("/api/v1/health", h.HealthCheck)

	// API Documentation
	r.GET("/api/docs", h.ServeSwaggerUI)
	r.GET("/api/docs/openapi.yaml", h.ServeOpenAPISpec)

	// --- Rate-limited public routes (bucketed by client IP) ---
	public := r.Group("/api/v1")
	public.Use(rateLimiter.RateLimit())
	{
		public.POST("/sessions", h.CreateSession)

		// Stateless tools
		public.POST("/extract", h.ExtractText)
		public.POST("/summarize", h.Summarize)
		public.POST("/answer", h.AnswerQuestion)
	}

	// --- Session routes (bearer token from POST /sessions) ---
	sess := r.Group("/api/v1/session")
	sess.Use(middleware.SessionAuth(jwtSecret))
	sess.Use(rateLimiter.RateLimit())
	{
		sess.GET("", h.GetSession)

		sess.POST("/document", h.UploadDocument)
		sess.DELETE("/document", h.RemoveDocument)
		sess.GET("/summary", h.GetSummary)

		sess.POST("/questions", h.AskQuestion)
		sess.GET("/questions", h.ListQuestions)

		sess.GET("/export", h.ExportSession)
	}

	return r
}
