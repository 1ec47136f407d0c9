// Package handlers contains HTTP handler functions for the API.
//
// Go Pattern: Handlers in Gin receive a *gin.Context which provides:
// - Request data (params, query, body, headers)
// - Response methods (JSON, String, Status)
// - Middleware data (c.Get/c.Set)
//
// Go handlers are plain functions — no class inheritance. We group related
// handlers into a struct (Handler) that holds shared dependencies.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/learnsmart-api/internal/database"
	"github.com/Shimizu-Technology/learnsmart-api/internal/logger"
	"github.com/Shimizu-Technology/learnsmart-api/internal/models"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/answer"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/extract"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/session"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/summary"
	"github.com/Shimizu-Technology/learnsmart-api/internal/services/worker"
)

// Version is reported by the health check.
const Version = "1.0.0"

// Handler holds shared dependencies for all HTTP handlers.
// Go Pattern: Dependency injection via struct fields. Instead of global
// variables or service locators, we pass dependencies explicitly.
// This makes testing easy — just create a Handler with test dependencies.
type Handler struct {
	DB        *database.DB
	Worker    *worker.Pool
	Sessions  *session.Service
	Extractor *extract.Extractor
	Summary   *summary.Service
	Answer    *answer.Service

	jwtSecret      string
	maxUploadBytes int64
	aiMode         string
	log            *logger.Logger
}

// Deps bundles what NewHandler needs.
type Deps struct {
	DB        *database.DB
	Worker    *worker.Pool
	Sessions  *session.Service
	Extractor *extract.Extractor
	Summary   *summary.Service
	Answer    *answer.Service

	JWTSecret      string
	MaxUploadBytes int64
	AIMode         string
	Log            *logger.Logger
}

// NewHandler creates a new handler with all dependencies.
func NewHandler(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		DB:             d.DB,
		Worker:         d.Worker,
		Sessions:       d.Sessions,
		Extractor:      d.Extractor,
		Summary:        d.Summary,
		Answer:         d.Answer,
		jwtSecret:      d.JWTSecret,
		maxUploadBytes: d.MaxUploadBytes,
		aiMode:         d.AIMode,
		log:            log.With("component", "http"),
	}
}

// HealthCheck returns the API health status.
// GET /api/v1/health
func (h *Handler) HealthCheck(c *gin.Context) {
	// Check database connectivity
	dbStatus := "healthy"
	if err := h.DB.HealthCheck(c.Request.Context()); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	c.JSON(http.StatusOK, models.HealthResponse{
		Status:      "ok",
		Version:     Version,
		Database:    dbStatus,
		Workers:     h.Worker.WorkerCount(),
		QueueSize:   h.Worker.QueueSize(),
		AIMode:      h.aiMode,
		PDFStrategy: h.Extractor.Strategy(),
	})
}
