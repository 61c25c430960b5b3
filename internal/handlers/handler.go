// Package handlers contains HTTP handler functions for the API.
//
// Go Pattern: Handlers in Gin receive a *gin.Context which provides:
// - Request data (params, query, body, headers)
// - Response methods (JSON, String, Status)
// - Middleware data (c.Get/c.Set)
//
// We group related handlers into a struct (Handler) that holds shared
// dependencies.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/payflow/payflow-api/internal/config"
	"github.com/payflow/payflow-api/internal/database"
	"github.com/payflow/payflow-api/internal/models"
	"github.com/payflow/payflow-api/internal/services/links"
	"github.com/payflow/payflow-api/internal/services/mailer"
	"github.com/payflow/payflow-api/internal/services/pipeline"
	"github.com/payflow/payflow-api/internal/services/storage"
)

// Handler holds shared dependencies for all HTTP handlers.
// Go Pattern: Dependency injection via struct fields. Instead of global
// variables or service locators, we pass dependencies explicitly.
type Handler struct {
	DB        *database.DB
	Pipeline  *pipeline.Runner
	Links     *links.Service
	Mailer    *mailer.Service
	Storage   *storage.Service
	JWTSecret string
	Config    *config.Config
}

// NewHandler creates a new handler with all dependencies.
func NewHandler(db *database.DB, runner *pipeline.Runner, linksSvc *links.Service, mailerSvc *mailer.Service, store *storage.Service, cfg *config.Config) *Handler {
	return &Handler{
		DB:        db,
		Pipeline:  runner,
		Links:     linksSvc,
		Mailer:    mailerSvc,
		Storage:   store,
		JWTSecret: cfg.JWTSecret,
		Config:    cfg,
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
		Status:     "ok",
		Version:    "1.0.0",
		Database:   dbStatus,
		Processing: h.Pipeline.Processing(),
	})
}
