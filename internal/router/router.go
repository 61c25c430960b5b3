// Package router sets up all HTTP routes for the API.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/payflow/payflow-api/internal/config"
	"github.com/payflow/payflow-api/internal/database"
	"github.com/payflow/payflow-api/internal/handlers"
	"github.com/payflow/payflow-api/internal/middleware"
	"github.com/payflow/payflow-api/internal/services/links"
	"github.com/payflow/payflow-api/internal/services/mailer"
	"github.com/payflow/payflow-api/internal/services/pipeline"
	"github.com/payflow/payflow-api/internal/services/storage"
)

// Setup creates and configures the Gin router with all routes.
func Setup(db *database.DB, runner *pipeline.Runner, linksSvc *links.Service, mailerSvc *mailer.Service, store *storage.Service, cfg *config.Config) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	h := handlers.NewHandler(db, runner, linksSvc, mailerSvc, store, cfg)
	rateLimiter := middleware.NewRateLimiter(cfg.RedemptionRateLimit)

	// --- Public Routes (no auth required) ---
	r.GET("/api/v1/health", h.HealthCheck)
	r.POST("/api/v1/auth/login", h.Login)
	// Open only while no account exists; afterwards it requires a JWT.
	r.POST("/api/v1/auth/register", h.Register)

	// --- Redemption Routes — public, the token is the credential ---
	// Rate limited per client IP: tokens are unguessable but the matricule
	// space is small.
	dl := r.Group("/dl")
	dl.Use(rateLimiter.RateLimit())
	{
		dl.GET("/:token", h.ViewLink)
		dl.POST("/:token/verify", h.VerifyLink)
		dl.GET("/:token/file", h.FetchLink)
	}

	// --- Admin Routes (JWT required) ---
	admin := r.Group("/api/v1")
	admin.Use(middleware.JWTAuth(db, cfg.JWTSecret))
	{
		admin.GET("/auth/me", h.GetMe)

		// Treatment pipeline
		admin.POST("/treatments/upload", h.UploadTreatment)
		admin.GET("/treatments", h.ListTreatments)
		admin.GET("/treatments/:id", h.GetTreatment)

		// Employee directory
		admin.GET("/employees", h.ListEmployees)
		admin.GET("/employees/export.csv", h.ExportEmployeesCSV) // must be before :id
		admin.GET("/employees/:id", h.GetEmployee)
		admin.POST("/employees", h.CreateEmployee)
		admin.PATCH("/employees/:id", h.UpdateEmployee)
		admin.DELETE("/employees/:id", h.DeleteEmployee)

		// Download link administration
		admin.GET("/links", h.ListLinks)
		admin.POST("/links/:id/revoke", h.RevokeLink)
		admin.POST("/links/:id/resend", h.ResendLink)

		// Maintenance
		admin.GET("/maintenance/stats", h.MaintenanceStats)
		admin.POST("/maintenance/cleanup", h.MaintenanceCleanup)
	}

	return r
}
