// Package router sets up all HTTP routes for the API.
package router

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Shimizu-Technology/placement-finder-api/internal/handlers"
	"github.com/Shimizu-Technology/placement-finder-api/internal/middleware"
)

// ServiceName names the server in request spans.
const ServiceName = "placement-finder-api"

// Options are the router's own settings; everything else lives on the Handler.
type Options struct {
	JWTSecret      string
	AdminAPIKey    string
	AllowedOrigins []string
	RateLimit      int // requests per hour per actor
	OwnerActorID   string
}

// Setup creates and configures the Gin router with all routes.
func Setup(h *handlers.Handler, opts Options) *gin.Engine {
	r := gin.Default()
	r.Use(otelgin.Middleware(ServiceName))
	r.Use(middleware.CORS(opts.AllowedOrigins))

	rateLimiter := middleware.NewRateLimiter(opts.RateLimit, opts.OwnerActorID)

	// --- Public Routes (no auth required) ---
	r.GET("/api/v1/health", h.HealthCheck)
	r.POST("/api/v1/sessions", h.CreateSession)

	// API Documentation
	r.GET("/api/docs", h.ServeSwaggerUI)
	r.GET(handlers.OpenAPIPath, h.ServeOpenAPISpec)

	// --- Session routes (Bearer token, rate limited) ---
	protected := r.Group("/api/v1")
	protected.Use(middleware.SessionAuth(opts.JWTSecret))
	protected.Use(rateLimiter.RateLimit())
	{
		protected.GET("/categories", h.ListCategories)

		protected.POST("/searches", h.CreateSearch)
		protected.GET("/searches/:fingerprint", h.GetSearch)
		protected.GET("/searches/:fingerprint/export", h.ExportSearch)

		protected.POST("/analyses", h.CreateAnalysis)

		protected.POST("/reports", h.CreateReport)
		protected.GET("/reports/:id", h.GetReport)
		protected.GET("/reports/:id/download", h.DownloadReport)

		protected.GET("/quota", h.GetQuota)
	}

	// --- Admin routes ---
	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.AdminAuth(opts.AdminAPIKey))
	{
		admin.GET("/usage", h.AdminUsage)
	}

	return r
}
