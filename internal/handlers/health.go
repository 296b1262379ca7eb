// Package handlers contains HTTP handler functions for the API.
//
// Go Pattern: Handlers in Gin receive a *gin.Context which provides:
// - Request data (params, query, body, headers)
// - Response methods (JSON, String, Status)
// - Middleware data (c.Get/c.Set)
//
// Unlike Ruby controllers, Go handlers are plain functions with no class inheritance.
// We group related handlers into a struct (Handler) that holds shared dependencies.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/placement-finder-api/internal/middleware"
	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/placement"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/quota"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/worker"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/ytapi"
)

// Version is reported by the health check.
var Version = "dev"

// Handler holds shared dependencies for all HTTP handlers.
// Go Pattern: Dependency injection via struct fields. Instead of global
// variables or service locators, we pass dependencies explicitly.
// This makes testing easy: just create a Handler with fake dependencies.
type Handler struct {
	Finder *placement.Finder
	Meter  *quota.Meter
	Worker *worker.Pool
	Jobs   *worker.JobStore
	NewAPI ytapi.Factory

	YouTubeAPIKey   string // used when a request brings no key of its own
	DefaultRegion   string
	DailyQuotaLimit int
	JWTSecret       string

	LedgerBackend string
	LedgerHealth  func(ctx context.Context) error // nil for the CSV ledger
	CacheBackend  string
}

// HealthCheck returns the API health status.
// GET /api/v1/health
func (h *Handler) HealthCheck(c *gin.Context) {
	ledger := h.LedgerBackend
	if h.LedgerHealth != nil {
		if err := h.LedgerHealth(c.Request.Context()); err != nil {
			ledger += " (unhealthy: " + err.Error() + ")"
		}
	}

	workers := 0
	if h.Worker != nil {
		workers = h.Worker.WorkerCount()
	}

	c.JSON(http.StatusOK, models.HealthResponse{
		Status:  "ok",
		Version: Version,
		Ledger:  ledger,
		Cache:   h.CacheBackend,
		Workers: workers,
	})
}

// api builds a Data API client for the request. The X-YouTube-API-Key
// header wins over the server's configured key.
func (h *Handler) api(c *gin.Context) (ytapi.API, error) {
	key := c.GetHeader(middleware.YouTubeKeyHeader)
	if key == "" {
		key = h.YouTubeAPIKey
	}
	if key == "" {
		return nil, ytapi.ErrMissingAPIKey
	}
	return h.NewAPI(c.Request.Context(), key)
}

// apiKey returns the credential a queued job should run with.
func (h *Handler) apiKey(c *gin.Context) string {
	if key := c.GetHeader(middleware.YouTubeKeyHeader); key != "" {
		return key
	}
	return h.YouTubeAPIKey
}

func (h *Handler) region(requested string) string {
	if requested != "" {
		return requested
	}
	if h.DefaultRegion != "" {
		return h.DefaultRegion
	}
	return models.DefaultRegion
}

// respondError writes the standard error body.
func respondError(c *gin.Context, code int, kind, message string) {
	c.JSON(code, models.ErrorResponse{Error: kind, Message: message, Code: code})
}

// respondClientError handles a failed client construction: a missing key is
// the caller's fault, anything else is ours.
func respondClientError(c *gin.Context, err error) {
	if errors.Is(err, ytapi.ErrMissingAPIKey) {
		respondError(c, http.StatusBadRequest, "missing_api_key",
			"No YouTube Data API key configured; send one in the "+middleware.YouTubeKeyHeader+" header")
		return
	}
	respondError(c, http.StatusInternalServerError, "client_error", err.Error())
}
