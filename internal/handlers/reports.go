// reports.go handles multi-year, multi-category report plans.
//
// A plan can take dozens of search pages, so it runs on the worker pool:
// create returns 202 with a job, the client polls it, then downloads the CSV.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/placement-finder-api/internal/middleware"
	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/placement"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/quota"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/worker"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/ytapi"
)

// CreateReport queues a report plan.
// POST /api/v1/reports
func (h *Handler) CreateReport(c *gin.Context) {
	var plan models.ReportPlan
	if err := c.ShouldBindJSON(&plan); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	plan.RegionCode = h.region(plan.RegionCode)
	if err := placement.ValidatePlan(plan); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_plan", err.Error())
		return
	}

	key := h.apiKey(c)
	if key == "" {
		respondClientError(c, ytapi.ErrMissingAPIKey)
		return
	}

	if h.Meter != nil {
		if err := quota.CheckBudget(c.Request.Context(), h.Meter, h.DailyQuotaLimit); err != nil {
			respondError(c, http.StatusTooManyRequests, "quota_exhausted", err.Error())
			return
		}
	}

	job, err := h.Worker.Enqueue(middleware.GetActorID(c), key, placement.NormalizePlan(plan))
	if err != nil {
		if errors.Is(err, worker.ErrQueueFull) {
			respondError(c, http.StatusServiceUnavailable, "queue_full", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "queue_error", err.Error())
		return
	}
	c.JSON(http.StatusAccepted, job)
}

// GetReport returns a report job's status.
// GET /api/v1/reports/:id
func (h *Handler) GetReport(c *gin.Context) {
	job, ok := h.ownJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, job)
}

// DownloadReport streams a finished report's CSV.
// GET /api/v1/reports/:id/download
//
// A failed plan that still wrote rows can be downloaded too; the file holds
// the batches that ran before the failure.
func (h *Handler) DownloadReport(c *gin.Context) {
	job, ok := h.ownJob(c)
	if !ok {
		return
	}
	if job.FilePath == "" {
		respondError(c, http.StatusNotFound, "not_ready",
			fmt.Sprintf("Report has no file (status: %s)", job.Status))
		return
	}
	c.FileAttachment(job.FilePath, reportFilename(job.Plan))
}

// ownJob loads a job and hides other actors' jobs behind a 404.
func (h *Handler) ownJob(c *gin.Context) (models.ReportJob, bool) {
	job, found := h.Jobs.Get(c.Param("id"))
	if !found || job.ActorID != middleware.GetActorID(c) {
		respondError(c, http.StatusNotFound, "not_found", "Report not found")
		return models.ReportJob{}, false
	}
	return job, true
}

// reportFilename prefers the plan's own filename.
func reportFilename(plan models.ReportPlan) string {
	name := sanitizeFilename(strings.TrimSuffix(plan.Filename, ".csv"))
	if name == "" {
		query := strings.ReplaceAll(sanitizeFilename(plan.Query), " ", "_")
		name = fmt.Sprintf("Youtube_%s_combined_categories_report", query)
	}
	return name + ".csv"
}
