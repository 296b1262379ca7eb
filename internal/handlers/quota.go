// quota.go exposes the usage ledger.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/quota"
)

// GetQuota returns today's estimated quota use.
// GET /api/v1/quota
func (h *Handler) GetQuota(c *gin.Context) {
	limit := h.DailyQuotaLimit
	if limit <= 0 {
		limit = quota.DefaultDailyLimit
	}
	fraction, used := h.Meter.DailyUsageFraction(c.Request.Context(), limit)

	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	c.JSON(http.StatusOK, models.QuotaResponse{
		Fraction:   fraction,
		UnitsUsed:  used,
		DailyLimit: limit,
		Remaining:  remaining,
	})
}

// AdminUsage returns the whole usage log.
// GET /api/v1/admin/usage?format=json|csv
func (h *Handler) AdminUsage(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "csv" {
		respondError(c, http.StatusBadRequest, "invalid_format", "Supported formats: json, csv")
		return
	}

	entries, err := h.Meter.Entries(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ledger_error", err.Error())
		return
	}

	if format == "csv" {
		c.Header("Content-Disposition", `attachment; filename="usage_log.csv"`)
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Status(http.StatusOK)
		if err := quota.WriteCSV(c.Writer, entries); err != nil {
			c.Error(err)
		}
		return
	}

	total := 0
	for _, e := range entries {
		total += e.Units
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries), "total_units": total})
}
