// searches.go handles placement searches and the category map.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/placement-finder-api/internal/middleware"
	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/placement"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/quota"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/search"
)

// categoryItem is one entry of GET /api/v1/categories.
type categoryItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListCategories returns the region's video categories, sorted by id.
// GET /api/v1/categories?region=US
//
// An unreachable category endpoint yields an empty list, not an error:
// searches still work, rows just show "ID:<id>".
func (h *Handler) ListCategories(c *gin.Context) {
	api, err := h.api(c)
	if err != nil {
		respondClientError(c, err)
		return
	}

	region := h.region(c.Query("region"))
	names := h.Finder.Categories(c.Request.Context(), api, middleware.GetActorID(c), region)

	items := make([]categoryItem, 0, len(names))
	for id, name := range names {
		items = append(items, categoryItem{ID: id, Name: name})
	}
	sort.Slice(items, func(i, j int) bool {
		a, errA := strconv.Atoi(items[i].ID)
		b, errB := strconv.Atoi(items[j].ID)
		if errA == nil && errB == nil {
			return a < b
		}
		return items[i].ID < items[j].ID
	})

	c.JSON(http.StatusOK, gin.H{"region": region, "categories": items})
}

// CreateSearch runs a placement search.
// POST /api/v1/searches?preview=10
//
// Request body is a SearchFilter plus an optional "exact_phrase" flag.
// A search that failed part way still answers 200 with "warnings"; one that
// failed before producing anything answers 502.
func (h *Handler) CreateSearch(c *gin.Context) {
	var req models.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	filter := req.SearchFilter
	if req.ExactPhrase {
		filter.Query = placement.QuotePhrase(filter.Query)
	}
	filter.RegionCode = h.region(filter.RegionCode)
	if err := filter.Normalize().Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	preview, ok := previewLimit(c)
	if !ok {
		return
	}

	api, err := h.api(c)
	if err != nil {
		respondClientError(c, err)
		return
	}

	resp, err := h.Finder.Find(c.Request.Context(), api, middleware.GetActorID(c), filter)
	if err != nil {
		respondSearchError(c, err)
		return
	}

	c.JSON(http.StatusOK, withPreview(resp, preview))
}

// GetSearch returns a cached search result by fingerprint.
// GET /api/v1/searches/:fingerprint?preview=10
func (h *Handler) GetSearch(c *gin.Context) {
	preview, ok := previewLimit(c)
	if !ok {
		return
	}

	resp, found := h.Finder.Cached(c.Request.Context(), middleware.GetActorID(c), c.Param("fingerprint"))
	if !found {
		respondError(c, http.StatusNotFound, "not_found", "No cached search with that fingerprint; run the search again")
		return
	}
	c.JSON(http.StatusOK, withPreview(resp, preview))
}

// previewLimit parses ?preview=N. Zero means "everything".
func previewLimit(c *gin.Context) (int, bool) {
	raw := c.Query("preview")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		respondError(c, http.StatusBadRequest, "invalid_preview", "preview must be a non-negative integer")
		return 0, false
	}
	return n, true
}

// withPreview trims the records to the top n without touching the cached
// response. TotalRecords keeps the full count.
func withPreview(resp *models.SearchResponse, n int) *models.SearchResponse {
	if n == 0 || n >= len(resp.Records) {
		return resp
	}
	out := *resp
	out.Records = resp.Records[:n]
	return &out
}

func respondSearchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, quota.ErrBudgetExhausted):
		respondError(c, http.StatusTooManyRequests, "quota_exhausted", err.Error())
	case search.IsRemote(err):
		respondError(c, http.StatusBadGateway, "youtube_error", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(c, http.StatusGatewayTimeout, "cancelled", err.Error())
	default:
		respondError(c, http.StatusBadRequest, "invalid_filter", err.Error())
	}
}
