// analyses.go handles bulk analysis of a pasted or uploaded video list.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/placement-finder-api/internal/middleware"
	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/bulk"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/quota"
)

// maxAnalyzeItems bounds one analysis so a single upload can't spend the
// day's quota.
const maxAnalyzeItems = 1000

// maxUploadBytes limits multipart uploads.
const maxUploadBytes = 5 << 20

// CreateAnalysis flattens a list of video URLs or ids.
// POST /api/v1/analyses
//
// Two request shapes are accepted:
//
//	{"items": ["https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"], "region_code": "US"}
//
// or a multipart form with a CSV "file" and the "column" holding the links.
func (h *Handler) CreateAnalysis(c *gin.Context) {
	items, region, ok := h.analysisInput(c)
	if !ok {
		return
	}
	if len(items) > maxAnalyzeItems {
		respondError(c, http.StatusBadRequest, "too_many_items", fmt.Sprintf("At most %d items per analysis", maxAnalyzeItems))
		return
	}

	api, err := h.api(c)
	if err != nil {
		respondClientError(c, err)
		return
	}

	resp, err := h.Finder.Analyze(c.Request.Context(), api, middleware.GetActorID(c), h.region(region), items)
	if err != nil {
		if errors.Is(err, bulk.ErrNoIdentifiers) {
			respondError(c, http.StatusBadRequest, "no_identifiers", err.Error())
			return
		}
		if errors.Is(err, quota.ErrBudgetExhausted) {
			respondError(c, http.StatusTooManyRequests, "quota_exhausted", err.Error())
			return
		}
		respondError(c, http.StatusBadGateway, "youtube_error", err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}

// analysisInput reads the token list from either request shape.
func (h *Handler) analysisInput(c *gin.Context) ([]string, string, bool) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		var req models.AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid_request", "Provide 'items' as a list of video URLs or ids")
			return nil, "", false
		}
		return req.Items, req.RegionCode, true
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_upload", "Multipart requests need a CSV 'file' field")
		return nil, "", false
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_upload", err.Error())
		return nil, "", false
	}
	defer f.Close()

	items, err := bulk.ReadColumn(f, c.PostForm("column"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_upload", err.Error())
		return nil, "", false
	}
	return items, c.PostForm("region_code"), true
}
