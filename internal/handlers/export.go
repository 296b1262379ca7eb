// export.go handles downloads of a cached search result.
//
// Supported formats:
//   - csv:  the placement sheet, one row per video
//   - json: the full response, records and Share of Voice included
package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/placement-finder-api/internal/middleware"
	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/record"
)

// ExportSearch exports a cached search result.
// GET /api/v1/searches/:fingerprint/export?format=csv|json
//
// Exports cost no quota; they only add an "export" row to the usage log.
func (h *Handler) ExportSearch(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")

	// Validate format before looking anything up
	if format != "csv" && format != "json" {
		respondError(c, http.StatusBadRequest, "invalid_format", "Supported formats: csv, json")
		return
	}

	actorID := middleware.GetActorID(c)
	resp, found := h.Finder.Cached(c.Request.Context(), actorID, c.Param("fingerprint"))
	if !found {
		respondError(c, http.StatusNotFound, "not_found", "No cached search with that fingerprint; run the search again")
		return
	}

	filename := searchFilename(resp.Filter)
	h.Finder.RecordExport(c.Request.Context(), actorID, resp.Filter.Query, resp.Filter.RegionCode, len(resp.Records), format)

	// Go Pattern: Switch on the format string.
	switch format {
	case "csv":
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, filename))
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Status(http.StatusOK)
		if err := record.WriteCSV(c.Writer, resp.Records); err != nil {
			// Headers are gone already; all we can do is log through gin.
			c.Error(err)
		}
	case "json":
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.json"`, filename))
		c.JSON(http.StatusOK, resp)
	}
}

// searchFilename builds youtube_<query>_<year>, with "AllTime" for searches
// without a year window.
func searchFilename(f models.SearchFilter) string {
	year := "AllTime"
	if f.PublishYear != nil {
		year = fmt.Sprintf("%d", *f.PublishYear)
	}
	query := sanitizeFilename(strings.Trim(f.Query, `"`))
	query = strings.ReplaceAll(query, " ", "_")
	if query == "" {
		query = "search"
	}
	return fmt.Sprintf("youtube_%s_%s", query, year)
}

// sanitizeFilename removes characters that aren't safe for filenames.
// Go Pattern: Keep it simple and replace unsafe characters with hyphens
// and trim the result. We don't need a full filesystem-safe sanitizer
// since this is just for the Content-Disposition header.
const maxFilenameBytes = 100

func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-",
		"?", "-", "\"", "-", "<", "-", ">", "-",
		"|", "-", "\n", " ", "\r", "",
	)
	name = strings.TrimSpace(replacer.Replace(name))

	// Cut on a rune boundary so the header never carries half a character.
	if len(name) > maxFilenameBytes {
		cut := maxFilenameBytes
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut]
	}
	return name
}
