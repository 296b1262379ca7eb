package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/placement-finder-api/internal/middleware"
)

// CreateSession issues a session token for a new anonymous actor.
// POST /api/v1/sessions
//
// The actor id scopes cached results and ledger rows; clients keep the
// token and send it as "Authorization: Bearer <token>".
func (h *Handler) CreateSession(c *gin.Context) {
	s, err := middleware.NewSession(h.JWTSecret, time.Now())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "session_error", "Failed to issue session token")
		return
	}
	c.JSON(http.StatusCreated, s)
}
