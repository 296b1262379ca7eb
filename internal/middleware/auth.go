// Package middleware provides HTTP middleware for the API.
//
// Go Pattern: Middleware in Go is a function that wraps an HTTP handler.
// In Gin, middleware is a gin.HandlerFunc that calls c.Next() to continue
// the chain, or c.Abort() to stop processing. This is similar to Express.js
// middleware, but with explicit control flow.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions.
// Go Pattern: Use unexported types for context keys so other packages
// can't accidentally overwrite your values.
type contextKey string

// AdminKeyHeader carries the admin credential.
const AdminKeyHeader = "X-Admin-Key"

// AdminAuth returns middleware that guards admin routes with the configured
// key. The key may be stored in plain text or as a bcrypt hash. An empty
// key disables the admin routes entirely.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.JSON(http.StatusForbidden, models.ErrorResponse{
				Error:   "forbidden",
				Message: "Admin routes are disabled; set ADMIN_API_KEY",
				Code:    http.StatusForbidden,
			})
			c.Abort()
			return
		}

		if !CheckAdminKey(adminKey, c.GetHeader(AdminKeyHeader)) {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "unauthorized",
				Message: "Missing or invalid " + AdminKeyHeader + " header",
				Code:    http.StatusUnauthorized,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CheckAdminKey compares a presented key with the configured one.
func CheckAdminKey(configured, presented string) bool {
	if presented == "" {
		return false
	}
	if isBcryptHash(configured) {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(presented)) == nil
	}
	// Constant-time comparison so response timing leaks nothing about the key.
	return subtle.ConstantTimeCompare([]byte(configured), []byte(presented)) == 1
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
