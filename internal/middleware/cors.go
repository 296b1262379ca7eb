// cors.go configures Cross-Origin Resource Sharing (CORS).
//
// CORS is needed because a browser frontend and the Go API run on different
// origins. Without CORS headers, browsers block the frontend from making
// API requests.
package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// YouTubeKeyHeader lets a caller run searches on their own Data API key.
const YouTubeKeyHeader = "X-YouTube-API-Key"

// CORS returns configured CORS middleware.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", YouTubeKeyHeader, AdminKeyHeader},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour, // Cache preflight responses
	})
}
