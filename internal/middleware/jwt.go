// jwt.go issues and verifies session tokens.
//
// A session is nothing more than a signed actor id: the server keeps no user
// table, so the JWT subject is the only identity the ledger and the result
// cache ever see.
package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
)

const actorContextKey contextKey = "actor_id"

// SessionTTL is how long an issued session token stays valid.
const SessionTTL = 72 * time.Hour

// SessionClaims are the registered claims; Subject carries the actor id.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// NewSession mints a session for a fresh actor id.
func NewSession(secret string, now time.Time) (models.SessionResponse, error) {
	actorID := uuid.New().String()
	expires := now.Add(SessionTTL)
	token, err := IssueSessionToken(actorID, secret, now, expires)
	if err != nil {
		return models.SessionResponse{}, err
	}
	return models.SessionResponse{ActorID: actorID, Token: token, ExpiresAt: expires}, nil
}

// IssueSessionToken signs a token for actorID.
func IssueSessionToken(actorID, secret string, issued, expires time.Time) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseSessionToken validates a token and returns its actor id.
func ParseSessionToken(tokenString, secret string) (string, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("session token has no subject")
	}
	return claims.Subject, nil
}

// SessionAuth returns middleware that requires a valid Bearer session token
// and stores the actor id in the request context.
func SessionAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "unauthorized",
				Message: "Missing or invalid Authorization header. Create a session via POST /api/v1/sessions",
				Code:    http.StatusUnauthorized,
			})
			c.Abort()
			return
		}

		actorID, err := ParseSessionToken(strings.TrimPrefix(authHeader, "Bearer "), jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid or expired session token",
				Code:    http.StatusUnauthorized,
			})
			c.Abort()
			return
		}

		c.Set(string(actorContextKey), actorID)
		c.Next()
	}
}

// GetActorID retrieves the authenticated actor from the request context.
// It returns "" when no session middleware ran.
func GetActorID(c *gin.Context) string {
	val, exists := c.Get(string(actorContextKey))
	if !exists {
		return ""
	}
	// Go Pattern: Type assertion with the comma-ok idiom never panics.
	id, _ := val.(string)
	return id
}
