// Package middleware provides HTTP middleware for the API.
//
// Go Pattern: Middleware in Go is a function that wraps an HTTP handler.
// In Gin, middleware is a gin.HandlerFunc that calls c.Next() to continue
// the chain, or c.Abort() to stop processing. This is similar to Express.js
// middleware, but with explicit control flow.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/learnsmart-api/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions.
// Go Pattern: Use unexported types for context keys so other packages
// can't accidentally overwrite your values.
type contextKey string

const sessionContextKey contextKey = "session_id"

// SessionAuth returns middleware that validates the session bearer token
// issued by POST /api/v1/sessions.
//
// How it works:
// 1. Read the Authorization: Bearer <token> header
// 2. Verify the signature and expiry
// 3. Store the session ID in the request context
// 4. If invalid, return 401 Unauthorized
//
// The session itself is looked up by the handler, which answers 404 if
// it no longer exists.
func SessionAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			unauthorized(c, "Missing or invalid Authorization header. Create a session via POST /api/v1/sessions and send 'Bearer <token>'")
			return
		}

		claims, err := ParseSessionToken(strings.TrimPrefix(authHeader, "Bearer "), secret)
		if err != nil {
			unauthorized(c, "Invalid or expired session token")
			return
		}

		// Go Pattern: Gin uses its own context (different from context.Context).
		// c.Set() stores values that handlers can retrieve with c.Get().
		c.Set(string(sessionContextKey), claims.SessionID)
		c.Next()
	}
}

// GetSessionID retrieves the authenticated session ID from the request
// context. It returns "" outside SessionAuth.
func GetSessionID(c *gin.Context) string {
	// Go Pattern: The comma-ok idiom is safe — it won't panic if the key
	// is missing or holds another type.
	if id, ok := c.Get(string(sessionContextKey)); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

func unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "unauthorized",
		Message: msg,
		Code:    http.StatusUnauthorized,
	})
	c.Abort() // Stop the middleware chain — don't call the handler
}
