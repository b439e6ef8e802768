package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Horizonnns/vue-chat-server/auth"
)

// UserIDKey is the gin context key the authenticated user id is stored
// under.
const UserIDKey = "userID"

// Auth validates the bearer token and stores the authenticated user id in
// the request context. WebSocket clients cannot set headers, so a token
// query parameter is accepted as a fallback.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing authorization token",
			})
			return
		}

		userID, err := auth.UserIDFromToken(tokenString, []byte(secret))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user id stored by Auth.
func UserID(c *gin.Context) int64 {
	id, _ := c.Get(UserIDKey)
	userID, _ := id.(int64)
	return userID
}

func extractToken(c *gin.Context) string {
	// Try Authorization header first
	bearerToken := c.GetHeader("Authorization")
	if strings.HasPrefix(bearerToken, "Bearer ") {
		return strings.TrimPrefix(bearerToken, "Bearer ")
	}

	// For WebSocket connections, check query parameter
	return c.Query("token")
}
