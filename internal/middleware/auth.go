package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gamehub-chat/internal/channels"
	"gamehub-chat/internal/session"
)

// BearerToken extracts the bearer token from the Authorization header.
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware validates the Authorization header against the session store.
// Tokens of banned users resolve to 403 with the ban reason; everything else
// invalid resolves to 401.
func AuthMiddleware(sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		res := sessions.Resolve(c.Request.Context(), token)
		if res.Banned {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "banned", "reason": res.BanReason})
			return
		}
		if !res.OK {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("username", res.Username)
		c.Set("token", token)
		c.Next()
	}
}

// StaffOnly gates a route group to staff usernames. Must run after
// AuthMiddleware.
func StaffOnly(authz *channels.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.GetString("username")
		if username == "" || !authz.IsStaff(username) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "staff only"})
			return
		}
		c.Next()
	}
}
