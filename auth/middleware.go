package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// UsernameKey is the gin context key RequireAuth stores the caller under.
const UsernameKey = "username"

// TokenFromRequest reads a bearer token from the Authorization header, or from
// the token query parameter since browsers cannot set headers on websockets.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// RequireAuth rejects requests without a valid token.
func RequireAuth(tm *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		username, err := tm.Verify(token, time.Now())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(UsernameKey, username)
		c.Next()
	}
}

// Username returns the caller authenticated by RequireAuth.
func Username(c *gin.Context) string {
	return c.GetString(UsernameKey)
}
