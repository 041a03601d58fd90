package identity

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// userContextKey is where RequireAuth stashes the resolved *User for
// downstream handlers.
const userContextKey = "identity.user"

// RequireAuth returns a gin middleware that validates the Authorization:
// Bearer <token> header and attaches the resolved *User to the context.
// Aborts with 401 on any failure, 429 if rate-limited.
func RequireAuth(id *Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		user, err := id.Authorize(token, c.Request.RemoteAddr)
		if err != nil {
			status := 401
			if err == ErrRateLimited {
				status = 429
			}
			c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

// OptionalAuth resolves the bearer token if present but never aborts the
// request; handlers that are public but user-aware (GET /api/me) use this.
func OptionalAuth(id *Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.Next()
			return
		}
		if user, err := id.Authorize(token, c.Request.RemoteAddr); err == nil {
			c.Set(userContextKey, user)
		}
		c.Next()
	}
}

// UserFrom returns the *User attached by RequireAuth/OptionalAuth, if any.
func UserFrom(c *gin.Context) (*User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*User)
	return u, ok
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
