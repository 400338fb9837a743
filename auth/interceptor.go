package auth

import (
	"chat-relay/domain"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	UserIDKey   = "user_id"
	UsernameKey = "username"
)

// BearerToken extracts the token from "Authorization: Bearer <token>".
// Browsers cannot set headers on a websocket handshake, so the "token"
// query parameter is accepted as a fallback.
func BearerToken(r *http.Request) string {
	if authz := strings.TrimSpace(r.Header.Get("Authorization")); authz != "" {
		if len(authz) > len("bearer ") && strings.EqualFold(authz[:len("bearer ")], "bearer ") {
			return strings.TrimSpace(authz[len("bearer "):])
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// Middleware validates the bearer token and injects the user identity into the gin context.
func Middleware(tokens *TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := tokens.ValidateToken(BearerToken(c.Request))
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
			return
		}

		c.Set(UserIDKey, domain.UserID(claims.UserID))
		c.Set(UsernameKey, claims.Subject)
		c.Next()
	}
}

// CurrentUser returns the identity injected by Middleware.
func CurrentUser(c *gin.Context) (domain.UserID, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(domain.UserID)
	return id, ok
}
