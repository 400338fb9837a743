package auth_test

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newProtectedRouter(tokens *auth.TokenService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", auth.Middleware(tokens), func(c *gin.Context) {
		id, ok := auth.CurrentUser(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": int64(id), "username": c.GetString(auth.UsernameKey)})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	tokens := auth.NewTokenService([]byte("secret"), time.Hour)
	token, err := tokens.GenerateToken(domain.UserID(3), "bob")
	require.NoError(t, err)
	router := newProtectedRouter(tokens)

	tests := []struct {
		name       string
		target     string
		header     string
		wantStatus int
	}{
		{"Bearer header", "/me", "Bearer " + token, http.StatusOK},
		{"Lowercase scheme", "/me", "bearer " + token, http.StatusOK},
		{"Query parameter", "/me?token=" + token, "", http.StatusOK},
		{"Missing token", "/me", "", http.StatusUnauthorized},
		{"Wrong scheme", "/me", "Basic " + token, http.StatusUnauthorized},
		{"Invalid token", "/me", "Bearer nope", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			r := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, r)

			req.Equal(tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				req.JSONEq(`{"id":3,"username":"bob"}`, w.Body.String())
			} else {
				req.Equal("Bearer", w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestBearerToken_HeaderWinsOverQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?token=from-query", nil)
	r.Header.Set("Authorization", "Bearer from-header")
	require.Equal(t, "from-header", auth.BearerToken(r))
}
