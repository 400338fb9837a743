package server

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/errors"
	"chat-relay/runtime"
	"chat-relay/services"
	"context"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type Config struct {
	AllowedOrigins []string
	ReadLimit      int64
	SendTimeout    time.Duration
}

// Server exposes the REST surface and the live websocket endpoint.
type Server struct {
	log      *slog.Logger
	auth     services.IAuthService
	chat     services.IChatService
	tokens   *auth.TokenService
	registry contract.IRegistry
	relay    *runtime.Relay
	upgrader websocket.Upgrader
	config   Config
}

func NewServer(
	log *slog.Logger,
	authService services.IAuthService,
	chatService services.IChatService,
	tokens *auth.TokenService,
	registry contract.IRegistry,
	relay *runtime.Relay,
	config Config,
) *Server {
	return &Server{
		log:      log,
		auth:     authService,
		chat:     chatService,
		tokens:   tokens,
		registry: registry,
		relay:    relay,
		upgrader: makeUpgrader(config.AllowedOrigins),
		config:   config,
	}
}

// Router wires every route. Routes marked with the auth middleware require a bearer token.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), corsMiddleware(s.config.AllowedOrigins))

	requireToken := auth.Middleware(s.tokens)

	r.GET("/healthz", s.handleHealth)
	r.POST("/register", s.handleRegister)
	r.POST("/token", s.handleLogin)
	r.GET("/users", s.handleListUsers)
	r.GET("/users/online", requireToken, s.handleOnlineUsers)
	r.POST("/messages", requireToken, s.handleSendMessage)
	r.GET("/messages/:otherUserId", requireToken, s.handleConversation)
	r.GET("/ws", requireToken, s.handleWebSocket)
	r.GET("/ws/:userId", requireToken, s.handleWebSocket)

	return r
}

// HTTPServer returns an http.Server whose request contexts derive from ctx,
// so cancelling ctx also ends every live websocket session.
func (s *Server) HTTPServer(ctx context.Context, addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": s.registry.Len()})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// abortWithError maps a domain error to its status code.
// Server side failures never leak their cause.
func abortWithError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	detail := err.Error()
	if status >= http.StatusInternalServerError {
		detail = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// makeUpgrader checks the Origin header against the allow-list.
// An empty list or "*" allows every origin, and non-browser clients send no Origin at all.
func makeUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || originAllowed(allowedOrigins, origin)
		},
	}
}

func originAllowed(allowedOrigins []string, origin string) bool {
	return len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
}

// corsMiddleware applies the same allow-list as the websocket upgrader.
// Requests from other origins are refused with 403, requests without an Origin pass.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return originAllowed(allowedOrigins, origin) },
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
