package server

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/infrastructure/ws"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// handleWebSocket upgrades an authenticated request and hands the connection to the relay.
// Authentication happens before the upgrade, so a rejected client never touches the registry.
func (s *Server) handleWebSocket(c *gin.Context) {
	identity, ok := auth.CurrentUser(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	if raw := c.Param("userId"); raw != "" {
		pathID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || domain.UserID(pathID) != identity {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "token does not match user"})
			return
		}
	}

	wsConn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response
		s.log.Debug("Websocket upgrade failed", "user_id", identity, "error", err)
		return
	}

	conn := ws.NewConn(wsConn, s.config.ReadLimit, s.config.SendTimeout)
	if err := s.relay.Serve(c.Request.Context(), identity, conn); err != nil {
		s.log.Info("Live connection ended", "user_id", identity, "session_id", conn.ID(), "error", err)
	}
}
