package server

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type sendMessageRequest struct {
	ReceiverID *int64  `json:"receiverId" binding:"required"`
	Content    *string `json:"content" binding:"required"`
}

// handleSendMessage stores a message without relaying it to the live connection.
func (s *Server) handleSendMessage(c *gin.Context) {
	sender, _ := auth.CurrentUser(c)

	var body sendMessageRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", errors.ErrMalformedPayload, err))
		return
	}

	msg, err := s.chat.SendMessage(sender, domain.UserID(*body.ReceiverID), *body.Content)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.ToOutbound(msg))
}

func (s *Server) handleConversation(c *gin.Context) {
	current, _ := auth.CurrentUser(c)

	other, err := strconv.ParseInt(c.Param("otherUserId"), 10, 64)
	if err != nil || other <= 0 {
		abortWithError(c, fmt.Errorf("%w: otherUserId must be a positive integer", errors.ErrMalformedPayload))
		return
	}

	history, err := s.chat.History(current, domain.UserID(other))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(history, func(m domain.Message, _ int) domain.OutboundMessage {
		return domain.ToOutbound(m)
	}))
}
