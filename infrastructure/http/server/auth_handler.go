package server

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type credentials struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{ID: int64(u.ID), Username: u.Username}
}

func (s *Server) handleRegister(c *gin.Context) {
	var body credentials
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", errors.ErrMalformedPayload, err))
		return
	}

	user, err := s.auth.Register(body.Username, body.Password)
	if err != nil {
		s.log.Debug("Registration refused", "username", body.Username, "error", err)
		abortWithError(c, err)
		return
	}
	s.log.Info("User registered", "user_id", user.ID)
	c.JSON(http.StatusOK, toUserResponse(user))
}

// handleLogin accepts an OAuth2 password form or the same fields as JSON.
func (s *Server) handleLogin(c *gin.Context) {
	var body credentials
	if err := c.ShouldBind(&body); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", errors.ErrMalformedPayload, err))
		return
	}

	token, err := s.auth.Login(body.Username, body.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{AccessToken: token.String(), TokenType: "bearer"})
}

func (s *Server) handleListUsers(c *gin.Context) {
	skip, err := queryInt(c, "skip", 0)
	if err != nil {
		abortWithError(c, err)
		return
	}
	limit, err := queryInt(c, "limit", 100)
	if err != nil {
		abortWithError(c, err)
		return
	}

	users, err := s.auth.ListUsers(skip, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(users, func(u domain.User, _ int) userResponse {
		return toUserResponse(u)
	}))
}

func (s *Server) handleOnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, lo.Map(s.registry.Online(), func(id domain.UserID, _ int) int64 {
		return int64(id)
	}))
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s must be a non negative integer", errors.ErrMalformedPayload, name)
	}
	return v, nil
}
