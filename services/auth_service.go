package services

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"fmt"
)

type IAuthService interface {
	Register(username, password string) (domain.User, error)
	Login(username, password string) (Token, error)
	ListUsers(skip, limit int) ([]domain.User, error)
}

type AuthService struct {
	userRepository repositories.IUserRepository
	tokens         *auth.TokenService
	limitUsers     int
}

type Token string

func (t Token) String() string {
	return string(t)
}

func NewAuthService(repo repositories.IUserRepository, tokens *auth.TokenService, limitUsers int) *AuthService {
	return &AuthService{userRepository: repo, tokens: tokens, limitUsers: limitUsers}
}

func (s *AuthService) Register(username, password string) (domain.User, error) {
	// 1. Validate business rules before any expensive cryptographic operation.
	if err := auth.ValidateRegister(auth.RegisterRequest{Username: username, Password: password}); err != nil {
		return domain.User{}, err
	}

	// 2. Hash in the service layer to keep the repository unaware of plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	// 3. Will propagate ErrUserAlreadyExists if the username is taken
	return s.userRepository.CreateUser(username, hashedPassword)
}

func (s *AuthService) Login(username, password string) (Token, error) {
	user, err := s.userRepository.GetUserByUsername(username)
	switch {
	case errors.Is(err, errors.ErrUserNotFound):
		// Generic error to prevent user enumeration attacks
		return "", errors.ErrInvalidCredentials
	case err != nil:
		return "", err
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		return "", err
	}
	return Token(token), nil
}

// ListUsers caps limit to the configured maximum. A zero limit returns no users,
// a negative one means the maximum.
func (s *AuthService) ListUsers(skip, limit int) ([]domain.User, error) {
	if skip < 0 {
		skip = 0
	}
	if limit == 0 {
		return []domain.User{}, nil
	}
	if limit < 0 || limit > s.limitUsers {
		limit = s.limitUsers
	}
	return s.userRepository.ListUsers(skip, limit)
}
