package services

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newAuthService(t *testing.T) (*AuthService, *mocks.MockIUserRepository, *auth.TokenService) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockIUserRepository(ctrl)
	tokens := auth.NewTokenService([]byte("secret"), time.Hour)
	return NewAuthService(mockRepo, tokens, 100), mockRepo, tokens
}

func TestAuthService_Register(t *testing.T) {
	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)
		svc, mockRepo, _ := newAuthService(t)
		expected := domain.User{ID: 1, Username: "alice"}

		// Expect CreateUser to be called with a hashed password (not the plain one)
		mockRepo.EXPECT().
			CreateUser("alice", gomock.Not("password123")).
			Return(expected, nil).
			Times(1)

		user, err := svc.Register("alice", "password123")

		req.NoError(err)
		req.Equal(expected, user)
	})

	t.Run("should fail when password complexity is not met", func(t *testing.T) {
		req := require.New(t)
		svc, mockRepo, _ := newAuthService(t)

		// Repository should NEVER be called
		mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.Register("alice", "simple")

		req.ErrorIs(err, errors.ErrInvalidPassword)
	})

	t.Run("should fail when username is invalid", func(t *testing.T) {
		req := require.New(t)
		svc, mockRepo, _ := newAuthService(t)
		mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.Register("a!", "password123")

		req.ErrorIs(err, errors.ErrInvalidUsername)
	})

	t.Run("should fail when user already exists in repository", func(t *testing.T) {
		req := require.New(t)
		svc, mockRepo, _ := newAuthService(t)

		mockRepo.EXPECT().
			CreateUser("alice", gomock.Any()).
			Return(domain.User{}, errors.ErrUserAlreadyExists)

		_, err := svc.Register("alice", "password123")

		req.ErrorIs(err, errors.ErrUserAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	stored := domain.User{ID: 5, Username: "alice", PasswordHash: hash}

	t.Run("should return a token carrying the user identity", func(t *testing.T) {
		req := require.New(t)
		svc, mockRepo, tokens := newAuthService(t)
		mockRepo.EXPECT().GetUserByUsername("alice").Return(stored, nil)

		token, err := svc.Login("alice", "password123")

		req.NoError(err)
		claims, err := tokens.ValidateToken(token.String())
		req.NoError(err)
		req.Equal(int64(5), claims.UserID)
		req.Equal("alice", claims.Subject)
	})

	t.Run("should hide whether the user exists", func(t *testing.T) {
		req := require.New(t)
		svc, mockRepo, _ := newAuthService(t)
		mockRepo.EXPECT().GetUserByUsername("bob").Return(domain.User{}, errors.ErrUserNotFound)
		mockRepo.EXPECT().GetUserByUsername("alice").Return(stored, nil)

		_, unknownErr := svc.Login("bob", "password123")
		_, wrongErr := svc.Login("alice", "wrongpass1")

		req.ErrorIs(unknownErr, errors.ErrInvalidCredentials)
		req.ErrorIs(wrongErr, errors.ErrInvalidCredentials)
	})

	t.Run("should surface storage failures", func(t *testing.T) {
		req := require.New(t)
		svc, mockRepo, _ := newAuthService(t)
		mockRepo.EXPECT().GetUserByUsername("alice").
			Return(domain.User{}, fmt.Errorf("%w: disk", errors.ErrPersistence))

		_, err := svc.Login("alice", "password123")

		req.ErrorIs(err, errors.ErrPersistence)
	})
}

func TestAuthService_ListUsers_CapsLimit(t *testing.T) {
	req := require.New(t)
	svc, mockRepo, _ := newAuthService(t)

	mockRepo.EXPECT().ListUsers(0, 100).Return([]domain.User{}, nil).Times(2)
	mockRepo.EXPECT().ListUsers(3, 10).Return([]domain.User{{ID: 4}}, nil)

	_, err := svc.ListUsers(0, 1000)
	req.NoError(err)
	_, err = svc.ListUsers(-1, -5)
	req.NoError(err)
	users, err := svc.ListUsers(3, 10)
	req.NoError(err)
	req.Len(users, 1)
}

func TestAuthService_ListUsers_Zero_Limit_Returns_Nothing(t *testing.T) {
	req := require.New(t)
	svc, mockRepo, _ := newAuthService(t)

	// Given the repository must not be queried
	mockRepo.EXPECT().ListUsers(gomock.Any(), gomock.Any()).Times(0)

	// When no rows are requested
	users, err := svc.ListUsers(2, 0)

	// Then an empty page is returned
	req.NoError(err)
	req.NotNil(users)
	req.Empty(users)
}
