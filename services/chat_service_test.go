package services

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/repositories"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newChatService(t *testing.T) (*ChatService, *mocks.MockIMessageRepository, *mocks.MockIUserRepository) {
	ctrl := gomock.NewController(t)
	messages := mocks.NewMockIMessageRepository(ctrl)
	users := mocks.NewMockIUserRepository(ctrl)
	return NewChatService(messages, users, logs.GetLoggerFromLevel(slog.LevelError), 16), messages, users
}

func TestChatService_Save_KeepsReservedFields(t *testing.T) {
	req := require.New(t)
	svc, messages, _ := newChatService(t)
	at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	messages.EXPECT().
		StoreMessage(repositories.DiskMessage{ID: 9, SenderID: 1, ReceiverID: 2, Content: "hi", At: at}).
		Return(repositories.DiskMessage{ID: 9, SenderID: 1, ReceiverID: 2, Content: "hi", At: at}, nil)

	saved, err := svc.Save(domain.Message{ID: 9, SenderID: 1, SenderDisplayName: "alice", ReceiverID: 2, Content: "hi", CreatedAt: at})

	req.NoError(err)
	req.Equal(int64(9), saved.ID)
	req.Equal("alice", saved.SenderDisplayName)
	req.Equal(at, saved.CreatedAt)
}

func TestChatService_History_JoinsDisplayNames(t *testing.T) {
	req := require.New(t)
	svc, messages, users := newChatService(t)
	at := time.Now().UTC()

	// Given a conversation in both directions
	messages.EXPECT().GetConversation(domain.UserID(1), domain.UserID(2)).Return([]repositories.DiskMessage{
		{ID: 1, SenderID: 1, ReceiverID: 2, Content: "hello", At: at},
		{ID: 2, SenderID: 2, ReceiverID: 1, Content: "hey", At: at.Add(time.Second)},
	}, nil)
	users.EXPECT().GetUserByID(domain.UserID(1)).Return(domain.User{ID: 1, Username: "alice"}, nil)
	users.EXPECT().GetUserByID(domain.UserID(2)).Return(domain.User{ID: 2, Username: "bob"}, nil)

	// When the history is loaded
	history, err := svc.History(1, 2)

	// Then every message carries its sender's name
	req.NoError(err)
	req.Len(history, 2)
	req.Equal("alice", history[0].SenderDisplayName)
	req.Equal("bob", history[1].SenderDisplayName)
	req.Equal("hey", history[1].Content)
}

func TestChatService_History_ToleratesMissingProfile(t *testing.T) {
	req := require.New(t)
	svc, messages, users := newChatService(t)

	messages.EXPECT().GetConversation(domain.UserID(1), domain.UserID(3)).Return([]repositories.DiskMessage{
		{ID: 1, SenderID: 3, ReceiverID: 1, Content: "old"},
	}, nil)
	users.EXPECT().GetUserByID(domain.UserID(1)).Return(domain.User{ID: 1, Username: "alice"}, nil)
	users.EXPECT().GetUserByID(domain.UserID(3)).Return(domain.User{}, errors.ErrUserNotFound)

	history, err := svc.History(1, 3)

	req.NoError(err)
	req.Len(history, 1)
	req.Empty(history[0].SenderDisplayName)
}

func TestChatService_SendMessage(t *testing.T) {
	t.Run("persists with the authenticated sender", func(t *testing.T) {
		req := require.New(t)
		svc, messages, users := newChatService(t)
		users.EXPECT().GetUserByID(domain.UserID(2)).Return(domain.User{ID: 2, Username: "bob"}, nil)
		users.EXPECT().GetUserByID(domain.UserID(1)).Return(domain.User{ID: 1, Username: "alice"}, nil)
		messages.EXPECT().StoreMessage(gomock.Any()).DoAndReturn(func(m repositories.DiskMessage) (repositories.DiskMessage, error) {
			m.ID = 3
			m.At = time.Now().UTC()
			return m, nil
		})

		msg, err := svc.SendMessage(1, 2, "hi bob")

		req.NoError(err)
		req.Equal(int64(3), msg.ID)
		req.Equal(domain.UserID(1), msg.SenderID)
		req.Equal("alice", msg.SenderDisplayName)
		req.False(msg.CreatedAt.IsZero())
	})

	t.Run("rejects oversized content", func(t *testing.T) {
		req := require.New(t)
		svc, _, _ := newChatService(t)

		_, err := svc.SendMessage(1, 2, "this is definitely longer than sixteen bytes")

		req.ErrorIs(err, errors.ErrMalformedPayload)
	})

	t.Run("rejects unknown receiver", func(t *testing.T) {
		req := require.New(t)
		svc, _, users := newChatService(t)
		users.EXPECT().GetUserByID(domain.UserID(99)).Return(domain.User{}, errors.ErrUserNotFound)

		_, err := svc.SendMessage(1, 99, "hi")

		req.ErrorIs(err, errors.ErrUserNotFound)
	})
}
