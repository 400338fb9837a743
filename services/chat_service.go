package services

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
)

type IChatService interface {
	NextID() (int64, error)
	Save(msg domain.Message) (domain.Message, error)
	History(a, b domain.UserID) ([]domain.Message, error)
	DisplayName(id domain.UserID) (string, error)
	SendMessage(sender, receiver domain.UserID, content string) (domain.Message, error)
}

// ChatService backs both the relay and the REST surface.
// It implements contract.MessageStore and contract.ProfileResolver.
type ChatService struct {
	messages         repositories.IMessageRepository
	users            repositories.IUserRepository
	log              *slog.Logger
	maxContentLength int
}

func NewChatService(messages repositories.IMessageRepository, users repositories.IUserRepository,
	log *slog.Logger, maxContentLength int) *ChatService {
	return &ChatService{messages: messages, users: users, log: log, maxContentLength: maxContentLength}
}

func (s *ChatService) NextID() (int64, error) {
	return s.messages.NextID()
}

// Save persists msg. The display name is not stored, it is joined back on read.
func (s *ChatService) Save(msg domain.Message) (domain.Message, error) {
	stored, err := s.messages.StoreMessage(repositories.DiskMessage{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Content:    msg.Content,
		At:         msg.CreatedAt,
	})
	if err != nil {
		return domain.Message{}, err
	}
	msg.ID = stored.ID
	msg.CreatedAt = stored.At
	return msg, nil
}

// History returns the conversation between a and b, oldest first.
func (s *ChatService) History(a, b domain.UserID) ([]domain.Message, error) {
	diskMessages, err := s.messages.GetConversation(a, b)
	if err != nil {
		return nil, err
	}

	names := make(map[domain.UserID]string, 2)
	for _, id := range lo.Uniq([]domain.UserID{a, b}) {
		name, err := s.DisplayName(id)
		if err != nil {
			// A deleted account must not hide the conversation
			s.log.Debug("Display name unavailable", "user_id", id, "error", err)
			continue
		}
		names[id] = name
	}

	return lo.Map(diskMessages, func(m repositories.DiskMessage, _ int) domain.Message {
		return domain.Message{
			ID:                m.ID,
			SenderID:          m.SenderID,
			SenderDisplayName: names[m.SenderID],
			ReceiverID:        m.ReceiverID,
			Content:           m.Content,
			CreatedAt:         m.At,
		}
	}), nil
}

func (s *ChatService) DisplayName(id domain.UserID) (string, error) {
	user, err := s.users.GetUserByID(id)
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

// SendMessage persists a message without relaying it.
// The sender comes from the authenticated identity, never from the payload.
func (s *ChatService) SendMessage(sender, receiver domain.UserID, content string) (domain.Message, error) {
	if receiver <= 0 {
		return domain.Message{}, fmt.Errorf("%w: receiverId must be positive", errors.ErrMalformedPayload)
	}
	if len(content) > s.maxContentLength {
		return domain.Message{}, fmt.Errorf("%w: content exceeds %d bytes", errors.ErrMalformedPayload, s.maxContentLength)
	}
	if _, err := s.users.GetUserByID(receiver); err != nil {
		return domain.Message{}, err
	}
	name, err := s.DisplayName(sender)
	if err != nil {
		return domain.Message{}, err
	}

	msg, err := s.Save(domain.Message{
		SenderID:          sender,
		SenderDisplayName: name,
		ReceiverID:        receiver,
		Content:           content,
	})
	if err != nil {
		return domain.Message{}, err
	}
	s.log.Debug("Message stored", "sender_id", sender, "receiver_id", receiver, "id", msg.ID)
	return msg, nil
}
