//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const messageSequence = "seq:message"

type IMessageRepository interface {
	NextID() (int64, error)
	StoreMessage(message DiskMessage) (DiskMessage, error)
	GetConversation(a, b domain.UserID) ([]DiskMessage, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
	seq *badger.Sequence
	now func() time.Time
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte(messageSequence), sequenceLeases)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &MessageRepository{db: db, log: log, seq: seq, now: time.Now}, nil
}

func (m *MessageRepository) Close() error {
	return m.seq.Release()
}

type DiskMessage struct {
	ID         int64
	SenderID   domain.UserID
	ReceiverID domain.UserID
	Content    string
	At         time.Time
}

type diskMessage struct {
	ID         int64  `cbor:"1,keyasint"`
	SenderID   int64  `cbor:"2,keyasint"`
	ReceiverID int64  `cbor:"3,keyasint"`
	Content    string `cbor:"4,keyasint"`
	At         int64  `cbor:"5,keyasint"`
}

// NextID reserves a message ID. IDs start at 1 and only grow.
func (m *MessageRepository) NextID() (int64, error) {
	next, err := m.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return int64(next) + 1, nil
}

// StoreMessage persists a message in BadgerDB and returns it as stored.
// A zero ID or timestamp is assigned here, a reserved one is kept.
// The key is formatted as "msg:{low_user}:{high_user}:{timestamp_padded}:{id_padded}" so
// both directions of a conversation share one prefix and sort chronologically.
func (m *MessageRepository) StoreMessage(message DiskMessage) (DiskMessage, error) {
	if message.ID == 0 {
		id, err := m.NextID()
		if err != nil {
			return DiskMessage{}, err
		}
		message.ID = id
	}
	if message.At.IsZero() {
		message.At = m.now()
	}
	message.At = message.At.UTC()

	bytes, err := marshal(fromDiskMessage(message))
	if err != nil {
		return DiskMessage{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message), bytes)
	})
	if err != nil {
		return DiskMessage{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return message, nil
}

// GetConversation returns every message exchanged between a and b, oldest first.
// The result is the same whichever order the two users are given in.
func (m *MessageRepository) GetConversation(a, b domain.UserID) ([]DiskMessage, error) {
	var byteMessages [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := conversationPrefix(a, b)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			byteMessages = append(byteMessages, value)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}

	diskMessages := make([]DiskMessage, 0, len(byteMessages))
	for _, b := range byteMessages {
		var record diskMessage
		if err := unmarshal(b, &record); err != nil {
			return nil, err
		}
		diskMessages = append(diskMessages, toDiskMessage(record))
	}
	m.log.Debug("Conversation loaded", "a", a, "b", b, "count", len(diskMessages))
	return diskMessages, nil
}

func conversationPrefix(a, b domain.UserID) []byte {
	low, high := a, b
	if low > high {
		low, high = high, low
	}
	return []byte(fmt.Sprintf("msg:%020d:%020d:", low, high))
}

func messageKey(message DiskMessage) []byte {
	prefix := conversationPrefix(message.SenderID, message.ReceiverID)
	return append(prefix, []byte(fmt.Sprintf("%019d:%020d", message.At.UnixNano(), message.ID))...)
}

func fromDiskMessage(message DiskMessage) diskMessage {
	return diskMessage{
		ID:         message.ID,
		SenderID:   int64(message.SenderID),
		ReceiverID: int64(message.ReceiverID),
		Content:    message.Content,
		At:         message.At.UnixNano(),
	}
}

func toDiskMessage(record diskMessage) DiskMessage {
	return DiskMessage{
		ID:         record.ID,
		SenderID:   domain.UserID(record.SenderID),
		ReceiverID: domain.UserID(record.ReceiverID),
		Content:    record.Content,
		At:         time.Unix(0, record.At).UTC(),
	}
}
