package runtime

import (
	"chat-relay/domain"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeConn is an in-memory contract.Conn. Payloads pushed with deliver are
// returned by Receive; hangUp makes Receive report a peer close.
type fakeConn struct {
	id        string
	inbound   chan []byte
	sent      chan domain.Message
	closed    chan struct{}
	closeOnce sync.Once
	sendErr   error
	readErr   error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		id:      uuid.NewString(),
		inbound: make(chan []byte, 16),
		sent:    make(chan domain.Message, 16),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(ctx context.Context, msg domain.Message) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	select {
	case <-c.closed:
		return errors.New("send on closed connection")
	default:
	}
	select {
	case c.sent <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *fakeConn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closed:
		return nil, io.EOF
	case payload, ok := <-c.inbound:
		if !ok {
			if c.readErr != nil {
				return nil, c.readErr
			}
			return nil, io.EOF
		}
		return payload, nil
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) deliver(payload string) {
	c.inbound <- []byte(payload)
}

func (c *fakeConn) hangUp() {
	close(c.inbound)
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// next waits for the next message sent on the connection.
func (c *fakeConn) next(timeout time.Duration) (domain.Message, bool) {
	select {
	case msg := <-c.sent:
		return msg, true
	case <-time.After(timeout):
		return domain.Message{}, false
	}
}

// memoryStore is a contract.MessageStore and contract.ProfileResolver backed by maps.
type memoryStore struct {
	mu       sync.Mutex
	nextID   int64
	saved    []domain.Message
	names    map[domain.UserID]string
	saveErr  error
	idErr    error
	savedSig chan struct{}
}

func newMemoryStore(names map[domain.UserID]string) *memoryStore {
	return &memoryStore{names: names, savedSig: make(chan struct{}, 64)}
}

func (s *memoryStore) NextID() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idErr != nil {
		return 0, s.idErr
	}
	s.nextID++
	return s.nextID, nil
}

func (s *memoryStore) Save(msg domain.Message) (domain.Message, error) {
	defer func() { s.savedSig <- struct{}{} }()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return domain.Message{}, s.saveErr
	}
	s.saved = append(s.saved, msg)
	return msg, nil
}

func (s *memoryStore) History(a, b domain.UserID) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Message
	for _, m := range s.saved {
		if m.Involves(a, b) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memoryStore) DisplayName(id domain.UserID) (string, error) {
	name, ok := s.names[id]
	if !ok {
		return "", errors.New("unknown user")
	}
	return name, nil
}

func (s *memoryStore) all() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.saved...)
}

func (s *memoryStore) waitSaved(timeout time.Duration) bool {
	select {
	case <-s.savedSig:
		return true
	case <-time.After(timeout):
		return false
	}
}
