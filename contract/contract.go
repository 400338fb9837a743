//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Handle is the send side of a live connection.
// It is what the registry hands out to other connections for relaying.
type Handle interface {
	ID() string
	Send(ctx context.Context, msg domain.Message) error
	Close() error
}

// Conn is a full duplex live connection owned by exactly one relay session.
// Receive returns io.EOF once the peer has closed the connection.
type Conn interface {
	Handle
	Receive(ctx context.Context) ([]byte, error)
}

type IRegistry interface {
	Register(identity domain.UserID, handle Handle) (Handle, bool)
	Lookup(identity domain.UserID) (Handle, bool)
	Remove(identity domain.UserID)
	Release(identity domain.UserID, handle Handle) bool
	Online() []domain.UserID
	Len() int
}

// MessageStore is the durable side of the relay.
// Save keeps a reserved ID and timestamp, and assigns them when they are zero.
type MessageStore interface {
	NextID() (int64, error)
	Save(msg domain.Message) (domain.Message, error)
	History(a, b domain.UserID) ([]domain.Message, error)
}

type ProfileResolver interface {
	DisplayName(id domain.UserID) (string, error)
}

// Presence mirrors registry membership to an external observer.
// Implementations must be safe to call from many connection goroutines.
type Presence interface {
	Online(ctx context.Context, id domain.UserID) error
	Offline(ctx context.Context, id domain.UserID) error
}
