package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
)

// State is the lifecycle stage of one live connection.
type State int

const (
	Connecting State = iota
	Open
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Open:
		return "OPEN"
	case Closing:
		return "CLOSING"
	case Closed:
		return "CLOSED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ContentFilter rewrites message content before it is relayed and stored.
type ContentFilter interface {
	Censor(content string) (string, bool)
}

var payloadValidator = validator.New()

const defaultSendTimeout = 5 * time.Second

// Relay drives every live connection: it registers the connection, relays each
// inbound payload to its receiver, echoes it to the sender, persists it, and
// deregisters on exit. One Serve call runs per connection.
//
// Message ids are reserved before relaying so the forwarded, echoed and stored
// copies share one id. When the reservation fails the wire copies carry id 0
// and the store assigns the id on save.
type Relay struct {
	registry         contract.IRegistry
	store            contract.MessageStore
	profiles         contract.ProfileResolver
	presence         contract.Presence
	filter           ContentFilter
	log              *slog.Logger
	maxContentLength int
	sendTimeout      time.Duration
	now              func() time.Time
}

type RelayOption func(*Relay)

func WithPresence(presence contract.Presence) RelayOption {
	return func(r *Relay) { r.presence = presence }
}

func WithContentFilter(filter ContentFilter) RelayOption {
	return func(r *Relay) { r.filter = filter }
}

func WithClock(now func() time.Time) RelayOption {
	return func(r *Relay) { r.now = now }
}

func NewRelay(
	registry contract.IRegistry,
	store contract.MessageStore,
	profiles contract.ProfileResolver,
	log *slog.Logger,
	maxContentLength int,
	sendTimeout time.Duration,
	opts ...RelayOption,
) *Relay {
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	r := &Relay{
		registry:         registry,
		store:            store,
		profiles:         profiles,
		log:              log,
		maxContentLength: maxContentLength,
		sendTimeout:      sendTimeout,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type session struct {
	identity    domain.UserID
	displayName string
	conn        contract.Conn
	state       State
	log         *slog.Logger
}

func (s *session) transition(to State) {
	s.log.Debug("Connection state changed", "from", s.state.String(), "to", to.String())
	s.state = to
}

// Serve owns conn until it returns. identity must already be authenticated.
// It returns nil when the peer closes the connection or ctx is cancelled,
// otherwise the fault that ended the connection.
func (r *Relay) Serve(ctx context.Context, identity domain.UserID, conn contract.Conn) error {
	s := &session{
		identity: identity,
		conn:     conn,
		state:    Connecting,
		log:      r.log.With("user_id", identity, "session_id", conn.ID()),
	}

	displayName, err := r.profiles.DisplayName(identity)
	if err != nil {
		s.log.Warn("Unable to resolve sender profile", "error", err)
		_ = conn.Close()
		s.transition(Closed)
		return fmt.Errorf("%w: %v", errors.ErrAuthentication, err)
	}
	s.displayName = displayName

	if previous, replaced := r.registry.Register(identity, conn); replaced && previous.ID() != conn.ID() {
		s.log.Info("Replacing previous connection", "previous_session_id", previous.ID())
		if err := previous.Close(); err != nil {
			s.log.Debug("Previous connection already closed", "error", err)
		}
	}
	r.setPresence(ctx, s, true)
	s.transition(Open)
	s.log.Info("Connection open")

	defer r.close(ctx, s)

	for {
		payload, err := conn.Receive(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			s.log.Warn("Connection lost", "error", err)
			return fmt.Errorf("%w: %v", errors.ErrConnectionLost, err)
		}

		if err := r.relay(ctx, s, payload); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn("Closing connection", "error", err)
			return err
		}
	}
}

// relay handles one payload: forward, echo, persist, in that order.
func (r *Relay) relay(ctx context.Context, s *session, payload []byte) error {
	inbound, err := r.parse(payload)
	if err != nil {
		return err
	}

	content := *inbound.Message
	if r.filter != nil {
		content, _ = r.filter.Censor(content)
	}

	msg := domain.Message{
		SenderID:          s.identity,
		SenderDisplayName: s.displayName,
		ReceiverID:        domain.UserID(*inbound.ReceiverID),
		Content:           content,
		CreatedAt:         r.now().UTC(),
	}
	if id, err := r.store.NextID(); err != nil {
		s.log.Error("Unable to reserve message id", "error", err)
	} else {
		msg.ID = id
	}

	if msg.ReceiverID != s.identity {
		if receiver, ok := r.registry.Lookup(msg.ReceiverID); ok {
			if err := r.send(ctx, receiver, msg); err != nil {
				// A failed write leaves the socket unusable. Closing it ends the
				// receiver's own session, which releases its registry entry.
				s.log.Warn("Delivery failed, closing receiver connection",
					"receiver_id", msg.ReceiverID, "receiver_session_id", receiver.ID(), "message_id", msg.ID, "error", err)
				if err := receiver.Close(); err != nil {
					s.log.Debug("Receiver connection already closed", "error", err)
				}
			}
		}
	}

	echoErr := r.send(ctx, s.conn, msg)

	if _, err := r.store.Save(msg); err != nil {
		s.log.Error("Message not persisted", "receiver_id", msg.ReceiverID, "message_id", msg.ID, "error", err)
	}

	if echoErr != nil {
		return fmt.Errorf("%w: echo to sender: %v", errors.ErrDeliveryFailed, echoErr)
	}
	return nil
}

func (r *Relay) parse(payload []byte) (domain.InboundMessage, error) {
	var inbound domain.InboundMessage
	if err := json.Unmarshal(payload, &inbound); err != nil {
		return domain.InboundMessage{}, fmt.Errorf("%w: %v", errors.ErrMalformedPayload, err)
	}
	if err := payloadValidator.Struct(inbound); err != nil {
		return domain.InboundMessage{}, fmt.Errorf("%w: %v", errors.ErrMalformedPayload, err)
	}
	if r.maxContentLength > 0 && len(*inbound.Message) > r.maxContentLength {
		return domain.InboundMessage{}, fmt.Errorf("%w: message exceeds %d bytes",
			errors.ErrMalformedPayload, r.maxContentLength)
	}
	return inbound, nil
}

func (r *Relay) send(ctx context.Context, handle contract.Handle, msg domain.Message) error {
	sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()
	return handle.Send(sendCtx, msg)
}

// close runs on every exit path once the connection was registered.
func (r *Relay) close(ctx context.Context, s *session) {
	s.transition(Closing)

	released := r.registry.Release(s.identity, s.conn)
	if released {
		r.setPresence(ctx, s, false)
	}
	if err := s.conn.Close(); err != nil {
		s.log.Debug("Connection already closed", "error", err)
	}

	s.transition(Closed)
	s.log.Info("Connection closed", "released", released)
}

// setPresence never fails the connection: the mirror is informational.
func (r *Relay) setPresence(ctx context.Context, s *session, online bool) {
	if r.presence == nil {
		return
	}
	presenceCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.sendTimeout)
	defer cancel()

	var err error
	if online {
		err = r.presence.Online(presenceCtx, s.identity)
	} else {
		err = r.presence.Offline(presenceCtx, s.identity)
	}
	if err != nil {
		s.log.Warn("Presence update failed", "online", online, "error", err)
	}
}
