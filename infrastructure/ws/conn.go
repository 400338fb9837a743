package ws

import (
	"chat-relay/domain"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var ErrClosed = fmt.Errorf("websocket connection closed")

// Conn adapts a gorilla websocket to contract.Conn.
// Writes are serialized because several relay goroutines may target the same receiver.
type Conn struct {
	id        string
	conn      *websocket.Conn
	writeMu   sync.Mutex
	writeWait time.Duration
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func NewConn(conn *websocket.Conn, readLimit int64, writeWait time.Duration) *Conn {
	if readLimit > 0 {
		conn.SetReadLimit(readLimit)
	}
	return &Conn{id: uuid.NewString(), conn: conn, writeWait: writeWait}
}

func (c *Conn) ID() string {
	return c.id
}

// Send writes msg as one JSON text frame.
// The write deadline is the earlier of ctx's deadline and the configured write wait.
func (c *Conn) Send(ctx context.Context, msg domain.Message) error {
	if c.closed.Load() {
		return ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(c.writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteJSON(domain.ToOutbound(msg))
}

// Receive blocks until the next data frame.
// A close from the peer, or from Close on this side, is reported as io.EOF.
// Cancelling ctx unblocks the read and leaves the connection unusable.
func (c *Conn) Receive(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	_, payload, err := c.conn.ReadMessage()
	if err == nil {
		return payload, nil
	}
	switch {
	case c.closed.Load():
		return nil, io.EOF
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
		websocket.CloseAbnormalClosure):
		return nil, io.EOF
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		return nil, err
	}
}

// Close sends a normal closure frame and releases the socket. Safe to call many times.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		// WriteControl may run concurrently with a pending WriteJSON
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.writeWait))
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
