package websocket

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"go.uber.org/multierr"
)

const closeGracePeriod = time.Second

var _ contract.Connection = (*Connection)(nil)

// Connection wraps one upgraded websocket.
// Gorilla allows a single concurrent writer, writes are serialized here.
type Connection struct {
	id      string
	conn    *ws.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
}

func NewConnection(conn *ws.Conn) *Connection {
	return &Connection{id: uuid.NewString(), conn: conn}
}

func (c *Connection) ID() string { return c.id }

// Send writes one frame. The context deadline, if any, bounds the write.
func (c *Connection) Send(ctx context.Context, event domain.EventKind, payload any) error {
	data, err := EncodeFrame(event, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return errors.ErrConnectionClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(ws.TextMessage, data)
}

// Close sends a close frame and releases the socket. Safe to call more than once.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	err := c.conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		time.Now().Add(closeGracePeriod))
	if err == ws.ErrCloseSent {
		err = nil
	}
	return multierr.Append(err, c.conn.Close())
}
