package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to the peer with this period.
	pingPeriod = 54 * time.Second

	// Outbound queue capacity per connection. A member that falls this far
	// behind is dropped rather than allowed to stall the group.
	sendQueueSize = 256
)

// Client is one live WebSocket connection. Each client owns a bounded
// outbound queue drained by a single write pump, so events enqueued in
// broadcast order are written in that order.
type Client struct {
	// ID distinguishes connections of the same user; echo suppression keys
	// on it rather than on the user id.
	ID     string
	UserID int64

	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
	log  *zap.Logger
}

func NewClient(userID int64, conn *websocket.Conn, log *zap.Logger) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
		log:    log,
	}
}

// Queue enqueues a payload for delivery without blocking. A closed client is
// a no-op; a full queue closes the client (slow-consumer policy).
func (c *Client) Queue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		c.log.Warn("dropping slow websocket client",
			zap.String("conn_id", c.ID),
			zap.Int64("user_id", c.UserID),
		)
		c.Close()
		return false
	}
}

// Close shuts the connection down. Safe to call multiple times and from any
// goroutine.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// WritePump drains the outbound queue onto the wire. Run it in its own
// goroutine, one per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
