package connection

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lazharichir/pokerroom/server/protocol"
	"go.uber.org/zap"
)

var (
	ErrClosed       = errors.New("connection: session closed")
	ErrSlowConsumer = errors.New("connection: send buffer full")
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
	sendBuffer     = 256
)

// Client is a websocket session. Messages are queued on Send and written by
// WritePump; ReadPump feeds incoming frames to a handler.
type Client struct {
	id       string
	playerID string
	roomID   string
	conn     *websocket.Conn
	send     chan []byte
	logger   *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewClient wraps an upgraded connection for one player in one room.
func NewClient(conn *websocket.Conn, roomID, playerID string, logger *zap.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:       id,
		playerID: playerID,
		roomID:   roomID,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		logger:   logger.With(zap.String("session_id", id), zap.String("player_id", playerID)),
	}
}

func (c *Client) ID() string       { return c.id }
func (c *Client) PlayerID() string { return c.playerID }
func (c *Client) RoomID() string   { return c.roomID }

// Send queues msg. A client that falls a full buffer behind is closed.
func (c *Client) Send(msg protocol.ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("connection: encode %s: %w", msg.Type, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.closed = true
		close(c.send)
		return ErrSlowConsumer
	}
}

// Close stops the session once queued messages are written.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

// ReadPump reads frames until the connection fails, passing each one to
// onMessage. It closes the session on return.
func (c *Client) ReadPump(onMessage func(data []byte)) {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Info("read failed", zap.Error(err))
			}
			return
		}
		onMessage(message)
	}
}

// WritePump writes queued messages and keeps the connection alive with
// pings. It closes the connection on return.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("write failed", zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
