package relay

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
)

// Client is a wrapper for a single websocket connection (a peer).
type Client struct {
	// ID uniquely identifies the connection for its lifetime.
	ID string

	hub   *Hub
	conn  *websocket.Conn
	codec Codec

	// send is a buffered channel for all outbound messages.
	// It is never closed; done signals the writer to stop instead,
	// so a late forward to a closed connection is simply dropped.
	send      chan *Message
	done      chan struct{}
	closeOnce sync.Once

	// alive turns false once the transport stops answering pings or a
	// write fails. The hub consults it during the join-time sweep.
	alive *atomic.Bool

	// room is the code of the room the client is in, or empty.
	room *atomic.String

	logger *slog.Logger
}

// NewClient wraps an upgraded websocket connection. The caller registers it
// with the hub and starts ReadPump and WritePump.
func NewClient(hub *Hub, conn *websocket.Conn, codec Codec) *Client {
	id := uuid.NewString()
	attrs := []any{slog.String("conn", id), slog.String("codec", codec.Name())}
	if conn != nil {
		attrs = append(attrs, slog.String("remote", conn.RemoteAddr().String()))
	}

	return &Client{
		ID:     id,
		hub:    hub,
		conn:   conn,
		codec:  codec,
		send:   make(chan *Message, hub.opts.SendBuffer),
		done:   make(chan struct{}),
		alive:  atomic.NewBool(true),
		room:   atomic.NewString(""),
		logger: hub.logger.With(attrs...),
	}
}

// Alive reports whether the transport is still considered live.
func (c *Client) Alive() bool {
	return c.alive.Load()
}

// RoomCode returns the code of the room the client is in, or "".
func (c *Client) RoomCode() string {
	return c.room.Load()
}

// Send queues msg for delivery without blocking. It reports false when the
// message was dropped because the client is closed or its buffer is full.
func (c *Client) Send(msg *Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	default:
		c.logger.Warn("send buffer full, dropping message", slog.String("type", msg.Type))
		return false
	}
}

// Close stops the write pump. It is safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.alive.Store(false)
		close(c.done)
	})
}

func (c *Client) markDead() {
	if c.alive.CAS(true, false) {
		c.logger.Debug("transport marked dead")
	}
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadPump() {
	// When this function exits (e.g., connection closes or the pong
	// deadline expires), unregister the client.
	defer func() {
		c.markDead()
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	pongWait := c.hub.opts.PingTimeout

	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info("connection lost", slog.Any("err", err))
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		msg, err := c.codec.Decode(data)
		if err != nil {
			c.logger.Warn("dropping undecodable frame", slog.Any("err", err))
			continue
		}

		msg.client = c
		c.hub.Dispatch(msg)
	}
}

// WritePump pumps messages from the send queue to the websocket connection
// and pings the peer every PingInterval.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.hub.opts.PingInterval)
	writeWait := c.hub.opts.WriteWait

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			data, err := c.codec.Encode(msg)
			if err != nil {
				c.logger.Error("failed to encode message", slog.String("type", msg.Type), slog.Any("err", err))
				continue
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				c.logger.Info("write failed", slog.Any("err", err))
				c.markDead()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.markDead()
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
