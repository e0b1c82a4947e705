package peer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/kruthinvinay/live-tracker/internal/relay"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

var ErrClosed = errors.New("relay connection closed")

// Client manages the WebSocket connection to the relay.
type Client struct {
	conn        *websocket.Conn
	codec       relay.Codec
	serverURL   string
	subprotocol string

	incoming chan *relay.Message
	outgoing chan *relay.Message
	done     chan struct{}

	group     *errgroup.Group
	closeOnce sync.Once
}

// NewClient creates a new relay client. subprotocol selects the frame
// codec; empty means JSON.
func NewClient(serverURL, subprotocol string) *Client {
	if subprotocol == "" {
		subprotocol = relay.SubprotocolJSON
	}
	return &Client{
		serverURL:   serverURL,
		subprotocol: subprotocol,
		incoming:    make(chan *relay.Message, 16),
		outgoing:    make(chan *relay.Message, 16),
		done:        make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and starts the pumps.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Subprotocols:     []string{c.subprotocol},
	}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.conn = conn
	c.codec = relay.CodecFor(conn.Subprotocol())

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c.group = &errgroup.Group{}
	c.group.Go(c.readPump)
	c.group.Go(c.writePump)

	return nil
}

// Codec returns the negotiated codec name.
func (c *Client) Codec() string {
	if c.codec == nil {
		return ""
	}
	return c.codec.Name()
}

// readPump reads messages from the WebSocket connection.
func (c *Client) readPump() error {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return ErrClosed
			}
			return fmt.Errorf("read: %w", err)
		}

		msg, err := c.codec.Decode(data)
		if err != nil {
			slog.Default().Warn("dropping undecodable frame from relay", slog.String("codec", c.codec.Name()), slog.Any("err", err))
			continue
		}

		select {
		case c.incoming <- msg:
		case <-c.done:
			return nil
		}
	}
}

// writePump writes messages to the WebSocket connection and sends periodic pings.
func (c *Client) writePump() error {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.outgoing:
			if err := c.write(msg); err != nil {
				return err
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("ping: %w", err)
			}

		case <-c.done:
			// Flush what was queued before Close, e.g. a final stop_tracking.
			for pending := true; pending; {
				select {
				case msg := <-c.outgoing:
					if err := c.write(msg); err != nil {
						return err
					}
				default:
					pending = false
				}
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		}
	}
}

func (c *Client) write(msg *relay.Message) error {
	data, err := c.codec.Encode(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Type, err)
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(c.codec.FrameType(), data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// SendMessage queues a message for the relay.
func (c *Client) SendMessage(msg *relay.Message) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.outgoing <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Join asks the relay to put this connection in room.
func (c *Client) Join(room string) error {
	return c.SendMessage(&relay.Message{Type: relay.MessageTypeJoin, RoomID: room})
}

// RequestLocation wakes the partner in room and asks for a fresh location.
func (c *Client) RequestLocation(room string) error {
	return c.SendMessage(&relay.Message{Type: relay.MessageTypeRequestLocation, RoomID: room})
}

// SendLocation reports loc to the partner in room.
func (c *Client) SendLocation(room string, loc relay.Location) error {
	return c.SendMessage(&relay.Message{Type: relay.MessageTypeSendLocation, RoomID: room, Payload: relay.PayloadOf(loc)})
}

// EmergencyAlert sends an SOS with loc and a phone number to call back.
func (c *Client) EmergencyAlert(room string, loc relay.Location, phoneNumber string) error {
	return c.SendMessage(&relay.Message{
		Type:    relay.MessageTypeEmergencyAlert,
		RoomID:  room,
		Payload: relay.PayloadOf(relay.Alert{Location: loc, PhoneNumber: phoneNumber}),
	})
}

// StopTracking tells everyone in room to stop reporting.
func (c *Client) StopTracking(room string) error {
	return c.SendMessage(&relay.Message{Type: relay.MessageTypeStopTracking, RoomID: room})
}

// Incoming returns the channel for receiving messages. It is closed when
// the connection ends.
func (c *Client) Incoming() <-chan *relay.Message {
	return c.incoming
}

// Close closes the WebSocket connection and waits for both pumps to exit.
// The returned error is the first pump failure, if any.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	if c.group == nil {
		return nil
	}
	return c.group.Wait()
}
