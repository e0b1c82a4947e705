package relay

import (
	"errors"
	"log/slog"
	"time"

	"go.uber.org/atomic"
)

// Options tunes the per-connection transport behaviour.
type Options struct {
	// PingInterval is how often the relay pings each connection.
	PingInterval time.Duration

	// PingTimeout is how long a connection may stay silent (no pong, no
	// frame) before it is considered dead. Must be greater than PingInterval.
	PingTimeout time.Duration

	// WriteWait bounds a single frame write.
	WriteWait time.Duration

	// MaxMessageSize is the largest inbound frame accepted.
	MaxMessageSize int64

	// SendBuffer is the outbound queue length per connection.
	SendBuffer int
}

type handlerFunc func(msg *Message)

// Hub routes inbound messages to typed handlers and owns nothing but a
// reference to the membership table. Handlers run on the sender's read
// goroutine, so different connections are served concurrently and only
// serialize on the lock of the room they touch.
type Hub struct {
	table  *Table
	opts   Options
	logger *slog.Logger

	handlers    map[string]handlerFunc
	connections *atomic.Int64
}

// NewHub creates a hub over table.
func NewHub(table *Table, opts Options, logger *slog.Logger) *Hub {
	h := &Hub{
		table:       table,
		opts:        opts,
		logger:      logger,
		connections: atomic.NewInt64(0),
	}
	h.handlers = map[string]handlerFunc{
		MessageTypeJoin:            h.handleJoin,
		MessageTypeRequestLocation: h.forwardTo(MessageTypeWakeUp, false),
		MessageTypeSendLocation:    h.forwardTo(MessageTypeUpdateMap, false),
		MessageTypeEmergencyAlert:  h.forwardTo(MessageTypeReceiveAlert, false),
		MessageTypeStopTracking:    h.forwardTo(MessageTypeSleep, true),
	}
	return h
}

// Register records a new connection. The client is not in a room yet;
// it has to send a join message first.
func (h *Hub) Register(c *Client) {
	n := h.connections.Inc()
	c.logger.Info("client registered", slog.Int64("connections", n))
}

// Unregister removes c from its room, tells the remaining member that its
// partner left and stops c's writer. A client that was already purged from
// its room leaves silently.
func (h *Hub) Unregister(c *Client) {
	code, remaining, ok := h.table.Leave(c)
	if ok {
		c.logger.Info("client left room", slog.String("room", code), slog.Int("remaining", len(remaining)))
		for _, peer := range remaining {
			peer.Send(&Message{Type: MessageTypePartnerDisconnected, RoomID: code})
		}
	}

	c.Close()
	n := h.connections.Dec()
	c.logger.Info("client unregistered", slog.Int64("connections", n))
}

// Dispatch handles one inbound message from msg's sender.
func (h *Hub) Dispatch(msg *Message) {
	handle, ok := h.handlers[msg.Type]
	if !ok {
		msg.client.logger.Warn("unknown message type", slog.String("type", msg.Type))
		return
	}
	handle(msg)
}

// Rooms returns the current room view.
func (h *Hub) Rooms() []RoomInfo {
	return h.table.Snapshot()
}

// Connections returns the number of registered connections.
func (h *Hub) Connections() int64 {
	return h.connections.Load()
}

func (h *Hub) handleJoin(msg *Message) {
	c := msg.client
	code := msg.RoomID
	log := c.logger.With(slog.String("room", code))

	res, err := h.table.Join(code, c)
	for _, ghost := range res.Purged {
		log.Info("purged stale member", slog.String("ghost", ghost.ID))
	}

	switch {
	case errors.Is(err, ErrRoomFull):
		log.Info("join rejected: room full")
		c.Send(errorMessage(code, "Room is Full (Max 2 People)"))
		return
	case errors.Is(err, ErrAlreadyInRoom):
		log.Info("join rejected: already in a room", slog.String("current", c.RoomCode()))
		c.Send(errorMessage(code, "Already joined room "+c.RoomCode()))
		return
	case errors.Is(err, ErrEmptyRoomCode):
		c.Send(errorMessage(code, "Room code is required"))
		return
	case err != nil:
		log.Error("join failed", slog.Any("err", err))
		c.Send(errorMessage(code, err.Error()))
		return
	}

	c.Send(&Message{Type: MessageTypeJoinSuccess, RoomID: code})
	if res.AlreadyJoined {
		return
	}

	log.Info("client joined room", slog.Int("members", len(res.Partners)+1))
	for _, partner := range res.Partners {
		partner.Send(&Message{Type: MessageTypePartnerConnected, RoomID: code})
	}
}

// forwardTo returns a handler that relays the payload under a new event name
// to the room named in the message, or the sender's own room when the
// message names none.
func (h *Hub) forwardTo(event string, includeSender bool) handlerFunc {
	return func(msg *Message) {
		c := msg.client

		code := msg.RoomID
		if code == "" {
			code = c.RoomCode()
		}
		if code == "" {
			c.logger.Info("forward rejected", slog.String("type", msg.Type), slog.Any("error", ErrNotInRoom))
			c.Send(errorMessage("", "You must join a room first"))
			return
		}

		out := &Message{Type: event, RoomID: code, Payload: msg.Payload}
		delivered := 0
		for _, m := range h.table.Members(code) {
			if m == c && !includeSender {
				continue
			}
			if m.Send(out) {
				delivered++
			}
		}

		c.logger.Debug("forwarded",
			slog.String("room", code),
			slog.String("type", msg.Type),
			slog.String("as", event),
			slog.Int("delivered", delivered),
		)
	}
}
