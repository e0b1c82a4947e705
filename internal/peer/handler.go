package peer

import "github.com/kruthinvinay/live-tracker/internal/relay"

// Handler routes incoming relay messages to typed channels. A message whose
// channel is full is dropped, so callers only need to drain the channels
// they care about.
type Handler struct {
	client *Client

	JoinSuccess         chan string
	PartnerConnected    chan struct{}
	PartnerDisconnected chan struct{}
	WakeUp              chan struct{}
	Location            chan relay.Location
	Alert               chan relay.Alert
	Sleep               chan struct{}
	Error               chan string

	// Done is closed once the connection's incoming stream ends.
	Done chan struct{}
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:              client,
		JoinSuccess:         make(chan string, 1),
		PartnerConnected:    make(chan struct{}, 1),
		PartnerDisconnected: make(chan struct{}, 1),
		WakeUp:              make(chan struct{}, 1),
		Location:            make(chan relay.Location, 8),
		Alert:               make(chan relay.Alert, 8),
		Sleep:               make(chan struct{}, 1),
		Error:               make(chan string, 4),
		Done:                make(chan struct{}),
	}
}

// Start begins listening to incoming messages and routing them.
func (h *Handler) Start() {
	defer close(h.Done)

	for msg := range h.client.Incoming() {
		switch msg.Type {
		case relay.MessageTypeJoinSuccess:
			offer(h.JoinSuccess, msg.RoomID)

		case relay.MessageTypePartnerConnected:
			offer(h.PartnerConnected, struct{}{})

		case relay.MessageTypePartnerDisconnected:
			offer(h.PartnerDisconnected, struct{}{})

		case relay.MessageTypeWakeUp:
			offer(h.WakeUp, struct{}{})

		case relay.MessageTypeSleep:
			offer(h.Sleep, struct{}{})

		case relay.MessageTypeUpdateMap:
			var loc relay.Location
			if err := msg.Payload.Decode(&loc); err != nil {
				offer(h.Error, "Failed to parse location payload")
				continue
			}
			offer(h.Location, loc)

		case relay.MessageTypeReceiveAlert:
			var alert relay.Alert
			if err := msg.Payload.Decode(&alert); err != nil {
				offer(h.Error, "Failed to parse alert payload")
				continue
			}
			offer(h.Alert, alert)

		case relay.MessageTypeError:
			var errPayload relay.ErrorPayload
			if err := msg.Payload.Decode(&errPayload); err != nil || errPayload.Error == "" {
				offer(h.Error, "Unknown error from relay")
				continue
			}
			offer(h.Error, errPayload.Error)
		}
	}
}

func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}
