package relay

import "errors"

// Message defines the envelope for every client->relay and relay->client
// frame.
type Message struct {
	Type    string
	RoomID  string
	Payload Payload

	// client is the connection that sent the message.
	// It's used internally by the Hub and never serialized.
	client *Client
}

// Inbound message types.
const (
	MessageTypeJoin            = "join"
	MessageTypeRequestLocation = "request_location"
	MessageTypeSendLocation    = "send_location"
	MessageTypeEmergencyAlert  = "emergency_alert"
	MessageTypeStopTracking    = "stop_tracking"
)

// Outbound message types.
const (
	MessageTypeJoinSuccess         = "join_success"
	MessageTypeError               = "error"
	MessageTypePartnerConnected    = "partner_connected"
	MessageTypePartnerDisconnected = "partner_disconnected"
	MessageTypeWakeUp              = "wake_up_and_send_location"
	MessageTypeUpdateMap           = "update_map"
	MessageTypeReceiveAlert        = "receive_alert"
	MessageTypeSleep               = "sleep"
)

// ErrNoPayload is returned when decoding a message that carried no payload.
var ErrNoPayload = errors.New("message has no payload")

// Payload is a message body.
//
// A payload read off a connection holds the exact bytes it arrived with and
// the subprotocol of the codec that framed them; writing it to a connection
// with the same codec reproduces those bytes. A payload built with
// PayloadOf holds a Go value that is encoded by whichever codec writes it.
type Payload struct {
	raw         []byte
	subprotocol string
	value       any
}

// PayloadOf wraps v as a payload.
func PayloadOf(v any) Payload {
	return Payload{value: v}
}

// RawPayload wraps bytes already encoded with the codec for subprotocol.
func RawPayload(subprotocol string, raw []byte) Payload {
	return Payload{raw: raw, subprotocol: subprotocol}
}

// IsZero reports whether the payload is absent.
func (p Payload) IsZero() bool {
	return len(p.raw) == 0 && p.value == nil
}

// Raw returns the payload's wire bytes and their subprotocol. Both are empty
// for payloads built with PayloadOf.
func (p Payload) Raw() ([]byte, string) {
	return p.raw, p.subprotocol
}

// Decode unmarshals the payload into out.
func (p Payload) Decode(out any) error {
	switch {
	case len(p.raw) > 0:
		return CodecFor(p.subprotocol).Unmarshal(p.raw, out)
	case p.value != nil:
		data, err := jsonCodec{}.Marshal(p.value)
		if err != nil {
			return err
		}
		return jsonCodec{}.Unmarshal(data, out)
	}
	return ErrNoPayload
}

// encodeFor returns the payload encoded for c. Bytes that are already in c's
// encoding are returned untouched; bytes from another codec are transcoded.
func (p Payload) encodeFor(c Codec) ([]byte, error) {
	switch {
	case len(p.raw) > 0 && CodecFor(p.subprotocol).Name() == c.Name():
		return p.raw, nil
	case len(p.raw) > 0:
		var v any
		if err := CodecFor(p.subprotocol).Unmarshal(p.raw, &v); err != nil {
			return nil, err
		}
		return c.Marshal(v)
	case p.value != nil:
		return c.Marshal(p.value)
	}
	return nil, nil
}

// Location is the coordinate pair carried by send_location and
// emergency_alert. The relay never inspects it.
type Location struct {
	Latitude  float64 `json:"latitude" msgpack:"latitude"`
	Longitude float64 `json:"longitude" msgpack:"longitude"`
}

// Alert is the emergency_alert / receive_alert payload.
type Alert struct {
	Location    Location `json:"location" msgpack:"location"`
	PhoneNumber string   `json:"phone_number" msgpack:"phone_number"`
}

// ErrorPayload is the payload of an error message sent to a single client.
type ErrorPayload struct {
	Error string `json:"error" msgpack:"error"`
}

func errorMessage(roomID, text string) *Message {
	return &Message{
		Type:    MessageTypeError,
		RoomID:  roomID,
		Payload: PayloadOf(ErrorPayload{Error: text}),
	}
}
