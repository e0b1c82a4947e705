package relay

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Websocket subprotocols a client may offer in Sec-WebSocket-Protocol.
const (
	SubprotocolJSON    = "live-tracker.json"
	SubprotocolMsgpack = "live-tracker.msgpack"
)

// Codec turns websocket frames into Messages and back. Marshal and
// Unmarshal handle payload bodies on their own.
type Codec interface {
	Name() string
	FrameType() int
	Encode(msg *Message) ([]byte, error)
	Decode(data []byte) (*Message, error)
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Subprotocols lists the subprotocols the relay can negotiate, preferred first.
func Subprotocols() []string {
	return []string{SubprotocolJSON, SubprotocolMsgpack}
}

// CodecFor returns the codec for a negotiated subprotocol. Anything
// unrecognised, including no subprotocol at all, falls back to JSON.
func CodecFor(subprotocol string) Codec {
	if subprotocol == SubprotocolMsgpack {
		return msgpackCodec{}
	}
	return jsonCodec{}
}

type jsonFrame struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"room_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type jsonCodec struct{}

func (jsonCodec) Name() string   { return SubprotocolJSON }
func (jsonCodec) FrameType() int { return websocket.TextMessage }

func (c jsonCodec) Encode(msg *Message) ([]byte, error) {
	payload, err := msg.Payload.encodeFor(c)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msg.Type, err)
	}

	frame, err := json.Marshal(jsonFrame{Type: msg.Type, RoomID: msg.RoomID})
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return frame, nil
	}

	// Splice the payload in as is; marshalling a RawMessage would compact
	// and HTML-escape it.
	out := make([]byte, 0, len(frame)+len(payload)+len(`,"payload":`))
	out = append(out, frame[:len(frame)-1]...)
	out = append(out, `,"payload":`...)
	out = append(out, payload...)
	return append(out, '}'), nil
}

func (c jsonCodec) Decode(data []byte) (*Message, error) {
	var f jsonFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode json frame: %w", err)
	}
	msg := &Message{Type: f.Type, RoomID: f.RoomID}
	if len(f.Payload) > 0 {
		msg.Payload = RawPayload(c.Name(), f.Payload)
	}
	return msg, nil
}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type msgpackFrame struct {
	Type    string             `msgpack:"type"`
	RoomID  string             `msgpack:"room_id,omitempty"`
	Payload msgpack.RawMessage `msgpack:"payload,omitempty"`
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string   { return SubprotocolMsgpack }
func (msgpackCodec) FrameType() int { return websocket.BinaryMessage }

func (c msgpackCodec) Encode(msg *Message) ([]byte, error) {
	payload, err := msg.Payload.encodeFor(c)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msg.Type, err)
	}
	return msgpack.Marshal(&msgpackFrame{Type: msg.Type, RoomID: msg.RoomID, Payload: payload})
}

func (c msgpackCodec) Decode(data []byte) (*Message, error) {
	var f msgpackFrame
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode msgpack frame: %w", err)
	}
	msg := &Message{Type: f.Type, RoomID: f.RoomID}
	if len(f.Payload) > 0 {
		msg.Payload = RawPayload(c.Name(), f.Payload)
	}
	return msg, nil
}

func (msgpackCodec) Marshal(v any) ([]byte, error) { return msgpack.Marshal(v) }

func (msgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }
