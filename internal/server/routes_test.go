package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kruthinvinay/live-tracker/internal/relay"
)

var testOptions = relay.Options{
	PingInterval:   10 * time.Second,
	PingTimeout:    15 * time.Second,
	WriteWait:      time.Second,
	MaxMessageSize: 4096,
	SendBuffer:     16,
}

func startRelay(t *testing.T, opts relay.Options) (*httptest.Server, *relay.Hub) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := relay.NewHub(relay.NewTable(), opts, logger)
	srv := httptest.NewServer(NewRouter(hub, logger))
	t.Cleanup(srv.Close)
	return srv, hub
}

type peer struct {
	t     *testing.T
	conn  *websocket.Conn
	codec relay.Codec
}

func dial(t *testing.T, srv *httptest.Server, subprotocols ...string) *peer {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	dialer := websocket.Dialer{Subprotocols: subprotocols}

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return &peer{t: t, conn: conn, codec: relay.CodecFor(conn.Subprotocol())}
}

func (p *peer) send(typ, room string, payload any) {
	p.t.Helper()
	msg := &relay.Message{Type: typ, RoomID: room}
	if payload != nil {
		msg.Payload = relay.PayloadOf(payload)
	}
	data, err := p.codec.Encode(msg)
	if err != nil {
		p.t.Fatalf("encode: %v", err)
	}
	if err := p.conn.WriteMessage(p.codec.FrameType(), data); err != nil {
		p.t.Fatalf("write: %v", err)
	}
}

// sendRaw writes frame to the relay exactly as given.
func (p *peer) sendRaw(frame string) {
	p.t.Helper()
	if err := p.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		p.t.Fatalf("write: %v", err)
	}
}

// readRaw returns the next frame from the relay undecoded.
func (p *peer) readRaw() string {
	p.t.Helper()
	p.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := p.conn.ReadMessage()
	if err != nil {
		p.t.Fatalf("read: %v", err)
	}
	return string(data)
}

func (p *peer) expect(typ string) *relay.Message {
	p.t.Helper()
	p.conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := p.conn.ReadMessage()
	if err != nil {
		p.t.Fatalf("waiting for %q: %v", typ, err)
	}
	msg, err := p.codec.Decode(data)
	if err != nil {
		p.t.Fatalf("decode: %v", err)
	}
	if msg.Type != typ {
		p.t.Fatalf("expected %q, got %q (payload %v)", typ, msg.Type, msg.Payload)
	}
	return msg
}

func payloadAs(t *testing.T, msg *relay.Message, out any) {
	t.Helper()
	if err := msg.Payload.Decode(out); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
}

func joinPair(t *testing.T, srv *httptest.Server, room string) (*peer, *peer) {
	t.Helper()
	a, b := dial(t, srv), dial(t, srv)

	a.send(relay.MessageTypeJoin, room, nil)
	a.expect(relay.MessageTypeJoinSuccess)

	b.send(relay.MessageTypeJoin, room, nil)
	b.expect(relay.MessageTypeJoinSuccess)
	a.expect(relay.MessageTypePartnerConnected)

	return a, b
}

func TestHealth(t *testing.T) {
	srv, _ := startRelay(t, testOptions)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "healthy") {
		t.Fatalf("unexpected response %d %q", resp.StatusCode, body)
	}
}

func TestRoomFullAndAlertScenario(t *testing.T) {
	srv, hub := startRelay(t, testOptions)
	a, b := joinPair(t, srv, "007")

	c := dial(t, srv)
	c.send(relay.MessageTypeJoin, "007", nil)
	msg := c.expect(relay.MessageTypeError)

	var errPayload relay.ErrorPayload
	payloadAs(t, msg, &errPayload)
	if !strings.Contains(errPayload.Error, "Room is Full") {
		t.Fatalf("unexpected error %q", errPayload.Error)
	}

	alert := relay.Alert{Location: relay.Location{Latitude: 12.9, Longitude: 77.6}, PhoneNumber: "+91 98450 00000"}
	a.send(relay.MessageTypeEmergencyAlert, "007", alert)

	var got relay.Alert
	payloadAs(t, b.expect(relay.MessageTypeReceiveAlert), &got)
	if got != alert {
		t.Fatalf("alert altered: got %+v want %+v", got, alert)
	}

	// stop_tracking reaches the sender too; if the alert had echoed back to
	// A it would arrive before this.
	a.send(relay.MessageTypeStopTracking, "007", nil)
	a.expect(relay.MessageTypeSleep)
	b.expect(relay.MessageTypeSleep)

	rooms := hub.Rooms()
	if len(rooms) != 1 || rooms[0].Members != 2 {
		t.Fatalf("membership changed: %v", rooms)
	}
}

func TestRequestLocationRoundTrip(t *testing.T) {
	srv, _ := startRelay(t, testOptions)
	tracker, target := joinPair(t, srv, "home")

	tracker.send(relay.MessageTypeRequestLocation, "home", nil)
	target.expect(relay.MessageTypeWakeUp)

	target.send(relay.MessageTypeSendLocation, "home", relay.Location{Latitude: 51.5, Longitude: -0.12})

	var loc relay.Location
	payloadAs(t, tracker.expect(relay.MessageTypeUpdateMap), &loc)
	if loc.Latitude != 51.5 || loc.Longitude != -0.12 {
		t.Fatalf("unexpected location %+v", loc)
	}
}

func TestMsgpackAndJSONPeersInteroperate(t *testing.T) {
	srv, _ := startRelay(t, testOptions)

	a := dial(t, srv, relay.SubprotocolMsgpack)
	if a.codec.Name() != relay.SubprotocolMsgpack {
		t.Fatalf("msgpack not negotiated, got %q", a.conn.Subprotocol())
	}
	b := dial(t, srv)

	a.send(relay.MessageTypeJoin, "mixed", nil)
	a.expect(relay.MessageTypeJoinSuccess)
	b.send(relay.MessageTypeJoin, "mixed", nil)
	b.expect(relay.MessageTypeJoinSuccess)
	a.expect(relay.MessageTypePartnerConnected)

	a.send(relay.MessageTypeSendLocation, "mixed", relay.Location{Latitude: 12.9, Longitude: 77.6})

	var loc relay.Location
	payloadAs(t, b.expect(relay.MessageTypeUpdateMap), &loc)
	if loc.Latitude != 12.9 || loc.Longitude != 77.6 {
		t.Fatalf("unexpected location %+v", loc)
	}
}

func TestPayloadForwardedByteForByte(t *testing.T) {
	srv, _ := startRelay(t, testOptions)
	a, b := joinPair(t, srv, "007")

	tests := []struct {
		name    string
		typ     string
		event   string
		payload string
	}{
		{
			name:    "precision and key order",
			typ:     relay.MessageTypeSendLocation,
			event:   relay.MessageTypeUpdateMap,
			payload: `{"longitude":77.6,"latitude":12.90000000000000000001,"accuracy":12345678901234567891}`,
		},
		{
			name:    "out of range coordinate",
			typ:     relay.MessageTypeSendLocation,
			event:   relay.MessageTypeUpdateMap,
			payload: `{"latitude":1e400,"longitude":77.6}`,
		},
		{
			name:    "wrong types",
			typ:     relay.MessageTypeSendLocation,
			event:   relay.MessageTypeUpdateMap,
			payload: `{"latitude":"north","longitude":null}`,
		},
		{
			name:    "alert with whitespace",
			typ:     relay.MessageTypeEmergencyAlert,
			event:   relay.MessageTypeReceiveAlert,
			payload: `{ "phone_number": "+91 98450 00000", "location": {"latitude": 12.9, "longitude": 77.6} }`,
		},
	}

	for _, tt := range tests {
		a.sendRaw(`{"type":"` + tt.typ + `","room_id":"007","payload":` + tt.payload + `}`)

		want := `{"type":"` + tt.event + `","room_id":"007","payload":` + tt.payload + `}`
		if got := b.readRaw(); got != want {
			t.Fatalf("%s: frame = %s, want %s", tt.name, got, want)
		}
	}
}

func TestDisconnectNotifiesPartner(t *testing.T) {
	srv, hub := startRelay(t, testOptions)
	a, b := joinPair(t, srv, "007")

	a.conn.Close()
	b.expect(relay.MessageTypePartnerDisconnected)

	deadline := time.Now().Add(2 * time.Second)
	for {
		rooms := hub.Rooms()
		if len(rooms) == 1 && rooms[0].Members == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("room not shrunk: %v", rooms)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSilentPeerDroppedAfterPingTimeout(t *testing.T) {
	opts := testOptions
	opts.PingInterval = 50 * time.Millisecond
	opts.PingTimeout = 200 * time.Millisecond
	srv, _ := startRelay(t, opts)

	a := dial(t, srv)
	a.send(relay.MessageTypeJoin, "quiet", nil)
	a.expect(relay.MessageTypeJoinSuccess)

	// b joins and then never reads again, so it never answers a ping.
	b := dial(t, srv)
	b.send(relay.MessageTypeJoin, "quiet", nil)

	a.expect(relay.MessageTypePartnerConnected)
	a.expect(relay.MessageTypePartnerDisconnected)

	c := dial(t, srv)
	c.send(relay.MessageTypeJoin, "quiet", nil)
	c.expect(relay.MessageTypeJoinSuccess)
	a.expect(relay.MessageTypePartnerConnected)
}

func TestRoomsListing(t *testing.T) {
	srv, _ := startRelay(t, testOptions)
	joinPair(t, srv, "b-room")
	solo := dial(t, srv)
	solo.send(relay.MessageTypeJoin, "a-room", nil)
	solo.expect(relay.MessageTypeJoinSuccess)

	resp, err := http.Get(srv.URL + "/rooms")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var rooms []relay.RoomInfo
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []relay.RoomInfo{{Code: "a-room", Members: 1}, {Code: "b-room", Members: 2}}
	if len(rooms) != len(want) || rooms[0] != want[0] || rooms[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, rooms)
	}
	if resp.Header.Get("X-Connections") != "3" {
		t.Fatalf("unexpected connection count %q", resp.Header.Get("X-Connections"))
	}
}
