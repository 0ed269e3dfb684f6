package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/viewtl/viewlink/internal/message"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// drain reads and discards frames until the peer goes away.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// frame is the generic shape of an outbound frame.
type frame map[string]any

func (f frame) typ() string {
	s, _ := f["type"].(string)
	return s
}

// recordFrames forwards every decoded frame to out until the peer goes away.
func recordFrames(t *testing.T, out chan<- frame) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var f frame
			if err := json.Unmarshal(data, &f); err != nil {
				t.Errorf("server got malformed frame %q: %v", data, err)
				return
			}
			out <- f
		}
	}
}

func testChannelConfig() ChannelConfig {
	return ChannelConfig{
		HeartbeatInterval: time.Hour,
		WriteTimeout:      time.Second,
		HandshakeTimeout:  time.Second,
		BufferSize:        16,
	}
}

func receive(t *testing.T, ch <-chan message.Inbound) message.Inbound {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("messages closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
		return nil
	}
}

func TestChannel_HeartbeatOnOpen(t *testing.T) {
	frames := make(chan frame, 16)
	server := mockWSServer(t, recordFrames(t, frames))
	defer server.Close()

	c, err := Open(context.Background(), wsURL(server), testChannelConfig(), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	select {
	case f := <-frames:
		if f.typ() != message.TypePing {
			t.Errorf("first frame type = %q, want ping", f.typ())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no heartbeat sent on open")
	}
}

func TestChannel_HeartbeatRepeats(t *testing.T) {
	frames := make(chan frame, 64)
	server := mockWSServer(t, recordFrames(t, frames))
	defer server.Close()

	cfg := testChannelConfig()
	cfg.HeartbeatInterval = 20 * time.Millisecond
	c, err := Open(context.Background(), wsURL(server), cfg, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	for i := 0; i < 3; i++ {
		select {
		case f := <-frames:
			if f.typ() != message.TypePing {
				t.Errorf("frame %d type = %q, want ping", i, f.typ())
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d pings received", i)
		}
	}
}

func TestChannel_InterleavedSends(t *testing.T) {
	const (
		senders = 8
		perSend = 25
	)

	frames := make(chan frame, senders*perSend+1024)
	server := mockWSServer(t, recordFrames(t, frames))
	defer server.Close()

	cfg := testChannelConfig()
	cfg.HeartbeatInterval = 2 * time.Millisecond
	c, err := Open(context.Background(), wsURL(server), cfg, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	var wg sync.WaitGroup
	for s := 0; s < senders; s++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perSend; i++ {
				if err := c.Send(message.Get{Key: fmt.Sprintf("k-%d-%d", s, i)}); err != nil {
					t.Errorf("Send failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	deadline := time.After(5 * time.Second)
	for len(seen) < senders*perSend {
		select {
		case f := <-frames:
			switch f.typ() {
			case message.TypePing:
				if len(f) != 1 {
					t.Errorf("ping frame has extra fields: %v", f)
				}
			case message.TypeGet:
				key, _ := f["key"].(string)
				if seen[key] {
					t.Errorf("duplicate get %q", key)
				}
				seen[key] = true
			default:
				t.Fatalf("unexpected frame %v", f)
			}
		case <-deadline:
			t.Fatalf("received %d of %d gets", len(seen), senders*perSend)
		}
	}
}

func TestChannel_UnknownTypeKeepsFlowing(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"firmware-update","version":"2.1"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"battery","percentage":81,"charging":true}`))
		drain(conn)
	})
	defer server.Close()

	c, err := Open(context.Background(), wsURL(server), testChannelConfig(), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	first := receive(t, c.Messages())
	unknown, ok := first.(*message.Unknown)
	if !ok {
		t.Fatalf("first message = %T, want *message.Unknown", first)
	}
	if unknown.Type != "firmware-update" {
		t.Errorf("Unknown.Type = %q", unknown.Type)
	}
	if !strings.Contains(unknown.Raw, `"version":"2.1"`) {
		t.Errorf("Unknown.Raw = %q", unknown.Raw)
	}

	second := receive(t, c.Messages())
	battery, ok := second.(*message.Battery)
	if !ok {
		t.Fatalf("second message = %T, want *message.Battery", second)
	}
	if battery.Percentage != 81 || !battery.Charging {
		t.Errorf("Battery = %+v", battery)
	}
}

func TestChannel_MalformedFrameSkipped(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"percentage":3}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"battery","percentage":"low"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pong"}`))
		drain(conn)
	})
	defer server.Close()

	c, err := Open(context.Background(), wsURL(server), testChannelConfig(), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	msg := receive(t, c.Messages())
	if _, ok := msg.(*message.Pong); !ok {
		t.Fatalf("message = %T, want *message.Pong", msg)
	}
	if err := c.Err(); err != nil {
		t.Errorf("Err() = %v after malformed frames, want nil", err)
	}
}

func TestChannel_PeerDisconnect(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		conn.ReadMessage()
	})
	defer server.Close()

	c, err := Open(context.Background(), wsURL(server), testChannelConfig(), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c.Close()

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not notice peer going away")
	}

	if err := c.Err(); !errors.Is(err, ErrTransport) {
		t.Errorf("Err() = %v, want ErrTransport", err)
	}
	if _, ok := <-c.Messages(); ok {
		t.Error("Messages() not closed")
	}
	if err := c.Send(message.Ping{}); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Send() after failure = %v, want ErrChannelClosed", err)
	}
}

func TestChannel_Close(t *testing.T) {
	server := mockWSServer(t, drain)
	defer server.Close()

	c, err := Open(context.Background(), wsURL(server), testChannelConfig(), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if c.ID.String() == "" {
		t.Error("channel has no ID")
	}
	if err := c.Err(); err != nil {
		t.Errorf("Err() on open channel = %v", err)
	}

	if err := c.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	if err := c.Err(); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Err() = %v, want ErrChannelClosed", err)
	}
	if _, ok := <-c.Messages(); ok {
		t.Error("Messages() not closed")
	}
	if err := c.Send(message.Get{Key: "camera"}); !errors.Is(err, ErrChannelClosed) {
		t.Errorf("Send() = %v, want ErrChannelClosed", err)
	}
}

func TestOpen_DialFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(server)
	server.Close()

	_, err := Open(context.Background(), url, testChannelConfig(), nil)
	if !errors.Is(err, ErrTransport) {
		t.Errorf("Open() error = %v, want ErrTransport", err)
	}
}
