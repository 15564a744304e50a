// ABOUTME: Tests for the WebSocket transport client
// ABOUTME: Runs a local websocket server to exercise handshake and routing
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/resonate-visualizer/internal/logger"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/testutil"
	"github.com/Resonate-Protocol/resonate-visualizer/pkg/protocol"
)

type helloEnvelope struct {
	Type    string               `json:"type"`
	Payload protocol.ClientHello `json:"payload"`
}

// newServer starts a websocket server running handle for one connection.
// The returned stop func waits for the handler and shuts the server down.
func newServer(t *testing.T, handle func(conn *websocket.Conn)) (string, func()) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	done := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != Path {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer close(done)
		defer conn.Close()
		handle(conn)
	}))
	var once sync.Once
	stop := func() {
		once.Do(func() {
			select {
			case <-done:
			case <-time.After(2 * time.Second):
			}
			server.Close()
		})
	}
	t.Cleanup(stop)

	return strings.TrimPrefix(server.URL, "http://"), stop
}

func acceptHello(t *testing.T, conn *websocket.Conn) protocol.ClientHello {
	t.Helper()
	var hello helloEnvelope
	assert.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, protocol.TypeClientHello, hello.Type)

	reply := protocol.Message{
		Type:    protocol.TypeServerHello,
		Payload: protocol.ServerHello{ServerID: "src-1", Name: "Test Source", Version: protocol.ProtocolVersion},
	}
	assert.NoError(t, conn.WriteJSON(reply))
	return hello.Payload
}

func newTestClient(addr string) *Client {
	return NewClient(Config{
		ServerAddr: addr,
		Name:       "Test Visualizer",
		Channels:   2,
		SampleRate: 44100,
		Logger:     logger.NewTestLogger(),
	})
}

func drainEvents(t *testing.T, c *Client) []protocol.Event {
	t.Helper()
	var out []protocol.Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timed out waiting for events to close")
		}
	}
}

func TestClientRoutesFrames(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	helloCh := make(chan protocol.ClientHello, 1)
	addr, stop := newServer(t, func(conn *websocket.Conn) {
		helloCh <- acceptHello(t, conn)

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"playing","track_id":"a","position_ms":1200}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = conn.WriteMessage(websocket.BinaryMessage, protocol.EncodeChunk(42, []float32{0.5, -0.5}))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2})
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"paused","track_id":"a","position_ms":1400}`))
	})

	defer stop()

	c := newTestClient(addr)
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	hello := <-helloCh
	assert.Equal(t, c.ClientID(), hello.ClientID)
	assert.Equal(t, "Test Visualizer", hello.Name)
	assert.Equal(t, 2, hello.Channels)
	assert.Equal(t, 44100, hello.SampleRate)
	assert.Equal(t, "Test Source", c.Server().Name)

	events := drainEvents(t, c)
	require.Len(t, events, 3)
	assert.Equal(t, protocol.Playing{TrackID: "a", PositionMs: 1200}, events[0])
	assert.Equal(t, protocol.Paused{TrackID: "a", PositionMs: 1400}, events[1])
	assert.Equal(t, protocol.SessionDisconnected{}, events[2])

	var chunks []protocol.Chunk
	for chunk := range c.Chunks() {
		chunks = append(chunks, chunk)
	}
	require.Len(t, chunks, 1)
	assert.Equal(t, int64(42), chunks[0].Timestamp)
	assert.Equal(t, []float32{0.5, -0.5}, chunks[0].Samples)

	assert.False(t, c.IsConnected())
}

func TestClientGeneratesUUID(t *testing.T) {
	a := NewClient(Config{})
	b := NewClient(Config{})
	assert.Len(t, a.ClientID(), 36)
	assert.NotEqual(t, a.ClientID(), b.ClientID())

	fixed := NewClient(Config{ClientID: "fixed"})
	assert.Equal(t, "fixed", fixed.ClientID())
}

func TestClientHandshakeTimeout(t *testing.T) {
	addr, _ := newServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := NewClient(Config{
		ServerAddr:       addr,
		HandshakeTimeout: 100 * time.Millisecond,
		Logger:           logger.NewTestLogger(),
	})

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handshake failed")
	assert.False(t, c.IsConnected())
}

func TestClientRejectsUnexpectedReply(t *testing.T) {
	addr, _ := newServer(t, func(conn *websocket.Conn) {
		var hello json.RawMessage
		_ = conn.ReadJSON(&hello)
		_ = conn.WriteJSON(map[string]string{"type": "server/nope"})
	})

	c := newTestClient(addr)
	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server/nope")
}

func TestClientCloseEmitsDisconnect(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	addr, stop := newServer(t, func(conn *websocket.Conn) {
		acceptHello(t, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	defer stop()

	c := newTestClient(addr)
	require.NoError(t, c.Connect(context.Background()))
	c.Close()

	events := drainEvents(t, c)
	assert.Equal(t, []protocol.Event{protocol.SessionDisconnected{}}, events)

	// second close is a no-op
	c.Close()
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		addr    string
		want    string
		wantErr bool
	}{
		{"localhost:8927", "ws://localhost:8927/visualizer", false},
		{"ws://10.0.0.2:9000", "ws://10.0.0.2:9000/visualizer", false},
		{"wss://host/custom", "wss://host/custom", false},
		{"http://host", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := Endpoint(tt.addr)
		if tt.wantErr {
			assert.Error(t, err, tt.addr)
			continue
		}
		require.NoError(t, err, tt.addr)
		assert.Equal(t, tt.want, got)
	}
}

func TestConnectRefused(t *testing.T) {
	c := NewClient(Config{ServerAddr: "127.0.0.1:1", Logger: logger.NewTestLogger()})
	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial failed")
}
