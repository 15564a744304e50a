// ABOUTME: Tests for the event source server
// ABOUTME: Runs real WebSocket sessions against an httptest server
package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/resonate-visualizer/internal/logger"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/transport"
	"github.com/Resonate-Protocol/resonate-visualizer/pkg/protocol"
)

func startServer(t *testing.T) (*Server, string) {
	t.Helper()
	s := New(Config{Name: "Test Source", Logger: logger.NewTestLogger()})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.closeClients()
		ts.Close()
	})
	return s, strings.TrimPrefix(ts.URL, "http://")
}

func nextEvent(t *testing.T, c *transport.Client) protocol.Event {
	t.Helper()
	select {
	case ev := <-c.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestServerStreamsToReceiver(t *testing.T) {
	s, addr := startServer(t)

	client := transport.NewClient(transport.Config{
		ServerAddr: addr,
		Name:       "receiver",
		SampleRate: DefaultSampleRate,
		Channels:   DefaultChannels,
		Logger:     logger.NewTestLogger(),
	})
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	assert.Equal(t, "Test Source", client.Server().Name)
	assert.Equal(t, s.ID(), client.Server().ServerID)

	require.Eventually(t, func() bool { return s.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.step(0)

	assert.Equal(t, protocol.PlayRequestIDChanged{PlayRequestID: 1}, nextEvent(t, client))
	tc, ok := nextEvent(t, client).(protocol.TrackChanged)
	require.True(t, ok)
	assert.Equal(t, "tone-a4", tc.Item.TrackID)
	assert.Equal(t, protocol.Playing{TrackID: "tone-a4", PositionMs: 0}, nextEvent(t, client))

	select {
	case chunk := <-client.Chunks():
		assert.Len(t, chunk.Samples, 4410*DefaultChannels)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for chunk")
	}
}

func TestServerSnapshotForLateJoiner(t *testing.T) {
	s, addr := startServer(t)
	s.step(0)
	s.step(100)

	client := transport.NewClient(transport.Config{ServerAddr: addr, Logger: logger.NewTestLogger()})
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	assert.Equal(t, protocol.PlayRequestIDChanged{PlayRequestID: 1}, nextEvent(t, client))
	_, ok := nextEvent(t, client).(protocol.TrackChanged)
	assert.True(t, ok)
	assert.Equal(t, protocol.Playing{TrackID: "tone-a4", PositionMs: 100}, nextEvent(t, client))
}

func TestServerRejectsWrongVersion(t *testing.T) {
	_, addr := startServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+transport.Path, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(protocol.Message{
		Type:    protocol.TypeClientHello,
		Payload: protocol.ClientHello{ClientID: "x", Name: "old", Version: 99},
	}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "server must close the session instead of answering")
}
