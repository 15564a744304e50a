// ABOUTME: WebSocket client for the event and audio chunk streams
// ABOUTME: Performs the hello handshake and routes text and binary frames
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Resonate-Protocol/resonate-visualizer/internal/observe"
	"github.com/Resonate-Protocol/resonate-visualizer/pkg/protocol"
)

// Path is the websocket endpoint served by an event source
const Path = "/visualizer"

// DefaultHandshakeTimeout bounds the wait for server/hello
const DefaultHandshakeTimeout = 5 * time.Second

// ErrNotConnected is returned when sending on a closed client
var ErrNotConnected = errors.New("not connected")

// Config holds client configuration
type Config struct {
	ServerAddr       string
	ClientID         string
	Name             string
	Channels         int
	SampleRate       int
	DeviceInfo       protocol.DeviceInfo
	HandshakeTimeout time.Duration
	EventBuffer      int
	ChunkBuffer      int
	Logger           *slog.Logger
	Metrics          *observe.Metrics
}

// Client represents a WebSocket client
type Client struct {
	config  Config
	log     *slog.Logger
	metrics *observe.Metrics

	conn    *websocket.Conn
	writeMu sync.Mutex
	mu      sync.RWMutex

	events chan protocol.Event
	chunks chan protocol.Chunk

	server    protocol.ServerHello
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	if config.ClientID == "" {
		config.ClientID = uuid.New().String()
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 64
	}
	if config.ChunkBuffer <= 0 {
		config.ChunkBuffer = 100
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Metrics == nil {
		config.Metrics = observe.DefaultMetrics()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:  config,
		log:     config.Logger.With("component", "transport"),
		metrics: config.Metrics,
		events:  make(chan protocol.Event, config.EventBuffer),
		chunks:  make(chan protocol.Chunk, config.ChunkBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// ClientID returns the identifier sent in client/hello
func (c *Client) ClientID() string {
	return c.config.ClientID
}

// Endpoint resolves the websocket URL for addr. A bare host:port gets the
// ws scheme and the default path.
func Endpoint(addr string) (string, error) {
	if addr == "" {
		return "", errors.New("empty server address")
	}
	if !strings.Contains(addr, "://") {
		u := url.URL{Scheme: "ws", Host: addr, Path: Path}
		return u.String(), nil
	}

	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("invalid server address: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Path == "" {
		u.Path = Path
	}
	return u.String(), nil
}

// Connect establishes the WebSocket connection and performs the handshake.
// Events and chunks are delivered until the connection is lost or Close is
// called; then a single SessionDisconnected is emitted and both channels
// are closed.
func (c *Client) Connect(ctx context.Context) error {
	endpoint, err := Endpoint(c.config.ServerAddr)
	if err != nil {
		return err
	}
	c.log.Info("connecting", "url", endpoint, "client_id", c.config.ClientID)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		conn.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	c.wg.Add(1)
	go c.readMessages()

	return nil
}

func (c *Client) handshake() error {
	hello := protocol.ClientHello{
		ClientID:   c.config.ClientID,
		Name:       c.config.Name,
		Version:    protocol.ProtocolVersion,
		Channels:   c.config.Channels,
		SampleRate: c.config.SampleRate,
		DeviceInfo: &c.config.DeviceInfo,
	}

	if err := c.sendJSON(protocol.Message{Type: protocol.TypeClientHello, Payload: hello}); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(c.config.HandshakeTimeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}
	if msg.Type != protocol.TypeServerHello {
		return fmt.Errorf("expected %s, got %q", protocol.TypeServerHello, msg.Type)
	}

	var server protocol.ServerHello
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &server); err != nil {
			return fmt.Errorf("failed to parse server/hello payload: %w", err)
		}
	}

	c.mu.Lock()
	c.server = server
	c.mu.Unlock()

	c.log.Info("handshake complete", "server", server.Name, "server_id", server.ServerID)
	return nil
}

func (c *Client) sendJSON(msg protocol.Message) error {
	c.mu.RLock()
	conn, connected := c.conn, c.connected
	c.mu.RUnlock()

	if !connected {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

func (c *Client) readMessages() {
	defer c.wg.Done()
	defer c.finish()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil {
				c.log.Warn("connection lost", "error", err)
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			c.handleBinaryMessage(data)
		case websocket.TextMessage:
			c.handleTextMessage(data)
		}

		if c.ctx.Err() != nil {
			return
		}
	}
}

func (c *Client) handleBinaryMessage(data []byte) {
	chunk, err := protocol.DecodeChunk(data)
	if err != nil {
		c.log.Warn("skipping binary frame", "error", err, "bytes", len(data))
		c.metrics.RecordDecodeError(c.ctx, "chunk")
		return
	}

	select {
	case c.chunks <- chunk:
	case <-c.ctx.Done():
	}
}

func (c *Client) handleTextMessage(data []byte) {
	ev, err := protocol.DecodeEvent(data)
	if err != nil {
		c.log.Warn("skipping event", "error", err)
		c.metrics.RecordDecodeError(c.ctx, "event")
		return
	}

	c.log.Debug("event received", "kind", ev.Kind())

	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

// finish marks the client disconnected, emits the synthesized
// SessionDisconnected and closes both channels. Only the reader calls it.
func (c *Client) finish() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	c.conn.Close()

	disconnected := protocol.SessionDisconnected{}
	if c.ctx.Err() == nil {
		select {
		case c.events <- disconnected:
		case <-c.ctx.Done():
		}
	} else {
		select {
		case c.events <- disconnected:
		default:
		}
	}

	close(c.events)
	close(c.chunks)
}

// Events returns decoded playback events in delivery order
func (c *Client) Events() <-chan protocol.Event {
	return c.events
}

// Chunks returns decoded audio chunks in delivery order
func (c *Client) Chunks() <-chan protocol.Chunk {
	return c.chunks
}

// Server returns the peer's server/hello
func (c *Client) Server() protocol.ServerHello {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.server
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Close closes the connection and waits for the reader to exit
func (c *Client) Close() {
	c.cancel()

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn != nil {
		conn.Close()
	}

	c.wg.Wait()
}
