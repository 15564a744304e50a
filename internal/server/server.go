// ABOUTME: Event source server for visualizer receivers
// ABOUTME: Manages WebSocket sessions and streams scripted events with a test tone
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Resonate-Protocol/resonate-visualizer/internal/discovery"
	"github.com/Resonate-Protocol/resonate-visualizer/internal/transport"
	"github.com/Resonate-Protocol/resonate-visualizer/pkg/protocol"
)

const (
	DefaultSampleRate    = 44100
	DefaultChannels      = 2
	DefaultChunkDuration = 100 * time.Millisecond

	helloTimeout = 5 * time.Second
	sendBuffer   = 100
)

// Config holds server configuration
type Config struct {
	Port          int
	Name          string
	Path          string
	EnableMDNS    bool
	SampleRate    int
	Channels      int
	Frequency     float64
	ChunkDuration time.Duration
	ResyncMs      int64
	Playlist      []*protocol.AudioItem
	Logger        *slog.Logger
}

// Server streams one shared timeline to every connected receiver
type Server struct {
	config   Config
	serverID string
	log      *slog.Logger
	upgrader websocket.Upgrader

	tone   *ToneSource
	script *Script

	// scriptMu orders broadcasts against snapshots for new clients
	scriptMu sync.Mutex

	clients   map[string]*Client
	clientsMu sync.RWMutex

	clockStart time.Time
	wg         sync.WaitGroup
}

// Client is one connected receiver
type Client struct {
	ID   string
	Name string
	conn *websocket.Conn

	sendChan chan frame
	dropped  int
}

type frame struct {
	binary bool
	data   []byte
}

// New creates a server
func New(config Config) *Server {
	if config.Name == "" {
		config.Name = "Resonate Event Source"
	}
	if config.Path == "" {
		config.Path = transport.Path
	}
	if config.SampleRate <= 0 {
		config.SampleRate = DefaultSampleRate
	}
	if config.Channels <= 0 {
		config.Channels = DefaultChannels
	}
	if config.ChunkDuration <= 0 {
		config.ChunkDuration = DefaultChunkDuration
	}
	if len(config.Playlist) == 0 {
		config.Playlist = DefaultPlaylist()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Server{
		config:   config,
		serverID: uuid.New().String(),
		log:      config.Logger.With("component", "server"),
		upgrader: websocket.Upgrader{
			// Receivers are native clients on a trusted local network
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		tone:       NewToneSource(config.Frequency, config.SampleRate, config.Channels),
		script:     NewScript(config.Playlist, config.ResyncMs),
		clients:    make(map[string]*Client),
		clockStart: time.Now(),
	}
}

// ID returns the server's session identifier
func (s *Server) ID() string {
	return s.serverID
}

// Handler returns the HTTP handler serving the WebSocket endpoint
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.config.Path, s.handleWebSocket)
	return mux
}

// Run serves until ctx ends
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("server starting", "name", s.config.Name, "server_id", s.serverID, "port", s.config.Port)

	if s.config.EnableMDNS {
		disc := discovery.NewManager(discovery.Config{
			Instance: s.config.Name,
			Port:     s.config.Port,
			Path:     s.config.Path,
			Logger:   s.config.Logger,
		})
		if err := disc.Advertise(); err != nil {
			s.log.Warn("mDNS advertisement failed", "error", err)
		} else {
			defer disc.Stop()
		}
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Stream(ctx)
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.log.Info("server shutting down")
	case serverErr = <-errChan:
		s.log.Error("http server failed", "error", serverErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("http shutdown error", "error", err)
	}
	s.closeClients()
	s.wg.Wait()

	s.log.Info("server stopped")
	if serverErr != nil {
		return fmt.Errorf("http server failed: %w", serverErr)
	}
	return nil
}

// Stream advances the timeline and broadcasts a chunk every chunk
// duration until ctx ends
func (s *Server) Stream(ctx context.Context) {
	ticker := time.NewTicker(s.config.ChunkDuration)
	defer ticker.Stop()

	s.step(0)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.step(s.config.ChunkDuration.Milliseconds())
		}
	}
}

// step emits the events produced by elapsedMs of playback, then one chunk
func (s *Server) step(elapsedMs int64) {
	s.scriptMu.Lock()
	events := s.script.Advance(elapsedMs)
	for _, ev := range events {
		data, err := protocol.EncodeEvent(ev)
		if err != nil {
			s.log.Error("failed to encode event", "kind", ev.Kind(), "error", err)
			continue
		}
		s.log.Debug("event", "kind", ev.Kind())
		s.broadcast(frame{data: data})
	}
	s.scriptMu.Unlock()

	frames := int(int64(s.config.SampleRate) * s.config.ChunkDuration.Milliseconds() / 1000)
	samples := make([]float32, frames*s.config.Channels)
	s.tone.Read(samples)

	ts := time.Since(s.clockStart).Microseconds()
	s.broadcast(frame{binary: true, data: protocol.EncodeChunk(ts, samples)})
}

func (s *Server) broadcast(f frame) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, c := range s.clients {
		select {
		case c.sendChan <- f:
		default:
			c.dropped++
			if c.dropped <= 5 || c.dropped%100 == 0 {
				s.log.Warn("client send buffer full", "client", c.Name, "dropped", c.dropped)
			}
		}
	}
}

// ClientCount returns the number of connected receivers
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	s.log.Info("new connection", "remote", r.RemoteAddr)
	s.handleConnection(conn)
}

// handleConnection runs one receiver session
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	hello, err := s.readHello(conn)
	if err != nil {
		s.log.Warn("handshake failed", "error", err)
		return
	}
	s.log.Info("client hello", "name", hello.Name, "client_id", hello.ClientID, "sample_rate", hello.SampleRate)

	if hello.SampleRate != 0 && hello.SampleRate != s.config.SampleRate {
		s.log.Warn("client sample rate differs from stream", "client", hello.SampleRate, "stream", s.config.SampleRate)
	}

	reply, err := json.Marshal(protocol.Message{
		Type: protocol.TypeServerHello,
		Payload: protocol.ServerHello{
			ServerID: s.serverID,
			Name:     s.config.Name,
			Version:  protocol.ProtocolVersion,
		},
	})
	if err != nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
		s.log.Warn("failed to send server hello", "error", err)
		return
	}

	client := &Client{
		ID:       hello.ClientID,
		Name:     hello.Name,
		conn:     conn,
		sendChan: make(chan frame, sendBuffer),
	}
	if client.ID == "" {
		client.ID = uuid.New().String()
	}

	// Register under scriptMu so the snapshot precedes any later event
	s.scriptMu.Lock()
	for _, ev := range s.script.Snapshot() {
		if data, err := protocol.EncodeEvent(ev); err == nil {
			client.sendChan <- frame{data: data}
		}
	}
	s.clientsMu.Lock()
	if old, ok := s.clients[client.ID]; ok {
		s.log.Warn("replacing session with duplicate client id", "client_id", client.ID)
		old.conn.Close()
	}
	s.clients[client.ID] = client
	s.clientsMu.Unlock()
	s.scriptMu.Unlock()

	s.wg.Add(1)
	go s.writeLoop(client)

	// Receivers send nothing after hello; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.clientsMu.Lock()
	if s.clients[client.ID] == client {
		delete(s.clients, client.ID)
	}
	s.clientsMu.Unlock()
	close(client.sendChan)

	s.log.Info("client disconnected", "name", client.Name)
}

func (s *Server) readHello(conn *websocket.Conn) (protocol.ClientHello, error) {
	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, data, err := conn.ReadMessage()
	if err != nil {
		return protocol.ClientHello{}, fmt.Errorf("failed to read hello: %w", err)
	}

	var msg struct {
		Type    string                `json:"type"`
		Payload *protocol.ClientHello `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return protocol.ClientHello{}, fmt.Errorf("failed to parse hello: %w", err)
	}
	if msg.Type != protocol.TypeClientHello || msg.Payload == nil {
		return protocol.ClientHello{}, fmt.Errorf("expected %s, got %q", protocol.TypeClientHello, msg.Type)
	}
	if msg.Payload.Version != protocol.ProtocolVersion {
		return protocol.ClientHello{}, fmt.Errorf("unsupported protocol version %d", msg.Payload.Version)
	}
	return *msg.Payload, nil
}

func (s *Server) writeLoop(c *Client) {
	defer s.wg.Done()

	for f := range c.sendChan {
		kind := websocket.TextMessage
		if f.binary {
			kind = websocket.BinaryMessage
		}
		c.conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := c.conn.WriteMessage(kind, f.data); err != nil {
			s.log.Debug("write failed", "client", c.Name, "error", err)
			c.conn.Close()
			// drain until the reader unregisters us
			for range c.sendChan {
			}
			return
		}
	}
}

func (s *Server) closeClients() {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, c := range s.clients {
		c.conn.Close()
	}
}
