// ABOUTME: WebSocket bridge in front of the playback engine
// ABOUTME: Gives every connection its own engine and routes initialize/write/flush/close/stats
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/audiostream-go/audiostream/internal/discovery"
	"github.com/audiostream-go/audiostream/internal/ui"
	"github.com/audiostream-go/audiostream/internal/version"
	"github.com/audiostream-go/audiostream/pkg/audio"
	"github.com/audiostream-go/audiostream/pkg/audio/output"
	"github.com/audiostream-go/audiostream/pkg/audiostream"
	"github.com/audiostream-go/audiostream/pkg/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// errSessionClosed is returned when queueing to a finished session
var errSessionClosed = errors.New("session closed")

// Config holds bridge configuration
type Config struct {
	Port       int
	Name       string
	EnableMDNS bool
	Debug      bool
	UseTUI     bool

	// Backend names the output backend for NewSink (default: "oto")
	Backend string

	// Output configures sinks created from Backend
	Output output.Config

	// NewSink overrides Backend; called once per connection
	NewSink func() (output.Sink, error)

	// Engine is the configuration of every session's engine
	Engine audiostream.Config

	// FlushTimeout bounds a flush request (default: 10s)
	FlushTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "audiostream"
	}
	if c.Backend == "" {
		c.Backend = "oto"
	}
	if c.NewSink == nil {
		backend, cfg := c.Backend, c.Output
		c.NewSink = func() (output.Sink, error) {
			return output.New(backend, cfg)
		}
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = 10 * time.Second
	}
	return c
}

// Server is the audiostream bridge
type Server struct {
	config   Config
	serverID string

	upgrader   websocket.Upgrader
	httpServer *http.Server
	mux        *http.ServeMux

	sessions   map[string]*Session
	sessionsMu sync.RWMutex

	mdnsManager *discovery.Manager
	tui         *ui.TUI

	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Session is one websocket connection and its engine
type Session struct {
	ID     string
	Remote string
	Conn   *websocket.Conn
	Engine *audiostream.Engine

	sendChan chan interface{}
	mu       sync.Mutex
	closed   bool
}

// New creates a bridge server
func New(config Config) *Server {
	s := &Server{
		config:   config.withDefaults(),
		serverID: uuid.New().String(),
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Local network service; browsers are not expected
				origin := r.Header.Get("Origin")
				if origin != "" {
					log.Printf("Warning: accepting WebSocket from origin: %s", origin)
				}
				return true
			},
		},
		sessions: make(map[string]*Session),
		stopChan: make(chan struct{}),
	}
	s.mux.HandleFunc(protocol.Path, s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving the websocket endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until Stop is called, the TUI quits, or the listener fails
func (s *Server) Start() error {
	if s.config.UseTUI {
		s.tui = ui.NewTUI(s.config.Name)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.tui.Start(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.statusLoop()
		}()
	}

	log.Printf("Bridge starting: %s (ID: %s, output: %s)", s.config.Name, s.serverID, s.config.Backend)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Path:        protocol.Path,
			Output:      s.config.Backend,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("WebSocket bridge listening on %s%s", addr, protocol.Path)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	var tuiQuitChan <-chan struct{}
	if s.tui != nil {
		tuiQuitChan = s.tui.QuitChan()
	}

	select {
	case <-s.stopChan:
		log.Printf("Bridge shutting down...")
	case <-tuiQuitChan:
		log.Printf("TUI quit requested, shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
	}

	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	s.Stop()

	if s.tui != nil {
		s.tui.Stop()
	}

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Hijacked connections are not closed by Shutdown
	s.closeAll()

	s.wg.Wait()
	log.Printf("Bridge stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// closeAll closes every open connection; handlers then close their engines
func (s *Server) closeAll() {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()

	for _, session := range s.sessions {
		session.Conn.Close()
	}
}

// handleWebSocket upgrades and serves one connection
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	s.wg.Add(1)
	s.shutdownMu.RUnlock()
	defer s.wg.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)

	s.handleConnection(conn, r.RemoteAddr)
}

// handleConnection owns a connection from hello to close
func (s *Server) handleConnection(conn *websocket.Conn, remote string) {
	defer conn.Close()

	sink, err := s.config.NewSink()
	if err != nil {
		log.Printf("Failed to create output for %s: %v", remote, err)
		data, _ := json.Marshal(protocol.Message{
			Type: protocol.TypeError,
			Payload: protocol.ErrorInfo{
				Kind:    string(audiostream.KindInvalidConfig),
				Message: err.Error(),
			},
		})
		conn.WriteMessage(websocket.TextMessage, data)
		return
	}

	session := &Session{
		ID:       uuid.New().String(),
		Remote:   remote,
		Conn:     conn,
		sendChan: make(chan interface{}, 100),
	}

	engineConfig := s.config.Engine
	userOnError := engineConfig.OnError
	engineConfig.OnError = func(err error) {
		if userOnError != nil {
			userOnError(err)
		}
		if qerr := session.queue(protocol.Message{Type: protocol.TypeError, Payload: errorInfo(err)}); qerr != nil && s.config.Debug {
			log.Printf("[DEBUG] Could not forward error to %s: %v", session.ID, qerr)
		}
	}
	session.Engine = audiostream.New(sink, engineConfig)

	s.sessionsMu.Lock()
	s.sessions[session.ID] = session
	s.sessionsMu.Unlock()

	defer func() {
		session.Engine.Close()

		s.sessionsMu.Lock()
		delete(s.sessions, session.ID)
		s.sessionsMu.Unlock()

		session.closeSend()
		log.Printf("Session closed: %s (%s)", session.ID, remote)
	}()

	hello := protocol.ServerHello{
		ServerID:        s.serverID,
		SessionID:       session.ID,
		Name:            s.config.Name,
		Version:         protocol.ProtocolVersion,
		Output:          sink.Name(),
		Product:         version.Product,
		Manufacturer:    version.Manufacturer,
		SoftwareVersion: version.Version,
	}
	if err := session.queue(protocol.Message{Type: protocol.TypeHello, Payload: hello}); err != nil {
		log.Printf("Error sending server hello: %v", err)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sessionWriter(session)
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		switch messageType {
		case websocket.BinaryMessage:
			s.handleWrite(session, data)
		case websocket.TextMessage:
			s.handleControl(session, data)
		}
	}
}

// sessionWriter sends queued messages and keepalive pings
func (s *Server) sessionWriter(session *Session) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case msg, ok := <-session.sendChan:
			if !ok {
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("Error marshaling message: %v", err)
				continue
			}
			session.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := session.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Error writing text message: %v", err)
				return
			}

		case <-ticker.C:
			if err := session.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// handleWrite queues a binary PCM frame on the session engine
func (s *Server) handleWrite(session *Session, data []byte) {
	err := session.Engine.Write(data)
	if s.config.Debug && err != nil {
		log.Printf("[DEBUG] Write of %d bytes from %s failed: %v", len(data), session.ID, err)
	}
	s.reply(session, protocol.OpWrite, err, 0)
}

// control is a text frame with its payload left undecoded
type control struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// handleControl routes a JSON control message
func (s *Server) handleControl(session *Session, data []byte) {
	var msg control
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		s.badRequest(session, "", fmt.Sprintf("invalid message: %v", err))
		return
	}

	if s.config.Debug {
		log.Printf("[DEBUG] %s from %s", msg.Type, session.ID)
	}

	switch msg.Type {
	case protocol.TypeInitialize:
		s.handleInitialize(session, msg.Payload)

	case protocol.TypeFlush:
		ctx, cancel := context.WithTimeout(context.Background(), s.config.FlushTimeout)
		err := session.Engine.Flush(ctx)
		cancel()
		s.reply(session, protocol.TypeFlush, err, 0)

	case protocol.TypeClose:
		s.reply(session, protocol.TypeClose, session.Engine.Close(), 0)

	case protocol.TypeStats:
		stats := toProtocolStats(session.Engine.Stats())
		if err := session.queue(protocol.Message{Type: protocol.TypeStats, Payload: stats}); err != nil {
			log.Printf("Error sending stats: %v", err)
		}

	default:
		log.Printf("Unknown message type: %s", msg.Type)
		s.badRequest(session, msg.Type, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

// handleInitialize starts a new playback session on the engine
func (s *Server) handleInitialize(session *Session, payload json.RawMessage) {
	var req protocol.Initialize
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			s.badRequest(session, protocol.TypeInitialize, fmt.Sprintf("invalid initialize payload: %v", err))
			return
		}
	}
	req = req.WithDefaults()

	err := session.Engine.Initialize(audio.NewFormat(req.SampleRate, req.Channels), req.BufferBytes)
	if err != nil {
		log.Printf("Initialize for %s failed: %v", session.ID, err)
	}
	s.reply(session, protocol.TypeInitialize, err, session.Engine.BufferBytes())
}

// reply queues the result of an operation
func (s *Server) reply(session *Session, op string, err error, bufferBytes int) {
	result := protocol.Result{Op: op, OK: err == nil, BufferBytes: bufferBytes}
	if err != nil {
		result.Error = errorInfo(err)
	}
	if qerr := session.queue(protocol.Message{Type: protocol.TypeResult, Payload: result}); qerr != nil {
		log.Printf("Error sending %s result: %v", op, qerr)
	}
}

func (s *Server) badRequest(session *Session, op, message string) {
	result := protocol.Result{
		Op:    op,
		Error: &protocol.ErrorInfo{Kind: protocol.KindBadRequest, Message: message},
	}
	if err := session.queue(protocol.Message{Type: protocol.TypeResult, Payload: result}); err != nil {
		log.Printf("Error sending bad request result: %v", err)
	}
}

// errorInfo converts an engine error to its wire form
func errorInfo(err error) *protocol.ErrorInfo {
	return &protocol.ErrorInfo{
		Kind:    string(audiostream.KindOf(err)),
		Message: err.Error(),
	}
}

func toProtocolStats(st audiostream.Stats) protocol.Stats {
	stats := protocol.Stats{
		SessionID:      st.SessionID,
		State:          st.State.String(),
		Output:         st.Output,
		BufferBytes:    st.BufferBytes,
		Capacity:       st.Capacity,
		Buffered:       st.Buffered,
		BufferedMs:     st.BufferedMs(),
		Received:       st.Received,
		Played:         st.Played,
		Dropped:        st.Dropped,
		SubmitFailures: st.SubmitFailures,
		Underruns:      st.Underruns,
	}
	if st.State != audiostream.StateUninitialized {
		stats.Format = wireFormat(st.Format)
		stats.DeviceFormat = wireFormat(st.DeviceFormat)
	}
	return stats
}

func wireFormat(f audio.Format) *protocol.AudioFormat {
	return &protocol.AudioFormat{SampleRate: f.SampleRate, Channels: f.Channels, BitDepth: f.BitDepth}
}

// queue hands a message to the writer without blocking
func (c *Session) queue(msg interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errSessionClosed
	}

	select {
	case c.sendChan <- msg:
		return nil
	default:
		return fmt.Errorf("session send buffer full")
	}
}

func (c *Session) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.sendChan)
	}
}

// Status returns a snapshot of all sessions for the status view
func (s *Server) Status() ui.StatusMsg {
	s.sessionsMu.RLock()
	sessions := make([]ui.SessionStatus, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, ui.SessionStatus{
			ID:     session.ID,
			Remote: session.Remote,
			Stats:  session.Engine.Stats(),
		})
	}
	s.sessionsMu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Remote < sessions[j].Remote
	})

	return ui.StatusMsg{
		Name:     s.config.Name,
		Addr:     fmt.Sprintf(":%d%s", s.config.Port, protocol.Path),
		Output:   s.config.Backend,
		Sessions: sessions,
	}
}

// statusLoop pushes session stats to the TUI
func (s *Server) statusLoop() {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.tui.Update(s.Status())
		}
	}
}
