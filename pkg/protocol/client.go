// ABOUTME: WebSocket client for the audiostream bridge
// ABOUTME: Sends initialize/write/flush/close requests and waits for each result
package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned by requests on a closed client
var ErrNotConnected = errors.New("not connected")

// Config holds client configuration
type Config struct {
	ServerAddr string        // host:port of the bridge
	Timeout    time.Duration // per-request reply timeout (default: 10s)
}

// Client talks to one bridge session. Requests are serialized; each
// waits for its reply before the next is sent.
type Client struct {
	config Config
	conn   *websocket.Conn
	mu     sync.RWMutex
	reqMu  sync.Mutex

	hello   ServerHello
	replies chan envelope

	// Errors receives asynchronous playback errors reported by the bridge
	Errors chan ErrorInfo

	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// envelope is a Message with its payload left undecoded
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewClient creates a new client
func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:  config,
		replies: make(chan envelope, 1),
		Errors:  make(chan ErrorInfo, 10),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Connect dials the bridge and waits for server/hello
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: Path}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Disconnect()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return nil
}

// handshake reads the server/hello the bridge sends on accept
func (c *Client) handshake() error {
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}
	if msg.Type != TypeHello {
		return fmt.Errorf("expected %s, got %s", TypeHello, msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, &c.hello); err != nil {
		return fmt.Errorf("failed to parse server/hello payload: %w", err)
	}

	log.Printf("Connected to %s (session %s, output %s)", c.hello.Name, c.hello.SessionID, c.hello.Output)
	return nil
}

// Hello returns the server/hello received on connect
func (c *Client) Hello() ServerHello {
	return c.hello
}

// readMessages routes replies and asynchronous errors
func (c *Client) readMessages() {
	defer c.Disconnect()
	defer close(c.replies)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.ctx.Done():
			default:
				log.Printf("Read error: %v", err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			log.Printf("Unexpected websocket message type: %d", messageType)
			continue
		}

		var msg envelope
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Failed to parse message: %v", err)
			continue
		}

		if msg.Type == TypeError {
			var info ErrorInfo
			if err := json.Unmarshal(msg.Payload, &info); err != nil {
				log.Printf("Failed to parse error: %v", err)
				continue
			}
			select {
			case c.Errors <- info:
			default:
				log.Printf("Error channel full, dropping: %v", &info)
			}
			continue
		}

		select {
		case c.replies <- msg:
		case <-c.ctx.Done():
			return
		}
	}
}

// Initialize starts a playback session on the bridge
func (c *Client) Initialize(req Initialize) (Result, error) {
	return c.call(TypeInitialize, func() error {
		return c.sendJSON(Message{Type: TypeInitialize, Payload: req})
	})
}

// Write sends PCM bytes as one binary frame
func (c *Client) Write(data []byte) error {
	_, err := c.call(OpWrite, func() error {
		return c.send(websocket.BinaryMessage, data)
	})
	return err
}

// Flush asks the bridge to play out everything buffered
func (c *Client) Flush() error {
	_, err := c.call(TypeFlush, func() error {
		return c.sendJSON(Message{Type: TypeFlush})
	})
	return err
}

// Close ends the playback session; the connection stays open
func (c *Client) Close() error {
	_, err := c.call(TypeClose, func() error {
		return c.sendJSON(Message{Type: TypeClose})
	})
	return err
}

// Stats fetches the session statistics
func (c *Client) Stats() (Stats, error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	var stats Stats
	if err := c.sendJSON(Message{Type: TypeStats}); err != nil {
		return stats, err
	}
	msg, err := c.await()
	if err != nil {
		return stats, err
	}
	if msg.Type != TypeStats {
		return stats, c.unexpected(msg)
	}
	if err := json.Unmarshal(msg.Payload, &stats); err != nil {
		return stats, fmt.Errorf("failed to parse stats: %w", err)
	}
	return stats, nil
}

// call sends a request and decodes its result. A result with ok=false
// is returned as an *ErrorInfo.
func (c *Client) call(op string, send func() error) (Result, error) {
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	var result Result
	if err := send(); err != nil {
		return result, err
	}
	msg, err := c.await()
	if err != nil {
		return result, err
	}
	if msg.Type != TypeResult {
		return result, c.unexpected(msg)
	}
	if err := json.Unmarshal(msg.Payload, &result); err != nil {
		return result, fmt.Errorf("failed to parse result: %w", err)
	}
	if result.Op != op {
		return result, fmt.Errorf("result for %q while waiting for %q", result.Op, op)
	}
	if !result.OK {
		if result.Error != nil {
			return result, result.Error
		}
		return result, fmt.Errorf("%s failed", op)
	}
	return result, nil
}

// await waits for the next reply. A timeout leaves the reply stream out
// of step, so the connection is dropped.
func (c *Client) await() (envelope, error) {
	timer := time.NewTimer(c.config.Timeout)
	defer timer.Stop()

	select {
	case msg, ok := <-c.replies:
		if !ok {
			return envelope{}, ErrNotConnected
		}
		return msg, nil
	case <-timer.C:
		c.Disconnect()
		return envelope{}, fmt.Errorf("no reply within %v", c.config.Timeout)
	}
}

func (c *Client) unexpected(msg envelope) error {
	return fmt.Errorf("unexpected reply type %s", msg.Type)
}

// sendJSON sends a JSON message
func (c *Client) sendJSON(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", msg.Type, err)
	}
	return c.send(websocket.TextMessage, data)
}

func (c *Client) send(messageType int, data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return ErrNotConnected
	}

	return c.conn.WriteMessage(messageType, data)
}

// Disconnect closes the connection
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
