package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/OCAP2/spacecombat/pkg/streaming"
	ws "github.com/gorilla/websocket"
)

const (
	sendChSize = 10_000
	ackChSize  = 16
	maxBackoff = 30 * time.Second
	writeWait  = 10 * time.Second
)

// connection manages a WebSocket connection with a single write goroutine.
type connection struct {
	mu           sync.Mutex
	conn         *ws.Conn
	quit         chan struct{} // closed when conn breaks
	pending      [][]byte      // taken from sendCh but not written
	sendCh       chan []byte
	ackCh        chan streaming.AckMessage
	done         chan struct{} // closed on shutdown
	closed       bool
	reconnecting bool

	wsURL        string
	secret       string
	maxReconnect int
	firstBackoff time.Duration

	// start_battle is replayed after a reconnect so the server can resume the battle.
	cachedStartMsg []byte

	logger *slog.Logger
}

func newConnection(logger *slog.Logger, maxReconnect int, firstBackoff time.Duration) *connection {
	return &connection{
		sendCh:       make(chan []byte, sendChSize),
		ackCh:        make(chan streaming.AckMessage, ackChSize),
		done:         make(chan struct{}),
		maxReconnect: maxReconnect,
		firstBackoff: firstBackoff,
		logger:       logger,
	}
}

// dial connects to the WebSocket server and starts read/write loops.
func (c *connection) dial(rawURL, secret string) error {
	c.wsURL = rawURL
	c.secret = secret

	conn, err := c.dialOnce()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.quit = make(chan struct{})
	quit := c.quit
	c.mu.Unlock()

	go c.writeLoop(conn, quit)
	go c.readLoop(conn)

	return nil
}

// dialOnce performs a single WebSocket dial with the secret query param.
func (c *connection) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if c.secret != "" {
		q := u.Query()
		q.Set("secret", c.secret)
		u.RawQuery = q.Encode()
	}

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// writeLoop drains sendCh onto conn until shutdown or until conn breaks.
// A message that could not be written is kept for the next connection.
func (c *connection) writeLoop(conn *ws.Conn, quit chan struct{}) {
	for {
		select {
		case <-c.done:
			return
		case <-quit:
			return
		case data := <-c.sendCh:
			select {
			case <-quit:
				c.keepPending(data)
				return
			default:
			}
			if err := writeFrame(conn, data); err != nil {
				c.logger.Warn("WebSocket write error", "error", err)
				c.keepPending(data)
				c.startReconnect(conn)
				return
			}
		}
	}
}

func writeFrame(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

func (c *connection) keepPending(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, data)
}

// readLoop reads ack messages from the server and routes them to ackCh.
func (c *connection) readLoop(conn *ws.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.logger.Warn("WebSocket read error", "error", err)
			c.startReconnect(conn)
			return
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(message, &ack); err != nil || ack.Type != streaming.TypeAck {
			c.logger.Debug("Non-ack message received", "raw", string(message))
			continue
		}

		select {
		case c.ackCh <- ack:
		default:
			c.logger.Debug("Ack channel full, dropping", "for", ack.For)
		}
	}
}

// startReconnect launches one reconnect for a broken conn; the read and
// write loops both report the same failure.
func (c *connection) startReconnect(broken *ws.Conn) {
	c.mu.Lock()
	if c.closed || c.reconnecting || c.conn != broken {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	c.conn = nil
	close(c.quit)
	c.mu.Unlock()

	_ = broken.Close()
	go c.reconnect()
}

// backoffFor returns the delay before reconnect attempt n (1-based).
func (c *connection) backoffFor(attempt int) time.Duration {
	backoff := c.firstBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}

// reconnect re-establishes the connection with exponential backoff, replays
// the cached start_battle message and any unwritten messages, then restarts
// the read/write loops.
func (c *connection) reconnect() {
	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	for attempt := 1; attempt <= c.maxReconnect; attempt++ {
		backoff := c.backoffFor(attempt)
		c.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", backoff)

		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}

		conn, err := c.dialOnce()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			continue
		}

		c.mu.Lock()
		replay := make([][]byte, 0, len(c.pending)+1)
		if c.cachedStartMsg != nil {
			replay = append(replay, c.cachedStartMsg)
		}
		replay = append(replay, c.pending...)
		c.mu.Unlock()

		var replayErr error
		for _, data := range replay {
			if replayErr = writeFrame(conn, data); replayErr != nil {
				break
			}
		}
		if replayErr != nil {
			c.logger.Warn("Failed to replay messages after reconnect", "error", replayErr)
			_ = conn.Close()
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		c.quit = make(chan struct{})
		quit := c.quit
		c.pending = nil
		c.mu.Unlock()

		c.logger.Info("WebSocket reconnected", "attempt", attempt, "replayed", len(replay))
		go c.writeLoop(conn, quit)
		go c.readLoop(conn)
		return
	}

	c.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", c.maxReconnect)
}

// connected reports whether a live connection is held.
func (c *connection) connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// send pushes data to the write loop. Non-blocking; drops if channel full.
func (c *connection) send(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		c.logger.Warn("WebSocket send channel full, dropping message")
	}
}

// sendAndWait sends data and blocks until the server acknowledges with a
// matching ack message or the timeout expires.
func (c *connection) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-c.ackCh:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// close sends a WebSocket close frame and shuts down all goroutines.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		)
		return conn.Close()
	}
	return nil
}
