package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"
)

var ErrNotConnected = errors.New("mcp client is not connected")

// wireConn is the subset of *websocket.Conn the client uses; injectable for
// tests.
type wireConn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, data []byte, err error)
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

type DialFunc func(ctx context.Context, url string) (wireConn, error)

// Client is the gateway's link to the tool-serving connector. A client that
// never connected is still a valid, degraded handle: calls fail with
// ErrNotConnected.
type Client struct {
	url         string
	logger      *slog.Logger
	dial        DialFunc
	callTimeout time.Duration

	mu        sync.Mutex
	conn      wireConn
	connected atomic.Bool
	nextID    atomic.Int64
}

func NewClient(addr string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:         "ws://" + addr + "/mcp",
		logger:      logger,
		callTimeout: 10 * time.Second,
		dial: func(ctx context.Context, url string) (wireConn, error) {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
	}
}

// Connect dials the connector. A no-op when already connected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected.Load() {
		return nil
	}
	conn, err := c.dial(ctx, c.url)
	if err != nil {
		return fmt.Errorf("dial mcp connector: %w", err)
	}
	c.conn = conn
	c.connected.Store(true)
	return nil
}

// ConnectWithRetry attempts Connect up to maxAttempts times with a fixed
// interval between failed attempts. Returns whether a connection was made;
// exhaustion never returns an error to the caller.
func (c *Client) ConnectWithRetry(ctx context.Context, maxAttempts int, interval time.Duration) bool {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(maxAttempts-1), retry.NewConstant(interval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		c.logger.Info("connecting mcp client", "attempt", attempt, "max_attempts", maxAttempts)
		if err := c.Connect(ctx); err != nil {
			c.logger.Warn("mcp client connect failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		c.logger.Error("mcp client connect exhausted retry budget", "attempts", attempt, "error", err)
		return false
	}
	c.logger.Info("mcp client connected", "attempts", attempt)
	return true
}

func (c *Client) Connected() bool { return c.connected.Load() }

// SetCallTimeout bounds each Call when the caller's context carries no
// deadline of its own.
func (c *Client) SetCallTimeout(d time.Duration) {
	if d > 0 {
		c.callTimeout = d
	}
}

// Disconnect closes the link, bounded by ctx. On timeout the connection is
// abandoned and ctx's error is returned; the client still reads as
// disconnected afterward.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.connected.Store(false)
	if conn == nil {
		return ErrNotConnected
	}

	done := make(chan error, 1)
	go func() {
		deadline := time.Now().Add(time.Second)
		if dl, ok := ctx.Deadline(); ok {
			deadline = dl
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		done <- conn.Close()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Call invokes a tool on the connector and waits for its response. Calls
// are serialized on the single link.
func (c *Client) Call(ctx context.Context, tool string, args map[string]any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected.Load() {
		return nil, ErrNotConnected
	}

	id := strconv.FormatInt(c.nextID.Add(1), 10)
	payload, err := json.Marshal(callRequest{ID: id, Tool: tool, Args: args})
	if err != nil {
		return nil, fmt.Errorf("encode tool call: %w", err)
	}

	deadline := time.Now().Add(c.callTimeout)
	if dl, ok := ctx.Deadline(); ok {
		deadline = dl
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return nil, err
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.dropConnLocked()
		return nil, fmt.Errorf("send tool call: %w", err)
	}

	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.dropConnLocked()
			return nil, fmt.Errorf("read tool response: %w", err)
		}
		var resp callResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("decode tool response: %w", err)
		}
		if resp.ID != id {
			continue
		}
		if resp.Error != "" {
			return nil, fmt.Errorf("tool %s: %s", tool, resp.Error)
		}
		return resp.Result, nil
	}
}

// dropConnLocked discards a broken connection. Caller holds c.mu.
func (c *Client) dropConnLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.connected.Store(false)
}
