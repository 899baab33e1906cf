package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// ToolFunc executes one tool call on behalf of a client.
type ToolFunc func(ctx context.Context, args map[string]any) (any, error)

type callRequest struct {
	ID   string         `json:"id"`
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

type callResponse struct {
	ID     string `json:"id"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Connector is the tool-serving subsystem. Run blocks serving JSON tool
// calls over a websocket endpoint until Shutdown is called; Ready is closed
// once the listener is bound.
type Connector struct {
	addr   string
	logger *slog.Logger

	mu    sync.RWMutex
	tools map[string]ToolFunc
	specs []ToolSpec

	ready     chan struct{}
	readyOnce sync.Once
	running   atomic.Bool
	boundAddr atomic.Value // string

	srvMu sync.Mutex
	srv   *http.Server
}

func NewConnector(addr string, manifest Manifest, logger *slog.Logger) *Connector {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Connector{
		addr:   addr,
		logger: logger,
		tools:  make(map[string]ToolFunc),
		ready:  make(chan struct{}),
	}
	for _, spec := range manifest.Tools {
		c.RegisterTool(spec, builtinTool(spec.Name))
	}
	return c
}

// RegisterTool binds fn to spec.Name, replacing any previous binding and
// its spec.
func (c *Connector) RegisterTool(spec ToolSpec, fn ToolFunc) {
	if spec.Name == "" || fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tools[spec.Name]; exists {
		for i := range c.specs {
			if c.specs[i].Name == spec.Name {
				c.specs[i] = spec
				break
			}
		}
	} else {
		c.specs = append(c.specs, spec)
	}
	c.tools[spec.Name] = fn
}

// Tools returns the registered tool names, sorted.
func (c *Connector) Tools() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.specs))
	for _, spec := range c.specs {
		names = append(names, spec.Name)
	}
	sort.Strings(names)
	return names
}

// Specs returns a copy of the registered tool specs in registration order.
func (c *Connector) Specs() []ToolSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ToolSpec, len(c.specs))
	copy(out, c.specs)
	return out
}

// Ready is closed once the connector's listener is accepting connections.
func (c *Connector) Ready() <-chan struct{} { return c.ready }

func (c *Connector) Running() bool { return c.running.Load() }

// Addr returns the bound listener address once Ready has fired, otherwise
// the configured address.
func (c *Connector) Addr() string {
	if addr, ok := c.boundAddr.Load().(string); ok {
		return addr
	}
	return c.addr
}

// Run binds the listener, signals readiness, and serves until Shutdown.
// It always returns a nil error on graceful shutdown.
func (c *Connector) Run() error {
	ln, err := net.Listen("tcp", c.addr)
	if err != nil {
		return fmt.Errorf("mcp connector listen %q: %w", c.addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", c.serveWS)

	srv := &http.Server{Handler: mux}
	c.srvMu.Lock()
	c.srv = srv
	c.srvMu.Unlock()

	c.running.Store(true)
	defer c.running.Store(false)

	c.boundAddr.Store(ln.Addr().String())
	c.readyOnce.Do(func() { close(c.ready) })
	c.logger.Info("mcp connector listening", "addr", ln.Addr().String())

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("mcp connector serve: %w", err)
	}
	return nil
}

// Shutdown stops the server, bounded by ctx. Safe to call before Run.
func (c *Connector) Shutdown(ctx context.Context) error {
	c.srvMu.Lock()
	srv := c.srv
	c.srvMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (c *Connector) serveWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req callRequest
		if err := json.Unmarshal(data, &req); err != nil {
			_ = conn.WriteJSON(callResponse{Error: "invalid call frame"})
			continue
		}

		c.mu.RLock()
		fn, ok := c.tools[req.Tool]
		c.mu.RUnlock()
		if !ok {
			_ = conn.WriteJSON(callResponse{ID: req.ID, Error: fmt.Sprintf("unknown tool %q", req.Tool)})
			continue
		}

		result, err := fn(r.Context(), req.Args)
		if err != nil {
			c.logger.Warn("tool call failed", "tool", req.Tool, "error", err)
			_ = conn.WriteJSON(callResponse{ID: req.ID, Error: err.Error()})
			continue
		}
		_ = conn.WriteJSON(callResponse{ID: req.ID, Result: result})
	}
}

// builtinTool returns the stock handler for the default manifest tools.
// Unknown names get an echo handler so a manifest-declared tool is always
// callable even before a real backend is registered.
func builtinTool(name string) ToolFunc {
	switch name {
	case "calendar":
		return func(ctx context.Context, args map[string]any) (any, error) {
			summary, _ := args["summary"].(string)
			if summary == "" {
				return nil, fmt.Errorf("calendar: summary is required")
			}
			return map[string]any{"message": fmt.Sprintf("Scheduled: %s", summary)}, nil
		}
	case "browser":
		return func(ctx context.Context, args map[string]any) (any, error) {
			url, _ := args["url"].(string)
			if url == "" {
				return nil, fmt.Errorf("browser: url is required")
			}
			return map[string]any{"message": fmt.Sprintf("Opened %s", url)}, nil
		}
	case "youtube_search":
		return func(ctx context.Context, args map[string]any) (any, error) {
			query, _ := args["query"].(string)
			if query == "" {
				return nil, fmt.Errorf("youtube_search: query is required")
			}
			return map[string]any{
				"message":    fmt.Sprintf("Here are videos for %q", query),
				"query":      query,
				"video_urls": []string{},
			}, nil
		}
	default:
		return func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]any{"message": fmt.Sprintf("tool %s acknowledged", name)}, nil
		}
	}
}
