package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ToolCaller is the connector link the orchestrator dispatches through.
type ToolCaller interface {
	Call(ctx context.Context, tool string, args map[string]any) (any, error)
	Connected() bool
}

// Orchestrator is the default Processor: it classifies a command's intent
// and dispatches to the matching connector tool. It stays valid when the
// client link is down; tool intents then fail per call.
type Orchestrator struct {
	client ToolCaller
	logger *slog.Logger
}

func NewOrchestrator(client ToolCaller, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{client: client, logger: logger}
}

// Agents lists the capability names reported by the health endpoint.
func (o *Orchestrator) Agents() []string {
	return []string{"BrowserAgent"}
}

func (o *Orchestrator) Process(ctx context.Context, command, sessionToken string) (map[string]any, error) {
	intent := classifyIntent(command)
	o.logger.Debug("processing command", "session", sessionToken, "intent", intent)

	switch intent {
	case "youtube_search":
		query := extractQuery(command)
		raw, err := o.callTool(ctx, "youtube_search", map[string]any{"query": query})
		if err != nil {
			return nil, err
		}
		return map[string]any{"intent": "youtube_search", "result": raw}, nil

	case "calendar":
		raw, err := o.callTool(ctx, "calendar", map[string]any{
			"action":  "create",
			"summary": command,
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"intent": "calendar", "result": raw}, nil

	case "browser":
		raw, err := o.callTool(ctx, "browser", map[string]any{"url": extractURL(command)})
		if err != nil {
			return nil, err
		}
		return map[string]any{"intent": "browser", "result": raw}, nil

	default:
		return Result{Plain: fmt.Sprintf("I don't have a tool for %q yet", command)}.Map(), nil
	}
}

// Cleanup is the orchestrator's shutdown hook. It holds no resources of its
// own; the client link is owned and closed by the lifecycle orchestrator.
func (o *Orchestrator) Cleanup(ctx context.Context) error {
	o.logger.Info("agent orchestrator cleaned up")
	return nil
}

func (o *Orchestrator) callTool(ctx context.Context, tool string, args map[string]any) (any, error) {
	if o.client == nil || !o.client.Connected() {
		return nil, fmt.Errorf("tool %s unavailable: mcp client is not connected", tool)
	}
	return o.client.Call(ctx, tool, args)
}

func classifyIntent(command string) string {
	lower := strings.ToLower(command)
	switch {
	case strings.Contains(lower, "youtube") || strings.Contains(lower, "video"):
		return "youtube_search"
	case strings.Contains(lower, "calendar") || strings.Contains(lower, "schedule") || strings.Contains(lower, "meeting"):
		return "calendar"
	case strings.Contains(lower, "open") || strings.Contains(lower, "browse") || strings.Contains(lower, "http"):
		return "browser"
	default:
		return "general"
	}
}

func extractQuery(command string) string {
	lower := strings.ToLower(command)
	for _, marker := range []string{"search youtube for", "search for", "videos of", "videos about", "youtube"} {
		if idx := strings.Index(lower, marker); idx >= 0 {
			rest := strings.TrimSpace(command[idx+len(marker):])
			if rest != "" {
				return rest
			}
		}
	}
	return strings.TrimSpace(command)
}

func extractURL(command string) string {
	for _, field := range strings.Fields(command) {
		if strings.HasPrefix(field, "http://") || strings.HasPrefix(field, "https://") {
			return field
		}
	}
	return strings.TrimSpace(command)
}
