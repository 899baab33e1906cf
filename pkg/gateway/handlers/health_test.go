package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alrislabs/alris-gateway/pkg/gateway/config"
	"github.com/alrislabs/alris-gateway/pkg/gateway/lifecycle"
	"github.com/alrislabs/alris-gateway/pkg/gateway/session"
	"github.com/alrislabs/alris-gateway/pkg/mcp"
)

func testConfig() config.Config {
	return config.Config{
		Addr:                     ":0",
		MCPAddr:                  "127.0.0.1:0",
		SubsystemReadyTimeout:    2 * time.Second,
		ClientMaxRetries:         3,
		ClientRetryInterval:      20 * time.Millisecond,
		ClientCallTimeout:        time.Second,
		ClientDisconnectTimeout:  time.Second,
		ConnectorShutdownTimeout: time.Second,
		WSWriteTimeout:           time.Second,
		SpeechEnabled:            false,
		SpeechDeliverTimeout:     time.Second,
		ShutdownGracePeriod:      time.Second,
	}
}

func decodeHealth(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var got map[string]any
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("health response not valid JSON: %v\n%s", err, body)
	}
	return got
}

func component(t *testing.T, health map[string]any, name string) map[string]any {
	t.Helper()
	components, ok := health["components"].(map[string]any)
	if !ok {
		t.Fatalf("missing components object: %v", health)
	}
	c, ok := components[name].(map[string]any)
	if !ok {
		t.Fatalf("missing component %q: %v", name, components)
	}
	return c
}

func TestHealth_BeforeStartup(t *testing.T) {
	orch := lifecycle.New(testConfig(), session.NewRegistry(), nil, lifecycle.Options{})
	rec := httptest.NewRecorder()

	HealthHandler{Orch: orch}.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decodeHealth(t, rec.Body.Bytes())

	if got["status"] != "healthy" {
		t.Fatalf("status field = %v", got["status"])
	}
	if got["version"] != "2.0.0" {
		t.Fatalf("version = %v", got["version"])
	}
	if s := component(t, got, "mcp_connector")["status"]; s != "stopped" {
		t.Fatalf("mcp_connector status = %v", s)
	}
	if s := component(t, got, "mcp_client")["status"]; s != "disconnected" {
		t.Fatalf("mcp_client status = %v", s)
	}
	ws := component(t, got, "websocket")
	if ws["status"] != "available" || ws["endpoint"] != "/ws" {
		t.Fatalf("websocket component = %v", ws)
	}
	speech := component(t, got, "speech_recognition")
	if _, ok := speech["wake_word_detector"]; !ok {
		t.Fatalf("missing wake_word_detector: %v", speech)
	}
}

func TestHealth_AfterStartup(t *testing.T) {
	orch := lifecycle.New(testConfig(), session.NewRegistry(), nil, lifecycle.Options{
		Connector: mcp.NewConnector("127.0.0.1:0", mcp.DefaultManifest(), nil),
	})
	if err := orch.Startup(t.Context()); err != nil {
		t.Fatalf("startup: %v", err)
	}
	defer orch.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	HealthHandler{Orch: orch}.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	got := decodeHealth(t, rec.Body.Bytes())

	connector := component(t, got, "mcp_connector")
	if connector["status"] != "running" {
		t.Fatalf("mcp_connector status = %v", connector["status"])
	}
	tools, ok := connector["tools"].([]any)
	if !ok || len(tools) == 0 {
		t.Fatalf("tools = %v", connector["tools"])
	}
	if s := component(t, got, "mcp_client")["status"]; s != "connected" {
		t.Fatalf("mcp_client status = %v", s)
	}
	agentComp := component(t, got, "agent_orchestrator")
	if agentComp["status"] != "initialized" {
		t.Fatalf("agent_orchestrator status = %v", agentComp["status"])
	}
	agents, ok := agentComp["agents"].([]any)
	if !ok || len(agents) == 0 {
		t.Fatalf("agents = %v", agentComp["agents"])
	}
}
