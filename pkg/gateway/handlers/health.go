package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/alrislabs/alris-gateway/pkg/gateway/lifecycle"
)

const Version = "2.0.0"

// HealthHandler reports a point-in-time snapshot of every component. The
// snapshot is recomputed per request; degraded components read as
// "stopped"/"disconnected" rather than failing the endpoint.
type HealthHandler struct {
	Orch *lifecycle.Orchestrator
}

type componentStatus struct {
	Status string `json:"status"`
}

type healthResponse struct {
	Status     string           `json:"status"`
	Components healthComponents `json:"components"`
	Version    string           `json:"version"`
}

type healthComponents struct {
	MCPConnector struct {
		Status string   `json:"status"`
		Tools  []string `json:"tools"`
	} `json:"mcp_connector"`
	MCPClient         componentStatus `json:"mcp_client"`
	AgentOrchestrator struct {
		Status string   `json:"status"`
		Agents []string `json:"agents"`
	} `json:"agent_orchestrator"`
	WebSocket struct {
		Status   string `json:"status"`
		Endpoint string `json:"endpoint"`
	} `json:"websocket"`
	SpeechRecognition struct {
		WakeWordDetector componentStatus `json:"wake_word_detector"`
		SpeechRecognizer componentStatus `json:"speech_recognizer"`
	} `json:"speech_recognition"`
}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap := h.Orch.Snapshot()

	var resp healthResponse
	resp.Status = "healthy"
	resp.Version = Version

	resp.Components.MCPConnector.Status = runningOr(snap.ConnectorRunning, "stopped")
	resp.Components.MCPConnector.Tools = snap.Tools
	if resp.Components.MCPConnector.Tools == nil {
		resp.Components.MCPConnector.Tools = []string{}
	}

	if snap.ClientConnected {
		resp.Components.MCPClient.Status = "connected"
	} else {
		resp.Components.MCPClient.Status = "disconnected"
	}

	if snap.AgentReady {
		resp.Components.AgentOrchestrator.Status = "initialized"
	} else {
		resp.Components.AgentOrchestrator.Status = "unavailable"
	}
	resp.Components.AgentOrchestrator.Agents = snap.Agents
	if resp.Components.AgentOrchestrator.Agents == nil {
		resp.Components.AgentOrchestrator.Agents = []string{}
	}

	resp.Components.WebSocket.Status = "available"
	resp.Components.WebSocket.Endpoint = "/ws"

	resp.Components.SpeechRecognition.WakeWordDetector.Status = runningOr(snap.WakeListening, "stopped")
	resp.Components.SpeechRecognition.SpeechRecognizer.Status = runningOr(snap.TranscriberListening, "stopped")

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func runningOr(running bool, fallback string) string {
	if running {
		return "running"
	}
	return fallback
}
