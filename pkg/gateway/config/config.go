package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr string

	// MCP connector (tool-serving subsystem) and its client link.
	MCPAddr          string
	ToolManifestPath string

	SubsystemReadyTimeout    time.Duration
	ClientMaxRetries         int
	ClientRetryInterval      time.Duration
	ClientCallTimeout        time.Duration
	ClientDisconnectTimeout  time.Duration
	ConnectorShutdownTimeout time.Duration

	// WebSocket session.
	WSWriteTimeout time.Duration

	// Wake-word / speech pipeline.
	SpeechEnabled        bool
	SpeechDeliverTimeout time.Duration

	ShutdownGracePeriod time.Duration

	// CORS allowlist; empty means allow any origin.
	CORSAllowedOrigins map[string]struct{}

	ReadHeaderTimeout time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                     envOr("ALRIS_ADDR", ":8000"),
		MCPAddr:                  envOr("ALRIS_MCP_ADDR", "127.0.0.1:8765"),
		ToolManifestPath:         strings.TrimSpace(os.Getenv("ALRIS_TOOL_MANIFEST")),
		SubsystemReadyTimeout:    envDurationOr("ALRIS_MCP_READY_TIMEOUT", 5*time.Second),
		ClientMaxRetries:         envIntOr("ALRIS_MCP_MAX_RETRIES", 3),
		ClientRetryInterval:      envDurationOr("ALRIS_MCP_RETRY_INTERVAL", 2*time.Second),
		ClientCallTimeout:        envDurationOr("ALRIS_MCP_CALL_TIMEOUT", 10*time.Second),
		ClientDisconnectTimeout:  envDurationOr("ALRIS_MCP_DISCONNECT_TIMEOUT", 3*time.Second),
		ConnectorShutdownTimeout: envDurationOr("ALRIS_MCP_SHUTDOWN_TIMEOUT", 5*time.Second),
		WSWriteTimeout:           envDurationOr("ALRIS_WS_WRITE_TIMEOUT", 5*time.Second),
		SpeechEnabled:            envBoolOr("ALRIS_SPEECH_ENABLED", true),
		SpeechDeliverTimeout:     envDurationOr("ALRIS_SPEECH_DELIVER_TIMEOUT", 5*time.Second),
		ShutdownGracePeriod:      envDurationOr("ALRIS_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
		CORSAllowedOrigins:       make(map[string]struct{}),
		ReadHeaderTimeout:        envDurationOr("ALRIS_READ_HEADER_TIMEOUT", 10*time.Second),
	}

	for _, origin := range splitCSV(os.Getenv("ALRIS_CORS_ORIGINS")) {
		cfg.CORSAllowedOrigins[origin] = struct{}{}
	}

	if strings.TrimSpace(cfg.Addr) == "" {
		return Config{}, fmt.Errorf("ALRIS_ADDR must not be empty")
	}
	if strings.TrimSpace(cfg.MCPAddr) == "" {
		return Config{}, fmt.Errorf("ALRIS_MCP_ADDR must not be empty")
	}
	if cfg.SubsystemReadyTimeout <= 0 {
		return Config{}, fmt.Errorf("ALRIS_MCP_READY_TIMEOUT must be > 0")
	}
	if cfg.ClientMaxRetries <= 0 {
		return Config{}, fmt.Errorf("ALRIS_MCP_MAX_RETRIES must be > 0")
	}
	if cfg.ClientRetryInterval <= 0 {
		return Config{}, fmt.Errorf("ALRIS_MCP_RETRY_INTERVAL must be > 0")
	}
	if cfg.ClientCallTimeout <= 0 {
		return Config{}, fmt.Errorf("ALRIS_MCP_CALL_TIMEOUT must be > 0")
	}
	if cfg.ClientDisconnectTimeout <= 0 {
		return Config{}, fmt.Errorf("ALRIS_MCP_DISCONNECT_TIMEOUT must be > 0")
	}
	if cfg.ConnectorShutdownTimeout <= 0 {
		return Config{}, fmt.Errorf("ALRIS_MCP_SHUTDOWN_TIMEOUT must be > 0")
	}
	if cfg.WSWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("ALRIS_WS_WRITE_TIMEOUT must be > 0")
	}
	if cfg.SpeechDeliverTimeout <= 0 {
		return Config{}, fmt.Errorf("ALRIS_SPEECH_DELIVER_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("ALRIS_SHUTDOWN_GRACE_PERIOD must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("ALRIS_READ_HEADER_TIMEOUT must be > 0")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
