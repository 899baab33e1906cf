package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/alrislabs/alris-gateway/pkg/gateway/config"
	"github.com/alrislabs/alris-gateway/pkg/gateway/session"
	"github.com/alrislabs/alris-gateway/pkg/mcp"
	"github.com/alrislabs/alris-gateway/pkg/voice"
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
		SpeechEnabled:            true,
		SpeechDeliverTimeout:     time.Second,
		ShutdownGracePeriod:      time.Second,
	}
}

func testOptions() Options {
	return Options{
		Connector:    mcp.NewConnector("127.0.0.1:0", mcp.DefaultManifest(), nil),
		WakeEngine:   voice.NewPushWakeEngine(),
		SpeechEngine: voice.NewPushSpeechEngine(),
	}
}

func TestStartupThenShutdown(t *testing.T) {
	o := New(testConfig(), session.NewRegistry(), nil, testOptions())

	if err := o.Startup(context.Background()); err != nil {
		t.Fatalf("Startup error: %v", err)
	}

	snap := o.Snapshot()
	if !snap.ConnectorRunning {
		t.Fatalf("connector not running: %+v", snap)
	}
	if !snap.ClientConnected {
		t.Fatalf("client not connected: %+v", snap)
	}
	if !snap.AgentReady {
		t.Fatalf("agent not ready: %+v", snap)
	}
	if len(snap.Tools) == 0 {
		t.Fatalf("no tools reported: %+v", snap)
	}
	if !snap.WakeListening {
		t.Fatalf("wake detector not listening: %+v", snap)
	}
	if o.Processor() == nil {
		t.Fatalf("Processor() returned nil after startup")
	}

	o.Shutdown(context.Background())

	snap = o.Snapshot()
	if snap.ClientConnected || snap.AgentReady || snap.WakeListening {
		t.Fatalf("components still up after shutdown: %+v", snap)
	}
}

func TestStartup_IsIdempotent(t *testing.T) {
	o := New(testConfig(), session.NewRegistry(), nil, testOptions())
	defer o.Shutdown(context.Background())

	if err := o.Startup(context.Background()); err != nil {
		t.Fatalf("Startup error: %v", err)
	}
	firstProcessor := o.Processor()

	if err := o.Startup(context.Background()); err != nil {
		t.Fatalf("second Startup error: %v", err)
	}
	if o.Processor() != firstProcessor {
		t.Fatalf("second Startup replaced a live handle")
	}
}

func TestStartup_DegradedWhenClientCannotConnect(t *testing.T) {
	cfg := testConfig()
	cfg.ClientRetryInterval = time.Millisecond

	opts := testOptions()
	// Point the client at a dead address so every attempt fails.
	opts.Client = mcp.NewClient("127.0.0.1:1", nil)

	o := New(cfg, session.NewRegistry(), nil, opts)
	defer o.Shutdown(context.Background())

	if err := o.Startup(context.Background()); err != nil {
		t.Fatalf("Startup error in degraded mode: %v", err)
	}

	snap := o.Snapshot()
	if snap.ClientConnected {
		t.Fatalf("client reports connected against dead address")
	}
	if !snap.AgentReady {
		t.Fatalf("agent handle missing in degraded mode: %+v", snap)
	}
}

func TestShutdown_WithNothingStarted(t *testing.T) {
	o := New(testConfig(), session.NewRegistry(), nil, Options{})
	// Must complete without panicking or blocking.
	o.Shutdown(context.Background())
	o.Shutdown(context.Background())
}

func TestShutdown_IsIdempotent(t *testing.T) {
	o := New(testConfig(), session.NewRegistry(), nil, testOptions())
	if err := o.Startup(context.Background()); err != nil {
		t.Fatalf("Startup error: %v", err)
	}
	o.Shutdown(context.Background())
	o.Shutdown(context.Background())
}

func TestDrainingFlag(t *testing.T) {
	o := New(testConfig(), session.NewRegistry(), nil, Options{})
	if o.IsDraining() {
		t.Fatalf("draining before SetDraining")
	}
	o.SetDraining()
	if !o.IsDraining() {
		t.Fatalf("not draining after SetDraining")
	}
}
