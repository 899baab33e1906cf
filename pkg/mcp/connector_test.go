package mcp

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func startTestConnector(t *testing.T) (*Connector, *Runner) {
	t.Helper()
	connector := NewConnector("127.0.0.1:0", DefaultManifest(), nil)
	runner := NewRunner(connector, nil)
	runner.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if !runner.AwaitReady(ctx) {
		t.Fatalf("connector did not become ready")
	}
	t.Cleanup(func() {
		sctx, scancel := context.WithTimeout(context.Background(), time.Second)
		defer scancel()
		_ = connector.Shutdown(sctx)
	})
	return connector, runner
}

func TestConnectorRoundTrip(t *testing.T) {
	connector, runner := startTestConnector(t)
	if !runner.Alive() {
		t.Fatalf("runner not alive after start")
	}

	client := NewClient(connector.Addr(), nil)
	if ok := client.ConnectWithRetry(context.Background(), 3, 50*time.Millisecond); !ok {
		t.Fatalf("client failed to connect")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result, err := client.Call(ctx, "calendar", map[string]any{"summary": "standup"})
	if err != nil {
		t.Fatalf("Call error: %v", err)
	}
	m, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("result type %T, want map", result)
	}
	if m["message"] != "Scheduled: standup" {
		t.Fatalf("message=%v", m["message"])
	}
}

func TestConnectorUnknownTool(t *testing.T) {
	connector, _ := startTestConnector(t)

	client := NewClient(connector.Addr(), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Call(ctx, "nope", nil); err == nil {
		t.Fatalf("expected error for unknown tool")
	}
}

func TestConnectorShutdownStopsRunner(t *testing.T) {
	connector, runner := startTestConnector(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := connector.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for runner.Alive() {
		if time.Now().After(deadline) {
			t.Fatalf("runner still alive after shutdown")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestConnectorShutdownBeforeRun(t *testing.T) {
	connector := NewConnector("127.0.0.1:0", Manifest{}, nil)
	if err := connector.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown before Run error: %v", err)
	}
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.yaml")
	content := `tools:
  - name: calendar
    description: Calendar events
    args:
      - name: summary
        type: string
  - name: browser
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest error: %v", err)
	}
	if len(m.Tools) != 2 || m.Tools[0].Name != "calendar" || m.Tools[1].Name != "browser" {
		t.Fatalf("unexpected manifest: %+v", m)
	}
}

func TestLoadManifest_RejectsUnnamedTool(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.yaml")
	if err := os.WriteFile(path, []byte("tools:\n  - description: nameless\n"), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	if _, err := LoadManifest(path); err == nil {
		t.Fatalf("expected error for unnamed tool")
	}
}

func TestConnectorTools_Sorted(t *testing.T) {
	connector := NewConnector("127.0.0.1:0", DefaultManifest(), nil)
	want := []string{"browser", "calendar", "youtube_search"}
	if got := connector.Tools(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Tools()=%v, want %v", got, want)
	}
}

func TestConnectorSpecs_TrackRegistration(t *testing.T) {
	connector := NewConnector("127.0.0.1:0", DefaultManifest(), nil)

	replacement := ToolSpec{Name: "calendar", Description: "replacement backend"}
	connector.RegisterTool(replacement, func(context.Context, map[string]any) (any, error) {
		return "ok", nil
	})

	specs := connector.Specs()
	if len(specs) != 3 {
		t.Fatalf("got %d specs, want 3: %+v", len(specs), specs)
	}
	found := false
	for _, spec := range specs {
		if spec.Name == "calendar" {
			found = true
			if spec.Description != "replacement backend" {
				t.Fatalf("re-registration kept stale spec: %+v", spec)
			}
		}
	}
	if !found {
		t.Fatalf("calendar spec missing: %+v", specs)
	}

	want := []string{"browser", "calendar", "youtube_search"}
	if got := connector.Tools(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Tools()=%v, want %v", got, want)
	}
}
