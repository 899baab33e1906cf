// Package lifecycle sequences startup and shutdown of the gateway's
// subsystems: the tool-serving connector and its runner, the client link,
// the agent processor, and the wake/transcribe pipeline.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/alrislabs/alris-gateway/pkg/agent"
	"github.com/alrislabs/alris-gateway/pkg/gateway/config"
	"github.com/alrislabs/alris-gateway/pkg/gateway/session"
	"github.com/alrislabs/alris-gateway/pkg/mcp"
	"github.com/alrislabs/alris-gateway/pkg/voice"
)

// Options injects subsystem constructors, mainly for tests. Zero values
// select the production defaults.
type Options struct {
	Connector    *mcp.Connector
	Client       *mcp.Client
	NewProcessor func(client *mcp.Client) agent.Processor
	WakeEngine   voice.WakeEngine
	SpeechEngine voice.SpeechEngine
}

// Orchestrator owns the subsystem handles for the life of the process.
// Handles are written only under mu during Startup/Shutdown; everything
// else reads through existence-checked accessors.
type Orchestrator struct {
	cfg      config.Config
	registry *session.Registry
	logger   *slog.Logger
	opts     Options

	mu          sync.Mutex
	connector   *mcp.Connector
	runner      *mcp.Runner
	client      *mcp.Client
	processor   agent.Processor
	detector    *voice.WakeDetector
	transcriber *voice.Transcriber
	bridge      *voice.Bridge

	draining atomic.Bool
}

func New(cfg config.Config, registry *session.Registry, logger *slog.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
		opts:     opts,
	}
}

// Startup brings the subsystems up in order: connector, its runner, the
// client link, the speech pipeline, then the agent processor. Partial
// failure degrades rather than aborts: a connector that never becomes
// reachable or a client that exhausts its retry budget is logged and the
// process still comes up; dependent operations fail individually at call
// time. Idempotent: live handles are not replaced.
func (o *Orchestrator) Startup(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.connector == nil {
		o.connector = o.opts.Connector
	}
	if o.connector == nil {
		manifest := mcp.DefaultManifest()
		if o.cfg.ToolManifestPath != "" {
			m, err := mcp.LoadManifest(o.cfg.ToolManifestPath)
			if err != nil {
				o.logger.Error("tool manifest load failed, using built-in tools", "error", err)
			} else {
				manifest = m
			}
		}
		o.connector = mcp.NewConnector(o.cfg.MCPAddr, manifest, o.logger)
	}
	o.logger.Info("mcp connector initialized", "tools", o.connector.Tools())

	if o.runner == nil || !o.runner.Alive() {
		o.runner = mcp.NewRunner(o.connector, o.logger)
		o.runner.Start()
		o.logger.Info("mcp connector server started")

		rctx, cancel := context.WithTimeout(ctx, o.cfg.SubsystemReadyTimeout)
		ready := o.runner.AwaitReady(rctx)
		cancel()
		if ready {
			o.logger.Info("mcp connector ready", "addr", o.connector.Addr())
		} else {
			o.logger.Warn("mcp connector not ready before timeout, continuing", "timeout", o.cfg.SubsystemReadyTimeout)
		}
	}

	if o.client == nil {
		o.client = o.opts.Client
		if o.client == nil {
			o.client = mcp.NewClient(o.connector.Addr(), o.logger)
		}
		o.client.SetCallTimeout(o.cfg.ClientCallTimeout)
		if !o.client.ConnectWithRetry(ctx, o.cfg.ClientMaxRetries, o.cfg.ClientRetryInterval) {
			o.logger.Error("mcp client could not connect, starting degraded")
		}
	}

	if o.cfg.SpeechEnabled && o.bridge == nil {
		wakeEngine, speechEngine := o.opts.WakeEngine, o.opts.SpeechEngine
		if wakeEngine == nil || speechEngine == nil {
			we, se := voice.NewConsoleEngines(os.Stdin)
			if wakeEngine == nil {
				wakeEngine = we
			}
			if speechEngine == nil {
				speechEngine = se
			}
		}
		o.detector = voice.NewWakeDetector(wakeEngine, o.logger)
		o.transcriber = voice.NewTranscriber(speechEngine, o.logger)
		o.bridge = voice.NewBridge(o.detector, o.transcriber, o.registry, o.cfg.SpeechDeliverTimeout, o.logger)
		if err := o.bridge.Start(); err != nil {
			o.logger.Error("wake word detection failed to start", "error", err)
		} else {
			o.logger.Info("speech pipeline started", "wake_engine", wakeEngine.Name(), "speech_engine", speechEngine.Name())
		}
	}

	if o.processor == nil {
		if o.opts.NewProcessor != nil {
			o.processor = o.opts.NewProcessor(o.client)
		} else {
			o.processor = agent.NewOrchestrator(o.client, o.logger)
		}
		o.logger.Info("agent orchestrator initialized", "client_connected", o.client.Connected())
	}

	return nil
}

// Shutdown tears everything down in reverse order. Every step is
// independently guarded: a failing or absent component is logged and the
// remaining steps still run. It never returns an error and is safe to call
// after a partial Startup, or more than once.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var errs error

	if o.bridge != nil {
		o.bridge.Stop()
		o.bridge = nil
		o.logger.Info("speech pipeline stopped")
	}

	if o.client != nil {
		dctx, cancel := context.WithTimeout(ctx, o.cfg.ClientDisconnectTimeout)
		err := o.client.Disconnect(dctx)
		cancel()
		switch {
		case err == nil:
			o.logger.Info("mcp client disconnected")
			o.client = nil
		case errors.Is(err, context.DeadlineExceeded):
			o.logger.Warn("mcp client disconnect timed out, abandoning connection")
			errs = multierr.Append(errs, err)
		case errors.Is(err, mcp.ErrNotConnected):
			o.logger.Info("mcp client was never connected")
			o.client = nil
		default:
			o.logger.Error("error disconnecting mcp client", "error", err)
			errs = multierr.Append(errs, err)
		}
	}

	if o.connector != nil {
		sctx, cancel := context.WithTimeout(ctx, o.cfg.ConnectorShutdownTimeout)
		err := o.connector.Shutdown(sctx)
		cancel()
		if err != nil {
			o.logger.Error("error shutting down mcp connector", "error", err)
			errs = multierr.Append(errs, err)
		} else {
			o.logger.Info("mcp connector shut down")
			o.connector = nil
			o.runner = nil
		}
	}

	if hook, ok := o.processor.(agent.CleanupHook); ok {
		if err := hook.Cleanup(ctx); err != nil {
			o.logger.Error("agent cleanup failed", "error", err)
			errs = multierr.Append(errs, err)
		}
	}
	o.processor = nil

	if errs != nil {
		o.logger.Error("shutdown finished with errors", "error", errs)
	} else {
		o.logger.Info("shutdown complete")
	}
}

// Processor returns the agent handle, nil before Startup.
func (o *Orchestrator) Processor() agent.Processor {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.processor
}

func (o *Orchestrator) SetDraining() { o.draining.Store(true) }

func (o *Orchestrator) IsDraining() bool { return o.draining.Load() }

// Snapshot is the point-in-time health view, recomputed on every call.
type Snapshot struct {
	ConnectorRunning     bool
	Tools                []string
	ClientConnected      bool
	AgentReady           bool
	Agents               []string
	WakeListening        bool
	TranscriberListening bool
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	var s Snapshot
	if o.runner != nil {
		s.ConnectorRunning = o.runner.Alive()
	}
	if o.connector != nil {
		s.Tools = o.connector.Tools()
	}
	if o.client != nil {
		s.ClientConnected = o.client.Connected()
	}
	if o.processor != nil {
		s.AgentReady = true
		if lister, ok := o.processor.(interface{ Agents() []string }); ok {
			s.Agents = lister.Agents()
		}
	}
	if o.detector != nil {
		s.WakeListening = o.detector.Listening()
	}
	if o.transcriber != nil {
		s.TranscriberListening = o.transcriber.Listening()
	}
	return s
}
