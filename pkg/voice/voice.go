// Package voice hosts the wake-word/transcription pipeline and the bridge
// that forwards recognized text into the active websocket session. The
// recognition engines themselves are pluggable; this package only manages
// their lifecycle and the handoff between threads.
package voice

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// WakeEngine emits an event whenever a wake condition is detected. The
// returned channel must be closed when ctx is canceled.
type WakeEngine interface {
	Name() string
	Listen(ctx context.Context) (<-chan struct{}, error)
}

// SpeechEngine emits recognized utterances. The returned channel must be
// closed when ctx is canceled.
type SpeechEngine interface {
	Name() string
	Recognize(ctx context.Context) (<-chan string, error)
}

type WakeCallback func(detected bool)

type TranscriptCallback func(text string)

// WakeDetector runs a WakeEngine continuously on its own goroutine and
// invokes the callback on every wake event.
type WakeDetector struct {
	engine WakeEngine
	logger *slog.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	listening atomic.Bool
}

func NewWakeDetector(engine WakeEngine, logger *slog.Logger) *WakeDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &WakeDetector{engine: engine, logger: logger}
}

// Start begins listening. A no-op while already listening.
func (d *WakeDetector) Start(cb WakeCallback) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listening.Load() {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	events, err := d.engine.Listen(ctx)
	if err != nil {
		cancel()
		return err
	}
	d.cancel = cancel
	d.listening.Store(true)

	go func() {
		defer d.listening.Store(false)
		for range events {
			cb(true)
		}
	}()
	return nil
}

func (d *WakeDetector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.listening.Store(false)
}

func (d *WakeDetector) Listening() bool { return d.listening.Load() }

// Transcriber runs a SpeechEngine until stopped, invoking the callback for
// each recognized utterance. It is restartable: Stop then Start begins a
// fresh recognition pass.
type Transcriber struct {
	engine SpeechEngine
	logger *slog.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	listening atomic.Bool
}

func NewTranscriber(engine SpeechEngine, logger *slog.Logger) *Transcriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcriber{engine: engine, logger: logger}
}

func (t *Transcriber) Start(cb TranscriptCallback) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listening.Load() {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	transcripts, err := t.engine.Recognize(ctx)
	if err != nil {
		cancel()
		return err
	}
	t.cancel = cancel
	t.listening.Store(true)

	go func() {
		defer t.listening.Store(false)
		for text := range transcripts {
			cb(text)
		}
	}()
	return nil
}

func (t *Transcriber) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.listening.Store(false)
}

func (t *Transcriber) Listening() bool { return t.listening.Load() }
