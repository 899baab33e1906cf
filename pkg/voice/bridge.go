package voice

import (
	"context"
	"log/slog"
	"time"
)

// Sender routes a recognized speech command to whichever session is
// currently active.
type Sender interface {
	DeliverSpeech(ctx context.Context, text string) error
}

// Bridge wires the wake detector to the transcriber and the transcriber to
// the session layer. Its callbacks run on the engines' goroutines, never on
// the serving path; delivery blocks the callback goroutine until the frame
// is written or the timeout fires, so a recognized utterance is handed off
// before the transcriber is stopped.
type Bridge struct {
	detector       *WakeDetector
	transcriber    *Transcriber
	sender         Sender
	deliverTimeout time.Duration
	logger         *slog.Logger
}

func NewBridge(detector *WakeDetector, transcriber *Transcriber, sender Sender, deliverTimeout time.Duration, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	if deliverTimeout <= 0 {
		deliverTimeout = 5 * time.Second
	}
	return &Bridge{
		detector:       detector,
		transcriber:    transcriber,
		sender:         sender,
		deliverTimeout: deliverTimeout,
		logger:         logger,
	}
}

// Start begins wake-word detection.
func (b *Bridge) Start() error {
	return b.detector.Start(b.onWake)
}

// Stop tears down the transcriber first, then the detector. Best-effort.
func (b *Bridge) Stop() {
	b.transcriber.Stop()
	b.detector.Stop()
}

func (b *Bridge) onWake(detected bool) {
	if !detected {
		return
	}
	b.logger.Info("wake word detected, starting speech recognition")
	if err := b.transcriber.Start(b.onTranscript); err != nil {
		b.logger.Error("failed to start speech recognition", "error", err)
	}
}

// onTranscript is single-shot per wake event: deliver, then stop the
// transcriber so the next wake starts a fresh pass.
func (b *Bridge) onTranscript(text string) {
	b.logger.Info("speech recognized", "text", text)

	ctx, cancel := context.WithTimeout(context.Background(), b.deliverTimeout)
	defer cancel()
	if err := b.sender.DeliverSpeech(ctx, text); err != nil {
		b.logger.Warn("speech command not delivered", "error", err)
	}

	b.transcriber.Stop()
}
