package voice

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
)

// PushWakeEngine is a wake engine fed programmatically, the integration
// point for real detector backends (and for tests).
type PushWakeEngine struct {
	ch chan struct{}
}

func NewPushWakeEngine() *PushWakeEngine {
	return &PushWakeEngine{ch: make(chan struct{}, 4)}
}

func (e *PushWakeEngine) Name() string { return "push" }

// Push signals one wake event. Drops the event when the buffer is full.
func (e *PushWakeEngine) Push() {
	select {
	case e.ch <- struct{}{}:
	default:
	}
}

func (e *PushWakeEngine) Listen(ctx context.Context) (<-chan struct{}, error) {
	out := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-e.ch:
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// PushSpeechEngine is the speech counterpart of PushWakeEngine.
type PushSpeechEngine struct {
	ch chan string
}

func NewPushSpeechEngine() *PushSpeechEngine {
	return &PushSpeechEngine{ch: make(chan string, 4)}
}

func (e *PushSpeechEngine) Name() string { return "push" }

func (e *PushSpeechEngine) Push(text string) {
	select {
	case e.ch <- text:
	default:
	}
}

func (e *PushSpeechEngine) Recognize(ctx context.Context) (<-chan string, error) {
	out := make(chan string)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case text := <-e.ch:
				select {
				case out <- text:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// NewConsoleEngines builds a wake/speech engine pair driven by text lines
// from r, for running the pipeline without a microphone: each non-empty
// line fires a wake event and is then yielded as the recognized utterance.
func NewConsoleEngines(r io.Reader) (WakeEngine, SpeechEngine) {
	wake := NewPushWakeEngine()
	speech := NewPushSpeechEngine()
	pump := &consolePump{r: r, wake: wake, speech: speech}
	return &consoleWakeEngine{pump: pump, wake: wake},
		&consoleSpeechEngine{pump: pump, speech: speech}
}

type consolePump struct {
	r      io.Reader
	wake   *PushWakeEngine
	speech *PushSpeechEngine
	once   sync.Once
}

func (p *consolePump) start() {
	p.once.Do(func() {
		go func() {
			scanner := bufio.NewScanner(p.r)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				p.wake.Push()
				p.speech.Push(line)
			}
		}()
	})
}

type consoleWakeEngine struct {
	pump *consolePump
	wake *PushWakeEngine
}

func (e *consoleWakeEngine) Name() string { return "console" }

func (e *consoleWakeEngine) Listen(ctx context.Context) (<-chan struct{}, error) {
	e.pump.start()
	return e.wake.Listen(ctx)
}

type consoleSpeechEngine struct {
	pump   *consolePump
	speech *PushSpeechEngine
}

func (e *consoleSpeechEngine) Name() string { return "console" }

func (e *consoleSpeechEngine) Recognize(ctx context.Context) (<-chan string, error) {
	e.pump.start()
	return e.speech.Recognize(ctx)
}
