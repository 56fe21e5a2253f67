// Package speech reads text aloud, one utterance at a time.
package speech

import (
	"context"
	"errors"
	"sync"

	"bolo/log"
)

const DefaultLanguage = "hi-IN"

type Utterance struct {
	Text     string
	Language string
}

// Synthesizer is the platform speech-synthesis capability. Speak blocks
// until the utterance has been played or ctx is cancelled.
type Synthesizer interface {
	Speak(ctx context.Context, u Utterance) error
}

// Playback keeps at most one utterance active. A new Speak cancels the
// previous utterance and waits for it to go quiet before starting.
type Playback struct {
	synth Synthesizer
	lang  string

	// OnEnd, if set, runs after every utterance with its error; nil on
	// natural completion, context.Canceled when stopped.
	OnEnd func(error)

	opMu   sync.Mutex // serializes Speak and Stop
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPlayback(synth Synthesizer, lang string) *Playback {
	if lang == "" {
		lang = DefaultLanguage
	}
	return &Playback{synth: synth, lang: lang}
}

func (p *Playback) Language() string { return p.lang }

func (p *Playback) Speaking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done != nil
}

// Speak starts reading text. Empty text is ignored and so is a Playback
// without a synthesizer.
func (p *Playback) Speak(ctx context.Context, text string) {
	if text == "" || p.synth == nil {
		return
	}

	p.opMu.Lock()
	defer p.opMu.Unlock()

	p.stop()

	uctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	u := Utterance{Text: text, Language: p.lang}
	log.PlaybackEvent("start", len([]rune(text)))

	go func() {
		err := p.synth.Speak(uctx, u)
		cancel()

		p.mu.Lock()
		if p.done == done {
			p.done = nil
			p.cancel = nil
		}
		p.mu.Unlock()

		switch {
		case err == nil:
			log.PlaybackEvent("end", len([]rune(text)))
		case errors.Is(err, context.Canceled):
			log.PlaybackEvent("cancel", len([]rune(text)))
		default:
			log.Warnf("playback error: %v", err)
		}
		close(done)
		if p.OnEnd != nil {
			p.OnEnd(err)
		}
	}()
}

// Stop cancels the current utterance and waits for it to end. No-op when idle.
func (p *Playback) Stop() {
	p.opMu.Lock()
	defer p.opMu.Unlock()
	p.stop()
}

func (p *Playback) stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
