package speech

import (
	"context"
	"sync"
)

// FakeSynthesizer "plays" an utterance until Finish is called or the
// context is cancelled, and records overlap between utterances.
type FakeSynthesizer struct {
	// Instant makes every utterance complete immediately.
	Instant bool

	mu        sync.Mutex
	spoken    []Utterance
	active    int
	maxActive int
	cancelled int
	finish    chan struct{}
	started   chan Utterance
}

func NewFakeSynthesizer() *FakeSynthesizer {
	return &FakeSynthesizer{
		finish:  make(chan struct{}),
		started: make(chan Utterance, 16),
	}
}

func (f *FakeSynthesizer) Speak(ctx context.Context, u Utterance) error {
	f.mu.Lock()
	f.spoken = append(f.spoken, u)
	f.active++
	f.maxActive = max(f.maxActive, f.active)
	finish := f.finish
	f.mu.Unlock()

	f.started <- u

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.Instant {
		return nil
	}
	select {
	case <-finish:
		return nil
	case <-ctx.Done():
		f.mu.Lock()
		f.cancelled++
		f.mu.Unlock()
		return ctx.Err()
	}
}

// Started yields each utterance as playback begins.
func (f *FakeSynthesizer) Started() <-chan Utterance { return f.started }

// Finish completes every utterance currently playing.
func (f *FakeSynthesizer) Finish() {
	f.mu.Lock()
	close(f.finish)
	f.finish = make(chan struct{})
	f.mu.Unlock()
}

func (f *FakeSynthesizer) Spoken() []Utterance {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Utterance(nil), f.spoken...)
}

func (f *FakeSynthesizer) MaxActive() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxActive
}

func (f *FakeSynthesizer) Cancelled() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}
