package voice

import (
	"context"
	"sync"
)

// FakeRecognizer hands out scripted sessions. With Transcript set, every
// session emits that transcript as a final result right away.
type FakeRecognizer struct {
	Transcript string
	// FinalOnStop, if set, is emitted as a final result when a session is stopped.
	FinalOnStop string
	Err         error

	mu       sync.Mutex
	configs  []Config
	sessions []*FakeSession
}

func NewFakeRecognizer(transcript string) *FakeRecognizer {
	return &FakeRecognizer{Transcript: transcript}
}

func (f *FakeRecognizer) Listen(_ context.Context, cfg Config) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	s := newFakeSession(f.FinalOnStop)
	f.configs = append(f.configs, cfg)
	f.sessions = append(f.sessions, s)
	if f.Transcript != "" {
		go s.Emit(FinalResult(f.Transcript))
	}
	return s, nil
}

func (f *FakeRecognizer) Sessions() []*FakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeSession(nil), f.sessions...)
}

func (f *FakeRecognizer) Configs() []Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Config(nil), f.configs...)
}

// FinalResult is a final result with a single alternative.
func FinalResult(transcript string) Result {
	return Result{Final: true, Alternatives: []Alternative{{Transcript: transcript, Confidence: 1}}}
}

type FakeSession struct {
	finalOnStop string

	in      chan Result
	out     chan Result
	ended   chan struct{}
	endOnce sync.Once

	mu      sync.Mutex
	stopped bool
}

func newFakeSession(finalOnStop string) *FakeSession {
	s := &FakeSession{
		finalOnStop: finalOnStop,
		in:          make(chan Result),
		out:         make(chan Result),
		ended:       make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *FakeSession) pump() {
	defer close(s.out)
	for {
		select {
		case r := <-s.in:
			s.out <- r
		case <-s.ended:
			if s.StopCalled() && s.finalOnStop != "" {
				s.out <- FinalResult(s.finalOnStop)
			}
			return
		}
	}
}

func (s *FakeSession) Results() <-chan Result { return s.out }

// Emit delivers r unless the session already ended.
func (s *FakeSession) Emit(r Result) bool {
	select {
	case s.in <- r:
		return true
	case <-s.ended:
		return false
	}
}

// End finishes the session from the recognizer side, as on a silent timeout.
func (s *FakeSession) End() {
	s.endOnce.Do(func() { close(s.ended) })
}

func (s *FakeSession) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.End()
}

func (s *FakeSession) StopCalled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Done is closed once the session has ended.
func (s *FakeSession) Done() <-chan struct{} { return s.ended }
