// Package voice turns a speech recognizer into a single-shot dictation
// source: one Start yields at most one final transcript.
package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"bolo/log"
)

var (
	ErrCapabilityUnavailable = errors.New("speech recognition not supported")
	ErrAlreadyListening      = errors.New("voice capture already listening")
)

const DefaultLanguage = "hi-IN"

// Config is handed to the recognizer for every session.
type Config struct {
	Language       string
	InterimResults bool
}

type Alternative struct {
	Transcript string
	Confidence float64
}

// Result is one recognition result; Alternatives are ordered best first.
type Result struct {
	Alternatives []Alternative
	Final        bool
}

// Recognizer is the platform speech-recognition capability.
type Recognizer interface {
	Listen(ctx context.Context, cfg Config) (Session, error)
}

// Session is one running recognition. Results is closed when the
// recognizer is done, including after Stop.
type Session interface {
	Results() <-chan Result
	Stop()
}

type State int

const (
	Idle State = iota
	Listening
)

func (s State) String() string {
	if s == Listening {
		return "listening"
	}
	return "idle"
}

// Capture owns at most one recognition session.
type Capture struct {
	rec  Recognizer
	lang string

	mu     sync.Mutex
	state  State
	sess   Session
	latest uint64
}

// New returns a capture for rec. A nil rec means the platform has no
// speech recognition; every Start then fails with ErrCapabilityUnavailable.
func New(rec Recognizer, lang string) *Capture {
	if lang == "" {
		lang = DefaultLanguage
	}
	return &Capture{rec: rec, lang: lang}
}

func (c *Capture) Language() string { return c.lang }

func (c *Capture) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins listening. The first final result's best transcript is
// passed to onTranscript; onEnd runs once the session is over, with or
// without a transcript. Both run on the session goroutine.
func (c *Capture) Start(ctx context.Context, onTranscript func(string), onEnd func()) error {
	if c.rec == nil {
		return ErrCapabilityUnavailable
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Listening {
		return ErrAlreadyListening
	}

	sess, err := c.rec.Listen(ctx, Config{Language: c.lang, InterimResults: false})
	if err != nil {
		if errors.Is(err, ErrCapabilityUnavailable) {
			return err
		}
		return fmt.Errorf("starting recognition: %w", err)
	}

	c.latest++
	gen := c.latest
	c.state = Listening
	c.sess = sess
	log.VoiceEvent("start", c.lang)

	go c.watch(gen, sess, onTranscript, onEnd)
	return nil
}

func (c *Capture) watch(gen uint64, sess Session, onTranscript func(string), onEnd func()) {
	delivered := false
	for r := range sess.Results() {
		if delivered || !r.Final || len(r.Alternatives) == 0 {
			continue
		}
		delivered = true
		if c.current(gen) && onTranscript != nil {
			onTranscript(r.Alternatives[0].Transcript)
		}
		sess.Stop()
	}

	c.mu.Lock()
	if c.latest == gen {
		c.state = Idle
		c.sess = nil
	}
	c.mu.Unlock()

	if !delivered {
		log.VoiceEvent("end_without_result", c.lang)
	} else {
		log.VoiceEvent("end", c.lang)
	}
	if onEnd != nil {
		onEnd()
	}
}

func (c *Capture) current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest == gen
}

// Stop asks the running session to finish and returns to Idle. A final
// result the recognizer still produces is delivered. No-op when Idle.
func (c *Capture) Stop() {
	c.mu.Lock()
	if c.state != Listening {
		c.mu.Unlock()
		return
	}
	sess := c.sess
	c.state = Idle
	c.sess = nil
	c.mu.Unlock()

	log.VoiceEvent("stop", c.lang)
	sess.Stop()
}
