package voice

import (
	"math"
	"time"
)

// EndpointConfig decides when a dictation is over, the way a browser
// recognizer stops on its own after the speaker pauses.
type EndpointConfig struct {
	Threshold       float64 // normalized RMS at or above which a tick counts as speech
	Tick            time.Duration
	SpeechTicks     int // consecutive speech ticks that confirm voice
	TrailingSilence time.Duration
	NoSpeechTimeout time.Duration
	MaxDuration     time.Duration
}

var DefaultEndpoint = EndpointConfig{
	Threshold:       0.02,
	Tick:            100 * time.Millisecond,
	SpeechTicks:     2,
	TrailingSilence: 1500 * time.Millisecond,
	NoSpeechTimeout: 8 * time.Second,
	MaxDuration:     30 * time.Second,
}

type EndReason int

const (
	EndNone EndReason = iota
	EndSilence
	EndNoSpeech
	EndMaxDuration
)

func (r EndReason) String() string {
	switch r {
	case EndSilence:
		return "silence"
	case EndNoSpeech:
		return "no_speech"
	case EndMaxDuration:
		return "max_duration"
	}
	return "none"
}

type endpointer struct {
	cfg        EndpointConfig
	tickFrames int
	silenceAt  int
	noSpeechAt int
	maxAt      int

	pending    []int16
	ticks      int
	speechRun  int
	silenceRun int
	voiced     bool
	heard      int
}

func newEndpointer(cfg EndpointConfig, sampleRate int) *endpointer {
	ticksFor := func(d time.Duration) int {
		return max(int(d/cfg.Tick), 1)
	}
	return &endpointer{
		cfg:        cfg,
		tickFrames: max(int(int64(sampleRate)*int64(cfg.Tick)/int64(time.Second)), 1),
		silenceAt:  ticksFor(cfg.TrailingSilence),
		noSpeechAt: ticksFor(cfg.NoSpeechTimeout),
		maxAt:      ticksFor(cfg.MaxDuration),
	}
}

// Add consumes mono samples and reports the first end condition reached.
func (e *endpointer) Add(samples []int16) EndReason {
	e.pending = append(e.pending, samples...)
	for len(e.pending) >= e.tickFrames {
		tick := e.pending[:e.tickFrames]
		e.pending = e.pending[e.tickFrames:]
		if r := e.tick(rms(tick) >= e.cfg.Threshold); r != EndNone {
			return r
		}
	}
	return EndNone
}

func (e *endpointer) tick(speech bool) EndReason {
	e.ticks++
	if speech {
		e.heard++
		e.speechRun++
		e.silenceRun = 0
		if e.speechRun >= e.cfg.SpeechTicks {
			e.voiced = true
		}
	} else {
		e.speechRun = 0
		e.silenceRun++
	}

	switch {
	case e.ticks >= e.maxAt:
		return EndMaxDuration
	case e.voiced && e.silenceRun >= e.silenceAt:
		return EndSilence
	case !e.voiced && e.ticks >= e.noSpeechAt:
		return EndNoSpeech
	}
	return EndNone
}

// HeardSpeech reports whether any tick carried speech energy.
func (e *endpointer) HeardSpeech() bool { return e.heard > 0 }

func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		n := float64(s) / 32768.0
		sum += n * n
	}
	return math.Sqrt(sum / float64(len(samples)))
}
