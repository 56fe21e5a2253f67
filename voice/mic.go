package voice

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"time"

	"bolo/audio"
	"bolo/encoder"
	"bolo/log"
	"bolo/transcriber"
)

const transcribeTimeout = 30 * time.Second

// MicRecognizer records from a capture device until the speaker pauses
// (or Stop), then transcribes the recording in one request.
type MicRecognizer struct {
	Audio       audio.Context
	Device      *audio.DeviceInfo
	Transcriber transcriber.Transcriber
	Endpoint    EndpointConfig
}

func (m *MicRecognizer) Listen(ctx context.Context, cfg Config) (Session, error) {
	if m.Audio == nil {
		return nil, fmt.Errorf("%w: no audio input", ErrCapabilityUnavailable)
	}
	if m.Transcriber == nil {
		return nil, fmt.Errorf("%w: %v", ErrCapabilityUnavailable, transcriber.ErrNoKey)
	}

	capture, err := m.Audio.NewCapture(m.Device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCapabilityUnavailable, err)
	}

	ep := m.Endpoint
	if ep.Tick == 0 {
		ep = DefaultEndpoint
	}
	s := &micSession{
		cfg:         cfg,
		capture:     capture,
		transcriber: m.Transcriber,
		ep:          newEndpointer(ep, encoder.SampleRate),
		results:     make(chan Result, 1),
		stop:        make(chan struct{}),
		ended:       make(chan EndReason, 1),
	}
	capture.SetCallback(s.feed)
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		return nil, fmt.Errorf("%w: %v", ErrCapabilityUnavailable, err)
	}
	log.Info("recording_device: " + capture.DeviceName())

	go s.run(ctx)
	return s, nil
}

type micSession struct {
	cfg         Config
	capture     audio.CaptureDevice
	transcriber transcriber.Transcriber

	mu      sync.Mutex
	ep      *endpointer
	samples []int16
	closed  bool

	results  chan Result
	stop     chan struct{}
	stopOnce sync.Once
	ended    chan EndReason
}

func (s *micSession) feed(data []byte, _ uint32) {
	block := make([]int16, len(data)/2)
	for i := range block {
		block[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.samples = append(s.samples, block...)
	if r := s.ep.Add(block); r != EndNone {
		s.closed = true
		s.ended <- r
	}
}

func (s *micSession) Results() <-chan Result { return s.results }

func (s *micSession) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *micSession) run(ctx context.Context) {
	defer close(s.results)

	reason := "stop"
	select {
	case <-s.stop:
	case r := <-s.ended:
		reason = r.String()
	case <-ctx.Done():
		reason = "cancel"
	}

	s.capture.Stop()
	s.capture.ClearCallback()
	s.capture.Close()

	s.mu.Lock()
	s.closed = true
	samples := s.samples
	heard := s.ep.HeardSpeech()
	s.mu.Unlock()

	log.Info("recording_end: " + reason)
	if ctx.Err() != nil || !heard || len(samples) < encoder.SampleRate/10 {
		return
	}

	data, err := encoder.EncodeFlac(samples)
	if err != nil {
		log.Warnf("voice: encode: %v", err)
		return
	}

	tctx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	defer cancel()
	res, err := s.transcriber.Transcribe(tctx, data, "flac", s.cfg.Language)
	if err != nil {
		log.Warnf("voice: %s transcription: %v", s.transcriber.Name(), err)
		return
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return
	}
	s.results <- Result{
		Final:        true,
		Alternatives: []Alternative{{Transcript: text, Confidence: 1 - res.NoSpeechProb}},
	}
}
