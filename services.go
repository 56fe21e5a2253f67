package main

import (
	"errors"
	"fmt"
	"os"

	"bolo/audio"
	"bolo/beep"
	"bolo/log"
	"bolo/speech"
	"bolo/transcriber"
	"bolo/voice"
)

// services holds the platform capabilities the controller drives. Any of
// them may be missing; the controller reports that to the user when the
// matching action is attempted.
type services struct {
	audio    audio.Context
	device   *audio.DeviceInfo
	voice    *voice.Capture
	playback *speech.Playback
	cues     *beep.Player
	sttName  string
	ttsName  string
}

func (s *services) Close() {
	if s.playback != nil {
		s.playback.Stop()
	}
	if s.voice != nil {
		s.voice.Stop()
	}
	if s.audio != nil {
		s.audio.Close()
	}
}

// newServices connects to audio (or a fake fed from ac when non-nil) and
// builds the recognizer and synthesizer chosen in cfg.
func newServices(cfg config, ac audio.Context) *services {
	s := &services{sttName: "none", ttsName: "none"}

	if ac == nil && (cfg.STT != "none" || cfg.TTS == "openai" || cfg.Beep) {
		var err error
		ac, err = audio.NewContext()
		if err != nil {
			log.Warnf("audio unavailable: %v", err)
		}
	}
	s.audio = ac

	if ac != nil && cfg.Device != "" {
		dev, err := audio.FindDevice(ac, cfg.Device)
		if err != nil {
			log.Warnf("device %q: %v, using system default", cfg.Device, err)
		}
		s.device = dev
	}

	s.voice = voice.New(s.recognizer(cfg), cfg.Lang)
	if synth := s.synthesizer(cfg); synth != nil {
		s.playback = speech.NewPlayback(synth, cfg.Lang)
	}

	if cfg.Beep && ac != nil {
		s.cues = beep.New(ac)
	}
	return s
}

// recognizer returns nil when dictation cannot work here; voice.Capture
// then reports the capability as unavailable.
func (s *services) recognizer(cfg config) voice.Recognizer {
	if cfg.STT == "none" {
		return nil
	}
	t, err := transcriber.New(cfg.STT)
	if err != nil {
		log.Warnf("dictation disabled: %v", err)
		return nil
	}
	if s.audio == nil {
		return nil
	}
	s.sttName = t.Name()
	return &voice.MicRecognizer{
		Audio:       s.audio,
		Device:      s.device,
		Transcriber: t,
		Endpoint:    voice.DefaultEndpoint,
	}
}

func (s *services) synthesizer(cfg config) speech.Synthesizer {
	switch cfg.TTS {
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" || s.audio == nil {
			log.Warn("speech disabled: openai TTS needs OPENAI_API_KEY and audio output")
			return nil
		}
		s.ttsName = "openai"
		return speech.NewOpenAISynthesizer(key, os.Getenv("OPENAI_BASE_URL"), s.audio)
	case "espeak":
		synth, err := speech.NewCommandSynthesizer()
		if err != nil {
			if !errors.Is(err, speech.ErrNoEngine) {
				log.Warnf("speech disabled: %v", err)
			}
			return nil
		}
		s.ttsName = "espeak"
		return synth
	}
	return nil
}

func (s *services) describe() string {
	dev := "default mic"
	if s.device != nil {
		dev = s.device.Name
	}
	return fmt.Sprintf("stt: %s · tts: %s · %s", s.sttName, s.ttsName, dev)
}
