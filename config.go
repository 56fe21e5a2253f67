package main

import (
	"flag"
	"fmt"
	"io"
	"time"

	"bolo/translate"
)

const defaultServer = "http://127.0.0.1:5000"

type config struct {
	Server  string
	Source  translate.Source
	Lang    string
	STT     string
	TTS     string
	Timeout time.Duration
	Notify  bool
	Hotkey  bool
	Hold    time.Duration
	Device  string
	Setup   bool
	LogPath string
	Doctor  bool
	Test    bool
	Beep    bool
	Version bool
	Args    []string
}

// parseFlags reads command-line flags; env supplies defaults for the
// server and backend choices.
func parseFlags(args []string, env func(string) string, out io.Writer) (config, error) {
	var cfg config
	var source string

	fs := flag.NewFlagSet("bolo", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&cfg.Server, "server", firstSet(env("BOLO_SERVER"), defaultServer), "Translation server base URL")
	fs.StringVar(&source, "source", firstSet(env("BOLO_SOURCE"), string(translate.DefaultSource)), "Source language: hi, gbm, en or gbm_to_en")
	fs.StringVar(&cfg.Lang, "lang", firstSet(env("BOLO_LANG"), "hi-IN"), "Dictation and speech language (BCP 47)")
	fs.StringVar(&cfg.STT, "stt", firstSet(env("BOLO_STT"), "auto"), "Speech-to-text backend: auto, groq, openai or none")
	fs.StringVar(&cfg.TTS, "tts", firstSet(env("BOLO_TTS"), "espeak"), "Text-to-speech backend: openai, espeak or none")
	fs.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "Translation request timeout (0 = none)")
	fs.BoolVar(&cfg.Notify, "notify", false, "Show desktop notifications for errors")
	fs.BoolVar(&cfg.Hotkey, "hotkey", true, "Toggle dictation with global Ctrl+Shift+Space")
	fs.DurationVar(&cfg.Hold, "longpress", 350*time.Millisecond, "Hold threshold for push-to-talk on the hotkey")
	fs.StringVar(&cfg.Device, "device", "", "Use named microphone device")
	fs.BoolVar(&cfg.Setup, "setup", false, "Select microphone device (otherwise uses system default)")
	fs.StringVar(&cfg.LogPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	fs.BoolVar(&cfg.Doctor, "doctor", false, "Run system diagnostics and exit")
	fs.BoolVar(&cfg.Test, "test", false, "Test mode (headless, stdin-driven)")
	fs.BoolVar(&cfg.Beep, "beep", true, "Play cues when dictation starts and stops")
	fs.BoolVar(&cfg.Version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	cfg.Args = fs.Args()

	src, err := translate.ParseSource(source)
	if err != nil {
		return cfg, err
	}
	cfg.Source = src

	switch cfg.STT {
	case "auto", "groq", "openai", "none":
	default:
		return cfg, fmt.Errorf("unknown -stt %q (use auto, groq, openai or none)", cfg.STT)
	}
	switch cfg.TTS {
	case "openai", "espeak", "none":
	default:
		return cfg, fmt.Errorf("unknown -tts %q (use openai, espeak or none)", cfg.TTS)
	}
	if cfg.Timeout < 0 {
		return cfg, fmt.Errorf("-timeout must not be negative")
	}
	return cfg, nil
}

func firstSet(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
