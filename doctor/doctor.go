// Package doctor runs the -doctor diagnostics.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"bolo/audio"
	"bolo/clipboard"
	"bolo/encoder"
	"bolo/hotkey"
	"bolo/speech"
	"bolo/transcriber"
	"bolo/translate"
)

type Options struct {
	Server string
	STT    string
	TTS    string
	Device string
}

// Check is one diagnostic. Run returns a short detail line on success.
type Check struct {
	Name string
	// Optional checks print WARN instead of FAIL and do not fail the run.
	Optional bool
	Run      func(ctx context.Context) (string, error)
}

// Run executes all checks against the live system and returns an exit
// code (0 all required checks pass, 1 otherwise).
func Run(opts Options) int {
	setupInterruptHandler()

	fmt.Println("bolo doctor - system diagnostics")
	fmt.Println("================================")

	checks := []Check{
		TranslationCheck(translate.NewClient(opts.Server)),
		{Name: "Microphone", Optional: true, Run: func(ctx context.Context) (string, error) {
			return checkMicrophone(ctx, opts.Device)
		}},
		{Name: "Transcription key", Optional: true, Run: func(context.Context) (string, error) {
			return checkTranscriber(opts.STT)
		}},
		{Name: "Speech synthesis", Optional: true, Run: func(context.Context) (string, error) {
			return checkSynthesizer(opts.TTS)
		}},
		{Name: "Global hotkey", Optional: true, Run: func(context.Context) (string, error) {
			return hotkey.Diagnose()
		}},
		{Name: "Clipboard", Optional: true, Run: func(context.Context) (string, error) {
			if !clipboard.Available() {
				return "", clipboard.ErrUnsupported
			}
			return "clipboard utility found", nil
		}},
	}

	if RunChecks(context.Background(), os.Stdout, checks) {
		return 0
	}
	return 1
}

// RunChecks runs checks in order, printing one result block per check.
func RunChecks(ctx context.Context, w io.Writer, checks []Check) bool {
	allPass := true
	for i, c := range checks {
		fmt.Fprintf(w, "\n[%d/%d] %s\n", i+1, len(checks), c.Name)
		detail, err := c.Run(ctx)
		switch {
		case err == nil:
			fmt.Fprintf(w, "  PASS: %s\n", detail)
		case c.Optional:
			fmt.Fprintf(w, "  WARN: %v\n", err)
		default:
			fmt.Fprintf(w, "  FAIL: %v\n", err)
			allPass = false
		}
	}

	fmt.Fprintln(w)
	if allPass {
		fmt.Fprintln(w, "All required checks passed!")
	} else {
		fmt.Fprintln(w, "Some checks failed. See details above.")
	}
	return allPass
}

// TranslationCheck sends "hello" from English and expects a non-empty result.
func TranslationCheck(tr *translate.Client) Check {
	return Check{
		Name: "Translation endpoint",
		Run: func(ctx context.Context) (string, error) {
			ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			start := time.Now()
			result, err := tr.Translate(ctx, "hello", translate.English)
			var fault *translate.Fault
			switch {
			case errors.As(err, &fault):
				return "", fmt.Errorf("%s: %w", tr.Endpoint(), fault)
			case err != nil:
				return "", err
			case result == "":
				return "", fmt.Errorf("%s answered with an empty result", tr.Endpoint())
			}
			return fmt.Sprintf("%q in %dms", result, time.Since(start).Milliseconds()), nil
		},
	}
}

func checkMicrophone(ctx context.Context, deviceName string) (string, error) {
	ac, err := audio.NewContext()
	if err != nil {
		return "", fmt.Errorf("cannot connect to audio: %w", err)
	}
	defer ac.Close()

	device, err := audio.FindDevice(ac, deviceName)
	if err != nil {
		return "", fmt.Errorf("device %q: %w", deviceName, err)
	}
	level, name, err := sampleLevel(ctx, ac, device, time.Second)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s, input level %.3f over 1s", name, level), nil
}

// sampleLevel records for d and returns the RMS level of what was heard.
func sampleLevel(ctx context.Context, ac audio.Context, device *audio.DeviceInfo, d time.Duration) (float64, string, error) {
	capture, err := ac.NewCapture(device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return 0, "", err
	}
	defer capture.Close()

	var mu sync.Mutex
	var sum float64
	var n int
	capture.SetCallback(func(data []byte, _ uint32) {
		mu.Lock()
		defer mu.Unlock()
		for i := 0; i+1 < len(data); i += 2 {
			s := float64(int16(uint16(data[i])|uint16(data[i+1])<<8)) / 32768.0
			sum += s * s
			n++
		}
	})
	if err := capture.Start(); err != nil {
		return 0, "", err
	}

	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
	capture.Stop()
	capture.ClearCallback()

	mu.Lock()
	defer mu.Unlock()
	if n == 0 {
		return 0, capture.DeviceName(), errors.New("no audio captured")
	}
	return math.Sqrt(sum / float64(n)), capture.DeviceName(), nil
}

func checkTranscriber(name string) (string, error) {
	if name == "none" {
		return "disabled by -stt none", nil
	}
	t, err := transcriber.New(name)
	if err != nil {
		return "", err
	}
	return t.Name() + " key found", nil
}

func checkSynthesizer(name string) (string, error) {
	switch name {
	case "none":
		return "disabled by -tts none", nil
	case "openai":
		if os.Getenv("OPENAI_API_KEY") == "" {
			return "", errors.New("OPENAI_API_KEY not set")
		}
		return "OpenAI TTS key found", nil
	}
	s, err := speech.NewCommandSynthesizer()
	if err != nil {
		return "", err
	}
	return "using " + s.Path, nil
}

func setupInterruptHandler() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted")
		os.Exit(1)
	}()
}
