package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"bolo/audio"
	"bolo/controller"
	"bolo/log"
	"bolo/speech"
	"bolo/translate"
	"bolo/voice"

	"github.com/goccy/go-json"
)

// runTestMode drives the controller from stdin, one command per line.
// An optional WAV argument stands in for the microphone.
func runTestMode(ctx context.Context, cfg config, client *translate.Client) int {
	var ac audio.Context
	if len(cfg.Args) > 0 {
		fake, err := audio.NewFakeContext(cfg.Args[0], true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
			return 1
		}
		ac = fake
	} else {
		cfg.STT = "none"
	}
	cfg.Beep = false
	cfg.TTS = "none"

	svc := newServices(cfg, ac)
	defer svc.Close()
	log.SessionStart(cfg.Server, svc.sttName, "test")

	return runScript(ctx, os.Stdin, os.Stdout, cfg, client, svc.voice)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format, args...)
}

// printSynth "speaks" by printing the utterance.
type printSynth struct {
	out *lockedWriter
}

func (p printSynth) Speak(ctx context.Context, u speech.Utterance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.out.printf("SPOKEN %s %s\n", u.Language, u.Text)
	return nil
}

type stateLine struct {
	Input       string `json:"input"`
	Result      string `json:"result"`
	Source      string `json:"source"`
	Rows        int    `json:"rows"`
	Listening   bool   `json:"listening"`
	Speaking    bool   `json:"speaking"`
	Translating bool   `json:"translating"`
}

const waitLimit = 30 * time.Second

func runScript(ctx context.Context, in io.Reader, w io.Writer, cfg config, tr controller.Translator, vc *voice.Capture) int {
	out := &lockedWriter{w: w}
	ctrl := controller.New(controller.Config{
		Translator: tr,
		Voice:      vc,
		Playback:   speech.NewPlayback(printSynth{out}, cfg.Lang),
		Notifier: controller.NotifierFunc(func(n controller.Notice) {
			out.printf("NOTICE %s %s\n", n.Kind, n.Message)
		}),
		Source:  cfg.Source,
		Timeout: cfg.Timeout,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		<-ctrl.Done()
	}()
	go ctrl.Run(ctx)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		cmd, arg, _ := strings.Cut(line, " ")
		switch strings.TrimSpace(cmd) {
		case "":
		case "INPUT":
			ctrl.SetInput(strings.ReplaceAll(arg, `\n`, "\n"))
		case "SOURCE":
			src, err := translate.ParseSource(strings.TrimSpace(arg))
			if err != nil {
				out.printf("ERROR %v\n", err)
				continue
			}
			ctrl.SetSource(src)
		case "SUBMIT":
			ctrl.Submit()
		case "CLEAR":
			ctrl.Clear()
		case "SPEAK":
			ctrl.Speak()
		case "STOP_SPEAKING":
			ctrl.StopSpeaking()
		case "VOICE_START":
			ctrl.StartVoice()
		case "VOICE_STOP":
			ctrl.StopVoice()
		case "VOICE_TOGGLE":
			ctrl.ToggleVoice()
		case "WAIT":
			if !waitIdle(ctrl) {
				out.printf("ERROR wait timed out\n")
			}
		case "SLEEP":
			if ms, err := strconv.Atoi(strings.TrimSpace(arg)); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		case "STATE":
			ctrl.Sync()
			s := ctrl.State()
			data, _ := json.Marshal(stateLine{
				Input:       s.Input,
				Result:      s.Result,
				Source:      string(s.Source),
				Rows:        s.InputRows,
				Listening:   s.Listening,
				Speaking:    s.Speaking,
				Translating: s.Translating,
			})
			out.printf("STATE %s\n", data)
		case "QUIT":
			return 0
		default:
			out.printf("ERROR unknown command %q\n", cmd)
		}
	}
	if err := scanner.Err(); err != nil {
		out.printf("ERROR %v\n", err)
		return 1
	}
	return 0
}

// waitIdle blocks until nothing is in flight.
func waitIdle(ctrl *controller.Controller) bool {
	deadline := time.Now().Add(waitLimit)
	for time.Now().Before(deadline) {
		ctrl.Sync()
		s := ctrl.State()
		if !s.Translating && !s.Listening && !s.Speaking {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
