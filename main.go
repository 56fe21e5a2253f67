package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"bolo/audio"
	"bolo/controller"
	"bolo/doctor"
	"bolo/log"
	"bolo/notify"
	"bolo/translate"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

var version = "dev"

func run() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: could not read .env: %v\n", err)
	}

	cfg, err := parseFlags(os.Args[1:], os.Getenv, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if cfg.Version {
		fmt.Printf("bolo %s\n", version)
		return
	}

	logPath, err := log.ResolveDir(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	openCrashLog()

	if cfg.Doctor {
		os.Exit(doctor.Run(doctor.Options{
			Server: cfg.Server,
			STT:    cfg.STT,
			TTS:    cfg.TTS,
			Device: cfg.Device,
		}))
	}

	if cfg.Setup && cfg.Device == "" {
		cfg.Device = chooseDevice()
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	client := translate.NewClient(cfg.Server)
	go client.Warm(ctx)

	code := 0
	if cfg.Test {
		code = runTestMode(ctx, cfg, client)
	} else if err := runTUI(ctx, cfg, client); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		code = 1
	}

	stop()
	log.SessionEnd(client.Count())
	log.Close()
	os.Exit(code)
}

func openCrashLog() {
	f, err := os.OpenFile(filepath.Join(log.Dir(), "crash_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(f, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(f, debug.CrashOptions{})
}

func chooseDevice() string {
	ac, err := audio.NewContext()
	if err != nil {
		fmt.Printf("Error initializing audio: %v\n", err)
		os.Exit(1)
	}
	defer ac.Close()

	dev, err := audio.SelectDevice(ac)
	if err != nil {
		fmt.Printf("Warning: device selection failed: %v\n", err)
		fmt.Println("Falling back to default device")
		return ""
	}
	if dev == nil {
		return ""
	}
	return dev.Name
}

func runTUI(ctx context.Context, cfg config, client *translate.Client) error {
	svc := newServices(cfg, nil)
	defer svc.Close()
	log.SessionStart(cfg.Server, svc.sttName, svc.ttsName)

	bridge := newUIBridge()
	notifiers := controller.Notifiers{bridge}
	if cfg.Notify {
		notifiers = append(notifiers, desktopNotifier{notify.NewDesktop()})
	}
	cues := &listenCues{player: svc.cues}

	ctrl := controller.New(controller.Config{
		Translator: client,
		Voice:      svc.voice,
		Playback:   svc.playback,
		Notifier:   notifiers,
		OnChange: func(s controller.State) {
			cues.observe(s)
			bridge.state(s)
		},
		Source:  cfg.Source,
		Timeout: cfg.Timeout,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go ctrl.Run(ctx)

	if cfg.Hotkey {
		startHotkey(ctx, ctrl, cfg.Hold)
	}

	p := tea.NewProgram(newTUIModel(ctrl, svc.describe()), tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.attach(p)
	_, err := p.Run()

	cancel()
	<-ctrl.Done()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		log.Errorf("TUI error: %v", err)
		return err
	}
	return nil
}
