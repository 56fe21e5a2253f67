package main

import (
	"context"
	"sync"
	"time"

	"bolo/beep"
	"bolo/controller"
	"bolo/hotkey"
	"bolo/log"
	"bolo/notify"

	tea "github.com/charmbracelet/bubbletea"
)

type stateMsg controller.State
type noticeMsg controller.Notice

// uiBridge forwards controller output to the TUI without ever blocking the
// controller. Only the newest state is kept; notices queue up to a limit.
type uiBridge struct {
	notices chan tea.Msg
	wake    chan struct{}
	once    sync.Once

	mu      sync.Mutex
	pending *controller.State
}

const noticeQueueSize = 64

func newUIBridge() *uiBridge {
	return &uiBridge{
		notices: make(chan tea.Msg, noticeQueueSize),
		wake:    make(chan struct{}, 1),
	}
}

func (b *uiBridge) attach(p *tea.Program) {
	b.once.Do(func() {
		go func() {
			for {
				select {
				case m := <-b.notices:
					p.Send(m)
				case <-b.wake:
					if s, ok := b.take(); ok {
						p.Send(stateMsg(s))
					}
				}
			}
		}()
	})
}

func (b *uiBridge) state(s controller.State) {
	b.mu.Lock()
	b.pending = &s
	b.mu.Unlock()
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// take returns the newest undelivered state.
func (b *uiBridge) take() (controller.State, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return controller.State{}, false
	}
	s := *b.pending
	b.pending = nil
	return s, true
}

func (b *uiBridge) Notify(n controller.Notice) {
	select {
	case b.notices <- noticeMsg(n):
	default:
		log.Warnf("ui: notice dropped: %s", n.Message)
	}
}

// desktopNotifier raises warnings and errors as desktop notifications.
type desktopNotifier struct {
	d *notify.Desktop
}

func (n desktopNotifier) Notify(notice controller.Notice) {
	if notice.Kind == controller.NoticeInfo {
		return
	}
	n.d.Send(notify.Title, notice.Message)
}

// listenCues plays a cue on every dictation start and stop.
type listenCues struct {
	player    *beep.Player
	listening bool
}

func (c *listenCues) observe(s controller.State) {
	if s.Listening == c.listening {
		return
	}
	c.listening = s.Listening
	if c.player == nil {
		return
	}
	if s.Listening {
		c.player.Go(beep.Start)
	} else {
		c.player.Go(beep.End)
	}
}

type voiceActions interface {
	StartVoice()
	StopVoice()
}

func startHotkey(ctx context.Context, ctrl voiceActions, hold time.Duration) {
	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		log.Warnf("hotkey disabled: %v", err)
		return
	}
	g := hotkey.Watch(hk, hold)
	go driveHotkey(ctx, g, hk, ctrl)
}

func driveHotkey(ctx context.Context, g *hotkey.Gesture, hk hotkey.Hotkey, ctrl voiceActions) {
	defer hk.Unregister()
	defer g.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-g.Actions():
			switch a {
			case hotkey.StartListening:
				log.Info("hotkey_start")
				ctrl.StartVoice()
			case hotkey.StopListening:
				log.Info("hotkey_stop")
				ctrl.StopVoice()
			}
		}
	}
}
