package hotkey

import "time"

type Action int

const (
	StartListening Action = iota
	StopListening
)

// Gesture turns raw key presses into listening actions. A tap starts
// listening and the next press stops it; holding past the threshold
// listens only while the keys stay down.
type Gesture struct {
	actions chan Action
	done    chan struct{}
}

func Watch(hk Hotkey, hold time.Duration) *Gesture {
	g := &Gesture{
		actions: make(chan Action, 1),
		done:    make(chan struct{}),
	}
	go g.run(hk, hold)
	return g
}

func (g *Gesture) Actions() <-chan Action { return g.actions }

func (g *Gesture) Close() {
	if !g.closed() {
		close(g.done)
	}
}

func (g *Gesture) closed() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

func (g *Gesture) emit(a Action) bool {
	if g.closed() {
		return false
	}
	select {
	case g.actions <- a:
		return true
	case <-g.done:
		return false
	}
}

func (g *Gesture) run(hk Hotkey, hold time.Duration) {
	for {
		if !g.wait(hk.Keydown()) || !g.emit(StartListening) {
			return
		}

		timer := time.NewTimer(hold)
		select {
		case <-timer.C:
			// held: listen until release
			if !g.wait(hk.Keyup()) || !g.emit(StopListening) {
				return
			}
		case <-hk.Keyup():
			timer.Stop()
			// tapped: the next press stops, its release is swallowed
			if !g.wait(hk.Keydown()) || !g.emit(StopListening) || !g.wait(hk.Keyup()) {
				return
			}
		case <-g.done:
			timer.Stop()
			return
		}
	}
}

func (g *Gesture) wait(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-g.done:
		return false
	}
}
