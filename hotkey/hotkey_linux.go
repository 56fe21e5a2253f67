//go:build linux

package hotkey

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// linux/input-event-codes.h
const (
	evKey     = 1
	keyLCtrl  = 29
	keyRCtrl  = 97
	keyLShift = 42
	keyRShift = 54
	keySpace  = 57

	// struct input_event on 64-bit: timeval(16) type(2) code(2) value(4)
	inputEventSize = 24
)

var errNoKeyboard = errors.New("no readable keyboard device (run: sudo usermod -aG input $USER, then log in again)")

// evdevHotkey reads keyboards directly so the combination works under
// both X11 and Wayland.
type evdevHotkey struct {
	keydown chan struct{}
	keyup   chan struct{}
	files   []*os.File
	once    sync.Once
}

func New() Hotkey {
	return &evdevHotkey{
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (h *evdevHotkey) Register() error {
	paths, err := keyboards()
	if err != nil {
		return fmt.Errorf("scanning input devices: %w", err)
	}
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		h.files = append(h.files, f)
		go h.read(f)
	}
	if len(h.files) == 0 {
		return errNoKeyboard
	}
	return nil
}

type comboState struct {
	ctrl, shift, down bool
}

// key applies one key event and reports whether the combination went
// down or up.
func (s *comboState) key(code uint16, value int32) (pressed, released bool) {
	held := value != 0 // 1 press, 2 autorepeat, 0 release
	switch code {
	case keyLCtrl, keyRCtrl:
		s.ctrl = held
	case keyLShift, keyRShift:
		s.shift = held
	case keySpace:
		if value == 1 && !s.down && s.ctrl && s.shift {
			s.down = true
			return true, false
		}
		if value == 0 && s.down {
			s.down = false
			return false, true
		}
	}
	return false, false
}

func (h *evdevHotkey) read(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	var st comboState
	for {
		n, err := f.Read(buf)
		if err != nil {
			return
		}
		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			ev := buf[i : i+inputEventSize]
			if binary.LittleEndian.Uint16(ev[16:]) != evKey {
				continue
			}
			pressed, released := st.key(binary.LittleEndian.Uint16(ev[18:]), int32(binary.LittleEndian.Uint32(ev[20:])))
			switch {
			case pressed:
				signal(h.keydown)
			case released:
				signal(h.keyup)
			}
		}
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (h *evdevHotkey) Unregister() {
	h.once.Do(func() {
		for _, f := range h.files {
			f.Close()
		}
	})
}

func (h *evdevHotkey) Keydown() <-chan struct{} { return h.keydown }
func (h *evdevHotkey) Keyup() <-chan struct{}   { return h.keyup }

func keyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "event") && isKeyboard(e.Name()) {
			out = append(out, filepath.Join("/dev/input", e.Name()))
		}
	}
	return out, nil
}

// A keyboard advertises a long key capability bitmap; mice and power
// buttons only a few bits.
func isKeyboard(event string) bool {
	data, err := os.ReadFile(filepath.Join("/sys/class/input", event, "device", "capabilities", "key"))
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(data))) > 10
}

func Diagnose() (string, error) {
	paths, err := keyboards()
	if err != nil {
		return "", fmt.Errorf("scanning input devices: %w", err)
	}
	for _, p := range paths {
		if f, err := os.Open(p); err == nil {
			f.Close()
			return fmt.Sprintf("%d keyboard(s) found, %s readable", len(paths), p), nil
		}
	}
	if len(paths) == 0 {
		return "", errors.New("no keyboard devices found")
	}
	return "", errNoKeyboard
}
