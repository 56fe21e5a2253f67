// Package notify raises desktop notifications.
package notify

import (
	"sync"

	"bolo/log"

	"github.com/gen2brain/beeep"
)

const Title = "bolo"

// Sender delivers one notification.
type Sender func(title, message, icon string) error

// Desktop sends notifications through the OS notification service.
// Identical messages arriving back to back are collapsed.
type Desktop struct {
	send Sender

	mu   sync.Mutex
	last string
}

func NewDesktop() *Desktop {
	return &Desktop{send: func(title, message, icon string) error {
		return beeep.Notify(title, message, icon)
	}}
}

// NewDesktopWith uses send instead of the OS notification service.
func NewDesktopWith(send Sender) *Desktop {
	return &Desktop{send: send}
}

// Send shows message under title. Failures are logged, never returned.
func (d *Desktop) Send(title, message string) {
	d.mu.Lock()
	if message == d.last {
		d.mu.Unlock()
		return
	}
	d.last = message
	d.mu.Unlock()

	if err := d.send(title, message, ""); err != nil {
		log.Warnf("notify: %v", err)
	}
}

// Reset forgets the last message so it can be shown again.
func (d *Desktop) Reset() {
	d.mu.Lock()
	d.last = ""
	d.mu.Unlock()
}
