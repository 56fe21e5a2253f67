package notify

import (
	"errors"
	"testing"
)

type sent struct{ title, message string }

func recorder(err error) (*Desktop, *[]sent) {
	var got []sent
	d := NewDesktopWith(func(title, message, _ string) error {
		got = append(got, sent{title, message})
		return err
	})
	return d, &got
}

func TestSendCollapsesRepeats(t *testing.T) {
	d, got := recorder(nil)

	d.Send("bolo", "Error occurred during translation.")
	d.Send("bolo", "Error occurred during translation.")
	d.Send("bolo", "Already listening.")
	d.Send("bolo", "Error occurred during translation.")

	if len(*got) != 3 {
		t.Fatalf("sent %d notifications, want 3: %+v", len(*got), *got)
	}
}

func TestResetAllowsRepeat(t *testing.T) {
	d, got := recorder(nil)
	d.Send("bolo", "x")
	d.Reset()
	d.Send("bolo", "x")
	if len(*got) != 2 {
		t.Errorf("sent %d notifications after Reset, want 2", len(*got))
	}
}

func TestSendFailureIsSwallowed(t *testing.T) {
	d, got := recorder(errors.New("no dbus"))
	d.Send("bolo", "x")
	if len(*got) != 1 {
		t.Errorf("sender not called")
	}
}
