package controller

type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeWarn
	NoticeError
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeWarn:
		return "warn"
	case NoticeError:
		return "error"
	}
	return "info"
}

// Notice is a user-facing message. Err carries the underlying fault, if any.
type Notice struct {
	Kind    NoticeKind
	Message string
	Err     error
}

type Notifier interface {
	Notify(Notice)
}

type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Notifiers fans a notice out to each non-nil notifier in order.
type Notifiers []Notifier

func (ns Notifiers) Notify(n Notice) {
	for _, x := range ns {
		if x != nil {
			x.Notify(n)
		}
	}
}
