package translate

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput = errors.New("empty input")
	ErrTransport  = errors.New("transport fault")
	ErrServer     = errors.New("server fault")
	ErrMalformed  = errors.New("malformed response")
)

type FaultKind int

const (
	TransportFault FaultKind = iota
	ServerFault
	MalformedResponse
)

func (k FaultKind) sentinel() error {
	switch k {
	case ServerFault:
		return ErrServer
	case MalformedResponse:
		return ErrMalformed
	default:
		return ErrTransport
	}
}

func (k FaultKind) String() string {
	return k.sentinel().Error()
}

// Fault is a failed translate call. Status is set for ServerFault only.
type Fault struct {
	Kind   FaultKind
	Status int
	Err    error
}

func (f *Fault) Error() string {
	switch {
	case f.Kind == ServerFault && f.Err != nil:
		return fmt.Sprintf("%s: status %d: %v", f.Kind, f.Status, f.Err)
	case f.Kind == ServerFault:
		return fmt.Sprintf("%s: status %d", f.Kind, f.Status)
	case f.Err != nil:
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
	return f.Kind.String()
}

func (f *Fault) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Kind.sentinel()}
	}
	return []error{f.Kind.sentinel(), f.Err}
}
