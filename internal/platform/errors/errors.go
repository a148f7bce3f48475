package errors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	// KindConfig marks missing or invalid configuration; fatal at startup
	// or session creation, never partially recovered.
	KindConfig Kind = "config"
	// KindTransport marks network failures reaching a remote backend.
	KindTransport Kind = "transport"
	// KindBackend marks failures reported by a remote backend itself.
	KindBackend Kind = "backend"
	// KindDevice marks capture-hardware failures; terminal for the session.
	KindDevice Kind = "device"
	// KindProtocol marks malformed client control messages.
	KindProtocol  Kind = "protocol"
	KindSession   Kind = "session"
	KindStorage   Kind = "storage"
	KindBootstrap Kind = "bootstrap"
	KindUnknown   Kind = "unknown"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind Kind, op, message string, err error) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

// IsKind checks whether any error in the chain matches the provided kind.
func IsKind(err error, kind Kind) bool {
	var target *Error
	for err != nil {
		if errors.As(err, &target) {
			return target.Kind == kind
		}
		err = errors.Unwrap(err)
	}
	return false
}

// Recoverable reports whether the coordinator treats the error as a lost
// window rather than a terminal condition: transport and backend failures
// advance the watermark and processing continues.
func Recoverable(err error) bool {
	return IsKind(err, KindTransport) || IsKind(err, KindBackend)
}
