package nanotypes

import (
	"errors"
	"fmt"
)

// ErrorKind classifies invocation failures.
type ErrorKind string

// Invocation error kinds.
const (
	KindCapabilityUnavailable ErrorKind = "capability_unavailable"
	KindUnsupportedOperation  ErrorKind = "unsupported_operation"
	KindProviderError         ErrorKind = "provider_error"
	KindInvalidCommand        ErrorKind = "invalid_command"
	KindInputTooLarge         ErrorKind = "input_too_large"
)

// Sentinels for errors.Is matching against an *InvocationError.
var (
	ErrCapabilityUnavailable = errors.New("capability unavailable")
	ErrUnsupportedOperation  = errors.New("unsupported operation")
	ErrProviderError         = errors.New("provider error")
	ErrInvalidCommand        = errors.New("invalid command")
	ErrInputTooLarge         = errors.New("input too large")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindCapabilityUnavailable:
		return ErrCapabilityUnavailable
	case KindUnsupportedOperation:
		return ErrUnsupportedOperation
	case KindProviderError:
		return ErrProviderError
	case KindInvalidCommand:
		return ErrInvalidCommand
	case KindInputTooLarge:
		return ErrInputTooLarge
	}
	return nil
}

// InvocationError is returned by the invoker for every failed command run.
type InvocationError struct {
	Kind       ErrorKind
	Capability Capability
	Command    string
	Message    string
	Cause      error
}

// NewInvocationError builds an InvocationError of the given kind.
func NewInvocationError(kind ErrorKind, capability Capability, message string, cause error) *InvocationError {
	return &InvocationError{
		Kind:       kind,
		Capability: capability,
		Message:    message,
		Cause:      cause,
	}
}

// WithCommand returns the error annotated with a command name.
func (e *InvocationError) WithCommand(name string) *InvocationError {
	e.Command = name
	return e
}

func (e *InvocationError) Error() string {
	msg := e.Message
	if msg == "" {
		if s := e.Kind.sentinel(); s != nil {
			msg = s.Error()
		} else {
			msg = string(e.Kind)
		}
	}
	if e.Capability != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Capability)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes the underlying provider or availability error.
func (e *InvocationError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel of the error's kind.
func (e *InvocationError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// KindOf returns the kind of an invocation error anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var ie *InvocationError
	if errors.As(err, &ie) {
		return ie.Kind, true
	}
	return "", false
}

// IsRecoverable reports whether err should be shown to the user as a message
// rather than aborting the caller. Only InvalidCommand is a programmer error.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrInvalidCommand)
}

// FailSoftText converts an invocation outcome into displayable text.
// Successful output is returned as is; recoverable errors become their message.
func FailSoftText(output string, err error) (string, error) {
	if err == nil {
		return output, nil
	}
	if !IsRecoverable(err) {
		return "", err
	}
	return err.Error(), nil
}
