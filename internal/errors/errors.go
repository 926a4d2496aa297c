// Package errors provides structured error types for the trio core.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Typed errors below match these via errors.Is.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotReady    = errors.New("not ready")
	ErrPersistence = errors.New("persistence failure")
	ErrGateway     = errors.New("completion gateway failure")
	ErrNotFound    = errors.New("not found")
	ErrBusy        = errors.New("turn lane is full")
)

// Validationf returns an ErrValidation-wrapped error.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf returns an ErrNotFound-wrapped error.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// NotReadyf returns an ErrNotReady-wrapped error.
func NotReadyf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotReady, fmt.Sprintf(format, args...))
}

// PersistenceError is a failed read or write against the store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is reports ErrPersistence so callers can match on the sentinel.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// NewPersistenceError wraps err, returning nil when err is nil.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// Gateway failure kinds.
const (
	GatewayNetwork   = "network"
	GatewayAuth      = "auth"
	GatewayAPI       = "api"
	GatewayTimeout   = "timeout"
	GatewayMalformed = "malformed"
)

// GatewayError represents a failed completion call.
type GatewayError struct {
	Persona    string
	StatusCode int
	Kind       string
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("gateway %s error", e.Kind)
	if e.Persona != "" {
		msg += " (" + e.Persona + ")"
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status %d", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool { return target == ErrGateway }

// NewGatewayError creates a gateway error of the given kind.
func NewGatewayError(kind, message string, err error) *GatewayError {
	return &GatewayError{Kind: kind, Message: message, Err: err}
}

// AsGatewayError converts any error from a completion call into a *GatewayError,
// tagging it with the persona that was being asked.
func AsGatewayError(persona string, err error) *GatewayError {
	var ge *GatewayError
	if errors.As(err, &ge) {
		out := *ge
		if out.Persona == "" {
			out.Persona = persona
		}
		return &out
	}
	kind := GatewayNetwork
	if errors.Is(err, context.DeadlineExceeded) {
		kind = GatewayTimeout
	}
	return &GatewayError{Persona: persona, Kind: kind, Err: err}
}

// Classify maps err to a short label for metrics and logs.
func Classify(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotReady):
		return "not_ready"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrGateway):
		var ge *GatewayError
		if errors.As(err, &ge) && ge.Kind != "" {
			return "gateway_" + ge.Kind
		}
		return "gateway"
	default:
		return "unknown"
	}
}
