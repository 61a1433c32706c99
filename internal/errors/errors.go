package errors

import (
	"errors"
	"fmt"
)

// BridgeError is the base interface for all structured procbridge errors.
type BridgeError interface {
	error
	IsBridgeError() bool
}

// Compile-time verification that all error types implement BridgeError.
var (
	_ BridgeError = (*ResponseError)(nil)
	_ BridgeError = (*ProcessError)(nil)
	_ BridgeError = (*MessageParseError)(nil)
	_ BridgeError = (*ConfigError)(nil)
	_ BridgeError = (*WorkerNotFoundError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrCapacityExceeded indicates max_pending requests are already in flight.
	// The request was rejected before anything was written to the queue.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrRequestTimeout indicates a unary response or stream chunk did not
	// arrive within the response timeout.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrCancelled indicates the channel was torn down while the request was
	// outstanding. Treat as terminal.
	ErrCancelled = errors.New("request cancelled: channel stopped")

	// ErrDuplicateID indicates the correlation id is already pending.
	ErrDuplicateID = errors.New("correlation id already pending")

	// ErrInvalidMessage indicates an envelope failed validation.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrQueueEmpty indicates a queue fetch found nothing before its timeout.
	ErrQueueEmpty = errors.New("queue empty")

	// ErrQueueClosed indicates the queue has been closed.
	ErrQueueClosed = errors.New("queue closed")

	// ErrWorkerAlreadyRunning indicates Start was called while a worker is alive.
	ErrWorkerAlreadyRunning = errors.New("worker already running")

	// ErrRestartsExhausted indicates the supervisor gave up restarting a
	// crashing worker.
	ErrRestartsExhausted = errors.New("worker restarts exhausted")

	// ErrLockHeld indicates another supervisor holds the single-instance lock.
	ErrLockHeld = errors.New("supervisor lock held by another process")

	// ErrNoHandler indicates the worker has no handler for a method.
	ErrNoHandler = errors.New("no handler registered")

	// ErrHostNotStarted indicates a submission before Host.Start.
	ErrHostNotStarted = errors.New("host not started")

	// ErrHostAlreadyStarted indicates Host.Start was called twice.
	ErrHostAlreadyStarted = errors.New("host already started")

	// ErrHostClosed indicates the host has been closed and cannot be reused.
	ErrHostClosed = errors.New("host closed")
)

// ResponseError is returned when the worker answered with a non-empty error
// field.
type ResponseError struct {
	ID      string
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("worker error for %s: %s", e.ID, e.Message)
}

// IsBridgeError implements BridgeError.
func (e *ResponseError) IsBridgeError() bool { return true }

// ProcessError describes how a worker process exited.
type ProcessError struct {
	PID      int
	ExitCode int
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("worker process %d failed (exit %d): %v", e.PID, e.ExitCode, e.Err)
	}

	return fmt.Sprintf("worker process %d failed (exit %d)", e.PID, e.ExitCode)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *ProcessError) IsBridgeError() bool { return true }

// MessageParseError indicates a queue line could not be decoded.
// This error preserves the original raw data that failed to parse.
type MessageParseError struct {
	RawData string
	Err     error
}

func (e *MessageParseError) Error() string {
	return fmt.Sprintf("failed to parse message: %v", e.Err)
}

func (e *MessageParseError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *MessageParseError) IsBridgeError() bool { return true }

// ConfigError indicates an invalid configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// IsBridgeError implements BridgeError.
func (e *ConfigError) IsBridgeError() bool { return true }

// WorkerNotFoundError indicates the worker executable could not be located.
type WorkerNotFoundError struct {
	Path          string
	SearchedPaths []string
	Err           error
}

func (e *WorkerNotFoundError) Error() string {
	msg := "worker executable not found: " + e.Path
	if len(e.SearchedPaths) > 0 {
		msg += fmt.Sprintf(" (searched: %v)", e.SearchedPaths)
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *WorkerNotFoundError) Unwrap() error {
	return e.Err
}

// IsBridgeError implements BridgeError.
func (e *WorkerNotFoundError) IsBridgeError() bool { return true }
