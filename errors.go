package procbridge

import "github.com/wagiedev/procbridge-go/internal/errors"

// Re-export error types from internal package

// ResponseError indicates the worker answered a request with an error.
type ResponseError = errors.ResponseError

// ProcessError indicates the worker process exited with a failure.
type ProcessError = errors.ProcessError

// MessageParseError indicates a line on the pipe could not be decoded.
type MessageParseError = errors.MessageParseError

// ConfigError indicates an invalid configuration value.
type ConfigError = errors.ConfigError

// WorkerNotFoundError indicates the worker executable could not be located.
type WorkerNotFoundError = errors.WorkerNotFoundError

// BridgeError is the base interface for all structured procbridge errors.
type BridgeError = errors.BridgeError

// Re-export sentinel errors from internal package.
var (
	// ErrCapacityExceeded indicates max pending requests are already in flight.
	ErrCapacityExceeded = errors.ErrCapacityExceeded

	// ErrRequestTimeout indicates a response or stream chunk did not arrive in time.
	ErrRequestTimeout = errors.ErrRequestTimeout

	// ErrCancelled indicates the host was closed while the request was outstanding.
	ErrCancelled = errors.ErrCancelled

	// ErrDuplicateID indicates the correlation id is already pending.
	ErrDuplicateID = errors.ErrDuplicateID

	// ErrInvalidMessage indicates a malformed envelope.
	ErrInvalidMessage = errors.ErrInvalidMessage

	// ErrNoHandler indicates the worker has no handler for the method.
	ErrNoHandler = errors.ErrNoHandler

	// ErrWorkerAlreadyRunning indicates the worker was started twice.
	ErrWorkerAlreadyRunning = errors.ErrWorkerAlreadyRunning

	// ErrRestartsExhausted indicates the supervisor gave up on a crashing worker.
	ErrRestartsExhausted = errors.ErrRestartsExhausted

	// ErrLockHeld indicates another host supervises the same worker lock file.
	ErrLockHeld = errors.ErrLockHeld

	// ErrHostNotStarted indicates a submission before Start.
	ErrHostNotStarted = errors.ErrHostNotStarted

	// ErrHostAlreadyStarted indicates Start was called twice.
	ErrHostAlreadyStarted = errors.ErrHostAlreadyStarted

	// ErrHostClosed indicates the host has been closed and cannot be reused.
	ErrHostClosed = errors.ErrHostClosed
)
