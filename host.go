package procbridge

import (
	"context"
	"time"
)

// Host runs a supervised worker process and submits requests to it.
//
// Lifecycle: Hosts are single-use. After Close(), create a new host with
// NewHost().
//
// Example usage:
//
//	host, err := NewHost(
//	    WithLogger(slog.Default()),
//	    WithWorkerCommand("/usr/local/bin/my-worker"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer host.Close()
//
//	if err := host.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := host.Call(ctx, "echo", "hello")
type Host interface {
	// Start begins polling for replies and spawns the worker.
	// Must be called before any submission.
	Start(ctx context.Context) error

	// Submit sends req and waits for its single reply.
	// timeout <= 0 uses the configured response timeout.
	// Returns ErrCapacityExceeded when too many requests are outstanding,
	// ErrRequestTimeout when no reply arrives in time, and *ResponseError
	// when the worker reports a failure.
	Submit(ctx context.Context, req *Message, timeout time.Duration) (*Message, error)

	// Call builds a request with a fresh id and submits it with the
	// default timeout.
	Call(ctx context.Context, method string, payload any) (*Message, error)

	// SubmitStreaming sends req and returns a Stream of its chunks.
	// Each chunk is awaited for at most the configured response timeout.
	SubmitStreaming(ctx context.Context, req *Message) (*Stream, error)

	// Health reports channel load and worker process state.
	Health() Health

	// HealthReporting reports whether health reporting is enabled. Health
	// is always computable; callers that publish it should check this first.
	HealthReporting() bool

	// Close stops the worker and cancels outstanding requests with
	// ErrCancelled. Safe to call multiple times.
	Close() error
}

// NewHost validates the options and prepares a host. Nothing runs until
// Start is called.
//
// The worker command is required:
//
//	host, err := NewHost(WithWorkerCommand(path, "--serve"))
func NewHost(opts ...Option) (Host, error) {
	return newHostImpl(applyOptions(opts))
}
