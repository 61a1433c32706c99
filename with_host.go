package procbridge

import (
	"context"
	"fmt"
)

// WithHost manages host lifecycle with automatic cleanup.
//
// This helper creates a host, starts it with the provided options, executes
// the callback function, and ensures proper cleanup via Close() when done.
//
// The callback receives a started Host whose worker is running.
// If the callback returns an error, it is returned to the caller.
// If Close() fails, a warning is logged but does not override the callback's error.
//
// Example usage:
//
//	err := procbridge.WithHost(ctx, func(h procbridge.Host) error {
//	    resp, err := h.Call(ctx, "echo", "hello")
//	    if err != nil {
//	        return err
//	    }
//	    // process resp...
//	    return nil
//	},
//	    procbridge.WithLogger(log),
//	    procbridge.WithWorkerCommand(path),
//	)
func WithHost(ctx context.Context, fn func(Host) error, opts ...Option) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	options := applyOptions(opts)

	log := options.Logger

	h, err := newHostImpl(options)
	if err != nil {
		return fmt.Errorf("failed to create host: %w", err)
	}

	if err := h.Start(ctx); err != nil {
		_ = h.Close()

		return fmt.Errorf("failed to start host: %w", err)
	}

	defer func() {
		if closeErr := h.Close(); closeErr != nil {
			log.Warn("failed to close host", "error", closeErr)
		}
	}()

	return fn(h)
}
