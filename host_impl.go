package procbridge

import (
	"context"
	"time"

	"github.com/wagiedev/procbridge-go/internal/host"
)

// hostWrapper wraps the internal host to adapt it to the public interface.
type hostWrapper struct {
	impl *host.Host
}

// Compile-time check that *hostWrapper implements the Host interface.
var _ Host = (*hostWrapper)(nil)

// newHostImpl creates the internal host implementation.
func newHostImpl(options *Options) (Host, error) {
	impl, err := host.New(&host.Options{
		Logger:     options.Logger,
		Channel:    options.Channel,
		Supervisor: options.Supervisor,
	})
	if err != nil {
		return nil, err
	}

	return &hostWrapper{impl: impl}, nil
}

// Start begins polling for replies and spawns the worker.
func (h *hostWrapper) Start(ctx context.Context) error {
	return h.impl.Start(ctx)
}

// Submit sends req and waits for its single reply.
func (h *hostWrapper) Submit(ctx context.Context, req *Message, timeout time.Duration) (*Message, error) {
	return h.impl.Submit(ctx, req, timeout)
}

// Call builds a request with a fresh id and submits it.
func (h *hostWrapper) Call(ctx context.Context, method string, payload any) (*Message, error) {
	return h.impl.Call(ctx, method, payload)
}

// SubmitStreaming sends req and returns a Stream of its chunks.
func (h *hostWrapper) SubmitStreaming(ctx context.Context, req *Message) (*Stream, error) {
	return h.impl.SubmitStreaming(ctx, req)
}

// Health reports channel load and worker process state.
func (h *hostWrapper) Health() Health {
	return h.impl.Health()
}

// HealthReporting reports whether health reporting is enabled.
func (h *hostWrapper) HealthReporting() bool {
	return h.impl.HealthReporting()
}

// Close stops the worker and releases the pipes.
func (h *hostWrapper) Close() error {
	return h.impl.Close()
}
