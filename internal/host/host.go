package host

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wagiedev/procbridge-go/internal/channel"
	"github.com/wagiedev/procbridge-go/internal/config"
	"github.com/wagiedev/procbridge-go/internal/errors"
	"github.com/wagiedev/procbridge-go/internal/message"
	"github.com/wagiedev/procbridge-go/internal/queue"
	"github.com/wagiedev/procbridge-go/internal/supervisor"
)

// Options configures a Host.
type Options struct {
	// Logger receives host, channel and supervisor logs. Nil disables logging.
	Logger *slog.Logger

	// Channel configures correlation, timeouts and backpressure. Nil uses
	// defaults.
	Channel *config.ChannelConfig

	// Supervisor configures the worker process. Path is required.
	Supervisor *config.SupervisorConfig
}

// Health combines channel load with worker process state.
type Health struct {
	Channel channel.HealthStatus `json:"channel"`
	Worker  supervisor.Status    `json:"worker"`
}

// Host runs one worker and correlates requests to it.
type Host struct {
	log        *slog.Logger
	pipes      *queue.Pipes
	requests   *queue.Writer
	responses  *queue.Reader
	channel    *channel.Channel
	supervisor *supervisor.Supervisor

	// Lifecycle management
	mu        sync.Mutex
	started   bool
	closed    bool
	closeOnce sync.Once
}

// New validates opts, creates the pipes and wires every component. Nothing
// is started until Start.
func New(opts *Options) (*Host, error) {
	if opts == nil {
		opts = &Options{}
	}

	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	chCfg := opts.Channel
	if chCfg == nil {
		chCfg = config.DefaultChannelConfig()
	}

	if err := chCfg.Validate(); err != nil {
		return nil, err
	}

	supCfg := opts.Supervisor
	if supCfg == nil {
		supCfg = config.DefaultSupervisorConfig()
	}

	if err := supCfg.Validate(); err != nil {
		return nil, err
	}

	workerPath, err := supervisor.ResolveWorker(log, supCfg.Path)
	if err != nil {
		return nil, err
	}

	pipes, err := queue.NewPipes()
	if err != nil {
		return nil, err
	}

	requests, responses := pipes.HostQueues(log)

	spawner := supervisor.NewExecSpawner(log, workerPath, supCfg.Args...)
	spawner.Env = supCfg.Env
	spawner.Dir = supCfg.Dir
	spawner.ExtraFiles = pipes.WorkerFiles()

	return &Host{
		log:        log.With("component", "host"),
		pipes:      pipes,
		requests:   requests,
		responses:  responses,
		channel:    channel.New(log, chCfg, requests, responses),
		supervisor: supervisor.New(log, supCfg, spawner),
	}, nil
}

// Start begins polling for replies and spawns the worker.
//
// The poll loop is bound to the host's lifetime, not to ctx. ctx only bounds
// startup.
func (h *Host) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return errors.ErrHostClosed
	}

	if h.started {
		return errors.ErrHostAlreadyStarted
	}

	h.log.Info("Starting host")

	h.channel.StartPolling(context.Background())

	if err := h.supervisor.Start(); err != nil {
		h.channel.StopPolling()

		return fmt.Errorf("start worker: %w", err)
	}

	h.started = true

	h.log.Info("Host started")

	return nil
}

func (h *Host) ready() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return errors.ErrHostClosed
	}

	if !h.started {
		return errors.ErrHostNotStarted
	}

	return nil
}

// Submit sends req and waits for its reply. timeout <= 0 uses the configured
// response timeout.
func (h *Host) Submit(ctx context.Context, req *message.Message, timeout time.Duration) (*message.Message, error) {
	if err := h.ready(); err != nil {
		return nil, err
	}

	return h.channel.Submit(ctx, req, timeout)
}

// Call builds a request for method with a fresh id and submits it.
func (h *Host) Call(ctx context.Context, method string, payload any) (*message.Message, error) {
	req, err := message.NewRequest(message.NewID(), method, payload)
	if err != nil {
		return nil, err
	}

	return h.Submit(ctx, req, 0)
}

// SubmitStreaming sends req and returns the stream of its chunks.
func (h *Host) SubmitStreaming(ctx context.Context, req *message.Message) (*channel.Stream, error) {
	if err := h.ready(); err != nil {
		return nil, err
	}

	return h.channel.SubmitStreaming(ctx, req)
}

// Health reports channel load and worker state.
func (h *Host) Health() Health {
	return Health{
		Channel: h.channel.Health(),
		Worker:  h.supervisor.Status(),
	}
}

// HealthReporting reports whether health reporting is enabled.
func (h *Host) HealthReporting() bool {
	return h.channel.HealthReporting()
}

// Close stops the worker, cancels outstanding requests and releases the
// pipes. After Close the host cannot be reused. It's safe to call Close
// multiple times.
func (h *Host) Close() error {
	var closeErr error

	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		wasStarted := h.started
		h.started = false
		h.mu.Unlock()

		h.log.Info("Closing host")

		if wasStarted {
			h.supervisor.Stop()
			h.channel.StopPolling()
		}

		closeErr = stderrors.Join(
			h.requests.Close(),
			h.responses.Close(),
			h.pipes.CloseWorkerEnds(),
		)

		h.log.Info("Host closed")
	})

	return closeErr
}
