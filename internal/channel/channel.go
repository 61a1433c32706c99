package channel

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joeycumines/go-catrate"

	"github.com/wagiedev/procbridge-go/internal/config"
	"github.com/wagiedev/procbridge-go/internal/errors"
	"github.com/wagiedev/procbridge-go/internal/message"
	"github.com/wagiedev/procbridge-go/internal/queue"
)

// dropWarningCategory is the rate limiter bucket for dropped-reply warnings.
const dropWarningCategory = "dropped_reply"

// Channel correlates requests sent to a worker with the replies it produces.
//
// All methods are safe for concurrent use. The poll loop must be running for
// any submission to complete.
type Channel struct {
	log      *slog.Logger
	cfg      *config.ChannelConfig
	outbound queue.Sender
	inbound  queue.Receiver

	// dropLimiter keeps a misbehaving worker from flooding the log with
	// warnings about replies nobody is waiting for.
	dropLimiter *catrate.Limiter

	// Correlation tables. One mutex guards both so the pending bound and id
	// uniqueness are checked atomically.
	mu      sync.Mutex
	unary   map[string]*pendingUnary
	streams map[string]*chunkBuffer

	// Poll loop lifecycle
	loopMu   sync.Mutex
	cancel   context.CancelFunc
	loopDone chan struct{}
}

// pendingUnary tracks a unary request awaiting its reply.
type pendingUnary struct {
	result chan unaryResult
}

type unaryResult struct {
	msg *message.Message
	err error
}

// HealthStatus is a snapshot of channel load.
type HealthStatus struct {
	PendingRequests int  `json:"pending_requests"`
	MaxPending      int  `json:"max_pending"`
	IsHealthy       bool `json:"is_healthy"`
}

// New creates a channel over the given queues. The config must already be
// validated; it is shared, not copied.
func New(
	log *slog.Logger,
	cfg *config.ChannelConfig,
	outbound queue.Sender,
	inbound queue.Receiver,
) *Channel {
	return &Channel{
		log:      log.With("component", "channel"),
		cfg:      cfg,
		outbound: outbound,
		inbound:  inbound,
		dropLimiter: catrate.NewLimiter(map[time.Duration]int{
			time.Second: 5,
			time.Minute: 60,
		}),
		unary:   make(map[string]*pendingUnary, cfg.MaxPending),
		streams: make(map[string]*chunkBuffer, cfg.MaxPending),
	}
}

// StartPolling starts the poll loop. Calling it while the loop is already
// running is a no-op.
func (c *Channel) StartPolling(ctx context.Context) {
	c.loopMu.Lock()
	defer c.loopMu.Unlock()

	if c.cancel != nil {
		c.log.Debug("Poll loop already running")

		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.cancel = cancel
	c.loopDone = done

	go c.pollLoop(loopCtx, done)

	c.log.Info("Poll loop started", "poll_interval", c.cfg.PollInterval, "max_pending", c.cfg.MaxPending)
}

// StopPolling stops the poll loop, resolves every outstanding unary request
// with errors.ErrCancelled, and unblocks every open stream. Calling it when
// the loop is not running is a no-op.
func (c *Channel) StopPolling() {
	c.loopMu.Lock()
	cancel, done := c.cancel, c.loopDone
	c.cancel, c.loopDone = nil, nil
	c.loopMu.Unlock()

	if cancel == nil {
		return
	}

	c.log.Debug("Stopping poll loop")

	cancel()
	<-done

	c.mu.Lock()
	unary, streams := c.unary, c.streams
	c.unary = make(map[string]*pendingUnary, c.cfg.MaxPending)
	c.streams = make(map[string]*chunkBuffer, c.cfg.MaxPending)
	c.mu.Unlock()

	// Entries removed from the tables are owned exclusively here, and the
	// result channels are buffered, so these sends never block.
	for _, p := range unary {
		p.result <- unaryResult{err: errors.ErrCancelled}
	}

	for _, buf := range streams {
		buf.closeWithSentinel()
	}

	c.log.Info("Poll loop stopped",
		"cancelled_requests", len(unary),
		"cancelled_streams", len(streams),
	)
}

// IsPolling reports whether the poll loop is running.
func (c *Channel) IsPolling() bool {
	c.loopMu.Lock()
	defer c.loopMu.Unlock()

	return c.cancel != nil
}

// Submit sends a request and waits for its reply.
//
// The request fails immediately with errors.ErrCapacityExceeded if MaxPending
// requests are already in flight; nothing is written to the queue in that
// case. A timeout <= 0 uses the configured ResponseTimeout. On timeout the
// pending entry is removed and the error wraps errors.ErrRequestTimeout. A
// reply with a non-empty Error field is returned as *errors.ResponseError.
func (c *Channel) Submit(
	ctx context.Context,
	req *message.Message,
	timeout time.Duration,
) (*message.Message, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = c.cfg.ResponseTimeout
	}

	id := req.ID
	p := &pendingUnary{result: make(chan unaryResult, 1)}

	if err := c.register(id, func() { c.unary[id] = p }); err != nil {
		return nil, err
	}

	c.log.Debug("Submitting request", "id", id, "method", req.Method)

	if err := c.outbound.Put(ctx, req); err != nil {
		c.removeUnary(id, p)
		c.log.Error("Failed to enqueue request", "id", id, "error", err)

		return nil, fmt.Errorf("enqueue request %s: %w", id, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-p.result:
		return res.msg, res.err

	case <-timer.C:
		if !c.removeUnary(id, p) {
			// The poll loop claimed the entry first; its result is on the way.
			res := <-p.result

			return res.msg, res.err
		}

		c.log.Warn("Request timed out", "id", id, "timeout", timeout)

		return nil, fmt.Errorf("%w: %s after %s", errors.ErrRequestTimeout, id, timeout)

	case <-ctx.Done():
		if !c.removeUnary(id, p) {
			res := <-p.result

			return res.msg, res.err
		}

		c.log.Debug("Request cancelled by caller", "id", id)

		return nil, ctx.Err()
	}
}

// SubmitStreaming sends a request whose reply is a sequence of chunks.
//
// Capacity and id checks happen before anything is written, exactly as for
// Submit. The returned Stream must be consumed or closed; closing it early
// releases its slot.
func (c *Channel) SubmitStreaming(ctx context.Context, req *message.Message) (*Stream, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}

	id := req.ID
	buf := newChunkBuffer()

	if err := c.register(id, func() { c.streams[id] = buf }); err != nil {
		return nil, err
	}

	c.log.Debug("Submitting streaming request", "id", id, "method", req.Method)

	if err := c.outbound.Put(ctx, req); err != nil {
		c.removeStream(id, buf)
		c.log.Error("Failed to enqueue streaming request", "id", id, "error", err)

		return nil, fmt.Errorf("enqueue request %s: %w", id, err)
	}

	return &Stream{
		ch:      c,
		id:      id,
		buf:     buf,
		timeout: c.cfg.ResponseTimeout,
	}, nil
}

// Health returns current load. It has no side effects.
func (c *Channel) Health() HealthStatus {
	c.mu.Lock()
	pending := len(c.unary) + len(c.streams)
	c.mu.Unlock()

	return HealthStatus{
		PendingRequests: pending,
		MaxPending:      c.cfg.MaxPending,
		IsHealthy:       pending < c.cfg.MaxPending,
	}
}

// HealthReporting reports whether health should be exposed externally.
func (c *Channel) HealthReporting() bool {
	return c.cfg.EnableHealthReporting
}

// Pending reports whether id is awaiting a reply, unary or streaming.
func (c *Channel) Pending(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, isUnary := c.unary[id]
	_, isStream := c.streams[id]

	return isUnary || isStream
}

// register inserts a correlation entry if the bound and uniqueness allow it.
func (c *Channel) register(id string, insert func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := len(c.unary) + len(c.streams)
	if pending >= c.cfg.MaxPending {
		c.log.Warn("Rejecting request at capacity", "id", id, "pending", pending, "max_pending", c.cfg.MaxPending)

		return fmt.Errorf("%w: %d requests in flight (max %d)", errors.ErrCapacityExceeded, pending, c.cfg.MaxPending)
	}

	_, isUnary := c.unary[id]
	_, isStream := c.streams[id]

	if isUnary || isStream {
		return fmt.Errorf("%w: %s", errors.ErrDuplicateID, id)
	}

	insert()

	return nil
}

// removeUnary deletes the entry if it still belongs to p. It reports whether
// the caller won the race against the poll loop.
func (c *Channel) removeUnary(id string, p *pendingUnary) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.unary[id]; ok && cur == p {
		delete(c.unary, id)

		return true
	}

	return false
}

// removeStream deletes the entry if it still belongs to buf.
func (c *Channel) removeStream(id string, buf *chunkBuffer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cur, ok := c.streams[id]; ok && cur == buf {
		delete(c.streams, id)
	}
}

// pollLoop drains the inbound queue until ctx is cancelled or the queue
// closes. Each fetch waits at most PollInterval so cancellation is noticed
// promptly.
func (c *Channel) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer c.log.Debug("Poll loop exited")

	for {
		if ctx.Err() != nil {
			return
		}

		msg, err := c.inbound.Get(ctx, c.cfg.PollInterval)

		switch {
		case err == nil:
			c.dispatch(msg)

		case stderrors.Is(err, errors.ErrQueueEmpty):
			continue

		case stderrors.Is(err, errors.ErrQueueClosed):
			c.log.Warn("Inbound queue closed, poll loop ending")

			return

		case ctx.Err() != nil:
			return

		default:
			c.log.Warn("Inbound fetch failed", "error", err)

			select {
			case <-time.After(c.cfg.PollInterval):
			case <-ctx.Done():
				return
			}
		}
	}
}

// dispatch routes one inbound message to the request waiting for it.
func (c *Channel) dispatch(msg *message.Message) {
	if err := msg.Validate(); err != nil {
		c.warnDropped("Dropping invalid reply", "error", err)

		return
	}

	c.mu.Lock()

	if p, ok := c.unary[msg.ID]; ok {
		delete(c.unary, msg.ID)
		c.mu.Unlock()

		if msg.IsError() {
			p.result <- unaryResult{err: &errors.ResponseError{ID: msg.ID, Message: msg.Error}}
		} else {
			p.result <- unaryResult{msg: msg}
		}

		c.log.Debug("Resolved request", "id", msg.ID, "error", msg.Error)

		return
	}

	if buf, ok := c.streams[msg.ID]; ok {
		if msg.IsFinal() {
			delete(c.streams, msg.ID)
		}

		buf.push(msg)
		c.mu.Unlock()

		c.log.Debug("Buffered chunk", "id", msg.ID, "final", msg.IsFinal())

		return
	}

	c.mu.Unlock()

	c.warnDropped("No pending request for reply", "id", msg.ID, "kind", msg.Kind)
}

// warnDropped logs a dropped reply at Warn, falling back to Debug once the
// drop rate limit is hit.
func (c *Channel) warnDropped(msg string, args ...any) {
	if _, ok := c.dropLimiter.Allow(dropWarningCategory); ok {
		c.log.Warn(msg, args...)

		return
	}

	c.log.Debug(msg, args...)
}

// checkRequest validates an outgoing request once at the boundary.
func checkRequest(req *message.Message) error {
	if err := req.Validate(); err != nil {
		return err
	}

	if req.Kind != message.KindRequest {
		return fmt.Errorf("%w: submitted %s %s is not a request", errors.ErrInvalidMessage, req.Kind, req.ID)
	}

	return nil
}
