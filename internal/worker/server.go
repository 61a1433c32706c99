package worker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/procbridge-go/internal/config"
	"github.com/wagiedev/procbridge-go/internal/errors"
	"github.com/wagiedev/procbridge-go/internal/message"
	"github.com/wagiedev/procbridge-go/internal/queue"
)

// UnaryHandler answers one request with one reply payload.
type UnaryHandler func(ctx context.Context, req *message.Message) (any, error)

// Emit sends one non-final chunk of a streaming reply.
type Emit func(payload any) error

// StreamHandler answers one request with zero or more chunks. The server sends
// the final chunk when the handler returns, carrying the error if any.
type StreamHandler func(ctx context.Context, req *message.Message, emit Emit) error

// RouteOption configures a registered handler.
type RouteOption func(*route) error

// WithSchema validates each request payload against schema before the
// handler runs. Requests that fail get an error reply.
func WithSchema(schema *jsonschema.Schema) RouteOption {
	return func(r *route) error {
		resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
		if err != nil {
			return fmt.Errorf("resolve schema: %w", err)
		}

		r.schema = resolved

		return nil
	}
}

type route struct {
	unary  UnaryHandler
	stream StreamHandler
	schema *jsonschema.Resolved
}

// Server dispatches requests to handlers.
type Server struct {
	log          *slog.Logger
	requests     queue.Receiver
	replies      queue.Sender
	pollInterval time.Duration
	limit        int

	handlersMu sync.RWMutex
	handlers   map[string]*route
}

// NewServer creates a server reading requests and writing replies. The
// channel config supplies the fetch cadence and the concurrency limit
// (MaxPending).
func NewServer(
	log *slog.Logger,
	cfg *config.ChannelConfig,
	requests queue.Receiver,
	replies queue.Sender,
) *Server {
	return &Server{
		log:          log.With("component", "worker_server"),
		requests:     requests,
		replies:      replies,
		pollInterval: cfg.PollInterval,
		limit:        cfg.MaxPending,
		handlers:     make(map[string]*route, 10),
	}
}

// Handle registers a unary handler for method. Registering the same method
// twice replaces the previous handler.
func (s *Server) Handle(method string, h UnaryHandler, opts ...RouteOption) error {
	return s.register(method, &route{unary: h}, opts)
}

// HandleStream registers a streaming handler for method.
func (s *Server) HandleStream(method string, h StreamHandler, opts ...RouteOption) error {
	return s.register(method, &route{stream: h}, opts)
}

func (s *Server) register(method string, r *route, opts []RouteOption) error {
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return fmt.Errorf("register %s: %w", method, err)
		}
	}

	s.handlersMu.Lock()
	defer s.handlersMu.Unlock()

	s.log.Debug("Registering handler", "method", method, "streaming", r.stream != nil)
	s.handlers[method] = r

	return nil
}

// Serve processes requests until ctx is cancelled or the request queue is
// closed, then waits for running handlers. Both endings are an intentional
// shutdown and return nil.
func (s *Server) Serve(ctx context.Context) error {
	s.log.Info("Worker server serving", "max_concurrent", s.limit)

	var g errgroup.Group

	g.SetLimit(s.limit)

	err := s.receiveLoop(ctx, &g)

	if waitErr := g.Wait(); waitErr != nil {
		err = stderrors.Join(err, waitErr)
	}

	s.log.Info("Worker server stopped")

	return err
}

func (s *Server) receiveLoop(ctx context.Context, g *errgroup.Group) error {
	for {
		req, err := s.requests.Get(ctx, s.pollInterval)

		switch {
		case err == nil:
			// Blocks while the concurrency limit is reached, which leaves
			// further requests in the queue.
			g.Go(func() error {
				s.handle(ctx, req)

				return nil
			})

		case stderrors.Is(err, errors.ErrQueueEmpty):
			continue

		case stderrors.Is(err, errors.ErrQueueClosed):
			s.log.Debug("Request queue closed")

			return nil

		case ctx.Err() != nil:
			return nil

		default:
			return fmt.Errorf("receive request: %w", err)
		}
	}
}

// handle runs one request to completion and writes its reply.
func (s *Server) handle(ctx context.Context, req *message.Message) {
	if req.Kind != message.KindRequest {
		s.log.Warn("Ignoring non-request message", "id", req.ID, "kind", req.Kind)

		return
	}

	s.handlersMu.RLock()
	r, exists := s.handlers[req.Method]
	s.handlersMu.RUnlock()

	if !exists {
		s.log.Warn("No handler registered for method", "id", req.ID, "method", req.Method)
		s.reply(ctx, message.NewErrorResponse(req.ID, fmt.Sprintf("%s: %s", errors.ErrNoHandler, req.Method)))

		return
	}

	if r.schema != nil {
		if err := validatePayload(r.schema, req.Payload); err != nil {
			s.log.Warn("Request payload failed validation", "id", req.ID, "method", req.Method, "error", err)
			s.fail(ctx, r, req.ID, err)

			return
		}
	}

	if r.stream != nil {
		s.handleStream(ctx, r.stream, req)

		return
	}

	result, err := r.unary(ctx, req)
	if err != nil {
		s.log.Warn("Handler returned error", "id", req.ID, "method", req.Method, "error", err)
		s.reply(ctx, message.NewErrorResponse(req.ID, err.Error()))

		return
	}

	resp, err := message.NewResponse(req.ID, result)
	if err != nil {
		s.reply(ctx, message.NewErrorResponse(req.ID, err.Error()))

		return
	}

	s.reply(ctx, resp)
}

func (s *Server) handleStream(ctx context.Context, h StreamHandler, req *message.Message) {
	emitted := 0

	emit := func(payload any) error {
		chunk, err := message.NewChunk(req.ID, payload, false)
		if err != nil {
			return err
		}

		if err := s.replies.Put(ctx, chunk); err != nil {
			return fmt.Errorf("emit chunk for %s: %w", req.ID, err)
		}

		emitted++

		return nil
	}

	final := &message.Message{ID: req.ID, Kind: message.KindChunk, Final: true}

	if err := h(ctx, req, emit); err != nil {
		s.log.Warn("Stream handler returned error", "id", req.ID, "method", req.Method, "error", err)
		final.Error = err.Error()
	}

	s.log.Debug("Stream finished", "id", req.ID, "chunks", emitted)
	s.reply(ctx, final)
}

// fail sends an error reply shaped for the route kind.
func (s *Server) fail(ctx context.Context, r *route, id string, err error) {
	if r.stream != nil {
		s.reply(ctx, &message.Message{ID: id, Kind: message.KindChunk, Final: true, Error: err.Error()})

		return
	}

	s.reply(ctx, message.NewErrorResponse(id, err.Error()))
}

func (s *Server) reply(ctx context.Context, msg *message.Message) {
	if err := s.replies.Put(ctx, msg); err != nil {
		// Don't log error if context was cancelled (expected during shutdown)
		if ctx.Err() != nil {
			s.log.Debug("Could not send reply during shutdown", "id", msg.ID, "error", err)

			return
		}

		s.log.Error("Failed to send reply", "id", msg.ID, "error", err)
	}
}

func validatePayload(schema *jsonschema.Resolved, payload json.RawMessage) error {
	var instance any

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &instance); err != nil {
			return fmt.Errorf("%w: payload is not JSON: %v", errors.ErrInvalidMessage, err)
		}
	}

	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidMessage, err)
	}

	return nil
}
