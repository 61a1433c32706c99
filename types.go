package procbridge

import (
	"github.com/wagiedev/procbridge-go/internal/channel"
	"github.com/wagiedev/procbridge-go/internal/config"
	"github.com/wagiedev/procbridge-go/internal/host"
	"github.com/wagiedev/procbridge-go/internal/message"
	"github.com/wagiedev/procbridge-go/internal/supervisor"
	"github.com/wagiedev/procbridge-go/internal/worker"
)

// Re-export types from internal packages

// ===== Messages =====

// Message is the envelope exchanged with the worker.
type Message = message.Message

// Kind identifies the envelope variant.
type Kind = message.Kind

const (
	// KindRequest is sent by the host.
	KindRequest = message.KindRequest
	// KindResponse is the single reply to a unary request.
	KindResponse = message.KindResponse
	// KindChunk is one element of a streamed reply.
	KindChunk = message.KindChunk
)

// NewID returns a new unique correlation id.
func NewID() string {
	return message.NewID()
}

// NewRequest builds a request envelope, marshalling payload to JSON.
func NewRequest(id, method string, payload any) (*Message, error) {
	return message.NewRequest(id, method, payload)
}

// ===== Configuration =====

// ChannelConfig configures request correlation.
type ChannelConfig = config.ChannelConfig

// SupervisorConfig configures the worker process.
type SupervisorConfig = config.SupervisorConfig

// LoadConfig reads a TOML config file. A missing file yields defaults.
func LoadConfig(path string) (*ChannelConfig, *SupervisorConfig, error) {
	ch, sup, _, err := config.Load(path)

	return ch, sup, err
}

// ===== Host =====

// Stream yields the chunks of a streaming request.
type Stream = channel.Stream

// HealthStatus is a snapshot of channel load.
type HealthStatus = channel.HealthStatus

// WorkerStatus is a snapshot of the supervised worker.
type WorkerStatus = supervisor.Status

// Health combines channel load and worker state.
type Health = host.Health

// ===== Worker =====

// WorkerServer dispatches requests to registered handlers.
type WorkerServer = worker.Server

// UnaryHandler answers one request with one reply payload.
type UnaryHandler = worker.UnaryHandler

// StreamHandler answers one request with a sequence of chunks.
type StreamHandler = worker.StreamHandler

// Emit sends one chunk from a StreamHandler.
type Emit = worker.Emit

// RouteOption configures a registered handler.
type RouteOption = worker.RouteOption

// WithSchema validates request payloads against a JSON schema before the
// handler runs.
var WithSchema = worker.WithSchema
