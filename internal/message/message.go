package message

import (
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/procbridge-go/internal/errors"
)

// Kind identifies which variant of the envelope a Message is.
type Kind string

const (
	// KindRequest is a request from the host to the worker.
	KindRequest Kind = "request"
	// KindResponse is the single answer to a unary request.
	KindResponse Kind = "response"
	// KindChunk is one element of a streaming answer.
	KindChunk Kind = "chunk"
)

// Message is the envelope exchanged over the queues.
//
// Wire format (one JSON object per line on pipe queues):
//
//	{"id":"01J...","kind":"request","method":"echo","payload":{...}}
//	{"id":"01J...","kind":"response","payload":{...}}
//	{"id":"01J...","kind":"chunk","payload":{...},"final":true}
//	{"id":"01J...","kind":"response","error":"boom"}
type Message struct {
	// ID is the caller-assigned correlation id.
	ID string `json:"id"`

	// Kind tags the variant.
	Kind Kind `json:"kind"`

	// Method names the worker handler for requests. Empty on replies.
	Method string `json:"method,omitempty"`

	// Payload is the opaque body.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Error is set on replies that failed in the worker.
	Error string `json:"error,omitempty"`

	// Final marks the terminal chunk of a stream.
	Final bool `json:"final,omitempty"`
}

// NewID returns a new unique, lexically sortable correlation id.
func NewID() string {
	return ulid.Make().String()
}

// NewRequest builds a request envelope. The payload is marshalled to JSON
// unless it is already a json.RawMessage or []byte.
func NewRequest(id, method string, payload any) (*Message, error) {
	raw, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}

	return &Message{ID: id, Kind: KindRequest, Method: method, Payload: raw}, nil
}

// NewResponse builds a successful unary reply.
func NewResponse(id string, payload any) (*Message, error) {
	raw, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}

	return &Message{ID: id, Kind: KindResponse, Payload: raw}, nil
}

// NewErrorResponse builds a failed unary reply.
func NewErrorResponse(id, errMsg string) *Message {
	return &Message{ID: id, Kind: KindResponse, Error: errMsg}
}

// NewChunk builds one streaming chunk.
func NewChunk(id string, payload any, final bool) (*Message, error) {
	raw, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}

	return &Message{ID: id, Kind: KindChunk, Payload: raw, Final: final}, nil
}

// IsFinal reports whether m terminates a stream. A failed response is also
// terminal when it arrives for a stream.
func (m *Message) IsFinal() bool {
	return m.Final || m.Kind == KindResponse
}

// IsError reports whether the reply carries a worker-side failure.
func (m *Message) IsError() bool {
	return m.Error != ""
}

// Decode unmarshals the payload into v.
func (m *Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%w: message %s has no payload", errors.ErrInvalidMessage, m.ID)
	}

	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decode payload of %s: %w", m.ID, err)
	}

	return nil
}

// Validate checks the envelope invariants. It is called once per message at
// the channel boundary.
func (m *Message) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil message", errors.ErrInvalidMessage)
	}

	if m.ID == "" {
		return fmt.Errorf("%w: empty correlation id", errors.ErrInvalidMessage)
	}

	switch m.Kind {
	case KindRequest, KindResponse:
		if m.Final {
			return fmt.Errorf("%w: final flag on %s %s", errors.ErrInvalidMessage, m.Kind, m.ID)
		}
	case KindChunk:
	default:
		return fmt.Errorf("%w: unknown kind %q on %s", errors.ErrInvalidMessage, m.Kind, m.ID)
	}

	return nil
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	case []byte:
		return json.RawMessage(p), nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	return raw, nil
}
