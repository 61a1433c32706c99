package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	bridgeerrors "github.com/wagiedev/procbridge-go/internal/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     *Message
		wantErr bool
	}{
		{name: "request", msg: &Message{ID: "r1", Kind: KindRequest, Method: "echo"}},
		{name: "response", msg: &Message{ID: "r1", Kind: KindResponse}},
		{name: "final chunk", msg: &Message{ID: "r1", Kind: KindChunk, Final: true}},
		{name: "nil", msg: nil, wantErr: true},
		{name: "empty id", msg: &Message{Kind: KindRequest}, wantErr: true},
		{name: "unknown kind", msg: &Message{ID: "r1", Kind: "event"}, wantErr: true},
		{name: "final on response", msg: &Message{ID: "r1", Kind: KindResponse, Final: true}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, bridgeerrors.ErrInvalidMessage)

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestNewRequest_MarshalsPayload(t *testing.T) {
	msg, err := NewRequest("r1", "echo", map[string]string{"text": "hi"})
	require.NoError(t, err)

	require.Equal(t, KindRequest, msg.Kind)
	require.JSONEq(t, `{"text":"hi"}`, string(msg.Payload))

	var out struct {
		Text string `json:"text"`
	}

	require.NoError(t, msg.Decode(&out))
	require.Equal(t, "hi", out.Text)
}

func TestNewRequest_RawPayloadPassthrough(t *testing.T) {
	raw := json.RawMessage(`[1,2,3]`)

	msg, err := NewRequest("r1", "sum", raw)
	require.NoError(t, err)
	require.Equal(t, raw, msg.Payload)
}

func TestDecode_NoPayload(t *testing.T) {
	msg := &Message{ID: "r1", Kind: KindResponse}

	var v any

	require.ErrorIs(t, msg.Decode(&v), bridgeerrors.ErrInvalidMessage)
}

func TestIsFinal(t *testing.T) {
	require.False(t, (&Message{ID: "a", Kind: KindChunk}).IsFinal())
	require.True(t, (&Message{ID: "a", Kind: KindChunk, Final: true}).IsFinal())
	require.True(t, NewErrorResponse("a", "boom").IsFinal())
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 100)

	for range 100 {
		id := NewID()
		require.Len(t, id, 26)

		_, dup := seen[id]
		require.False(t, dup)

		seen[id] = struct{}{}
	}
}

func TestParse(t *testing.T) {
	msg, err := Parse([]byte(`{"id":"r1","kind":"chunk","payload":"x","final":true}`))
	require.NoError(t, err)
	require.Equal(t, "r1", msg.ID)
	require.True(t, msg.Final)

	_, err = Parse([]byte(`not json`))

	var parseErr *bridgeerrors.MessageParseError

	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "not json", parseErr.RawData)

	_, err = Parse([]byte(`{"kind":"response"}`))
	require.ErrorIs(t, err, bridgeerrors.ErrInvalidMessage)
}

func TestEncodeParse_WireShape(t *testing.T) {
	msg := NewErrorResponse("r9", "boom")

	data, err := Encode(msg)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"r9","kind":"response","error":"boom"}`, string(data))
}
