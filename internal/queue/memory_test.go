package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	bridgeerrors "github.com/wagiedev/procbridge-go/internal/errors"
	"github.com/wagiedev/procbridge-go/internal/message"
)

func TestMemory_FIFO(t *testing.T) {
	q := NewMemory(4)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Put(ctx, &message.Message{ID: id, Kind: message.KindResponse}))
	}

	require.Equal(t, 3, q.Len())

	for _, want := range []string{"a", "b", "c"} {
		msg, err := q.Get(ctx, time.Second)
		require.NoError(t, err)
		require.Equal(t, want, msg.ID)
	}
}

func TestMemory_GetTimesOutWhenEmpty(t *testing.T) {
	q := NewMemory(1)

	start := time.Now()
	_, err := q.Get(context.Background(), 20*time.Millisecond)

	require.ErrorIs(t, err, bridgeerrors.ErrQueueEmpty)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestMemory_CloseDrainsThenReportsClosed(t *testing.T) {
	q := NewMemory(2)
	ctx := context.Background()

	require.NoError(t, q.Put(ctx, &message.Message{ID: "last", Kind: message.KindResponse}))
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	msg, err := q.Get(ctx, time.Second)
	require.NoError(t, err)
	require.Equal(t, "last", msg.ID)

	_, err = q.Get(ctx, time.Second)
	require.ErrorIs(t, err, bridgeerrors.ErrQueueClosed)

	err = q.Put(ctx, &message.Message{ID: "late", Kind: message.KindResponse})
	require.ErrorIs(t, err, bridgeerrors.ErrQueueClosed)
}

func TestMemory_PutRespectsContextWhenFull(t *testing.T) {
	q := NewMemory(1)
	require.NoError(t, q.Put(context.Background(), &message.Message{ID: "a", Kind: message.KindRequest}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := q.Put(ctx, &message.Message{ID: "b", Kind: message.KindRequest})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
