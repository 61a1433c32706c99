package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bridgeerrors "github.com/wagiedev/procbridge-go/internal/errors"
	"github.com/wagiedev/procbridge-go/internal/message"
)

func newPipeQueue(t *testing.T) (*Writer, *Reader) {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)

	writer := NewWriter(slog.Default(), w)
	reader := NewReader(slog.Default(), r)

	t.Cleanup(func() {
		_ = writer.Close()
		_ = reader.Close()
	})

	return writer, reader
}

func TestPipe_RoundTrip(t *testing.T) {
	writer, reader := newPipeQueue(t)
	ctx := context.Background()

	req, err := message.NewRequest("r1", "echo", map[string]string{"text": "hi"})
	require.NoError(t, err)
	require.NoError(t, writer.Put(ctx, req))

	got, err := reader.Get(ctx, time.Second)
	require.NoError(t, err)
	require.Equal(t, "r1", got.ID)
	require.Equal(t, "echo", got.Method)
	require.JSONEq(t, `{"text":"hi"}`, string(got.Payload))
}

func TestPipe_ConcurrentWritersNeverInterleave(t *testing.T) {
	writer, reader := newPipeQueue(t)
	ctx := context.Background()

	const n = 50

	big := make([]int, 2000)

	var wg sync.WaitGroup

	for i := range n {
		wg.Go(func() {
			payload, err := json.Marshal(big)
			assert.NoError(t, err)

			msg := &message.Message{ID: message.NewID(), Kind: message.KindChunk, Payload: payload, Final: i%2 == 0}
			assert.NoError(t, writer.Put(ctx, msg))
		})
	}

	received := 0

	for received < n {
		_, err := reader.Get(ctx, 2*time.Second)
		require.NoError(t, err)

		received++
	}

	wg.Wait()
}

func TestPipe_SkipsMalformedLines(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)

	reader := NewReader(slog.Default(), r)
	defer reader.Close()

	_, err = w.WriteString("garbage\n{\"kind\":\"response\"}\n{\"id\":\"ok\",\"kind\":\"response\"}\n")
	require.NoError(t, err)

	got, err := reader.Get(context.Background(), time.Second)
	require.NoError(t, err)
	require.Equal(t, "ok", got.ID)

	require.NoError(t, w.Close())

	_, err = reader.Get(context.Background(), time.Second)
	require.ErrorIs(t, err, bridgeerrors.ErrQueueClosed)
}

func TestPipe_ResyncSealsTruncatedLine(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)

	reader := NewReader(slog.Default(), r)
	defer reader.Close()

	// A worker that died mid-write leaves an unterminated fragment behind.
	_, err = w.WriteString(`{"id":"old","kind":"resp`)
	require.NoError(t, err)

	writer := NewWriter(slog.Default(), w)
	defer writer.Close()

	ctx := context.Background()

	require.NoError(t, writer.Resync(ctx))
	require.NoError(t, writer.Put(ctx, &message.Message{ID: "r1", Kind: message.KindResponse}))

	got, err := reader.Get(ctx, time.Second)
	require.NoError(t, err)
	require.Equal(t, "r1", got.ID)
}

func TestWriter_ResyncAfterClose(t *testing.T) {
	writer, _ := newPipeQueue(t)
	require.NoError(t, writer.Close())

	require.ErrorIs(t, writer.Resync(context.Background()), bridgeerrors.ErrQueueClosed)
}

func TestPipe_GetTimesOut(t *testing.T) {
	_, reader := newPipeQueue(t)

	_, err := reader.Get(context.Background(), 10*time.Millisecond)
	require.ErrorIs(t, err, bridgeerrors.ErrQueueEmpty)
}

func TestWriter_PutAfterClose(t *testing.T) {
	writer, _ := newPipeQueue(t)
	require.NoError(t, writer.Close())

	err := writer.Put(context.Background(), &message.Message{ID: "x", Kind: message.KindRequest})
	require.ErrorIs(t, err, bridgeerrors.ErrQueueClosed)
}

func TestPipes_WorkerFilesOrder(t *testing.T) {
	pipes, err := NewPipes()
	require.NoError(t, err)

	writer, reader := pipes.HostQueues(slog.Default())
	defer writer.Close()
	defer reader.Close()

	files := pipes.WorkerFiles()
	require.Len(t, files, 2)

	// Simulate the worker: read the request end, write the response end.
	workerReader := NewReader(slog.Default(), files[0])
	workerWriter := NewWriter(slog.Default(), files[1])

	ctx := context.Background()

	require.NoError(t, writer.Put(ctx, &message.Message{ID: "r1", Kind: message.KindRequest, Method: "ping"}))

	req, err := workerReader.Get(ctx, time.Second)
	require.NoError(t, err)
	require.Equal(t, "ping", req.Method)

	require.NoError(t, workerWriter.Put(ctx, message.NewErrorResponse(req.ID, "nope")))

	resp, err := reader.Get(ctx, time.Second)
	require.NoError(t, err)
	require.Equal(t, "nope", resp.Error)

	require.NoError(t, workerReader.Close())
	require.NoError(t, workerWriter.Close())
}
