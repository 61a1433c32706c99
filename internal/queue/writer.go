package queue

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/wagiedev/procbridge-go/internal/errors"
	"github.com/wagiedev/procbridge-go/internal/message"
)

// Writer is the producing end of a pipe queue. Each message is written as
// one JSON line.
type Writer struct {
	log *slog.Logger
	w   io.WriteCloser

	// slot serializes writes. It is released by the write goroutine, not by
	// Put, so a write abandoned by a cancelled caller still finishes before
	// the next one starts and lines never interleave.
	slot chan struct{}

	mu     sync.Mutex
	closed bool
}

// Compile-time verification that Writer implements Sender.
var _ Sender = (*Writer)(nil)

// NewWriter wraps w as the producing end of a queue.
func NewWriter(log *slog.Logger, w io.WriteCloser) *Writer {
	return &Writer{
		log:  log.With("component", "queue_writer"),
		w:    w,
		slot: make(chan struct{}, 1),
	}
}

// Put writes msg as a single line. This method is safe for concurrent use and
// respects context cancellation even while the pipe is full. A write that
// was already handed to the pipe when ctx was cancelled still completes in
// the background.
func (q *Writer) Put(ctx context.Context, msg *message.Message) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()

	if closed {
		return errors.ErrQueueClosed
	}

	data, err := message.Encode(msg)
	if err != nil {
		return err
	}

	data = append(data, '\n')

	select {
	case q.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	done := make(chan error, 1)

	go func() {
		_, err := q.w.Write(data)
		<-q.slot
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			q.log.Error("Failed to write message", "id", msg.ID, "error", err)

			return fmt.Errorf("write message %s: %w", msg.ID, err)
		}

		q.log.Debug("Message written", "id", msg.ID, "kind", msg.Kind, "data_len", len(data))

		return nil

	case <-ctx.Done():
		q.log.Debug("Context cancelled during write, finishing in background", "id", msg.ID)

		return ctx.Err()
	}
}

// Resync writes a lone newline. A previous writer that died partway through
// a line leaves it unterminated; the newline seals that fragment as its own
// malformed line so the next message is decoded cleanly.
func (q *Writer) Resync(ctx context.Context) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()

	if closed {
		return errors.ErrQueueClosed
	}

	select {
	case q.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-q.slot }()

	if _, err := q.w.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("resync queue: %w", err)
	}

	return nil
}

// Close closes the underlying writer. It's safe to call Close multiple times.
func (q *Writer) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true

	return q.w.Close()
}
