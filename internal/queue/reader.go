package queue

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/wagiedev/procbridge-go/internal/errors"
	"github.com/wagiedev/procbridge-go/internal/message"
)

const (
	// maxLineSize is the largest single message line accepted.
	maxLineSize = 1024 * 1024 // 1MB
	// readBufferSize is how many decoded messages may wait for Get.
	readBufferSize = 64
)

// Reader is the consuming end of a pipe queue.
//
// One decoder goroutine performs the blocking reads and hands parsed
// messages to Get over a bounded buffer, so Get never blocks longer than its
// timeout.
type Reader struct {
	log   *slog.Logger
	r     io.ReadCloser
	items chan *message.Message

	closeOnce sync.Once
}

// Compile-time verification that Reader implements Receiver.
var _ Receiver = (*Reader)(nil)

// NewReader wraps r as the consuming end of a queue and starts decoding.
func NewReader(log *slog.Logger, r io.ReadCloser) *Reader {
	q := &Reader{
		log:   log.With("component", "queue_reader"),
		r:     r,
		items: make(chan *message.Message, readBufferSize),
	}

	go q.decodeLoop()

	return q
}

// decodeLoop reads lines until EOF or a read error. Malformed lines are
// logged and skipped; a worker that crashed mid-write leaves at most one.
func (q *Reader) decodeLoop() {
	defer close(q.items)
	defer q.log.Debug("Decode loop stopped")

	scanner := bufio.NewScanner(q.r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	count := 0

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		msg, err := message.Parse(line)
		if err != nil {
			q.log.Warn("Dropping undecodable line", "error", err)

			continue
		}

		count++
		q.log.Debug("Decoded message", "id", msg.ID, "kind", msg.Kind, "message_count", count)

		q.items <- msg
	}

	if err := scanner.Err(); err != nil {
		q.log.Debug("Scanner stopped with error", "error", err)
	}
}

// Get waits at most timeout for the next decoded message.
func (q *Reader) Get(ctx context.Context, timeout time.Duration) (*message.Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg, ok := <-q.items:
		if !ok {
			return nil, errors.ErrQueueClosed
		}

		return msg, nil
	case <-timer.C:
		return nil, errors.ErrQueueEmpty
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes the underlying reader, which ends the decode loop. Messages
// already decoded are discarded. It's safe to call Close multiple times.
func (q *Reader) Close() error {
	var err error

	q.closeOnce.Do(func() {
		err = q.r.Close()

		// Unblock a decode loop stuck handing off to a full buffer.
		go func() {
			for range q.items {
			}
		}()
	})

	return err
}
