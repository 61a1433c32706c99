package channel

import (
	"context"
	"fmt"
	"io"
	"iter"
	"sync"
	"time"

	"github.com/wagiedev/procbridge-go/internal/errors"
	"github.com/wagiedev/procbridge-go/internal/message"
)

// chunkBuffer is the unbounded, ordered buffer behind one stream. It has a
// single producer (the poll loop) and a single consumer (the Stream).
type chunkBuffer struct {
	mu     sync.Mutex
	items  []*message.Message
	closed bool

	// notify holds at most one wake-up for the consumer.
	notify chan struct{}
}

func newChunkBuffer() *chunkBuffer {
	return &chunkBuffer{notify: make(chan struct{}, 1)}
}

func (b *chunkBuffer) push(msg *message.Message) {
	b.mu.Lock()

	if b.closed {
		b.mu.Unlock()

		return
	}

	b.items = append(b.items, msg)
	b.mu.Unlock()

	b.wake()
}

// closeWithSentinel marks the end of input. Chunks already buffered are
// still delivered before the consumer sees errors.ErrCancelled.
func (b *chunkBuffer) closeWithSentinel() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.wake()
}

func (b *chunkBuffer) wake() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// next waits at most timeout for the next chunk.
func (b *chunkBuffer) next(ctx context.Context, timeout time.Duration) (*message.Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		b.mu.Lock()

		if len(b.items) > 0 {
			msg := b.items[0]
			b.items[0] = nil
			b.items = b.items[1:]
			b.mu.Unlock()

			return msg, nil
		}

		if b.closed {
			b.mu.Unlock()

			return nil, errors.ErrCancelled
		}

		b.mu.Unlock()

		select {
		case <-b.notify:
		case <-timer.C:
			return nil, errors.ErrRequestTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Stream is the consumer side of a streaming request. It yields chunks in
// arrival order and ends after the chunk with the final flag set.
//
// A Stream is not safe for concurrent use by multiple goroutines and cannot
// be restarted once finished.
type Stream struct {
	ch      *Channel
	id      string
	buf     *chunkBuffer
	timeout time.Duration

	finished bool
	err      error
}

// ID returns the correlation id of the stream.
func (s *Stream) ID() string {
	return s.id
}

// Recv returns the next chunk. It returns io.EOF after the final chunk has
// been returned. Each call waits at most the channel's ResponseTimeout; a
// timeout ends the stream with an error wrapping errors.ErrRequestTimeout.
// A chunk carrying an error ends the stream with *errors.ResponseError.
func (s *Stream) Recv(ctx context.Context) (*message.Message, error) {
	if s.finished {
		return nil, s.err
	}

	msg, err := s.buf.next(ctx, s.timeout)
	if err != nil {
		if err == errors.ErrRequestTimeout {
			s.ch.log.Warn("Stream chunk timed out", "id", s.id, "timeout", s.timeout)
			err = fmt.Errorf("%w: stream %s after %s", errors.ErrRequestTimeout, s.id, s.timeout)
		}

		s.finish(err)

		return nil, err
	}

	if msg.IsError() {
		err := &errors.ResponseError{ID: s.id, Message: msg.Error}
		s.finish(err)

		return nil, err
	}

	if msg.IsFinal() {
		s.finish(io.EOF)
	}

	return msg, nil
}

// All returns an iterator over the remaining chunks. Breaking out of the loop
// closes the stream. The iterator yields a non-nil error at most once, as its
// last element, and never yields io.EOF.
func (s *Stream) All(ctx context.Context) iter.Seq2[*message.Message, error] {
	return func(yield func(*message.Message, error) bool) {
		defer s.Close()

		for {
			msg, err := s.Recv(ctx)
			if err == io.EOF {
				return
			}

			if err != nil {
				yield(nil, err)

				return
			}

			if !yield(msg, nil) {
				return
			}
		}
	}
}

// Close abandons the stream and releases its pending slot. Chunks that
// arrive afterwards are dropped. It's safe to call Close multiple times.
func (s *Stream) Close() {
	s.finish(io.EOF)
}

func (s *Stream) finish(err error) {
	if s.finished {
		return
	}

	s.finished = true
	s.err = err
	s.ch.removeStream(s.id, s.buf)
}
