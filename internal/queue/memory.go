package queue

import (
	"context"
	"sync"
	"time"

	"github.com/wagiedev/procbridge-go/internal/errors"
	"github.com/wagiedev/procbridge-go/internal/message"
)

// defaultMemoryCapacity is the buffer size used when NewMemory gets a
// non-positive capacity.
const defaultMemoryCapacity = 256

// Memory is an in-process Queue backed by a buffered channel.
type Memory struct {
	items     chan *message.Message
	done      chan struct{}
	closeOnce sync.Once
}

// Compile-time verification that Memory implements Queue.
var _ Queue = (*Memory)(nil)

// NewMemory creates an in-process queue holding up to capacity messages.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}

	return &Memory{
		items: make(chan *message.Message, capacity),
		done:  make(chan struct{}),
	}
}

// Put enqueues msg, blocking while the buffer is full.
func (q *Memory) Put(ctx context.Context, msg *message.Message) error {
	select {
	case <-q.done:
		return errors.ErrQueueClosed
	default:
	}

	select {
	case q.items <- msg:
		return nil
	case <-q.done:
		return errors.ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get waits at most timeout for the next message. Messages buffered before
// Close are still delivered.
func (q *Memory) Get(ctx context.Context, timeout time.Duration) (*message.Message, error) {
	select {
	case msg := <-q.items:
		return msg, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-q.items:
		return msg, nil
	case <-q.done:
		select {
		case msg := <-q.items:
			return msg, nil
		default:
			return nil, errors.ErrQueueClosed
		}
	case <-timer.C:
		return nil, errors.ErrQueueEmpty
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of buffered messages.
func (q *Memory) Len() int {
	return len(q.items)
}

// Close stops the queue. It's safe to call Close multiple times.
func (q *Memory) Close() error {
	q.closeOnce.Do(func() {
		close(q.done)
	})

	return nil
}
