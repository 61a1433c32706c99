package queue

import (
	"context"
	"time"

	"github.com/wagiedev/procbridge-go/internal/message"
)

// Sender is the producing end of a queue.
type Sender interface {
	// Put enqueues msg. It is safe for concurrent use.
	Put(ctx context.Context, msg *message.Message) error
}

// Receiver is the consuming end of a queue.
type Receiver interface {
	// Get waits at most timeout for the next message. It returns
	// errors.ErrQueueEmpty when nothing arrived in time and
	// errors.ErrQueueClosed once the queue is closed and drained.
	Get(ctx context.Context, timeout time.Duration) (*message.Message, error)
}

// Queue is a queue usable from both ends.
type Queue interface {
	Sender
	Receiver
	Close() error
}
