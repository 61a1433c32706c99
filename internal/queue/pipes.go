package queue

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

const (
	// RequestFD is the descriptor number on which a worker reads requests.
	RequestFD = 3
	// ResponseFD is the descriptor number on which a worker writes replies.
	ResponseFD = 4
)

// Pipes holds the two OS pipes shared by a host and its worker.
//
// The host owns all four ends for the lifetime of the pairing. Worker ends
// are passed to each spawned worker via exec.Cmd.ExtraFiles in the order
// returned by WorkerFiles, so they appear as RequestFD and ResponseFD.
type Pipes struct {
	requestR  *os.File
	requestW  *os.File
	responseR *os.File
	responseW *os.File
}

// NewPipes creates the request and response pipes.
func NewPipes() (*Pipes, error) {
	requestR, requestW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create request pipe: %w", err)
	}

	responseR, responseW, err := os.Pipe()
	if err != nil {
		_ = requestR.Close()
		_ = requestW.Close()

		return nil, fmt.Errorf("create response pipe: %w", err)
	}

	return &Pipes{
		requestR:  requestR,
		requestW:  requestW,
		responseR: responseR,
		responseW: responseW,
	}, nil
}

// HostQueues returns the host's producing request end and consuming response
// end.
func (p *Pipes) HostQueues(log *slog.Logger) (*Writer, *Reader) {
	return NewWriter(log, p.requestW), NewReader(log, p.responseR)
}

// WorkerFiles returns the worker ends in ExtraFiles order.
func (p *Pipes) WorkerFiles() []*os.File {
	return []*os.File{p.requestR, p.responseW}
}

// CloseWorkerEnds closes the host's copies of the worker ends. After this
// no further worker can be spawned on these pipes, and the host's reader
// sees EOF once the last worker exits.
func (p *Pipes) CloseWorkerEnds() error {
	return stderrors.Join(p.requestR.Close(), p.responseW.Close())
}

// OpenWorkerQueues opens the queues a spawned worker inherited on RequestFD
// and ResponseFD.
//
// Inherited descriptors arrive in blocking mode. They are switched to
// non-blocking before wrapping so the runtime poller owns them and Close
// interrupts a pending read. The response pipe outlives any single worker,
// so the writer is resynced before it is returned.
func OpenWorkerQueues(log *slog.Logger) (*Reader, *Writer, error) {
	for _, fd := range []int{RequestFD, ResponseFD} {
		if err := unix.SetNonblock(fd, true); err != nil {
			return nil, nil, fmt.Errorf("worker queue descriptor %d not inherited: %w", fd, err)
		}
	}

	requests := os.NewFile(RequestFD, "procbridge-requests")
	responses := os.NewFile(ResponseFD, "procbridge-responses")

	writer := NewWriter(log, responses)
	if err := writer.Resync(context.Background()); err != nil {
		_ = requests.Close()
		_ = writer.Close()

		return nil, nil, err
	}

	return NewReader(log, requests), writer, nil
}
