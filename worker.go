package procbridge

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"github.com/wagiedev/procbridge-go/internal/queue"
	"github.com/wagiedev/procbridge-go/internal/supervisor"
	"github.com/wagiedev/procbridge-go/internal/worker"
)

// RunID returns the id the supervisor assigned to this worker run, or ""
// when the process was not started by a host.
func RunID() string {
	return os.Getenv(supervisor.RunIDEnv)
}

// ServeWorker serves requests from the host that spawned this process.
//
// register installs the handlers. ServeWorker returns nil once ctx is
// cancelled or the host closes the request pipe, and an error if the pipes
// were not inherited or registration failed.
//
// Only the channel options (WithLogger, WithPollInterval, WithMaxPending)
// apply on the worker side.
func ServeWorker(ctx context.Context, register func(*WorkerServer) error, opts ...Option) error {
	options := applyOptions(opts)

	if err := options.Channel.Validate(); err != nil {
		return err
	}

	log := options.Logger.With("run_id", RunID())

	requests, replies, err := queue.OpenWorkerQueues(log)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := stderrors.Join(requests.Close(), replies.Close()); closeErr != nil {
			log.Debug("Closing worker queues", "error", closeErr)
		}
	}()

	srv := worker.NewServer(log, options.Channel, requests, replies)

	if err := register(srv); err != nil {
		return fmt.Errorf("register handlers: %w", err)
	}

	return srv.Serve(ctx)
}

// WorkerMain runs ServeWorker until SIGTERM or SIGINT and returns the process
// exit status: 0 for an intentional shutdown, 1 otherwise. Use it as
//
//	func main() {
//	    os.Exit(procbridge.WorkerMain(register))
//	}
func WorkerMain(register func(*WorkerServer) error, opts ...Option) int {
	ctx, stop := signal.NotifyContext(context.Background(), unix.SIGTERM, os.Interrupt)
	defer stop()

	if err := ServeWorker(ctx, register, opts...); err != nil {
		fmt.Fprintf(os.Stderr, "procbridge worker: %v\n", err)

		return 1
	}

	return 0
}
