// Package procbridge runs a worker process next to a host process and lets
// the host call into it with correlated requests.
//
// The host sends requests over an OS pipe and the worker answers each one
// with either a single response or an ordered stream of chunks. A supervisor
// restarts the worker when it crashes and shuts it down with SIGTERM, then
// SIGKILL if it does not exit in time.
//
// # Host
//
// The host side starts the worker and submits requests:
//
//	host, err := procbridge.NewHost(
//	    procbridge.WithLogger(slog.Default()),
//	    procbridge.WithWorkerCommand("/usr/local/bin/my-worker"),
//	    procbridge.WithMaxPending(32),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer host.Close()
//
//	if err := host.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := host.Call(ctx, "echo", map[string]string{"hello": "world"})
//
// Or with automatic lifecycle management:
//
//	err := procbridge.WithHost(ctx, func(h procbridge.Host) error {
//	    resp, err := h.Call(ctx, "echo", "hi")
//	    ...
//	}, procbridge.WithWorkerCommand(path))
//
// # Streaming
//
// SubmitStreaming returns a Stream whose chunks arrive in the order the
// worker produced them:
//
//	req, _ := procbridge.NewRequest(procbridge.NewID(), "count", map[string]int{"n": 3})
//	stream, err := host.SubmitStreaming(ctx, req)
//	if err != nil {
//	    return err
//	}
//	for chunk, err := range stream.All(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    // process chunk...
//	}
//
// # Worker
//
// The worker side registers handlers and serves until the host stops it:
//
//	func main() {
//	    os.Exit(procbridge.WorkerMain(func(s *procbridge.WorkerServer) error {
//	        return s.Handle("echo", func(ctx context.Context, req *procbridge.Message) (any, error) {
//	            return req.Payload, nil
//	        })
//	    }))
//	}
//
// A worker that returns from WorkerMain with status 0 is considered to have
// shut down on purpose and is not restarted. Any other exit is a crash.
//
// # Backpressure and timeouts
//
// At most MaxPending requests may be outstanding at once. Further
// submissions fail immediately with ErrCapacityExceeded without being
// written to the worker. A request with no reply within its timeout fails
// with ErrRequestTimeout and a late reply is discarded.
package procbridge
