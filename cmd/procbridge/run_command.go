package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wagiedev/procbridge-go"
)

type runOptions struct {
	worker   string
	requests int
	stream   int
	crash    bool
	jsonOut  bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a host, exercise the worker and print its health when reporting is enabled",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(cmd.Context(), ctx, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.worker, "worker", "", "Worker command (defaults to this binary's worker subcommand)")
	cmd.Flags().IntVar(&opts.requests, "requests", 5, "Number of echo requests to send")
	cmd.Flags().IntVar(&opts.stream, "stream", 3, "Number of chunks to request from the count stream")
	cmd.Flags().BoolVar(&opts.crash, "crash", false, "Crash the worker once and wait for the supervisor to restart it")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print health as JSON")
	return cmd
}

func runHost(parent context.Context, ctx *commandContext, out io.Writer, opts runOptions) error {
	if parent == nil {
		parent = context.Background()
	}

	log, err := ctx.logger()
	if err != nil {
		return err
	}
	ch, sup, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	hostOpts := []procbridge.Option{
		procbridge.WithConfig(ch, sup),
		procbridge.WithLogger(log),
	}

	switch {
	case strings.TrimSpace(opts.worker) != "":
		fields := strings.Fields(opts.worker)
		hostOpts = append(hostOpts, procbridge.WithWorkerCommand(fields[0], fields[1:]...))
	case sup.Path == "":
		self, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locate own executable: %w", err)
		}
		workerArgs := []string{"worker", "--log-level", *ctx.logLevelFlag}
		if path := ctx.configPath(); path != "" {
			workerArgs = append(workerArgs, "--config", path)
		}
		hostOpts = append(hostOpts, procbridge.WithWorkerCommand(self, workerArgs...))
	}

	return procbridge.WithHost(parent, func(h procbridge.Host) error {
		if err := exerciseWorker(parent, h, out, opts); err != nil {
			return err
		}

		if !h.HealthReporting() {
			return nil
		}

		if opts.jsonOut {
			encoded, err := json.MarshalIndent(h.Health(), "", "  ")
			if err != nil {
				return fmt.Errorf("encode health: %w", err)
			}
			fmt.Fprintln(out, string(encoded))
			return nil
		}

		fmt.Fprintln(out, renderHealth(h.Health()))
		return nil
	}, hostOpts...)
}

func exerciseWorker(ctx context.Context, h procbridge.Host, out io.Writer, opts runOptions) error {
	for i := range opts.requests {
		resp, err := h.Call(ctx, "echo", map[string]int{"seq": i})
		if err != nil {
			return fmt.Errorf("echo %d: %w", i, err)
		}
		fmt.Fprintf(out, "echo %s -> %s\n", resp.ID, string(resp.Payload))
	}

	if opts.stream > 0 {
		req, err := procbridge.NewRequest(procbridge.NewID(), "count", countRequest{N: opts.stream})
		if err != nil {
			return err
		}
		stream, err := h.SubmitStreaming(ctx, req)
		if err != nil {
			return fmt.Errorf("count: %w", err)
		}
		chunks := 0
		for chunk, err := range stream.All(ctx) {
			if err != nil {
				return fmt.Errorf("count stream: %w", err)
			}
			if chunk.Final {
				break
			}
			chunks++
		}
		fmt.Fprintf(out, "count %s -> %d chunks\n", stream.ID(), chunks)
	}

	if opts.crash {
		return crashAndRecover(ctx, h, out)
	}
	return nil
}

// crashAndRecover kills the worker through its crash handler and waits for
// the supervisor to bring up a replacement that answers requests.
func crashAndRecover(ctx context.Context, h procbridge.Host, out io.Writer) error {
	before := h.Health().Worker.Restarts

	req, err := procbridge.NewRequest(procbridge.NewID(), "crash", nil)
	if err != nil {
		return err
	}
	if _, err := h.Submit(ctx, req, 500*time.Millisecond); !errors.Is(err, procbridge.ErrRequestTimeout) {
		return fmt.Errorf("expected crash request to time out, got %v", err)
	}

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		st := h.Health().Worker
		if st.Exhausted {
			return procbridge.ErrRestartsExhausted
		}
		if st.Running && st.Restarts > before {
			resp, err := h.Call(ctx, "echo", "after restart")
			if err != nil {
				return fmt.Errorf("echo after restart: %w", err)
			}
			fmt.Fprintf(out, "worker restarted (run %s) -> %s\n", st.RunID, string(resp.Payload))
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("worker was not restarted within 30s")
}
