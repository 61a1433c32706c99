package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/wagiedev/procbridge-go"
)

// crashExitCode is the status the demo worker exits with on "crash".
const crashExitCode = 2

type countRequest struct {
	N int `json:"n"`
}

type countChunk struct {
	Index int `json:"index"`
}

type sleepRequest struct {
	Millis int `json:"millis"`
}

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Serve demo handlers on the pipes inherited from a host",
		Long: "Serve demo handlers (echo, count, sleep, crash) on descriptors 3 and 4.\n" +
			"This command is started by 'procbridge run' and is not meant to be run by hand.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := ctx.logger()
			if err != nil {
				return err
			}
			ch, _, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			sigCtx, stop := signal.NotifyContext(context.Background(), unix.SIGTERM, os.Interrupt)
			defer stop()

			return procbridge.ServeWorker(sigCtx, registerDemoHandlers,
				procbridge.WithLogger(log),
				procbridge.WithConfig(ch, nil),
			)
		},
	}
}

func registerDemoHandlers(s *procbridge.WorkerServer) error {
	if err := s.Handle("echo", echoHandler); err != nil {
		return err
	}

	countSchema := &jsonschema.Schema{
		Type:     "object",
		Required: []string{"n"},
		Properties: map[string]*jsonschema.Schema{
			"n": {Type: "integer", Minimum: jsonschema.Ptr(0.0)},
		},
	}
	if err := s.HandleStream("count", countHandler, procbridge.WithSchema(countSchema)); err != nil {
		return err
	}

	if err := s.Handle("sleep", sleepHandler); err != nil {
		return err
	}

	return s.Handle("crash", func(_ context.Context, _ *procbridge.Message) (any, error) {
		defer os.Exit(crashExitCode)
		return nil, nil
	})
}

func echoHandler(_ context.Context, req *procbridge.Message) (any, error) {
	return req.Payload, nil
}

func countHandler(ctx context.Context, req *procbridge.Message, emit procbridge.Emit) error {
	var in countRequest
	if err := req.Decode(&in); err != nil {
		return err
	}
	for i := range in.N {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(countChunk{Index: i}); err != nil {
			return err
		}
	}
	return nil
}

func sleepHandler(ctx context.Context, req *procbridge.Message) (any, error) {
	var in sleepRequest
	if err := req.Decode(&in); err != nil {
		return nil, err
	}
	d := time.Duration(in.Millis) * time.Millisecond
	select {
	case <-time.After(d):
		return fmt.Sprintf("slept %s", d), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
