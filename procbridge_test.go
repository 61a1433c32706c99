package procbridge_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/wagiedev/procbridge-go"
)

// helperWorkerEnv makes the test binary act as a worker when re-executed.
const helperWorkerEnv = "PROCBRIDGE_TEST_WORKER"

func TestMain(m *testing.M) {
	if os.Getenv(helperWorkerEnv) == "1" {
		os.Exit(procbridge.WorkerMain(registerHelpers))
	}

	os.Exit(m.Run())
}

type greetRequest struct {
	Name string `json:"name"`
}

func registerHelpers(s *procbridge.WorkerServer) error {
	if err := s.Handle("echo", func(_ context.Context, req *procbridge.Message) (any, error) {
		return req.Payload, nil
	}); err != nil {
		return err
	}

	if err := s.Handle("run_id", func(_ context.Context, _ *procbridge.Message) (any, error) {
		return procbridge.RunID(), nil
	}); err != nil {
		return err
	}

	if err := s.Handle("fail", func(_ context.Context, _ *procbridge.Message) (any, error) {
		return nil, errors.New("boom")
	}); err != nil {
		return err
	}

	// slow never answers in time and ignores cancellation, so nothing is
	// written back while the host shuts down.
	if err := s.Handle("slow", func(_ context.Context, _ *procbridge.Message) (any, error) {
		time.Sleep(time.Minute)

		return nil, nil
	}); err != nil {
		return err
	}

	greetSchema := &jsonschema.Schema{
		Type:     "object",
		Required: []string{"name"},
		Properties: map[string]*jsonschema.Schema{
			"name": {Type: "string"},
		},
	}

	if err := s.Handle("greet", func(_ context.Context, req *procbridge.Message) (any, error) {
		var in greetRequest
		if err := req.Decode(&in); err != nil {
			return nil, err
		}

		return "hello " + in.Name, nil
	}, procbridge.WithSchema(greetSchema)); err != nil {
		return err
	}

	return s.HandleStream("letters", func(_ context.Context, req *procbridge.Message, emit procbridge.Emit) error {
		var word string
		if err := req.Decode(&word); err != nil {
			return err
		}

		for _, r := range word {
			if err := emit(string(r)); err != nil {
				return err
			}
		}

		return nil
	})
}

func helperOptions(extra ...procbridge.Option) []procbridge.Option {
	opts := []procbridge.Option{
		procbridge.WithWorkerCommand(os.Args[0]),
		procbridge.WithWorkerEnv(helperWorkerEnv + "=1"),
		procbridge.WithPollInterval(10 * time.Millisecond),
		procbridge.WithRestartDelay(20 * time.Millisecond),
		procbridge.WithShutdownTimeout(2 * time.Second),
	}

	return append(opts, extra...)
}

func startHost(t *testing.T, extra ...procbridge.Option) procbridge.Host {
	t.Helper()

	h, err := procbridge.NewHost(helperOptions(extra...)...)
	require.NoError(t, err)

	t.Cleanup(func() { _ = h.Close() })

	require.NoError(t, h.Start(context.Background()))

	return h
}

func TestHost_Call(t *testing.T) {
	h := startHost(t)

	resp, err := h.Call(context.Background(), "echo", []int{1, 2, 3})
	require.NoError(t, err)

	var out []int
	require.NoError(t, resp.Decode(&out))
	assert.Equal(t, []int{1, 2, 3}, out)
}

func TestHost_HealthReporting(t *testing.T) {
	enabled := startHost(t)
	assert.True(t, enabled.HealthReporting())

	disabled := startHost(t, procbridge.WithHealthReporting(false))
	assert.False(t, disabled.HealthReporting())
}

func TestHost_WorkerSeesRunID(t *testing.T) {
	h := startHost(t)

	resp, err := h.Call(context.Background(), "run_id", nil)
	require.NoError(t, err)

	var runID string
	require.NoError(t, resp.Decode(&runID))
	assert.NotEmpty(t, runID)
	assert.Equal(t, h.Health().Worker.RunID, runID)
}

func TestHost_HandlerErrorIsResponseError(t *testing.T) {
	h := startHost(t)

	_, err := h.Call(context.Background(), "fail", nil)

	var respErr *procbridge.ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, "boom", respErr.Message)
}

func TestHost_SchemaRejectsBadPayload(t *testing.T) {
	h := startHost(t)

	resp, err := h.Call(context.Background(), "greet", greetRequest{Name: "ada"})
	require.NoError(t, err)

	var out string
	require.NoError(t, resp.Decode(&out))
	assert.Equal(t, "hello ada", out)

	_, err = h.Call(context.Background(), "greet", map[string]int{"age": 3})

	var respErr *procbridge.ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Contains(t, respErr.Message, procbridge.ErrInvalidMessage.Error())
}

func TestHost_Streaming(t *testing.T) {
	h := startHost(t)

	req, err := procbridge.NewRequest(procbridge.NewID(), "letters", "abc")
	require.NoError(t, err)

	stream, err := h.SubmitStreaming(context.Background(), req)
	require.NoError(t, err)

	var letters []string

	for chunk, err := range stream.All(context.Background()) {
		require.NoError(t, err)

		if chunk.Final {
			continue
		}

		var s string
		require.NoError(t, chunk.Decode(&s))
		letters = append(letters, s)
	}

	assert.Equal(t, []string{"a", "b", "c"}, letters)
}

func TestHost_CapacityExceeded(t *testing.T) {
	h := startHost(t, procbridge.WithMaxPending(1))

	slow, err := procbridge.NewRequest(procbridge.NewID(), "slow", nil)
	require.NoError(t, err)

	go func() {
		_, _ = h.Submit(context.Background(), slow, 5*time.Second)
	}()

	require.Eventually(t, func() bool {
		return h.Health().Channel.PendingRequests == 1
	}, time.Second, 5*time.Millisecond)

	_, err = h.Call(context.Background(), "echo", nil)
	require.ErrorIs(t, err, procbridge.ErrCapacityExceeded)

	health := h.Health().Channel
	assert.Equal(t, 1, health.MaxPending)
	assert.False(t, health.IsHealthy)
}

func TestHost_CloseCancelsOutstandingRequests(t *testing.T) {
	h, err := procbridge.NewHost(helperOptions()...)
	require.NoError(t, err)
	require.NoError(t, h.Start(context.Background()))

	slow, err := procbridge.NewRequest(procbridge.NewID(), "slow", nil)
	require.NoError(t, err)

	errCh := make(chan error, 1)

	go func() {
		_, err := h.Submit(context.Background(), slow, 10*time.Second)
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		return h.Health().Channel.PendingRequests == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, h.Close())

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, procbridge.ErrCancelled)
	case <-time.After(5 * time.Second):
		t.Fatal("outstanding request was not cancelled")
	}
}

func TestNewHost_RequiresWorkerCommand(t *testing.T) {
	_, err := procbridge.NewHost()

	var cfgErr *procbridge.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestNewHost_RejectsInvalidChannelConfig(t *testing.T) {
	_, err := procbridge.NewHost(helperOptions(procbridge.WithMaxPending(0))...)

	var cfgErr *procbridge.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "max_pending", cfgErr.Field)
}

func TestServeWorker_WithoutInheritedPipes(t *testing.T) {
	if _, err := unix.FcntlInt(3, unix.F_GETFD, 0); err == nil {
		t.Skip("descriptor 3 is open in the test process")
	}

	err := procbridge.ServeWorker(context.Background(), registerHelpers)
	require.Error(t, err)
}
