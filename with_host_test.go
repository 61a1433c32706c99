package procbridge_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/procbridge-go"
)

func TestWithHost_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := procbridge.WithHost(ctx, func(_ procbridge.Host) error {
		t.Error("callback should not be called with cancelled context")

		return nil
	}, helperOptions()...)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWithHost_CallbackError(t *testing.T) {
	sentinel := errors.New("callback failed")

	err := procbridge.WithHost(context.Background(), func(h procbridge.Host) error {
		_, err := h.Call(context.Background(), "echo", "ping")
		require.NoError(t, err)

		return sentinel
	}, helperOptions()...)
	require.ErrorIs(t, err, sentinel)
}

func TestWithHost_InvalidOptions(t *testing.T) {
	called := false

	err := procbridge.WithHost(context.Background(), func(_ procbridge.Host) error {
		called = true

		return nil
	})
	require.Error(t, err)
	assert.False(t, called)

	var cfgErr *procbridge.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestWithHost_ClosesHostAfterCallback(t *testing.T) {
	var captured procbridge.Host

	err := procbridge.WithHost(context.Background(), func(h procbridge.Host) error {
		captured = h

		return nil
	}, helperOptions()...)
	require.NoError(t, err)

	_, err = captured.Call(context.Background(), "echo", nil)
	require.ErrorIs(t, err, procbridge.ErrHostClosed)
	assert.False(t, captured.Health().Worker.Running)
}
