package procbridge

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrors_ReExportedTypesAreBridgeErrors(t *testing.T) {
	errs := []error{
		&ResponseError{ID: "1", Message: "boom"},
		&ProcessError{PID: 42, ExitCode: 1},
		&MessageParseError{RawData: "{", Err: errors.New("unexpected EOF")},
		&ConfigError{Field: "max_pending", Reason: "must be positive"},
	}

	for _, err := range errs {
		var bridgeErr BridgeError
		require.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &bridgeErr, "%T", err)
		require.True(t, bridgeErr.IsBridgeError())
	}
}

func TestErrors_SentinelsSurviveWrapping(t *testing.T) {
	sentinels := []error{
		ErrCapacityExceeded,
		ErrRequestTimeout,
		ErrCancelled,
		ErrDuplicateID,
		ErrHostClosed,
		ErrRestartsExhausted,
	}

	for _, sentinel := range sentinels {
		require.ErrorIs(t, fmt.Errorf("submit: %w", sentinel), sentinel)
	}
}
