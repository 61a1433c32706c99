package procbridge

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestApplyOptions_Defaults(t *testing.T) {
	o := applyOptions(nil)

	require.NotNil(t, o.Logger)
	require.False(t, o.Logger.Enabled(context.Background(), slog.LevelError))
	require.Equal(t, 100*time.Millisecond, o.Channel.PollInterval)
	require.Equal(t, 30*time.Second, o.Channel.ResponseTimeout)
	require.Equal(t, 100, o.Channel.MaxPending)
	require.True(t, o.Channel.EnableHealthReporting)
	require.Equal(t, 5*time.Second, o.Supervisor.ShutdownTimeout)
	require.True(t, o.Supervisor.AutoRestart)
	require.Equal(t, time.Second, o.Supervisor.RestartDelay)
	require.Equal(t, 3, o.Supervisor.MaxRestarts)
}

func TestApplyOptions_NilLoggerFallsBackToNop(t *testing.T) {
	o := applyOptions([]Option{WithLogger(nil)})

	require.NotNil(t, o.Logger)
	require.False(t, o.Logger.Enabled(context.Background(), slog.LevelError))
}

func TestApplyOptions_Overrides(t *testing.T) {
	o := applyOptions([]Option{
		WithLogger(NopLogger()),
		WithWorkerCommand("/bin/worker", "--serve"),
		WithWorkerEnv("A=1"),
		WithWorkerEnv("B=2"),
		WithWorkerDir("/tmp"),
		WithPollInterval(5 * time.Millisecond),
		WithResponseTimeout(time.Second),
		WithMaxPending(7),
		WithHealthReporting(false),
		WithShutdownTimeout(time.Second),
		WithAutoRestart(false),
		WithRestartDelay(0),
		WithMaxRestarts(0),
		WithLockPath("/tmp/worker.lock"),
	})

	require.NotNil(t, o.Logger)
	require.Equal(t, "/bin/worker", o.Supervisor.Path)
	require.Equal(t, []string{"--serve"}, o.Supervisor.Args)
	require.Equal(t, []string{"A=1", "B=2"}, o.Supervisor.Env)
	require.Equal(t, "/tmp", o.Supervisor.Dir)
	require.Equal(t, 5*time.Millisecond, o.Channel.PollInterval)
	require.Equal(t, time.Second, o.Channel.ResponseTimeout)
	require.Equal(t, 7, o.Channel.MaxPending)
	require.False(t, o.Channel.EnableHealthReporting)
	require.Equal(t, time.Second, o.Supervisor.ShutdownTimeout)
	require.False(t, o.Supervisor.AutoRestart)
	require.Zero(t, o.Supervisor.RestartDelay)
	require.Zero(t, o.Supervisor.MaxRestarts)
	require.Equal(t, "/tmp/worker.lock", o.Supervisor.LockPath)

	require.NoError(t, o.Channel.Validate())
	require.NoError(t, o.Supervisor.Validate())
}

func TestWithConfig_CopiesAndAllowsOverrides(t *testing.T) {
	base := applyOptions(nil)
	base.Channel.MaxPending = 9
	base.Supervisor.Path = "/bin/from-file"

	o := applyOptions([]Option{
		WithConfig(base.Channel, base.Supervisor),
		WithMaxPending(11),
	})

	require.Equal(t, 11, o.Channel.MaxPending)
	require.Equal(t, 9, base.Channel.MaxPending, "WithConfig must not alias the caller's config")
	require.Equal(t, "/bin/from-file", o.Supervisor.Path)
}

func TestWithConfig_NilLeavesDefaults(t *testing.T) {
	o := applyOptions([]Option{WithConfig(nil, nil)})

	require.Equal(t, 100, o.Channel.MaxPending)
	require.NotNil(t, o.Supervisor)
}
