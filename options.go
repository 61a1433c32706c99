package procbridge

import (
	"log/slog"
	"time"

	"github.com/wagiedev/procbridge-go/internal/config"
)

// Options holds the configuration assembled from Option values.
type Options struct {
	// Logger receives debug output. Nil disables logging.
	Logger *slog.Logger

	// Channel configures correlation, timeouts and backpressure.
	Channel *ChannelConfig

	// Supervisor configures the worker process.
	Supervisor *SupervisorConfig
}

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options over the defaults.
func applyOptions(opts []Option) *Options {
	options := &Options{
		Channel:    config.DefaultChannelConfig(),
		Supervisor: config.DefaultSupervisorConfig(),
	}

	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = NopLogger()
	}

	return options
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithConfig replaces both configs, typically with the result of LoadConfig.
// Nil arguments leave the corresponding config untouched. Options applied
// afterwards still override individual fields.
func WithConfig(ch *ChannelConfig, sup *SupervisorConfig) Option {
	return func(o *Options) {
		if ch != nil {
			c := *ch
			o.Channel = &c
		}

		if sup != nil {
			s := *sup
			o.Supervisor = &s
		}
	}
}

// ===== Channel =====

// WithPollInterval sets how long the poll loop waits on an empty reply queue
// before checking again.
func WithPollInterval(d time.Duration) Option {
	return func(o *Options) {
		o.Channel.PollInterval = d
	}
}

// WithResponseTimeout sets the default wait for a response or stream chunk.
func WithResponseTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Channel.ResponseTimeout = d
	}
}

// WithMaxPending bounds the number of outstanding requests.
func WithMaxPending(n int) Option {
	return func(o *Options) {
		o.Channel.MaxPending = n
	}
}

// WithHealthReporting toggles health reporting.
func WithHealthReporting(enabled bool) Option {
	return func(o *Options) {
		o.Channel.EnableHealthReporting = enabled
	}
}

// ===== Worker Process =====

// WithWorkerCommand sets the worker executable and its arguments.
func WithWorkerCommand(path string, args ...string) Option {
	return func(o *Options) {
		o.Supervisor.Path = path
		o.Supervisor.Args = args
	}
}

// WithWorkerEnv appends KEY=VALUE entries to the worker environment.
func WithWorkerEnv(env ...string) Option {
	return func(o *Options) {
		o.Supervisor.Env = append(o.Supervisor.Env, env...)
	}
}

// WithWorkerDir sets the worker working directory.
func WithWorkerDir(dir string) Option {
	return func(o *Options) {
		o.Supervisor.Dir = dir
	}
}

// WithShutdownTimeout sets the grace period between SIGTERM and SIGKILL.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Supervisor.ShutdownTimeout = d
	}
}

// WithAutoRestart toggles crash recovery.
func WithAutoRestart(enabled bool) Option {
	return func(o *Options) {
		o.Supervisor.AutoRestart = enabled
	}
}

// WithRestartDelay sets the fixed wait before a crashed worker is respawned.
func WithRestartDelay(d time.Duration) Option {
	return func(o *Options) {
		o.Supervisor.RestartDelay = d
	}
}

// WithMaxRestarts bounds automatic restarts. Zero means unlimited.
func WithMaxRestarts(n int) Option {
	return func(o *Options) {
		o.Supervisor.MaxRestarts = n
	}
}

// WithLockPath holds an exclusive lock on path while the worker is
// supervised, so two hosts cannot run the same worker.
func WithLockPath(path string) Option {
	return func(o *Options) {
		o.Supervisor.LockPath = path
	}
}
