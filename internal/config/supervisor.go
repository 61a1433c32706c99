package config

import (
	"time"

	"github.com/wagiedev/procbridge-go/internal/errors"
)

const (
	// DefaultShutdownTimeout is the grace period between SIGTERM and SIGKILL.
	DefaultShutdownTimeout = 5 * time.Second
	// DefaultRestartDelay is the fixed wait before respawning a crashed worker.
	DefaultRestartDelay = 1 * time.Second
	// DefaultMaxRestarts bounds automatic restarts. Zero means unlimited.
	DefaultMaxRestarts = 3
	// DefaultMonitorInterval is how often the monitor checks the worker.
	DefaultMonitorInterval = 100 * time.Millisecond
)

// SupervisorConfig configures a supervisor.Supervisor.
type SupervisorConfig struct {
	// Path is the worker executable.
	Path string

	// Args are passed to the worker after Path.
	Args []string

	// Env is appended to the host environment for the worker.
	Env []string

	// Dir is the worker working directory. Empty inherits the host's.
	Dir string

	// ShutdownTimeout is how long Stop waits after SIGTERM before SIGKILL.
	ShutdownTimeout time.Duration

	// AutoRestart enables the monitor and crash recovery.
	AutoRestart bool

	// RestartDelay is the fixed wait before each respawn.
	RestartDelay time.Duration

	// MaxRestarts bounds respawns after crashes. Zero means unlimited.
	MaxRestarts int

	// MonitorInterval is the liveness poll interval of the monitor.
	MonitorInterval time.Duration

	// LockPath, when set, is held with an exclusive file lock while the
	// supervisor runs so two hosts cannot supervise the same worker.
	LockPath string
}

// DefaultSupervisorConfig returns a SupervisorConfig populated with defaults.
func DefaultSupervisorConfig() *SupervisorConfig {
	return &SupervisorConfig{
		ShutdownTimeout: DefaultShutdownTimeout,
		AutoRestart:     true,
		RestartDelay:    DefaultRestartDelay,
		MaxRestarts:     DefaultMaxRestarts,
		MonitorInterval: DefaultMonitorInterval,
	}
}

// Validate checks that every field is usable.
func (c *SupervisorConfig) Validate() error {
	if c.Path == "" {
		return &errors.ConfigError{Field: "path", Reason: "worker executable is required"}
	}

	if c.ShutdownTimeout <= 0 {
		return &errors.ConfigError{Field: "shutdown_timeout", Reason: "must be positive"}
	}

	if c.RestartDelay < 0 {
		return &errors.ConfigError{Field: "restart_delay", Reason: "must not be negative"}
	}

	if c.MaxRestarts < 0 {
		return &errors.ConfigError{Field: "max_restarts", Reason: "must not be negative (0 = unlimited)"}
	}

	if c.MonitorInterval <= 0 {
		return &errors.ConfigError{Field: "monitor_interval", Reason: "must be positive"}
	}

	return nil
}

// RestartBudgetLeft reports whether another restart is allowed after count
// restarts have already happened.
func (c *SupervisorConfig) RestartBudgetLeft(count int) bool {
	return c.MaxRestarts == 0 || count < c.MaxRestarts
}
