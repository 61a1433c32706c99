package config

import (
	"time"

	"github.com/wagiedev/procbridge-go/internal/errors"
)

const (
	// DefaultPollInterval is how long one inbound fetch waits before the poll
	// loop yields and retries.
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultResponseTimeout bounds each unary wait and each stream chunk wait.
	DefaultResponseTimeout = 30 * time.Second
	// DefaultMaxPending is the backpressure ceiling on in-flight requests.
	DefaultMaxPending = 100
)

// ChannelConfig configures a channel.Channel.
type ChannelConfig struct {
	// PollInterval is the inbound queue fetch cadence.
	PollInterval time.Duration

	// ResponseTimeout is the default wait bound for unary responses and for
	// each stream chunk.
	ResponseTimeout time.Duration

	// MaxPending is the maximum number of unary plus streaming requests in
	// flight. Submissions past the bound fail immediately.
	MaxPending int

	// EnableHealthReporting exposes health status to external probes.
	EnableHealthReporting bool
}

// DefaultChannelConfig returns a ChannelConfig populated with defaults.
func DefaultChannelConfig() *ChannelConfig {
	return &ChannelConfig{
		PollInterval:          DefaultPollInterval,
		ResponseTimeout:       DefaultResponseTimeout,
		MaxPending:            DefaultMaxPending,
		EnableHealthReporting: true,
	}
}

// Validate checks that every field is usable.
func (c *ChannelConfig) Validate() error {
	if c.PollInterval <= 0 {
		return &errors.ConfigError{Field: "poll_interval", Reason: "must be positive"}
	}

	if c.ResponseTimeout <= 0 {
		return &errors.ConfigError{Field: "response_timeout", Reason: "must be positive"}
	}

	if c.MaxPending <= 0 {
		return &errors.ConfigError{Field: "max_pending", Reason: "must be positive"}
	}

	return nil
}
