package procbridge

import "log/slog"

// NopLogger returns a logger whose handler is disabled at every level, so
// log calls cost no formatting. Options fall back to it when no logger is
// set.
func NopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
