package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that reads from TOML strings like "250ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}

	*d = Duration(parsed)

	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ChannelSection is the [channel] table of a config file.
type ChannelSection struct {
	PollInterval          *Duration `toml:"poll_interval"`
	ResponseTimeout       *Duration `toml:"response_timeout"`
	MaxPending            *int      `toml:"max_pending"`
	EnableHealthReporting *bool     `toml:"enable_health_reporting"`
}

// SupervisorSection is the [supervisor] table of a config file.
type SupervisorSection struct {
	Path            string    `toml:"path"`
	Args            []string  `toml:"args"`
	Env             []string  `toml:"env"`
	Dir             string    `toml:"dir"`
	ShutdownTimeout *Duration `toml:"shutdown_timeout"`
	AutoRestart     *bool     `toml:"auto_restart"`
	RestartDelay    *Duration `toml:"restart_delay"`
	MaxRestarts     *int      `toml:"max_restarts"`
	MonitorInterval *Duration `toml:"monitor_interval"`
	LockPath        string    `toml:"lock_path"`
}

// File mirrors the on-disk TOML layout. Unset keys keep their defaults.
//
//	[channel]
//	poll_interval = "100ms"
//	response_timeout = "30s"
//	max_pending = 100
//
//	[supervisor]
//	path = "/usr/local/bin/worker"
//	restart_delay = "1s"
//	max_restarts = 3
type File struct {
	Channel    ChannelSection    `toml:"channel"`
	Supervisor SupervisorSection `toml:"supervisor"`
}

// Load reads path and returns the merged, validated channel config and the
// merged supervisor config. A missing file yields defaults and exists=false.
//
// The supervisor config is not validated here because the worker path is
// often supplied later (for example the CLI defaults it to its own binary).
func Load(path string) (*ChannelConfig, *SupervisorConfig, bool, error) {
	chCfg := DefaultChannelConfig()
	supCfg := DefaultSupervisorConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return chCfg, supCfg, false, nil
		}

		return nil, nil, false, fmt.Errorf("read config: %w", err)
	}

	var file File
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, nil, true, fmt.Errorf("parse config: %w", err)
	}

	file.Channel.apply(chCfg)
	file.Supervisor.apply(supCfg)

	if err := chCfg.Validate(); err != nil {
		return nil, nil, true, err
	}

	return chCfg, supCfg, true, nil
}

// Encode renders the given configs as a TOML document.
func Encode(ch *ChannelConfig, sup *SupervisorConfig) ([]byte, error) {
	pollInterval := Duration(ch.PollInterval)
	responseTimeout := Duration(ch.ResponseTimeout)
	shutdownTimeout := Duration(sup.ShutdownTimeout)
	restartDelay := Duration(sup.RestartDelay)
	monitorInterval := Duration(sup.MonitorInterval)

	file := File{
		Channel: ChannelSection{
			PollInterval:          &pollInterval,
			ResponseTimeout:       &responseTimeout,
			MaxPending:            &ch.MaxPending,
			EnableHealthReporting: &ch.EnableHealthReporting,
		},
		Supervisor: SupervisorSection{
			Path:            sup.Path,
			Args:            sup.Args,
			Env:             sup.Env,
			Dir:             sup.Dir,
			ShutdownTimeout: &shutdownTimeout,
			AutoRestart:     &sup.AutoRestart,
			RestartDelay:    &restartDelay,
			MaxRestarts:     &sup.MaxRestarts,
			MonitorInterval: &monitorInterval,
			LockPath:        sup.LockPath,
		},
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}

	return data, nil
}

func (s ChannelSection) apply(cfg *ChannelConfig) {
	if s.PollInterval != nil {
		cfg.PollInterval = time.Duration(*s.PollInterval)
	}

	if s.ResponseTimeout != nil {
		cfg.ResponseTimeout = time.Duration(*s.ResponseTimeout)
	}

	if s.MaxPending != nil {
		cfg.MaxPending = *s.MaxPending
	}

	if s.EnableHealthReporting != nil {
		cfg.EnableHealthReporting = *s.EnableHealthReporting
	}
}

func (s SupervisorSection) apply(cfg *SupervisorConfig) {
	if s.Path != "" {
		cfg.Path = s.Path
	}

	if len(s.Args) > 0 {
		cfg.Args = s.Args
	}

	if len(s.Env) > 0 {
		cfg.Env = s.Env
	}

	if s.Dir != "" {
		cfg.Dir = s.Dir
	}

	if s.ShutdownTimeout != nil {
		cfg.ShutdownTimeout = time.Duration(*s.ShutdownTimeout)
	}

	if s.AutoRestart != nil {
		cfg.AutoRestart = *s.AutoRestart
	}

	if s.RestartDelay != nil {
		cfg.RestartDelay = time.Duration(*s.RestartDelay)
	}

	if s.MaxRestarts != nil {
		cfg.MaxRestarts = *s.MaxRestarts
	}

	if s.MonitorInterval != nil {
		cfg.MonitorInterval = time.Duration(*s.MonitorInterval)
	}

	if s.LockPath != "" {
		cfg.LockPath = s.LockPath
	}
}
