package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/wagiedev/procbridge-go/internal/config"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce   sync.Once
	channel      *config.ChannelConfig
	supervisor   *config.SupervisorConfig
	configExists bool
	configErr    error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// ensureConfig loads the config file once. Without --config the defaults
// are used.
func (c *commandContext) ensureConfig() (*config.ChannelConfig, *config.SupervisorConfig, error) {
	c.configOnce.Do(func() {
		path := c.configPath()
		if path == "" {
			c.channel = config.DefaultChannelConfig()
			c.supervisor = config.DefaultSupervisorConfig()
			return
		}
		ch, sup, exists, err := config.Load(path)
		if err != nil {
			c.configErr = fmt.Errorf("load config %s: %w", path, err)
			return
		}
		c.channel, c.supervisor, c.configExists = ch, sup, exists
	})
	return c.channel, c.supervisor, c.configErr
}

// logger builds the process logger on stderr: colourless text for a
// terminal, JSON otherwise so a parent process can parse it.
func (c *commandContext) logger() (*slog.Logger, error) {
	level := "info"
	if c.logLevelFlag != nil {
		level = *c.logLevelFlag
	}
	return newLogger(os.Stderr, level)
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if isTerminal(w) {
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(w, opts)), nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
