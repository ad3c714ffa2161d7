package main

import (
	"context"

	"github.com/hopboxdev/webgreeter/internal/daemon"
)

// RunCmd starts the greeter host.
type RunCmd struct {
	Debug   bool   `help:"Enable debug logging (same as debug_mode in the config)."`
	NoMlock bool   `name:"no-mlock" help:"Do not lock process memory (development only)."`
	Display string `help:"X display to use for lock-screen blanking." env:"DISPLAY"`
}

func (c *RunCmd) Run(globals *CLI) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}
	if c.Display != "" && cfg.Host.Display == "" {
		cfg.Host.Display = c.Display
	}
	logger := newLogger(c.Debug || cfg.Greeter.DebugMode)
	return daemon.Run(context.Background(), daemon.Options{
		Config:       cfg,
		Logger:       logger,
		NoMemoryLock: c.NoMlock,
	})
}
