package main

import (
	"fmt"

	"github.com/hopboxdev/webgreeter/internal/daemon"
	"github.com/hopboxdev/webgreeter/internal/ui"
)

// StopCmd asks the running greeter to quit.
type StopCmd struct{}

func (c *StopCmd) Run(globals *CLI) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}
	client := daemon.NewClient(cfg.ControlSocket())
	if !client.IsRunning() {
		return fmt.Errorf("greeter is not running (no control socket at %s)", cfg.ControlSocket())
	}
	if err := client.Shutdown(); err != nil {
		return err
	}
	fmt.Println(ui.StepOK("Greeter stopped"))
	return nil
}
