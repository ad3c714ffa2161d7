package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/hopboxdev/webgreeter/internal/config"
)

// CLI is the top-level Kong struct.
type CLI struct {
	Config string `short:"c" help:"Path to the greeter config file." default:"${config_path}" type:"path"`

	Run     RunCmd     `cmd:"" help:"Start the greeter host."`
	Status  StatusCmd  `cmd:"" help:"Show theme supervision state of the running greeter."`
	Stop    StopCmd    `cmd:"" help:"Ask the running greeter to quit."`
	Send    SendCmd    `cmd:"" help:"Post messages on the GreeterBridge channel (for theme debugging)."`
	Version VersionCmd `cmd:"" help:"Print version."`
}

func main() {
	var cli CLI
	k, err := kong.New(&cli,
		kong.Name("web-greeter"),
		kong.Description("Login greeter host that supervises an HTML/JS theme"),
		kong.UsageOnError(),
		kong.Vars{"config_path": config.DefaultPath},
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	if err != nil {
		panic(err)
	}
	ctx, err := k.Parse(os.Args[1:])
	k.FatalIfErrorf(err)
	k.FatalIfErrorf(ctx.Run(&cli))
}

// newLogger returns the root logger; debug mode lowers the level.
func newLogger(debug bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "web-greeter",
		ReportTimestamp: true,
	})
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// loadConfig loads the config named by the global --config flag.
func loadConfig(globals *CLI) (*config.Config, error) {
	return config.Load(globals.Config)
}
