package main

import (
	"context"
	"flag"
	"os"

	"sunflower/pkg/config"
	"sunflower/pkg/log"
	"sunflower/pkg/manager"
	"sunflower/pkg/metrics"

	"github.com/google/subcommands"
)

var (
	configPath = flag.String("config", "", "configuration file (default $XDG_CONFIG_HOME/sunflower/config.yaml)")
	debug      = flag.Bool("debug", false, "enable debug logging")
)

func main() {
	// Initialize logger first
	_ = log.Logger

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&lsCommand{}, "")
	subcommands.Register(&statCommand{}, "")
	subcommands.Register(&duCommand{}, "")
	subcommands.Register(&watchCommand{}, "")
	subcommands.Register(&serveCommand{}, "")
	subcommands.Register(&versionCommand{}, "")

	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(int(subcommands.ExitUsageError))
	}

	os.Exit(int(subcommands.Execute(context.Background())))
}

// setup loads the configuration, applies logging settings and builds the
// manager every command works through.
func setup() (*manager.Manager, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}

	if !log.SetLevel(cfg.Logging.Level) {
		log.Warn().Str("level", cfg.Logging.Level).Msg("Unknown log level")
	}
	if *debug {
		log.SetDebugMode()
	}
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}
	return manager.New(cfg), nil
}
