package main

import (
	"context"
	"flag"

	"sunflower/pkg/log"
	"sunflower/pkg/server"

	"github.com/google/subcommands"
)

type serveCommand struct {
	addr string
}

func (*serveCommand) Name() string     { return "serve" }
func (*serveCommand) Synopsis() string { return "Start the HTTP inspection API" }
func (*serveCommand) Usage() string {
	return `serve [-addr <host:port>]:
  Serve directory listings, stat records, disk usage and queue state over HTTP.
`
}

func (c *serveCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "listen address (default server.address from the configuration)")
}

func (c *serveCommand) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	m, err := setup()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return subcommands.ExitFailure
	}

	addr := c.addr
	if addr == "" {
		addr = m.Config().Server.Address
	}

	if err := server.New(m, Version).Start(addr); err != nil {
		log.Error().Err(err).Msg("Server failed")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
