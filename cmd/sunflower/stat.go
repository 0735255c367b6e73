package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"sunflower/pkg/log"

	"github.com/google/subcommands"
)

type statCommand struct {
	extended bool
	follow   bool
}

func (*statCommand) Name() string     { return "stat" }
func (*statCommand) Synopsis() string { return "Print the stat record of a path" }
func (*statCommand) Usage() string {
	return `stat [-extended] [-follow] <path-or-uri>:
  Print the stat record of a path as JSON.
`
}

func (c *statCommand) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.extended, "extended", false, "include access and change times, inode and device")
	f.BoolVar(&c.follow, "follow", false, "follow symbolic links")
}

func (c *statCommand) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	target := f.Arg(0)

	m, err := setup()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return subcommands.ExitFailure
	}
	defer m.Close()

	p, err := m.Provider(target)
	if err != nil {
		log.Error().Err(err).Str("path", target).Msg("Failed to open provider")
		return subcommands.ExitFailure
	}

	stat := p.GetStat(target, "", c.extended, c.follow)
	if !stat.Base().IsValid() {
		log.Error().Str("path", target).Msg("Path does not exist")
		return subcommands.ExitFailure
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]interface{}{
		"path":     target,
		"protocol": p.Protocol(),
		"type":     stat.Base().Type.String(),
		"support":  p.GetSupport().String(),
		"info":     stat,
	}); err != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
