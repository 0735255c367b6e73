package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sunflower/pkg/log"
	"sunflower/pkg/monitor"

	"github.com/dustin/go-humanize"
	"github.com/google/subcommands"
)

type duCommand struct {
	quiet bool
}

func (*duCommand) Name() string     { return "du" }
func (*duCommand) Synopsis() string { return "Compute the size of a directory tree" }
func (*duCommand) Usage() string {
	return `du [-q] <path-or-uri>:
  Walk a directory tree in the background, printing partial totals as they
  are published. Interrupting cancels the walk.
`
}

func (c *duCommand) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.quiet, "q", false, "print only the final total")
}

func (c *duCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	if !p.IsDir(target, "") {
		log.Error().Str("path", target).Msg("Not a directory")
		return subcommands.ExitFailure
	}

	calc := m.DiskUsage(p)
	progress := make(chan struct{}, 1)
	calc.Calculate(target, monitor.QueueFunc(func(monitor.Event) {
		select {
		case progress <- struct{}{}:
		default:
		}
	}))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			calc.Cancel(target)
			calc.Wait()
			fmt.Fprintln(os.Stderr, "cancelled")
			return subcommands.ExitFailure
		case <-progress:
		}

		r, _ := calc.Get(target)
		if r.Done || !c.quiet {
			fmt.Printf("%s\t%d entries\t%s\n", humanize.IBytes(r.Size), r.Count, target)
		}
		if r.Done {
			return subcommands.ExitSuccess
		}
	}
}
