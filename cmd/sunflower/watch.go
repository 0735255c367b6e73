package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sunflower/pkg/log"
	"sunflower/pkg/monitor"

	"github.com/google/subcommands"
)

type watchCommand struct{}

func (*watchCommand) Name() string     { return "watch" }
func (*watchCommand) Synopsis() string { return "Print change notifications for a directory" }
func (*watchCommand) Usage() string {
	return `watch <path-or-uri>:
  Watch a directory and print every change notification until interrupted.
`
}

func (*watchCommand) SetFlags(*flag.FlagSet) {}

func (*watchCommand) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	mon, err := m.Watch(target)
	if err != nil {
		log.Error().Err(err).Str("path", target).Msg("Failed to watch path")
		return subcommands.ExitFailure
	}
	defer mon.Cancel()

	kind := "native"
	if mon.IsQueueBased() {
		kind = "manual"
	}
	log.Info().Str("path", mon.Path()).Str("kind", kind).Msg("Watching")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return subcommands.ExitSuccess
		case ev, ok := <-mon.Events():
			if !ok {
				return subcommands.ExitSuccess
			}
			printEvent(ev)
		}
	}
}

func printEvent(ev monitor.Event) {
	stamp := time.Now().Format(time.TimeOnly)
	if ev.Signal == monitor.SignalMoved {
		fmt.Printf("%s %-18s %s -> %s\n", stamp, ev.Signal, ev.Path, ev.OtherPath)
		return
	}
	fmt.Printf("%s %-18s %s\n", stamp, ev.Signal, ev.Path)
}
