package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"sunflower/pkg/location"
	"sunflower/pkg/log"
	"sunflower/pkg/models"
	"sunflower/pkg/provider"

	"github.com/dustin/go-humanize"
	"github.com/google/subcommands"
)

type lsCommand struct {
	archive bool
	human   bool
}

func (*lsCommand) Name() string     { return "ls" }
func (*lsCommand) Synopsis() string { return "List a directory through its provider" }
func (*lsCommand) Usage() string {
	return `ls [-archive] [-h] <path-or-uri>:
  List the entries of a directory. With -archive the path is a local archive
  file and its root is listed.
`
}

func (c *lsCommand) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.archive, "archive", false, "treat the path as an archive file")
	f.BoolVar(&c.human, "h", true, "print sizes in human readable form")
}

func (c *lsCommand) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	var p provider.Provider
	dir := target
	if c.archive {
		p, err = m.OpenArchive(target)
		dir = ""
	} else {
		p, err = m.Provider(target)
	}
	if err != nil {
		log.Error().Err(err).Str("path", target).Msg("Failed to open provider")
		return subcommands.ExitFailure
	}
	if c.archive {
		defer m.ReleaseArchive(p) //nolint:errcheck // Read-only handle
	}

	names, err := p.ListDir(dir, "")
	if err != nil {
		log.Error().Err(err).Str("path", target).Msg("Failed to list directory")
		return subcommands.ExitFailure
	}
	sort.Strings(names)

	base := location.Parse(dir)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, name := range names {
		info := p.GetStat(base.Child(name).String(), "", false, false).Base()
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			permissions(info),
			c.size(info.Size),
			time.Unix(int64(info.TimeModify), 0).Format(time.DateTime), //nolint:gosec // Unix seconds
			name)
	}
	if err := w.Flush(); err != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *lsCommand) size(n uint64) string {
	if c.human {
		return humanize.IBytes(n)
	}
	return fmt.Sprint(n)
}

func permissions(info models.FileInfo) string {
	kind := byte('-')
	switch info.Type {
	case models.FileTypeDirectory:
		kind = 'd'
	case models.FileTypeLink:
		kind = 'l'
	case models.FileTypeSocket:
		kind = 's'
	case models.FileTypeDeviceCharacter:
		kind = 'c'
	case models.FileTypeDeviceBlock:
		kind = 'b'
	case models.FileTypeInvalid:
		kind = '?'
	}
	return string(kind) + os.FileMode(info.Mode&0o777).String()[1:]
}
