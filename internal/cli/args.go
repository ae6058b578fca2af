// Package cli holds the argument groups shared by darshan-go's CLI
// surface. Modeled on the teacher's command/args.go: small structs that
// know how to add their own flags and validate themselves, composed by
// the command that needs them rather than by one monolithic flag list.
package cli

import (
	"flag"
	"fmt"

	"github.com/nersc/darshan-go/internal/errs"
)

// OutputArgs is darshan-parser's option mask (spec §6: --base is the
// default if no flag is given; --all is shorthand for every block).
type OutputArgs struct {
	Base           bool
	Total          bool
	File           bool
	Perf           bool
	All            bool
	ShowIncomplete bool
}

func (o *OutputArgs) Add(fs *flag.FlagSet) {
	fs.BoolVar(&o.Base, "base", false, "Print per-record base output (default if no other block flag is given)")
	fs.BoolVar(&o.Total, "total", false, "Print per-module totals block")
	fs.BoolVar(&o.File, "file", false, "Print file-sharing tally block")
	fs.BoolVar(&o.Perf, "perf", false, "Print performance block")
	fs.BoolVar(&o.All, "all", false, "Shorthand for -base -total -file -perf -show-incomplete")
	fs.BoolVar(&o.ShowIncomplete, "show-incomplete", false, "Downgrade a truncated module from fatal to a warning")
}

func (o *OutputArgs) Validate() error {
	return nil
}

// Normalize applies spec §6's defaulting and --all expansion, after flags
// have been parsed.
func (o *OutputArgs) Normalize() {
	if o.All {
		o.Base, o.Total, o.File, o.Perf, o.ShowIncomplete = true, true, true, true, true
		return
	}
	if !o.Base && !o.Total && !o.File && !o.Perf {
		o.Base = true
	}
}

// CacheArgs names the on-disk parse-result cache directory (spec §4.2).
// An empty Dir means caching is disabled; darshan-parser runs exactly as
// it always did.
type CacheArgs struct {
	Dir string
}

func (c *CacheArgs) Add(fs *flag.FlagSet) {
	fs.StringVar(&c.Dir, "cache", "", "Directory for cached parse results, keyed by log path and mtime (disabled if unset)")
}

// PositionalArgs is the required log path.
type PositionalArgs struct {
	LogPath string
}

func (p *PositionalArgs) Validate(args []string) error {
	if len(args) == 0 {
		return &errs.UsageError{Reason: "missing required log file path"}
	}
	if len(args) > 1 {
		return &errs.UsageError{Reason: fmt.Sprintf("unexpected extra arguments: %v", args[1:])}
	}
	p.LogPath = args[0]
	return nil
}
