// Command zblockgrep is the CLI shell for the block-grep path (C1→C2→C3),
// the Go translation of
// original_source/gzip_logs_tools/zblockgrep/zblockgrep.c's main()/
// usage(). Flags mirror the C getopt_long table (-p/-c/-f/-d/-H/-h)
// exactly; byte-range file arguments ("FILE:START-END") are parsed by
// internal/byteio.ParseURL, the same grammar spec.md §6 gives every tool.
package main

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/kaltura/gzlogtools/internal/byteio"
	"github.com/kaltura/gzlogtools/internal/capture"
	"github.com/kaltura/gzlogtools/internal/clierr"
	"github.com/kaltura/gzlogtools/internal/filter"
	"github.com/kaltura/gzlogtools/internal/gzstream"
	"github.com/kaltura/gzlogtools/internal/lineblock"
)

const programName = "zblockgrep"

func main() {
	var (
		pattern        string
		conditionsSpec string
		filterSpec     string
		delimiter      string
		timeFormat     string
		withFilename   bool
		noFilename     bool
	)

	cmd := &cobra.Command{
		Use:   programName + " [OPTION]... FILE...",
		Short: "Search for blocks matching a search criteria in each gzip FILE",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args, pattern, conditionsSpec, filterSpec, delimiter, timeFormat, withFilename, noFilename)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	f := cmd.Flags()
	f.StringVarP(&pattern, "pattern", "p", "^.", "regular expression that identifies a block's first line")
	f.StringVarP(&conditionsSpec, "capture-conditions", "c", "", "conditions on the pattern's captures, e.g. $1>=12:34:56")
	f.StringVarP(&filterSpec, "filter", "f", "", "JSON-encoded filter object matched against each block")
	f.StringVarP(&delimiter, "block-delimiter", "d", "", "string printed on its own line after each matched block")
	f.StringVarP(&timeFormat, "time-format", "t", "%Y-%m-%d %H:%M:%S", "strptime-style format for @ capture conditions")
	f.BoolVarP(&withFilename, "with-filename", "H", false, "print the file name for each match")
	f.BoolVarP(&noFilename, "no-filename", "h", false, "suppress the file name prefix on output")

	if err := cmd.Execute(); err != nil {
		clierr.Exit(programName, err, clierr.ExitFatal)
	}
}

func run(files []string, pattern, conditionsSpec, filterSpec, delimiter, timeFormat string, withFilename, noFilename bool) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("zblockgrep: invalid pattern %q: %w", pattern, err)
	}

	var conds []capture.Condition
	if conditionsSpec != "" {
		conds, err = capture.ParseConditions(conditionsSpec)
		if err != nil {
			return fmt.Errorf("zblockgrep: %w", err)
		}
	}

	tf, err := capture.ParseTimeFormat(timeFormat)
	if err != nil {
		return fmt.Errorf("zblockgrep: %w", err)
	}

	var filterNode filter.Node
	if filterSpec != "" {
		filterNode, err = filter.Parse([]byte(filterSpec))
		if err != nil {
			return fmt.Errorf("zblockgrep: failed to parse filter: %w", err)
		}
	}

	var suffix string
	if delimiter != "" {
		suffix = delimiter + "\n"
	}

	switch {
	case noFilename:
		withFilename = false
	case !withFilename:
		withFilename = len(files) > 1
	}

	exitCode := 0
	for _, arg := range files {
		if err := processFile(arg, re, conds, tf, filterNode, suffix, withFilename); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %s: %s\n", programName, arg, err)
			exitCode = 1
		}
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}

func processFile(arg string, re *regexp.Regexp, conds []capture.Condition, tf capture.TimeFormat, filterNode filter.Node, suffix string, withFilename bool) error {
	_, _, rng, err := byteio.ParseURL(arg)
	if err != nil {
		return err
	}
	src, err := byteio.Open(arg, byteio.S3Options{})
	if err != nil {
		return err
	}
	rc, err := src.Open(context.Background())
	if err != nil {
		return err
	}
	defer rc.Close()

	var prefix string
	if withFilename {
		prefix = arg + ":"
	}

	block := &lineblock.Block{
		StartRegexp: re,
		Conditions:  conds,
		TimeFormat:  tf,
		Filter:      filterNode,
		Out:         os.Stdout,
		Prefix:      prefix,
		Suffix:      suffix,
	}
	reassembler := lineblock.NewReassembler(block, rng.Start == 0)

	eng := gzstream.New(chunkObserver{reassembler})
	if err := eng.Run(rc); err != nil {
		return err
	}
	return block.Err()
}

// chunkObserver adapts gzstream.Observer to lineblock.Reassembler.Feed,
// the Go shape of compressed_file_inflate's process_chunk callback
// handing bytes to line_processor_process in zblockgrep.c. Resync and
// SegmentEnd are ignored: line and block state are not reset after a
// failed member, so a partial line buffered before corrupt data is joined
// to the first bytes decoded after the resync.
type chunkObserver struct {
	r *lineblock.Reassembler
}

func (c chunkObserver) ProcessChunk(chunk []byte) { c.r.Feed(chunk) }
func (c chunkObserver) Resync(int64)              {}
func (c chunkObserver) SegmentEnd(int64, bool)    {}
