// Command ztail prints the last N lines of a periodically-flushed
// multi-member gzip file, the Go translation of
// original_source/gzip_logs_tools/ztail/ztail.c's main()/parse_options()/
// usage(). Flags mirror the C getopt_long table (-n/--lines, -f/--follow)
// exactly.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kaltura/gzlogtools/internal/byteio"
	"github.com/kaltura/gzlogtools/internal/clierr"
	"github.com/kaltura/gzlogtools/internal/tail"
)

const (
	programName     = "ztail"
	defaultNumLines = 10
)

func main() {
	var (
		numLines    int64
		follow      bool
		memoryLimit int64
		s3AccessKey string
		s3SecretKey string
		s3Session   string
		s3Region    string
	)

	cmd := &cobra.Command{
		Use:   programName + " [OPTION]... FILE",
		Short: "Print the last N lines of a periodically-flushed gzip FILE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s3opt := byteio.S3Options{AccessKeyID: s3AccessKey, SecretAccessKey: s3SecretKey, SessionToken: s3Session, Region: s3Region}
			opt := tail.Options{MemoryLimit: memoryLimit, Follow: follow, S3: s3opt}
			if err := tail.Tail(args[0], numLines, opt, os.Stdout); err != nil {
				return fmt.Errorf("ztail: %s: %w", args[0], err)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	f := cmd.Flags()
	f.Int64VarP(&numLines, "lines", "n", defaultNumLines, "print the last N lines")
	f.BoolVarP(&follow, "follow", "f", false, "keep running and print new lines as the file grows")
	f.Int64Var(&memoryLimit, "memory-limit", 0, "cap, in bytes, on the backward scan buffer (0 uses the package default)")
	f.StringVar(&s3AccessKey, "s3-access-key", "", "S3 access key ID, for s3:// FILE arguments")
	f.StringVar(&s3SecretKey, "s3-secret-key", "", "S3 secret access key, for s3:// FILE arguments")
	f.StringVar(&s3Session, "s3-session-token", "", "S3 session token, for s3:// FILE arguments")
	f.StringVar(&s3Region, "s3-region", "", "S3 region, for s3:// FILE arguments")

	if err := cmd.Execute(); err != nil {
		clierr.Exit(programName, err, clierr.ExitFatal)
	}
}
