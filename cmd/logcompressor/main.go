// Command logcompressor is the CLI shell for the compressor pipeline
// (C4, internal/compressor), the Go translation of
// original_source/gzip_logs_tools/log_compressor/log_compressor.c's
// main(). It wires cobra/pflag for argument parsing (the teacher's own
// CLI framework, carried from rclone-rclone's go.mod) around
// compressor.Pipeline, matching spec.md §6's two invocation shapes:
// daemon mode (one or more "in:out" pairs watched forever) and one-shot
// file mode (-f PATH, compress once to PATH.gz).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kaltura/gzlogtools/internal/clierr"
	"github.com/kaltura/gzlogtools/internal/compressor"
)

const programName = "logcompressor"

func main() {
	var (
		fileMode string
		pidFile  string
		level    int
	)

	cmd := &cobra.Command{
		Use:   programName + " <owner> <in>:<out> [<in>:<out> ...]",
		Short: "Stream one or more live log sources into periodically-flushed, multi-member gzip files",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fileMode != "" {
				return runFileMode(fileMode, level)
			}
			return runDaemonMode(args, pidFile, level)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().StringVarP(&fileMode, "file", "f", "", "one-shot mode: compress PATH to PATH.gz and exit")
	cmd.Flags().StringVar(&pidFile, "pidfile", "/var/run/log_compressor.pid", "PID file, locked for the process lifetime as a singleton guard")
	cmd.Flags().IntVar(&level, "level", 0, "gzip compression level (0 selects the package default)")

	if err := cmd.Execute(); err != nil {
		clierr.Exit(programName, err, exitCodeFor(err))
	}
}

// exitCodeFor distinguishes usage errors (spec.md §6's exit code 2) from
// run-time failures (exit code 1); cobra's own arg/flag validation errors
// satisfy neither wrapped kind, so they fall through to the run-time case.
func exitCodeFor(err error) int {
	var uerr *usageError
	if errors.As(err, &uerr) {
		return clierr.ExitUsageConfig
	}
	return clierr.ExitFatal
}

// usageError marks a fatal configuration error (spec.md §7's "fatal
// configuration" kind) so main can report exit code 2 instead of 1.
type usageError struct{ err error }

func (u *usageError) Error() string { return u.err.Error() }
func (u *usageError) Unwrap() error { return u.err }

func runFileMode(path string, level int) error {
	input, err := compressor.OpenInput("file", path, "")
	if err != nil {
		return err
	}
	p := compressor.New(input, path+".gz", nil, logrus.NewEntry(logrus.StandardLogger()))
	if level != 0 {
		p.Level = level
	}
	return p.Run(context.Background())
}

func runDaemonMode(args []string, pidFile string, level int) error {
	if len(args) < 2 {
		return &usageError{fmt.Errorf("logcompressor: daemon mode needs <owner> and at least one <in>:<out>")}
	}
	owner := args[0]
	if owner == "-" {
		owner = ""
	}
	specs := args[1:]

	if err := compressor.CreatePIDFile(pidFile); err != nil {
		return err
	}

	log := logrus.NewEntry(logrus.StandardLogger())
	sig := compressor.NewSignals()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	go sig.Watch(ctx, log)

	pipelines := make([]*compressor.Pipeline, 0, len(specs))
	for _, spec := range specs {
		scheme, path, out, err := compressor.ParseInputSpec(spec)
		if err != nil {
			return &usageError{err}
		}
		input, err := compressor.OpenInput(scheme, path, owner)
		if err != nil {
			return err
		}
		p := compressor.New(input, out, sig, log.WithField("input", path))
		if level != 0 {
			p.Level = level
		}
		pipelines = append(pipelines, p)
	}

	errs := make(chan error, len(pipelines))
	for _, p := range pipelines {
		go func(p *compressor.Pipeline) { errs <- p.Run(ctx) }(p)
	}

	var firstErr error
	for range pipelines {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
