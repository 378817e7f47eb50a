package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/headpose/internal/loop"
)

// PollOptions holds flags for the poll command.
type PollOptions struct {
	*RootOptions
	RunFlags
}

// NewPollCommand creates the poll command.
func NewPollCommand(rootOpts *RootOptions) *cobra.Command {
	return newPollCommand(&PollOptions{RootOptions: rootOpts})
}

func newPollCommand(opts *PollOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Poll head poses and print them",
		Long: `Create a context on the XR runtime, poll the head pose and print one line
per report: the pose, or "no pose received" when tracking is unavailable.

Without flags this is the minimal client: application "Pose Test" version 1,
unsynchronized polling, 100 reports 50ms apart. Bracketed mode calls
begin/end frame around each query and waits for the next frame instead of
sleeping, so every query sees the runtime's predicted display time.

Exit codes:
  0 - Run completed (or was interrupted)
  1 - Run failed (session lost, reporter error)
  2 - Command error (invalid flags, profile or database)
  3 - Context creation failed (no runtime available)

Examples:
  headpose poll
  headpose poll --mode bracketed --count 500
  headpose poll --profile wave --matrix
  headpose poll --record ./runs.db --format json
  headpose poll --forward http://localhost:8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPoll(opts, cmd)
		},
	}

	opts.register(cmd)

	return cmd
}

func runPoll(opts *PollOptions, cmd *cobra.Command) error {
	p, err := opts.resolve(cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid run configuration", err)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	runID, stats, err := opts.execute(ctx, p, displayReporter(opts.Format, opts.Matrix, cmd.OutOrStdout()))
	if err != nil {
		slog.Debug("run ended with error", "run_id", runID, "error", err)
		return runExitError(err)
	}

	if opts.Record != "" && opts.Format != "json" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Recorded run %s (%d poses, %d misses)\n", runID, stats.Poses, stats.Misses)
	}
	return nil
}

// displayReporter returns the stdout reporter for the output format.
func displayReporter(format string, matrix bool, w io.Writer) loop.Reporter {
	if format == "json" {
		return loop.NewJSONReporter(w)
	}
	return &loop.TextReporter{W: w, Matrix: matrix}
}
