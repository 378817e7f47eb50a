package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/roach88/headpose/internal/tui"
)

// watchFeedBuffer is the number of samples buffered between loop and view.
const watchFeedBuffer = 64

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	RunFlags

	// ProgramOptions are passed to the bubbletea program (for testing).
	ProgramOptions []tea.ProgramOption
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return newWatchCommand(&WatchOptions{RootOptions: rootOpts})
}

func newWatchCommand(opts *WatchOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the pose stream live",
		Long: `Run the same loop as poll and show the latest pose, counters and recent
reports in a live terminal view. Press q to stop the run.

Examples:
  headpose watch --mode bracketed --count 0
  headpose watch --profile wave --matrix --record ./runs.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	opts.register(cmd)

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	p, err := opts.resolve(cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid run configuration", err)
	}

	ctx, stop := signalContext(cmd)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := tui.NewFeed(watchFeedBuffer)
	model := tui.New(feed, tui.Options{
		App:        p.AppName,
		Mode:       p.Mode,
		Iterations: p.Iterations,
		Matrix:     opts.Matrix,
		Cancel:     cancel,
	})

	runDone := make(chan error, 1)
	go func() {
		_, stats, err := opts.execute(ctx, p, feed)
		feed.Finish(stats, err)
		runDone <- err
	}()

	progOpts := append([]tea.ProgramOption{
		tea.WithOutput(cmd.OutOrStdout()),
		tea.WithInput(cmd.InOrStdin()),
	}, opts.ProgramOptions...)
	if _, err := tea.NewProgram(model, progOpts...).Run(); err != nil {
		cancel()
		<-runDone
		return WrapExitError(ExitFailure, "watch view failed", err)
	}

	// The view may quit before the loop; stop it and wait for its flush.
	cancel()
	return runExitError(<-runDone)
}
