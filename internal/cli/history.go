package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/headpose/internal/loop"
	"github.com/roach88/headpose/internal/store"
	"github.com/roach88/headpose/internal/xr"
)

// HistoryOptions holds flags for the history commands.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// RunSummary is the listed form of a recorded run.
type RunSummary struct {
	ID         string `json:"id"`
	App        string `json:"app"`
	AppVersion int    `json:"app_version"`
	Mode       string `json:"mode"`
	Iterations int    `json:"iterations"`
	ConfigHash string `json:"config_hash"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Poses      int    `json:"poses"`
	Misses     int    `json:"misses"`
}

// RunDetail is a recorded run with its samples.
type RunDetail struct {
	Run     RunSummary        `json:"run"`
	Samples []loop.SampleJSON `json:"samples"`
}

// NewHistoryCommand creates the history command and its show subcommand.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List runs recorded with poll --record or watch --record, newest first.

Examples:
  headpose history --db ./runs.db
  headpose history --db ./runs.db --limit 5 --format json
  headpose history show --db ./runs.db <run-id>`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list, 0 for all")

	cmd.AddCommand(newHistoryShowCommand(opts))

	return cmd
}

func newHistoryShowCommand(opts *HistoryOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <run-id>",
		Short:         "Print the samples of a recorded run",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(opts, args[0], cmd)
		},
	}
}

// openHistory opens an existing recording database.
func openHistory(path string) (*store.Store, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "--db is required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.OpenReadOnly(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	st, err := openHistory(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, r := range runs {
		summaries = append(summaries, summarize(r))
	}

	if opts.Format == "json" {
		return writeJSON(cmd, CLIResponse{Status: "ok", Data: summaries})
	}

	w := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "%s  %-9s  %-16s  %-14s  %d poses, %d misses\n",
			s.ID, s.Status, s.Mode, s.StartedAt, s.Poses, s.Misses)
		if s.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", s.Error)
		}
	}
	return nil
}

func runHistoryShow(opts *HistoryOptions, runID string, cmd *cobra.Command) error {
	st, err := openHistory(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	samples, err := st.ReadSamples(context.Background(), runID)
	if errors.Is(err, store.ErrRunNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", runID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read samples", err)
	}
	run, err := st.ReadRun(context.Background(), runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	if opts.Format == "json" {
		detail := RunDetail{Run: summarize(run), Samples: make([]loop.SampleJSON, 0, len(samples))}
		for _, s := range samples {
			detail.Samples = append(detail.Samples, s.ToJSON())
		}
		return writeJSON(cmd, CLIResponse{Status: "ok", Data: detail, RunID: runID})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run: %s\n", run.ID)
	fmt.Fprintf(w, "App: %s v%d\n", run.AppName, run.AppVersion)
	fmt.Fprintf(w, "Mode: %s\n", run.Mode)
	fmt.Fprintf(w, "Status: %s\n", run.Status)
	fmt.Fprintln(w)
	for _, s := range samples {
		line := xr.NoPoseMessage
		if s.Valid {
			line = xr.FormatPose(s.Pose)
		}
		fmt.Fprintf(w, "%5d  frame %-6d %s\n", s.Iteration, s.Frame, line)
	}
	return nil
}

func summarize(r store.Run) RunSummary {
	s := RunSummary{
		ID:         r.ID,
		App:        r.AppName,
		AppVersion: r.AppVersion,
		Mode:       r.Mode,
		Iterations: r.Iterations,
		ConfigHash: r.ConfigHash,
		StartedAt:  r.StartedAt.UTC().Format(time.RFC3339),
		Status:     string(r.Status),
		Error:      r.Error,
		Poses:      r.Poses,
		Misses:     r.Misses,
	}
	if !r.FinishedAt.IsZero() {
		s.FinishedAt = r.FinishedAt.UTC().Format(time.RFC3339)
	}
	return s
}

// writeJSON writes an indented CLIResponse.
func writeJSON(cmd *cobra.Command, response CLIResponse) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}
