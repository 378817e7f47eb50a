package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/headpose/internal/store"
	"github.com/roach88/headpose/internal/testutil"
)

// executeWatch runs the watch command headless.
func executeWatch(t *testing.T, ids store.IDGenerator, args ...string) error {
	t.Helper()

	opts := &WatchOptions{
		RootOptions: &RootOptions{Format: "text"},
		RunFlags:    RunFlags{IDs: ids},
		ProgramOptions: []tea.ProgramOption{
			tea.WithInput(nil),
			tea.WithoutRenderer(),
			tea.WithoutSignalHandler(),
		},
	}
	cmd := newWatchCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestWatch_RunsToCompletion(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	err := executeWatch(t, testutil.NewFixedIDGenerator("watch-1"),
		"--mode", "bracketed", "--count", "5", "--tick", "1ms", "--record", dbPath)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	run, err := st.ReadRun(context.Background(), "watch-1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, run.Status)
	assert.Equal(t, 5, run.Poses)

	samples, err := st.ReadSamples(context.Background(), "watch-1")
	require.NoError(t, err)
	assert.Len(t, samples, 5)
}

func TestWatch_UnavailableRuntime(t *testing.T) {
	err := executeWatch(t, nil, "--unavailable")
	require.Error(t, err)
	assert.Equal(t, ExitInitFailure, GetExitCode(err))
}

func TestWatch_InvalidMode(t *testing.T) {
	err := executeWatch(t, nil, "--mode", "sideways")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
