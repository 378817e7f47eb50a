package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "headpose", cmd.Use)
	assert.Contains(t, cmd.Long, "frame lifecycle")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"poll", "watch", "conform", "history", "profiles"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}

	show, _, err := cmd.Find([]string{"history", "show"})
	require.NoError(t, err)
	assert.Equal(t, "show", show.Name())
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestPollCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	pollCmd, _, err := cmd.Find([]string{"poll"})
	require.NoError(t, err)

	defaults := map[string]string{
		"profile":     "default",
		"mode":        "unsynchronized",
		"count":       "100",
		"interval":    "50ms",
		"duration":    "0s",
		"source":      "static",
		"app":         "Pose Test",
		"app-version": "1",
		"unavailable": "false",
		"matrix":      "false",
		"record":      "",
		"forward":     "",
	}
	for name, want := range defaults {
		flag := pollCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "flag %s", name)
		assert.Equal(t, want, flag.DefValue, "flag %s", name)
	}

	watchCmd, _, err := cmd.Find([]string{"watch"})
	require.NoError(t, err)
	for name := range defaults {
		assert.NotNil(t, watchCmd.Flags().Lookup(name), "watch flag %s", name)
	}
}

func TestConformCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	conformCmd, _, err := cmd.Find([]string{"conform"})
	require.NoError(t, err)

	assert.NotNil(t, conformCmd.Flags().Lookup("update"))
	assert.NotNil(t, conformCmd.Flags().Lookup("filter"))
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--format", "yaml", "profiles"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootRunsPoll(t *testing.T) {
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"poll", "--count", "2", "--interval", "1ms"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, []string{staticPoseLine, staticPoseLine}, lines(buf.String()))
}
