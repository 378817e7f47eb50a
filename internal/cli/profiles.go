package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ProfilesOptions holds flags for the profiles command.
type ProfilesOptions struct {
	*RootOptions
	ProfilesFile string
}

// ProfileSummary is the listed form of a run profile.
type ProfileSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	App         string `json:"app"`
	AppVersion  int    `json:"app_version"`
	Mode        string `json:"mode"`
	Iterations  int    `json:"iterations"`
	Interval    string `json:"interval"`
	Tick        string `json:"tick"`
	Source      string `json:"source"`
}

// NewProfilesCommand creates the profiles command.
func NewProfilesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProfilesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List and validate run profiles",
		Long: `List the built-in run profiles, unified with the profiles of a CUE file
when --profiles is given. Invalid profiles are reported with their source
position and exit with code 2.

Examples:
  headpose profiles
  headpose profiles --profiles ./lab.cue --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfiles(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ProfilesFile, "profiles", "", "CUE file with additional profiles")

	return cmd
}

func runProfiles(opts *ProfilesOptions, cmd *cobra.Command) error {
	set, err := loadProfiles(opts.ProfilesFile)
	if err != nil {
		if opts.Format == "json" {
			formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
			if writeErr := formatter.Error("E_INVALID_PROFILE", err.Error(), nil); writeErr != nil {
				return writeErr
			}
		}
		return WrapExitError(ExitCommandError, "invalid profiles", err)
	}

	var summaries []ProfileSummary
	for _, p := range set.Profiles() {
		summaries = append(summaries, ProfileSummary{
			Name:        p.Name,
			Description: p.Description,
			App:         p.AppName,
			AppVersion:  p.AppVersion,
			Mode:        p.Mode.String(),
			Iterations:  p.Iterations,
			Interval:    p.Interval.String(),
			Tick:        p.Runtime.Tick.String(),
			Source:      p.Runtime.Source,
		})
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
		return formatter.Success(summaries)
	}

	w := cmd.OutOrStdout()
	for _, s := range summaries {
		fmt.Fprintf(w, "%-12s %-16s %5d × %-6s tick %-8s %s\n",
			s.Name, s.Mode, s.Iterations, s.Interval, s.Tick, s.Source)
		if s.Description != "" {
			fmt.Fprintf(w, "             %s\n", s.Description)
		}
	}
	return nil
}
