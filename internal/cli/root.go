package cli

import (
	"github.com/spf13/cobra"
)

// runner carries global flags and opens the App for commands that need it.
type runner struct {
	opts      Options
	projectID int64
}

// withApp opens the App for one command and closes it when fn returns.
func (r *runner) withApp(cmd *cobra.Command, fn func(a *App) error) error {
	a, err := Open(r.opts, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			r.opts.Logger.Warn().Err(cerr).Msg("closing app")
		}
	}()
	return fn(a)
}

// NewRootCommand creates the trio command tree.
func NewRootCommand(opts Options) *cobra.Command {
	r := &runner{opts: opts}

	rootCmd := &cobra.Command{
		Use:   "trio",
		Short: "Talk through projects with Spark (motivator) and Proto (executor)",
		Long: `trio pairs you with two assistants: Spark keeps the excitement alive and Proto turns
it into tiny next steps. Conversations, tasks and quick captures are kept per project
in a local database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().Int64VarP(&r.projectID, "project", "p", 0, "project id (default: most recently active)")

	rootCmd.AddCommand(
		newProjectCommand(r),
		newChatCommand(r),
		newTeamCommand(r),
		newRecoverCommand(r),
		newCaptureCommand(r),
		newInsightsCommand(r),
		newTaskCommand(r),
		newHistoryCommand(r),
		newStatsCommand(r),
		newConfigCommand(r),
		newDoctorCommand(r),
		newReplCommand(r),
	)
	return rootCmd
}
