package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newCaptureCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "capture <what you are doing right now>",
		Short: "Save a quick capture of your current state",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(a *App) error {
				p, err := a.project(r.projectID)
				if err != nil {
					return err
				}
				in, followUp, err := a.Orchestrator.Capture(p.ID, strings.Join(args, " "))
				if err != nil {
					return err
				}
				a.out.printf("%s (insight %d)\n\n", a.out.styles.Good.Render("Captured."), in.ID)
				return a.await(cmd.Context(), followUp)
			})
		},
	}
}

func newInsightsCommand(r *runner) *cobra.Command {
	var all bool
	var limit int
	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Show recent captures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(a *App) error {
				var projectID int64
				if !all {
					p, err := a.project(r.projectID)
					if err != nil {
						return err
					}
					projectID = p.ID
				}
				insights, err := a.Orchestrator.RecentInsights(projectID, limit)
				if err != nil {
					return err
				}
				if len(insights) == 0 {
					a.out.println("No insights yet.")
					return nil
				}
				for _, in := range insights {
					a.out.printf("%s  %s\n", a.out.styles.Muted.Render(formatMillis(in.CreatedAt)), in.Content)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "show insights from every project")
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "maximum insights to show")
	return cmd
}
