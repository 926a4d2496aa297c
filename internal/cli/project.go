package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newProjectCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Create and list projects",
	}

	var description string
	var enthusiasm int
	newCmd := &cobra.Command{
		Use:   "new <title>",
		Short: "Start a project and let both assistants introduce themselves",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(a *App) error {
				p, intro, err := a.Orchestrator.StartProject(strings.Join(args, " "), description, enthusiasm)
				if err != nil {
					return err
				}
				a.out.printf("Created project %d: %s\n\n", p.ID, a.out.styles.Title.Render(p.Title))
				if intro == nil {
					a.out.println(a.out.styles.Muted.Render("No API key configured; skipping introductions."))
					return nil
				}
				return a.await(cmd.Context(), intro)
			})
		},
	}
	newCmd.Flags().StringVarP(&description, "description", "d", "", "what the project is about")
	newCmd.Flags().IntVarP(&enthusiasm, "enthusiasm", "e", 7, "how excited you are, 1-10")

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List projects by most recent activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(a *App) error {
				projects, err := a.Orchestrator.Projects(limit)
				if err != nil {
					return err
				}
				if len(projects) == 0 {
					a.out.println("No projects yet.")
					return nil
				}
				for _, p := range projects {
					a.out.printf("%4d  %s  %s  %s\n", p.ID,
						a.out.styles.Title.Render(p.Title),
						a.out.styles.Muted.Render(p.Status),
						a.out.styles.Muted.Render("last active "+formatMillis(p.LastActivity)))
				}
				return nil
			})
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum projects to show")

	cmd.AddCommand(newCmd, listCmd)
	return cmd
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}
