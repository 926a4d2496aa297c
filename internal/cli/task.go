package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	perrors "github.com/p-blackswan/trio/internal/errors"
	"github.com/p-blackswan/trio/internal/store"
)

func newTaskCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tiny next steps",
	}

	var size string
	addCmd := &cobra.Command{
		Use:   "add <description>",
		Short: "Add a task to the current project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(a *App) error {
				p, err := a.project(r.projectID)
				if err != nil {
					return err
				}
				t, err := a.Orchestrator.AddTask(p.ID, strings.Join(args, " "), size)
				if err != nil {
					return err
				}
				a.out.printf("Added task %d (%s)\n", t.ID, t.Size)
				return nil
			})
		},
	}
	addCmd.Flags().StringVarP(&size, "size", "s", store.SizeTiny, "tiny, small, medium or large")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List open tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(a *App) error {
				p, err := a.project(r.projectID)
				if err != nil {
					return err
				}
				tasks, err := a.Orchestrator.OpenTasks(p.ID)
				if err != nil {
					return err
				}
				if len(tasks) == 0 {
					a.out.println("Nothing open. Nice.")
					return nil
				}
				for _, t := range tasks {
					a.out.printf("%4d  %-6s %s\n", t.ID, t.Size, t.Description)
				}
				return nil
			})
		},
	}

	var score int
	doneCmd := &cobra.Command{
		Use:   "done <task-id>",
		Short: "Complete a task and celebrate with Spark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return perrors.Validationf("task id %q is not a number", args[0])
			}
			return r.withApp(cmd, func(a *App) error {
				celebration, err := a.Orchestrator.FinishTask(id, score)
				if err != nil {
					return err
				}
				a.out.printf("%s Task %d done, dopamine %d/10.\n\n", a.out.styles.Good.Render("Done!"), id, score)
				return a.await(cmd.Context(), celebration)
			})
		},
	}
	doneCmd.Flags().IntVar(&score, "score", 8, "how good it feels, 1-10")

	cmd.AddCommand(addCmd, listCmd, doneCmd)
	return cmd
}
