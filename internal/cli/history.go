package cli

import (
	"github.com/spf13/cobra"

	"github.com/p-blackswan/trio/internal/persona"
	"github.com/p-blackswan/trio/internal/store"
)

func newHistoryCommand(r *runner) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <spark|proto>",
		Short: "Show what an assistant remembers of this project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := persona.Parse(args[0])
			if err != nil {
				return err
			}
			return r.withApp(cmd, func(a *App) error {
				p, err := a.project(r.projectID)
				if err != nil {
					return err
				}
				entries, err := a.Orchestrator.Transcript(p.ID, id, limit)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					a.out.println("No messages yet.")
					return nil
				}
				for _, e := range entries {
					a.out.println(a.entryLine(e, id))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum entries to show")
	return cmd
}

func (a *App) entryLine(e *store.Entry, id persona.ID) string {
	st := a.out.styles
	who := st.User.Render("You")
	if e.Speaker != store.SpeakerUser {
		who = st.Persona(id).Render(id.Profile().Name)
	}
	line := st.Muted.Render(formatMillis(e.CreatedAt)) + " " + who
	if e.IsTeam() {
		line += " " + st.Muted.Render("[team]")
	}
	return line + ": " + e.Message
}

func newStatsCommand(r *runner) *cobra.Command {
	var showMetrics bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show project counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(a *App) error {
				p, err := a.project(r.projectID)
				if err != nil {
					return err
				}
				return a.printStats(p, showMetrics)
			})
		},
	}
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "also dump this process's Prometheus metrics")
	return cmd
}

func (a *App) printStats(p *store.Project, showMetrics bool) error {
	st, err := a.Orchestrator.Stats(p.ID)
	if err != nil {
		return err
	}
	a.out.printf("%s\n", a.out.styles.Title.Render(p.Title))
	a.out.printf("Total projects: %d\nMessages:       %d\nActive tasks:   %d\nDone tasks:     %d\nInsights:       %d\n",
		st.ProjectCount, st.MessageCount, st.OpenTaskCount, st.DoneTaskCount, st.InsightCount)
	a.out.printf("Started:        %s (enthusiasm %d/10)\n", formatMillis(p.CreatedAt), p.InitialEnthusiasm)
	if showMetrics {
		a.out.println("")
		a.out.mu.Lock()
		defer a.out.mu.Unlock()
		return a.Metrics.WriteText(a.out.w)
	}
	return nil
}
