package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/p-blackswan/trio/internal/persona"
)

func newChatCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <spark|proto> <message>",
		Short: "Send a message to one assistant",
		Args:  cobra.MinimumNArgs(2),
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
				turn, err := a.Orchestrator.SendPersonaTurn(p.ID, id, strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				return a.await(cmd.Context(), turn)
			})
		},
	}
}

func newTeamCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "team <message>",
		Short: "Ask Spark, then Proto with Spark's answer in hand",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(a *App) error {
				p, err := a.project(r.projectID)
				if err != nil {
					return err
				}
				turn, err := a.Orchestrator.SendTeamTurn(p.ID, strings.Join(args, " "))
				if err != nil {
					return err
				}
				return a.await(cmd.Context(), turn)
			})
		},
	}
}

func newRecoverCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "What was I doing? Ask Proto for a summary and the next action",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(a *App) error {
				p, err := a.project(r.projectID)
				if err != nil {
					return err
				}
				turn, err := a.Orchestrator.RecoverContext(p.ID)
				if err != nil {
					return err
				}
				return a.await(cmd.Context(), turn)
			})
		},
	}
}
