package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/p-blackswan/trio/internal/health"
)

func newDoctorCommand(r *runner) *cobra.Command {
	var live bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the database, settings file and API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withApp(cmd, func(a *App) error {
				checker := health.NewChecker(a.Logger)
				checker.Register("store", health.StoreCheck(a.Store))
				checker.Register("settings", health.SettingsFileCheck(a.Env.ConfigPath))
				checker.Register("gateway", health.GatewayConfiguredCheck(a.Orchestrator.GatewayEnabled()))
				if live {
					checker.Register("gateway_live", health.GatewayLiveCheck(a.Provider))
				}

				results := checker.RunAll(cmd.Context())
				for _, res := range results {
					a.out.printf("%-13s %s  %s\n", res.Name, a.statusLabel(res.Status), res.Detail)
				}
				if !health.Ready(results) {
					return errors.New("some checks failed")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "also send a one-token request to the API")
	return cmd
}

func (a *App) statusLabel(s health.Status) string {
	st := a.out.styles
	switch s {
	case health.StatusOK:
		return st.Good.Render("ok      ")
	case health.StatusDegraded:
		return st.Muted.Render("degraded")
	default:
		return st.Error.Render("down    ")
	}
}
