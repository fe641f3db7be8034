package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jakechorley/support-match/pkg/core/services"
)

// PlanSessionsCmd creates the planSessions command
func PlanSessionsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "planSessions <match_id>",
		Short: "List upcoming session dates for a match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			if count == 0 {
				count = app.Cfg.SessionCount
			}
			rule, _ := cmd.Flags().GetString("rrule")
			if rule == "" {
				rule = app.Cfg.SessionRRule
			}

			plan, err := services.PlanSessions(app.Ctx, app.Database, app.Logger, args[0], rule, count)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n📅 Sessions for match %s\n", plan.Match.ID)
			fmt.Fprintf(out, "Rule: %s\n\n", plan.Rule)
			for i, d := range plan.Dates {
				fmt.Fprintf(out, "  %2d. %s\n", i+1, d.Format("2006-01-02 15:04 (Monday)"))
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().Int("count", 0, "Number of sessions to list (defaults to sessionCount)")
	cmd.Flags().String("rrule", "", "Recurrence rule overriding sessionRRule")

	return cmd
}
