package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/support-match/pkg/core/services"
)

// PublishMatchesCmd creates the publishMatches command
func PublishMatchesCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publishMatches",
		Short: "Publish the active match roster to Google Sheets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Cfg.MatchReportSheetID == "" {
				return fmt.Errorf("matchReportSheetID is not configured")
			}
			app.Logger.Debug("publishMatches command", zap.String("tab", app.Cfg.MatchReportTab))

			sheets, err := app.SheetsClient()
			if err != nil {
				return err
			}

			report, err := services.PublishMatchReport(app.Ctx, app.Database, sheets, app.Logger,
				app.Cfg.MatchReportSheetID, app.Cfg.MatchReportTab)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✅ Match report published\n\n")
			fmt.Fprintf(out, "Sheet ID: %s\n", app.Cfg.MatchReportSheetID)
			fmt.Fprintf(out, "Tab:      %s\n\n", app.Cfg.MatchReportTab)

			fmt.Fprintf(out, "%-24s  %-24s  %-12s  %5s\n", "Requester", "Volunteer", "Since", "Score")
			fmt.Fprintln(out, "------------------------  ------------------------  ------------  -----")
			for _, row := range report.Rows {
				fmt.Fprintf(out, "%-24s  %-24s  %-12s  %4d%%\n",
					row.RequesterName, row.VolunteerName, row.StartDate.Format("2006-01-02"), row.CompatibilityScore)
			}
			fmt.Fprintln(out)
			for _, c := range report.StatusCounts {
				fmt.Fprintf(out, "%-28s %d\n", c.Status, c.Count)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}
