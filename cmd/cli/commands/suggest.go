package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jakechorley/support-match/pkg/core/services"
)

// SuggestCmd creates the suggest command
func SuggestCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest <requester_id>",
		Short: "Ask the AI model to pick the best volunteers for a requester",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ai := app.AIClient()
			if ai == nil {
				return fmt.Errorf("AI suggestions are not configured (set ai.endpoint and ai.model)")
			}
			showRaw, _ := cmd.Flags().GetBool("raw")

			result, err := services.SuggestVolunteers(app.Ctx, app.Database, ai, app.Cfg.AI.MaxVolunteers,
				app.Cfg.Threshold(), app.Logger, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n🤖 Suggestions for %s\n\n", result.Requester.FullName)

			switch {
			case len(result.Ranked) == 0:
				fmt.Fprintln(out, "No eligible volunteers.")
			case !result.OK:
				fmt.Fprintln(out, "⚠️  The model reply could not be read. Top of the ranking instead:")
				for i, entry := range result.Ranked {
					if i == 3 {
						break
					}
					fmt.Fprintf(out, "  %d. %s (%s) %d%%\n", i+1, entry.Volunteer.FullName, entry.Volunteer.ID, entry.CompatibilityScore)
				}
			default:
				for _, s := range result.Suggestions {
					fmt.Fprintf(out, "%d. %s: %s (%s)\n", s.Rank, s.Label, s.Volunteer.FullName, s.Volunteer.ID)
					if s.Reasoning != "" {
						fmt.Fprintf(out, "   %s\n", strings.ReplaceAll(s.Reasoning, "\n", "\n   "))
					}
				}
			}

			if showRaw && result.Raw != "" {
				fmt.Fprintf(out, "\n--- raw reply ---\n%s\n", result.Raw)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().Bool("raw", false, "Also print the unparsed model reply")

	return cmd
}
