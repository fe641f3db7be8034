package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/support-match/pkg/core/model"
	"github.com/jakechorley/support-match/pkg/core/services"
)

// ListRequestsCmd creates the listRequests command
func ListRequestsCmd(app *AppContext) *cobra.Command {
	var (
		status      string
		requesterID string
		volunteerID string
	)

	cmd := &cobra.Command{
		Use:   "listRequests",
		Short: "List support requests, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("listRequests command", zap.String("status", status))

			requests, err := services.ListRequests(app.Ctx, app.Database, app.Logger, services.RequestFilter{
				Status:      model.RequestStatus(status),
				RequesterID: requesterID,
				VolunteerID: volunteerID,
			})
			if err != nil {
				return fmt.Errorf("failed to list requests: %w", err)
			}

			printRequests(cmd.OutOrStdout(), requests)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Only requests in this status (waiting_for_first_approval, waiting_for_admin_approval, matched)")
	cmd.Flags().StringVar(&requesterID, "requester", "", "Only requests of this requester")
	cmd.Flags().StringVar(&volunteerID, "volunteer", "", "Only requests addressed to this volunteer")
	return cmd
}

// ListMatchesCmd creates the listMatches command
func ListMatchesCmd(app *AppContext) *cobra.Command {
	var volunteerID string

	cmd := &cobra.Command{
		Use:   "listMatches",
		Short: "List active matches, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("listMatches command", zap.String("volunteer_id", volunteerID))

			matches, err := services.ListMatches(app.Ctx, app.Database, app.Logger, volunteerID)
			if err != nil {
				return fmt.Errorf("failed to list matches: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nFound %d matches:\n\n", len(matches))
			for _, m := range matches {
				fmt.Fprintf(out, "- %s: %s ↔ %s since %s\n",
					m.ID,
					m.RequesterName,
					m.VolunteerName,
					m.StartDate.Format("2006-01-02"),
				)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&volunteerID, "volunteer", "", "Only matches of this volunteer")
	return cmd
}

// ListVolunteersCmd creates the listVolunteers command
func ListVolunteersCmd(app *AppContext) *cobra.Command {
	var approved string

	cmd := &cobra.Command{
		Use:   "listVolunteers",
		Short: "List volunteers, optionally by approval state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("listVolunteers command", zap.String("approved", approved))

			volunteers, err := services.ListVolunteers(app.Ctx, app.Database, app.Logger, model.Approval(approved))
			if err != nil {
				return fmt.Errorf("failed to list volunteers: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nFound %d volunteers:\n\n", len(volunteers))
			for _, v := range volunteers {
				flags := ""
				if v.Personal {
					flags += " [personal]"
				}
				if !v.IsAvailable {
					flags += " [unavailable]"
				}
				fmt.Fprintf(out, "- %s (%s) - %s - %s%s\n",
					v.FullName,
					v.ID,
					v.Approved,
					v.Email,
					flags,
				)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&approved, "approved", "", "Only volunteers in this approval state (pending, true, declined)")
	return cmd
}

// ListPoolCmd creates the listPool command
func ListPoolCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "listPool <volunteer_id>",
		Short: "List the open pool requests a volunteer may accept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("listPool command", zap.String("volunteer_id", args[0]))

			requests, err := services.ListPool(app.Ctx, app.Database, app.Logger, args[0])
			if err != nil {
				return err
			}

			printRequests(cmd.OutOrStdout(), requests)
			return nil
		},
	}
}

func printRequests(out io.Writer, requests []services.RequestSummary) {
	fmt.Fprintf(out, "\nFound %d requests:\n\n", len(requests))
	for _, r := range requests {
		volunteer := "pool"
		if r.VolunteerID != "" {
			volunteer = fmt.Sprintf("%s (%s)", r.VolunteerName, r.VolunteerID)
		}
		fmt.Fprintf(out, "- %s: %s (%s) → %s - %s\n",
			r.ID,
			r.RequesterName,
			r.RequesterID,
			volunteer,
			r.Status,
		)
	}
	fmt.Fprintln(out)
}
