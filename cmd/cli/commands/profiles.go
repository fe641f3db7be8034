package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/support-match/pkg/core/matchflow"
	"github.com/jakechorley/support-match/pkg/core/model"
	"github.com/jakechorley/support-match/pkg/core/services"
)

// RegisterRequesterCmd creates the registerRequester command
func RegisterRequesterCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registerRequester <full_name>",
		Short: "Register a person seeking support",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			requester := &model.RequesterProfile{FullName: args[0]}
			requester.Email, _ = flags.GetString("email")
			requester.Phone, _ = flags.GetString("phone")
			requester.Frequency, _ = flags.GetStringSlice("frequency")
			requester.PreferredTimes, _ = flags.GetStringSlice("times")
			requester.Reason, _ = flags.GetString("reason")
			requester.Needs, _ = flags.GetString("needs")
			requester.Personal, _ = flags.GetBool("personal")

			if err := services.RegisterRequester(app.Ctx, app.Database, app.Publisher(), app.Logger, requester); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✓ Requester registered\n\n")
			fmt.Fprintf(out, "Requester ID: %s\n\n", requester.ID)
			return nil
		},
	}

	cmd.Flags().String("email", "", "Contact email")
	cmd.Flags().String("phone", "", "Contact phone")
	cmd.Flags().StringSlice("frequency", nil, "Requested meeting frequency")
	cmd.Flags().StringSlice("times", nil, "Preferred times of day")
	cmd.Flags().String("reason", "", "Reason for seeking support")
	cmd.Flags().String("needs", "", "Specific needs")
	cmd.Flags().Bool("personal", false, "Choose a volunteer directly instead of going through the pool")

	return cmd
}

// RegisterVolunteerCmd creates the registerVolunteer command
func RegisterVolunteerCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registerVolunteer <full_name>",
		Short: "Register a volunteer; new volunteers wait for admin review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			volunteer := &model.VolunteerProfile{FullName: args[0], IsAvailable: true}
			volunteer.Email, _ = flags.GetString("email")
			volunteer.Phone, _ = flags.GetString("phone")
			volunteer.Profession, _ = flags.GetString("profession")
			volunteer.Age, _ = flags.GetInt("age")
			volunteer.Gender, _ = flags.GetString("gender")
			volunteer.Experience, _ = flags.GetString("experience")
			volunteer.AvailableDays, _ = flags.GetStringSlice("days")
			volunteer.AvailableHours, _ = flags.GetStringSlice("hours")
			volunteer.Frequency, _ = flags.GetStringSlice("frequency")
			volunteer.Personal, _ = flags.GetBool("personal")
			if unavailable, _ := flags.GetBool("unavailable"); unavailable {
				volunteer.IsAvailable = false
			}

			if err := services.RegisterVolunteer(app.Ctx, app.Database, app.Publisher(), app.Logger, volunteer); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✓ Volunteer registered, awaiting review\n\n")
			fmt.Fprintf(out, "Volunteer ID: %s\n\n", volunteer.ID)
			return nil
		},
	}

	cmd.Flags().String("email", "", "Contact email")
	cmd.Flags().String("phone", "", "Contact phone")
	cmd.Flags().String("profession", "", "Profession")
	cmd.Flags().Int("age", 0, "Age")
	cmd.Flags().String("gender", "", "Gender")
	cmd.Flags().String("experience", "", "Relevant experience")
	cmd.Flags().StringSlice("days", nil, "Available weekdays, e.g. ראשון,שלישי")
	cmd.Flags().StringSlice("hours", nil, "Available time periods, e.g. \"ערב (20:00-24:00)\"")
	cmd.Flags().StringSlice("frequency", nil, "Meeting frequencies the volunteer can offer")
	cmd.Flags().Bool("personal", false, "Accept requests addressed directly to this volunteer")
	cmd.Flags().Bool("unavailable", false, "Register as not currently available")

	return cmd
}

// ReviewVolunteerCmd creates the reviewVolunteer command
func ReviewVolunteerCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reviewVolunteer <volunteer_id> <approve|decline>",
		Short: "Approve or decline a registered volunteer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var decision model.Approval
			switch strings.ToLower(args[1]) {
			case "approve", string(model.ApprovalApproved):
				decision = model.ApprovalApproved
			case "decline", string(model.ApprovalDeclined):
				decision = model.ApprovalDeclined
			default:
				return fmt.Errorf("decision must be approve or decline, got %q", args[1])
			}

			return runTransition(app, cmd.OutOrStdout(), matchflow.ReviewVolunteer{VolunteerID: args[0], Decision: decision})
		},
	}
}

// RankVolunteersCmd creates the rankVolunteers command
func RankVolunteersCmd(app *AppContext) *cobra.Command {
	var admin bool

	cmd := &cobra.Command{
		Use:   "rankVolunteers <requester_id>",
		Short: "List the volunteers a requester may choose from, best match first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("rankVolunteers command",
				zap.String("requester_id", args[0]),
				zap.Bool("admin", admin))

			rank := services.RankVolunteersFor
			if admin {
				rank = services.RankVolunteersForAdmin
			}
			result, err := rank(app.Ctx, app.Database, app.Logger, args[0], app.Cfg.Threshold())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n👤 %s", result.Requester.FullName)
			if result.Request != nil {
				fmt.Fprintf(out, " (request %s, %s)", result.Request.ID, result.Request.Status)
			}
			fmt.Fprintf(out, "\n\n")

			if len(result.Volunteers) == 0 {
				fmt.Fprintln(out, "No eligible volunteers.")
				fmt.Fprintln(out)
				return nil
			}

			fmt.Fprintf(out, "%-4s  %-36s  %-24s  %5s\n", "", "Volunteer ID", "Name", "Score")
			fmt.Fprintln(out, "----  ------------------------------------  ------------------------  -----")
			for _, entry := range result.Volunteers {
				marker := ""
				if entry.Recommended {
					marker = "★"
				}
				fmt.Fprintf(out, "%-4s  %-36s  %-24s  %4d%%\n",
					marker, entry.Volunteer.ID, entry.Volunteer.FullName, entry.CompatibilityScore)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&admin, "admin", false, "Include pool volunteers an admin may assign to a personal requester")
	return cmd
}
