package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jakechorley/support-match/pkg/core/matchflow"
	"github.com/jakechorley/support-match/pkg/core/services"
)

// runTransition applies cmd and prints what was committed
func runTransition(app *AppContext, out io.Writer, cmd matchflow.Command) error {
	notifier, err := app.Notifier()
	if err != nil {
		return err
	}

	result, err := services.ApplyMatchTransition(app.Ctx, app.Database, app.Publisher(), notifier, app.Metrics, app.Logger, cmd)
	if err != nil {
		if matchflow.IsPrecondition(err) {
			return fmt.Errorf("rejected: %w", err)
		}
		return err
	}

	printTransition(out, result)
	return nil
}

func printTransition(out io.Writer, result *services.TransitionResult) {
	fmt.Fprintf(out, "\n✓ %s committed (%d writes)\n", result.Command, result.Writes)
	if result.RequestID != "" {
		fmt.Fprintf(out, "Request ID: %s\n", result.RequestID)
	}
	if result.MatchID != "" {
		fmt.Fprintf(out, "Match ID:   %s\n", result.MatchID)
	}
	for _, n := range result.Notices {
		fmt.Fprintf(out, "  ✉ %s\n", n.Kind)
	}
	fmt.Fprintln(out)
}

// transitionCmd builds a command whose positional args map directly onto a transition
func transitionCmd(app *AppContext, use, short string, nargs int, build func(args []string) matchflow.Command) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(app, cmd.OutOrStdout(), build(args))
		},
	}
}

// CreateRequestCmd creates the createRequest command
func CreateRequestCmd(app *AppContext) *cobra.Command {
	return transitionCmd(app, "createRequest <requester_id>", "Open a support request for a requester", 1,
		func(args []string) matchflow.Command {
			return matchflow.CreateRequest{RequesterID: args[0]}
		})
}

// SelectVolunteerCmd creates the selectVolunteer command
func SelectVolunteerCmd(app *AppContext) *cobra.Command {
	return transitionCmd(app, "selectVolunteer <request_id> <volunteer_id>", "Propose a volunteer for a request on the requester's behalf", 2,
		func(args []string) matchflow.Command {
			return matchflow.SelectVolunteer{RequestID: args[0], VolunteerID: args[1]}
		})
}

// AcceptRequestCmd creates the acceptRequest command
func AcceptRequestCmd(app *AppContext) *cobra.Command {
	return transitionCmd(app, "acceptRequest <request_id> <volunteer_id>", "Accept a request as the volunteer", 2,
		func(args []string) matchflow.Command {
			return matchflow.AcceptRequest{RequestID: args[0], VolunteerID: args[1]}
		})
}

// DeclineRequestCmd creates the declineRequest command
func DeclineRequestCmd(app *AppContext) *cobra.Command {
	return transitionCmd(app, "declineRequest <request_id> <volunteer_id>", "Decline a request as the volunteer", 2,
		func(args []string) matchflow.Command {
			return matchflow.DeclineRequest{RequestID: args[0], VolunteerID: args[1]}
		})
}

// ApproveRequestCmd creates the approveRequest command
func ApproveRequestCmd(app *AppContext) *cobra.Command {
	return transitionCmd(app, "approveRequest <request_id>", "Approve a pending request and create the match", 1,
		func(args []string) matchflow.Command {
			return matchflow.ApproveRequest{RequestID: args[0]}
		})
}

// AdminDeclineCmd creates the adminDecline command
func AdminDeclineCmd(app *AppContext) *cobra.Command {
	return transitionCmd(app, "adminDecline <request_id>", "Decline the proposed volunteer and reopen the request", 1,
		func(args []string) matchflow.Command {
			return matchflow.AdminDeclineRequest{RequestID: args[0]}
		})
}

// ManualMatchCmd creates the manualMatch command
func ManualMatchCmd(app *AppContext) *cobra.Command {
	return transitionCmd(app, "manualMatch <requester_id> <volunteer_id>", "Match a requester and volunteer directly", 2,
		func(args []string) matchflow.Command {
			return matchflow.ManualMatch{RequesterID: args[0], VolunteerID: args[1]}
		})
}

// CancelMatchCmd creates the cancelMatch command
func CancelMatchCmd(app *AppContext) *cobra.Command {
	return transitionCmd(app, "cancelMatch <match_id>", "Cancel an active match and reopen the request", 1,
		func(args []string) matchflow.Command {
			return matchflow.CancelMatch{MatchID: args[0]}
		})
}

// DeleteVolunteerCmd creates the deleteVolunteer command
func DeleteVolunteerCmd(app *AppContext) *cobra.Command {
	return transitionCmd(app, "deleteVolunteer <volunteer_id>", "Delete a volunteer, ending their matches", 1,
		func(args []string) matchflow.Command {
			return matchflow.DeleteVolunteer{VolunteerID: args[0]}
		})
}

// DeleteRequesterCmd creates the deleteRequester command
func DeleteRequesterCmd(app *AppContext) *cobra.Command {
	return transitionCmd(app, "deleteRequester <requester_id>", "Delete a requester with their requests and match", 1,
		func(args []string) matchflow.Command {
			return matchflow.DeleteRequester{RequesterID: args[0]}
		})
}
