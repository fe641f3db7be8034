package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/support-match/pkg/api"
	"github.com/jakechorley/support-match/pkg/core/services"
	"github.com/jakechorley/support-match/pkg/events"
)

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with live change subscriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = app.Cfg.Server.Addr
			}

			if app.Hub == nil {
				app.Hub = events.NewHub(app.Logger, app.Metrics, events.DefaultBuffer)
			}

			var notifier services.Notifier
			emails, err := app.Notifier()
			if err != nil {
				return err
			}
			if emails != nil {
				async := services.NewAsyncNotifier(emails, app.Logger, services.DefaultNotifyQueue)
				async.Start()
				defer async.Close()
				notifier = async
			}

			ai := app.AIClient()
			app.Logger.Info("Starting API",
				zap.String("addr", addr),
				zap.Bool("notifications", notifier != nil),
				zap.Bool("ai_suggestions", ai != nil))

			server := api.New(app.Database, app.Hub, notifier, ai, app.Metrics, app.Logger, api.Options{
				RecommendedThreshold: app.Cfg.Threshold(),
				MaxSuggestVolunteers: app.Cfg.AI.MaxVolunteers,
				SessionRRule:         app.Cfg.SessionRRule,
				SessionCount:         app.Cfg.SessionCount,
			})

			ctx, stop := signal.NotifyContext(app.Ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return server.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (defaults to server.addr)")

	return cmd
}
