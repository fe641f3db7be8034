package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/support-match/cmd/cli/commands"
	"github.com/jakechorley/support-match/internal/config"
	"github.com/jakechorley/support-match/pkg/metrics"
	"github.com/jakechorley/support-match/pkg/postgres"
	"github.com/jakechorley/support-match/pkg/utils/logging"
)

var (
	env        string
	configPath string
	logsDir    string
	verbose    bool

	app      = &commands.AppContext{}
	database *postgres.DB
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "Support Match CLI - match people seeking support with volunteers",
		Long: `A CLI for registering requesters and volunteers, ranking and approving matches,
and running the HTTP API the web client talks to.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if database != nil {
				database.Close()
			}
			if app.Logger != nil {
				_ = app.Logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to support_match_config.yaml")
	rootCmd.PersistentFlags().StringVar(&logsDir, "logs-dir", logging.DefaultLogsDir, "Directory for log files")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug logs to the console")
	_ = rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(
		commands.MigrateCmd(app),
		commands.RegisterRequesterCmd(app),
		commands.RegisterVolunteerCmd(app),
		commands.ReviewVolunteerCmd(app),
		commands.RankVolunteersCmd(app),
		commands.ListRequestsCmd(app),
		commands.ListMatchesCmd(app),
		commands.ListVolunteersCmd(app),
		commands.ListPoolCmd(app),
		commands.CreateRequestCmd(app),
		commands.SelectVolunteerCmd(app),
		commands.AcceptRequestCmd(app),
		commands.DeclineRequestCmd(app),
		commands.ApproveRequestCmd(app),
		commands.AdminDeclineCmd(app),
		commands.ManualMatchCmd(app),
		commands.CancelMatchCmd(app),
		commands.DeleteVolunteerCmd(app),
		commands.DeleteRequesterCmd(app),
		commands.SuggestCmd(app),
		commands.PlanSessionsCmd(app),
		commands.PublishMatchesCmd(app),
		commands.ServeCmd(app),
		commands.InteractiveCmd(app),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, metrics and database
func initApp() error {
	var err error
	app.Ctx = context.Background()
	app.Env = env

	app.Logger, err = logging.InitLogger(env, logsDir, verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	app.Logger.Debug("Loading configuration", zap.String("path", configPath))
	if configPath != "" {
		app.Cfg, err = config.LoadFromPath(configPath)
		app.ConfigDir = filepath.Dir(configPath)
	} else {
		app.Cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully")

	app.Metrics = metrics.New()

	app.Logger.Info("Connecting to database")
	database, err = postgres.NewDB(app.Ctx, app.Cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.Database = database
	app.Migrator = database
	app.Logger.Debug("Database connected")

	return nil
}
