package commands

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/jakechorley/support-match/internal/config"
	"github.com/jakechorley/support-match/pkg/clients/aiclient"
	"github.com/jakechorley/support-match/pkg/clients/gmailclient"
	"github.com/jakechorley/support-match/pkg/clients/sheetsclient"
	"github.com/jakechorley/support-match/pkg/core/services"
	"github.com/jakechorley/support-match/pkg/core/suggest"
	"github.com/jakechorley/support-match/pkg/db"
	"github.com/jakechorley/support-match/pkg/events"
	"github.com/jakechorley/support-match/pkg/metrics"
	"github.com/jakechorley/support-match/pkg/utils"
)

// Migrator applies pending schema migrations
type Migrator interface {
	RunMigrations(ctx context.Context) ([]string, error)
}

// AppContext holds the application dependencies shared across all commands.
// Google clients are created on first use so commands that never touch Gmail
// or Sheets do not trigger the OAuth flow.
type AppContext struct {
	Cfg       *config.Config
	Env       string
	ConfigDir string
	Database  db.Database
	Migrator  Migrator
	Hub       *events.Hub
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	Ctx       context.Context

	googleOnce   sync.Once
	googleClient *http.Client
	googleErr    error
}

// Publisher returns the event hub, or nil when no hub is running
func (a *AppContext) Publisher() services.Publisher {
	if a.Hub == nil {
		return nil
	}
	return a.Hub
}

// GoogleHTTPClient returns an OAuth-authorized client for the Gmail and Sheets APIs
func (a *AppContext) GoogleHTTPClient() (*http.Client, error) {
	a.googleOnce.Do(func() {
		a.Logger.Info("Loading OAuth client configuration")
		oauthCfg, err := config.LoadOAuthClientWithEnv(a.Env, a.ConfigDir)
		if err != nil {
			a.googleErr = fmt.Errorf("failed to load OAuth client config: %w", err)
			return
		}
		a.googleClient, a.googleErr = utils.AuthorizedHTTPClient(a.Ctx, oauthCfg, a.Env, a.Logger)
	})
	return a.googleClient, a.googleErr
}

// SheetsClient creates a Sheets client on the shared OAuth token
func (a *AppContext) SheetsClient() (*sheetsclient.Client, error) {
	httpClient, err := a.GoogleHTTPClient()
	if err != nil {
		return nil, err
	}
	return sheetsclient.NewClient(a.Ctx, httpClient)
}

// Notifier returns the email notifier, or nil when notifications are disabled
func (a *AppContext) Notifier() (services.Notifier, error) {
	if !a.Cfg.NotificationsEnabled() {
		a.Logger.Debug("Email notifications disabled")
		return nil, nil
	}

	httpClient, err := a.GoogleHTTPClient()
	if err != nil {
		return nil, err
	}
	gmail, err := gmailclient.NewClient(a.Ctx, httpClient, a.Cfg.GmailUserID, a.Cfg.GmailSender)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail client: %w", err)
	}
	return services.NewEmailNotifier(a.Database, gmail, a.Metrics, a.Logger), nil
}

// AIClient returns the chat completion client, or nil when no endpoint is configured
func (a *AppContext) AIClient() services.Completer {
	ai := a.Cfg.AI
	if !ai.Enabled() {
		return nil
	}

	opts := aiclient.Options{
		Endpoint:     ai.Endpoint,
		APIKey:       ai.APIKey(),
		Model:        ai.Model,
		SystemPrompt: suggest.SystemPrompt,
		MaxTokens:    ai.MaxTokens,
		BaseDelay:    ai.BaseDelay,
	}
	if ai.Temperature != nil {
		opts.Temperature = *ai.Temperature
	}
	if ai.TopP != nil {
		opts.TopP = *ai.TopP
	}
	if ai.MaxRetries != nil {
		opts.MaxRetries = *ai.MaxRetries
	}
	return aiclient.New(opts, a.Logger, a.Metrics)
}
