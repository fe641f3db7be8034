package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

const configFileName = "support_match_config.yaml"

// Defaults applied when the corresponding field is omitted
const (
	DefaultRecommendedThreshold = 50
	DefaultSessionCount         = 8
	DefaultServerAddr           = ":8080"
	DefaultAIMaxVolunteers      = 10
	DefaultAIMaxRetries         = 2
	DefaultAIBaseDelay          = time.Second
	DefaultAITemperature        = 0.7
	DefaultAIMaxTokens          = 1024
	DefaultAITopP               = 1.0
	DefaultAIAPIKeyEnv          = "SUPPORT_MATCH_AI_KEY"
)

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// AIConfig configures the chat-completion endpoint used for volunteer suggestions.
// The API key itself is read from the environment variable named by APIKeyEnv.
type AIConfig struct {
	Endpoint      string        `yaml:"endpoint,omitempty" validate:"omitempty,url"`
	Model         string        `yaml:"model,omitempty"`
	APIKeyEnv     string        `yaml:"apiKeyEnv,omitempty"`
	Temperature   *float64      `yaml:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxTokens     int           `yaml:"maxTokens,omitempty" validate:"gte=0"`
	TopP          *float64      `yaml:"topP,omitempty" validate:"omitempty,gt=0,lte=1"`
	MaxVolunteers int           `yaml:"maxVolunteers,omitempty" validate:"gte=0"`
	MaxRetries    *int          `yaml:"maxRetries,omitempty" validate:"omitempty,gte=0,lte=10"`
	BaseDelay     time.Duration `yaml:"baseDelay,omitempty" validate:"gte=0"`
}

// Enabled reports whether suggestions can be requested
func (a AIConfig) Enabled() bool {
	return a.Endpoint != "" && a.Model != ""
}

// APIKey reads the key from the configured environment variable
func (a AIConfig) APIKey() string {
	return os.Getenv(a.APIKeyEnv)
}

// Config represents the application configuration
type Config struct {
	DatabaseURL          string       `yaml:"databaseURL" validate:"required"`
	GmailUserID          string       `yaml:"gmailUserID,omitempty"`
	GmailSender          string       `yaml:"gmailSender,omitempty"`
	MatchReportSheetID   string       `yaml:"matchReportSheetID,omitempty"`
	MatchReportTab       string       `yaml:"matchReportTab,omitempty" validate:"required_with=MatchReportSheetID"`
	RecommendedThreshold *int         `yaml:"recommendedThreshold,omitempty" validate:"omitempty,gte=0,lte=100"`
	SessionRRule         string       `yaml:"sessionRRule,omitempty"`
	SessionCount         int          `yaml:"sessionCount,omitempty" validate:"gte=0"`
	Server               ServerConfig `yaml:"server,omitempty"`
	AI                   AIConfig     `yaml:"ai,omitempty"`
}

// Threshold returns the score at or above which a volunteer is flagged as recommended
func (c *Config) Threshold() int {
	if c.RecommendedThreshold == nil {
		return DefaultRecommendedThreshold
	}
	return *c.RecommendedThreshold
}

// NotificationsEnabled reports whether match emails should be sent
func (c *Config) NotificationsEnabled() bool {
	return c.GmailUserID != ""
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from support_match_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	configPath, err := findConfigFile()
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Fill in omitted fields before validating
	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate validates the configuration struct and checks the session rrule syntax
func Validate(cfg *Config) error {
	// Run struct validation
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Validate rrule syntax when sessions follow a fixed schedule
	if cfg.SessionRRule != "" {
		if _, err := rrule.StrToRRule(cfg.SessionRRule); err != nil {
			return fmt.Errorf("invalid rrule in sessionRRule: %w", err)
		}
	}

	return nil
}

// applyDefaults fills every omitted field with its Default* value
func applyDefaults(cfg *Config) {
	if cfg.SessionCount == 0 {
		cfg.SessionCount = DefaultSessionCount
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}

	// AI settings only matter once an endpoint and model are configured
	ai := &cfg.AI
	if ai.APIKeyEnv == "" {
		ai.APIKeyEnv = DefaultAIAPIKeyEnv
	}
	if ai.MaxVolunteers == 0 {
		ai.MaxVolunteers = DefaultAIMaxVolunteers
	}
	if ai.MaxRetries == nil {
		retries := DefaultAIMaxRetries
		ai.MaxRetries = &retries
	}
	if ai.BaseDelay == 0 {
		ai.BaseDelay = DefaultAIBaseDelay
	}
	if ai.Temperature == nil {
		temperature := DefaultAITemperature
		ai.Temperature = &temperature
	}
	if ai.MaxTokens == 0 {
		ai.MaxTokens = DefaultAIMaxTokens
	}
	if ai.TopP == nil {
		topP := DefaultAITopP
		ai.TopP = &topP
	}
}

// findConfigFile searches for support_match_config.yaml in current directory and home directory
func findConfigFile() (string, error) {
	// Check current directory
	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file not found in current directory or home directory")
}
