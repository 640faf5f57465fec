package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/callgrade/callgrade/internal/grade"
	"github.com/callgrade/callgrade/internal/source"
)

// Defaults applied when fields are absent from the config file.
const (
	DefaultSourceType = "file"
	DefaultSourcePath = "data/yesterday_calls.csv"
	DefaultGoal       = "A"
)

// Config is the top-level configuration. Fields map 1:1 to
// config.example.yaml.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Report  ReportConfig  `yaml:"report"`
	Notify  NotifyConfig  `yaml:"notify"`
	Slack   SlackConfig   `yaml:"slack"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// SourceConfig describes where the call-volume CSV comes from.
type SourceConfig struct {
	// Type is one of: file | http | gsheet.
	Type string `yaml:"type"`

	// Path is the local CSV path. Used when Type == "file".
	Path string `yaml:"path"`

	// Endpoint is the full URL of the CSV document. Used when Type == "http".
	Endpoint string `yaml:"endpoint"`

	// SpreadsheetID and SheetName select one sheet of a published Google
	// spreadsheet. Used when Type == "gsheet".
	SpreadsheetID string `yaml:"spreadsheet_id"`
	SheetName     string `yaml:"sheet_name"`

	// Auth configures how the http source authenticates to its endpoint.
	Auth source.AuthConfig `yaml:"auth"`
}

// ReportConfig holds grading and rendering policy.
type ReportConfig struct {
	// Goal is the target grade symbol: S | A | B | C | D.
	Goal string `yaml:"goal"`

	// Strict rejects data where answered calls exceed incoming calls
	// instead of grading it as-is.
	Strict bool `yaml:"strict"`
}

// NotifyConfig holds webhook delivery targets for finished reports.
type NotifyConfig struct {
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv names the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// SlackConfig configures the Socket Mode bot.
type SlackConfig struct {
	// BotTokenEnv names the environment variable holding the xoxb- token.
	BotTokenEnv string `yaml:"bot_token_env"`

	// AppTokenEnv names the environment variable holding the xapp- token
	// used to open the Socket Mode connection.
	AppTokenEnv string `yaml:"app_token_env"`

	// Channel is the channel ID reports are posted to.
	Channel string `yaml:"channel"`
}

// BotToken returns the bot token resolved from the environment.
func (s SlackConfig) BotToken() string {
	if s.BotTokenEnv == "" {
		return ""
	}
	return os.Getenv(s.BotTokenEnv)
}

// AppToken returns the app-level token resolved from the environment.
func (s SlackConfig) AppToken() string {
	if s.AppTokenEnv == "" {
		return ""
	}
	return os.Getenv(s.AppTokenEnv)
}

// MetricsConfig controls the Prometheus textfile output.
type MetricsConfig struct {
	// Textfile is the .prom path the run outcome is written to.
	// Empty disables metrics output.
	Textfile string `yaml:"textfile"`
}

// Load reads and parses the YAML config file at path. A .env file in the
// working directory is loaded first so env-referenced secrets resolve in
// local runs. Missing fields are filled with defaults before validation.
func Load(path string) (*Config, error) {
	godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Goal returns the validated goal grade. Call only after Load.
func (c *Config) Goal() grade.Grade {
	g, _ := grade.Parse(c.Report.Goal)
	return g
}

// BuildSource constructs the configured data source.
func (c *Config) BuildSource() (source.Source, error) {
	switch c.Source.Type {
	case "file":
		return source.FileSource{Path: c.Source.Path}, nil
	case "http":
		return &source.HTTPSource{Endpoint: c.Source.Endpoint, Auth: c.Source.Auth}, nil
	case "gsheet":
		return &source.HTTPSource{
			Endpoint: source.SheetURL(c.Source.SpreadsheetID, c.Source.SheetName),
			Auth:     c.Source.Auth,
		}, nil
	default:
		return nil, fmt.Errorf("config: unknown source type %q", c.Source.Type)
	}
}

// Default returns the built-in configuration, for runs that override
// everything from the command line and carry no config file.
func Default() *Config {
	godotenv.Load()
	return defaults()
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Source: SourceConfig{
			Type: DefaultSourceType,
			Path: DefaultSourcePath,
		},
		Report: ReportConfig{
			Goal: DefaultGoal,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	switch cfg.Source.Type {
	case "file":
		if cfg.Source.Path == "" {
			return fmt.Errorf("source.path is required for type file")
		}
	case "http":
		if cfg.Source.Endpoint == "" {
			return fmt.Errorf("source.endpoint is required for type http")
		}
	case "gsheet":
		if cfg.Source.SpreadsheetID == "" || cfg.Source.SheetName == "" {
			return fmt.Errorf("source.spreadsheet_id and source.sheet_name are required for type gsheet")
		}
	default:
		return fmt.Errorf("source.type %q unknown: want file|http|gsheet", cfg.Source.Type)
	}

	switch cfg.Source.Auth.Mode {
	case "apikey", "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("source.auth.mode %q unknown: want apikey|bearer|basic|none", cfg.Source.Auth.Mode)
	}

	if _, err := grade.Parse(cfg.Report.Goal); err != nil {
		return fmt.Errorf("report.goal: %w", err)
	}

	for i, wh := range cfg.Notify.Webhooks {
		switch wh.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("notify.webhooks[%d]: unknown type %q", i, wh.Type)
		}
		if wh.URLEnv == "" {
			return fmt.Errorf("notify.webhooks[%d]: url_env is required", i)
		}
	}

	return nil
}
