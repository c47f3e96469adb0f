// Package config provides YAML configuration parsing for ScoutBoard.
//
// This package enables running ScoutBoard as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Support
//	port: 8080
//	poll_interval: 60s
//
//	freescout:
//	  base_url: https://support.example.com/
//	  api_key: ${FREESCOUT_API_KEY}
//	  agent_id: 3
//	  mailboxes: [5, 9]
//
//	notify:
//	  slack:
//	    webhook_url: ${SLACK_WEBHOOK_URL:-}
//	  journal:
//	    path: ./arrivals.db
//
//	log:
//	  level: info
//	  format: json
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [Parse].
const (
	DefaultPort           = 8080
	DefaultPollInterval   = 60 * time.Second
	DefaultTimeout        = 10 * time.Second
	DefaultMaxConcurrency = 10
)

// minPollInterval mirrors the SDK minimum so validate reports it with the
// field path.
const minPollInterval = 10 * time.Second

// Config is the root configuration structure for ScoutBoard.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "ScoutBoard" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// PollInterval is the time between poll cycles. Accepts duration
	// strings like "30s" or "2m". Defaults to 60s; must be at least 10s.
	PollInterval Duration `yaml:"poll_interval"`

	// MaxConcurrency bounds per-mailbox request fan-out. Defaults to 10.
	MaxConcurrency int `yaml:"max_concurrency"`

	FreeScout FreeScoutConfig `yaml:"freescout"`
	Notify    NotifyConfig    `yaml:"notify"`
	Log       LogConfig       `yaml:"log"`
}

// FreeScoutConfig identifies the FreeScout instance and what to poll.
type FreeScoutConfig struct {
	// BaseURL is the instance root. Supports ${VAR} and ${VAR:-default}.
	BaseURL string `yaml:"base_url"`

	// APIKey is sent with every request. Supports ${VAR} and ${VAR:-default}.
	APIKey string `yaml:"api_key"`

	// AgentID enables the my_tickets metric. 0 disables it.
	AgentID int `yaml:"agent_id"`

	// Mailboxes restricts polling; empty means every mailbox.
	Mailboxes []int `yaml:"mailboxes"`

	// Timeout bounds each request. Defaults to 10s.
	Timeout Duration `yaml:"timeout"`
}

// NotifyConfig lists the optional new-conversation notifiers.
type NotifyConfig struct {
	Slack   *SlackConfig   `yaml:"slack"`
	Journal *JournalConfig `yaml:"journal"`
}

// SlackConfig configures the Slack incoming-webhook notifier.
//
// An empty webhook URL after expansion disables the notifier, which lets
// `${SLACK_WEBHOOK_URL:-}` switch it on from the environment.
type SlackConfig struct {
	WebhookURL    string   `yaml:"webhook_url"`
	Timeout       Duration `yaml:"timeout"`
	RetryAttempts int      `yaml:"retry_attempts"`
}

// JournalConfig configures the SQLite arrival journal.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// LogConfig selects the CLI log handler.
type LogConfig struct {
	// Level is debug, info, warn or error. Defaults to info.
	Level string `yaml:"level"`

	// Format is json or text. Defaults to text.
	Format string `yaml:"format"`
}

// SlackEnabled reports whether a Slack webhook is configured.
func (c *Config) SlackEnabled() bool {
	return c.Notify.Slack != nil && c.Notify.Slack.WebhookURL != ""
}

// JournalEnabled reports whether a journal path is configured.
func (c *Config) JournalEnabled() bool {
	return c.Notify.Journal != nil && c.Notify.Journal.Path != ""
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// FieldError is a validation failure tied to a configuration path such as
// "freescout.base_url".
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldErr(field, format string, args ...any) error {
	return &FieldError{Field: field, Err: fmt.Errorf(format, args...)}
}

// Load reads and parses a YAML configuration file.
//
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in the base URL, API key and Slack
// webhook URL. Defaults are applied for port, poll interval, request
// timeout, max concurrency and logging.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.PollInterval == 0 {
		c.PollInterval = Duration(DefaultPollInterval)
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.FreeScout.Timeout == 0 {
		c.FreeScout.Timeout = Duration(DefaultTimeout)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fieldErr("port", "must be between 1 and 65535, got %d", c.Port)
	}
	if c.PollInterval.Duration() < minPollInterval {
		return fieldErr("poll_interval", "must be at least %s, got %s", minPollInterval, c.PollInterval.Duration())
	}
	if c.MaxConcurrency < 0 {
		return fieldErr("max_concurrency", "must be positive, got %d", c.MaxConcurrency)
	}

	if err := c.FreeScout.expandAndValidate(); err != nil {
		return err
	}
	if err := c.Notify.expandAndValidate(); err != nil {
		return err
	}
	return c.Log.validate()
}

func (f *FreeScoutConfig) expandAndValidate() error {
	if f.BaseURL == "" {
		return fieldErr("freescout.base_url", "is required")
	}
	expanded, err := expandEnvVars(f.BaseURL)
	if err != nil {
		return &FieldError{Field: "freescout.base_url", Err: err}
	}
	f.BaseURL = strings.TrimRight(strings.TrimSpace(expanded), "/")

	parsedURL, err := url.Parse(f.BaseURL)
	if err != nil {
		return fieldErr("freescout.base_url", "invalid url: %w", err)
	}
	if parsedURL.Scheme == "" {
		return fieldErr("freescout.base_url", "must have a scheme (http:// or https://)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fieldErr("freescout.base_url", "scheme must be http or https, got %q", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fieldErr("freescout.base_url", "must include a host")
	}

	if f.APIKey == "" {
		return fieldErr("freescout.api_key", "is required")
	}
	f.APIKey, err = expandEnvVars(f.APIKey)
	if err != nil {
		return &FieldError{Field: "freescout.api_key", Err: err}
	}
	if f.APIKey == "" {
		return fieldErr("freescout.api_key", "is empty after environment expansion")
	}

	if f.AgentID < 0 {
		return fieldErr("freescout.agent_id", "cannot be negative, got %d", f.AgentID)
	}

	seen := make(map[int]struct{}, len(f.Mailboxes))
	for i, id := range f.Mailboxes {
		field := fmt.Sprintf("freescout.mailboxes[%d]", i)
		if id <= 0 {
			return fieldErr(field, "must be positive, got %d", id)
		}
		if _, dup := seen[id]; dup {
			return fieldErr(field, "duplicate mailbox id %d", id)
		}
		seen[id] = struct{}{}
	}

	if f.Timeout.Duration() < time.Second {
		return fieldErr("freescout.timeout", "must be at least 1s, got %s", f.Timeout.Duration())
	}
	return nil
}

func (n *NotifyConfig) expandAndValidate() error {
	if s := n.Slack; s != nil {
		expanded, err := expandEnvVars(s.WebhookURL)
		if err != nil {
			return &FieldError{Field: "notify.slack.webhook_url", Err: err}
		}
		s.WebhookURL = strings.TrimSpace(expanded)

		if s.WebhookURL != "" {
			u, err := url.Parse(s.WebhookURL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fieldErr("notify.slack.webhook_url", "must be an http or https url")
			}
		}
		if s.Timeout.Duration() < 0 {
			return fieldErr("notify.slack.timeout", "cannot be negative, got %s", s.Timeout.Duration())
		}
		if s.RetryAttempts < 0 {
			return fieldErr("notify.slack.retry_attempts", "cannot be negative, got %d", s.RetryAttempts)
		}
	}

	if j := n.Journal; j != nil && strings.TrimSpace(j.Path) == "" {
		return fieldErr("notify.journal.path", "is required when journal is configured")
	}
	return nil
}

func (l *LogConfig) validate() error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fieldErr("log.level", "must be debug, info, warn or error, got %q", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "json", "text":
	default:
		return fieldErr("log.format", "must be json or text, got %q", l.Format)
	}
	return nil
}
