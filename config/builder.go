package config

import (
	"io"
	"log/slog"
	"strings"

	"github.com/jpalmerr/scoutboard"
)

// BuildOptions converts parsed configuration into SDK options.
//
// The base URL and API key are passed to [scoutboard.New] directly; the
// logger, when non-nil, is attached with [scoutboard.WithLogger].
func BuildOptions(cfg *Config, logger *slog.Logger) []scoutboard.Option {
	opts := []scoutboard.Option{
		scoutboard.WithPort(cfg.Port),
		scoutboard.WithPollingInterval(cfg.PollInterval.Duration()),
		scoutboard.WithMaxConcurrency(cfg.MaxConcurrency),
		scoutboard.WithRequestTimeout(cfg.FreeScout.Timeout.Duration()),
	}

	if cfg.Title != "" {
		opts = append(opts, scoutboard.WithTitle(cfg.Title))
	}
	if cfg.FreeScout.AgentID != 0 {
		opts = append(opts, scoutboard.WithAgentID(cfg.FreeScout.AgentID))
	}
	if len(cfg.FreeScout.Mailboxes) > 0 {
		opts = append(opts, scoutboard.WithMailboxes(cfg.FreeScout.Mailboxes...))
	}
	if cfg.SlackEnabled() {
		s := cfg.Notify.Slack
		opts = append(opts, scoutboard.WithSlackWebhook(s.WebhookURL, s.Timeout.Duration(), s.RetryAttempts))
	}
	if cfg.JournalEnabled() {
		opts = append(opts, scoutboard.WithJournal(cfg.Notify.Journal.Path))
	}
	if logger != nil {
		opts = append(opts, scoutboard.WithLogger(logger))
	}

	return opts
}

// Build creates a [scoutboard.ScoutBoard] from parsed configuration.
func Build(cfg *Config, logger *slog.Logger) (*scoutboard.ScoutBoard, error) {
	return scoutboard.New(cfg.FreeScout.BaseURL, cfg.FreeScout.APIKey, BuildOptions(cfg, logger)...)
}

// NewLogger builds the slog logger described by the log section. Level and
// format are validated by [Parse]; unknown values fall back to info and text.
func NewLogger(lc LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(lc.Level)}

	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
