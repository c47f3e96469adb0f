package config

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestBuild_MinimalConfig(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	sb, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if sb.BaseURL() != "https://support.example.com" {
		t.Errorf("BaseURL() = %q, want https://support.example.com", sb.BaseURL())
	}
	if sb.Port() != 8080 {
		t.Errorf("Port() = %d, want 8080", sb.Port())
	}
	if sb.PollingInterval() != 60*time.Second {
		t.Errorf("PollingInterval() = %v, want 60s", sb.PollingInterval())
	}
	if sb.AgentID() != 0 {
		t.Errorf("AgentID() = %d, want 0", sb.AgentID())
	}
}

func TestBuild_AppliesFreeScoutSection(t *testing.T) {
	cfg := &Config{
		Port:           9090,
		PollInterval:   Duration(15 * time.Second),
		MaxConcurrency: 3,
		FreeScout: FreeScoutConfig{
			BaseURL:   "https://support.example.com",
			APIKey:    "secret",
			AgentID:   7,
			Mailboxes: []int{9, 5},
			Timeout:   Duration(5 * time.Second),
		},
	}

	sb, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if sb.Port() != 9090 {
		t.Errorf("Port() = %d, want 9090", sb.Port())
	}
	if sb.PollingInterval() != 15*time.Second {
		t.Errorf("PollingInterval() = %v, want 15s", sb.PollingInterval())
	}
	if sb.AgentID() != 7 {
		t.Errorf("AgentID() = %d, want 7", sb.AgentID())
	}
	if got := sb.MailboxFilter(); !slices.Equal(got, []int{9, 5}) {
		t.Errorf("MailboxFilter() = %v, want [9 5] in configured order", got)
	}
}

func TestBuildOptions_Notifiers(t *testing.T) {
	base := func() *Config {
		cfg, err := Parse([]byte(minimalYAML))
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		return cfg
	}

	plain := len(BuildOptions(base(), nil))

	withSlack := base()
	withSlack.Notify.Slack = &SlackConfig{WebhookURL: "https://hooks.slack.com/x"}
	if got := len(BuildOptions(withSlack, nil)); got != plain+1 {
		t.Errorf("options with slack = %d, want %d", got, plain+1)
	}

	disabledSlack := base()
	disabledSlack.Notify.Slack = &SlackConfig{}
	if got := len(BuildOptions(disabledSlack, nil)); got != plain {
		t.Errorf("options with empty webhook = %d, want %d", got, plain)
	}

	withJournal := base()
	withJournal.Notify.Journal = &JournalConfig{Path: t.TempDir() + "/arrivals.db"}
	if got := len(BuildOptions(withJournal, nil)); got != plain+1 {
		t.Errorf("options with journal = %d, want %d", got, plain+1)
	}

	if got := len(BuildOptions(base(), NewLogger(LogConfig{}, &bytes.Buffer{}))); got != plain+1 {
		t.Errorf("options with logger = %d, want %d", got, plain+1)
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: "info", Format: "json"}, &buf)
		logger.Debug("hidden")
		logger.Info("shown", "cycle_id", "abc")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 1 {
			t.Fatalf("got %d log lines, want 1: %q", len(lines), buf.String())
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
			t.Fatalf("log line is not JSON: %v", err)
		}
		if entry["msg"] != "shown" || entry["cycle_id"] != "abc" {
			t.Errorf("entry = %v, want msg=shown cycle_id=abc", entry)
		}
	})

	t.Run("text debug", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: "debug", Format: "text"}, &buf)
		logger.Debug("visible")

		if !strings.Contains(buf.String(), "msg=visible") {
			t.Errorf("output = %q, want text-formatted debug line", buf.String())
		}
	})

	t.Run("warn filters info", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: "WARN"}, &buf)
		logger.Info("hidden")

		if buf.Len() != 0 {
			t.Errorf("output = %q, want nothing below warn", buf.String())
		}
	})
}
