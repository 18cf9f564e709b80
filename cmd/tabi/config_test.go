package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harunnryd/tabi/internal/config"

	"github.com/spf13/cobra"
)

func TestConfigInitCmd(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := configInitCmd.RunE(cmd, nil); err != nil {
		t.Fatalf("Config init failed: %v", err)
	}

	configPath := filepath.Join(tmpDir, ".tabi", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Config file not created at %s: %v", configPath, err)
	}
	if !strings.Contains(string(data), "retention:") {
		t.Errorf("config template missing retention section")
	}

	out.Reset()
	if err := configInitCmd.RunE(cmd, nil); err != nil {
		t.Errorf("Config init should succeed when config exists: %v", err)
	}
	if !strings.Contains(out.String(), "already exists") {
		t.Errorf("expected already-exists notice, got %q", out.String())
	}
}

func TestConfigViewMasksSecrets(t *testing.T) {
	previous := cfg
	defer func() { cfg = previous }()
	cfg = &config.Config{
		Providers: config.ProvidersConfig{SerpAPI: config.SerpAPIConfig{APIKey: "serp-key-123456"}},
	}

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := configViewCmd.RunE(cmd, nil); err != nil {
		t.Fatalf("Config view failed: %v", err)
	}
	if strings.Contains(out.String(), "serp-key-123456") {
		t.Fatal("config view leaked the serpapi key")
	}
}

func TestRedactConfigSecrets(t *testing.T) {
	original := &config.Config{
		Models: config.ModelsConfig{
			Registry: []config.ModelRegistry{
				{Name: "m1", APIKey: "sk-secret-123456"},
				{Name: "m2", APIKey: "abcd"},
			},
		},
		Providers: config.ProvidersConfig{
			Amadeus: config.AmadeusConfig{ClientSecret: "amadeus-secret"},
			SerpAPI: config.SerpAPIConfig{APIKey: "serpapi-secret"},
			Cache:   config.CacheConfig{RedisPassword: "redis-secret"},
		},
		Adapters: config.AdaptersConfig{
			Slack: config.SlackConfig{
				SigningSecret: "slack-signing-secret",
				BotToken:      "slack-bot-token",
			},
			Telegram: config.TelegramConfig{
				BotToken: "telegram-secret-token",
			},
		},
	}

	redacted := redactConfigSecrets(original)

	if redacted == nil {
		t.Fatal("redacted config should not be nil")
	}
	if strings.Contains(redacted.Models.Registry[0].APIKey, "secret") {
		t.Fatal("masked model API key should not leak original value")
	}
	if redacted.Models.Registry[1].APIKey != "****" {
		t.Fatalf("short key: got %q", redacted.Models.Registry[1].APIKey)
	}
	secrets := map[string]string{
		"amadeus client secret": redacted.Providers.Amadeus.ClientSecret,
		"serpapi key":           redacted.Providers.SerpAPI.APIKey,
		"redis password":        redacted.Providers.Cache.RedisPassword,
		"slack signing secret":  redacted.Adapters.Slack.SigningSecret,
		"slack bot token":       redacted.Adapters.Slack.BotToken,
		"telegram bot token":    redacted.Adapters.Telegram.BotToken,
	}
	for name, value := range secrets {
		if strings.Contains(value, "secret") || strings.Contains(value, "token") {
			t.Errorf("%s should be masked, got %q", name, value)
		}
	}

	// Ensure original struct is not mutated.
	if original.Models.Registry[0].APIKey != "sk-secret-123456" {
		t.Fatal("original config must not be modified")
	}
}

func TestMaskSecret(t *testing.T) {
	if got := maskSecret(""); got != "" {
		t.Fatalf("empty secret: got %q", got)
	}
	if got := maskSecret("abc"); got != "****" {
		t.Fatalf("short secret: got %q", got)
	}

	got := maskSecret("abcdef")
	if len(got) != len("abcdef") {
		t.Fatalf("masked secret length mismatch: got %d", len(got))
	}
	if got[:2] != "ab" || got[len(got)-2:] != "ef" {
		t.Fatalf("masked secret should preserve prefix/suffix: got %q", got)
	}
}
