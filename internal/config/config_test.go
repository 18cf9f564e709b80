package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearVendorEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "SERPAPI_API_KEY",
		"AMADEUS_CLIENT_ID", "AMADEUS_CLIENT_SECRET", "SLACK_BOT_TOKEN",
		"SLACK_SIGNING_SECRET", "TELEGRAM_BOT_TOKEN",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearVendorEnv(t)

	// We pass nil for cmd to skip flags
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultServerLogFormat, cfg.Server.LogFormat)
	assert.Equal(t, DefaultModelDefault, cfg.Models.Default)
	assert.Equal(t, DefaultModelFallback, cfg.Models.Fallback)
	require.Len(t, cfg.Models.Registry, 3)
	assert.Equal(t, "gemini", cfg.Models.Registry[0].Provider)

	assert.Equal(t, DefaultChatModelTimeout, cfg.Chat.ModelTimeout)
	assert.Equal(t, DefaultChatToolTimeout, cfg.Chat.ToolTimeout)
	assert.Equal(t, DefaultChatHistoryLimit, cfg.Chat.HistoryLimit)

	assert.Equal(t, DefaultAmadeusBaseURL, cfg.Providers.Amadeus.BaseURL)
	assert.Equal(t, DefaultSerpAPIBaseURL, cfg.Providers.SerpAPI.BaseURL)
	assert.Equal(t, DefaultWeatherBaseURL, cfg.Providers.Weather.BaseURL)
	assert.Equal(t, DefaultWeatherTimeout, cfg.Providers.Weather.Timeout)
	assert.Equal(t, DefaultCacheBackend, cfg.Providers.Cache.Backend)
	assert.InDelta(t, DefaultSerpAPIRateLimit, cfg.Providers.SerpAPI.RateLimit, 0.001)

	assert.Equal(t, filepath.Join(home, ".tabi", "conversations"), cfg.Store.Path)
	assert.Equal(t, DefaultStoreInboxSize, cfg.Store.InboxSize)
	assert.Equal(t, DefaultRetentionSchedule, cfg.Retention.Schedule)
	assert.Equal(t, DefaultTelegramUpdateTimeout, cfg.Adapters.Telegram.UpdateTimeout)

	assert.NoError(t, cfg.Validate())
}

func TestLoadWithConfigFlag(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	content := []byte(`
server:
  port: 9090
models:
  default: custom-model
chat:
  tool_timeout: 5s
providers:
  cache:
    backend: redis
`)
	require.NoError(t, os.WriteFile(configPath, content, 0644))

	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "config file path")
	require.NoError(t, cmd.Flags().Set("config", configPath))

	cfg, err := Load(cmd)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "custom-model", cfg.Models.Default)
	assert.Equal(t, "5s", cfg.Chat.ToolTimeout)
	assert.Equal(t, "redis", cfg.Providers.Cache.Backend)
}

func TestLoadWithMissingConfigFlagReturnsError(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "config file path")
	require.NoError(t, cmd.Flags().Set("config", filepath.Join(t.TempDir(), "missing.yaml")))

	_, err := Load(cmd)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesAndVendorKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearVendorEnv(t)
	t.Setenv("TABI_SERVER_PORT", "7070")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("SERPAPI_API_KEY", "serp-key")
	t.Setenv("AMADEUS_CLIENT_ID", "amadeus-id")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "gemini-key", cfg.Models.Registry[0].APIKey)
	assert.Empty(t, cfg.Models.Registry[1].APIKey)
	assert.Equal(t, "serp-key", cfg.Providers.SerpAPI.APIKey)
	assert.Equal(t, "amadeus-id", cfg.Providers.Amadeus.ClientID)
}

func TestLoad_DotEnvFromHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearVendorEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".tabi"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".tabi", ".env"), []byte("TABI_TEST_DOTENV=loaded\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("TABI_TEST_DOTENV") })

	_, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "loaded", os.Getenv("TABI_TEST_DOTENV"))
}

func TestLoad_ExpandsStorePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("store:\n  path: ~/data/chats\n"), 0644))

	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "config file path")
	require.NoError(t, cmd.Flags().Set("config", configPath))

	cfg, err := Load(cmd)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data", "chats"), cfg.Store.Path)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: 8080}, Chat: ChatConfig{ModelTimeout: "soon"}}
	assert.ErrorContains(t, cfg.Validate(), "chat.model_timeout")

	cfg = &Config{Server: ServerConfig{Port: 8080}, Providers: ProvidersConfig{Cache: CacheConfig{Backend: "memcached"}}}
	assert.ErrorContains(t, cfg.Validate(), "providers.cache.backend")

	cfg = &Config{Server: ServerConfig{Port: 0}}
	assert.ErrorContains(t, cfg.Validate(), "server.port")
}

func TestDurationOrDefault(t *testing.T) {
	d, err := DurationOrDefault("", "2s")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d)

	d, err = DurationOrDefault("150ms", "2s")
	require.NoError(t, err)
	assert.Equal(t, 150*time.Millisecond, d)

	_, err = DurationOrDefault("", "")
	assert.Error(t, err)

	assert.Equal(t, 3*time.Second, MustDuration("nope", "3s"))
}
