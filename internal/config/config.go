package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Models    ModelsConfig    `koanf:"models"`
	Chat      ChatConfig      `koanf:"chat"`
	Providers ProvidersConfig `koanf:"providers"`
	Store     StoreConfig     `koanf:"store"`
	Retention RetentionConfig `koanf:"retention"`
	Adapters  AdaptersConfig  `koanf:"adapters"`
	Daemon    DaemonConfig    `koanf:"daemon"`
}

type ServerConfig struct {
	Port            int    `koanf:"port"`
	LogLevel        string `koanf:"log_level"`
	LogFormat       string `koanf:"log_format"`
	ReadTimeout     string `koanf:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout"`
	IdleTimeout     string `koanf:"idle_timeout"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64  `koanf:"max_body_bytes"`
}

type ModelsConfig struct {
	Default             string          `koanf:"default"`
	Fallback            string          `koanf:"fallback"`
	MaxFallbackAttempts int             `koanf:"max_fallback_attempts"`
	Registry            []ModelRegistry `koanf:"registry"`
}

type ModelRegistry struct {
	Name     string `koanf:"name"`
	Provider string `koanf:"provider"`
	BaseURL  string `koanf:"base_url"`
	APIKey   string `koanf:"api_key"`
}

type ChatConfig struct {
	SystemPrompt    string `koanf:"system_prompt"`
	ModelTimeout    string `koanf:"model_timeout"`
	ToolTimeout     string `koanf:"tool_timeout"`
	HistoryLimit    int    `koanf:"history_limit"`
	MaxMessageChars int    `koanf:"max_message_chars"`
}

type ProvidersConfig struct {
	Amadeus    AmadeusConfig `koanf:"amadeus"`
	SerpAPI    SerpAPIConfig `koanf:"serpapi"`
	Weather    WeatherConfig `koanf:"weather"`
	Cache      CacheConfig   `koanf:"cache"`
	MaxRetries int           `koanf:"max_retries"`
	UserAgent  string        `koanf:"user_agent"`
}

type AmadeusConfig struct {
	BaseURL      string  `koanf:"base_url"`
	ClientID     string  `koanf:"client_id"`
	ClientSecret string  `koanf:"client_secret"`
	Currency     string  `koanf:"currency"`
	Timeout      string  `koanf:"timeout"`
	RateLimit    float64 `koanf:"rate_limit"`
	Burst        int     `koanf:"burst"`
}

type SerpAPIConfig struct {
	BaseURL   string  `koanf:"base_url"`
	APIKey    string  `koanf:"api_key"`
	Currency  string  `koanf:"currency"`
	Language  string  `koanf:"language"`
	Country   string  `koanf:"country"`
	Timeout   string  `koanf:"timeout"`
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`
}

type WeatherConfig struct {
	BaseURL   string  `koanf:"base_url"`
	Timeout   string  `koanf:"timeout"`
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`
}

type CacheConfig struct {
	Backend       string `koanf:"backend"`
	TTL           string `koanf:"ttl"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
}

type StoreConfig struct {
	Path         string `koanf:"path"`
	LockTimeout  string `koanf:"lock_timeout"`
	LockRetry    string `koanf:"lock_retry"`
	LockMaxRetry int    `koanf:"lock_max_retry"`
	InboxSize    int    `koanf:"inbox_size"`
}

type RetentionConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Schedule string `koanf:"schedule"`
	MaxAge   string `koanf:"max_age"`
}

type AdaptersConfig struct {
	Slack    SlackConfig    `koanf:"slack"`
	Telegram TelegramConfig `koanf:"telegram"`
}

type SlackConfig struct {
	Enabled       bool   `koanf:"enabled"`
	Port          int    `koanf:"port"`
	SigningSecret string `koanf:"signing_secret"`
	BotToken      string `koanf:"bot_token"`
	DedupTTL      string `koanf:"dedup_ttl"`
}

type TelegramConfig struct {
	Enabled       bool   `koanf:"enabled"`
	BotToken      string `koanf:"bot_token"`
	UpdateTimeout int    `koanf:"update_timeout"`
}

type DaemonConfig struct {
	ShutdownTimeout        string `koanf:"shutdown_timeout"`
	HealthCheckInterval    string `koanf:"health_check_interval"`
	StartupShutdownTimeout string `koanf:"startup_shutdown_timeout"`
	PreflightTimeout       string `koanf:"preflight_timeout"`
	StaleLockTTL           string `koanf:"stale_lock_ttl"`
}

const (
	DefaultServerPort                   = 8080
	DefaultServerLogLevel               = "info"
	DefaultServerLogFormat              = "text"
	DefaultServerReadTimeout            = "10s"
	DefaultServerWriteTimeout           = "60s"
	DefaultServerIdleTimeout            = "60s"
	DefaultServerShutdownTimeout        = "5s"
	DefaultServerMaxBodyBytes           = 64 * 1024
	DefaultModelDefault                 = "gemini-2.5-flash"
	DefaultModelFallback                = "gpt-4o-mini"
	DefaultModelMaxFallbackAttempts     = 2
	DefaultOpenAIBaseURL                = "https://api.openai.com/v1"
	DefaultOllamaBaseURL                = "http://localhost:11434/v1"
	DefaultOllamaAPIKey                 = "ollama"
	DefaultAnthropicMaxTokens           = 4096
	DefaultChatSystemPrompt             = ""
	DefaultChatModelTimeout             = "30s"
	DefaultChatToolTimeout              = "20s"
	DefaultChatHistoryLimit             = 10
	DefaultChatMaxMessageChars          = 4000
	DefaultAmadeusBaseURL               = "https://test.api.amadeus.com"
	DefaultAmadeusCurrency              = "USD"
	DefaultAmadeusTimeout               = "15s"
	DefaultAmadeusRateLimit             = 5.0
	DefaultAmadeusBurst                 = 2
	DefaultSerpAPIBaseURL               = "https://serpapi.com/search.json"
	DefaultSerpAPICurrency              = "USD"
	DefaultSerpAPILanguage              = "en"
	DefaultSerpAPICountry               = "us"
	DefaultSerpAPITimeout               = "15s"
	DefaultSerpAPIRateLimit             = 2.0
	DefaultSerpAPIBurst                 = 2
	DefaultWeatherBaseURL               = "https://wttr.in"
	DefaultWeatherTimeout               = "10s"
	DefaultWeatherRateLimit             = 5.0
	DefaultWeatherBurst                 = 5
	DefaultProvidersMaxRetries          = 2
	DefaultProvidersUserAgent           = "tabi/1.0"
	DefaultCacheBackend                 = "memory"
	DefaultCacheTTL                     = "10m"
	DefaultCacheRedisAddr               = "localhost:6379"
	DefaultStoreLockTimeout             = "30s"
	DefaultStoreLockRetry               = "100ms"
	DefaultStoreLockMaxRetry            = 300
	DefaultStoreInboxSize               = 100
	DefaultRetentionEnabled             = true
	DefaultRetentionSchedule            = "0 3 * * *"
	DefaultRetentionMaxAge              = "720h"
	DefaultSlackPort                    = 3000
	DefaultTelegramUpdateTimeout        = 60
	DefaultDaemonShutdownTimeout        = "30s"
	DefaultDaemonHealthCheckInterval    = "30s"
	DefaultDaemonStartupShutdownTimeout = "10s"
	DefaultDaemonPreflightTimeout       = "10s"
	DefaultDaemonStaleLockTTL           = "15m"
	DefaultSlackDedupTTL                = "1h"
)

// HomeDir is the per-user directory holding config.yaml, .env and the
// conversation store.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".tabi")
}

func defaultModelRegistry() []ModelRegistry {
	return []ModelRegistry{
		{Name: DefaultModelDefault, Provider: "gemini"},
		{Name: DefaultModelFallback, Provider: "openai"},
		{Name: "claude-3-5-haiku-latest", Provider: "anthropic"},
	}
}

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	// Hardcoded Defaults
	defaults := map[string]interface{}{
		"server.port":                      DefaultServerPort,
		"server.log_level":                 DefaultServerLogLevel,
		"server.log_format":                DefaultServerLogFormat,
		"server.read_timeout":              DefaultServerReadTimeout,
		"server.write_timeout":             DefaultServerWriteTimeout,
		"server.idle_timeout":              DefaultServerIdleTimeout,
		"server.shutdown_timeout":          DefaultServerShutdownTimeout,
		"server.max_body_bytes":            DefaultServerMaxBodyBytes,
		"models.default":                   DefaultModelDefault,
		"models.fallback":                  DefaultModelFallback,
		"models.max_fallback_attempts":     DefaultModelMaxFallbackAttempts,
		"models.registry":                  defaultModelRegistry(),
		"chat.system_prompt":               DefaultChatSystemPrompt,
		"chat.model_timeout":               DefaultChatModelTimeout,
		"chat.tool_timeout":                DefaultChatToolTimeout,
		"chat.history_limit":               DefaultChatHistoryLimit,
		"chat.max_message_chars":           DefaultChatMaxMessageChars,
		"providers.amadeus.base_url":       DefaultAmadeusBaseURL,
		"providers.amadeus.currency":       DefaultAmadeusCurrency,
		"providers.amadeus.timeout":        DefaultAmadeusTimeout,
		"providers.amadeus.rate_limit":     DefaultAmadeusRateLimit,
		"providers.amadeus.burst":          DefaultAmadeusBurst,
		"providers.serpapi.base_url":       DefaultSerpAPIBaseURL,
		"providers.serpapi.currency":       DefaultSerpAPICurrency,
		"providers.serpapi.language":       DefaultSerpAPILanguage,
		"providers.serpapi.country":        DefaultSerpAPICountry,
		"providers.serpapi.timeout":        DefaultSerpAPITimeout,
		"providers.serpapi.rate_limit":     DefaultSerpAPIRateLimit,
		"providers.serpapi.burst":          DefaultSerpAPIBurst,
		"providers.weather.base_url":       DefaultWeatherBaseURL,
		"providers.weather.timeout":        DefaultWeatherTimeout,
		"providers.weather.rate_limit":     DefaultWeatherRateLimit,
		"providers.weather.burst":          DefaultWeatherBurst,
		"providers.cache.backend":          DefaultCacheBackend,
		"providers.cache.ttl":              DefaultCacheTTL,
		"providers.cache.redis_addr":       DefaultCacheRedisAddr,
		"providers.max_retries":            DefaultProvidersMaxRetries,
		"providers.user_agent":             DefaultProvidersUserAgent,
		"store.path":                       filepath.Join(HomeDir(), "conversations"),
		"store.lock_timeout":               DefaultStoreLockTimeout,
		"store.lock_retry":                 DefaultStoreLockRetry,
		"store.lock_max_retry":             DefaultStoreLockMaxRetry,
		"store.inbox_size":                 DefaultStoreInboxSize,
		"retention.enabled":                DefaultRetentionEnabled,
		"retention.schedule":               DefaultRetentionSchedule,
		"retention.max_age":                DefaultRetentionMaxAge,
		"adapters.slack.port":              DefaultSlackPort,
		"adapters.telegram.update_timeout": DefaultTelegramUpdateTimeout,
		"daemon.shutdown_timeout":          DefaultDaemonShutdownTimeout,
		"daemon.health_check_interval":     DefaultDaemonHealthCheckInterval,
		"daemon.startup_shutdown_timeout":  DefaultDaemonStartupShutdownTimeout,
		"daemon.preflight_timeout":         DefaultDaemonPreflightTimeout,
		"daemon.stale_lock_ttl":            DefaultDaemonStaleLockTTL,
		"adapters.slack.dedup_ttl":         DefaultSlackDedupTTL,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// Config file loading
	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		globalPath := filepath.Join(HomeDir(), "config.yaml")
		if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
			slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
		}
	}

	// .env files never override variables already set in the environment
	loadDotEnv(".env", filepath.Join(HomeDir(), ".env"))

	// Environment Variables
	k.Load(env.Provider("TABI_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "TABI_")), "_", ".", -1)
	}), nil)

	// CLI Flags
	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	for i, m := range cfg.Models.Registry {
		if m.Provider == "" {
			cfg.Models.Registry[i].Provider = "openai"
		}
	}

	storePath, err := expandPath(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	cfg.Store.Path = storePath

	injectEnvKeys(&cfg)

	return &cfg, nil
}

func loadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			slog.Warn("Failed to load env file", "path", p, "error", err)
		}
	}
}

// injectEnvKeys fills credentials from the conventional vendor variables
// when the config leaves them empty.
func injectEnvKeys(cfg *Config) {
	modelKeys := map[string]string{
		"openai":    os.Getenv("OPENAI_API_KEY"),
		"anthropic": os.Getenv("ANTHROPIC_API_KEY"),
		"gemini":    os.Getenv("GEMINI_API_KEY"),
	}
	for i, m := range cfg.Models.Registry {
		if key := modelKeys[m.Provider]; key != "" && m.APIKey == "" {
			cfg.Models.Registry[i].APIKey = key
		}
	}

	if cfg.Providers.SerpAPI.APIKey == "" {
		cfg.Providers.SerpAPI.APIKey = os.Getenv("SERPAPI_API_KEY")
	}
	if cfg.Providers.Amadeus.ClientID == "" {
		cfg.Providers.Amadeus.ClientID = os.Getenv("AMADEUS_CLIENT_ID")
	}
	if cfg.Providers.Amadeus.ClientSecret == "" {
		cfg.Providers.Amadeus.ClientSecret = os.Getenv("AMADEUS_CLIENT_SECRET")
	}
	if cfg.Adapters.Slack.BotToken == "" {
		cfg.Adapters.Slack.BotToken = os.Getenv("SLACK_BOT_TOKEN")
	}
	if cfg.Adapters.Slack.SigningSecret == "" {
		cfg.Adapters.Slack.SigningSecret = os.Getenv("SLACK_SIGNING_SECRET")
	}
	if cfg.Adapters.Telegram.BotToken == "" {
		cfg.Adapters.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
}
