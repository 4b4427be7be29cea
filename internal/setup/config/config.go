package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrInvalidConfig         = errors.New("invalid config")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v0.1.0"

// Current version of the config file.
const (
	CurrentCommonVersion = 1
	CurrentBotVersion    = 1
)

// DefaultResetTrigger is the message that wipes a channel's conversation context.
const DefaultResetTrigger = "https://tenor.com/view/no-witnesses-erase-memory-forget-gif-20806865"

// configFiles are loaded in order from the first search path that has them.
var configFiles = []string{"common", "bot"}

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig
	Bot    BotConfig
}

// CommonConfig contains configuration shared between the bot and the tools.
type CommonConfig struct {
	// Version of the common config.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
	OpenAI     OpenAI     `koanf:"openai"`
	Loki       Loki       `koanf:"loki"`
	Uptrace    Uptrace    `koanf:"uptrace"`
}

// BotConfig contains Discord bot specific configuration.
type BotConfig struct {
	// Version of the bot config.
	Version int `koanf:"version"`
	// Discord configuration.
	Discord Discord `koanf:"discord"`
	// Conversation behaviour.
	Chat Chat `koanf:"chat"`
	// Models used for replies and reply decisions.
	Models Models `koanf:"models"`
	// Reload the config when the files change.
	WatchConfig bool `koanf:"watch_config"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	// Database hostname.
	Host string `koanf:"host"`
	// Database port.
	Port int `koanf:"port"`
	// Database username.
	User string `koanf:"user"`
	// Database password.
	Password string `koanf:"password"`
	// Database name.
	DBName string `koanf:"db_name"`
	// Maximum open connections.
	MaxOpenConns int `koanf:"max_open_conns"`
	// Maximum idle connections.
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetime in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	// Idle timeout in minutes.
	MaxIdleTime int `koanf:"max_idle_time"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Enable gateway replay deduplication through Redis.
	Enabled bool `koanf:"enabled"`
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// OpenAI contains completion provider configuration.
type OpenAI struct {
	// Base URL for the API.
	BaseURL string `koanf:"base_url"`
	// API key for authentication.
	APIKey string `koanf:"api_key"`
	// Maximum concurrent requests.
	MaxConcurrent int64 `koanf:"max_concurrent"`
	// Number of pooled clients.
	PoolSize int `koanf:"pool_size"`
	// Request timeout in milliseconds.
	RequestTimeout int `koanf:"request_timeout"`
}

// Loki contains Grafana Loki logging configuration.
type Loki struct {
	// Enable Loki integration
	Enabled bool `koanf:"enabled"`
	// Loki server URL (without /loki/api/v1/push suffix)
	URL string `koanf:"url"`
	// Maximum number of log entries per batch
	BatchMaxSize int `koanf:"batch_max_size"`
	// Maximum time to wait before sending a batch (in milliseconds)
	BatchMaxWaitMS int `koanf:"batch_max_wait_ms"`
	// Labels added to all log streams
	Labels map[string]string `koanf:"labels"`
	// Basic authentication username (optional)
	Username string `koanf:"username"`
	// Basic authentication password (optional)
	Password string `koanf:"password"`
}

// Uptrace contains tracing configuration.
type Uptrace struct {
	// Uptrace DSN. Tracing is disabled when empty.
	DSN string `koanf:"dsn"`
}

// Discord contains Discord bot configuration.
type Discord struct {
	// Discord bot token for authentication.
	Token string `koanf:"token"`
}

// Chat configures how conversations are handled.
type Chat struct {
	// Number of in-window messages that triggers a window advance.
	WindowThreshold int `koanf:"window_threshold"`
	// Maximum attempts the judge gets to produce valid output.
	MaxAttempts int `koanf:"max_attempts"`
	// Message content that resets a channel's context.
	ResetTrigger string `koanf:"reset_trigger"`
	// Maximum gateway events handled at once.
	MaxConcurrentEvents int `koanf:"max_concurrent_events"`
	// Seconds a handled message id is remembered for deduplication.
	DedupeTTL int `koanf:"dedupe_ttl"`
}

// Models configures the chat and judge models.
type Models struct {
	Chat  Model `koanf:"chat"`
	Judge Model `koanf:"judge"`
}

// Model names a model and its optional reasoning settings.
type Model struct {
	Name      string    `koanf:"name"`
	Reasoning Reasoning `koanf:"reasoning"`
}

// Reasoning is passed through to providers that support reasoning hints.
type Reasoning struct {
	Enabled   bool   `koanf:"enabled"`
	Effort    string `koanf:"effort"`
	MaxTokens int    `koanf:"max_tokens"`
	Exclude   bool   `koanf:"exclude"`
}

// RequestTimeoutDuration returns the provider request timeout.
func (o OpenAI) RequestTimeoutDuration() time.Duration {
	return time.Duration(o.RequestTimeout) * time.Millisecond
}

// DedupeTTLDuration returns how long handled message ids are remembered.
func (c Chat) DedupeTTLDuration() time.Duration {
	return time.Duration(c.DedupeTTL) * time.Second
}

// SearchPaths returns the directories searched for config files, in order.
func SearchPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	return []string{
		".lumi",
		filepath.Join(homeDir, ".lumi", "config"),
		"/etc/lumi/config",
		"/app/config",
		"config",
		".",
	}, nil
}

// LoadConfig loads the configuration from the default search paths.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	paths, err := SearchPaths()
	if err != nil {
		return nil, "", err
	}
	return LoadConfigFrom(paths)
}

// LoadConfigFrom loads the configuration from the given search paths.
func LoadConfigFrom(configPaths []string) (*Config, string, error) {
	k := koanf.New(".")
	setDefaults(k)

	files, err := ResolveFiles(configPaths)
	if err != nil {
		return nil, "", err
	}

	for _, path := range files {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, "", fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	usedConfigPath := filepath.Dir(files[0])

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Check versions for each config file
	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("bot", config.Bot.Version, CurrentBotVersion); err != nil {
		return nil, "", err
	}

	if err := config.validate(); err != nil {
		return nil, "", err
	}

	return &config, usedConfigPath, nil
}

// ResolveFiles returns the path of each config file, taken from the first
// search path that contains it. Files may come from different search paths.
func ResolveFiles(configPaths []string) ([]string, error) {
	files := make([]string, 0, len(configFiles))

	for _, configName := range configFiles {
		found := ""
		for _, path := range configPaths {
			configPath := filepath.Join(path, configName+".toml")
			if _, err := os.Stat(configPath); err == nil {
				found = configPath
				break
			}
		}

		if found == "" {
			return nil, fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configName)
		}
		files = append(files, found)
	}

	return files, nil
}

// setDefaults seeds values that config files may leave out.
func setDefaults(k *koanf.Koanf) {
	defaults := map[string]any{
		"common.debug.log_level":           "info",
		"common.debug.max_logs_to_keep":    10,
		"common.postgresql.port":           5432,
		"common.postgresql.max_open_conns": 10,
		"common.postgresql.max_idle_conns": 5,
		"common.postgresql.max_lifetime":   30,
		"common.postgresql.max_idle_time":  10,
		"common.redis.port":                6379,
		"common.openai.base_url":           "https://openrouter.ai/api/v1",
		"common.openai.max_concurrent":     4,
		"common.openai.pool_size":          2,
		"common.openai.request_timeout":    60000,
		"common.loki.batch_max_size":       100,
		"common.loki.batch_max_wait_ms":    5000,
		"bot.chat.window_threshold":        30,
		"bot.chat.max_attempts":            3,
		"bot.chat.reset_trigger":           DefaultResetTrigger,
		"bot.chat.max_concurrent_events":   32,
		"bot.chat.dedupe_ttl":              3600,
	}

	for key, value := range defaults {
		_ = k.Set(key, value)
	}
}

// validate checks values that would otherwise fail far from their source.
func (c *Config) validate() error {
	if c.Bot.Models.Chat.Name == "" {
		return fmt.Errorf("%w: bot.models.chat.name is required", ErrInvalidConfig)
	}
	if c.Bot.Models.Judge.Name == "" {
		return fmt.Errorf("%w: bot.models.judge.name is required", ErrInvalidConfig)
	}
	if c.Bot.Chat.WindowThreshold < 0 {
		return fmt.Errorf("%w: bot.chat.window_threshold must not be negative", ErrInvalidConfig)
	}
	return nil
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/robalyx/lumi/tree/%s/config/%s.toml",
			ErrConfigVersionMismatch,
			name,
			current,
			expected,
			RepositoryVersion,
			name,
		)
	}

	return nil
}
