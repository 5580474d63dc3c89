// Package config loads termbase configuration: defaults, overlaid by an
// optional YAML file, overlaid by environment variables for credentials.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adalundhe/termbase/core/merge"
	"github.com/adalundhe/termbase/core/providers"
)

// Config is the full termbase configuration.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Merge    MergeConfig    `yaml:"merge"`
	Watch    WatchConfig    `yaml:"watch"`
	Log      LogConfig      `yaml:"log"`
}

// ProviderConfig selects and configures the arbitration transport.
type ProviderConfig struct {
	// Type is the provider to use: anthropic, openai, or google.
	Type string `yaml:"type"`

	Anthropic providers.AnthropicConfig `yaml:"anthropic"`
	OpenAI    providers.OpenAIConfig    `yaml:"openai"`
	Google    providers.GoogleConfig    `yaml:"google"`

	// Retry configures transport-level retry on transient failures.
	Retry providers.RetryPolicy `yaml:"retry"`

	// CacheEnabled turns on in-process response caching.
	CacheEnabled bool `yaml:"cache_enabled"`

	// CacheTTL is the response cache lifetime, as a duration string.
	CacheTTL string `yaml:"cache_ttl"`

	// RequestTimeout bounds a single API request, as a duration string.
	RequestTimeout string `yaml:"request_timeout"`
}

// MergeConfig tunes merge sessions.
type MergeConfig struct {
	// MaxInflight bounds concurrent arbitration calls (0 = unlimited).
	MaxInflight int64 `yaml:"max_inflight"`
}

// WatchConfig tunes the drop-directory daemon.
type WatchConfig struct {
	// Dir is the directory watched for proposal files.
	Dir string `yaml:"dir"`

	// Debounce is the quiet interval before a changed file is merged,
	// as a duration string.
	Debounce string `yaml:"debounce"`

	// HistorySize is how many merge reports to retain.
	HistorySize int `yaml:"history_size"`
}

// LogConfig tunes logging output.
type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Type:           string(providers.ProviderTypeAnthropic),
			Anthropic:      providers.DefaultAnthropicConfig(),
			OpenAI:         providers.DefaultOpenAIConfig(),
			Google:         providers.DefaultGoogleConfig(),
			Retry:          providers.DefaultRetryPolicy(),
			CacheEnabled:   true,
			CacheTTL:       "10m",
			RequestTimeout: "2m",
		},
		Merge: MergeConfig{
			MaxInflight: merge.DefaultConfig().MaxInflight,
		},
		Watch: WatchConfig{
			Debounce:    "200ms",
			HistorySize: 64,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the config file at path over the defaults, then applies
// environment overrides. A missing file is not an error; the defaults are
// returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv fills credentials from the conventional environment variables
// when the file did not provide them.
func (c *Config) applyEnv() {
	if c.Provider.Anthropic.APIKey == "" {
		c.Provider.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if c.Provider.OpenAI.APIKey == "" {
		c.Provider.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Provider.Google.APIKey == "" {
		c.Provider.Google.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if t := os.Getenv("TERMBASE_PROVIDER"); t != "" {
		c.Provider.Type = t
	}
}

// MergeSession returns the merge session config.
func (c *Config) MergeSession() merge.Config {
	return merge.Config{MaxInflight: c.Merge.MaxInflight}
}

// DebounceInterval parses the watch debounce duration.
func (c *WatchConfig) DebounceInterval() (time.Duration, error) {
	return parseDuration(c.Debounce, 200*time.Millisecond)
}

// LogLevel converts the configured level to a slog level.
func (c *LogConfig) LogLevel() slog.Level {
	switch c.Level {
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

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}
