package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/activity-timeline/")
	v.AddConfigPath("$HOME/.activity-timeline")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("ACTIVITY_TIMELINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Inference provider defaults
	v.SetDefault("inference.provider", "huggingface")

	// Hugging Face defaults. Model mapping follows the hosted inference API
	// naming: one model per task.
	v.SetDefault("huggingface.base_url", "https://api-inference.huggingface.co/models/")
	v.SetDefault("huggingface.api_token", "")
	v.SetDefault("huggingface.models.classification", "facebook/bart-large-mnli")
	v.SetDefault("huggingface.models.sentiment", "cardiffnlp/twitter-roberta-base-sentiment-latest")
	v.SetDefault("huggingface.models.summarization", "facebook/bart-large-cnn")
	v.SetDefault("huggingface.timeout", "30s")
	v.SetDefault("huggingface.retry.max_attempts", 3)
	v.SetDefault("huggingface.retry.initial_backoff", "2s")
	v.SetDefault("huggingface.retry.max_backoff", "30s")
	v.SetDefault("huggingface.retry.model_load_wait", "10s")
	v.SetDefault("huggingface.batch_pacing", "500ms")
	v.SetDefault("huggingface.summary.max_length", 150)
	v.SetDefault("huggingface.summary.min_length", 30)

	// OpenAI defaults (alternate provider)
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 500)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)

	// IMAP defaults
	v.SetDefault("imap.server", "")
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.password", "")
	v.SetDefault("imap.folder", "INBOX")
	v.SetDefault("imap.max_messages", 100)

	// Analysis defaults
	v.SetDefault("analysis.confidence_threshold", 0.5)
	v.SetDefault("analysis.max_text_length", 512)
	v.SetDefault("analysis.summarize_over", 1024)

	// Ingest defaults
	v.SetDefault("ingest.ignored_senders", []string{})

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_frequency", "1h")
	v.SetDefault("cache.sqlite_path", "/data/activity_cache.db")
	v.SetDefault("cache.mysql_dsn", "user:password@tcp(localhost:3306)/activity_timeline")

	// Server defaults
	v.SetDefault("server.listen_address", "127.0.0.1:8080")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen_address", "127.0.0.1:9090")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
