package config

import (
	"time"
)

// RetryConfig represents the retry policy for the inference client
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	ModelLoadWait  time.Duration
}

// HuggingFaceConfig represents the configuration for the Hugging Face
// hosted inference API
type HuggingFaceConfig struct {
	BaseURL             string
	APIToken            string
	ClassificationModel string
	SentimentModel      string
	SummarizationModel  string
	Timeout             time.Duration
	Retry               RetryConfig
	BatchPacing         time.Duration
	SummaryMaxLength    int
	SummaryMinLength    int
}

// OpenAIConfig represents the configuration for the alternate OpenAI provider
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// IMAPConfig represents the configuration for the IMAP email source
type IMAPConfig struct {
	Server      string
	Username    string
	Password    string
	Folder      string
	MaxMessages int
}

// AnalysisConfig represents thresholds applied during classification
type AnalysisConfig struct {
	ConfidenceThreshold float64
	MaxTextLength       int
	SummarizeOver       int
}

// ServerConfig represents the dashboard server configuration
type ServerConfig struct {
	ListenAddress string
}

// MetricsConfig represents the Prometheus metrics configuration
type MetricsConfig struct {
	Enabled       bool
	ListenAddress string
}

// defaultLabelSets are the built-in candidate label sets per category,
// used when the config file does not override them
var defaultLabelSets = map[string][]string{
	"daily_routine": {
		"Sleep", "Wake up", "Morning routine", "Breakfast", "Commuting",
		"Work", "Lunch", "Exercise", "Dinner", "Evening routine",
	},
	"life_events": {
		"Job change", "Travel", "Vacation", "Moving", "Relationship",
		"Education", "Health", "Family events", "Social gathering",
	},
	"general_activities": {
		"Work", "Travel", "Shopping", "Socializing", "Studying",
		"Entertainment", "Exercise", "Eating", "Sleeping",
	},
}

// GetHuggingFace returns the Hugging Face configuration
func (c *Config) GetHuggingFace() HuggingFaceConfig {
	return HuggingFaceConfig{
		BaseURL:             c.GetString("huggingface.base_url"),
		APIToken:            c.GetString("huggingface.api_token"),
		ClassificationModel: c.GetString("huggingface.models.classification"),
		SentimentModel:      c.GetString("huggingface.models.sentiment"),
		SummarizationModel:  c.GetString("huggingface.models.summarization"),
		Timeout:             c.v.GetDuration("huggingface.timeout"),
		Retry: RetryConfig{
			MaxAttempts:    c.GetInt("huggingface.retry.max_attempts"),
			InitialBackoff: c.v.GetDuration("huggingface.retry.initial_backoff"),
			MaxBackoff:     c.v.GetDuration("huggingface.retry.max_backoff"),
			ModelLoadWait:  c.v.GetDuration("huggingface.retry.model_load_wait"),
		},
		BatchPacing:      c.v.GetDuration("huggingface.batch_pacing"),
		SummaryMaxLength: c.GetInt("huggingface.summary.max_length"),
		SummaryMinLength: c.GetInt("huggingface.summary.min_length"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetIMAP returns the IMAP configuration
func (c *Config) GetIMAP() IMAPConfig {
	return IMAPConfig{
		Server:      c.GetString("imap.server"),
		Username:    c.GetString("imap.username"),
		Password:    c.GetString("imap.password"),
		Folder:      c.GetString("imap.folder"),
		MaxMessages: c.GetInt("imap.max_messages"),
	}
}

// GetAnalysis returns the analysis configuration
func (c *Config) GetAnalysis() AnalysisConfig {
	return AnalysisConfig{
		ConfidenceThreshold: c.GetFloat64("analysis.confidence_threshold"),
		MaxTextLength:       c.GetInt("analysis.max_text_length"),
		SummarizeOver:       c.GetInt("analysis.summarize_over"),
	}
}

// GetLabelSets returns the candidate label sets per category. Categories
// missing from the config file fall back to the built-in defaults.
func (c *Config) GetLabelSets() map[string][]string {
	sets := make(map[string][]string, len(defaultLabelSets))
	for category, defaults := range defaultLabelSets {
		if labels := c.GetStringSlice("labels." + category); len(labels) > 0 {
			sets[category] = labels
			continue
		}
		sets[category] = defaults
	}
	return sets
}

// GetServer returns the dashboard server configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		ListenAddress: c.GetString("server.listen_address"),
	}
}

// GetMetrics returns the metrics configuration
func (c *Config) GetMetrics() MetricsConfig {
	return MetricsConfig{
		Enabled:       c.GetBool("metrics.enabled"),
		ListenAddress: c.GetString("metrics.listen_address"),
	}
}
