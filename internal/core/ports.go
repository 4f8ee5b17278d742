package core

import (
	"context"
	"time"
)

// InferenceClient defines the interface for hosted model inference
type InferenceClient interface {
	// Classify runs zero-shot classification of text against candidate labels
	Classify(ctx context.Context, text string, candidateLabels []string) (*Classification, error)

	// AnalyzeSentiment scores the sentiment of text
	AnalyzeSentiment(ctx context.Context, text string) (*Sentiment, error)

	// Summarize produces a short summary of long text
	Summarize(ctx context.Context, text string) (string, error)
}

// EmailSource defines the interface for retrieving raw messages
type EmailSource interface {
	// Fetch retrieves up to limit of the newest messages from a folder
	Fetch(ctx context.Context, folder string, limit int) ([]Message, error)
}

// CacheRepository defines the interface for caching classification results
type CacheRepository interface {
	// Get retrieves a cached entry by key
	Get(key string) (*CacheEntry, bool)

	// Set stores a cache entry with the given TTL
	Set(key string, entry *CacheEntry, ttl time.Duration)

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// TextNormalizer cleans raw text before it is sent for inference
type TextNormalizer interface {
	Normalize(text string, maxLen int) string
}
