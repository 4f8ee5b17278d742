package core

import (
	"time"
)

// Message is a raw input item before classification. It may come from
// the IMAP source or be submitted directly through the dashboard.
type Message struct {
	Text      string
	Subject   string
	Sender    string
	Timestamp time.Time
}

// Classification represents the result of a zero-shot classification call
type Classification struct {
	Label      string
	Confidence float64
	AllScores  map[string]float64
	Model      string
}

// Sentiment represents the result of a sentiment analysis call
type Sentiment struct {
	Label string
	Score float64
}

// Event is a classified and scored activity. Immutable once built.
type Event struct {
	Text           string
	Subject        string
	Sender         string
	Timestamp      time.Time
	Label          string
	Confidence     float64
	AllScores      map[string]float64
	Sentiment      string
	SentimentScore float64
	Summary        string
	HighConfidence bool
	ModelUsed      string
	AnalyzedAt     time.Time
}

// CacheEntry is a cached classification and sentiment result, keyed by
// a digest of the normalized text and the candidate label set
type CacheEntry struct {
	Key            string
	Label          string
	Confidence     float64
	Sentiment      string
	SentimentScore float64
	LastSeen       time.Time
	ExpiresAt      time.Time
}
