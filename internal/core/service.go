package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/activity-timeline/internal/metrics"
	"go.uber.org/zap"
)

var (
	// ErrEmptyText is returned when a message has no usable text after normalization
	ErrEmptyText = errors.New("empty text after preprocessing")

	// ErrClassification wraps non-recoverable inference failures
	ErrClassification = errors.New("classification failed")
)

const (
	CategoryDailyRoutine      = "daily_routine"
	CategoryLifeEvents        = "life_events"
	CategoryGeneralActivities = "general_activities"
)

// ActivityService orchestrates preprocessing, inference and caching to
// turn raw messages into classified activity events
type ActivityService struct {
	inference           InferenceClient
	cache               CacheRepository
	normalizer          TextNormalizer
	logger              *zap.Logger
	metrics             *metrics.Metrics
	labels              map[string][]string
	cacheEnabled        bool
	cacheTTL            time.Duration
	confidenceThreshold float64
	maxTextLength       int
	summarizeOver       int
	batchPacing         time.Duration
}

// NewActivityService creates a new activity service
func NewActivityService(
	inference InferenceClient,
	cache CacheRepository,
	normalizer TextNormalizer,
	logger *zap.Logger,
	m *metrics.Metrics,
	labels map[string][]string,
	cacheEnabled bool,
	cacheTTL time.Duration,
	confidenceThreshold float64,
	maxTextLength int,
	summarizeOver int,
	batchPacing time.Duration,
) *ActivityService {
	return &ActivityService{
		inference:           inference,
		cache:               cache,
		normalizer:          normalizer,
		logger:              logger,
		metrics:             m,
		labels:              labels,
		cacheEnabled:        cacheEnabled,
		cacheTTL:            cacheTTL,
		confidenceThreshold: confidenceThreshold,
		maxTextLength:       maxTextLength,
		summarizeOver:       summarizeOver,
		batchPacing:         batchPacing,
	}
}

// AnalyzeMessage classifies and scores a single message
func (s *ActivityService) AnalyzeMessage(ctx context.Context, msg Message) (*Event, error) {
	cleaned := s.normalizer.Normalize(msg.Text, s.maxTextLength)
	if strings.TrimSpace(cleaned) == "" {
		return nil, ErrEmptyText
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	candidateLabels := s.labelsForHour(ts.Hour())
	contextual := temporalContext(ts) + cleaned

	key := cacheKey(cleaned, candidateLabels)
	if s.cacheEnabled {
		if entry, ok := s.cache.Get(key); ok {
			s.logger.Debug("Cache hit for message", zap.String("key", key))
			s.metrics.IncCacheHit()
			return s.eventFromCache(msg, ts, entry), nil
		}
		s.metrics.IncCacheMiss()
	}

	classification, err := s.inference.Classify(ctx, contextual, candidateLabels)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassification, err)
	}
	classification.Confidence = clampScore(classification.Confidence)

	sentiment, err := s.inference.AnalyzeSentiment(ctx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassification, err)
	}
	sentiment.Score = clampScore(sentiment.Score)

	summary := ""
	if s.summarizeOver > 0 && len(cleaned) > s.summarizeOver {
		summary, err = s.inference.Summarize(ctx, cleaned)
		if err != nil {
			// A missing summary does not invalidate the event
			s.logger.Warn("Failed to summarize message", zap.Error(err))
			summary = ""
		}
	}

	event := &Event{
		Text:           cleaned,
		Subject:        msg.Subject,
		Sender:         msg.Sender,
		Timestamp:      ts,
		Label:          classification.Label,
		Confidence:     classification.Confidence,
		AllScores:      classification.AllScores,
		Sentiment:      sentiment.Label,
		SentimentScore: sentiment.Score,
		Summary:        summary,
		HighConfidence: classification.Confidence > s.confidenceThreshold,
		ModelUsed:      classification.Model,
		AnalyzedAt:     time.Now(),
	}

	if s.cacheEnabled {
		s.cache.Set(key, &CacheEntry{
			Key:            key,
			Label:          event.Label,
			Confidence:     event.Confidence,
			Sentiment:      event.Sentiment,
			SentimentScore: event.SentimentScore,
			LastSeen:       time.Now(),
			ExpiresAt:      time.Now().Add(s.cacheTTL),
		}, s.cacheTTL)
	}

	return event, nil
}

// AnalyzeBatch classifies a batch of messages, skipping ones that fail.
// Calls are paced to stay under the hosted API's rate limits.
func (s *ActivityService) AnalyzeBatch(ctx context.Context, msgs []Message) ([]Event, error) {
	events := make([]Event, 0, len(msgs))
	for i, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return events, err
		}
		if i > 0 && s.batchPacing > 0 {
			timer := time.NewTimer(s.batchPacing)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return events, ctx.Err()
			}
		}
		event, err := s.AnalyzeMessage(ctx, msg)
		if err != nil {
			if errors.Is(err, ErrEmptyText) {
				s.logger.Debug("Skipping empty message", zap.String("sender", msg.Sender))
				continue
			}
			s.logger.Warn("Failed to analyze message",
				zap.String("sender", msg.Sender),
				zap.Error(err))
			continue
		}
		events = append(events, *event)
	}
	return events, nil
}

// labelsForHour picks the candidate label set by time of day. Morning and
// late-night messages lean towards routine activities.
func (s *ActivityService) labelsForHour(hour int) []string {
	category := CategoryGeneralActivities
	if hour < 9 || hour >= 22 {
		category = CategoryDailyRoutine
	}
	if labels, ok := s.labels[category]; ok && len(labels) > 0 {
		return labels
	}
	return s.labels[CategoryGeneralActivities]
}

// temporalContext prefixes the time of day so the zero-shot model can use it
func temporalContext(ts time.Time) string {
	var prefix string
	switch hour := ts.Hour(); {
	case hour >= 6 && hour < 12:
		prefix = "In the morning: "
	case hour >= 12 && hour < 17:
		prefix = "In the afternoon: "
	case hour >= 17 && hour < 22:
		prefix = "In the evening: "
	default:
		prefix = "Late at night: "
	}
	if wd := ts.Weekday(); wd == time.Saturday || wd == time.Sunday {
		prefix += fmt.Sprintf("On %s ", wd)
	}
	return prefix
}

func (s *ActivityService) eventFromCache(msg Message, ts time.Time, entry *CacheEntry) *Event {
	return &Event{
		Text:           msg.Text,
		Subject:        msg.Subject,
		Sender:         msg.Sender,
		Timestamp:      ts,
		Label:          entry.Label,
		Confidence:     entry.Confidence,
		Sentiment:      entry.Sentiment,
		SentimentScore: entry.SentimentScore,
		HighConfidence: entry.Confidence > s.confidenceThreshold,
		ModelUsed:      "cache",
		AnalyzedAt:     time.Now(),
	}
}

func cacheKey(text string, labels []string) string {
	h := sha256.New()
	h.Write([]byte(text))
	for _, label := range labels {
		h.Write([]byte{0})
		h.Write([]byte(label))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func clampScore(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
