package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeInference struct {
	mu             sync.Mutex
	classifyCalls  int
	sentimentCalls int
	summarizeCalls int
	lastText       string
	lastLabels     []string

	classification *Classification
	classifyErr    error
	sentiment      *Sentiment
	sentimentErr   error
	summary        string
	summarizeErr   error
}

func (f *fakeInference) Classify(ctx context.Context, text string, labels []string) (*Classification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classifyCalls++
	f.lastText = text
	f.lastLabels = labels
	if f.classifyErr != nil {
		return nil, f.classifyErr
	}
	c := *f.classification
	return &c, nil
}

func (f *fakeInference) AnalyzeSentiment(ctx context.Context, text string) (*Sentiment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentimentCalls++
	if f.sentimentErr != nil {
		return nil, f.sentimentErr
	}
	s := *f.sentiment
	return &s, nil
}

func (f *fakeInference) Summarize(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summarizeCalls++
	return f.summary, f.summarizeErr
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]*CacheEntry
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*CacheEntry)}
}

func (c *fakeCache) Get(key string) (*CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	return entry, ok
}

func (c *fakeCache) Set(key string, entry *CacheEntry, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
}

func (c *fakeCache) Cleanup(ctx context.Context) error { return nil }

type passthroughNormalizer struct{}

func (passthroughNormalizer) Normalize(text string, maxLen int) string {
	text = strings.TrimSpace(text)
	if maxLen > 0 && len(text) > maxLen {
		text = text[:maxLen]
	}
	return text
}

func testLabels() map[string][]string {
	return map[string][]string{
		CategoryDailyRoutine:      {"Sleep", "Meals", "Commute"},
		CategoryGeneralActivities: {"Work", "Social", "Travel"},
	}
}

func newTestService(inference *fakeInference, cache *fakeCache) *ActivityService {
	return NewActivityService(
		inference,
		cache,
		passthroughNormalizer{},
		zap.NewNop(),
		nil,
		testLabels(),
		true,
		time.Hour,
		0.5,
		512,
		1024,
		0,
	)
}

func defaultInference() *fakeInference {
	return &fakeInference{
		classification: &Classification{
			Label:      "Work",
			Confidence: 0.8,
			AllScores:  map[string]float64{"Work": 0.8, "Social": 0.2},
			Model:      "test-model",
		},
		sentiment: &Sentiment{Label: "positive", Score: 0.9},
	}
}

func TestAnalyzeMessage(t *testing.T) {
	inference := defaultInference()
	service := newTestService(inference, newFakeCache())

	ts := time.Date(2024, 3, 13, 14, 0, 0, 0, time.UTC) // Wednesday afternoon
	event, err := service.AnalyzeMessage(context.Background(), Message{
		Text:      "Meeting notes from the planning session",
		Subject:   "Planning",
		Sender:    "alice@example.com",
		Timestamp: ts,
	})
	require.NoError(t, err)

	assert.Equal(t, "Work", event.Label)
	assert.InDelta(t, 0.8, event.Confidence, 1e-9)
	assert.True(t, event.HighConfidence)
	assert.Equal(t, "positive", event.Sentiment)
	assert.Equal(t, "test-model", event.ModelUsed)
	assert.Equal(t, ts, event.Timestamp)
	assert.Equal(t, "alice@example.com", event.Sender)
	assert.Empty(t, event.Summary)
	assert.Equal(t, 0, inference.summarizeCalls)
}

func TestAnalyzeMessageEmptyText(t *testing.T) {
	service := newTestService(defaultInference(), newFakeCache())
	_, err := service.AnalyzeMessage(context.Background(), Message{Text: "   \n\t "})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestAnalyzeMessageClampsScores(t *testing.T) {
	inference := defaultInference()
	inference.classification.Confidence = 1.3
	inference.sentiment.Score = -0.2
	service := newTestService(inference, newFakeCache())

	event, err := service.AnalyzeMessage(context.Background(), Message{Text: "text", Timestamp: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, 1.0, event.Confidence)
	assert.Equal(t, 0.0, event.SentimentScore)
}

func TestAnalyzeMessageTemporalContext(t *testing.T) {
	inference := defaultInference()
	service := newTestService(inference, newFakeCache())

	// Saturday morning
	ts := time.Date(2024, 3, 16, 8, 0, 0, 0, time.UTC)
	_, err := service.AnalyzeMessage(context.Background(), Message{Text: "went for a run", Timestamp: ts})
	require.NoError(t, err)

	assert.Equal(t, "In the morning: On Saturday went for a run", inference.lastText)
	// Before 9am the routine label set applies
	assert.Equal(t, []string{"Sleep", "Meals", "Commute"}, inference.lastLabels)
}

func TestAnalyzeMessageLabelSetByHour(t *testing.T) {
	inference := defaultInference()
	service := newTestService(inference, newFakeCache())

	ts := time.Date(2024, 3, 13, 23, 0, 0, 0, time.UTC)
	_, err := service.AnalyzeMessage(context.Background(), Message{Text: "still awake", Timestamp: ts})
	require.NoError(t, err)
	assert.Equal(t, []string{"Sleep", "Meals", "Commute"}, inference.lastLabels)

	ts = time.Date(2024, 3, 13, 15, 0, 0, 0, time.UTC)
	_, err = service.AnalyzeMessage(context.Background(), Message{Text: "afternoon work", Timestamp: ts})
	require.NoError(t, err)
	assert.Equal(t, []string{"Work", "Social", "Travel"}, inference.lastLabels)
}

func TestAnalyzeMessageUsesCache(t *testing.T) {
	inference := defaultInference()
	service := newTestService(inference, newFakeCache())

	ts := time.Date(2024, 3, 13, 14, 0, 0, 0, time.UTC)
	msg := Message{Text: "repeated message", Timestamp: ts}

	first, err := service.AnalyzeMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, "test-model", first.ModelUsed)

	second, err := service.AnalyzeMessage(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, "cache", second.ModelUsed)
	assert.Equal(t, first.Label, second.Label)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.Equal(t, 1, inference.classifyCalls)
	assert.Equal(t, 1, inference.sentimentCalls)
}

func TestAnalyzeMessageSummarizesLongText(t *testing.T) {
	inference := defaultInference()
	inference.summary = "condensed"
	service := newTestService(inference, newFakeCache())

	long := strings.Repeat("a long trip report paragraph ", 60)
	require.Greater(t, len(long), 1024)

	event, err := service.AnalyzeMessage(context.Background(), Message{Text: long, Timestamp: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, 1, inference.summarizeCalls)
	assert.Equal(t, "condensed", event.Summary)
}

func TestAnalyzeMessageSummarizeFailureTolerated(t *testing.T) {
	inference := defaultInference()
	inference.summarizeErr = errors.New("model unavailable")
	service := newTestService(inference, newFakeCache())

	long := strings.Repeat("a long trip report paragraph ", 60)
	event, err := service.AnalyzeMessage(context.Background(), Message{Text: long, Timestamp: time.Now()})
	require.NoError(t, err)
	assert.Empty(t, event.Summary)
}

func TestAnalyzeMessageClassifyError(t *testing.T) {
	inference := defaultInference()
	inference.classifyErr = errors.New("boom")
	service := newTestService(inference, newFakeCache())

	_, err := service.AnalyzeMessage(context.Background(), Message{Text: "text", Timestamp: time.Now()})
	assert.ErrorIs(t, err, ErrClassification)
	assert.ErrorContains(t, err, "boom")
}

func TestHighConfidenceThresholdIsStrict(t *testing.T) {
	inference := defaultInference()
	inference.classification.Confidence = 0.5
	service := newTestService(inference, newFakeCache())

	event, err := service.AnalyzeMessage(context.Background(), Message{Text: "borderline", Timestamp: time.Now()})
	require.NoError(t, err)
	assert.False(t, event.HighConfidence)
}

func TestAnalyzeBatchSkipsFailures(t *testing.T) {
	inference := defaultInference()
	service := newTestService(inference, newFakeCache())

	msgs := []Message{
		{Text: "first", Timestamp: time.Now()},
		{Text: "   "},
		{Text: "third", Timestamp: time.Now()},
	}
	events, err := service.AnalyzeBatch(context.Background(), msgs)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestAnalyzeBatchStopsOnCancelledContext(t *testing.T) {
	inference := defaultInference()
	service := newTestService(inference, newFakeCache())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events, err := service.AnalyzeBatch(ctx, []Message{{Text: "first", Timestamp: time.Now()}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, events)
}

func TestCacheKeyDependsOnLabels(t *testing.T) {
	a := cacheKey("text", []string{"Work", "Social"})
	b := cacheKey("text", []string{"Work"})
	c := cacheKey("text", []string{"Work", "Social"})
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c)
}
