package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mikey/activity-timeline/internal/core"
	"github.com/mikey/activity-timeline/internal/metrics"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20

// APIError is a non-recoverable inference API failure. The client returns
// it without retrying for statuses outside the transient set (429, 503).
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("inference API error %d: %s", e.StatusCode, e.Body)
}

// RetryPolicy bounds the retry loop around inference requests
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	ModelLoadWait  time.Duration
}

// Client calls the Hugging Face hosted inference API. It masks transient
// failures (model loading, rate limiting, one network hiccup) from callers
// and fails fast on everything else.
type Client struct {
	httpClient          *http.Client
	baseURL             string
	apiToken            string
	classificationModel string
	sentimentModel      string
	summarizationModel  string
	retry               RetryPolicy
	summaryMaxLength    int
	summaryMinLength    int
	breaker             *gobreaker.CircuitBreaker
	logger              *zap.Logger
	metrics             *metrics.Metrics

	// sleep is swapped out in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a new Hugging Face inference client
func NewClient(
	baseURL string,
	apiToken string,
	classificationModel string,
	sentimentModel string,
	summarizationModel string,
	timeout time.Duration,
	retry RetryPolicy,
	summaryMaxLength int,
	summaryMinLength int,
	logger *zap.Logger,
	m *metrics.Metrics,
) *Client {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "huggingface-inference",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &Client{
		httpClient:          &http.Client{Timeout: timeout, Transport: transport},
		baseURL:             baseURL,
		apiToken:            apiToken,
		classificationModel: classificationModel,
		sentimentModel:      sentimentModel,
		summarizationModel:  summarizationModel,
		retry:               retry,
		summaryMaxLength:    summaryMaxLength,
		summaryMinLength:    summaryMinLength,
		breaker:             breaker,
		logger:              logger,
		metrics:             m,
		sleep:               sleepCtx,
	}
}

type zeroShotRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters zeroShotParameters `json:"parameters"`
}

type zeroShotParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
}

type zeroShotResponse struct {
	Sequence string    `json:"sequence"`
	Labels   []string  `json:"labels"`
	Scores   []float64 `json:"scores"`
}

type sentimentRequest struct {
	Inputs string `json:"inputs"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type summaryRequest struct {
	Inputs     string            `json:"inputs"`
	Parameters summaryParameters `json:"parameters"`
}

type summaryParameters struct {
	MaxLength int  `json:"max_length"`
	MinLength int  `json:"min_length"`
	DoSample  bool `json:"do_sample"`
}

type summaryResponse struct {
	SummaryText string `json:"summary_text"`
}

// Classify runs zero-shot classification against the candidate labels
func (c *Client) Classify(ctx context.Context, text string, candidateLabels []string) (*core.Classification, error) {
	if len(candidateLabels) == 0 {
		return nil, errors.New("no candidate labels provided")
	}

	var resp zeroShotResponse
	err := c.query(ctx, "classify", c.classificationModel, zeroShotRequest{
		Inputs:     text,
		Parameters: zeroShotParameters{CandidateLabels: candidateLabels},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Labels) == 0 || len(resp.Labels) != len(resp.Scores) {
		return nil, fmt.Errorf("malformed classification response: %d labels, %d scores",
			len(resp.Labels), len(resp.Scores))
	}

	all := make(map[string]float64, len(resp.Labels))
	top := 0
	for i, label := range resp.Labels {
		all[label] = resp.Scores[i]
		if resp.Scores[i] > resp.Scores[top] {
			top = i
		}
	}

	return &core.Classification{
		Label:      resp.Labels[top],
		Confidence: resp.Scores[top],
		AllScores:  all,
		Model:      c.classificationModel,
	}, nil
}

// AnalyzeSentiment scores the sentiment of text
func (c *Client) AnalyzeSentiment(ctx context.Context, text string) (*core.Sentiment, error) {
	// The hosted API nests the scores one level deeper than the
	// zero-shot endpoint: one row of label/score pairs per input.
	var rows [][]labelScore
	err := c.query(ctx, "sentiment", c.sentimentModel, sentimentRequest{Inputs: text}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.New("empty sentiment response")
	}

	best := rows[0][0]
	for _, candidate := range rows[0][1:] {
		if candidate.Score > best.Score {
			best = candidate
		}
	}

	return &core.Sentiment{
		Label: normalizeSentimentLabel(best.Label),
		Score: best.Score,
	}, nil
}

// Summarize produces a short summary of long text
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	var resp []summaryResponse
	err := c.query(ctx, "summarize", c.summarizationModel, summaryRequest{
		Inputs: text,
		Parameters: summaryParameters{
			MaxLength: c.summaryMaxLength,
			MinLength: c.summaryMinLength,
			DoSample:  false,
		},
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp) == 0 {
		return "", errors.New("empty summarization response")
	}
	return resp[0].SummaryText, nil
}

type apiResponse struct {
	status     int
	body       []byte
	retryAfter time.Duration
}

// query posts a payload to a model endpoint and decodes the response,
// applying the retry policy: bounded retries for 503 (model loading) and
// 429 with growing backoff, one retry for transport errors, immediate
// failure for everything else.
func (c *Client) query(ctx context.Context, operation, model string, payload, out interface{}) error {
	started := time.Now()
	err := c.queryWithRetry(ctx, operation, model, payload, out)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.metrics.ObserveInference(operation, outcome, time.Since(started))
	return err
}

func (c *Client) queryWithRetry(ctx context.Context, operation, model string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode inference request: %w", err)
	}
	url := c.baseURL + model

	backoff := c.retry.InitialBackoff
	networkRetried := false
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		res, err := c.doRequest(ctx, url, body)
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return fmt.Errorf("inference circuit open for %s: %w", model, err)
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Transport errors (including client timeouts) get exactly
			// one retry before the failure is surfaced.
			if networkRetried {
				return fmt.Errorf("inference request to %s failed: %w", model, err)
			}
			networkRetried = true
			lastErr = err
			c.logger.Warn("Inference request failed, retrying once",
				zap.String("model", model),
				zap.Error(err))
			c.metrics.IncRetry(operation, "network")
			if err := c.sleep(ctx, c.retry.InitialBackoff); err != nil {
				return err
			}
			attempt--
			continue
		}

		switch {
		case res.status == http.StatusOK:
			if err := json.Unmarshal(res.body, out); err != nil {
				return fmt.Errorf("failed to decode inference response: %w", err)
			}
			return nil

		case res.status == http.StatusServiceUnavailable:
			// Model is loading on the hosted side
			wait := c.retry.ModelLoadWait
			if res.retryAfter > 0 {
				wait = res.retryAfter
			}
			lastErr = &APIError{StatusCode: res.status, Body: snippet(res.body)}
			c.logger.Info("Model is loading, waiting before retry",
				zap.String("model", model),
				zap.Duration("wait", wait),
				zap.Int("attempt", attempt))
			c.metrics.IncRetry(operation, "model_loading")
			if attempt < c.retry.MaxAttempts {
				if err := c.sleep(ctx, wait); err != nil {
					return err
				}
			}

		case res.status == http.StatusTooManyRequests:
			wait := backoff
			if res.retryAfter > 0 {
				wait = res.retryAfter
			}
			lastErr = &APIError{StatusCode: res.status, Body: snippet(res.body)}
			c.logger.Info("Rate limited, backing off",
				zap.String("model", model),
				zap.Duration("wait", wait),
				zap.Int("attempt", attempt))
			c.metrics.IncRetry(operation, "rate_limited")
			if attempt < c.retry.MaxAttempts {
				if err := c.sleep(ctx, wait); err != nil {
					return err
				}
			}
			if backoff < c.retry.MaxBackoff {
				backoff *= 2
				if backoff > c.retry.MaxBackoff {
					backoff = c.retry.MaxBackoff
				}
			}

		default:
			// Permanent failure, do not retry
			return &APIError{StatusCode: res.status, Body: snippet(res.body)}
		}
	}

	return fmt.Errorf("inference request to %s failed after %d attempts: %w",
		model, c.retry.MaxAttempts, lastErr)
}

func (c *Client) doRequest(ctx context.Context, url string, body []byte) (*apiResponse, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiToken)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, err
		}

		res := &apiResponse{
			status:     resp.StatusCode,
			body:       data,
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
		// Only unexpected server-side failures count against the
		// breaker; loading and throttling are normal operation.
		if resp.StatusCode >= 500 && resp.StatusCode != http.StatusServiceUnavailable {
			return res, &APIError{StatusCode: resp.StatusCode, Body: snippet(data)}
		}
		return res, nil
	})
	if err != nil {
		if res, ok := result.(*apiResponse); ok {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				// Surface the response so the caller sees the status
				return res, nil
			}
		}
		return nil, err
	}
	return result.(*apiResponse), nil
}

// parseRetryAfter handles the delay-seconds form of the header. Anything
// unparsable or over two minutes is ignored.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds <= 0 || seconds > 120 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func normalizeSentimentLabel(label string) string {
	switch strings.ToLower(label) {
	case "label_0", "neg", "negative":
		return "negative"
	case "label_1", "neutral":
		return "neutral"
	case "label_2", "pos", "positive":
		return "positive"
	default:
		return strings.ToLower(label)
	}
}

func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
